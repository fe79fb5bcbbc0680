// Package log provides pacwrap's structured logging: a package-level
// zerolog.Logger initialized once from the CLI's --log-level/--log-json
// flags, plus WithComponent child loggers for each subsystem (registry,
// schema, transaction, aggregator, agent, plugin, sandbox).
package log
