package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/pacwrap/pacwrap/pkg/cache"
	"github.com/pacwrap/pacwrap/pkg/container"
	"github.com/pacwrap/pacwrap/pkg/events"
	"github.com/pacwrap/pacwrap/pkg/log"
	"github.com/pacwrap/pacwrap/pkg/metrics"
	"github.com/pacwrap/pacwrap/pkg/perror"
	"github.com/pacwrap/pacwrap/pkg/plugin"
	"github.com/pacwrap/pacwrap/pkg/pwconfig"
	"github.com/pacwrap/pacwrap/pkg/registry"
	"github.com/pacwrap/pacwrap/pkg/sandbox"
	"github.com/pacwrap/pacwrap/pkg/schema"
	"github.com/pacwrap/pacwrap/pkg/transaction"
	"github.com/pacwrap/pacwrap/pkg/types"
)

const defaultLockTimeout = 30 * time.Second

// reposFile mirrors repos.toml: a flat list of repositories every
// container's backend registers against, shared across the install base.
type reposFile struct {
	Repositories []types.Repository `toml:"repositories"`
}

func loadRepos() ([]types.Repository, error) {
	var rf reposFile
	path := pwconfig.ReposPath()
	if _, err := toml.DecodeFile(path, &rf); err != nil {
		if os.IsNotExist(err) {
			return nil, perror.New(perror.KindConfigParse, "no repository configuration found", path)
		}
		return nil, perror.Wrap(perror.KindConfigParse, err, "parse repos.toml", path)
	}
	return rf.Repositories, nil
}

// loadRegistry walks the containers directory and loads every
// container's meta.toml into a registry, ready for dependency
// resolution.
func loadRegistry() (*registry.Registry, error) {
	dir := pwconfig.ContainersDir()
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return registry.New(nil)
		}
		return nil, perror.Wrap(perror.KindIO, err, "read containers directory", dir)
	}

	var containers []*types.Container
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		h, err := container.Load(dir, e.Name())
		if err != nil {
			return nil, err
		}
		containers = append(containers, h.Container)
	}
	return registry.New(containers)
}

func reposByContainer(names []string, repos []types.Repository) map[string][]types.Repository {
	m := make(map[string][]types.Repository, len(names))
	for _, n := range names {
		m[n] = repos
	}
	return m
}

func newAggregator(reg *registry.Registry, names []string, repos []types.Repository, plan types.TransactionPlan) *transaction.Aggregator {
	return &transaction.Aggregator{
		Registry:             reg,
		Repos:                reposByContainer(names, repos),
		Plan:                 plan,
		Events:               events.NewBroker(),
		Cache:                &cache.HitCounter{},
		Manifest:             schema.Manifest{Patterns: []string{"**/*"}},
		CurrentSchemaVersion: 0,
		SchemaArchiveDir:     filepath.Join(pwconfig.DataRoot(), "schema"),
		LockTimeout:          defaultLockTimeout,
	}
}

func subscribeProgress(agg *transaction.Aggregator) func() {
	agg.Events.Start()
	sub := agg.Events.Subscribe()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range sub {
			fmt.Printf("%s %s %s\n", ev.Type, ev.Container, ev.Package)
		}
	}()
	return func() {
		agg.Events.Unsubscribe(sub)
		<-done
		agg.Events.Stop()
	}
}

func splitContainersAndPackages(targets, args []string) []string {
	if len(targets) > 0 {
		return targets
	}
	if len(args) > 0 {
		return []string{args[0]}
	}
	return nil
}

// runSync implements the -S operand: build an Upgrade/Install plan from
// the requested packages and run it through the aggregator against the
// requested containers' dependency closure.
func runSync(ctx context.Context, targets, args []string, opts syncOptions) error {
	reg, err := loadRegistry()
	if err != nil {
		return err
	}
	repos, err := loadRepos()
	if err != nil {
		return err
	}

	names := splitContainersAndPackages(targets, args)
	if len(names) == 0 {
		return perror.New(perror.KindUnknownContainer, "no container specified")
	}

	var pkgs []string
	if len(targets) > 0 {
		pkgs = args
	} else if len(args) > 1 {
		pkgs = args[1:]
	}

	install := make([]types.PackageRef, 0, len(pkgs))
	for _, p := range pkgs {
		install = append(install, types.PackageRef{Name: p})
	}

	mode := types.TransactionModeInstall
	if opts.Upgrade {
		mode = types.TransactionModeUpgrade
	}

	plan := types.TransactionPlan{
		Install: install,
		Mode:    mode,
		Flags: types.TransactionFlags{
			ForceForeignReinstall: opts.ForceForeign,
			DatabaseOnly:          opts.DatabaseOnly,
			NoConfirm:             opts.NoConfirm,
			Refresh:               opts.Refresh,
			RefreshAll:            opts.RefreshAll,
		},
	}

	agg := newAggregator(reg, names, repos, plan)
	unsub := subscribeProgress(agg)
	defer unsub()

	results, err := agg.Run(names)
	if err != nil {
		return err
	}
	return reportResults(results)
}

// runRemove implements the -R operand.
func runRemove(ctx context.Context, targets, args []string, opts removeOptions) error {
	reg, err := loadRegistry()
	if err != nil {
		return err
	}
	repos, err := loadRepos()
	if err != nil {
		return err
	}

	names := splitContainersAndPackages(targets, args)
	if len(names) == 0 {
		return perror.New(perror.KindUnknownContainer, "no container specified")
	}

	var pkgs []string
	if len(targets) > 0 {
		pkgs = args
	} else if len(args) > 1 {
		pkgs = args[1:]
	}

	plan := types.TransactionPlan{
		Remove: pkgs,
		Mode:   types.TransactionModeRemove,
		Flags: types.TransactionFlags{
			Cascade:    opts.Cascade,
			Recursive:  opts.Recursive,
			KeepConfig: opts.KeepConfig,
		},
	}

	agg := newAggregator(reg, names, repos, plan)
	unsub := subscribeProgress(agg)
	defer unsub()

	results, err := agg.Run(names)
	if err != nil {
		return err
	}
	return reportResults(results)
}

// runQuery implements the -Q operand: opens a single container's ALPM
// backend read-only and lists foreign or orphaned packages.
func runQuery(ctx context.Context, args []string, opts queryOptions) error {
	if len(args) == 0 {
		return perror.New(perror.KindUnknownContainer, "no container specified")
	}
	name := args[0]

	reg, err := loadRegistry()
	if err != nil {
		return err
	}
	c, err := reg.Resolve(name)
	if err != nil {
		return err
	}
	repos, err := loadRepos()
	if err != nil {
		return err
	}

	h, err := transaction.Open(c, repos, defaultLockTimeout)
	if err != nil {
		return err
	}
	defer h.Close()

	var names []string
	switch {
	case opts.Foreign:
		names, err = h.ForeignPkgs()
	case opts.Orphans:
		names, err = h.OrphanPkgs()
	default:
		names, err = h.ForeignPkgs()
	}
	if err != nil {
		return err
	}
	for _, n := range names {
		fmt.Println(n)
	}
	return nil
}

// runExec implements the -E operand: spawn a sandbox for the named
// container and run an arbitrary command in it, without going through
// the transaction engine at all.
func runExec(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return perror.New(perror.KindUnknownContainer, "no container specified")
	}
	name := args[0]
	command := args[1:]
	if len(command) == 0 {
		command = []string{"/bin/sh"}
	}

	reg, err := loadRegistry()
	if err != nil {
		return err
	}
	c, err := reg.Resolve(name)
	if err != nil {
		return err
	}

	execArgs := plugin.NewExecutionArgs()
	if err := defaultPlugins(c, execArgs); err != nil {
		return err
	}

	sb := sandbox.New(ctx, c, execArgs, command)
	sb.Cmd().Stdin = os.Stdin
	sb.Cmd().Stdout = os.Stdout
	sb.Cmd().Stderr = os.Stderr

	if err := sb.Start(); err != nil {
		return err
	}
	return sb.Wait()
}

// runUtilsOpen implements the supplemented "utils open" command: an
// interactive shell in a container, equivalent to runExec with no
// command of its own.
func runUtilsOpen(ctx context.Context, name string) error {
	return runExec(ctx, []string{name, "/bin/sh"})
}

// runCompat translates a pacman-style invocation (e.g. "-Syu") onto the
// current container, a convenience shim for users accustomed to
// pacman's combined short flags. It is deliberately narrow: it only
// recognizes the sync/refresh/upgrade combination.
func runCompat(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return perror.New(perror.KindUnknownContainer, "no operation specified")
	}
	operand := args[0]
	rest := args[1:]

	opts := syncOptions{}
	for _, r := range operand {
		switch r {
		case 'y':
			if opts.Refresh {
				opts.RefreshAll = true
			}
			opts.Refresh = true
		case 'u':
			opts.Upgrade = true
		}
	}
	return runSync(ctx, nil, rest, opts)
}

// runUtilsMetrics implements the supplemented "utils metrics" command: a
// foreground Prometheus exporter for a single-host pacwrap install,
// intended to sit behind a user's own supervisor rather than be started
// by every invocation.
func runUtilsMetrics(ctx context.Context, addr string) error {
	reg, err := loadRegistry()
	if err != nil {
		return err
	}

	collector := metrics.NewCollector(reg, &cache.HitCounter{})
	collector.Start()
	defer collector.Stop()

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())

	server := &http.Server{Addr: addr, Handler: mux}
	go func() {
		<-ctx.Done()
		_ = server.Close()
	}()

	fmt.Printf("metrics listening on http://%s/metrics\n", addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return perror.Wrap(perror.KindIO, err, "serve metrics", addr)
	}
	return nil
}

func defaultPlugins(c *types.Container, args *plugin.ExecutionArgs) error {
	warn := func(module, msg string) {
		log.WithContainer(c.Name).Warn().Str("module", module).Msg(msg)
	}
	fs := []plugin.Filesystem{&plugin.Root{}, &plugin.Tmp{}}
	if c.Home != "" {
		fs = append(fs, &plugin.Home{User: "user"})
	}
	return plugin.RegisterFilesystems(fs, c, args, warn)
}

func reportResults(results []transaction.ContainerResult) error {
	for _, r := range results {
		if r.Skipped {
			fmt.Printf("%s: skipped (dependency failed)\n", r.Container)
			continue
		}
		if r.Err != nil {
			fmt.Printf("%s: failed: %v\n", r.Container, r.Err)
			continue
		}
		fmt.Printf("%s: installed=%v removed=%v\n", r.Container, r.Installed, r.Removed)
	}
	return nil
}
