// Package plugin implements the filesystem, permission and D-Bus plugin
// registry described in spec §9: each leaf declares whether it qualifies
// for the current container and, if so, how it contributes bind mounts,
// bwrap flags or portal arguments to the sandbox argv being assembled.
// Grounded on the Filesystem/Permission/Dbus trait family and the
// register_filesystems/register_permissions/register_dbus dispatch loops
// of the original implementation, translated into Go interfaces plus
// functions that walk a slice of them.
package plugin
