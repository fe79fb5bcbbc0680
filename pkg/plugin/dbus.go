package plugin

// XdgPortal grants access to the desktop portal bus, grounded on
// xdg_portal.rs.
type XdgPortal struct{}

func (x *XdgPortal) Register(args *ExecutionArgs) {
	args.DbusRule("call", "org.freedesktop.portal.*=*")
	args.DbusRule("broadcast", "org.freedesktop.portal.*=@/org/freedesktop/portal/*")
}

func (x *XdgPortal) ModuleName() string { return "xdg_portal" }

// AppIndicator grants access to the StatusNotifierItem bus used by tray
// icons, grounded on appindicator.rs.
type AppIndicator struct{}

func (a *AppIndicator) Register(args *ExecutionArgs) {
	args.DbusRule("own", "org.kde.StatusNotifierItem-*")
	args.DbusRule("call", "org.kde.StatusNotifierWatcher=*")
	args.DbusRule("broadcast", "org.kde.StatusNotifierItem=@/StatusNotifierItem")
}

func (a *AppIndicator) ModuleName() string { return "appindicator" }

// Socket proxies an arbitrary named D-Bus socket rule, grounded on
// socket.rs.
type Socket struct {
	Name string
	Rule string
}

func (s *Socket) Register(args *ExecutionArgs) {
	args.DbusRule("own", s.Rule)
}

func (s *Socket) ModuleName() string { return s.Name }
