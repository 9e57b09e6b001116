// Package invoker is the entry point for using hatrpc capabilities.
//
// An Invoker runs in one of three modes, chosen once by Initialize:
//
//   - local (empty host): capabilities are instantiated in-process and
//     GetProvider returns their local adapters.
//   - server: the same instantiation, plus a registry on host:port that
//     serves each capability on its own port once something asks for it.
//   - client: a connection to a remote registry; GetProvider looks up the
//     port of a capability, connects to it and returns a remote stub.
//     Connections are cached per capability.
//
// Typed access goes through the capability packages:
//
//	inv := invoker.New(invoker.DefaultConfig())
//	if err := inv.Initialize(ctx, "192.168.1.20", 8000, false); err != nil {
//	    return err
//	}
//	defer inv.Stop()
//
//	bus, err := gpio.Resolve(inv)
//	if err != nil {
//	    return err
//	}
//	bus.Setup(ctx)
//	bus.DigitalWrite(ctx, 3, 1)
//
// Stop tears everything down exactly once: endpoints, implementations,
// cached connections, the registry connection and the registry listener,
// in that order.
package invoker
