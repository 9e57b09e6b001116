// Package interaction implements hatrpc's call model: synchronous calls of
// named operations with positional arguments, plus server-pushed
// notifications.
//
// # Server Usage
//
// The Server decodes requests and dispatches them to a Handler, usually a
// capability's *model.CommandSet:
//
//	srv := interaction.NewServer("GpioBus", commands)
//	transportCfg.OnMessage = func(c *transport.ServerConn, data []byte) {
//	    srv.HandleFrame(c, data)
//	}
//
// Handlers find the calling client's Session in the request context and
// may keep it to push notifications later:
//
//	s, _ := interaction.SessionFromContext(ctx)
//	s.Notify("touch", []any{button, "press"})
//
// # Client Usage
//
//	client := interaction.NewClient(conn)
//	go func() {
//	    for {
//	        data, err := conn.Receive(0)
//	        if err != nil {
//	            return
//	        }
//	        client.HandleFrame(data)
//	    }
//	}()
//	ok, err := client.Call(ctx, "digitalWrite", 3, 1)
//
// # Errors
//
// Handler errors become wire statuses (see ErrorToResponse). The client
// turns failure statuses into *StatusError values that match the
// corresponding model sentinel errors with errors.Is.
package interaction
