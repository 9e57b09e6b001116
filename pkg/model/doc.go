// Package model defines the uniform call interface of capabilities.
//
// A capability exposes a CommandSet: named commands with positional
// parameters and a handler. Endpoints dispatch wire requests into the set
// by method name; local adapters bypass it and call the capability
// interface directly.
//
//	set := model.NewCommandSet(
//	    model.NewCommand(&model.CommandMetadata{
//	        Name:       "digitalRead",
//	        Parameters: []model.ParameterMetadata{{Name: "pin", Type: model.DataTypeInt}},
//	        Result:     model.DataTypeInt,
//	    }, func(ctx context.Context, args model.Args) (any, error) {
//	        pin, err := args.Int(0)
//	        if err != nil {
//	            return nil, err
//	        }
//	        return bus.DigitalRead(ctx, pin)
//	    }),
//	)
//
// # Errors
//
// Rejected arguments are reported as *ValueError, which matches
// ErrInvalidParameters with errors.Is. The interaction layer maps it to
// the INVALID_PARAMETER wire status and back, so callers check local and
// remote results the same way.
package model
