// Package app wires the GC quality web service together: configuration,
// logging, OpenTelemetry, the optional SQLite results store, the analysis
// and health services, the chi router and the HTTP server.
//
// # Initialization Flow
//
//	1. Resolve paths and create the data, reports and log directories
//	2. Initialize OpenTelemetry from the telemetry config
//	3. Open the results store when enabled
//	4. Build the analysis and health services
//	5. Set up middleware and routes
//	6. Serve until the context is cancelled, then shut down gracefully
//
// # Usage
//
//	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
//	defer stop()
//
//	a, err := app.NewApplication(ctx, cfg, logger)
//	if err != nil {
//	    return err
//	}
//	return a.Run(ctx)
package app
