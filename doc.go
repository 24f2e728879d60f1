// Package claudectl multiplexes a control protocol over a subprocess that
// speaks newline-delimited JSON on its standard streams.
//
// One duplex channel carries two kinds of traffic. Ordinary messages flow
// from the peer to the caller in wire order. Control requests flow both
// ways: outbound requests (initialize, interrupt, set_permission_mode, ...)
// are correlated with their responses by request id, and inbound requests
// (can_use_tool, hook_callback, mcp_message, ...) are answered by the
// callbacks registered in the options.
//
// # One-shot Queries
//
//	for msg, err := range claudectl.Query(ctx, "What is 2+2?",
//	    claudectl.WithPermissionMode("acceptEdits"),
//	    claudectl.WithMaxTurns(1),
//	) {
//	    if err != nil {
//	        return err
//	    }
//	    fmt.Println(msg.Type, msg.Text())
//	}
//
// # Interactive Sessions
//
//	err := claudectl.WithClient(ctx, func(c claudectl.Client) error {
//	    if err := c.Query(ctx, "Hello"); err != nil {
//	        return err
//	    }
//	    for msg, err := range c.ReceiveResponse(ctx) {
//	        if err != nil {
//	            return err
//	        }
//	        fmt.Println(msg.Text())
//	    }
//	    return c.Interrupt(ctx)
//	}, claudectl.WithCanUseTool(
//	    func(ctx context.Context, tool string, input map[string]any, _ *claudectl.PermissionContext) (claudectl.PermissionResult, error) {
//	        if tool == "Bash" {
//	            return &claudectl.PermissionResultDeny{Message: "no shell"}, nil
//	        }
//	        return &claudectl.PermissionResultAllow{}, nil
//	    },
//	))
//
// # Transports
//
// By default the CLI is spawned as a subprocess. Any other byte stream can be
// used with NewStreamTransport, or a custom Transport with WithTransport.
//
// # Logging
//
// Logging is disabled unless a logger is supplied:
//
//	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
//	client.Start(ctx, claudectl.WithLogger(logger))
//
// # Error Handling
//
// Errors are typed and wrap their causes:
//
//	if _, ok := errors.AsType[*claudectl.CLINotFoundError](err); ok {
//	    // install the CLI or use WithCliPath
//	}
//	if errors.Is(err, claudectl.ErrRequestTimeout) {
//	    // the peer did not answer a control request in time
//	}
//	if protoErr, ok := errors.AsType[*claudectl.ProtocolError](err); ok {
//	    log.Printf("peer rejected request: %s", protoErr.Message)
//	}
package claudectl
