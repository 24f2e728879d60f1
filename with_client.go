package claudectl

import (
	"context"
	"fmt"
)

// WithClient starts a client, runs fn with it and closes it afterwards.
//
// The error from fn is returned as is. A failure to close is logged and
// never replaces it.
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
//	    return nil
//	}, claudectl.WithPermissionMode("acceptEdits"))
func WithClient(ctx context.Context, fn func(Client) error, opts ...Option) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	log := loggerFor(applyOptions(opts))

	client := NewClient()
	if err := client.Start(ctx, opts...); err != nil {
		return fmt.Errorf("start client: %w", err)
	}

	defer func() {
		if closeErr := client.Close(); closeErr != nil {
			log.Warn("Failed to close client", "error", closeErr)
		}
	}()

	return fn(client)
}
