// Package protocol implements the control protocol multiplexed over a
// transport's frame sequence.
//
// A Controller reads every frame the transport produces and classifies it:
//   - control_response frames resolve the outbound request with the same id
//   - control_request frames are decoded into an InboundRequest, dispatched
//     to the registered callback and answered with exactly one reply frame
//     before the next frame is read
//   - everything else is an ordinary message, delivered in arrival order
//     through Messages; delivery never waits on the consumer
//
// Inbound callbacks run on the read loop. A slow permission or hook callback
// holds back every later frame, ordinary messages and control responses
// alike, until it returns. This is the one backpressure point toward the
// peer. A callback that issues its own outbound request (Interrupt,
// SendRequest) cannot see the response until it returns, so that request
// waits for its full timeout.
//
// Session layers the initialize handshake, hook callback ids and SDK MCP
// routing on top of a Controller.
//
// Example usage:
//
//	controller := protocol.NewController(log, transport, true, 0)
//	if err := controller.Start(ctx); err != nil {
//		return err
//	}
//	defer controller.Stop()
//
//	if err := controller.Interrupt(ctx); err != nil {
//		return err
//	}
package protocol
