// Package errors defines the error kinds surfaced by the control pipe.
//
// Every failure is one of five kinds: connection (the channel could not be
// established), transport (I/O failed after connecting), decode (a frame could
// not be turned into a JSON object), protocol (a control exchange was
// malformed or refused) and timeout (an outbound request went unanswered).
// Struct errors unwrap to their cause and can be matched with errors.Is,
// errors.As and errors.AsType.
package errors
