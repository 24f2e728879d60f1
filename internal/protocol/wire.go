package protocol

import (
	"encoding/json"
	"fmt"
)

// Frame type discriminators handled by the controller.
const (
	typeControlRequest       = "control_request"
	typeControlResponse      = "control_response"
	typeControlCancelRequest = "control_cancel_request"
)

// Reply subtypes.
const (
	subtypeSuccess = "success"
	subtypeError   = "error"
)

// ControlRequest is the envelope of an outbound control request.
//
// Wire format:
//
//	{
//	  "type": "control_request",
//	  "request_id": "req_1_01J...",
//	  "request": {
//	    "subtype": "interrupt"
//	  }
//	}
type ControlRequest struct {
	Type      string         `json:"type"`
	RequestID string         `json:"request_id"` //nolint:tagliatelle // Claude CLI uses snake_case
	Request   map[string]any `json:"request"`
}

// ControlResponse is a decoded control_response frame.
//
// Wire format for success:
//
//	{
//	  "type": "control_response",
//	  "response": {
//	    "subtype": "success",
//	    "request_id": "req_1_01J...",
//	    "response": {...}
//	  }
//	}
//
// Wire format for error:
//
//	{
//	  "type": "control_response",
//	  "response": {
//	    "subtype": "error",
//	    "request_id": "req_1_01J...",
//	    "error": "error message"
//	  }
//	}
type ControlResponse struct {
	Type     string         `json:"type"`
	Response map[string]any `json:"response"`
}

// IsError reports whether the response carries the error subtype.
func (r *ControlResponse) IsError() bool {
	s, _ := r.Response["subtype"].(string)

	return s == subtypeError
}

// ErrorMessage returns the error text of an error response.
func (r *ControlResponse) ErrorMessage() string {
	if e, ok := r.Response["error"].(string); ok {
		return e
	}

	return ""
}

// Payload returns the embedded payload of a success response, or nil when
// the peer answered with null or a non-object.
func (r *ControlResponse) Payload() map[string]any {
	if p, ok := r.Response["response"].(map[string]any); ok {
		return p
	}

	return nil
}

// RequestID returns the id the response correlates with.
func (r *ControlResponse) RequestID() string {
	if id, ok := r.Response["request_id"].(string); ok {
		return id
	}

	return ""
}

// Reply bodies are structs rather than maps so the encoded field order is
// stable: subtype, request_id, then the payload or error.
type successReply struct {
	Subtype   string         `json:"subtype"`
	RequestID string         `json:"request_id"` //nolint:tagliatelle // Claude CLI uses snake_case
	Response  map[string]any `json:"response"`
}

type errorReply struct {
	Subtype   string `json:"subtype"`
	RequestID string `json:"request_id"` //nolint:tagliatelle // Claude CLI uses snake_case
	Error     string `json:"error"`
}

type replyEnvelope struct {
	Type     string `json:"type"`
	Response any    `json:"response"`
}

// encodeSuccess builds the reply frame answering requestID with payload.
func encodeSuccess(requestID string, payload map[string]any) ([]byte, error) {
	data, err := json.Marshal(replyEnvelope{
		Type:     typeControlResponse,
		Response: successReply{Subtype: subtypeSuccess, RequestID: requestID, Response: payload},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal control response: %w", err)
	}

	return data, nil
}

// encodeError builds the error reply frame for requestID.
func encodeError(requestID, message string) ([]byte, error) {
	data, err := json.Marshal(replyEnvelope{
		Type:     typeControlResponse,
		Response: errorReply{Subtype: subtypeError, RequestID: requestID, Error: message},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal control error response: %w", err)
	}

	return data, nil
}
