// ABOUTME: Control protocol message types
// ABOUTME: JSON envelope and payloads for the localhost command channel
package control

import "github.com/Soundless-Audio/soundless-go/internal/keeper"

// Message is the envelope for every control exchange.
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// Command types accepted by the server.
const (
	TypeRestart  = "restart"
	TypeShutdown = "shutdown"
	TypeStatus   = "status"
)

// Reply types sent by the server.
const (
	TypeAck         = "ack"
	TypeStatusReply = "status/reply"
	TypeError       = "error"
)

// StatusPayload is the body of a status reply.
type StatusPayload struct {
	Product   string                  `json:"product"`
	Version   string                  `json:"version"`
	Backend   string                  `json:"backend"`
	Endpoints []keeper.EndpointStatus `json:"endpoints"`
}

// ErrorPayload is the body of an error reply.
type ErrorPayload struct {
	Error string `json:"error"`
}
