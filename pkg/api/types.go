package api

import (
	"encoding/json"

	"github.com/escrowlabs/orderd/pkg/engine"
)

// API request/response types for REST endpoints and WebSocket messages.

// TxRequest is the envelope for POST /api/v1/tx: the authenticated sender
// plus the tagged-union operation body. On a real deployment the host
// chain supplies the sender; the devnet API takes it verbatim.
type TxRequest struct {
	Sender string          `json:"sender"`
	Tx     json.RawMessage `json:"tx"`
}

// SubmitOrderResponse acknowledges a submission with the allocated id.
type SubmitOrderResponse struct {
	OrderID uint64 `json:"order_id"`
}

// AckResponse acknowledges a cancel or execute.
type AckResponse struct {
	Status  string `json:"status"` // always "ok"
	OrderID uint64 `json:"order_id"`
}

// ErrorResponse carries a structured failure: the error kind plus detail.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// WSSubscribeRequest is the client -> server subscription message.
type WSSubscribeRequest struct {
	Op       string   `json:"op"` // "subscribe" or "unsubscribe"
	Channels []string `json:"channels"`
}

// WSEvent is the server -> client event frame on the "orders" channel.
type WSEvent struct {
	Channel string       `json:"channel"`
	Event   engine.Event `json:"event"`
}
