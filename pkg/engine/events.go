package engine

import (
	"github.com/escrowlabs/orderd/pkg/asset"
)

// EventType tags a lifecycle event.
type EventType string

const (
	EventOrderSubmitted EventType = "order_submitted"
	EventOrderCancelled EventType = "order_cancelled"
	EventOrderExecuted  EventType = "order_executed"
)

// Event describes a completed state transition. Emitted to observers
// (the API hub) and appended to the operation journal after the
// transition has committed.
type Event struct {
	Type      EventType     `json:"type"`
	OrderID   uint64        `json:"order_id"`
	Submitter string        `json:"submitter"`
	Offer     asset.Asset   `json:"offer"`
	Ask       asset.Asset   `json:"ask"`
	FeeAmount asset.Uint128 `json:"fee_amount"`
	Executor  string        `json:"executor,omitempty"` // execute only
	Timestamp int64         `json:"timestamp"`          // unix ms
}

// Observer receives committed events. Observers must not block; the
// engine calls them synchronously inside the operation.
type Observer func(Event)

// Journal is an append-only sink for committed operations. The file
// implementation lives in pkg/storage.
type Journal interface {
	Append(line string)
}
