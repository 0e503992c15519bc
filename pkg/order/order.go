// Package order owns the order records and their custody bookkeeping.
// The Store is the single source of truth for order status; the escrow
// entries it keeps alongside are a derived view that must always agree.
package order

import (
	"github.com/escrowlabs/orderd/pkg/asset"
	"github.com/ethereum/go-ethereum/common"
)

// Status is the lifecycle state of an order.
// Transitions are monotone: Open -> Cancelled or Open -> Executed, nothing
// ever leaves a terminal state.
type Status int8

const (
	StatusOpen Status = iota
	StatusCancelled
	StatusExecuted
)

func (s Status) String() string {
	switch s {
	case StatusOpen:
		return "open"
	case StatusCancelled:
		return "cancelled"
	case StatusExecuted:
		return "executed"
	default:
		return "unknown"
	}
}

// Terminal reports whether the status admits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusCancelled || s == StatusExecuted
}

// Order is a single escrowed OTC order.
type Order struct {
	ID        uint64         `json:"id"`
	Submitter common.Address `json:"submitter"`

	OfferAsset asset.Asset   `json:"offer_asset"` // held in escrow while open
	AskAsset   asset.Asset   `json:"ask_asset"`   // expected counter-asset
	FeeAmount  asset.Uint128 `json:"fee_amount"`  // fixed at submission

	Status Status `json:"status"`

	// Unix milliseconds
	CreatedAt int64 `json:"created_at"`
	UpdatedAt int64 `json:"updated_at"`
}

// Escrow is the custody entry proving the engine holds the offer asset and
// the fee for an open order. Created with the order, destroyed exactly once
// on the transition out of open.
type Escrow struct {
	OrderID  uint64      `json:"order_id"`
	Offer    asset.Asset `json:"offer"`
	FeeAsset asset.Asset `json:"fee_asset"`
}
