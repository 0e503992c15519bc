package msg

import (
	"encoding/json"
	"fmt"

	"github.com/escrowlabs/orderd/pkg/asset"
)

// OrderBy selects pagination direction for order listings.
type OrderBy string

const (
	OrderAsc  OrderBy = "asc"
	OrderDesc OrderBy = "desc"
)

// QueryConfig requests the engine configuration.
type QueryConfig struct{}

// QueryOrder requests a single order by id.
type QueryOrder struct {
	OrderID uint64 `json:"order_id"`
}

// QueryOrders requests a paginated order listing, optionally scoped to
// one submitter. start_after is exclusive; limit defaults to 10, max 30;
// ordering defaults to descending ids.
type QueryOrders struct {
	BidderAddr *string  `json:"bidder_addr,omitempty"`
	StartAfter *uint64  `json:"start_after,omitempty"`
	Limit      *uint32  `json:"limit,omitempty"`
	OrderBy    *OrderBy `json:"order_by,omitempty"`
}

// Desc resolves the effective direction (descending unless asc requested).
func (q QueryOrders) Desc() bool {
	return q.OrderBy == nil || *q.OrderBy != OrderAsc
}

// QueryLastOrderID requests the most recently allocated order id.
type QueryLastOrderID struct{}

// Query is the read-side union. Exactly one field is non-nil after a
// successful parse.
type Query struct {
	Config      *QueryConfig
	Order       *QueryOrder
	Orders      *QueryOrders
	LastOrderID *QueryLastOrderID
}

// ParseQuery decodes the query union with the same closed-schema rules
// as ParseTx.
func ParseQuery(data []byte) (*Query, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("malformed query: %w", err)
	}
	if len(raw) != 1 {
		return nil, fmt.Errorf("query must have exactly one variant, got %d keys", len(raw))
	}

	var q Query
	for key, body := range raw {
		switch key {
		case "config":
			var m QueryConfig
			if err := strictDecode(body, &m); err != nil {
				return nil, fmt.Errorf("config: %w", err)
			}
			q.Config = &m
		case "order":
			var m QueryOrder
			if err := strictDecode(body, &m); err != nil {
				return nil, fmt.Errorf("order: %w", err)
			}
			if err := requireFields(body, "order_id"); err != nil {
				return nil, fmt.Errorf("order: %w", err)
			}
			q.Order = &m
		case "orders":
			var m QueryOrders
			if err := strictDecode(body, &m); err != nil {
				return nil, fmt.Errorf("orders: %w", err)
			}
			if m.OrderBy != nil && *m.OrderBy != OrderAsc && *m.OrderBy != OrderDesc {
				return nil, fmt.Errorf("orders: invalid order_by %q", *m.OrderBy)
			}
			q.Orders = &m
		case "last_order_id":
			var m QueryLastOrderID
			if err := strictDecode(body, &m); err != nil {
				return nil, fmt.Errorf("last_order_id: %w", err)
			}
			q.LastOrderID = &m
		default:
			return nil, fmt.Errorf("unknown query %q", key)
		}
	}
	return &q, nil
}

// ConfigResponse mirrors the engine configuration.
type ConfigResponse struct {
	FeeToken     string        `json:"fee_token"`
	MinFeeAmount asset.Uint128 `json:"min_fee_amount"`
	FeeCollector string        `json:"fee_collector"`
	Executors    []string      `json:"executors"`
}

// OrderResponse is the wire form of a single order.
type OrderResponse struct {
	OrderID    uint64        `json:"order_id"`
	Submitter  string        `json:"submitter"`
	OfferAsset asset.Asset   `json:"offer_asset"`
	AskAsset   asset.Asset   `json:"ask_asset"`
	FeeAmount  asset.Uint128 `json:"fee_amount"`
	Status     string        `json:"status"`
	CreatedAt  int64         `json:"created_at"`
	UpdatedAt  int64         `json:"updated_at"`
}

// OrdersResponse is a page of orders.
type OrdersResponse struct {
	Orders []OrderResponse `json:"orders"`
}

// LastOrderIDResponse carries the id counter.
type LastOrderIDResponse struct {
	LastOrderID uint64 `json:"last_order_id"`
}
