// Package msg defines the external message contract: a tagged-union
// transaction with exactly one of three operations, and the read-side
// query union. Schemas are closed: unknown keys anywhere reject the
// whole message.
package msg

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/escrowlabs/orderd/pkg/asset"
)

// SubmitOrder asks the engine to escrow offer_asset and the fee and open
// a new order. The sender must have pre-authorized the pulls.
type SubmitOrder struct {
	OfferAsset asset.Asset   `json:"offer_asset"`
	AskAsset   asset.Asset   `json:"ask_asset"`
	FeeAmount  asset.Uint128 `json:"fee_amount"`
}

// CancelOrder asks the engine to cancel the sender's open order.
type CancelOrder struct {
	OrderID uint64 `json:"order_id"`
}

// ExecuteOrder asks the engine to settle an open order. Executor operation.
type ExecuteOrder struct {
	OrderID uint64 `json:"order_id"`
}

// Tx is the operation union. Exactly one field is non-nil after a
// successful parse.
type Tx struct {
	Submit  *SubmitOrder
	Cancel  *CancelOrder
	Execute *ExecuteOrder
}

// ParseTx decodes the tagged-union wire form, enforcing exactly one
// known top-level key and closed variant schemas.
func ParseTx(data []byte) (*Tx, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("malformed transaction: %w", err)
	}
	if len(raw) != 1 {
		return nil, fmt.Errorf("transaction must have exactly one operation, got %d keys", len(raw))
	}

	var tx Tx
	for key, body := range raw {
		switch key {
		case "submit_order":
			var m SubmitOrder
			if err := strictDecode(body, &m); err != nil {
				return nil, fmt.Errorf("submit_order: %w", err)
			}
			if err := requireFields(body, "offer_asset", "ask_asset", "fee_amount"); err != nil {
				return nil, fmt.Errorf("submit_order: %w", err)
			}
			tx.Submit = &m
		case "cancel_order":
			var m CancelOrder
			if err := strictDecode(body, &m); err != nil {
				return nil, fmt.Errorf("cancel_order: %w", err)
			}
			if err := requireFields(body, "order_id"); err != nil {
				return nil, fmt.Errorf("cancel_order: %w", err)
			}
			tx.Cancel = &m
		case "execute_order":
			var m ExecuteOrder
			if err := strictDecode(body, &m); err != nil {
				return nil, fmt.Errorf("execute_order: %w", err)
			}
			if err := requireFields(body, "order_id"); err != nil {
				return nil, fmt.Errorf("execute_order: %w", err)
			}
			tx.Execute = &m
		default:
			return nil, fmt.Errorf("unknown operation %q", key)
		}
	}
	return &tx, nil
}

// requireFields rejects a variant body that omits any of the named
// required fields. DisallowUnknownFields only catches extra keys, so a
// missing field would otherwise decode to its zero value.
func requireFields(data []byte, fields ...string) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for _, f := range fields {
		if _, ok := raw[f]; !ok {
			return fmt.Errorf("missing field %q", f)
		}
	}
	return nil
}

// strictDecode rejects unknown fields and trailing data.
func strictDecode(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return fmt.Errorf("trailing data after message body")
	}
	return nil
}
