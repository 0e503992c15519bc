// Package ledger defines the host-ledger collaborator the engine moves
// assets through. The engine never mutates balances itself: every custody
// change is a call into this interface, and a rejected call aborts the
// whole operation.
package ledger

import (
	"fmt"

	"github.com/escrowlabs/orderd/pkg/asset"
	"github.com/ethereum/go-ethereum/common"
)

// Ledger is the token/balance service the engine calls into.
type Ledger interface {
	// Transfer moves an asset from one account to another.
	// For token assets the transfer is executed on the token contract;
	// for native assets it is a ledger balance move.
	Transfer(from, to common.Address, a asset.Asset) error

	// TransferFrom pulls a pre-authorized token amount from owner to the
	// recipient on behalf of spender. Token assets only.
	TransferFrom(owner, spender, to common.Address, a asset.Asset) error

	// VerifyAttachedFunds reports whether the current call attached
	// exactly the expected native asset from the given sender.
	VerifyAttachedFunds(from common.Address, expected asset.Asset) bool
}

// TransferError wraps a collaborator rejection so callers can distinguish
// ledger failures from lifecycle errors.
type TransferError struct {
	Op  string // "transfer" or "transfer_from"
	Err error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("ledger %s failed: %v", e.Op, e.Err)
}

func (e *TransferError) Unwrap() error {
	return e.Err
}
