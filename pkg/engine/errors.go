package engine

import (
	"errors"

	"github.com/escrowlabs/orderd/pkg/order"
)

// Lifecycle error taxonomy. Every operation either completes in full or
// fails with one of these (or a wrapped ledger.TransferError) and leaves
// the store untouched.
var (
	// ErrInvalidOrder rejects malformed submissions: zero offer amount,
	// fee below the configured floor, or mismatched attached funds on a
	// native-asset order.
	ErrInvalidOrder = errors.New("invalid order")

	// ErrInsufficientFunds reports an allowance or balance shortfall
	// surfaced by the ledger collaborator during the submission pull.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrOrderNotFound reports an unknown order id.
	ErrOrderNotFound = errors.New("order not found")

	// ErrOrderNotCancellable reports a cancel against a terminal order.
	ErrOrderNotCancellable = errors.New("order not cancellable")

	// ErrOrderNotExecutable reports an execute against a terminal order.
	ErrOrderNotExecutable = errors.New("order not executable")

	// ErrUnauthorized reports a caller that is neither the submitter
	// (cancel) nor a designated executor (execute).
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNoEscrowRecord guards against store/escrow divergence.
	ErrNoEscrowRecord = order.ErrNoEscrowRecord
)
