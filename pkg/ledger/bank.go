package ledger

import (
	"fmt"
	"sync"

	"github.com/escrowlabs/orderd/pkg/asset"
	"github.com/ethereum/go-ethereum/common"
)

// Bank is an in-memory Ledger used by the devnet node and the tests.
// It tracks native balances per denom, token balances per contract, and
// token allowances, mirroring the transfer/transfer-from/attached-funds
// surface of the host chain.
//
// Thread-safe; the engine additionally serializes all calls.
type Bank struct {
	mu sync.Mutex

	// native[denom][account] and tokens[contract][account]
	native map[string]map[common.Address]asset.Uint128
	tokens map[common.Address]map[common.Address]asset.Uint128

	// allowances[contract][owner][spender]
	allowances map[common.Address]map[common.Address]map[common.Address]asset.Uint128

	// attached funds for the current call, set by the host before dispatch
	attachedFrom common.Address
	attached     []asset.Asset

	// failNext, when > 0, counts down on each transfer-ish call and fails
	// the call that reaches zero. Fault injection for atomicity tests.
	failNext int
}

// NewBank creates an empty bank.
func NewBank() *Bank {
	return &Bank{
		native:     make(map[string]map[common.Address]asset.Uint128),
		tokens:     make(map[common.Address]map[common.Address]asset.Uint128),
		allowances: make(map[common.Address]map[common.Address]map[common.Address]asset.Uint128),
	}
}

// MintNative credits a native balance. Test/devnet seeding.
func (b *Bank) MintNative(to common.Address, denom string, amount asset.Uint128) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.native[denom] == nil {
		b.native[denom] = make(map[common.Address]asset.Uint128)
	}
	b.native[denom][to] = b.native[denom][to].Add(amount)
}

// MintToken credits a token balance. Test/devnet seeding.
func (b *Bank) MintToken(to, contract common.Address, amount asset.Uint128) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.tokens[contract] == nil {
		b.tokens[contract] = make(map[common.Address]asset.Uint128)
	}
	b.tokens[contract][to] = b.tokens[contract][to].Add(amount)
}

// Approve grants spender an allowance over owner's balance on contract.
func (b *Bank) Approve(owner, spender, contract common.Address, amount asset.Uint128) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.allowances[contract] == nil {
		b.allowances[contract] = make(map[common.Address]map[common.Address]asset.Uint128)
	}
	if b.allowances[contract][owner] == nil {
		b.allowances[contract][owner] = make(map[common.Address]asset.Uint128)
	}
	b.allowances[contract][owner][spender] = amount
}

// AttachFunds records the native coins sent along with the next call.
// The host attaches coins to a message; the engine verifies them via
// VerifyAttachedFunds and then pulls them with Transfer.
func (b *Bank) AttachFunds(from common.Address, coins ...asset.Asset) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.attachedFrom = from
	b.attached = coins
}

// FailNextTransfer arms the fault injector: the nth upcoming transfer or
// transfer-from call fails (n=1 fails the very next one).
func (b *Bank) FailNextTransfer(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failNext = n
}

// Balance returns the balance of an account in the given asset class.
func (b *Bank) Balance(addr common.Address, info asset.AssetInfo) asset.Uint128 {
	b.mu.Lock()
	defer b.mu.Unlock()
	if info.IsNative() {
		return b.native[info.NativeToken.Denom][addr]
	}
	return b.tokens[info.Token.ContractAddr][addr]
}

// Transfer implements Ledger.
func (b *Bank) Transfer(from, to common.Address, a asset.Asset) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.tick("transfer"); err != nil {
		return err
	}
	return b.move(from, to, a)
}

// TransferFrom implements Ledger. Requires a sufficient allowance from
// owner to spender on the token contract.
func (b *Bank) TransferFrom(owner, spender, to common.Address, a asset.Asset) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.tick("transfer_from"); err != nil {
		return err
	}
	if a.Info.IsNative() {
		return &TransferError{Op: "transfer_from", Err: fmt.Errorf("native asset has no allowance mechanism")}
	}
	contract := a.Info.Token.ContractAddr
	allowance := b.allowances[contract][owner][spender]
	if allowance.Cmp(a.Amount) < 0 {
		return &TransferError{
			Op:  "transfer_from",
			Err: fmt.Errorf("allowance %s < %s on %s", allowance.String(), a.Amount.String(), contract.Hex()),
		}
	}
	if err := b.move(owner, to, a); err != nil {
		return err
	}
	b.allowances[contract][owner][spender] = allowance.Sub(a.Amount)
	return nil
}

// VerifyAttachedFunds implements Ledger. True when the current call
// attached exactly one coin matching the expected denom and amount from
// the expected sender.
func (b *Bank) VerifyAttachedFunds(from common.Address, expected asset.Asset) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !expected.Info.IsNative() {
		return false
	}
	if b.attachedFrom != from {
		return false
	}
	for _, coin := range b.attached {
		if coin.Info.Equal(expected.Info) && coin.Amount.Cmp(expected.Amount) == 0 {
			return true
		}
	}
	return false
}

// tick advances the fault injector. Must hold b.mu.
func (b *Bank) tick(op string) error {
	if b.failNext == 0 {
		return nil
	}
	b.failNext--
	if b.failNext == 0 {
		return &TransferError{Op: op, Err: fmt.Errorf("injected fault")}
	}
	return nil
}

// move debits from and credits to. Must hold b.mu.
func (b *Bank) move(from, to common.Address, a asset.Asset) error {
	if a.Info.IsNative() {
		denom := a.Info.NativeToken.Denom
		if b.native[denom] == nil {
			b.native[denom] = make(map[common.Address]asset.Uint128)
		}
		bal := b.native[denom][from]
		if bal.Cmp(a.Amount) < 0 {
			return &TransferError{
				Op:  "transfer",
				Err: fmt.Errorf("insufficient %s balance: have %s, need %s", denom, bal.String(), a.Amount.String()),
			}
		}
		b.native[denom][from] = bal.Sub(a.Amount)
		b.native[denom][to] = b.native[denom][to].Add(a.Amount)
		return nil
	}

	contract := a.Info.Token.ContractAddr
	if b.tokens[contract] == nil {
		b.tokens[contract] = make(map[common.Address]asset.Uint128)
	}
	bal := b.tokens[contract][from]
	if bal.Cmp(a.Amount) < 0 {
		return &TransferError{
			Op:  "transfer",
			Err: fmt.Errorf("insufficient token balance on %s: have %s, need %s", contract.Hex(), bal.String(), a.Amount.String()),
		}
	}
	b.tokens[contract][from] = bal.Sub(a.Amount)
	b.tokens[contract][to] = b.tokens[contract][to].Add(a.Amount)
	return nil
}

var _ Ledger = (*Bank)(nil)
