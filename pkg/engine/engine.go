// Package engine implements the order lifecycle state machine: submit,
// cancel, execute. Each operation runs to completion under a single lock,
// and every multi-step effect is all-or-nothing: a rejected ledger call
// leaves the order store and the escrow view exactly as they were.
package engine

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/escrowlabs/orderd/pkg/asset"
	"github.com/escrowlabs/orderd/pkg/ledger"
	"github.com/escrowlabs/orderd/pkg/order"
	"github.com/escrowlabs/orderd/pkg/util"
)

// Config is the engine's static configuration, fixed at construction.
type Config struct {
	// Self is the engine's own custody account on the ledger. All escrowed
	// assets sit in this account while orders are open.
	Self common.Address

	// FeeToken, when non-zero, denominates fees in that token contract
	// regardless of the offer asset. When zero, the fee shares the offer
	// asset's class.
	FeeToken common.Address

	// MinFeeAmount is the submission fee floor.
	MinFeeAmount asset.Uint128

	// FeeCollector receives forwarded fees. Zero address: the executor
	// keeps the fee.
	FeeCollector common.Address

	// Executors is the set of addresses authorized to execute open orders.
	Executors []common.Address
}

// Engine is the order lifecycle engine.
type Engine struct {
	mu sync.Mutex

	cfg       Config
	store     *order.Store
	ledger    ledger.Ledger
	fees      *FeeRouter
	executors map[common.Address]bool

	journal   Journal
	observers []Observer

	log   *zap.SugaredLogger
	clock util.Clock
}

// New builds an engine over the given store and ledger collaborator.
func New(cfg Config, store *order.Store, l ledger.Ledger, journal Journal, log *zap.SugaredLogger) *Engine {
	executors := make(map[common.Address]bool, len(cfg.Executors))
	for _, e := range cfg.Executors {
		executors[e] = true
	}
	return &Engine{
		cfg:       cfg,
		store:     store,
		ledger:    l,
		fees:      NewFeeRouter(l, cfg.Self, cfg.FeeCollector, log),
		executors: executors,
		journal:   journal,
		log:       log,
		clock:     util.RealClock{},
	}
}

// Config returns the engine's static configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// Store exposes the order store for query serving.
func (e *Engine) Store() *order.Store {
	return e.store
}

// Subscribe registers an observer for committed lifecycle events.
func (e *Engine) Subscribe(obs Observer) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.observers = append(e.observers, obs)
}

// feeAsset resolves the asset a fee of the given amount is denominated in,
// relative to the order's offer asset.
func (e *Engine) feeAsset(offer asset.Asset, fee asset.Uint128) asset.Asset {
	if e.cfg.FeeToken != (common.Address{}) {
		return asset.New(asset.TokenAsset(e.cfg.FeeToken), fee)
	}
	return asset.New(offer.Info, fee)
}

// SubmitOrder pulls offer.amount + fee into custody, allocates the next
// order id, and records the open order with its escrow hold. The submitter
// must have pre-authorized the token pulls (or attached the native funds)
// before the call.
func (e *Engine) SubmitOrder(submitter common.Address, offer, ask asset.Asset, fee asset.Uint128) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := offer.Validate(); err != nil {
		return 0, fmt.Errorf("%w: offer asset: %v", ErrInvalidOrder, err)
	}
	if err := ask.Validate(); err != nil {
		return 0, fmt.Errorf("%w: ask asset: %v", ErrInvalidOrder, err)
	}
	if offer.Amount.IsZero() {
		return 0, fmt.Errorf("%w: zero offer amount", ErrInvalidOrder)
	}
	if fee.Cmp(e.cfg.MinFeeAmount) < 0 {
		return 0, fmt.Errorf("%w: fee %s below minimum %s", ErrInvalidOrder, fee.String(), e.cfg.MinFeeAmount.String())
	}

	feeAst := e.feeAsset(offer, fee)
	pulled, err := e.pullEscrow(submitter, offer, feeAst)
	if err != nil {
		return 0, err
	}

	o := &order.Order{
		Submitter:  submitter,
		OfferAsset: offer,
		AskAsset:   ask,
		FeeAmount:  fee,
		Status:     order.StatusOpen,
		CreatedAt:  e.clock.Now().UnixMilli(),
		UpdatedAt:  e.clock.Now().UnixMilli(),
	}
	if err := e.store.Create(o, offer, feeAst); err != nil {
		// Undo the custody pull so a storage failure cannot strand funds.
		e.refund(submitter, pulled)
		return 0, fmt.Errorf("record order: %w", err)
	}

	e.log.Infow("order_submitted",
		"order_id", o.ID,
		"submitter", submitter.Hex(),
		"offer", offer.String(),
		"ask", ask.String(),
		"fee", fee.String(),
	)
	e.emit(Event{
		Type:      EventOrderSubmitted,
		OrderID:   o.ID,
		Submitter: submitter.Hex(),
		Offer:     offer,
		Ask:       ask,
		FeeAmount: fee,
		Timestamp: o.CreatedAt,
	})
	return o.ID, nil
}

// CancelOrder returns the escrowed offer asset and the full fee to the
// submitter and marks the order cancelled. Only the submitter may cancel,
// and only while the order is open.
func (e *Engine) CancelOrder(caller common.Address, id uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	o, err := e.store.Get(id)
	if err != nil {
		return err
	}
	if o == nil {
		return fmt.Errorf("%w: id %d", ErrOrderNotFound, id)
	}
	if o.Status != order.StatusOpen {
		return fmt.Errorf("%w: order %d is %s", ErrOrderNotCancellable, id, o.Status)
	}
	if o.Submitter != caller {
		return fmt.Errorf("%w: caller %s is not the submitter", ErrUnauthorized, caller.Hex())
	}

	esc, err := e.store.GetEscrow(id)
	if err != nil {
		return err
	}

	// Refund offer, then fee. If the fee refund is rejected the offer
	// refund is reversed so the operation nets to nothing.
	if err := e.ledger.Transfer(e.cfg.Self, o.Submitter, esc.Offer); err != nil {
		return err
	}
	if !esc.FeeAsset.Amount.IsZero() {
		if err := e.ledger.Transfer(e.cfg.Self, o.Submitter, esc.FeeAsset); err != nil {
			e.reverse(o.Submitter, []asset.Asset{esc.Offer})
			return err
		}
	}

	o.Status = order.StatusCancelled
	o.UpdatedAt = e.clock.Now().UnixMilli()
	if _, err := e.store.Finalize(o); err != nil {
		e.reverse(o.Submitter, []asset.Asset{esc.Offer, esc.FeeAsset})
		return fmt.Errorf("record cancel: %w", err)
	}

	e.log.Infow("order_cancelled",
		"order_id", id,
		"refunded_offer", esc.Offer.String(),
		"refunded_fee", esc.FeeAsset.String(),
	)
	e.emit(Event{
		Type:      EventOrderCancelled,
		OrderID:   id,
		Submitter: o.Submitter.Hex(),
		Offer:     o.OfferAsset,
		Ask:       o.AskAsset,
		FeeAmount: o.FeeAmount,
		Timestamp: o.UpdatedAt,
	})
	return nil
}

// ExecuteOrder settles an open order: the escrowed offer asset goes to the
// executor (who owes the submitter the ask asset as part of the same
// settlement), the fee is forwarded through the fee router, and the order
// is marked executed. Executor-only.
func (e *Engine) ExecuteOrder(caller common.Address, id uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	o, err := e.store.Get(id)
	if err != nil {
		return err
	}
	if o == nil {
		return fmt.Errorf("%w: id %d", ErrOrderNotFound, id)
	}
	if o.Status != order.StatusOpen {
		return fmt.Errorf("%w: order %d is %s", ErrOrderNotExecutable, id, o.Status)
	}
	if !e.executors[caller] {
		return fmt.Errorf("%w: %s is not a designated executor", ErrUnauthorized, caller.Hex())
	}

	esc, err := e.store.GetEscrow(id)
	if err != nil {
		return err
	}

	if err := e.ledger.Transfer(e.cfg.Self, caller, esc.Offer); err != nil {
		return err
	}
	if err := e.fees.Route(caller, esc.FeeAsset); err != nil {
		e.reverse(caller, []asset.Asset{esc.Offer})
		return err
	}

	o.Status = order.StatusExecuted
	o.UpdatedAt = e.clock.Now().UnixMilli()
	if _, err := e.store.Finalize(o); err != nil {
		e.reverse(caller, []asset.Asset{esc.Offer})
		e.reverse(e.fees.Recipient(caller), []asset.Asset{esc.FeeAsset})
		return fmt.Errorf("record execute: %w", err)
	}

	e.log.Infow("order_executed",
		"order_id", id,
		"executor", caller.Hex(),
		"released_offer", esc.Offer.String(),
		"fee", esc.FeeAsset.String(),
	)
	e.emit(Event{
		Type:      EventOrderExecuted,
		OrderID:   id,
		Submitter: o.Submitter.Hex(),
		Offer:     o.OfferAsset,
		Ask:       o.AskAsset,
		FeeAmount: o.FeeAmount,
		Executor:  caller.Hex(),
		Timestamp: o.UpdatedAt,
	})
	return nil
}

// pullEscrow moves offer + fee from the submitter into custody and returns
// the assets actually pulled via transfers (so a later failure can refund
// them). Attached native funds are verified before the pull.
func (e *Engine) pullEscrow(submitter common.Address, offer, feeAst asset.Asset) ([]asset.Asset, error) {
	separateFee := e.cfg.FeeToken != (common.Address{})
	var pulled []asset.Asset

	if offer.Info.IsNative() {
		expected := offer
		if !separateFee {
			expected.Amount = offer.Amount.Add(feeAst.Amount)
		}
		if !e.ledger.VerifyAttachedFunds(submitter, expected) {
			return nil, fmt.Errorf("%w: attached funds do not match %s", ErrInvalidOrder, expected.String())
		}
		if err := e.ledger.Transfer(submitter, e.cfg.Self, expected); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInsufficientFunds, err)
		}
		pulled = append(pulled, expected)
	} else {
		pull := offer
		if !separateFee {
			pull.Amount = offer.Amount.Add(feeAst.Amount)
		}
		if err := e.ledger.TransferFrom(submitter, e.cfg.Self, e.cfg.Self, pull); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInsufficientFunds, err)
		}
		pulled = append(pulled, pull)
	}

	if separateFee && !feeAst.Amount.IsZero() {
		if err := e.ledger.TransferFrom(submitter, e.cfg.Self, e.cfg.Self, feeAst); err != nil {
			e.refund(submitter, pulled)
			return nil, fmt.Errorf("%w: fee pull: %v", ErrInsufficientFunds, err)
		}
		pulled = append(pulled, feeAst)
	}
	return pulled, nil
}

// refund returns previously pulled assets to the submitter.
func (e *Engine) refund(to common.Address, assets []asset.Asset) {
	for _, a := range assets {
		if a.Amount.IsZero() {
			continue
		}
		if err := e.ledger.Transfer(e.cfg.Self, to, a); err != nil {
			e.log.Errorw("refund_failed", "to", to.Hex(), "asset", a.String(), "err", err)
		}
	}
}

// reverse pulls previously released assets back into custody after a
// later step failed.
func (e *Engine) reverse(from common.Address, assets []asset.Asset) {
	for _, a := range assets {
		if a.Amount.IsZero() {
			continue
		}
		if err := e.ledger.Transfer(from, e.cfg.Self, a); err != nil {
			e.log.Errorw("reversal_failed", "from", from.Hex(), "asset", a.String(), "err", err)
		}
	}
}

// emit journals the event and fans it out to observers. Called with the
// engine lock held, after the transition has committed.
func (e *Engine) emit(ev Event) {
	if e.journal != nil {
		if line, err := json.Marshal(ev); err == nil {
			e.journal.Append(string(line))
		}
	}
	for _, obs := range e.observers {
		obs(ev)
	}
}
