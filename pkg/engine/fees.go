package engine

import (
	"github.com/escrowlabs/orderd/pkg/asset"
	"github.com/escrowlabs/orderd/pkg/ledger"
	"github.com/ethereum/go-ethereum/common"

	"go.uber.org/zap"
)

// FeeRouter forwards the fee held with an order to the configured
// recipient on execution. A zero fee is a no-op; a rejected forward aborts
// the surrounding operation.
type FeeRouter struct {
	ledger    ledger.Ledger
	self      common.Address // engine custody account
	collector common.Address // zero address: fee goes to the executor
	log       *zap.SugaredLogger
}

// NewFeeRouter builds a router paying out of the engine's custody account.
func NewFeeRouter(l ledger.Ledger, self, collector common.Address, log *zap.SugaredLogger) *FeeRouter {
	return &FeeRouter{ledger: l, self: self, collector: collector, log: log}
}

// Recipient resolves where a fee goes for a given executor.
func (fr *FeeRouter) Recipient(executor common.Address) common.Address {
	if fr.collector == (common.Address{}) {
		return executor
	}
	return fr.collector
}

// Route forwards feeAsset to the resolved recipient. Returns nil without
// touching the ledger when the amount is zero.
func (fr *FeeRouter) Route(executor common.Address, feeAsset asset.Asset) error {
	if feeAsset.Amount.IsZero() {
		return nil
	}
	to := fr.Recipient(executor)
	if err := fr.ledger.Transfer(fr.self, to, feeAsset); err != nil {
		return err
	}
	fr.log.Infow("fee_forwarded", "recipient", to.Hex(), "fee", feeAsset.String())
	return nil
}
