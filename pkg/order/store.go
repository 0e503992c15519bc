package order

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/cockroachdb/pebble"
	"github.com/ethereum/go-ethereum/common"

	"github.com/escrowlabs/orderd/pkg/asset"
)

// ErrNoEscrowRecord is returned when a release targets an order with no
// active custody hold. Unreachable while the store and its escrow view
// agree; it exists to surface divergence instead of silently minting funds.
var ErrNoEscrowRecord = errors.New("no escrow record for order")

// Pagination limits for order listings.
const (
	DefaultQueryLimit = 10
	MaxQueryLimit     = 30
)

// Store is the pebble-backed order store. It owns all order records, the
// per-user index, the escrow entries, and the id counter. Every mutation
// commits as a single batch so the escrow view can never drift from the
// order records.
type Store struct {
	db *pebble.DB
}

// NewStore opens (or creates) the pebble database at path.
func NewStore(path string) (*Store, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open pebble db at %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// LastOrderID returns the most recently allocated order id, 0 if none.
func (s *Store) LastOrderID() (uint64, error) {
	data, closer, err := s.db.Get(lastIDKey())
	if err == pebble.ErrNotFound {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get last order id: %w", err)
	}
	defer closer.Close()

	var id uint64
	if err := json.Unmarshal(data, &id); err != nil {
		return 0, fmt.Errorf("unmarshal last order id: %w", err)
	}
	return id, nil
}

// Create allocates the next order id, assigns it to o, and commits the
// order record, the user index entry, the escrow hold, and the advanced
// counter in one batch. Ids are monotone and never reused, even across
// store reopens.
func (s *Store) Create(o *Order, offer asset.Asset, feeAsset asset.Asset) error {
	last, err := s.LastOrderID()
	if err != nil {
		return err
	}
	o.ID = last + 1

	esc := Escrow{OrderID: o.ID, Offer: offer, FeeAsset: feeAsset}

	batch := s.db.NewBatch()
	defer batch.Close()

	if err := batchSetJSON(batch, orderKey(o.ID), o); err != nil {
		return err
	}
	if err := batchSetJSON(batch, userOrderKey(o.Submitter, o.ID), o.ID); err != nil {
		return err
	}
	if err := batchSetJSON(batch, escrowKey(o.ID), &esc); err != nil {
		return err
	}
	if err := batchSetJSON(batch, lastIDKey(), o.ID); err != nil {
		return err
	}

	if err := batch.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("commit order %d: %w", o.ID, err)
	}
	return nil
}

// Get loads an order by id. Returns nil if the order does not exist.
func (s *Store) Get(id uint64) (*Order, error) {
	data, closer, err := s.db.Get(orderKey(id))
	if err == pebble.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get order %d: %w", id, err)
	}
	defer closer.Close()

	var o Order
	if err := json.Unmarshal(data, &o); err != nil {
		return nil, fmt.Errorf("unmarshal order %d: %w", id, err)
	}
	return &o, nil
}

// GetEscrow loads the active escrow entry for an order.
// Returns ErrNoEscrowRecord if there is no hold.
func (s *Store) GetEscrow(id uint64) (*Escrow, error) {
	data, closer, err := s.db.Get(escrowKey(id))
	if err == pebble.ErrNotFound {
		return nil, ErrNoEscrowRecord
	}
	if err != nil {
		return nil, fmt.Errorf("get escrow %d: %w", id, err)
	}
	defer closer.Close()

	var esc Escrow
	if err := json.Unmarshal(data, &esc); err != nil {
		return nil, fmt.Errorf("unmarshal escrow %d: %w", id, err)
	}
	return &esc, nil
}

// Finalize transitions an order out of open: it writes the updated record
// and deletes the escrow hold in one batch, returning the released entry.
// Fails with ErrNoEscrowRecord if no hold is active, leaving the order
// untouched.
func (s *Store) Finalize(o *Order) (*Escrow, error) {
	esc, err := s.GetEscrow(o.ID)
	if err != nil {
		return nil, err
	}

	batch := s.db.NewBatch()
	defer batch.Close()

	if err := batchSetJSON(batch, orderKey(o.ID), o); err != nil {
		return nil, err
	}
	if err := batch.Delete(escrowKey(o.ID), nil); err != nil {
		return nil, fmt.Errorf("delete escrow %d: %w", o.ID, err)
	}

	if err := batch.Commit(pebble.Sync); err != nil {
		return nil, fmt.Errorf("commit finalize %d: %w", o.ID, err)
	}
	return esc, nil
}

// List returns orders paginated by id. start_after is exclusive; desc
// walks ids downward (the default ordering for order history queries).
func (s *Store) List(startAfter *uint64, limit *uint32, desc bool) ([]*Order, error) {
	ids, err := s.scanIDs(orderPrefix(), startAfter, limit, desc)
	if err != nil {
		return nil, err
	}
	return s.loadAll(ids)
}

// ListByUser returns a single user's orders with the same pagination rules.
func (s *Store) ListByUser(addr common.Address, startAfter *uint64, limit *uint32, desc bool) ([]*Order, error) {
	ids, err := s.scanIDs(userOrderPrefix(addr), startAfter, limit, desc)
	if err != nil {
		return nil, err
	}
	return s.loadAll(ids)
}

// EscrowTotal sums offer amount + fee amount over all active holds in the
// given asset class. The custody-conservation check in the tests leans on
// this matching the sum over open orders exactly.
func (s *Store) EscrowTotal(info asset.AssetInfo) (asset.Uint128, error) {
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: escrowPrefix(),
		UpperBound: keyUpperBound(escrowPrefix()),
	})
	if err != nil {
		return asset.Uint128{}, fmt.Errorf("escrow iter: %w", err)
	}
	defer iter.Close()

	total := asset.Zero()
	for iter.First(); iter.Valid(); iter.Next() {
		var esc Escrow
		if err := json.Unmarshal(iter.Value(), &esc); err != nil {
			return asset.Uint128{}, fmt.Errorf("unmarshal escrow at %q: %w", iter.Key(), err)
		}
		if esc.Offer.Info.Equal(info) {
			total = total.Add(esc.Offer.Amount)
		}
		if esc.FeeAsset.Info.Equal(info) {
			total = total.Add(esc.FeeAsset.Amount)
		}
	}
	return total, nil
}

// scanIDs walks a prefix range and collects order ids per the pagination
// rules: start_after exclusive, limit clamped to MaxQueryLimit.
func (s *Store) scanIDs(prefix []byte, startAfter *uint64, limit *uint32, desc bool) ([]uint64, error) {
	n := uint32(DefaultQueryLimit)
	if limit != nil {
		n = *limit
		if n > MaxQueryLimit {
			n = MaxQueryLimit
		}
	}

	lower := prefix
	upper := keyUpperBound(prefix)
	if startAfter != nil {
		// exclusive bound on the padded id portion of the key
		if desc {
			upper = append([]byte{}, prefix...)
			upper = append(upper, []byte(fmt.Sprintf("%020d", *startAfter))...)
		} else {
			if *startAfter == math.MaxUint64 {
				return nil, nil
			}
			lower = append([]byte{}, prefix...)
			lower = append(lower, []byte(fmt.Sprintf("%020d", *startAfter+1))...)
		}
	}

	iter, err := s.db.NewIter(&pebble.IterOptions{LowerBound: lower, UpperBound: upper})
	if err != nil {
		return nil, fmt.Errorf("order iter: %w", err)
	}
	defer iter.Close()

	var ids []uint64
	if desc {
		for ok := iter.Last(); ok && uint32(len(ids)) < n; ok = iter.Prev() {
			id, err := idFromKey(iter.Key())
			if err != nil {
				return nil, err
			}
			ids = append(ids, id)
		}
	} else {
		for ok := iter.First(); ok && uint32(len(ids)) < n; ok = iter.Next() {
			id, err := idFromKey(iter.Key())
			if err != nil {
				return nil, err
			}
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (s *Store) loadAll(ids []uint64) ([]*Order, error) {
	orders := make([]*Order, 0, len(ids))
	for _, id := range ids {
		o, err := s.Get(id)
		if err != nil {
			return nil, err
		}
		if o == nil {
			return nil, fmt.Errorf("index points at missing order %d", id)
		}
		orders = append(orders, o)
	}
	return orders, nil
}

func batchSetJSON(batch *pebble.Batch, key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal for key %q: %w", key, err)
	}
	if err := batch.Set(key, data, nil); err != nil {
		return fmt.Errorf("batch set %q: %w", key, err)
	}
	return nil
}
