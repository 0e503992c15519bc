package order

import (
	"math"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/escrowlabs/orderd/pkg/asset"
)

var (
	alice = common.HexToAddress("0xAA00000000000000000000000000000000000000")
	bob   = common.HexToAddress("0xBB00000000000000000000000000000000000000")
)

// newTestStore opens a store in a per-test temp dir and closes it on cleanup.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
	})
	return s
}

func nativeAsset(denom, amount string) asset.Asset {
	return asset.New(asset.NativeAsset(denom), asset.MustUint128(amount))
}

func submitOrder(t *testing.T, s *Store, submitter common.Address, offer, fee string) *Order {
	t.Helper()
	o := &Order{
		Submitter:  submitter,
		OfferAsset: nativeAsset("uusd", offer),
		AskAsset:   nativeAsset("uluna", "1"),
		FeeAmount:  asset.MustUint128(fee),
		Status:     StatusOpen,
		CreatedAt:  100,
		UpdatedAt:  100,
	}
	if err := s.Create(o, o.OfferAsset, nativeAsset("uusd", fee)); err != nil {
		t.Fatalf("create order: %v", err)
	}
	return o
}

func TestStoreCreateAssignsMonotoneIDs(t *testing.T) {
	s := newTestStore(t)

	first := submitOrder(t, s, alice, "1000", "5")
	second := submitOrder(t, s, alice, "2000", "5")

	if first.ID != 1 {
		t.Errorf("first id = %d, want 1", first.ID)
	}
	if second.ID != 2 {
		t.Errorf("second id = %d, want 2", second.ID)
	}

	last, err := s.LastOrderID()
	if err != nil {
		t.Fatalf("last order id: %v", err)
	}
	if last != 2 {
		t.Errorf("last order id = %d, want 2", last)
	}
}

func TestStoreIDsSurviveReopen(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStore(dir)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	o := &Order{Submitter: alice, OfferAsset: nativeAsset("uusd", "10"), AskAsset: nativeAsset("uluna", "1"), FeeAmount: asset.Zero(), Status: StatusOpen}
	if err := s.Create(o, o.OfferAsset, nativeAsset("uusd", "0")); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	s, err = NewStore(dir)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	defer s.Close()

	o2 := &Order{Submitter: alice, OfferAsset: nativeAsset("uusd", "10"), AskAsset: nativeAsset("uluna", "1"), FeeAmount: asset.Zero(), Status: StatusOpen}
	if err := s.Create(o2, o2.OfferAsset, nativeAsset("uusd", "0")); err != nil {
		t.Fatalf("create after reopen: %v", err)
	}
	if o2.ID != 2 {
		t.Errorf("id after reopen = %d, want 2 (no reuse)", o2.ID)
	}
}

func TestStoreGetMissing(t *testing.T) {
	s := newTestStore(t)
	o, err := s.Get(42)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if o != nil {
		t.Errorf("missing order returned %+v", o)
	}
}

func TestStoreFinalizeReleasesEscrowOnce(t *testing.T) {
	s := newTestStore(t)
	o := submitOrder(t, s, alice, "1000", "5")

	esc, err := s.GetEscrow(o.ID)
	if err != nil {
		t.Fatalf("escrow: %v", err)
	}
	if esc.Offer.Amount.String() != "1000" || esc.FeeAsset.Amount.String() != "5" {
		t.Errorf("escrow = %s offer, %s fee", esc.Offer.Amount.String(), esc.FeeAsset.Amount.String())
	}

	o.Status = StatusCancelled
	released, err := s.Finalize(o)
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if released.Offer.Amount.String() != "1000" {
		t.Errorf("released offer = %s", released.Offer.Amount.String())
	}

	// Record survives with its terminal status, the hold does not.
	got, err := s.Get(o.ID)
	if err != nil || got == nil {
		t.Fatalf("get after finalize: %v", err)
	}
	if got.Status != StatusCancelled {
		t.Errorf("status = %s, want cancelled", got.Status)
	}
	if _, err := s.GetEscrow(o.ID); err != ErrNoEscrowRecord {
		t.Errorf("second escrow read: err = %v, want ErrNoEscrowRecord", err)
	}
	if _, err := s.Finalize(o); err != ErrNoEscrowRecord {
		t.Errorf("second finalize: err = %v, want ErrNoEscrowRecord", err)
	}
}

func TestStoreEscrowTotalPerAssetClass(t *testing.T) {
	s := newTestStore(t)
	submitOrder(t, s, alice, "1000", "5")
	submitOrder(t, s, bob, "200", "0")

	total, err := s.EscrowTotal(asset.NativeAsset("uusd"))
	if err != nil {
		t.Fatalf("escrow total: %v", err)
	}
	if total.String() != "1205" {
		t.Errorf("uusd total = %s, want 1205", total.String())
	}

	other, err := s.EscrowTotal(asset.NativeAsset("uluna"))
	if err != nil {
		t.Fatalf("escrow total: %v", err)
	}
	if !other.IsZero() {
		t.Errorf("uluna total = %s, want 0", other.String())
	}
}

func TestStoreListPagination(t *testing.T) {
	s := newTestStore(t)
	for i := 0; i < 5; i++ {
		submitter := alice
		if i%2 == 1 {
			submitter = bob
		}
		submitOrder(t, s, submitter, "100", "0")
	}

	// Default: descending, newest first
	orders, err := s.List(nil, nil, true)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(orders) != 5 {
		t.Fatalf("len = %d, want 5", len(orders))
	}
	if orders[0].ID != 5 || orders[4].ID != 1 {
		t.Errorf("desc ids = %d..%d, want 5..1", orders[0].ID, orders[4].ID)
	}

	// Ascending after id 2, limited
	start := uint64(2)
	limit := uint32(2)
	orders, err = s.List(&start, &limit, false)
	if err != nil {
		t.Fatalf("list asc: %v", err)
	}
	if len(orders) != 2 || orders[0].ID != 3 || orders[1].ID != 4 {
		t.Errorf("asc page after 2 = %v", ids(orders))
	}

	// Descending before id 3
	orders, err = s.List(&start, nil, true)
	if err != nil {
		t.Fatalf("list desc: %v", err)
	}
	if len(orders) != 1 || orders[0].ID != 1 {
		t.Errorf("desc page before 2 = %v", ids(orders))
	}

	// Per-user index
	orders, err = s.ListByUser(bob, nil, nil, false)
	if err != nil {
		t.Fatalf("list by user: %v", err)
	}
	if len(orders) != 2 || orders[0].ID != 2 || orders[1].ID != 4 {
		t.Errorf("bob's orders = %v", ids(orders))
	}
}

func TestStoreListAfterMaxIDIsEmpty(t *testing.T) {
	s := newTestStore(t)
	submitOrder(t, s, alice, "100", "0")

	start := uint64(math.MaxUint64)
	orders, err := s.List(&start, nil, false)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(orders) != 0 {
		t.Errorf("page after max id = %v, want empty", ids(orders))
	}
}

func TestStoreListClampsLimit(t *testing.T) {
	s := newTestStore(t)
	for i := 0; i < MaxQueryLimit+5; i++ {
		submitOrder(t, s, alice, "1", "0")
	}

	huge := uint32(1000)
	orders, err := s.List(nil, &huge, true)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(orders) != MaxQueryLimit {
		t.Errorf("len = %d, want clamp to %d", len(orders), MaxQueryLimit)
	}

	orders, err = s.List(nil, nil, true)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(orders) != DefaultQueryLimit {
		t.Errorf("default len = %d, want %d", len(orders), DefaultQueryLimit)
	}
}

func ids(orders []*Order) []uint64 {
	out := make([]uint64, len(orders))
	for i, o := range orders {
		out[i] = o.ID
	}
	return out
}
