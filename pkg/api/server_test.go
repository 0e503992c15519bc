package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/escrowlabs/orderd/pkg/asset"
	"github.com/escrowlabs/orderd/pkg/engine"
	"github.com/escrowlabs/orderd/pkg/ledger"
	"github.com/escrowlabs/orderd/pkg/msg"
	"github.com/escrowlabs/orderd/pkg/order"
)

var (
	testSelf     = common.HexToAddress("0x0000000000000000000000000000000000000e5c")
	testAlice    = common.HexToAddress("0xAA00000000000000000000000000000000000000")
	testExecutor = common.HexToAddress("0xEE00000000000000000000000000000000000000")
)

func newTestServer(t *testing.T) (*Server, *ledger.Bank) {
	t.Helper()
	store, err := order.NewStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	bank := ledger.NewBank()
	eng := engine.New(engine.Config{
		Self:         testSelf,
		MinFeeAmount: asset.NewUint128(5),
		Executors:    []common.Address{testExecutor},
	}, store, bank, nil, zap.NewNop().Sugar())

	return NewServer(eng, []string{"*"}, zap.NewNop().Sugar()), bank
}

func postTx(t *testing.T, s *Server, sender common.Address, tx string) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(TxRequest{Sender: sender.Hex(), Tx: json.RawMessage(tx)})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/tx", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func seedAndSubmit(t *testing.T, s *Server, bank *ledger.Bank, offer, fee string) uint64 {
	t.Helper()
	total := asset.MustUint128(offer).Add(asset.MustUint128(fee))
	bank.MintNative(testAlice, "uusd", total)
	bank.AttachFunds(testAlice, asset.New(asset.NativeAsset("uusd"), total))

	tx := fmt.Sprintf(`{"submit_order":{"offer_asset":{"amount":%q,"info":{"native_token":{"denom":"uusd"}}},"ask_asset":{"amount":"9","info":{"native_token":{"denom":"uluna"}}},"fee_amount":%q}}`, offer, fee)
	rec := postTx(t, s, testAlice, tx)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res SubmitOrderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	return res.OrderID
}

func TestTxSubmitAndQueryOrder(t *testing.T) {
	s, bank := newTestServer(t)
	id := seedAndSubmit(t, s, bank, "1000", "5")
	require.Equal(t, uint64(1), id)

	rec := get(t, s, fmt.Sprintf("/api/v1/orders/%d", id))
	require.Equal(t, http.StatusOK, rec.Code)

	var res msg.OrderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.Equal(t, id, res.OrderID)
	require.Equal(t, testAlice.Hex(), res.Submitter)
	require.Equal(t, "1000", res.OfferAsset.Amount.String())
	require.Equal(t, "open", res.Status)
}

func TestTxRejectsBadSender(t *testing.T) {
	s, _ := newTestServer(t)
	body := []byte(`{"sender":"not-an-address","tx":{"cancel_order":{"order_id":1}}}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/tx", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTxRejectsUnknownVariant(t *testing.T) {
	s, _ := newTestServer(t)
	rec := postTx(t, s, testAlice, `{"approve_order":{"order_id":1}}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTxErrorStatusMapping(t *testing.T) {
	s, bank := newTestServer(t)
	id := seedAndSubmit(t, s, bank, "1000", "5")

	// Unknown order id
	rec := postTx(t, s, testAlice, `{"cancel_order":{"order_id":99}}`)
	require.Equal(t, http.StatusNotFound, rec.Code)

	// Non-executor execute
	rec = postTx(t, s, testAlice, fmt.Sprintf(`{"execute_order":{"order_id":%d}}`, id))
	require.Equal(t, http.StatusForbidden, rec.Code)

	// Execute, then cancel the terminal order
	rec = postTx(t, s, testExecutor, fmt.Sprintf(`{"execute_order":{"order_id":%d}}`, id))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = postTx(t, s, testAlice, fmt.Sprintf(`{"cancel_order":{"order_id":%d}}`, id))
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestQueryOrdersPagination(t *testing.T) {
	s, bank := newTestServer(t)
	for i := 0; i < 3; i++ {
		seedAndSubmit(t, s, bank, "100", "5")
	}

	rec := get(t, s, "/api/v1/orders?order=asc&limit=2")
	require.Equal(t, http.StatusOK, rec.Code)
	var res msg.OrdersResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.Len(t, res.Orders, 2)
	require.Equal(t, uint64(1), res.Orders[0].OrderID)

	// Default ordering is descending.
	rec = get(t, s, "/api/v1/orders")
	res = msg.OrdersResponse{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.Equal(t, uint64(3), res.Orders[0].OrderID)

	rec = get(t, s, "/api/v1/orders?bidder="+testAlice.Hex())
	res = msg.OrdersResponse{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.Len(t, res.Orders, 3)
}

func TestQueryConfigAndLastID(t *testing.T) {
	s, bank := newTestServer(t)
	seedAndSubmit(t, s, bank, "100", "5")

	rec := get(t, s, "/api/v1/config")
	require.Equal(t, http.StatusOK, rec.Code)
	var cfg msg.ConfigResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cfg))
	require.Equal(t, "5", cfg.MinFeeAmount.String())
	require.Equal(t, []string{testExecutor.Hex()}, cfg.Executors)

	rec = get(t, s, "/api/v1/orders/last-id")
	var last msg.LastOrderIDResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &last))
	require.Equal(t, uint64(1), last.LastOrderID)
}
