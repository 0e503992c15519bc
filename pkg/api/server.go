package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/escrowlabs/orderd/pkg/engine"
	"github.com/escrowlabs/orderd/pkg/ledger"
	"github.com/escrowlabs/orderd/pkg/msg"
	"github.com/escrowlabs/orderd/pkg/order"
)

// channelOrders is the WebSocket channel lifecycle events broadcast on.
const channelOrders = "orders"

// Server exposes the engine over REST and WebSocket.
type Server struct {
	engine  *engine.Engine
	router  *mux.Router
	hub     *Hub
	origins []string
	log     *zap.SugaredLogger
}

// NewServer creates an API server and subscribes it to engine events.
func NewServer(eng *engine.Engine, allowedOrigins []string, log *zap.SugaredLogger) *Server {
	s := &Server{
		engine:  eng,
		router:  mux.NewRouter(),
		hub:     NewHub(),
		origins: allowedOrigins,
		log:     log,
	}

	eng.Subscribe(func(ev engine.Event) {
		s.hub.BroadcastToChannel(channelOrders, WSEvent{Channel: channelOrders, Event: ev})
	})

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api/v1").Subrouter()

	// Transaction dispatch
	api.HandleFunc("/tx", s.handleTx).Methods("POST")

	// Queries
	api.HandleFunc("/config", s.handleGetConfig).Methods("GET")
	api.HandleFunc("/orders/last-id", s.handleGetLastOrderID).Methods("GET")
	api.HandleFunc("/orders/{id:[0-9]+}", s.handleGetOrder).Methods("GET")
	api.HandleFunc("/orders", s.handleGetOrders).Methods("GET")

	// WebSocket endpoint
	s.router.HandleFunc("/ws", s.handleWebSocket)

	// Health check
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// Start runs the hub and serves HTTP on addr. Blocks.
func (s *Server) Start(addr string) error {
	go s.hub.Run()

	c := cors.New(cors.Options{
		AllowedOrigins:   s.origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})

	s.log.Infow("api_listening", "addr", addr)
	return http.ListenAndServe(addr, c.Handler(s.router))
}

// handleTx parses the tagged-union transaction and dispatches it to the
// engine as the declared sender.
func (s *Server) handleTx(w http.ResponseWriter, r *http.Request) {
	var req TxRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if !common.IsHexAddress(req.Sender) {
		respondError(w, http.StatusBadRequest, "invalid_request", "sender is not a valid address")
		return
	}
	sender := common.HexToAddress(req.Sender)

	tx, err := msg.ParseTx(req.Tx)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	switch {
	case tx.Submit != nil:
		id, err := s.engine.SubmitOrder(sender, tx.Submit.OfferAsset, tx.Submit.AskAsset, tx.Submit.FeeAmount)
		if err != nil {
			s.respondEngineError(w, err)
			return
		}
		respondJSON(w, SubmitOrderResponse{OrderID: id})

	case tx.Cancel != nil:
		if err := s.engine.CancelOrder(sender, tx.Cancel.OrderID); err != nil {
			s.respondEngineError(w, err)
			return
		}
		respondJSON(w, AckResponse{Status: "ok", OrderID: tx.Cancel.OrderID})

	case tx.Execute != nil:
		if err := s.engine.ExecuteOrder(sender, tx.Execute.OrderID); err != nil {
			s.respondEngineError(w, err)
			return
		}
		respondJSON(w, AckResponse{Status: "ok", OrderID: tx.Execute.OrderID})
	}
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	cfg := s.engine.Config()

	executors := make([]string, len(cfg.Executors))
	for i, e := range cfg.Executors {
		executors[i] = e.Hex()
	}

	respondJSON(w, msg.ConfigResponse{
		FeeToken:     cfg.FeeToken.Hex(),
		MinFeeAmount: cfg.MinFeeAmount,
		FeeCollector: cfg.FeeCollector.Hex(),
		Executors:    executors,
	})
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "order id must be a 64-bit unsigned integer")
		return
	}

	o, err := s.engine.Store().Get(id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}
	if o == nil {
		respondError(w, http.StatusNotFound, "order_not_found", "")
		return
	}
	respondJSON(w, orderResponse(o))
}

func (s *Server) handleGetOrders(w http.ResponseWriter, r *http.Request) {
	q := msg.QueryOrders{}

	if v := r.URL.Query().Get("bidder"); v != "" {
		if !common.IsHexAddress(v) {
			respondError(w, http.StatusBadRequest, "invalid_request", "bidder is not a valid address")
			return
		}
		q.BidderAddr = &v
	}
	if v := r.URL.Query().Get("start_after"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid_request", "start_after must be a 64-bit unsigned integer")
			return
		}
		q.StartAfter = &n
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid_request", "limit must be an unsigned integer")
			return
		}
		l := uint32(n)
		q.Limit = &l
	}
	if v := r.URL.Query().Get("order"); v != "" {
		ob := msg.OrderBy(v)
		if ob != msg.OrderAsc && ob != msg.OrderDesc {
			respondError(w, http.StatusBadRequest, "invalid_request", "order must be asc or desc")
			return
		}
		q.OrderBy = &ob
	}

	var (
		orders []*order.Order
		err    error
	)
	if q.BidderAddr != nil {
		orders, err = s.engine.Store().ListByUser(common.HexToAddress(*q.BidderAddr), q.StartAfter, q.Limit, q.Desc())
	} else {
		orders, err = s.engine.Store().List(q.StartAfter, q.Limit, q.Desc())
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}

	res := msg.OrdersResponse{Orders: make([]msg.OrderResponse, len(orders))}
	for i, o := range orders {
		res.Orders[i] = orderResponse(o)
	}
	respondJSON(w, res)
}

func (s *Server) handleGetLastOrderID(w http.ResponseWriter, r *http.Request) {
	id, err := s.engine.Store().LastOrderID()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}
	respondJSON(w, msg.LastOrderIDResponse{LastOrderID: id})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]string{"status": "ok"})
}

// respondEngineError maps the lifecycle error taxonomy onto HTTP statuses.
func (s *Server) respondEngineError(w http.ResponseWriter, err error) {
	var transferErr *ledger.TransferError

	switch {
	case errors.Is(err, engine.ErrInvalidOrder):
		respondError(w, http.StatusBadRequest, "invalid_order", err.Error())
	case errors.Is(err, engine.ErrInsufficientFunds):
		respondError(w, http.StatusBadRequest, "insufficient_funds", err.Error())
	case errors.Is(err, engine.ErrOrderNotFound):
		respondError(w, http.StatusNotFound, "order_not_found", err.Error())
	case errors.Is(err, engine.ErrOrderNotCancellable):
		respondError(w, http.StatusConflict, "order_not_cancellable", err.Error())
	case errors.Is(err, engine.ErrOrderNotExecutable):
		respondError(w, http.StatusConflict, "order_not_executable", err.Error())
	case errors.Is(err, engine.ErrUnauthorized):
		respondError(w, http.StatusForbidden, "unauthorized", err.Error())
	case errors.Is(err, engine.ErrNoEscrowRecord):
		respondError(w, http.StatusInternalServerError, "no_escrow_record", err.Error())
	case errors.As(err, &transferErr):
		respondError(w, http.StatusBadGateway, "transfer_error", err.Error())
	default:
		s.log.Errorw("tx_failed", "err", err)
		respondError(w, http.StatusInternalServerError, "internal", err.Error())
	}
}

func orderResponse(o *order.Order) msg.OrderResponse {
	return msg.OrderResponse{
		OrderID:    o.ID,
		Submitter:  o.Submitter.Hex(),
		OfferAsset: o.OfferAsset,
		AskAsset:   o.AskAsset,
		FeeAmount:  o.FeeAmount,
		Status:     o.Status.String(),
		CreatedAt:  o.CreatedAt,
		UpdatedAt:  o.UpdatedAt,
	}
}

func respondJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, kind string, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{Error: kind, Message: message})
}
