// Package rpc exposes the controller's in-process API over HTTP and
// WebSocket. Both surfaces are explicitly out of the execution core's scope
// (spec.md §1: "HTTP/JSON-RPC surface... is out of scope") and are kept here
// only at their contract boundary: thin adapters over Controller methods,
// never a full JSON-RPC implementation.
package rpc

import (
	"encoding/hex"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"

	"synnergy-network/core"
)

// Server is a thin chi.Router wrapping a *core.Controller's read/write API:
// push_transaction, get_account, get_table_rows (spec.md §6 in-process API
// made reachable over HTTP).
type Server struct {
	ctrl    *core.Controller
	logger  *log.Logger
	router  chi.Router
	history *StateHistory
}

// NewServer builds the chi router and registers the three routes.
func NewServer(ctrl *core.Controller, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.StandardLogger()
	}
	s := &Server{ctrl: ctrl, logger: logger, router: chi.NewRouter()}
	s.router.Post("/v1/chain/push_transaction", s.handlePushTransaction)
	s.router.Get("/v1/chain/get_account/{name}", s.handleGetAccount)
	s.router.Get("/v1/chain/get_table_rows/{code}/{scope}/{table}", s.handleGetTableRows)
	return s
}

// SetStateHistory wires a StateHistory hub into the server so every
// successfully committed push_transaction is published to its WebSocket
// clients (spec.md §1 Non-goal "state-history plugin", wired here only at
// its contract boundary as BroadcastAcceptedBlock documents).
func (s *Server) SetStateHistory(h *StateHistory) { s.history = h }

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.router.ServeHTTP(w, r) }

type pushTransactionRequest struct {
	PackedTx string `json:"packed_trx"` // hex-encoded packed transaction
}

func (s *Server) handlePushTransaction(w http.ResponseWriter, r *http.Request) {
	var req pushTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	packed, err := hex.DecodeString(req.PackedTx)
	if err != nil {
		http.Error(w, "invalid packed_trx hex", http.StatusBadRequest)
		return
	}
	trace := s.ctrl.PushTransaction(packed)
	s.logger.WithFields(log.Fields{"tx_id": trace.ID.String()}).Info("http push_transaction")
	if trace.Except == nil && s.history != nil {
		s.history.BroadcastAcceptedBlock(trace)
	}
	writeJSON(w, trace)
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	name, err := core.ParseName(chi.URLParam(r, "name"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	account, meta, ok := s.ctrl.GetAccount(name)
	if !ok {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, struct {
		Account  core.Account         `json:"account"`
		Metadata core.AccountMetadata `json:"metadata"`
	}{account, meta})
}

func (s *Server) handleGetTableRows(w http.ResponseWriter, r *http.Request) {
	code, err1 := core.ParseName(chi.URLParam(r, "code"))
	scope, err2 := core.ParseName(chi.URLParam(r, "scope"))
	table, err3 := core.ParseName(chi.URLParam(r, "table"))
	if err1 != nil || err2 != nil || err3 != nil {
		http.Error(w, "invalid name parameter", http.StatusBadRequest)
		return
	}
	rows, ok := s.ctrl.GetTableRows(code, scope, table)
	if !ok {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, rows)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
