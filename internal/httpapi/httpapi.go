// Package httpapi is the thin HTTP boundary over the stores and services.
// Schema validation happens in model; handlers only decode, delegate and map
// errors: ValidationError -> 400, ErrNotFound -> 404, ErrInvalidTransition ->
// 409, ErrUnknownProduct -> 404.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"growbase/internal/catalog"
	"growbase/internal/chat"
	"growbase/internal/ledger"
	"growbase/internal/model"
	"growbase/internal/sop"
	"growbase/internal/store"
)

const anonymousUser = "anonymous"

type Server struct {
	intakes *store.Store[*model.Intake]
	chats   *store.Store[*model.Chat]
	sops    *sop.Service
	ledger  *ledger.Ledger
	cat     *catalog.Catalog
	metrics http.Handler
}

func New(
	intakes *store.Store[*model.Intake],
	chats *store.Store[*model.Chat],
	sops *sop.Service,
	led *ledger.Ledger,
	cat *catalog.Catalog,
	metricsHandler http.Handler,
) *Server {
	return &Server{
		intakes: intakes,
		chats:   chats,
		sops:    sops,
		ledger:  led,
		cat:     cat,
		metrics: metricsHandler,
	}
}

func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /intake", s.createIntake)
	mux.HandleFunc("GET /intake/recent", s.listIntake)
	mux.HandleFunc("POST /chat", s.createChat)
	mux.HandleFunc("GET /chat/recent", s.listChat)
	mux.HandleFunc("POST /sops", s.createSop)
	mux.HandleFunc("GET /sops", s.listSops)
	mux.HandleFunc("POST /sops/{id}/submit", s.submitSop)
	mux.HandleFunc("GET /catalog", s.listCatalog)
	mux.HandleFunc("POST /purchases/verify", s.verifyPurchase)
	mux.HandleFunc("GET /entitlements", s.listEntitlements)
	mux.HandleFunc("GET /royalties", s.listRoyalties)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics)
	}
	return mux
}

func (s *Server) createIntake(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Plant     string `json:"plant"`
		Room      string `json:"room"`
		TargetPPM string `json:"targetPpm"`
		TargetPH  string `json:"targetPh"`
		Notes     string `json:"notes"`
		QueuedAt  string `json:"queuedAt"`
	}
	if !decode(w, r, &req) {
		return
	}
	rec := &model.Intake{
		Plant:     req.Plant,
		Room:      req.Room,
		TargetPPM: req.TargetPPM,
		TargetPH:  req.TargetPH,
		Notes:     req.Notes,
		QueuedAt:  req.QueuedAt,
	}
	if err := rec.Validate(); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, s.intakes.Append(rec))
}

func (s *Server) listIntake(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.intakes.List(parseLimit(r)))
}

func (s *Server) createChat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Message string `json:"message"`
	}
	if !decode(w, r, &req) {
		return
	}
	rec := &model.Chat{Message: req.Message}
	if err := rec.Validate(); err != nil {
		writeDomainError(w, err)
		return
	}
	rec.Response = chat.Respond(rec.Message)
	writeJSON(w, http.StatusCreated, s.chats.Append(rec))
}

func (s *Server) listChat(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.chats.List(parseLimit(r)))
}

func (s *Server) createSop(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name  string `json:"name"`
		Stage string `json:"stage"`
		Notes string `json:"notes"`
	}
	if !decode(w, r, &req) {
		return
	}
	doc, err := s.sops.Create(userID(r), req.Name, req.Stage, req.Notes)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

func (s *Server) listSops(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.sops.ListForOwner(userID(r), parseLimit(r)))
}

func (s *Server) submitSop(w http.ResponseWriter, r *http.Request) {
	doc, err := s.sops.Submit(r.PathValue("id"), userID(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) listCatalog(w http.ResponseWriter, r *http.Request) {
	owned := s.ledger.Owned(userID(r))
	type item struct {
		catalog.Listing
		Owned bool `json:"owned"`
	}
	// Initialized so an empty catalog encodes as [] rather than null.
	out := []item{}
	for _, l := range s.cat.Listings() {
		if !l.Active {
			continue
		}
		out = append(out, item{Listing: l, Owned: owned[l.ProductID]})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) verifyPurchase(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProductID     string `json:"productId"`
		TransactionID string `json:"transactionId"`
		NetRevenue    int64  `json:"netRevenue"`
	}
	if !decode(w, r, &req) {
		return
	}
	if req.ProductID == "" || req.TransactionID == "" {
		writeError(w, http.StatusBadRequest, "productId and transactionId are required")
		return
	}
	if req.NetRevenue < 0 {
		writeError(w, http.StatusBadRequest, "netRevenue must not be negative")
		return
	}
	res, err := s.ledger.VerifyPurchase(userID(r), req.ProductID, req.TransactionID, req.NetRevenue)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) listEntitlements(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ledger.ListEntitlements(userID(r), parseLimit(r)))
}

func (s *Server) listRoyalties(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ledger.ListRoyalties(r.URL.Query().Get("creatorId"), parseLimit(r)))
}

// parseLimit reads the untrusted limit query parameter. Absent or garbage
// input yields 0, which the stores replace with their default.
func parseLimit(r *http.Request) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0
	}
	return n
}

// userID reads the externally-trusted identity header. Blank means anonymous.
func userID(r *http.Request) string {
	if id := r.Header.Get("X-User-Id"); id != "" {
		return id
	}
	return anonymousUser
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "malformed JSON body")
		return false
	}
	return true
}

func writeDomainError(w http.ResponseWriter, err error) {
	var verr *model.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, verr.Error())
	case errors.Is(err, store.ErrNotFound), errors.Is(err, ledger.ErrUnknownProduct):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, sop.ErrInvalidTransition):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
