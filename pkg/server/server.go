package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/voidshard/tillcounter/pkg/api"
	"github.com/voidshard/tillcounter/pkg/domain"
	"github.com/voidshard/tillcounter/pkg/ledger"
	"github.com/voidshard/tillcounter/pkg/query"
)

const eventSnapshot domain.EventKind = "snapshot"

// Register is the ledger surface the server exposes.
type Register interface {
	Open(context.Context, decimal.Decimal) (domain.RegisterStatus, error)
	Close(context.Context) (domain.RegisterStatus, error)
	Record(context.Context, domain.TransactionInput) (*domain.Transaction, error)
	Query(query.Criteria, int, int) query.Page[*domain.Transaction]
	Get(int64) (*domain.Transaction, error)
	Status() domain.RegisterStatus
	Subscribe(func(domain.Event)) func()
}

var _ Register = &ledger.Ledger{}

// Server handles HTTP requests against one register.
type Server struct {
	reg      Register
	hub      *Hub
	log      zerolog.Logger
	router   *mux.Router
	upgrader websocket.Upgrader
	http     *http.Server
	cancel   func()
	origins  map[string]bool
}

// NewServer serves reg on addr. Browsers may only call the API and open
// the event feed from the given origins ("*" allows any) or from the
// server's own host.
func NewServer(reg Register, addr string, log zerolog.Logger, origins ...string) *Server {
	s := &Server{
		reg:     reg,
		hub:     NewHub(log),
		log:     log,
		origins: map[string]bool{},
	}
	for _, o := range origins {
		s.origins[strings.TrimRight(o, "/")] = true
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.allowOrigin,
	}

	r := mux.NewRouter()
	r.Use(s.requestID, s.recoverer, s.cors)

	r.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	r.HandleFunc("/open", s.handleOpen).Methods(http.MethodPost)
	r.HandleFunc("/close", s.handleClose).Methods(http.MethodPost)
	r.HandleFunc("/transactions", s.handleListTransactions).Methods(http.MethodGet)
	r.HandleFunc("/transactions", s.handleRecord).Methods(http.MethodPost)
	r.HandleFunc("/transactions/{id:[0-9]+}", s.handleGetTransaction).Methods(http.MethodGet)
	r.HandleFunc("/ws", s.handleWebSocket)
	r.Methods(http.MethodOptions).HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	s.router = r
	s.http = &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.hub.Start()
	s.cancel = reg.Subscribe(s.hub.Publish)

	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.http.Addr).Msg("HTTP server listening")
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.cancel()
	err := s.http.Shutdown(ctx)
	s.hub.Stop()
	return err
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.reg.Status())
}

func (s *Server) handleOpen(w http.ResponseWriter, r *http.Request) {
	req := &api.OpenRequest{}
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		s.writeError(w, r, fmt.Errorf("%w: %v", ledger.ErrInvalidAmount, err))
		return
	}

	st, err := s.reg.Open(r.Context(), req.Amount)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleClose(w http.ResponseWriter, r *http.Request) {
	st, err := s.reg.Close(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleRecord(w http.ResponseWriter, r *http.Request) {
	in := domain.TransactionInput{}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		s.writeError(w, r, &ledger.ValidationError{Field: "body", Reason: err.Error()})
		return
	}
	if t, err := domain.ParseType(string(in.Type)); err == nil {
		in.Type = t
	}
	if c, err := domain.ParseCategory(string(in.Category)); err == nil {
		in.Category = c
	}
	if in.Timestamp.IsZero() {
		in.Timestamp = time.Now()
	}

	txn, err := s.reg.Record(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, txn)
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	c := query.Criteria{Search: q.Get("search")}

	if v := q.Get("type"); v != "" {
		t, err := domain.ParseType(v)
		if err != nil {
			s.writeError(w, r, &ledger.ValidationError{Field: "type", Reason: err.Error()})
			return
		}
		c.Type = t
	}
	if v := q.Get("category"); v != "" {
		cat, err := domain.ParseCategory(v)
		if err != nil {
			s.writeError(w, r, &ledger.ValidationError{Field: "category", Reason: err.Error()})
			return
		}
		c.Category = cat
	}
	period, err := query.ParsePeriod(q.Get("period"))
	if err != nil {
		s.writeError(w, r, &ledger.ValidationError{Field: "period", Reason: err.Error()})
		return
	}
	c.Period = period

	page, err := intParam(q.Get("page"))
	if err != nil {
		s.writeError(w, r, &ledger.ValidationError{Field: "page", Reason: err.Error()})
		return
	}
	pageSize, err := intParam(q.Get("pageSize"))
	if err != nil || pageSize > query.MaxPageSize {
		s.writeError(w, r, &ledger.ValidationError{Field: "pageSize", Reason: fmt.Sprintf("must be a number up to %d", query.MaxPageSize)})
		return
	}

	writeJSON(w, http.StatusOK, s.reg.Query(c, pageSize, page))
}

// intParam reads an optional integer query parameter, 0 when absent.
func intParam(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	return strconv.Atoi(v)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		s.writeError(w, r, &ledger.ValidationError{Field: "id", Reason: "is not a number"})
		return
	}
	txn, err := s.reg.Get(id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, txn)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("failed to upgrade to websocket")
		return
	}

	initial, err := json.Marshal(domain.Event{Kind: eventSnapshot, Status: s.reg.Status(), At: time.Now()})
	if err == nil {
		conn.WriteMessage(websocket.TextMessage, initial)
	}
	s.hub.Register(conn)

	go func() {
		for {
			// clients have nothing to say, reading only notices disconnects
			if _, _, err := conn.ReadMessage(); err != nil {
				s.hub.Unregister(conn)
				return
			}
		}
	}()
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	resp, status := api.Encode(err)
	ev := s.log.Debug()
	if status >= http.StatusInternalServerError {
		ev = s.log.Error()
	}
	ev.Err(err).Str("request_id", w.Header().Get(requestIDHeader)).Str("path", r.URL.Path).Int("status", status).Msg("request failed")
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

const requestIDHeader = "X-Request-ID"

func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		w.Header().Set(requestIDHeader, id)

		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Debug().Str("request_id", id).Str("method", r.Method).Str("path", r.URL.Path).Dur("took", time.Since(start)).Msg("request")
	})
}

func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.log.Error().Interface("panic", rec).Str("stack", string(debug.Stack())).Msg("recovered from panic")
				writeJSON(w, http.StatusInternalServerError, api.ErrorResponse{Code: api.CodeInternal, Message: "internal server error"})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// allowOrigin accepts requests without an Origin (not from a browser), from
// the server's own host, or from a configured origin.
func (s *Server) allowOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || s.origins["*"] || s.origins[origin] {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, r.Host)
}

func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := r.Header.Get("Origin"); origin != "" && s.allowOrigin(r) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")
			w.Header().Add("Vary", "Origin")
		}
		next.ServeHTTP(w, r)
	})
}
