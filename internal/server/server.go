package server

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"escrowboard/internal/config"
	"escrowboard/internal/hmacauth"
	"escrowboard/internal/idempotency"
	"escrowboard/internal/metrics"
	"escrowboard/internal/session"
	"escrowboard/internal/units"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
)

const maxBodyBytes = 64 << 10

type Options struct {
	Config   *config.AppConfig
	Session  *session.Session
	Store    idempotency.Store
	Metrics  *metrics.Registry
	Logger   logrus.FieldLogger
	Contract common.Address
	// RPCHealth pings the chain endpoint. Nil reports the RPC as healthy.
	RPCHealth func(context.Context) error
}

type Server struct {
	cfg         *config.AppConfig
	session     *session.Session
	store       idempotency.Store
	hmac        *hmacauth.Verifier
	metrics     *metrics.Registry
	log         logrus.FieldLogger
	contract    common.Address
	rpcHealthFn func(context.Context) error
	handler     http.Handler
	httpServer  *http.Server
	now         func() time.Time
}

func New(opts Options) *Server {
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	reg := opts.Metrics
	if reg == nil {
		reg = metrics.New()
	}

	s := &Server{
		cfg:     opts.Config,
		session: opts.Session,
		store:   opts.Store,
		hmac: &hmacauth.Verifier{
			Secret:  opts.Config.Service.HMACSecret,
			MaxSkew: opts.Config.Service.HMACClockSkew,
			Logger:  log,
		},
		metrics:     reg,
		log:         log,
		contract:    opts.Contract,
		rpcHealthFn: opts.RPCHealth,
		now:         time.Now,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/session", s.handleSession)
	mux.HandleFunc("GET /api/v1/escrows", s.handleEscrows)
	mux.HandleFunc("POST /api/v1/escrows/refresh", s.handleRefresh)
	mux.HandleFunc("POST /api/v1/escrows/select", s.handleSelect)
	mux.HandleFunc("GET /api/v1/escrows/selected", s.handleSelected)
	mux.HandleFunc("DELETE /api/v1/escrows/selected", s.handleClearSelection)

	s.action(mux, "create", decodeDraft(s.session.CreateEscrow))
	s.action(mux, "fund", decodeDraft(s.session.FundEscrow))
	s.action(mux, "approve-step", decodeDraft(s.session.ApproveStep))
	s.action(mux, "release", decodeDraft(s.session.ReleaseFunds))
	s.action(mux, "withdraw", decodeDraft(s.session.WithdrawFunds))

	mux.HandleFunc("GET /api/v1/notification", s.handleNotification)
	mux.HandleFunc("DELETE /api/v1/notification", s.handleDismiss)
	mux.HandleFunc("GET /api/v1/notifications/ws", s.handleNotificationFeed)
	mux.Handle("GET /api/v1/metrics", reg.Handler())
	mux.HandleFunc("GET /api/v1/health", s.handleHealth)

	s.handler = requestIDMiddleware(s.logMiddleware(mux))
	s.httpServer = &http.Server{
		Addr:              ":" + strconv.Itoa(opts.Config.Service.HTTPPort),
		Handler:           s.handler,
		ReadHeaderTimeout: 15 * time.Second,
	}
	return s
}

func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) Start() error {
	s.log.WithField("addr", s.httpServer.Addr).Info("API listening")
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

type sessionResponse struct {
	State    string `json:"state"`
	Account  string `json:"account,omitempty"`
	Contract string `json:"contract"`
	Variant  string `json:"variant"`
	Loading  bool   `json:"loading"`
	Escrows  int    `json:"escrows"`
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	snap := s.session.Snapshot()
	resp := sessionResponse{
		State:    snap.State.String(),
		Contract: s.contract.Hex(),
		Variant:  s.cfg.Variant,
		Loading:  snap.Loading,
		Escrows:  len(snap.Escrows),
	}
	if snap.Connected() {
		resp.Account = snap.Account.Hex()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleEscrows(w http.ResponseWriter, r *http.Request) {
	snap := s.session.Snapshot()
	writeJSON(w, http.StatusOK, session.NewEscrowViews(snap.Escrows))
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if err := s.session.Refresh(r.Context()); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	s.handleEscrows(w, r)
}

type selectRequest struct {
	EscrowID string `json:"escrowId"`
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	var payload selectRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid json payload"))
		return
	}
	id, err := units.ParseUint(payload.EscrowID)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("escrowId: %w", err))
		return
	}
	rec, err := s.session.Select(r.Context(), id)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, session.NewEscrowView(rec))
}

func (s *Server) handleSelected(w http.ResponseWriter, r *http.Request) {
	snap := s.session.Snapshot()
	if snap.Selected == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, session.NewEscrowView(*snap.Selected))
}

func (s *Server) handleClearSelection(w http.ResponseWriter, r *http.Request) {
	s.session.ClearSelection()
	w.WriteHeader(http.StatusNoContent)
}

type actionResponse struct {
	Action string `json:"action"`
	Status string `json:"status"`
	TxHash string `json:"txHash"`
}

type actionFunc func(ctx context.Context, body []byte) (string, error)

// decodeDraft adapts a session action to a raw JSON body.
func decodeDraft[D any](run func(context.Context, D) (string, error)) actionFunc {
	return func(ctx context.Context, body []byte) (string, error) {
		var draft D
		if err := json.Unmarshal(body, &draft); err != nil {
			return "", errBadPayload
		}
		return run(ctx, draft)
	}
}

var errBadPayload = errors.New("invalid json payload")

func (s *Server) action(mux *http.ServeMux, name string, run actionFunc) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.handleAction(w, r, name, run)
	})
	mux.Handle("POST /api/v1/escrows/"+name, s.hmac.Middleware(handler))
}

func (s *Server) handleAction(w http.ResponseWriter, r *http.Request, name string, run actionFunc) {
	clientKey := strings.TrimSpace(r.Header.Get("X-Idempotency-Key"))
	if clientKey == "" {
		writeError(w, http.StatusBadRequest, errors.New("missing X-Idempotency-Key header"))
		return
	}
	key := idempotency.Key(name, clientKey)
	ctx := r.Context()

	existing, err := s.store.Get(ctx, key)
	if err != nil {
		s.log.WithError(err).WithField("action", name).Warn("idempotency lookup failed")
	}
	if existing != nil {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Idempotent-Replay", "true")
		w.WriteHeader(existing.StatusCode)
		_, _ = w.Write(existing.Response)
		s.metrics.ObserveAction(name, "replayed")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	txHash, err := run(ctx, body)
	if errors.Is(err, errBadPayload) {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	b, _ := json.Marshal(actionResponse{Action: name, Status: "confirmed", TxHash: txHash})
	now := s.now()
	record := idempotency.Record{
		Action:     name,
		StatusCode: http.StatusOK,
		Response:   b,
		CreatedAt:  now,
		ExpiresAt:  now.Add(s.cfg.Service.IdempotencyWindow),
	}
	if err := s.store.Save(ctx, key, record); err != nil {
		s.log.WithError(err).WithField("action", name).Warn("idempotency save failed")
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}

func (s *Server) handleNotification(w http.ResponseWriter, r *http.Request) {
	note, ok := s.session.Notifier().Current()
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

func (s *Server) handleDismiss(w http.ResponseWriter, r *http.Request) {
	var id uint64
	if raw := r.URL.Query().Get("id"); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, errors.New("id must be an unsigned integer"))
			return
		}
		id = parsed
	}
	if !s.session.Notifier().Dismiss(id) {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type componentHealth struct {
	Connected bool    `json:"connected"`
	LatencyMs float64 `json:"latency_ms,omitempty"`
	Error     string  `json:"error,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	overallHealthy := true

	rpcInfo := componentHealth{Connected: true}
	if s.rpcHealthFn != nil {
		start := time.Now()
		rpcCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := s.rpcHealthFn(rpcCtx); err != nil {
			rpcInfo = componentHealth{Error: err.Error()}
			overallHealthy = false
		} else {
			rpcInfo.LatencyMs = float64(time.Since(start).Microseconds()) / 1000.0
		}
	}

	dbInfo := componentHealth{Connected: true}
	dbCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := s.store.Ping(dbCtx); err != nil {
		dbInfo = componentHealth{Error: err.Error()}
		overallHealthy = false
	}

	snap := s.session.Snapshot()
	if snap.State == session.StateFailed {
		overallHealthy = false
	}

	status := "healthy"
	if !overallHealthy {
		status = "degraded"
	}

	resp := struct {
		Status   string          `json:"status"`
		Session  string          `json:"session"`
		RPC      componentHealth `json:"rpc"`
		Database componentHealth `json:"database"`
	}{
		Status:   status,
		Session:  snap.State.String(),
		RPC:      rpcInfo,
		Database: dbInfo,
	}

	code := http.StatusOK
	if !overallHealthy {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, resp)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrNotConnected):
		return http.StatusConflict
	case errors.Is(err, session.ErrEscrowNotFound):
		return http.StatusNotFound
	default:
		return http.StatusBadGateway
	}
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Request-Id") == "" {
			r.Header.Set("X-Request-Id", fmt.Sprintf("%d", time.Now().UnixNano()))
		}
		w.Header().Set("X-Request-Id", r.Header.Get("X-Request-Id"))
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Hijack passes through so the notification feed can upgrade.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	return h.Hijack()
}

func (s *Server) logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.WithFields(logrus.Fields{
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     rec.status,
			"request_id": r.Header.Get("X-Request-Id"),
			"elapsed_ms": time.Since(start).Milliseconds(),
		}).Debug("request")
	})
}
