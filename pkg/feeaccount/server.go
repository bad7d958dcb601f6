package feeaccount

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"zionix-swap/pkg/chain"
	"zionix-swap/pkg/logger"
	"zionix-swap/pkg/metrics"
)

// AccountProvisioner creates or finds fee accounts with the funding key
type AccountProvisioner interface {
	Provision(ctx context.Context, owner, mint solana.PublicKey) (*Provisioned, error)
}

// Server exposes fee-account creation over HTTP
type Server struct {
	provisioner  AccountProvisioner
	allowedOwner *solana.PublicKey
	gatherer     prometheus.Gatherer
	metrics      *metrics.Metrics
	timeout      time.Duration
	log          *zap.Logger
}

// ServerOption configures a Server
type ServerOption func(*Server)

// WithAllowedOwner restricts creation to accounts owned by owner
func WithAllowedOwner(owner solana.PublicKey) ServerOption {
	return func(s *Server) { s.allowedOwner = &owner }
}

// WithGatherer serves the gathered metrics on /metrics
func WithGatherer(g prometheus.Gatherer) ServerOption {
	return func(s *Server) { s.gatherer = g }
}

// WithServerMetrics counts provisioning results
func WithServerMetrics(m *metrics.Metrics) ServerOption {
	return func(s *Server) { s.metrics = m }
}

// WithRequestTimeout bounds each provisioning call
func WithRequestTimeout(d time.Duration) ServerOption {
	return func(s *Server) { s.timeout = d }
}

// WithServerLogger sets the logger
func WithServerLogger(l *zap.Logger) ServerOption {
	return func(s *Server) { s.log = l }
}

// NewServer creates the fee-account HTTP server
func NewServer(p AccountProvisioner, opts ...ServerOption) *Server {
	s := &Server{provisioner: p, timeout: 90 * time.Second}
	for _, opt := range opts {
		opt(s)
	}
	s.log = logger.OrNop(s.log)
	return s
}

// Handler returns the HTTP routes
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST "+CreatePath, s.handleCreate)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if s.gatherer != nil {
		mux.Handle("GET /metrics", metrics.Handler(s.gatherer))
	}
	return mux
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "request body must be JSON")
		return
	}
	if req.FeeRecipient == "" || req.FeeMint == "" {
		writeError(w, http.StatusBadRequest, "MISSING_FIELDS", "feeRecipient and feeMint are required")
		return
	}

	owner, err := solana.PublicKeyFromBase58(req.FeeRecipient)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ADDRESS", "feeRecipient is not a valid address")
		return
	}
	mint, err := solana.PublicKeyFromBase58(req.FeeMint)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ADDRESS", "feeMint is not a valid address")
		return
	}
	if s.allowedOwner != nil && !s.allowedOwner.Equals(owner) {
		writeError(w, http.StatusForbidden, "OWNER_NOT_ALLOWED", "fee accounts can only be created for the platform fee wallet")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	p, err := s.provisioner.Provision(ctx, owner, mint)
	if err != nil {
		s.metrics.FeeAccount("error")
		s.log.Error("fee account provisioning failed",
			zap.Stringer("owner", owner),
			zap.Stringer("mint", mint),
			zap.Error(err))
		code := "ATA_CREATION_FAILED"
		if errors.Is(err, chain.ErrUnknownMintProgram) {
			code = "UNSUPPORTED_MINT"
		}
		writeError(w, http.StatusInternalServerError, code, err.Error())
		return
	}

	if p.Created {
		s.metrics.FeeAccount("created")
	} else {
		s.metrics.FeeAccount("exists")
	}

	writeJSON(w, http.StatusOK, createResponse{
		Success:     true,
		ATA:         p.Address.String(),
		IsToken2022: p.Standard == chain.ExtendedAccount,
		Created:     p.Created,
	})
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
