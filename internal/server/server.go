// Package server exposes the vault over HTTP: JSON endpoints for state
// and operations, a websocket event feed and prometheus metrics. Amounts
// cross the wire as decimal strings so precision is never lost.
package server

import (
	"encoding/json"
	"errors"
	"log"
	"math/big"
	"net/http"
	"time"

	"github.com/google/uuid"

	"staking-vault-lab/internal/domain"
	"staking-vault-lab/internal/ledger"
	"staking-vault-lab/internal/observability"
	"staking-vault-lab/internal/reserve"
	"staking-vault-lab/internal/staking"
)

// Server is a thin HTTP layer over the coordinator.
type Server struct {
	coord   *staking.Coordinator
	receipt *ledger.Ledger
	reserve *reserve.Reserve // optional
	hub     *Hub
	logger  *log.Logger
	started time.Time
}

// Options configures a Server.
type Options struct {
	Coordinator *staking.Coordinator
	Receipt     *ledger.Ledger
	Reserve     *reserve.Reserve
	Logger      *log.Logger
}

// New creates a Server. Wire Publish into the coordinator's OnEvent hook
// to feed the websocket hub.
func New(opts Options) *Server {
	return &Server{
		coord:   opts.Coordinator,
		receipt: opts.Receipt,
		reserve: opts.Reserve,
		hub:     NewHub(opts.Logger),
		logger:  opts.Logger,
		started: time.Now(),
	}
}

// Publish broadcasts a coordinator event to websocket subscribers.
func (s *Server) Publish(e domain.Event) {
	s.hub.Broadcast(e)
}

// Hub returns the websocket hub, mainly for shutdown.
func (s *Server) Hub() *Hub { return s.hub }

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("GET /metrics", observability.Handler())

	mux.HandleFunc("GET /v1/state", s.handleState)
	mux.HandleFunc("GET /v1/epoch", s.handleEpoch)
	mux.HandleFunc("GET /v1/holders/{addr}", s.handleHolder)
	mux.HandleFunc("GET /v1/reserve", s.handleReserve)

	mux.HandleFunc("POST /v1/stake", s.handleStake)
	mux.HandleFunc("POST /v1/unstake", s.handleUnstake)
	mux.HandleFunc("POST /v1/claim", s.handleClaim)
	mux.HandleFunc("POST /v1/claim-withdraw", s.handleClaimWithdraw)
	mux.HandleFunc("POST /v1/instant-unstake", s.handleInstantUnstake)

	mux.Handle("GET /ws", s.hub)

	return s.instrument(mux)
}

// instrument tags every request with an ID and records latency.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		w.Header().Set("X-Request-ID", uuid.NewString())
		next.ServeHTTP(w, r)
		observability.DefaultMetrics.HTTPRequestDuration.
			WithLabelValues(r.URL.Path, r.Method).
			Observe(time.Since(start).Seconds())
	})
}

// StateResponse is the JSON response for /v1/state.
type StateResponse struct {
	Epoch                   uint64 `json:"epoch"`
	Index                   string `json:"index"`
	TotalSupply             string `json:"total_supply"`
	TotalCredits            string `json:"total_credits"`
	PendingRewards          string `json:"pending_rewards"`
	NextDistribute          string `json:"next_distribute"`
	RequestWithdrawalAmount string `json:"request_withdrawal_amount"`
	LastPoolCycleIndex      uint64 `json:"last_pool_cycle_index"`
	TotalVaultBalance       string `json:"total_vault_balance"`
	StakingPaused           bool   `json:"staking_paused"`
	UnstakingPaused         bool   `json:"unstaking_paused"`
	InstantUnstakePaused    bool   `json:"instant_unstake_paused"`
	Uptime                  string `json:"uptime"`
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	epoch := s.coord.EpochInfo()
	stakingPaused, unstakingPaused, instantPaused := s.coord.Pauses()
	writeJSON(w, http.StatusOK, StateResponse{
		Epoch:                   epoch.Number,
		Index:                   s.receipt.Index().String(),
		TotalSupply:             s.receipt.TotalSupply().String(),
		TotalCredits:            s.receipt.TotalCredits().String(),
		PendingRewards:          s.coord.PendingRewards().String(),
		NextDistribute:          epoch.Distribute.String(),
		RequestWithdrawalAmount: s.coord.RequestWithdrawalAmount().String(),
		LastPoolCycleIndex:      s.coord.LastPoolCycleIndex(),
		TotalVaultBalance:       s.coord.TotalVaultBalance().String(),
		StakingPaused:           stakingPaused,
		UnstakingPaused:         unstakingPaused,
		InstantUnstakePaused:    instantPaused,
		Uptime:                  time.Since(s.started).String(),
	})
}

// EpochResponse is the JSON response for /v1/epoch.
type EpochResponse struct {
	Number         uint64    `json:"number"`
	LengthSeconds  int64     `json:"length_seconds"`
	EndTime        time.Time `json:"end_time"`
	Distribute     string    `json:"distribute"`
	SecondsToNext  int64     `json:"seconds_to_next"`
	PendingRewards string    `json:"pending_rewards"`
}

func (s *Server) handleEpoch(w http.ResponseWriter, r *http.Request) {
	epoch := s.coord.EpochInfo()
	writeJSON(w, http.StatusOK, EpochResponse{
		Number:         epoch.Number,
		LengthSeconds:  int64(epoch.Length / time.Second),
		EndTime:        epoch.EndTime,
		Distribute:     epoch.Distribute.String(),
		SecondsToNext:  int64(s.coord.SecondsToNextEpoch() / time.Second),
		PendingRewards: s.coord.PendingRewards().String(),
	})
}

// LockInfo is one warm-up or cool-down lock in API form.
type LockInfo struct {
	Amount      string `json:"amount"`
	Credits     string `json:"credits"`
	ExpiryEpoch uint64 `json:"expiry_epoch"`
}

// HolderResponse is the JSON response for /v1/holders/{addr}.
type HolderResponse struct {
	Address       string    `json:"address"`
	Balance       string    `json:"balance"`
	CreditBalance string    `json:"credit_balance"`
	Warmup        *LockInfo `json:"warmup,omitempty"`
	Cooldown      *LockInfo `json:"cooldown,omitempty"`
}

func (s *Server) handleHolder(w http.ResponseWriter, r *http.Request) {
	addr := r.PathValue("addr")
	resp := HolderResponse{
		Address:       addr,
		Balance:       s.receipt.BalanceOf(addr).String(),
		CreditBalance: s.receipt.CreditBalanceOf(addr).String(),
	}
	if lock := s.coord.WarmUpInfo(addr); lock != nil {
		resp.Warmup = &LockInfo{
			Amount:      lock.Amount.String(),
			Credits:     lock.Credits.String(),
			ExpiryEpoch: lock.ExpiryEpoch,
		}
	}
	if lock := s.coord.CoolDownInfo(addr); lock != nil {
		resp.Cooldown = &LockInfo{
			Amount:      lock.Amount.String(),
			Credits:     lock.Credits.String(),
			ExpiryEpoch: lock.ExpiryEpoch,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// ReserveResponse is the JSON response for /v1/reserve.
type ReserveResponse struct {
	Enabled        bool   `json:"enabled"`
	FeeBasisPoints int64  `json:"fee_basis_points,omitempty"`
	TotalShares    string `json:"total_shares,omitempty"`
	LiquidBalance  string `json:"liquid_balance,omitempty"`
	BackingValue   string `json:"backing_value,omitempty"`
}

func (s *Server) handleReserve(w http.ResponseWriter, r *http.Request) {
	if s.reserve == nil {
		writeJSON(w, http.StatusOK, ReserveResponse{Enabled: false})
		return
	}
	writeJSON(w, http.StatusOK, ReserveResponse{
		Enabled:        true,
		FeeBasisPoints: s.reserve.Fee(),
		TotalShares:    s.reserve.TotalShares().String(),
		LiquidBalance:  s.reserve.LiquidBalance().String(),
		BackingValue:   s.reserve.BackingValue().String(),
	})
}

// TxRequest is the JSON body for operation endpoints.
type TxRequest struct {
	Holder string `json:"holder"`
	Amount string `json:"amount,omitempty"`
	Route  string `json:"route,omitempty"`
	MinOut string `json:"min_out,omitempty"`
}

func (s *Server) handleStake(w http.ResponseWriter, r *http.Request) {
	req, amount, ok := s.decodeTx(w, r, true)
	if !ok {
		return
	}
	if err := s.coord.Stake(r.Context(), req.Holder, amount); err != nil {
		s.writeError(w, "stake", err)
		return
	}
	observability.RecordStake()
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleUnstake(w http.ResponseWriter, r *http.Request) {
	req, amount, ok := s.decodeTx(w, r, true)
	if !ok {
		return
	}
	if err := s.coord.Unstake(r.Context(), req.Holder, amount); err != nil {
		s.writeError(w, "unstake", err)
		return
	}
	observability.RecordUnstake()
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleClaim(w http.ResponseWriter, r *http.Request) {
	req, _, ok := s.decodeTx(w, r, false)
	if !ok {
		return
	}
	if err := s.coord.Claim(req.Holder); err != nil {
		s.writeError(w, "claim", err)
		return
	}
	observability.RecordClaim()
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleClaimWithdraw(w http.ResponseWriter, r *http.Request) {
	req, _, ok := s.decodeTx(w, r, false)
	if !ok {
		return
	}
	if err := s.coord.ClaimWithdraw(r.Context(), req.Holder); err != nil {
		s.writeError(w, "claim-withdraw", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleInstantUnstake(w http.ResponseWriter, r *http.Request) {
	req, amount, ok := s.decodeTx(w, r, true)
	if !ok {
		return
	}
	switch req.Route {
	case "", "reserve":
		if err := s.coord.InstantUnstakeReserve(r.Context(), req.Holder, amount); err != nil {
			s.writeError(w, "instant-unstake", err)
			return
		}
		observability.RecordInstantUnstake("reserve")
	case "curve":
		minOut := new(big.Int)
		if req.MinOut != "" {
			var parsed bool
			minOut, parsed = new(big.Int).SetString(req.MinOut, 10)
			if !parsed {
				s.writeError(w, "instant-unstake", domain.ErrInvalidAmount)
				return
			}
		}
		if err := s.coord.InstantUnstakeCurve(r.Context(), req.Holder, amount, minOut); err != nil {
			s.writeError(w, "instant-unstake", err)
			return
		}
		observability.RecordInstantUnstake("curve")
	default:
		http.Error(w, `unknown route, want "reserve" or "curve"`, http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// decodeTx parses the request body. With wantAmount the amount field must
// be a positive decimal integer.
func (s *Server) decodeTx(w http.ResponseWriter, r *http.Request, wantAmount bool) (TxRequest, *big.Int, bool) {
	var req TxRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return req, nil, false
	}
	if req.Holder == "" {
		http.Error(w, "holder is required", http.StatusBadRequest)
		return req, nil, false
	}
	if !wantAmount {
		return req, nil, true
	}
	amount, ok := new(big.Int).SetString(req.Amount, 10)
	if !ok || amount.Sign() <= 0 {
		http.Error(w, "amount must be a positive decimal integer", http.StatusBadRequest)
		return req, nil, false
	}
	return req, amount, true
}

// ErrorResponse is the JSON error body.
type ErrorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeError(w http.ResponseWriter, operation string, err error) {
	status := statusForError(err)
	if status == http.StatusInternalServerError {
		s.logger.Printf("%s: %v", operation, err)
	}
	observability.RecordStakingError(operation, err.Error())
	writeJSON(w, status, ErrorResponse{Error: err.Error()})
}

// statusForError maps the domain error taxonomy onto HTTP statuses:
// malformed input is 400, legal-but-unsatisfiable requests are 409.
func statusForError(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrInvalidAddress),
		errors.Is(err, domain.ErrOutOfRange):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrInsufficientBalance),
		errors.Is(err, domain.ErrInsufficientShares),
		errors.Is(err, domain.ErrNotEnoughFunds),
		errors.Is(err, domain.ErrSlippage),
		errors.Is(err, domain.ErrStakingPaused),
		errors.Is(err, domain.ErrUnstakingPaused),
		errors.Is(err, domain.ErrInstantUnstakePaused),
		errors.Is(err, domain.ErrSupplyZero):
		return http.StatusConflict
	case errors.Is(err, domain.ErrNotAuthorized):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
