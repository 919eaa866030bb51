package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/runesbridge/runes-bridge/internal/claim"
	"github.com/runesbridge/runes-bridge/internal/config"
	"github.com/runesbridge/runes-bridge/internal/deposit"
	"github.com/runesbridge/runes-bridge/internal/indexer"
	"github.com/runesbridge/runes-bridge/internal/state"
	"github.com/runesbridge/runes-bridge/internal/withdrawal"
	log "github.com/sirupsen/logrus"
)

// Version is reported by GET / and may be overridden at link time
var Version = "dev"

const shutdownTimeout = 5 * time.Second

type AddressDeriver interface {
	Derive(accountID string) (string, error)
}

type DepositViews interface {
	BitcoinView(ctx context.Context, bitcoinAddr string) (map[deposit.Status][]indexer.Candidate, error)
	StarknetView(ctx context.Context, starknetAddr string) (map[deposit.Status][]indexer.Candidate, error)
}

type ClaimSigner interface {
	SignClaim(ctx context.Context, accountID, txID string, vout *uint32) (*claim.Payload, error)
}

type WithdrawalStatus interface {
	Status(ctx context.Context, filter withdrawal.Filter) ([]withdrawal.Status, error)
	StatusByStarknetTx(ctx context.Context, snTxHash string) (*withdrawal.Status, error)
}

// Server exposes the bridge API over gin
type Server struct {
	port        string
	params      *chaincfg.Params
	state       *state.State
	deriver     AddressDeriver
	deposits    DepositViews
	claims      ClaimSigner
	withdrawals WithdrawalStatus
	limiter     *state.RateLimiter
	admin       *adminVerifier
	engine      *gin.Engine
}

func NewServer(cfg config.Config, st *state.State, deriver AddressDeriver, deposits DepositViews,
	claims ClaimSigner, withdrawals WithdrawalStatus, limiter *state.RateLimiter) (*Server, error) {
	params, err := cfg.ChainParams()
	if err != nil {
		return nil, err
	}

	s := &Server{
		port:        cfg.HTTPPort,
		params:      params,
		state:       st,
		deriver:     deriver,
		deposits:    deposits,
		claims:      claims,
		withdrawals: withdrawals,
		limiter:     limiter,
	}
	if cfg.AdminJWTPubKey != "" {
		s.admin, err = newAdminVerifier(cfg.AdminJWTPubKey)
		if err != nil {
			return nil, err
		}
	}

	if cfg.LogLevel < log.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}
	s.engine = gin.New()
	s.engine.Use(gin.Recovery(), requestLogger())
	s.registerRoutes()
	return s, nil
}

func (s *Server) registerRoutes() {
	r := s.engine

	r.GET("/", s.handleVersion)
	r.GET("/health", s.handleHealth)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/get_bitcoin_deposit_addr", s.handleGetBitcoinDepositAddr)
	r.GET("/bitcoin_to_starknet_mapping", s.handleBitcoinToStarknetMapping)
	r.GET("/get_deposits/bitcoin", rateLimit(s.limiter), s.handleGetDepositsBitcoin)
	r.GET("/get_deposits/starknet", s.handleGetDepositsStarknet)
	r.POST("/claim_deposit_data", s.handleClaimDepositData)
	r.GET("/deposit_claim_txhash", s.handleDepositClaimTxHash)
	r.GET("/bitcoin_deposits", s.handleBitcoinDeposits)
	r.GET("/withdrawal_status", s.handleWithdrawalStatus)
	r.GET("/bitcoin_withdrawals", s.handleBitcoinWithdrawals)

	if s.admin != nil {
		admin := r.Group("/admin", adminAuth(s.admin))
		admin.POST("/blacklist", s.handleAddBlacklist)
		admin.PUT("/runes", s.handleSaveRune)
		admin.PUT("/deposit_claim_txs", s.handleAppendDepositClaimTx)
		admin.PUT("/withdrawal_requests", s.handleAppendWithdrawalRequest)
		admin.PUT("/withdrawal_submissions", s.handleUpsertWithdrawalSubmission)
		log.Info("Admin routes enabled")
	}
}

// Handler exposes the router, mostly for tests
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              ":" + s.port,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("HTTP server is running on port %s", s.port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("HTTP server is stopping...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
