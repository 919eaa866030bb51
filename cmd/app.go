package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/btcsuite/btcd/rpcclient"
	"github.com/nats-io/nats.go"
	"github.com/runesbridge/runes-bridge/internal/btc"
	"github.com/runesbridge/runes-bridge/internal/claim"
	"github.com/runesbridge/runes-bridge/internal/config"
	"github.com/runesbridge/runes-bridge/internal/db"
	"github.com/runesbridge/runes-bridge/internal/deposit"
	"github.com/runesbridge/runes-bridge/internal/events"
	"github.com/runesbridge/runes-bridge/internal/http"
	"github.com/runesbridge/runes-bridge/internal/indexer"
	"github.com/runesbridge/runes-bridge/internal/starknet"
	"github.com/runesbridge/runes-bridge/internal/state"
	"github.com/runesbridge/runes-bridge/internal/withdrawal"
	log "github.com/sirupsen/logrus"
)

// Application owns every long-lived component of the bridge process
type Application struct {
	Config          config.Config
	DatabaseManager *db.DatabaseManager
	State           *state.State
	BTCClient       *rpcclient.Client
	NatsConn        *nats.Conn
	BlockNotifier   *btc.BlockNotifier
	Forwarder       *events.Forwarder
	HTTPServer      *http.Server
}

func newBTCClient(cfg config.Config) (*rpcclient.Client, error) {
	connConfig := &rpcclient.ConnConfig{
		Host:         cfg.BTCRPC,
		User:         cfg.BTCRPC_USER,
		Pass:         cfg.BTCRPC_PASS,
		HTTPPostMode: true,
		DisableTLS:   true,
	}
	return rpcclient.New(connConfig, nil)
}

func newDeriver(cfg config.Config) (*btc.DepositAddressDeriver, error) {
	params, err := cfg.ChainParams()
	if err != nil {
		return nil, err
	}
	return btc.NewDepositAddressDeriver(cfg.BitcoinPubKey, params)
}

func NewApplication(cfg config.Config) (*Application, error) {
	deriver, err := newDeriver(cfg)
	if err != nil {
		return nil, fmt.Errorf("invalid BITCOIN_PUB_KEY: %w", err)
	}
	claimKey, err := starknet.NewSigner(cfg.StarknetPrivKey)
	if err != nil {
		return nil, fmt.Errorf("invalid RUNES_BRIDGE_STARKNET_PRIV_KEY: %w", err)
	}

	btcClient, err := newBTCClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to start bitcoin client: %w", err)
	}

	dbm, err := db.NewDatabaseManager(cfg)
	if err != nil {
		btcClient.Shutdown()
		return nil, err
	}
	st := state.InitializeState(dbm)

	var natsConn *nats.Conn
	var publisher events.Publisher
	if cfg.NatsURL != "" {
		natsConn, err = events.Connect(cfg.NatsURL)
		if err != nil {
			btcClient.Shutdown()
			_ = dbm.Close()
			return nil, err
		}
		publisher = natsConn
	} else {
		log.Info("NATS_URL is empty, events are only logged")
	}

	limiter := state.NewRateLimiter(cfg.IndexerMaxCallsPerMinute)
	indexerClient := indexer.NewClient(cfg.HiroAPIURL, cfg.HiroAPIKey, cfg.HiroTimeout, limiter)
	btcRPCService := btc.NewBTCRPCService(btcClient)

	engine := deposit.NewEngine(btcRPCService, st, cfg.MinConfirmations)
	ingester := indexer.NewIngester(indexerClient, st)
	deposits := deposit.NewService(st, ingester, engine)
	claims := claim.NewSigner(indexerClient, deriver, engine, st, claimKey)
	withdrawals := withdrawal.NewTracker(st, btcRPCService)

	httpServer, err := http.NewServer(cfg, st, deriver, deposits, claims, withdrawals, limiter)
	if err != nil {
		btcClient.Shutdown()
		_ = dbm.Close()
		if natsConn != nil {
			natsConn.Close()
		}
		return nil, err
	}

	return &Application{
		Config:          cfg,
		DatabaseManager: dbm,
		State:           st,
		BTCClient:       btcClient,
		NatsConn:        natsConn,
		BlockNotifier:   btc.NewBlockNotifier(btcRPCService, st.EventBus, cfg.BTCNotifyInterval),
		Forwarder:       events.NewForwarder(st.EventBus, publisher, cfg.NatsSubjectPrefix),
		HTTPServer:      httpServer,
	}, nil
}

func (app *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	var wg sync.WaitGroup
	errCh := make(chan error, 1)

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.Forwarder.Start(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.BlockNotifier.Start(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := app.HTTPServer.Start(ctx); err != nil {
			errCh <- err
		}
	}()

	var runErr error
	select {
	case <-stop:
		log.Info("Receiving exit signal...")
	case runErr = <-errCh:
		log.Errorf("HTTP server failed: %v", runErr)
	}

	cancel()
	wg.Wait()
	app.close()
	log.Info("Server stopped")
	return runErr
}

func (app *Application) close() {
	if app.NatsConn != nil {
		if err := app.NatsConn.Drain(); err != nil {
			log.Warnf("Failed to drain NATS connection: %v", err)
		}
	}
	app.BTCClient.Shutdown()
	if err := app.DatabaseManager.Close(); err != nil {
		log.Warnf("Failed to close database: %v", err)
	}
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
