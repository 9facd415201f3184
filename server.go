package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/maxibertaina03/balanza-industrial/internal/api"
	"github.com/maxibertaina03/balanza-industrial/internal/config"
	"github.com/maxibertaina03/balanza-industrial/internal/db"
	"github.com/maxibertaina03/balanza-industrial/internal/ledger"
	"github.com/maxibertaina03/balanza-industrial/internal/livestate"
	"github.com/maxibertaina03/balanza-industrial/internal/monitoring"
	"github.com/maxibertaina03/balanza-industrial/internal/protocol"
	"github.com/maxibertaina03/balanza-industrial/internal/scale"
	"github.com/maxibertaina03/balanza-industrial/internal/store"
)

// Document file names inside data_dir. The names are part of the on-disk
// contract with earlier deployments.
const (
	ledgerFile   = "balanza_data.json"
	realtimeFile = "balanza_realtime.json"
	passwordFile = "balanza_password.json"
)

// runServer wires the core together and blocks until SIGINT/SIGTERM.
func runServer(ctx context.Context, cfg *config.Config) error {
	fs := store.OSFileSystem{}
	ledgerPath := filepath.Join(cfg.DataDir, ledgerFile)
	realtimePath := filepath.Join(cfg.DataDir, realtimeFile)
	credsPath := filepath.Join(cfg.DataDir, passwordFile)

	database, err := db.NewDB(cfg.DBPath)
	if err != nil {
		return err
	}
	defer database.Close()
	if err := database.MigrateUp(); err != nil {
		return err
	}

	var doc ledger.Document
	if err := store.ReadJSON(fs, ledgerPath, &doc); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			monitoring.Logf("ledger document unreadable, starting empty: %v", err)
		}
		doc = ledger.Document{}
	}
	ldg := ledger.New(doc, func(d ledger.Document) error {
		return store.WriteJSON(fs, ledgerPath, d)
	})

	state := livestate.NewStore()
	state.Seed(livestate.LoadDocument(fs, realtimePath))
	state.SetMirror(livestate.DocumentMirror(fs, realtimePath))

	decoder, err := protocol.ForName(cfg.Scale.Protocol, cfg.Scale.EL05Divisor)
	if err != nil {
		return err
	}

	// The simulation toggle swaps the frame source; loop, decoder and publish
	// path stay identical.
	open := func(ctx context.Context) (scale.Source, error) {
		if cfg.Scale.Simulate {
			return scale.NewSimulatedSource(cfg.Scale.Protocol, cfg.Scale.EL05Divisor, cfg.Scale.PollInterval), nil
		}
		factory := scale.SerialPortFactory{ReadTimeout: cfg.Scale.ReadTimeout}
		port, err := factory.Open(cfg.Scale.Port, cfg.Scale.Baud)
		if err != nil {
			return nil, err
		}
		return scale.NewSerialSource(port, cfg.Scale.Port, decoder.Terminator()), nil
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	loop := scale.NewLoop(decoder, open, state, database, cfg.Scale.PollInterval)
	defer loop.Stop()

	srv := api.NewServer(ctx, state, ldg, loop, database, fs, credsPath)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()

		mux := http.NewServeMux()
		database.AttachAdminRoutes(mux)
		mux.Handle("/api/", srv.ServeMux())

		server := &http.Server{
			Addr:    cfg.Listen,
			Handler: api.LoggingMiddleware(mux),
		}

		// Start server in a goroutine so it doesn't block
		go func() {
			monitoring.Logf("listening on %s", cfg.Listen)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				monitoring.Logf("failed to start server: %v", err)
				stop()
			}
		}()

		// Wait for context cancellation to shut down server
		<-ctx.Done()
		monitoring.Logf("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			monitoring.Logf("HTTP server shutdown error: %v", err)
		}
	}()

	wg.Wait()
	monitoring.Logf("graceful shutdown complete")
	return nil
}
