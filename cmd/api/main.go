package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/nsxzhou/haggle/backend/internal/config"
	"github.com/nsxzhou/haggle/backend/internal/handler"
	"github.com/nsxzhou/haggle/backend/internal/handler/live"
	"github.com/nsxzhou/haggle/backend/internal/model/persona"
	"github.com/nsxzhou/haggle/backend/internal/service/ai"
	"github.com/nsxzhou/haggle/backend/internal/service/contextstore"
	"github.com/nsxzhou/haggle/backend/internal/service/insight"
	"github.com/nsxzhou/haggle/backend/internal/service/interpreter"
	turns "github.com/nsxzhou/haggle/backend/internal/service/negotiation"
	"github.com/nsxzhou/haggle/backend/internal/service/report"
	"github.com/nsxzhou/haggle/backend/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	personaStore := persona.NewMemoryStore(persona.Seed())

	negotiations, history, cleanup, err := buildStores(cfg.Store)
	if err != nil {
		log.Fatalf("failed to initialize storage: %v", err)
	}
	defer cleanup()

	contexts := contextstore.NewStore(
		contextstore.WithMaxAge(cfg.Negotiation.ContextMaxAge),
		contextstore.WithSweepInterval(cfg.Negotiation.SweepInterval),
	)
	contexts.Start(ctx.Done())

	// Initialize AI service; without credentials every turn goes through the
	// deterministic fallback responder.
	var completer ai.Completer
	var modelName string
	if cfg.AI.Enabled() {
		aiSvc, err := ai.NewService(ctx, cfg.AI)
		if err != nil {
			log.Printf("warning: failed to initialize AI service: %v", err)
			log.Println("continuing with fallback responses only - 请检查 Ark 模型相关环境变量")
		} else {
			log.Println("AI service initialized successfully")
			completer = aiSvc
			modelName = aiSvc.Model()
		}
	} else {
		log.Println("Ark 凭证未配置，跳过 AI 功能初始化")
	}

	interp := interpreter.New(contexts)
	fallback := interpreter.NewFallbackResponder(personaStore, contexts)

	hub := live.NewHub()
	turnSvc := turns.NewService(negotiations, history, completer, interp, fallback, personaStore, hub, turns.Config{
		ProviderTimeout: cfg.Negotiation.ProviderTimeout,
		HistoryLimit:    cfg.Negotiation.HistoryLimit,
	})
	if modelName != "" {
		turnSvc.SetModel(modelName)
	}

	engine := insight.NewEngine()
	composer := report.NewComposer(engine, negotiations, history)

	router := handler.NewRouter(handler.Deps{
		Personas:     personaStore,
		Turns:        turnSvc,
		Insights:     engine,
		Reports:      composer,
		Negotiations: negotiations,
		History:      history,
		LiveHub:      hub,
	})

	startServer(ctx, cfg.Server, router)
}

// buildStores picks SQLite when a path is configured, in-memory otherwise.
func buildStores(cfg config.StoreConfig) (store.NegotiationStore, store.MessageHistory, func(), error) {
	if cfg.SQLitePath == "" {
		mem := store.NewMemory()
		log.Println("using in-memory negotiation store")
		return mem, mem, func() {}, nil
	}

	db, err := store.NewSQLite(cfg.SQLitePath)
	if err != nil {
		return nil, nil, nil, err
	}
	log.Printf("using sqlite negotiation store at %s", cfg.SQLitePath)
	return db, db, func() {
		if err := db.Close(); err != nil {
			log.Printf("failed to close sqlite store: %v", err)
		}
	}, nil
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	srv := &http.Server{
		Addr:              serverCfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("Haggle backend listening on %s", serverCfg.Addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
