package http

import (
	"context"
	"fmt"
	"log"
	stdhttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/DonyChristie/crux/internal/auth"
	"github.com/DonyChristie/crux/internal/auth/firebaseauth"
	authmemory "github.com/DonyChristie/crux/internal/auth/memory"
	"github.com/DonyChristie/crux/internal/config"
	"github.com/DonyChristie/crux/internal/events"
	"github.com/DonyChristie/crux/internal/handler"
	"github.com/DonyChristie/crux/internal/localstore"
	"github.com/DonyChristie/crux/internal/ratings"
	"github.com/DonyChristie/crux/internal/redis"
	"github.com/DonyChristie/crux/internal/session"
	"github.com/DonyChristie/crux/internal/store"
	"github.com/DonyChristie/crux/internal/store/firestore"
	storememory "github.com/DonyChristie/crux/internal/store/memory"
	"github.com/DonyChristie/crux/internal/worker"
)

// shutdownTimeout bounds graceful drain of in-flight requests.
const shutdownTimeout = 10 * time.Second

func Run() error {
	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// 2. Connect to the document store
	ctx := context.Background()
	var docStore store.Store
	if cfg.FirebaseProjectID != "" {
		fs, err := firestore.Connect(ctx, cfg)
		if err != nil {
			return fmt.Errorf("failed to connect to Firestore: %w", err)
		}
		defer fs.Close()
		docStore = fs
	} else {
		log.Println("[Server] FIREBASE_PROJECT_ID not set, using the in-memory store")
		docStore = storememory.New()
	}

	// 3. Auth provider
	var authProvider auth.Provider
	if cfg.FirebaseAPIKey != "" {
		authProvider = firebaseauth.NewClient(cfg.FirebaseAPIKey)
	} else {
		log.Println("[Server] FIREBASE_API_KEY not set, using the in-memory auth provider")
		authProvider = authmemory.NewProvider()
	}

	// 4. Redis carries the device-local store and the activity journal
	// when configured; otherwise a JSON file and a no-op journal.
	var local localstore.Store
	var publisher events.Publisher = events.NopPublisher{}
	if cfg.RedisAddr != "" {
		client, err := redis.NewClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return fmt.Errorf("failed to connect to Redis: %w", err)
		}
		defer client.Close()
		log.Printf("[Server] Local store and activity journal on Redis at %s", cfg.RedisAddr)
		local = localstore.NewRedis(client.Client)
		publisher = events.NewPublisher(client.Client)
	} else {
		fs, err := localstore.OpenFile(cfg.LocalStorePath)
		if err != nil {
			return fmt.Errorf("failed to open local store: %w", err)
		}
		log.Printf("[Server] Local store in %s", cfg.LocalStorePath)
		local = fs
	}

	// 5. Engine hub, idle janitor and handlers
	hub := handler.NewHub(session.Deps{
		Store:   docStore,
		Auth:    authProvider,
		Local:   local,
		Ratings: ratings.NewEngine(docStore),
	}, publisher)
	defer hub.Shutdown()

	janitor := worker.NewJanitor(hub, worker.DefaultJanitorConfig())
	janitor.Start(ctx)
	defer janitor.Stop()

	router := NewRouter(RouterConfig{
		SessionHandler: handler.NewSessionHandler(hub, cfg),
		AuthHandler:    handler.NewAuthHandler(hub),
		PostHandler:    handler.NewPostHandler(hub),
		CommentHandler: handler.NewCommentHandler(hub),
		FeedHandler:    handler.NewFeedHandler(hub),
		ProfileHandler: handler.NewProfileHandler(hub),
		DraftHandler:   handler.NewDraftHandler(hub),
		StreamHandler:  handler.NewStreamHandler(hub),
		JWTSecret:      cfg.JWTSecret,
	})

	// 6. Serve until interrupted
	server := &stdhttp.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: router,
	}

	errc := make(chan error, 1)
	go func() {
		log.Printf("[Server] Listening on %s", server.Addr)
		errc <- server.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errc:
		return err
	case sig := <-stop:
		log.Printf("[Server] Caught %s, shutting down", sig)
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown incomplete: %w", err)
	}
	return nil
}
