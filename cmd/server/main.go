package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/99designs/gqlgen/graphql/playground"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"github.com/UkralStul/content-graph-service/graph"
	"github.com/UkralStul/content-graph-service/internal/auth"
	"github.com/UkralStul/content-graph-service/internal/config"
	"github.com/UkralStul/content-graph-service/internal/dataloader"
	"github.com/UkralStul/content-graph-service/internal/domain"
	"github.com/UkralStul/content-graph-service/internal/metrics"
	"github.com/UkralStul/content-graph-service/internal/notification"
	"github.com/UkralStul/content-graph-service/internal/pubsub"
	"github.com/UkralStul/content-graph-service/internal/storage"
	"github.com/UkralStul/content-graph-service/internal/storage/inmemory"
	"github.com/UkralStul/content-graph-service/internal/storage/postgres"
	"github.com/UkralStul/content-graph-service/internal/worker"
)

func main() {
	storageType := flag.String("storage", "in-memory", "Storage type (in-memory or postgres)")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	issuer := auth.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.Issuer)

	var (
		store storage.Storage
		bus   pubsub.Bus
		ping  func(context.Context) error
	)

	logger.Info("starting server", slog.String("storage", *storageType))
	switch *storageType {
	case "postgres":
		pg, err := postgres.New(cfg.Database.DSN())
		if err != nil {
			logger.Error("failed to connect to postgres", slog.String("error", err.Error()))
			os.Exit(1)
		}
		sqlDB, err := pg.DB().DB()
		if err != nil {
			logger.Error("failed to get sql db", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer sqlDB.Close()
		ping = sqlDB.PingContext
		store = pg

		client, err := pubsub.NewValkeyClient(cfg.Valkey)
		if err != nil {
			logger.Error("failed to connect to valkey", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer client.Close()
		bus = pubsub.NewValkey(client, cfg.Worker.ConsumerID, logger)

	case "in-memory":
		mem := inmemory.New()
		fillWithMockData(ctx, mem, issuer, logger)
		store = mem

		// Without valkey there is no separate worker process, so the
		// notification workers consume the in-process bus.
		memBus := pubsub.NewMemory()
		bus = memBus
		runner := worker.NewRunner(memBus, memBus,
			worker.Deps{Store: store, Logger: logger},
			notification.NewGenerator(cfg.Webapp.Origin), m)
		var workers []worker.Worker
		for _, nw := range worker.NotificationWorkers() {
			memBus.EnsureGroup(nw.Topic, nw.Subscription)
			workers = append(workers, runner.FromNotificationWorker(nw))
		}
		go func() {
			if err := runner.Run(ctx, workers); err != nil {
				logger.Error("workers stopped", slog.String("error", err.Error()))
			}
		}()

	default:
		logger.Error("unknown storage type", slog.String("storage", *storageType))
		os.Exit(1)
	}

	resolver := &graph.Resolver{
		Storage:   store,
		Publisher: bus,
		Observer:  graph.NewNotificationObserver(),
		Logger:    logger,
	}
	go func() {
		if err := resolver.Observer.Relay(ctx, bus, logger); err != nil && ctx.Err() == nil {
			logger.Error("notification relay stopped", slog.String("error", err.Error()))
		}
	}()

	schema, err := graph.NewSchema(resolver)
	if err != nil {
		logger.Error("failed to build schema", slog.String("error", err.Error()))
		os.Exit(1)
	}

	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)

	router.Handle("/", playground.Handler("GraphQL playground", "/query"))
	router.Handle("/metrics", m.Handler())
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if ping != nil {
			if err := ping(r.Context()); err != nil {
				http.Error(w, "database unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	})
	router.Group(func(r chi.Router) {
		r.Use(auth.Middleware(issuer, logger))
		r.Handle("/query", dataloader.Middleware(store, graph.NewHandler(schema, m, logger)))
		r.Handle("/notifications/live", resolver.LiveHandler(websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		}))
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("connect to http://localhost:" + cfg.Server.Port + "/ for GraphQL playground")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", slog.String("error", err.Error()))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.String("error", err.Error()))
	}
}

func fillWithMockData(ctx context.Context, s storage.Storage, issuer *auth.Issuer, logger *slog.Logger) {
	fail := func(what string, err error) {
		logger.Error("fillWithMockData: failed to create "+what, slog.String("error", err.Error()))
		os.Exit(1)
	}

	modHandle, readerHandle := "idoshamun", "tsahidaily"
	moderator, err := s.CreateUser(ctx, &domain.User{Name: "Ido", Username: &modHandle})
	if err != nil {
		fail("user", err)
	}
	reader, err := s.CreateUser(ctx, &domain.User{Name: "Tsahi", Username: &readerHandle})
	if err != nil {
		fail("user", err)
	}

	public, err := s.CreateSource(ctx, &domain.Source{Name: "daily.dev", Handle: "daily"})
	if err != nil {
		fail("source", err)
	}
	squad, err := s.CreateSource(ctx, &domain.Source{Name: "Gophers", Handle: "gophers", Private: true})
	if err != nil {
		fail("source", err)
	}

	posts := []struct {
		post     *domain.Post
		keywords []string
	}{
		{&domain.Post{Title: "Understanding Go generics", SourceID: public.ID, AuthorID: &moderator.ID}, []string{"golang", "generics"}},
		{&domain.Post{Title: "JavaScript in 2024", SourceID: public.ID}, []string{"javascript", "js", "webdev"}},
		{&domain.Post{Title: "Running Postgres on Kubernetes", SourceID: squad.ID, AuthorID: &reader.ID}, []string{"postgres", "kubernetes", "k8s"}},
	}
	for _, p := range posts {
		post, err := s.CreatePost(ctx, p.post)
		if err != nil {
			fail("post", err)
		}
		if err := s.AddPostKeywords(ctx, post.ID, p.keywords); err != nil {
			fail("post keywords", err)
		}
	}
	for _, value := range []string{"golang", "javascript", "postgres"} {
		if _, err := s.SetKeywordStatus(ctx, value, domain.KeywordStatusAllow); err != nil {
			fail("keyword", err)
		}
	}

	modToken, err := issuer.Sign(moderator.ID, []string{auth.RoleModerator}, 24*time.Hour)
	if err != nil {
		fail("token", err)
	}
	readerToken, err := issuer.Sign(reader.ID, nil, 24*time.Hour)
	if err != nil {
		fail("token", err)
	}
	logger.Info("mock data filled",
		slog.String("moderator_token", modToken),
		slog.String("reader_token", readerToken))
}
