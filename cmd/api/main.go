package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"taskmind-backend/internal/ai"
	"taskmind-backend/internal/analytics"
	"taskmind-backend/internal/auth"
	"taskmind-backend/internal/config"
	"taskmind-backend/internal/db"
	"taskmind-backend/internal/idempotency"
	"taskmind-backend/internal/logging"
	"taskmind-backend/internal/metrics"
	"taskmind-backend/internal/tasks"
	"taskmind-backend/internal/trace"
)

const serviceName = "taskmind-backend"

// stores groups the persistence adapters of the selected driver.
type stores struct {
	users  auth.UserStore
	tasks  tasks.Store
	events analytics.Sink
	close  func()
}

func openStores(ctx context.Context, cfg *config.Config, log *zap.Logger) (*stores, error) {
	if cfg.Storage == config.StorageMongo {
		client, database, err := db.ConnectMongo(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return nil, err
		}
		if err := db.EnsureMongoIndexes(ctx, database); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, err
		}
		log.Info("connected to mongo", zap.String("db", cfg.MongoDB))
		return &stores{
			users:  auth.NewMongoUsers(database),
			tasks:  tasks.NewMongoStore(database),
			events: analytics.NewMongoSink(database),
			close:  func() { _ = client.Disconnect(context.Background()) },
		}, nil
	}

	database, err := db.Connect(cfg.ConnString())
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx, database); err != nil {
		_ = database.Close()
		return nil, err
	}
	log.Info("connected to postgres", zap.String("host", cfg.DBHost), zap.String("db", cfg.DBName))
	return &stores{
		users:  auth.NewPostgresUsers(database),
		tasks:  tasks.NewPostgresStore(database),
		events: analytics.NewSQLSink(database),
		close:  func() { _ = database.Close() },
	}, nil
}

// openRedis returns nil when no URL is configured or the server is down;
// the idempotency guard then passes requests through.
func openRedis(ctx context.Context, url string, log *zap.Logger) *redis.Client {
	if url == "" {
		return nil
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		log.Warn("invalid redis url, idempotency disabled", zap.Error(err))
		return nil
	}
	rdb := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		log.Warn("redis unreachable, idempotency disabled", zap.Error(err))
		_ = rdb.Close()
		return nil
	}
	return rdb
}

func main() {
	configPath := flag.String("config", "", "optional config file (yaml, json or toml)")
	flag.Parse()

	src, err := config.NewSource(*configPath)
	if err != nil {
		panic(err)
	}
	cfg := src.Config()

	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()
	src.SetLogger(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := src.Watch(ctx); err != nil {
		log.Warn("config watch disabled", zap.Error(err))
	}

	tracing, err := trace.Setup(ctx, cfg.TraceEnabled, serviceName, nil)
	if err != nil {
		log.Fatal("tracing setup failed", zap.Error(err))
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder, err := metrics.NewRecorder(registry)
	if err != nil {
		log.Fatal("metrics setup failed", zap.Error(err))
	}

	st, err := openStores(ctx, cfg, log)
	if err != nil {
		log.Fatal("failed to connect storage", zap.String("driver", cfg.Storage), zap.Error(err))
	}
	defer st.close()

	rdb := openRedis(ctx, cfg.RedisURL, log)
	if rdb != nil {
		defer rdb.Close()
	}

	events := analytics.NewLogger(st.events, log)

	client := ai.NewGeminiClient(cfg.GeminiBaseURL, cfg.GeminiTimeout, tracing.Tracer)
	gen := ai.NewGenerator(client, ai.ConfigFunc(func() ai.ModelConfig {
		m := src.Model()
		return ai.ModelConfig{APIKey: m.APIKey, Model: m.Model}
	}), log, recorder)

	authMW := auth.New([]byte(cfg.JWTSecret), st.users, log)
	authH := auth.Handlers{Users: st.users, Secret: []byte(cfg.JWTSecret), TokenTTL: cfg.TokenTTL, Log: log}
	taskH := tasks.New(gen, st.tasks, events, log)
	guard := idempotency.New(rdb, auth.UserIDFromContext, log)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("OK"))
	})
	if cfg.MetricsEnabled {
		mux.Handle("GET /metrics", metrics.Handler(registry))
	}

	// AUTH
	mux.HandleFunc("POST /auth/signup", authH.SignupHandler())
	mux.HandleFunc("POST /auth/login", authH.LoginHandler())
	mux.HandleFunc("GET /auth/me", authMW.Wrap(auth.MeHandler()))
	mux.HandleFunc("POST /auth/logout", authMW.Wrap(auth.LogoutHandler()))
	mux.HandleFunc("DELETE /auth/account", authMW.Wrap(
		auth.DeleteAccountHandler(st.users, []auth.DataPurger{st.tasks}, events, log),
	))

	// TASKS
	mux.HandleFunc("GET /tasks", authMW.Wrap(tasks.GetTasksHandler(st.tasks, log)))
	mux.HandleFunc("POST /tasks", authMW.Wrap(guard.Wrap(tasks.CreateTaskHandler(st.tasks, events, log))))
	mux.HandleFunc("PUT /tasks/{id}", authMW.Wrap(tasks.UpdateTaskHandler(st.tasks, events, log)))
	mux.HandleFunc("DELETE /tasks/{id}", authMW.Wrap(tasks.DeleteTaskHandler(st.tasks, events, log)))

	// AI
	mux.HandleFunc("POST /ai/generate-task", authMW.Wrap(taskH.GenerateTask))
	mux.HandleFunc("GET /ai/models", authMW.Wrap(ai.ModelsHandler(gen)))

	// ANALYTICS
	mux.HandleFunc("POST /analytics/app-opened", authMW.Wrap(analytics.AppOpenedHandler(events)))

	// CORS
	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", idempotency.Header, "X-Platform", "X-App-Version", "X-Device-Locale", "X-Session-Id", "X-Source-Event-Key"},
		ExposedHeaders:   []string{logging.RequestIDHeader},
		AllowCredentials: true,
	})

	handler := c.Handler(logging.Middleware(log)(recorder.Middleware(mux)))

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("api server is running", zap.String("addr", srv.Addr), zap.String("storage", cfg.Storage))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("server shutdown", zap.Error(err))
	}
	if err := tracing.Shutdown(shutdownCtx); err != nil {
		log.Warn("tracer shutdown", zap.Error(err))
	}
}
