package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"wallet-transfers/internal/config"
	"wallet-transfers/internal/domain"
	"wallet-transfers/internal/handler"
	"wallet-transfers/internal/memory"
	"wallet-transfers/internal/notify"
	"wallet-transfers/internal/repository"
	"wallet-transfers/internal/service"
	"wallet-transfers/migrations"

	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
)

// Server represents the HTTP server
type Server struct {
	router  *mux.Router
	server  *http.Server
	storage domain.Storage
	closers []io.Closer
	logger  *slog.Logger
	port    string
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Server{logger: logger}

	storage, ledger, err := s.openStorage(cfg)
	if err != nil {
		s.closeAll()
		return nil, err
	}
	s.storage = storage

	publisher := s.openPublisher(cfg)

	// Initialize services
	accountService := service.NewAccountService(storage, logger)
	transferService := service.NewTransferService(ledger, publisher, cfg.CommissionRate, logger)
	transactionService := service.NewTransactionService(storage, logger)

	// Initialize handlers
	accountHandler := handler.NewAccountHandler(accountService)
	transactionHandler := handler.NewTransactionHandler(transferService, transactionService)

	// Setup router
	router := mux.NewRouter()

	// Add middleware for logging
	router.Use(loggingMiddleware(logger))

	// Account routes
	router.HandleFunc("/accounts", accountHandler.CreateAccount).Methods("POST")
	router.HandleFunc("/accounts/{account_id}", accountHandler.GetAccount).Methods("GET")
	router.HandleFunc("/accounts/{account_id}/recipients", accountHandler.ListRecipients).Methods("GET")
	router.HandleFunc("/accounts/{account_id}/transactions", transactionHandler.ListTransactions).Methods("GET")

	// Transaction routes
	router.HandleFunc("/transactions", transactionHandler.Transfer).Methods("POST")
	router.HandleFunc("/config", transactionHandler.CommissionConfig).Methods("GET")

	// Health check
	router.HandleFunc("/health", s.health).Methods("GET")

	s.router = router
	return s, nil
}

// openStorage returns the repositories and the ledger for the configured driver.
func (s *Server) openStorage(cfg *config.Config) (domain.Storage, domain.Ledger, error) {
	if cfg.Storage == config.StorageMemory {
		store := memory.NewStore(s.logger)
		s.logger.Info("Using in-memory storage")
		return store, store, nil
	}

	// Initialize database connection
	db, err := sql.Open("postgres", cfg.GetDBConnectionString())
	if err != nil {
		return nil, nil, err
	}
	s.closers = append(s.closers, db)

	// Configure connection pool for better performance
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	// Test database connection
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	s.logger.Info("Successfully connected to database")

	if cfg.RunMigrations {
		if err := migrations.Up(cfg.GetDBURL(), s.logger); err != nil {
			return nil, nil, err
		}
	}

	// Initialize store (Unit of Work)
	store := repository.NewStore(db, s.logger)
	return store, repository.NewLedger(store), nil
}

func (s *Server) openPublisher(cfg *config.Config) domain.Publisher {
	switch cfg.Notifier {
	case config.NotifierRedis:
		client := notify.NewRedisClient(notify.RedisConfig{
			Addr:     cfg.GetRedisAddr(),
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		publisher := notify.NewRedisPublisher(client, s.logger)
		s.closers = append(s.closers, publisher)
		s.logger.Info("Publishing transfer notifications to redis", "addr", cfg.GetRedisAddr())
		return publisher
	case config.NotifierKafka:
		publisher := notify.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, s.logger)
		s.closers = append(s.closers, publisher)
		s.logger.Info("Publishing transfer notifications to kafka", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
		return publisher
	default:
		return notify.NewLogPublisher(s.logger)
	}
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	// Check storage connectivity in health check
	if err := s.storage.Ping(r.Context()); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]string{"status": "unhealthy", "error": "database unavailable"})
		return
	}

	json.NewEncoder(w).Encode(map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// loggingMiddleware adds request logging
func loggingMiddleware(logger *slog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Create response wrapper to capture status code
			ww := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(ww, r)

			logger.Info("request completed",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.statusCode,
				"duration", time.Since(start),
				"user_agent", r.UserAgent(),
			)
		})
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Start starts the HTTP server on the specified port
func (s *Server) Start(port string) (string, error) {
	// Create listener first to get actual port
	listener, err := net.Listen("tcp", ":"+port)
	if err != nil {
		return "", err
	}

	// Get the actual port being used
	addr := listener.Addr().(*net.TCPAddr)
	s.port = strconv.Itoa(addr.Port)

	s.server = &http.Server{
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("Starting server", "port", s.port)

	go func() {
		if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.logger.Error("Server failed to start", "error", err)
		}
	}()

	return s.port, nil
}

// Stop gracefully shuts down the server, then releases storage and publishers.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Shutting down server")

	var err error
	if s.server != nil {
		err = s.server.Shutdown(ctx)
	}

	s.closeAll()
	return err
}

func (s *Server) closeAll() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i].Close(); err != nil {
			s.logger.Warn("Failed to close resource", "error", err)
		}
	}
	s.closers = nil
}

// GetPort returns the port the server is listening on
func (s *Server) GetPort() string {
	return s.port
}

// GetBaseURL returns the base URL for the server
func (s *Server) GetBaseURL() string {
	return "http://localhost:" + s.port
}

// GetRouter returns the router for testing purposes
func (s *Server) GetRouter() *mux.Router {
	return s.router
}

// StartServer starts the server with the given configuration
func StartServer(cfg *config.Config) (*Server, string, error) {
	var logger *slog.Logger
	if cfg.ServerPort == "0" {
		// Test environment - use discard logger
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	} else {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, nil))
	}

	server, err := NewServer(cfg, logger)
	if err != nil {
		return nil, "", err
	}

	// Start the server and get the actual port
	port, err := server.Start(cfg.ServerPort)
	if err != nil {
		server.closeAll()
		return nil, "", err
	}

	return server, port, nil
}
