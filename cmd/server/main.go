package main

import (
	"flag"
	"log/slog"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/magpsaad/partner-calculator/internal/auth"
	"github.com/magpsaad/partner-calculator/internal/config"
	"github.com/magpsaad/partner-calculator/internal/server"
	"github.com/magpsaad/partner-calculator/internal/storage/sqlite"
	"github.com/magpsaad/partner-calculator/pkg/logging"
)

func main() {
	configPath := flag.String("config", "", "path to config file (default: ./config.yaml)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Log.Level)
	gin.SetMode(cfg.Server.Mode)

	store, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	slog.Info("Storage initialized", "database", cfg.Database.Path)

	authenticator := auth.NewPasswordAuthenticator(store)
	jwtManager := auth.NewJWTManager(cfg.JWT.Secret, cfg.TokenDuration())

	router := server.NewRouter(store, authenticator, jwtManager)

	// h2c allows HTTP/2 without TLS, useful behind a terminating proxy.
	handler := h2c.NewHandler(router, &http2.Server{})

	addr := cfg.Addr()
	slog.Info("Server starting", "address", addr)
	if err := http.ListenAndServe(addr, handler); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}
