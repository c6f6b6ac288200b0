package main

import (
	"context"
	"log"
	"net/http"

	"go.uber.org/zap"

	"github.com/codeduel-live/arena-client/internal/config"
	"github.com/codeduel-live/arena-client/internal/devserver"
	"github.com/codeduel-live/arena-client/internal/devserver/store"
)

func main() {
	cfg := config.Load()
	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	var repo store.Repository
	if cfg.DatabaseDSN != "" {
		g, err := store.OpenGorm(cfg.DatabaseDSN)
		if err != nil {
			logger.Fatal("open database", zap.Error(err))
		}
		repo = g
	} else {
		logger.Info("no database configured, using in-memory store")
		repo = store.NewMemoryStore()
	}

	srv, err := devserver.New(context.Background(), repo, logger)
	if err != nil {
		logger.Fatal("start server", zap.Error(err))
	}
	defer srv.Stop()

	logger.Info("listening", zap.String("addr", cfg.DevListenAddr))
	if err := http.ListenAndServe(cfg.DevListenAddr, srv.Routes()); err != nil {
		logger.Fatal("serve", zap.Error(err))
	}
}
