package main

import (
	"context"
	"fmt"
	"os"

	"github.com/imagegate/gateway/internal/config"
	"github.com/imagegate/gateway/internal/coordination"
	"github.com/imagegate/gateway/internal/httpapi"
	"github.com/imagegate/gateway/internal/metrics"
	"github.com/imagegate/gateway/internal/repository"
)

func main() {
	metrics.Register()
	cfg := config.Load()

	store, err := coordination.New(cfg.RedisAddr, cfg.RedisPoolSize)
	if err != nil {
		fmt.Println("Failed to connect to coordination store:", err)
		os.Exit(1)
	}
	defer store.Close()

	db, err := repository.Connect(cfg.PostgresDSN)
	if err != nil {
		fmt.Println("Failed to connect to Postgres:", err)
		os.Exit(1)
	}
	if err := repository.AutoMigrate(db); err != nil {
		fmt.Println("Failed to migrate schema:", err)
		os.Exit(1)
	}

	httpCfg := httpapi.DefaultConfig()
	httpCfg.MaxAttempts = cfg.MaxAttempts

	app := httpapi.New(httpCfg, httpapi.Deps{
		Jobs:    repository.NewGormJobRepository(db),
		Tenants: repository.NewGormTenantRepository(db),
		Ping:    func() error { return store.Ping(context.Background()) },
	})

	fmt.Printf("imagegate API listening on %s\n", cfg.HTTPAddr)
	if err := app.Listen(cfg.HTTPAddr); err != nil {
		fmt.Println("Server stopped:", err)
		os.Exit(1)
	}
}
