package main

import (
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/nimasrn/store-ledger/internal/config"
	"github.com/nimasrn/store-ledger/internal/handlers"
	"github.com/nimasrn/store-ledger/internal/processor"
	"github.com/nimasrn/store-ledger/internal/queue"
	"github.com/nimasrn/store-ledger/internal/repository"
	"github.com/nimasrn/store-ledger/internal/services"
	xhttp "github.com/nimasrn/store-ledger/pkg/http"
	"github.com/nimasrn/store-ledger/pkg/logger"
	"github.com/nimasrn/store-ledger/pkg/pg"
	"github.com/nimasrn/store-ledger/pkg/prom"
	"github.com/nimasrn/store-ledger/pkg/redis"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	err := config.Load(argContainsEnvPath())
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return
	}
	cfg := config.Get()

	if err = logger.Init(logger.Options{Level: cfg.LogLevel, Encoding: cfg.LogEncoding, Service: cfg.AppName + "-api"}); err != nil {
		logger.Error("failed to init logger", "error", err)
		return
	}
	defer logger.Sync()
	logger.Info("starting api", "version", version, "commit", commit, "date", date, "env", cfg.AppEnv)

	db, err := pg.CreateReadWrite(cfg.PostgresRead(), cfg.PostgresWrite(),
		logger.NewGormLogger(cfg.AppEnv == "dev", cfg.PostgresSlowQuery))
	if err != nil {
		logger.Error("failed connecting to pg", "error", err)
		return
	}

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	if err = prom.Create(hostname, cfg.AppEnv, cfg.PromNamespace); err != nil {
		logger.Error("failed to create prometheus metrics", "error", err)
		return
	}
	go prom.ListenAndServer(cfg.PromListenAddr, cfg.PromPath)

	checks := map[string]handlers.Pinger{"postgres": db}

	// alerts are optional; without redis the api runs with publishing and the
	// restock board disabled
	var (
		alerts services.AlertPublisher
		board  *processor.RestockBoard
	)
	if cfg.RedisAddr != "" {
		redisAdap, err := redis.NewRedisAdapter("default", cfg.RedisUniversalKeyPrefix, &redis.Options{
			Addrs:      []string{cfg.RedisAddr},
			ClientName: cfg.AppName + "-api",
			DB:         cfg.RedisDatabase,
			Username:   cfg.RedisUsername,
			Password:   cfg.RedisPassword,
		})
		if err != nil {
			logger.Error("failed connecting to redis", "error", err)
			return
		}
		defer redis.Close()

		q, err := queue.NewQueue(redisAdap, cfg.AlertQueue())
		if err != nil {
			logger.Error("failed creating alert queue", "error", err)
			return
		}
		alerts = queue.NewStockAlertPublisher(q)
		board = processor.NewRestockBoard(redisAdap)
		checks["redis"] = redisAdap
	} else {
		logger.Warn("REDIS_ADDR is empty, stock alerts are disabled")
	}

	customerRepo := repository.NewCustomerRepository(db)
	transactionRepo := repository.NewCreditTransactionRepository(db)
	productRepo := repository.NewProductRepository(db)
	saleRepo := repository.NewSaleRepository(db)

	// services
	customerService := services.NewCustomerService(customerRepo)
	ledgerService := services.NewLedgerService(db, customerRepo, transactionRepo)
	inventoryService := services.NewInventoryService(productRepo, alerts)
	salesService := services.NewSalesService(db, saleRepo, inventoryService)

	opt := xhttp.DefaultServerOption
	opt.Name = cfg.AppName
	if cfg.HttpServerReadTimeout > 0 {
		opt.ReadTimeout = time.Duration(cfg.HttpServerReadTimeout) * time.Millisecond
	}
	if cfg.HttpServerWriteTimeout > 0 {
		opt.WriteTimeout = time.Duration(cfg.HttpServerWriteTimeout) * time.Millisecond
	}
	if cfg.HttpServerReadBufferSize > 0 {
		opt.ReadBufferSize = cfg.HttpServerReadBufferSize
	}
	if cfg.HttpServerWriteBufferSize > 0 {
		opt.WriteBufferSize = cfg.HttpServerWriteBufferSize
	}

	s := xhttp.NewServer(opt)
	s.Use(xhttp.RecoverMiddleware)
	s.Use(xhttp.RequestIDMiddleware)
	s.Use(xhttp.RequestLoggerMiddleware)
	s.Use(prom.RequestMetricsMiddleware)
	s.Use(xhttp.TimeoutMiddleware(cfg.HttpRequestTimeout))

	// v1 handlers
	g := s.Router.Group("/api/v1/stores/{storeId}")
	handlers.RegisterCustomerRoutes(g, handlers.NewCustomerHandler(customerService, ledgerService))
	handlers.RegisterTransactionRoutes(g, handlers.NewTransactionHandler(ledgerService))
	handlers.RegisterProductRoutes(g, handlers.NewProductHandler(inventoryService))
	handlers.RegisterSaleRoutes(g, handlers.NewSaleHandler(salesService))
	if board != nil {
		handlers.RegisterRestockRoutes(g, handlers.NewRestockHandler(board))
	}
	handlers.RegisterHealthRoutes(s.Router, handlers.NewHealthHandler(checks))

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		if err := s.ListenAndServe(cfg.HttpListenAddr); err != nil {
			logger.Error("error in running http-server", "error", err)
			c <- syscall.SIGTERM
		}
	}()

	<-c
	s.Shutdown()
}

func argContainsEnvPath() string {
	for _, v := range os.Args {
		if strings.HasPrefix(v, "--env=") {
			path := strings.TrimPrefix(v, "--env=")
			if _, err := os.Stat(path); err != nil {
				logger.Error("failed to open the passed env file", "path", path, "error", err)
				return ""
			}
			return path
		}
	}
	return ""
}
