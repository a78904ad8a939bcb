package main

import (
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/nimasrn/store-ledger/internal/config"
	"github.com/nimasrn/store-ledger/internal/processor"
	"github.com/nimasrn/store-ledger/internal/repository"
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

	if err = logger.Init(logger.Options{Level: cfg.LogLevel, Encoding: cfg.LogEncoding, Service: cfg.AppName + "-processor"}); err != nil {
		logger.Error("failed to init logger", "error", err)
		return
	}
	defer logger.Sync()
	logger.Info("starting processor", "version", version, "commit", commit, "date", date, "env", cfg.AppEnv)

	db, err := pg.CreateReadWrite(cfg.PostgresRead(), cfg.PostgresWrite(),
		logger.NewGormLogger(cfg.AppEnv == "dev", cfg.PostgresSlowQuery))
	if err != nil {
		logger.Error("failed connecting to pg", "error", err)
		return
	}

	redisAdap, err := redis.NewRedisAdapter("default", cfg.RedisUniversalKeyPrefix, &redis.Options{
		Addrs:      []string{cfg.RedisAddr},
		ClientName: cfg.AppName + "-processor",
		DB:         cfg.RedisDatabase,
		Username:   cfg.RedisUsername,
		Password:   cfg.RedisPassword,
	})
	if err != nil {
		logger.Error("failed connecting to redis", "error", err)
		return
	}
	defer redis.Close()

	guardConfig := processor.DefaultAlertGuardConfig()
	guardConfig.Cooldown = cfg.AlertCooldown
	guard := processor.NewAlertGuard(redisAdap, guardConfig)

	alertProcessor := processor.NewStockAlertProcessor(repository.NewProductRepository(db), guard, redisAdap)
	service, err := processor.NewProcessorService(redisAdap, alertProcessor, processor.Options{
		Queue:     cfg.AlertQueue(),
		Consumers: cfg.QueueConsumers,
		Workers:   cfg.QueueWorkers,
	})
	if err != nil {
		logger.Error("failed to create the processor", "error", err)
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

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	if err = service.Start(); err != nil {
		logger.Error("failed to start processor", "error", err)
		service.Stop()
		return
	}

	<-c
	service.Stop()
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
