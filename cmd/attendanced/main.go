package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ncecere/attendance/backend/internal/app"
	"github.com/ncecere/attendance/backend/internal/config"
	"github.com/ncecere/attendance/backend/internal/database"
	"github.com/ncecere/attendance/backend/internal/httpserver"
	"github.com/ncecere/attendance/backend/internal/observability"
	"github.com/ncecere/attendance/backend/internal/redisclient"
	"github.com/ncecere/attendance/backend/internal/scheduler"
)

func main() {
	configFile := flag.String("config", "", "path to a YAML config file")
	envFile := flag.String("env", "", "optional .env file")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(config.Options{ConfigFile: *configFile, EnvFile: *envFile})
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	if err := database.RunMigrations(ctx, cfg.Database); err != nil {
		log.Fatalf("run migrations: %v", err)
	}

	dbPool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("connect database: %v", err)
	}
	defer dbPool.Close()

	redisClient := redisclient.New(cfg.Redis)
	if err := redisclient.Ping(ctx, redisClient); err != nil {
		log.Fatalf("connect redis: %v", err)
	}
	defer redisClient.Close()

	obs, err := observability.Setup(ctx, cfg.Observability)
	if err != nil {
		log.Fatalf("init observability: %v", err)
	}
	defer obs.Shutdown(context.Background())

	container, err := app.NewContainer(ctx, cfg, dbPool, redisClient, obs)
	if err != nil {
		log.Fatalf("build container: %v", err)
	}

	if cfg.Attendance.AutoCheckoutEnabled {
		sched, err := scheduler.New(cfg.Attendance.AutoCheckoutCron, container.Location, container.Attendance, container.Activity, slog.Default())
		if err != nil {
			log.Fatalf("build scheduler: %v", err)
		}
		go sched.Run(ctx)
	}

	server, err := httpserver.New(container)
	if err != nil {
		log.Fatalf("construct server: %v", err)
	}

	slog.Info("attendance server listening", slog.String("addr", cfg.Server.ListenAddr))
	if err := server.Listen(ctx); err != nil && err != context.Canceled {
		log.Fatalf("server stopped: %v", err)
	}
}
