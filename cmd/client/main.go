package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"snapsync/internal/client"
	"snapsync/internal/config"
	"snapsync/internal/metrics"
)

func main() {
	configPath := flag.String("config", "", "YAML 配置文件")
	address := flag.String("addr", "", "服务器地址")
	proto := flag.String("proto", "", "传输协议: tcp, kcp, ws")
	metricsAddr := flag.String("metrics", "", "Prometheus /metrics 监听地址，例如 :9100")
	debug := flag.Bool("debug", false, "输出 debug 日志")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}
	if *address != "" {
		cfg.Network.Addr = *address
	}
	if *proto != "" {
		cfg.Network.Proto = *proto
	}
	if *metricsAddr != "" {
		cfg.Metrics.Addr = *metricsAddr
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("配置无效: %v", err)
	}

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if cfg.Metrics.Addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		go func() {
			if err := http.ListenAndServe(cfg.Metrics.Addr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics: server stopped", "addr", cfg.Metrics.Addr, "error", err)
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app := client.NewApp(cfg, logger)
	if err := app.Run(ctx); err != nil {
		log.Fatalf("客户端退出: %v", err)
	}
}
