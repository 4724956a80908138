package main

import (
	"errors"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"snapsync/internal/config"
	"snapsync/internal/metrics"
	"snapsync/internal/server"
)

func main() {
	// 命令行参数，非空时覆盖配置文件
	configPath := flag.String("config", "", "YAML 配置文件")
	address := flag.String("addr", "", "服务器监听地址")
	proto := flag.String("proto", "", "传输协议: tcp, kcp, ws")
	metricsAddr := flag.String("metrics", "", "Prometheus /metrics 监听地址")
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

	serveMetrics(cfg.Metrics.Addr, logger)

	gameServer := server.NewGameServer(cfg.Network, logger)
	if err := gameServer.Listen(); err != nil {
		log.Fatalf("服务器启动失败: %v", err)
	}

	logger.Info("server: running",
		"addr", gameServer.Addr(),
		"proto", cfg.Network.Proto,
		"tick_rate", cfg.Network.TickRate,
		"send_rate", cfg.Network.SendRate)

	// 等待中断信号
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	gameServer.Shutdown()
}

func serveMetrics(addr string, logger *slog.Logger) {
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics: server stopped", "addr", addr, "error", err)
		}
	}()
	logger.Info("metrics: serving", "addr", addr)
}
