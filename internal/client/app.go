package client

import (
	"context"
	"log/slog"
	"time"

	"snapsync/internal/config"
	"snapsync/pkg/mathx"
)

// 演示输入序列：四个方向轮流移动，然后停下
var demoDirections = []mathx.Vec3{
	{X: 1},
	{Z: 1},
	{X: -1},
	{Z: -1},
	{},
}

// App 无界面客户端：连接、tick 循环、演示输入、状态日志
type App struct {
	cfg     *config.Config
	network *NetworkClient
	sync    *SyncClient
	logger  *slog.Logger
	start   time.Time

	nextInput int
}

// NewApp 创建客户端应用
func NewApp(cfg *config.Config, logger *slog.Logger) *App {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{
		cfg:     cfg,
		network: NewNetworkClient(cfg.Network.Addr, cfg.Network.Proto, logger),
		logger:  logger,
		start:   time.Now(),
	}
	a.sync = NewSyncClient(cfg, a.now, a.network.InputSender(), logger)
	return a
}

func (a *App) now() float64 {
	return time.Since(a.start).Seconds()
}

// Sync 同步状态
func (a *App) Sync() *SyncClient { return a.sync }

// Run 连接服务器并运行直到 ctx 取消或连接出错
func (a *App) Run(ctx context.Context) error {
	welcome, err := a.network.Connect()
	if err != nil {
		return err
	}
	defer a.network.Close()
	a.sync.ApplyWelcome(welcome)

	tick := time.NewTicker(time.Duration(float64(time.Second) / a.cfg.Network.TickRate))
	defer tick.Stop()
	inputs := time.NewTicker(InputInterval)
	defer inputs.Stop()
	status := time.NewTicker(StatusLogInterval)
	defer status.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return nil

		case err := <-a.network.Errors():
			return err

		case data := <-a.network.Packets():
			if err := a.sync.HandlePacket(data); err != nil {
				a.logger.Warn("client: packet rejected", "error", err)
			}

		case now := <-tick.C:
			a.sync.Tick(now.Sub(last).Seconds())
			last = now

		case <-inputs.C:
			a.sendDemoInput()

		case <-status.C:
			a.logStatus()
		}
	}
}

func (a *App) sendDemoInput() {
	dir := demoDirections[a.nextInput%len(demoDirections)]
	a.nextInput++

	var err error
	if dir == (mathx.Vec3{}) {
		_, err = a.sync.Stop()
	} else {
		_, err = a.sync.Move(dir)
	}
	if err != nil {
		a.logger.Warn("client: input not sent", "error", err)
	}
}

func (a *App) logStatus() {
	body := a.sync.Predictor().Body()
	h := a.sync.Predictor().History()
	var span float64
	if oldest, ok := h.First(); ok {
		newest, _ := h.Last()
		span = newest.Timestamp() - oldest.Timestamp()
	}
	a.logger.Info("client: local entity",
		"entity", a.sync.EntityID(),
		"position", body.Position,
		"history", h.Len(),
		"history_span", span,
		"inputs", a.sync.Inputs().Len())

	for id, r := range a.sync.rendered {
		if id == a.sync.EntityID() {
			continue
		}
		stream, ok := a.sync.Stream(id)
		if !ok {
			continue
		}
		a.logger.Info("client: remote entity",
			"entity", id,
			"position", r.Position,
			"timescale", stream.Timeline.LocalTimescale,
			"buffer", stream.Buffer.Len(),
			"buffer_time", stream.BufferTime())
	}
}
