package client

import (
	"fmt"
	"log/slog"

	"snapsync/internal/config"
	"snapsync/internal/metrics"
	"snapsync/pkg/input"
	"snapsync/pkg/interp"
	"snapsync/pkg/mathx"
	"snapsync/pkg/protocol"
)

// SyncClient 客户端同步状态：远端实体插值 + 本地实体预测 + 输入累积
//
// 所有方法必须在同一个 goroutine（通常是 tick 循环）中调用
type SyncClient struct {
	settings interp.Settings
	clock    input.Clock
	logger   *slog.Logger

	entityID uint32
	sendRate float64
	welcomed bool

	streams   map[uint32]*interp.Stream[interp.TransformSnapshot]
	rendered  map[uint32]interp.TransformSnapshot
	predictor *Predictor
	inputs    *input.Accumulator
}

// NewSyncClient 创建同步客户端，sender 为输入的可靠发送通道
func NewSyncClient(cfg *config.Config, clock input.Clock, sender input.Sender, logger *slog.Logger) *SyncClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &SyncClient{
		settings:  cfg.InterpSettings(),
		clock:     clock,
		logger:    logger,
		sendRate:  cfg.Network.SendRate,
		streams:   make(map[uint32]*interp.Stream[interp.TransformSnapshot]),
		rendered:  make(map[uint32]interp.TransformSnapshot),
		predictor: NewPredictor(cfg.Prediction.StateHistoryLimit, cfg.Prediction.PositionCorrectionThreshold),
		inputs:    input.NewAccumulator(cfg.Input.HistoryLimit, clock, sender),
	}
}

// EntityID 本地实体 ID，收到 Welcome 之前为 0
func (c *SyncClient) EntityID() uint32 { return c.entityID }

// Welcomed 是否已收到 Welcome
func (c *SyncClient) Welcomed() bool { return c.welcomed }

// Predictor 本地预测器
func (c *SyncClient) Predictor() *Predictor { return c.predictor }

// Inputs 输入累积器
func (c *SyncClient) Inputs() *input.Accumulator { return c.inputs }

// Stream 远端实体的同步流
func (c *SyncClient) Stream(id uint32) (*interp.Stream[interp.TransformSnapshot], bool) {
	s, ok := c.streams[id]
	return s, ok
}

// HandlePacket 处理一个服务器数据包
func (c *SyncClient) HandlePacket(data []byte) error {
	pkt, err := protocol.UnmarshalPacket(data)
	if err != nil {
		return fmt.Errorf("解析包失败: %w", err)
	}

	switch pkt.Type {
	case protocol.MessageTypeWelcome:
		w, err := protocol.ParseWelcome(pkt)
		if err != nil {
			return err
		}
		c.ApplyWelcome(w)

	case protocol.MessageTypeSnapshot:
		s, err := protocol.ParseSnapshot(pkt)
		if err != nil {
			return err
		}
		c.applySnapshot(s)

	case protocol.MessageTypeCorrection:
		corr, err := protocol.ParseCorrection(pkt)
		if err != nil {
			return err
		}
		c.applyCorrection(corr)

	default:
		return fmt.Errorf("%w: %s", protocol.ErrUnexpectedType, pkt.Type)
	}
	return nil
}

// ApplyWelcome 设置本地实体与发送频率，已有的远端流全部重建
func (c *SyncClient) ApplyWelcome(w protocol.Welcome) {
	c.entityID = w.EntityID
	if w.SendRate > 0 {
		c.sendRate = w.SendRate
	}
	c.welcomed = true
	c.predictor.Reset(w.EntityID, w.Spawn)
	for id := range c.streams {
		c.removeStream(id)
	}
	c.logger.Info("client: welcomed", "entity", w.EntityID, "send_rate", c.sendRate, "server_time", w.ServerTime, "spawn", w.Spawn)
}

func (c *SyncClient) applySnapshot(s protocol.Snapshot) {
	now := c.clock()
	seen := make(map[uint32]struct{}, len(s.Entities))

	for _, e := range s.Entities {
		if e.ID == c.entityID {
			continue
		}
		seen[e.ID] = struct{}{}

		stream, ok := c.streams[e.ID]
		if !ok {
			stream = interp.NewStream[interp.TransformSnapshot](c.settings, c.sendRate)
			c.streams[e.ID] = stream
			c.logger.Debug("client: entity appeared", "entity", e.ID)
		}
		inserted := stream.Insert(interp.TransformSnapshot{
			Remote:   s.RemoteTime,
			Local:    now,
			Position: e.Position,
			Rotation: e.Rotation,
			Scale:    e.Scale,
		})
		metrics.SnapshotInserted(inserted)
	}

	for id := range c.streams {
		if _, ok := seen[id]; !ok {
			c.removeStream(id)
			c.logger.Debug("client: entity removed", "entity", id)
		}
	}
}

func (c *SyncClient) removeStream(id uint32) {
	delete(c.streams, id)
	delete(c.rendered, id)
	metrics.ForgetEntity(id)
}

func (c *SyncClient) applyCorrection(corr protocol.Correction) {
	if !c.welcomed || corr.EntityID != c.entityID {
		c.logger.Debug("client: correction for foreign entity", "entity", corr.EntityID)
		return
	}
	result, count := c.predictor.OnCorrection(corr)
	metrics.Correction(result, count)
	if result == metrics.CorrectionFailed {
		c.logger.Warn("client: correction outside prediction history",
			"timestamp", corr.Timestamp, "history", c.predictor.History().Len())
	}
}

// RecordInput 记录、发送并在本地预测一条输入
//
// 发送失败时输入仍被记录并参与预测，返回发送错误
func (c *SyncClient) RecordInput(name string, parameters []byte) (input.ClientInput, error) {
	in, sendErr := c.inputs.RecordInput(name, parameters)
	if err := c.predictor.ApplyInput(in); err != nil {
		return in, err
	}
	if sendErr != nil {
		return in, sendErr
	}
	metrics.InputSent()
	return in, nil
}

// Move 沿 dir 移动本地实体
func (c *SyncClient) Move(dir mathx.Vec3) (input.ClientInput, error) {
	return c.RecordInput(protocol.InputMove, protocol.EncodeMoveParams(dir))
}

// Stop 停止本地实体
func (c *SyncClient) Stop() (input.ClientInput, error) {
	return c.RecordInput(protocol.InputStop, nil)
}

// Tick 推进本地预测与所有远端时间线，返回当前渲染的变换
//
// 缓冲区为空的实体保持上一次的渲染结果
func (c *SyncClient) Tick(dt float64) map[uint32]interp.TransformSnapshot {
	now := c.clock()

	if c.welcomed {
		state := c.predictor.Advance(now)
		c.rendered[c.entityID] = interp.TransformSnapshot{
			Remote:   state.Time,
			Local:    now,
			Position: state.Position,
			Rotation: state.Rotation,
			Scale:    c.predictor.Body().Scale,
		}
	}

	for id, stream := range c.streams {
		from, to, t, ok := stream.Tick(dt)
		if ok {
			c.rendered[id] = interp.InterpolateTransform(from, to, t)
		}
		metrics.ObserveTimeline(id, stream.Timeline.LocalTimescale, stream.Drift(), stream.Buffer.Len())
	}
	return c.rendered
}
