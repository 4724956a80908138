package server

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"snapsync/internal/metrics"
	"snapsync/pkg/core"
	"snapsync/pkg/input"
	"snapsync/pkg/protocol"
)

// ErrRoomClosed 房间已关闭
var ErrRoomClosed = errors.New("room closed")

// Room 单个权威房间：模拟、快照广播、输入处理与纠正
//
// 房间状态只由 Run goroutine 持有，会话通过 Join、EnqueueInput、Leave 与之通信
type Room struct {
	ctx    context.Context
	cancel context.CancelFunc
	logger *slog.Logger

	world    *core.World
	sessions map[uint32]Session
	tickRate float64
	sendRate float64
	start    time.Time

	nextBroadcast float64
	broadcasted   bool

	joinCh  chan joinRequest
	inputCh chan inputEvent
	leaveCh chan uint32
}

type joinRequest struct {
	session Session
	respCh  chan error
}

type inputEvent struct {
	entityID uint32
	input    input.ClientInput
}

// NewRoom 创建房间，tickRate 为模拟频率，sendRate 为快照广播频率
func NewRoom(parent context.Context, tickRate, sendRate float64, logger *slog.Logger) *Room {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(parent)
	return &Room{
		ctx:      ctx,
		cancel:   cancel,
		logger:   logger,
		world:    core.NewWorld(),
		sessions: make(map[uint32]Session),
		tickRate: tickRate,
		sendRate: sendRate,
		start:    time.Now(),
		joinCh:   make(chan joinRequest),
		inputCh:  make(chan inputEvent, 256),
		leaveCh:  make(chan uint32, 256),
	}
}

// serverTime 房间启动以来的秒数，作为快照的远端时间
func (r *Room) serverTime() float64 {
	return time.Since(r.start).Seconds()
}

func (r *Room) Run(wg *sync.WaitGroup) {
	defer wg.Done()

	ticker := time.NewTicker(time.Duration(float64(time.Second) / r.tickRate))
	defer ticker.Stop()

	r.logger.Info("room: loop started", "tick_rate", r.tickRate, "send_rate", r.sendRate)

	last := time.Now()
	for {
		select {
		case <-r.ctx.Done():
			r.closeAll()
			r.logger.Info("room: loop stopped")
			return

		case req := <-r.joinCh:
			req.respCh <- r.handleJoin(req.session)

		case ev := <-r.inputCh:
			r.handleInput(ev)

		case id := <-r.leaveCh:
			r.handleLeave(id)

		case now := <-ticker.C:
			r.tick(now.Sub(last).Seconds(), r.serverTime())
			last = now
		}
	}
}

func (r *Room) Shutdown() {
	r.cancel()
}

// Join 把会话加入房间，成功后会话已收到 Welcome
func (r *Room) Join(s Session) error {
	respCh := make(chan error, 1)

	select {
	case <-r.ctx.Done():
		return ErrRoomClosed
	case r.joinCh <- joinRequest{session: s, respCh: respCh}:
	}

	select {
	case <-r.ctx.Done():
		return ErrRoomClosed
	case err := <-respCh:
		return err
	}
}

func (r *Room) EnqueueInput(entityID uint32, in input.ClientInput) {
	select {
	case <-r.ctx.Done():
	case r.inputCh <- inputEvent{entityID: entityID, input: in}:
	}
}

func (r *Room) Leave(entityID uint32) {
	select {
	case <-r.ctx.Done():
	case r.leaveCh <- entityID:
	}
}

func (r *Room) tick(dt, now float64) {
	r.world.Update(dt)

	// 半个 tick 的容差吸收浮点误差和 ticker 抖动
	if r.broadcasted && now+dt/2 < r.nextBroadcast {
		return
	}
	r.broadcastSnapshot(now)

	interval := 1 / r.sendRate
	if !r.broadcasted {
		r.nextBroadcast = now
		r.broadcasted = true
	}
	// 按整数个间隔推进；落后超过一个间隔时重新对齐，不补发
	r.nextBroadcast += interval
	if r.nextBroadcast <= now {
		r.nextBroadcast = now + interval
	}
}

func (r *Room) handleJoin(s Session) error {
	body := r.world.Spawn()
	s.SetEntityID(body.ID)

	data := protocol.NewWelcomePacket(protocol.Welcome{
		EntityID:   body.ID,
		SendRate:   r.sendRate,
		ServerTime: r.serverTime(),
		Spawn:      body.Position,
	})
	if err := s.Send(data); err != nil {
		r.world.Remove(body.ID)
		s.SetEntityID(0)
		return err
	}

	r.sessions[body.ID] = s
	metrics.SessionOpened()
	r.logger.Info("room: session joined",
		"session", s.ID(), "entity", body.ID, "spawn", body.Position, "sessions", len(r.sessions))
	return nil
}

// handleInput 立即应用输入，并以输入时间戳回发该实体的权威状态
func (r *Room) handleInput(ev inputEvent) {
	s, ok := r.sessions[ev.entityID]
	if !ok {
		return
	}
	body, ok := r.world.Body(ev.entityID)
	if !ok {
		return
	}

	if err := core.ApplyInput(body, ev.input); err != nil {
		r.logger.Warn("room: input rejected", "session", s.ID(), "entity", ev.entityID, "error", err)
		return
	}

	data := protocol.NewCorrectionPacket(body.Correction(ev.input.Timestamp))
	if err := s.Send(data); err != nil {
		r.logger.Warn("room: correction not sent", "session", s.ID(), "error", err)
	}
}

func (r *Room) handleLeave(entityID uint32) {
	s, ok := r.sessions[entityID]
	if !ok {
		return
	}
	delete(r.sessions, entityID)
	r.world.Remove(entityID)
	metrics.SessionClosed()

	r.logger.Info("room: session left", "session", s.ID(), "entity", entityID, "sessions", len(r.sessions))
}

func (r *Room) broadcastSnapshot(now float64) {
	if len(r.sessions) == 0 {
		return
	}
	data := protocol.NewSnapshotPacket(r.world.Snapshot(now))
	for id, s := range r.sessions {
		if err := s.Send(data); err != nil {
			r.logger.Warn("room: snapshot not sent", "session", s.ID(), "entity", id, "error", err)
		}
	}
}

func (r *Room) closeAll() {
	for id, s := range r.sessions {
		s.Close()
		delete(r.sessions, id)
		metrics.SessionClosed()
	}
}
