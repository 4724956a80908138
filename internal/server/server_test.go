package server

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"snapsync/internal/config"
	"snapsync/internal/transport"
	"snapsync/pkg/core"
	"snapsync/pkg/input"
	"snapsync/pkg/mathx"
	"snapsync/pkg/protocol"
)

type fakeSession struct {
	mu       sync.Mutex
	id       string
	entityID uint32
	sent     []protocol.Packet
	closed   bool
	err      error
}

func (s *fakeSession) ID() string            { return s.id }
func (s *fakeSession) EntityID() uint32      { return s.entityID }
func (s *fakeSession) SetEntityID(id uint32) { s.entityID = id }
func (s *fakeSession) Close()                { s.closed = true }

func (s *fakeSession) Send(data []byte) error {
	if s.err != nil {
		return s.err
	}
	pkt, err := protocol.UnmarshalPacket(data)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.sent = append(s.sent, pkt)
	s.mu.Unlock()
	return nil
}

func (s *fakeSession) last(t *testing.T) protocol.Packet {
	t.Helper()
	require.NotEmpty(t, s.sent)
	return s.sent[len(s.sent)-1]
}

func newTestRoom(t *testing.T) *Room {
	t.Helper()
	r := NewRoom(context.Background(), 60, 20, nil)
	t.Cleanup(r.Shutdown)
	return r
}

func moveInput(id uint32, ts float64, dir mathx.Vec3) input.ClientInput {
	return input.ClientInput{ID: id, Name: protocol.InputMove, Parameters: protocol.EncodeMoveParams(dir), Timestamp: ts}
}

func TestRoomJoinSendsWelcome(t *testing.T) {
	r := newTestRoom(t)
	a := &fakeSession{id: "a"}
	b := &fakeSession{id: "b"}

	require.NoError(t, r.handleJoin(a))
	require.NoError(t, r.handleJoin(b))
	require.Equal(t, uint32(1), a.EntityID())
	require.Equal(t, uint32(2), b.EntityID())

	w, err := protocol.ParseWelcome(b.last(t))
	require.NoError(t, err)
	require.Equal(t, uint32(2), w.EntityID)
	require.Equal(t, 20.0, w.SendRate)
	require.Equal(t, core.SpawnSpacing, w.Spawn.X)
}

func TestRoomJoinFailsWhenWelcomeNotSent(t *testing.T) {
	r := newTestRoom(t)
	s := &fakeSession{id: "a", err: ErrSendQueueFull}

	require.ErrorIs(t, r.handleJoin(s), ErrSendQueueFull)
	require.Zero(t, s.EntityID())
	require.Zero(t, r.world.Len())
	require.Empty(t, r.sessions)
}

func TestRoomInputSendsCorrectionAtInputTimestamp(t *testing.T) {
	r := newTestRoom(t)
	s := &fakeSession{id: "a"}
	require.NoError(t, r.handleJoin(s))

	r.handleInput(inputEvent{entityID: s.EntityID(), input: moveInput(1, 3.25, mathx.NewVec3(1, 0, 0))})

	c, err := protocol.ParseCorrection(s.last(t))
	require.NoError(t, err)
	require.Equal(t, s.EntityID(), c.EntityID)
	require.Equal(t, 3.25, c.Timestamp)
	require.Equal(t, core.MoveSpeed, c.Velocity.X)
}

func TestRoomRejectsUnknownInput(t *testing.T) {
	r := newTestRoom(t)
	s := &fakeSession{id: "a"}
	require.NoError(t, r.handleJoin(s))
	sent := len(s.sent)

	r.handleInput(inputEvent{entityID: s.EntityID(), input: input.ClientInput{ID: 1, Name: "jump"}})
	require.Len(t, s.sent, sent)

	// 未加入的实体被忽略
	r.handleInput(inputEvent{entityID: 99, input: moveInput(2, 0, mathx.NewVec3(1, 0, 0))})
	require.Len(t, s.sent, sent)
}

func TestRoomTickBroadcastsAtSendRate(t *testing.T) {
	tests := []struct {
		name     string
		sendRate float64
		want     int
	}{
		{name: "20Hz", sendRate: 20, want: 20},
		{name: "30Hz", sendRate: 30, want: 30},
		{name: "60Hz", sendRate: 60, want: 60},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRoom(context.Background(), 60, tt.sendRate, nil)
			t.Cleanup(r.Shutdown)
			s := &fakeSession{id: "a"}
			require.NoError(t, r.handleJoin(s))
			r.handleInput(inputEvent{entityID: s.EntityID(), input: moveInput(1, 0, mathx.NewVec3(1, 0, 0))})

			// 60 Hz 模拟一秒
			for i := 1; i <= 60; i++ {
				r.tick(1.0/60, float64(i)/60)
			}

			n := 0
			for _, p := range s.sent {
				if p.Type == protocol.MessageTypeSnapshot {
					n++
				}
			}
			require.Equal(t, tt.want, n)

			snap, err := protocol.ParseSnapshot(s.last(t))
			require.NoError(t, err)
			require.Len(t, snap.Entities, 1)
			require.InDelta(t, core.MoveSpeed, snap.Entities[0].Position.X, 0.3)
		})
	}
}

func TestRoomTickBroadcastsUnderJitter(t *testing.T) {
	r := newTestRoom(t)
	s := &fakeSession{id: "a"}
	require.NoError(t, r.handleJoin(s))

	// tick 间隔在 1/60 附近抖动
	now := 0.0
	jitter := []float64{0.002, -0.003, 0.001, -0.001, 0.003, -0.002}
	for i := 0; i < 120; i++ {
		dt := 1.0/60 + jitter[i%len(jitter)]
		now += dt
		r.tick(dt, now)
	}

	n := 0
	for _, p := range s.sent {
		if p.Type == protocol.MessageTypeSnapshot {
			n++
		}
	}
	require.Equal(t, 40, n)
}

func TestRoomTickRealignsAfterStall(t *testing.T) {
	r := newTestRoom(t)
	s := &fakeSession{id: "a"}
	require.NoError(t, r.handleJoin(s))

	r.tick(1.0/60, 0)
	// 停顿一秒后只补发一次
	r.tick(1, 1)
	r.tick(1.0/60, 1+1.0/60)
	r.tick(1.0/60, 1+2.0/60)

	n := 0
	for _, p := range s.sent {
		if p.Type == protocol.MessageTypeSnapshot {
			n++
		}
	}
	require.Equal(t, 2, n)
}

func TestRoomLeaveRemovesEntity(t *testing.T) {
	r := newTestRoom(t)
	a := &fakeSession{id: "a"}
	b := &fakeSession{id: "b"}
	require.NoError(t, r.handleJoin(a))
	require.NoError(t, r.handleJoin(b))

	r.handleLeave(a.EntityID())
	r.handleLeave(a.EntityID())
	require.Equal(t, 1, r.world.Len())

	r.tick(0.1, 1)
	snap, err := protocol.ParseSnapshot(b.last(t))
	require.NoError(t, err)
	require.Len(t, snap.Entities, 1)
	require.Equal(t, b.EntityID(), snap.Entities[0].ID)
}

func TestConnectionRateLimitsInputs(t *testing.T) {
	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()

	r := newTestRoom(t)
	c := NewConnection(transport.NewStreamConn(a), r, 2, nil)
	c.SetEntityID(1)

	for i := 1; i <= 5; i++ {
		require.NoError(t, c.handleMessage(protocol.NewInputPacket(input.ClientInput{ID: uint32(i), Name: protocol.InputStop})))
	}
	require.Len(t, r.inputCh, 2)

	err := c.handleMessage(protocol.NewSnapshotPacket(protocol.Snapshot{}))
	require.ErrorIs(t, err, protocol.ErrUnexpectedType)
}

func TestConnectionSendAfterClose(t *testing.T) {
	a, b := net.Pipe()
	defer b.Close()

	r := newTestRoom(t)
	c := NewConnection(transport.NewStreamConn(a), r, 10, nil)
	c.Close()
	c.Close()
	require.ErrorIs(t, c.Send([]byte{1}), ErrConnectionClosed)
}

func readUntil(t *testing.T, conn transport.Conn, want protocol.MessageType) protocol.Packet {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	require.NoError(t, conn.SetReadDeadline(deadline))
	for {
		data, err := conn.ReadPacket()
		require.NoError(t, err)
		pkt, err := protocol.UnmarshalPacket(data)
		require.NoError(t, err)
		if pkt.Type == want {
			return pkt
		}
	}
}

func TestGameServerEndToEnd(t *testing.T) {
	cfg := config.Default().Network
	cfg.Addr = "127.0.0.1:0"

	srv := NewGameServer(cfg, nil)
	require.NoError(t, srv.Listen())
	defer srv.Shutdown()

	conn, err := transport.Dial("tcp", srv.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	w, err := protocol.ParseWelcome(readUntil(t, conn, protocol.MessageTypeWelcome))
	require.NoError(t, err)
	require.Equal(t, uint32(1), w.EntityID)
	require.Equal(t, cfg.SendRate, w.SendRate)

	snap, err := protocol.ParseSnapshot(readUntil(t, conn, protocol.MessageTypeSnapshot))
	require.NoError(t, err)
	require.Len(t, snap.Entities, 1)

	require.NoError(t, conn.WritePacket(protocol.NewInputPacket(moveInput(1, 0.75, mathx.NewVec3(0, 0, 1)))))
	c, err := protocol.ParseCorrection(readUntil(t, conn, protocol.MessageTypeCorrection))
	require.NoError(t, err)
	require.Equal(t, 0.75, c.Timestamp)
	require.Equal(t, core.MoveSpeed, c.Velocity.Z)
}
