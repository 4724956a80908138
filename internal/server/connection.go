package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"snapsync/internal/metrics"
	"snapsync/internal/transport"
	"snapsync/pkg/protocol"
)

const (
	writeTimeout  = 1 * time.Second // 写入超时
	sendQueueSize = 256             // 发送队列缓冲区
)

var (
	// ErrSendQueueFull 发送队列满
	ErrSendQueueFull = errors.New("send queue full")
	// ErrConnectionClosed 连接已关闭
	ErrConnectionClosed = errors.New("connection closed")
)

// Connection 表示一个客户端连接
type Connection struct {
	id       string
	conn     transport.Conn
	room     *Room
	logger   *slog.Logger
	limiter  *rate.Limiter
	entityID atomic.Uint32

	// 发送队列
	sendChan chan []byte
	closeCh  chan struct{}
	closed   bool
	closeMu  sync.Mutex
}

// NewConnection 创建新连接，maxInputsPerSecond 限制输入频率
func NewConnection(conn transport.Conn, room *Room, maxInputsPerSecond float64, logger *slog.Logger) *Connection {
	id := uuid.NewString()
	if logger == nil {
		logger = slog.Default()
	}
	burst := int(maxInputsPerSecond)
	if burst < 1 {
		burst = 1
	}
	return &Connection{
		id:       id,
		conn:     conn,
		room:     room,
		logger:   logger.With("session", id),
		limiter:  rate.NewLimiter(rate.Limit(maxInputsPerSecond), burst),
		sendChan: make(chan []byte, sendQueueSize),
		closeCh:  make(chan struct{}),
	}
}

func (c *Connection) ID() string            { return c.id }
func (c *Connection) EntityID() uint32      { return c.entityID.Load() }
func (c *Connection) SetEntityID(id uint32) { c.entityID.Store(id) }
func (c *Connection) RemoteAddr() net.Addr  { return c.conn.RemoteAddr() }

// Handle 处理连接：启动收发循环并加入房间
func (c *Connection) Handle(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()

	c.logger.Info("server: connection opened", "remote", c.conn.RemoteAddr())

	// 先启动发送循环，Welcome 才能发出
	wg.Add(1)
	go c.sendLoop(ctx, wg)

	if err := c.room.Join(c); err != nil {
		c.logger.Warn("server: join failed", "error", err)
		c.Close()
		return
	}

	wg.Add(1)
	go c.receiveLoop(ctx, wg)

	// 等待上下文取消或连接关闭
	select {
	case <-ctx.Done():
	case <-c.closeCh:
	}

	c.Close()
}

// Close 关闭连接并通知房间移除实体
func (c *Connection) Close() {
	c.closeMu.Lock()
	if c.closed {
		c.closeMu.Unlock()
		return
	}
	c.closed = true
	close(c.closeCh)
	c.closeMu.Unlock()

	_ = c.conn.Close()

	// 不持锁通知房间，房间可能正在向本连接发送
	if id := c.EntityID(); id != 0 {
		c.room.Leave(id)
	}
	c.logger.Info("server: connection closed", "entity", c.EntityID())
}

// Send 发送数据（异步）
func (c *Connection) Send(data []byte) error {
	c.closeMu.Lock()
	defer c.closeMu.Unlock()
	if c.closed {
		return ErrConnectionClosed
	}

	select {
	case c.sendChan <- data:
		return nil
	default:
		return ErrSendQueueFull
	}
}

func (c *Connection) sendLoop(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.closeCh:
			return

		case data := <-c.sendChan:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WritePacket(data); err != nil {
				c.logger.Warn("server: write failed", "error", err)
				go c.Close()
				return
			}
		}
	}
}

func (c *Connection) receiveLoop(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()

	for {
		data, err := c.conn.ReadPacket()
		if err != nil {
			if ctx.Err() == nil && !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				c.logger.Warn("server: read failed", "error", err)
			}
			go c.Close()
			return
		}
		if len(data) == 0 {
			continue
		}

		if err := c.handleMessage(data); err != nil {
			c.logger.Warn("server: message rejected", "error", err)
		}
	}
}

// handleMessage 处理接收到的消息
func (c *Connection) handleMessage(data []byte) error {
	pkt, err := protocol.UnmarshalPacket(data)
	if err != nil {
		return fmt.Errorf("反序列化失败: %w", err)
	}

	switch pkt.Type {
	case protocol.MessageTypeInput:
		in, err := protocol.ParseInput(pkt)
		if err != nil {
			return err
		}
		if !c.limiter.Allow() {
			metrics.InputDropped()
			c.logger.Debug("server: input rate limited", "input", in.ID)
			return nil
		}
		c.room.EnqueueInput(c.EntityID(), in)
		return nil

	default:
		return fmt.Errorf("%w: %s", protocol.ErrUnexpectedType, pkt.Type)
	}
}

// String 返回连接的字符串表示
func (c *Connection) String() string {
	return fmt.Sprintf("Connection{%s, %d, %s}", c.id, c.EntityID(), c.conn.RemoteAddr())
}
