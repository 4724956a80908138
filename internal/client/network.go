package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"snapsync/internal/transport"
	"snapsync/pkg/input"
	"snapsync/pkg/protocol"
)

var (
	// ErrSendQueueFull 发送队列满
	ErrSendQueueFull = errors.New("send queue full")
	// ErrClosed 连接已关闭
	ErrClosed = errors.New("network client closed")
)

// NetworkClient 网络客户端
//
// 收到的包通过 Packets() 交出，由调用方的 tick goroutine 解码进同步状态
type NetworkClient struct {
	conn       transport.Conn
	serverAddr string
	proto      string
	logger     *slog.Logger

	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closeOnce sync.Once

	packetChan chan []byte
	sendChan   chan []byte
	errChan    chan error
}

// NewNetworkClient 创建网络客户端
func NewNetworkClient(serverAddr, proto string, logger *slog.Logger) *NetworkClient {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &NetworkClient{
		serverAddr: serverAddr,
		proto:      proto,
		logger:     logger,
		ctx:        ctx,
		cancel:     cancel,
		packetChan: make(chan []byte, PacketQueueSize),
		sendChan:   make(chan []byte, SendQueueSize),
		errChan:    make(chan error, 1),
	}
}

// Connect 连接到服务器并等待 Welcome
func (nc *NetworkClient) Connect() (protocol.Welcome, error) {
	nc.logger.Info("client: connecting", "addr", nc.serverAddr, "proto", nc.proto)

	conn, err := transport.Dial(nc.proto, nc.serverAddr)
	if err != nil {
		return protocol.Welcome{}, fmt.Errorf("连接服务器失败: %w", err)
	}
	return nc.start(conn)
}

func (nc *NetworkClient) start(conn transport.Conn) (protocol.Welcome, error) {
	nc.conn = conn
	nc.logger.Info("client: connected", "remote", conn.RemoteAddr())

	nc.wg.Add(2)
	go nc.receiveLoop()
	go nc.sendLoop()

	timeout := time.NewTimer(WelcomeTimeout)
	defer timeout.Stop()

	for {
		select {
		case data := <-nc.packetChan:
			pkt, err := protocol.UnmarshalPacket(data)
			if err != nil || pkt.Type != protocol.MessageTypeWelcome {
				nc.logger.Debug("client: packet before welcome dropped", "error", err)
				continue
			}
			w, err := protocol.ParseWelcome(pkt)
			if err != nil {
				nc.Close()
				return protocol.Welcome{}, err
			}
			return w, nil

		case err := <-nc.errChan:
			nc.Close()
			return protocol.Welcome{}, err

		case <-timeout.C:
			nc.Close()
			return protocol.Welcome{}, errors.New("等待 Welcome 超时")
		}
	}
}

// Close 关闭连接并等待所有 goroutine 结束
func (nc *NetworkClient) Close() {
	nc.closeOnce.Do(func() {
		nc.cancel()
		if nc.conn != nil {
			_ = nc.conn.Close()
		}
		nc.wg.Wait()
		nc.logger.Info("client: network closed")
	})
}

// Packets 收到的数据包
func (nc *NetworkClient) Packets() <-chan []byte { return nc.packetChan }

// Errors 连接错误，最多一个
func (nc *NetworkClient) Errors() <-chan error { return nc.errChan }

// Send 发送数据（异步）
func (nc *NetworkClient) Send(data []byte) error {
	if nc.ctx.Err() != nil {
		return ErrClosed
	}
	select {
	case nc.sendChan <- data:
		return nil
	default:
		return ErrSendQueueFull
	}
}

// InputSender 输入累积器使用的可靠发送通道
func (nc *NetworkClient) InputSender() input.Sender {
	return input.SenderFunc(func(payload []byte) error {
		return nc.Send(protocol.MarshalPacket(protocol.Packet{Type: protocol.MessageTypeInput, Payload: payload}))
	})
}

// ========== 消息接收 ==========

func (nc *NetworkClient) receiveLoop() {
	defer nc.wg.Done()

	for {
		_ = nc.conn.SetReadDeadline(time.Now().Add(ReadTimeout))
		data, err := nc.conn.ReadPacket()
		if err != nil {
			if nc.ctx.Err() == nil {
				nc.fail(readError(err))
			}
			return
		}
		if len(data) == 0 {
			continue
		}

		select {
		case nc.packetChan <- data:
		case <-nc.ctx.Done():
			return
		default:
			// 队列满，丢弃最新包；快照缓冲可以容忍丢失
			nc.logger.Warn("client: packet queue full, dropping packet")
		}
	}
}

func readError(err error) error {
	var netErr net.Error
	switch {
	case errors.Is(err, io.EOF):
		return fmt.Errorf("服务器关闭连接: %w", err)
	case errors.As(err, &netErr) && netErr.Timeout():
		return fmt.Errorf("读取超时: %w", err)
	default:
		return fmt.Errorf("读取失败: %w", err)
	}
}

func (nc *NetworkClient) fail(err error) {
	select {
	case nc.errChan <- err:
	default:
	}
}

// ========== 消息发送 ==========

func (nc *NetworkClient) sendLoop() {
	defer nc.wg.Done()

	for {
		select {
		case <-nc.ctx.Done():
			return

		case data := <-nc.sendChan:
			_ = nc.conn.SetWriteDeadline(time.Now().Add(WriteTimeout))
			if err := nc.conn.WritePacket(data); err != nil {
				if nc.ctx.Err() == nil {
					nc.fail(fmt.Errorf("发送失败: %w", err))
				}
				return
			}
		}
	}
}
