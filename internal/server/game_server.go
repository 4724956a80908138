// Package server 权威演示房间，向同步客户端下发快照和纠正
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"snapsync/internal/config"
	"snapsync/internal/transport"
)

// GameServer 演示服务器
type GameServer struct {
	cfg    config.NetworkConfig
	room   *Room
	logger *slog.Logger

	// 网络
	listener transport.Listener

	// 控制
	ctx          context.Context
	cancel       context.CancelFunc
	wg           sync.WaitGroup
	shutdown     chan struct{}
	shutdownOnce sync.Once
}

// NewGameServer 创建新的游戏服务器
func NewGameServer(cfg config.NetworkConfig, logger *slog.Logger) *GameServer {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &GameServer{
		cfg:      cfg,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
		shutdown: make(chan struct{}),
	}
}

// Listen 开始监听并启动房间与接受循环，不阻塞
func (s *GameServer) Listen() error {
	listener, err := transport.Listen(s.cfg.Proto, s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("监听失败: %w", err)
	}
	s.listener = listener
	s.logger.Info("server: listening", "addr", listener.Addr(), "proto", s.cfg.Proto)

	s.room = NewRoom(s.ctx, s.cfg.TickRate, s.cfg.SendRate, s.logger)

	// 启动房间循环
	s.wg.Add(1)
	go s.room.Run(&s.wg)

	// 启动连接接受循环
	s.wg.Add(1)
	go s.acceptLoop()
	return nil
}

// Start 启动服务器并阻塞到 Shutdown
func (s *GameServer) Start() error {
	if err := s.Listen(); err != nil {
		return err
	}
	<-s.shutdown
	return nil
}

// Addr 监听地址，Listen 之前为 nil
func (s *GameServer) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Shutdown 优雅关闭服务器
func (s *GameServer) Shutdown() {
	s.shutdownOnce.Do(func() {
		s.logger.Info("server: shutting down")

		s.cancel()
		if s.room != nil {
			s.room.Shutdown()
		}
		if s.listener != nil {
			_ = s.listener.Close()
		}
		close(s.shutdown)

		s.wg.Wait()
		s.logger.Info("server: stopped")
	})
}

// acceptLoop 接受客户端连接
func (s *GameServer) acceptLoop() {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if s.ctx.Err() != nil {
				return
			}
			s.logger.Warn("server: accept failed", "error", err)
			continue
		}

		connection := NewConnection(conn, s.room, s.cfg.MaxInputsPerSecond, s.logger)

		s.wg.Add(1)
		go connection.Handle(s.ctx, &s.wg)
	}
}
