// Package transport 基于 tcp、kcp、websocket 的分包连接
package transport

import (
	"errors"
	"fmt"
	"net"
	"time"

	kcp "github.com/xtaci/kcp-go/v5"
)

const (
	MaxPacketSize = 4096            // 最大消息大小
	dialTimeout   = 5 * time.Second // 连接超时
	wsPath        = "/ws"
)

var (
	// ErrPacketTooLarge 消息超过 MaxPacketSize
	ErrPacketTooLarge = errors.New("packet too large")
	// ErrUnsupportedProto 不支持的协议
	ErrUnsupportedProto = errors.New("unsupported protocol")
	// ErrListenerClosed 监听器已关闭
	ErrListenerClosed = errors.New("listener closed")
)

// Conn 以完整消息为单位读写的连接
//
// ReadPacket 与 WritePacket 可以并发调用，但各自同一时间只能由一个 goroutine 使用
type Conn interface {
	ReadPacket() ([]byte, error)
	WritePacket(data []byte) error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	RemoteAddr() net.Addr
	Close() error
}

// Listener 接受 Conn 的监听器
type Listener interface {
	Accept() (Conn, error)
	Close() error
	Addr() net.Addr
}

// Dial 按协议建立连接
func Dial(proto, addr string) (Conn, error) {
	switch proto {
	case "", "tcp":
		conn, err := net.DialTimeout("tcp", addr, dialTimeout)
		if err != nil {
			return nil, err
		}
		if tcpConn, ok := conn.(*net.TCPConn); ok {
			_ = tcpConn.SetNoDelay(true)
		}
		return NewStreamConn(conn), nil
	case "kcp":
		conn, err := kcp.DialWithOptions(addr, nil, 0, 0)
		if err != nil {
			return nil, err
		}
		conn.SetStreamMode(true)
		return NewStreamConn(conn), nil
	case "ws":
		return dialWebSocket("ws://" + addr + wsPath)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProto, proto)
	}
}

// Listen 按协议监听
func Listen(proto, addr string) (Listener, error) {
	switch proto {
	case "", "tcp":
		listener, err := net.Listen("tcp", addr)
		if err != nil {
			return nil, err
		}
		return &tcpListener{listener: listener}, nil
	case "kcp":
		listener, err := kcp.ListenWithOptions(addr, nil, 0, 0)
		if err != nil {
			return nil, err
		}
		return &kcpListener{listener: listener}, nil
	case "ws":
		return listenWebSocket(addr)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProto, proto)
	}
}

type tcpListener struct {
	listener net.Listener
}

func (l *tcpListener) Accept() (Conn, error) {
	conn, err := l.listener.Accept()
	if err != nil {
		return nil, err
	}
	// 开启 TCP_NODELAY，禁用 Nagle 算法以减少延迟
	if tcpConn, ok := conn.(*net.TCPConn); ok {
		_ = tcpConn.SetNoDelay(true)
	}
	return NewStreamConn(conn), nil
}

func (l *tcpListener) Close() error   { return l.listener.Close() }
func (l *tcpListener) Addr() net.Addr { return l.listener.Addr() }

type kcpListener struct {
	listener *kcp.Listener
}

func (l *kcpListener) Accept() (Conn, error) {
	session, err := l.listener.AcceptKCP()
	if err != nil {
		return nil, err
	}
	session.SetStreamMode(true)
	return NewStreamConn(session), nil
}

func (l *kcpListener) Close() error   { return l.listener.Close() }
func (l *kcpListener) Addr() net.Addr { return l.listener.Addr() }
