package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

type wsConn struct {
	conn *websocket.Conn
}

func newWSConn(conn *websocket.Conn) *wsConn {
	conn.SetReadLimit(MaxPacketSize)
	return &wsConn{conn: conn}
}

func dialWebSocket(url string) (Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: dialTimeout}
	conn, _, err := dialer.Dial(url, nil)
	if err != nil {
		return nil, err
	}
	return newWSConn(conn), nil
}

// ReadPacket 读取下一条二进制消息，跳过文本消息
func (c *wsConn) ReadPacket() ([]byte, error) {
	for {
		kind, data, err := c.conn.ReadMessage()
		if err != nil {
			if errors.Is(err, websocket.ErrReadLimit) {
				return nil, fmt.Errorf("%w: %v", ErrPacketTooLarge, err)
			}
			return nil, err
		}
		if kind == websocket.BinaryMessage {
			return data, nil
		}
	}
}

func (c *wsConn) WritePacket(data []byte) error {
	if len(data) > MaxPacketSize {
		return fmt.Errorf("%w: %d bytes", ErrPacketTooLarge, len(data))
	}
	return c.conn.WriteMessage(websocket.BinaryMessage, data)
}

func (c *wsConn) SetReadDeadline(t time.Time) error  { return c.conn.SetReadDeadline(t) }
func (c *wsConn) SetWriteDeadline(t time.Time) error { return c.conn.SetWriteDeadline(t) }
func (c *wsConn) RemoteAddr() net.Addr               { return c.conn.RemoteAddr() }

func (c *wsConn) Close() error {
	_ = c.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	return c.conn.Close()
}

// WebSocketAcceptor 将 HTTP 升级请求转换为 Conn
type WebSocketAcceptor struct {
	upgrader websocket.Upgrader
	conns    chan Conn
	done     chan struct{}
	once     sync.Once
	addr     net.Addr
}

// NewWebSocketAcceptor 创建 websocket 接入器，可挂载到任意 http.ServeMux
func NewWebSocketAcceptor() *WebSocketAcceptor {
	return &WebSocketAcceptor{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  MaxPacketSize,
			WriteBufferSize: MaxPacketSize,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		conns: make(chan Conn, 16),
		done:  make(chan struct{}),
	}
}

func (a *WebSocketAcceptor) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := a.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("transport: websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	select {
	case a.conns <- newWSConn(conn):
	case <-a.done:
		_ = conn.Close()
	}
}

// Accept 等待下一个升级完成的连接
func (a *WebSocketAcceptor) Accept() (Conn, error) {
	select {
	case conn := <-a.conns:
		return conn, nil
	case <-a.done:
		return nil, ErrListenerClosed
	}
}

func (a *WebSocketAcceptor) Close() error {
	a.once.Do(func() { close(a.done) })
	return nil
}

func (a *WebSocketAcceptor) Addr() net.Addr { return a.addr }

// wsListener 自带 HTTP 服务的 websocket 监听器
type wsListener struct {
	*WebSocketAcceptor
	server *http.Server
}

func listenWebSocket(addr string) (Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	acceptor := NewWebSocketAcceptor()
	acceptor.addr = ln.Addr()

	mux := http.NewServeMux()
	mux.Handle(wsPath, acceptor)
	server := &http.Server{Handler: mux, ReadHeaderTimeout: dialTimeout}

	go func() {
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("transport: websocket server stopped", "addr", addr, "error", err)
		}
	}()

	return &wsListener{WebSocketAcceptor: acceptor, server: server}, nil
}

func (l *wsListener) Close() error {
	_ = l.WebSocketAcceptor.Close()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	return l.server.Shutdown(ctx)
}
