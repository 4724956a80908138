package transport

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"time"
)

// streamConn 在字节流上使用 4 字节大端长度前缀分帧
type streamConn struct {
	conn net.Conn
}

// NewStreamConn 包装一个字节流连接
func NewStreamConn(conn net.Conn) Conn {
	return &streamConn{conn: conn}
}

func (c *streamConn) ReadPacket() ([]byte, error) {
	var header [4]byte
	if _, err := io.ReadFull(c.conn, header[:]); err != nil {
		return nil, err
	}

	length := binary.BigEndian.Uint32(header[:])
	if length > MaxPacketSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrPacketTooLarge, length)
	}

	data := make([]byte, length)
	if _, err := io.ReadFull(c.conn, data); err != nil {
		return nil, err
	}
	return data, nil
}

func (c *streamConn) WritePacket(data []byte) error {
	if len(data) > MaxPacketSize {
		return fmt.Errorf("%w: %d bytes", ErrPacketTooLarge, len(data))
	}

	// 长度前缀与消息体一次写出
	buf := make([]byte, 4+len(data))
	binary.BigEndian.PutUint32(buf, uint32(len(data)))
	copy(buf[4:], data)
	_, err := c.conn.Write(buf)
	return err
}

func (c *streamConn) SetReadDeadline(t time.Time) error  { return c.conn.SetReadDeadline(t) }
func (c *streamConn) SetWriteDeadline(t time.Time) error { return c.conn.SetWriteDeadline(t) }
func (c *streamConn) RemoteAddr() net.Addr               { return c.conn.RemoteAddr() }
func (c *streamConn) Close() error                       { return c.conn.Close() }
