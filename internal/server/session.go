package server

// Session 房间看到的一个客户端连接
type Session interface {
	ID() string
	EntityID() uint32
	SetEntityID(id uint32)
	Send(data []byte) error
	Close()
}
