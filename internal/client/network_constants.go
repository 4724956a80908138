package client

import "time"

// ===== 客户端网络配置 =====
const (
	// 收包队列：网络 goroutine 到 tick 循环
	PacketQueueSize = 256

	// 发送队列大小
	SendQueueSize = 256

	// 连接后等待 Welcome 的最长时间
	WelcomeTimeout = 10 * time.Second

	// 读超时：服务器按 send_rate 持续广播快照，超过此时间未收到数据视为断线
	ReadTimeout = 5 * time.Second

	// 写超时
	WriteTimeout = 1 * time.Second

	// 状态日志间隔
	StatusLogInterval = time.Second

	// 演示输入的切换间隔
	InputInterval = 1500 * time.Millisecond
)
