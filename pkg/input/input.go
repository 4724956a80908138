// Package input 将本地输入记录在有界 FIFO 中，并逐条通过可靠通道发给服务器
package input

import (
	"fmt"
)

// MaxHistoryLimit 历史上限需要放进一个字节
const MaxHistoryLimit = 255

// ClientInput 一条本地输入
type ClientInput struct {
	ID         uint32
	Name       string
	Parameters []byte
	Timestamp  float64
}

// Sender 可靠通道
type Sender interface {
	SendReliable(data []byte) error
}

// SenderFunc 将函数适配为 Sender
type SenderFunc func(data []byte) error

func (f SenderFunc) SendReliable(data []byte) error { return f(data) }

// Clock 返回当前时间（秒）
type Clock func() float64

// Accumulator 输入累积器
//
// 每条输入单独可靠发送，只在 FIFO 满时淘汰。非并发安全。
type Accumulator struct {
	historyLimit int
	clock        Clock
	sender       Sender

	lastID uint32
	inputs []ClientInput
}

// NewAccumulator 创建累积器，historyLimit 会被限制在 [1, 255]
func NewAccumulator(historyLimit int, clock Clock, sender Sender) *Accumulator {
	if historyLimit < 1 {
		historyLimit = 1
	}
	if historyLimit > MaxHistoryLimit {
		historyLimit = MaxHistoryLimit
	}
	return &Accumulator{
		historyLimit: historyLimit,
		clock:        clock,
		sender:       sender,
		inputs:       make([]ClientInput, 0, historyLimit),
	}
}

// RecordInput 记录并发送一条输入
//
// 发送失败时输入仍保留在记录中，返回包装后的发送错误
func (a *Accumulator) RecordInput(name string, parameters []byte) (ClientInput, error) {
	a.lastID++
	in := ClientInput{
		ID:         a.lastID,
		Name:       name,
		Parameters: parameters,
		Timestamp:  a.clock(),
	}

	if len(a.inputs) >= a.historyLimit {
		copy(a.inputs, a.inputs[1:])
		a.inputs = a.inputs[:len(a.inputs)-1]
	}
	a.inputs = append(a.inputs, in)

	if a.sender == nil {
		return in, nil
	}
	if err := a.sender.SendReliable(Marshal(in)); err != nil {
		return in, fmt.Errorf("发送输入 %d 失败: %w", in.ID, err)
	}
	return in, nil
}

// Len 当前记录数量
func (a *Accumulator) Len() int {
	return len(a.inputs)
}

// HistoryLimit 返回生效的历史上限
func (a *Accumulator) HistoryLimit() int {
	return a.historyLimit
}

// LastID 最近一条输入的 id，没有时为 0
func (a *Accumulator) LastID() uint32 {
	return a.lastID
}

// Inputs 按时间顺序返回记录的副本
func (a *Accumulator) Inputs() []ClientInput {
	out := make([]ClientInput, len(a.inputs))
	copy(out, a.inputs)
	return out
}
