// Package history 以 float64 时间戳为键的有序映射
//
// 条目存放在按 key 排序的切片中：查找为二分，按位置访问为 O(1)。
// 缓冲区通常只有几十条，插入时的 O(n) 移动比树结构更省。
package history

import (
	"slices"
)

type entry[T any] struct {
	key   float64
	value T
}

// Buffer 按时间戳排序的有序映射
type Buffer[T any] struct {
	entries []entry[T]
}

// New 创建预留 capacity 的缓冲区
func New[T any](capacity int) *Buffer[T] {
	if capacity < 0 {
		capacity = 0
	}
	return &Buffer[T]{entries: make([]entry[T], 0, capacity)}
}

// Len 返回条目数量
func (b *Buffer[T]) Len() int {
	return len(b.entries)
}

func (b *Buffer[T]) search(key float64) (int, bool) {
	return slices.BinarySearchFunc(b.entries, key, func(e entry[T], k float64) int {
		switch {
		case e.key < k:
			return -1
		case e.key > k:
			return 1
		default:
			return 0
		}
	})
}

// Set 插入或覆盖 key 对应的值
func (b *Buffer[T]) Set(key float64, value T) {
	i, found := b.search(key)
	if found {
		b.entries[i].value = value
		return
	}
	b.entries = slices.Insert(b.entries, i, entry[T]{key: key, value: value})
}

// Add 仅在 key 不存在时插入，返回是否插入
func (b *Buffer[T]) Add(key float64, value T) bool {
	i, found := b.search(key)
	if found {
		return false
	}
	b.entries = slices.Insert(b.entries, i, entry[T]{key: key, value: value})
	return true
}

// Get 按 key 查找
func (b *Buffer[T]) Get(key float64) (T, bool) {
	i, found := b.search(key)
	if !found {
		var zero T
		return zero, false
	}
	return b.entries[i].value, true
}

// Contains 判断 key 是否存在
func (b *Buffer[T]) Contains(key float64) bool {
	_, found := b.search(key)
	return found
}

// UpperBound 返回第一个严格大于 key 的位置
func (b *Buffer[T]) UpperBound(key float64) int {
	i, found := b.search(key)
	if found {
		return i + 1
	}
	return i
}

// At 按位置取值（越界会 panic，与切片一致）
func (b *Buffer[T]) At(i int) T {
	return b.entries[i].value
}

// KeyAt 按位置取 key
func (b *Buffer[T]) KeyAt(i int) float64 {
	return b.entries[i].key
}

// SetAt 替换位置 i 的值，key 不变
func (b *Buffer[T]) SetAt(i int, value T) {
	b.entries[i].value = value
}

// First 返回最早的条目
func (b *Buffer[T]) First() (T, bool) {
	if len(b.entries) == 0 {
		var zero T
		return zero, false
	}
	return b.entries[0].value, true
}

// Last 返回最新的条目
func (b *Buffer[T]) Last() (T, bool) {
	if len(b.entries) == 0 {
		var zero T
		return zero, false
	}
	return b.entries[len(b.entries)-1].value, true
}

// RemoveAt 删除位置 i 的条目
func (b *Buffer[T]) RemoveAt(i int) {
	b.entries = slices.Delete(b.entries, i, i+1)
}

// RemoveRange 删除最前面的 n 个条目
func (b *Buffer[T]) RemoveRange(n int) {
	if n <= 0 {
		return
	}
	if n >= len(b.entries) {
		b.Clear()
		return
	}
	b.entries = slices.Delete(b.entries, 0, n)
}

// Clear 清空缓冲区，保留底层容量
func (b *Buffer[T]) Clear() {
	clear(b.entries)
	b.entries = b.entries[:0]
}

// Keys 按升序返回所有 key 的副本
func (b *Buffer[T]) Keys() []float64 {
	keys := make([]float64, len(b.entries))
	for i, e := range b.entries {
		keys[i] = e.key
	}
	return keys
}
