// Package prediction 用迟到的权威纠正修正本地预测历史
//
// 预测状态同时保存绝对值和相对上一条记录的增量。过去时刻的纠正到达后插入历史，
// 其后继的增量按缩短后的时间跨度缩放，之后的增量依次叠加到纠正值上重放。
//
// 状态是值类型：修改时取出副本，改完按原 key 写回。
package prediction

import (
	"snapsync/pkg/history"
	"snapsync/pkg/mathx"
)

// State 预测状态约束
//
// Advance 以 prev 为基础重算：每个绝对值等于 prev 的绝对值加自身增量，时间戳与增量不变
type State[T any] interface {
	Timestamp() float64
	AdjustDeltas(multiplier float64) T
	Advance(prev T) T
}

// Record 追加一条预测状态，超出 limit 时淘汰最旧的
func Record[T State[T]](h *history.Buffer[T], limit int, state T) {
	if h.Len() >= limit && !h.Contains(state.Timestamp()) {
		h.RemoveAt(0)
	}
	h.Set(state.Timestamp(), state)
}

// Sample 找到包围 timestamp 的两条记录
//
// 至少需要两条记录；timestamp 早于最旧或晚于最新记录时返回 ok=false。
// 精确命中返回同一条记录两次，t 为 0。
func Sample[T State[T]](h *history.Buffer[T], timestamp float64) (before, after T, afterIndex int, t float64, ok bool) {
	n := h.Len()
	if n < 2 || timestamp < h.KeyAt(0) {
		return before, after, -1, 0, false
	}

	for i := 0; i < n; i++ {
		key := h.KeyAt(i)
		if timestamp == key {
			e := h.At(i)
			return e, e, i, 0, true
		}
		if timestamp < key {
			prevKey := h.KeyAt(i - 1)
			return h.At(i - 1), h.At(i), i, mathx.InverseLerp(prevKey, key, timestamp), true
		}
	}
	return before, after, -1, 0, false
}

// InsertCorrection 写入纠正状态并缩放其后一条记录的增量
//
// before/after 必须是 Sample 返回的区间，满足
// before.Timestamp() <= corrected.Timestamp() <= after.Timestamp()，此处不做检查
func InsertCorrection[T State[T]](h *history.Buffer[T], limit int, corrected, before, after T) {
	if h.Len() >= limit && !h.Contains(corrected.Timestamp()) {
		h.RemoveAt(0)
	}
	h.Set(corrected.Timestamp(), corrected)

	// 精确命中：修正直接取代原记录，后继的 delta 仍相对同一时刻
	if after.Timestamp() == corrected.Timestamp() {
		return
	}

	previousDeltaTime := after.Timestamp() - before.Timestamp()
	correctedDeltaTime := after.Timestamp() - corrected.Timestamp()
	multiplier := 0.0
	if previousDeltaTime != 0 {
		multiplier = correctedDeltaTime / previousDeltaTime
	}

	after = after.AdjustDeltas(multiplier)
	h.Set(after.Timestamp(), after)
}

// CorrectHistory 从修正点向后重放每条记录的 delta
//
// 返回重放后的最新状态以及被重算的记录数量。每条重算结果都会写回历史，
// 之后的修正可以在此基础上继续链式进行。
func CorrectHistory[T State[T]](h *history.Buffer[T], corrected T) (latest T, count int) {
	latest = corrected
	for i := h.UpperBound(corrected.Timestamp()); i < h.Len(); i++ {
		entry := h.At(i).Advance(latest)
		h.SetAt(i, entry)
		latest = entry
		count++
	}
	return latest, count
}

// Reconcile 组合 Sample、InsertCorrection 与 CorrectHistory
//
// 历史无法包住纠正时刻时 ok 为 false，历史保持不变
func Reconcile[T State[T]](h *history.Buffer[T], limit int, corrected T) (latest T, count int, ok bool) {
	before, after, _, _, ok := Sample(h, corrected.Timestamp())
	if !ok {
		return latest, 0, false
	}
	InsertCorrection(h, limit, corrected, before, after)
	latest, count = CorrectHistory(h, corrected)
	return latest, count, true
}
