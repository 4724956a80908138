// Package metrics 同步客户端与演示服务器的 prometheus 指标
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 纠正结果标签
const (
	CorrectionApplied = "applied"
	CorrectionSkipped = "skipped"
	CorrectionFailed  = "failed"
)

// -----------------------------------------------------------------------------
// 客户端
// -----------------------------------------------------------------------------

var (
	timelineTimescale = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "snapsync_timeline_timescale",
		Help: "Current playback timescale of each remote entity timeline",
	}, []string{"entity"})

	timelineDrift = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "snapsync_timeline_drift_seconds",
		Help: "Smoothed drift of each remote entity timeline minus its buffer time",
	}, []string{"entity"})

	timelineBufferSize = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "snapsync_timeline_buffer_size",
		Help: "Number of buffered snapshots per remote entity",
	}, []string{"entity"})

	snapshotsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "snapsync_snapshots_total",
		Help: "Snapshots offered to entity timelines by insert result",
	}, []string{"result"})

	correctionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "snapsync_corrections_total",
		Help: "Server corrections received by the local predictor by result",
	}, []string{"result"})

	correctedEntriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "snapsync_corrected_entries_total",
		Help: "History entries rewritten by reconciliation replays",
	})

	inputsSentTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "snapsync_inputs_sent_total",
		Help: "Inputs recorded and handed to the reliable sender",
	})
)

// -----------------------------------------------------------------------------
// 服务器
// -----------------------------------------------------------------------------

var (
	serverSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "snapsync_server_sessions",
		Help: "Connected sessions in the demo room",
	})

	serverInputsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "snapsync_server_inputs_dropped_total",
		Help: "Inputs dropped by the per-connection rate limiter",
	})
)

func entityLabel(id uint32) string {
	return strconv.FormatUint(uint64(id), 10)
}

// ObserveTimeline 记录一条实体时间线的状态
func ObserveTimeline(entity uint32, timescale, drift float64, bufferSize int) {
	label := entityLabel(entity)
	timelineTimescale.WithLabelValues(label).Set(timescale)
	timelineDrift.WithLabelValues(label).Set(drift)
	timelineBufferSize.WithLabelValues(label).Set(float64(bufferSize))
}

// ForgetEntity 删除已消失实体的标签
func ForgetEntity(entity uint32) {
	label := entityLabel(entity)
	timelineTimescale.DeleteLabelValues(label)
	timelineDrift.DeleteLabelValues(label)
	timelineBufferSize.DeleteLabelValues(label)
}

// SnapshotInserted 统计快照插入结果
func SnapshotInserted(ok bool) {
	if ok {
		snapshotsTotal.WithLabelValues("inserted").Inc()
		return
	}
	snapshotsTotal.WithLabelValues("rejected").Inc()
}

// Correction 统计一次纠正，entries 为重放写回的条目数
func Correction(result string, entries int) {
	correctionsTotal.WithLabelValues(result).Inc()
	if entries > 0 {
		correctedEntriesTotal.Add(float64(entries))
	}
}

// InputSent 统计已发送的输入
func InputSent() {
	inputsSentTotal.Inc()
}

// SessionOpened 会话数 +1
func SessionOpened() { serverSessions.Inc() }

// SessionClosed 会话数 -1
func SessionClosed() { serverSessions.Dec() }

// InputDropped 统计被限流丢弃的输入
func InputDropped() { serverInputsDropped.Inc() }

// Handler 返回 /metrics 处理器
func Handler() http.Handler {
	return promhttp.Handler()
}
