// Package config 加载客户端和服务器共用的 YAML 配置
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"snapsync/pkg/input"
	"snapsync/pkg/interp"
)

// ErrInvalidConfig 配置校验失败
var ErrInvalidConfig = errors.New("invalid configuration")

// Config 完整配置
type Config struct {
	Snapshot   SnapshotConfig   `yaml:"snapshot"`
	Prediction PredictionConfig `yaml:"prediction"`
	Input      InputConfig      `yaml:"input"`
	Network    NetworkConfig    `yaml:"network"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// SnapshotConfig 快照插值参数
type SnapshotConfig struct {
	BufferTimeMultiplier       float64 `yaml:"buffer_time_multiplier"`
	BufferLimit                int     `yaml:"buffer_limit"`
	CatchupNegativeThreshold   float64 `yaml:"catchup_negative_threshold"` // 单位为 sendInterval
	CatchupPositiveThreshold   float64 `yaml:"catchup_positive_threshold"`
	CatchupSpeed               float64 `yaml:"catchup_speed"`  // 0..1
	SlowdownSpeed              float64 `yaml:"slowdown_speed"` // 0..1
	DriftEmaDuration           int     `yaml:"drift_ema_duration"`
	DynamicAdjustment          bool    `yaml:"dynamic_adjustment"`
	DynamicAdjustmentTolerance float64 `yaml:"dynamic_adjustment_tolerance"`
	DeliveryTimeEmaDuration    int     `yaml:"delivery_time_ema_duration"`
}

// PredictionConfig 本地预测参数
type PredictionConfig struct {
	StateHistoryLimit           int     `yaml:"state_history_limit"`
	PositionCorrectionThreshold float64 `yaml:"position_correction_threshold"` // 米
}

// InputConfig 输入累积参数
type InputConfig struct {
	HistoryLimit int `yaml:"history_limit"` // 最大 255
}

// NetworkConfig 网络参数
type NetworkConfig struct {
	Proto              string  `yaml:"proto"` // tcp, kcp, ws
	Addr               string  `yaml:"addr"`
	SendRate           float64 `yaml:"send_rate"` // 每秒快照数
	TickRate           float64 `yaml:"tick_rate"`
	MaxInputsPerSecond float64 `yaml:"max_inputs_per_second"`
}

// MetricsConfig 指标服务
type MetricsConfig struct {
	Addr string `yaml:"addr"` // 为空时不暴露 /metrics
}

// Default 默认配置
func Default() *Config {
	s := interp.DefaultSettings()
	return &Config{
		Snapshot: SnapshotConfig{
			BufferTimeMultiplier:       s.BufferTimeMultiplier,
			BufferLimit:                s.BufferLimit,
			CatchupNegativeThreshold:   s.CatchupNegativeThreshold,
			CatchupPositiveThreshold:   s.CatchupPositiveThreshold,
			CatchupSpeed:               s.CatchupSpeed,
			SlowdownSpeed:              s.SlowdownSpeed,
			DriftEmaDuration:           s.DriftEmaDuration,
			DynamicAdjustment:          s.DynamicAdjustment,
			DynamicAdjustmentTolerance: s.DynamicAdjustmentTolerance,
			DeliveryTimeEmaDuration:    s.DeliveryTimeEmaDuration,
		},
		Prediction: PredictionConfig{
			StateHistoryLimit:           32,
			PositionCorrectionThreshold: 0.1,
		},
		Input: InputConfig{HistoryLimit: 32},
		Network: NetworkConfig{
			Proto:              "tcp",
			Addr:               "127.0.0.1:7777",
			SendRate:           30,
			TickRate:           60,
			MaxInputsPerSecond: 120,
		},
	}
}

// Load 读取 YAML 配置文件，path 为空时返回默认配置
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse 解析 YAML，缺省字段保留默认值
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 校验配置
func (c *Config) Validate() error {
	s := c.Snapshot
	switch {
	case s.BufferTimeMultiplier <= 0:
		return invalid("snapshot.buffer_time_multiplier must be > 0, got %v", s.BufferTimeMultiplier)
	case s.BufferLimit <= 0:
		return invalid("snapshot.buffer_limit must be > 0, got %d", s.BufferLimit)
	case s.CatchupNegativeThreshold >= 0:
		return invalid("snapshot.catchup_negative_threshold must be < 0, got %v", s.CatchupNegativeThreshold)
	case s.CatchupPositiveThreshold <= 0:
		return invalid("snapshot.catchup_positive_threshold must be > 0, got %v", s.CatchupPositiveThreshold)
	case s.CatchupSpeed < 0 || s.CatchupSpeed > 1:
		return invalid("snapshot.catchup_speed must be in [0,1], got %v", s.CatchupSpeed)
	case s.SlowdownSpeed < 0 || s.SlowdownSpeed > 1:
		return invalid("snapshot.slowdown_speed must be in [0,1], got %v", s.SlowdownSpeed)
	case s.DriftEmaDuration <= 0:
		return invalid("snapshot.drift_ema_duration must be > 0, got %d", s.DriftEmaDuration)
	case s.DeliveryTimeEmaDuration <= 0:
		return invalid("snapshot.delivery_time_ema_duration must be > 0, got %d", s.DeliveryTimeEmaDuration)
	case s.DynamicAdjustmentTolerance < 0:
		return invalid("snapshot.dynamic_adjustment_tolerance must be >= 0, got %v", s.DynamicAdjustmentTolerance)
	}

	p := c.Prediction
	if p.StateHistoryLimit < 2 {
		return invalid("prediction.state_history_limit must be >= 2, got %d", p.StateHistoryLimit)
	}
	if p.PositionCorrectionThreshold < 0 {
		return invalid("prediction.position_correction_threshold must be >= 0, got %v", p.PositionCorrectionThreshold)
	}

	if c.Input.HistoryLimit <= 0 || c.Input.HistoryLimit > input.MaxHistoryLimit {
		return invalid("input.history_limit must be in [1,%d], got %d", input.MaxHistoryLimit, c.Input.HistoryLimit)
	}

	n := c.Network
	switch n.Proto {
	case "tcp", "kcp", "ws":
	default:
		return invalid("network.proto must be tcp, kcp or ws, got %q", n.Proto)
	}
	if n.SendRate <= 0 {
		return invalid("network.send_rate must be > 0, got %v", n.SendRate)
	}
	if n.TickRate <= 0 {
		return invalid("network.tick_rate must be > 0, got %v", n.TickRate)
	}
	if n.MaxInputsPerSecond <= 0 {
		return invalid("network.max_inputs_per_second must be > 0, got %v", n.MaxInputsPerSecond)
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}

// InterpSettings 转换为插值参数
func (c *Config) InterpSettings() interp.Settings {
	s := c.Snapshot
	return interp.Settings{
		BufferTimeMultiplier:       s.BufferTimeMultiplier,
		BufferLimit:                s.BufferLimit,
		CatchupNegativeThreshold:   s.CatchupNegativeThreshold,
		CatchupPositiveThreshold:   s.CatchupPositiveThreshold,
		CatchupSpeed:               s.CatchupSpeed,
		SlowdownSpeed:              s.SlowdownSpeed,
		DriftEmaDuration:           s.DriftEmaDuration,
		DynamicAdjustment:          s.DynamicAdjustment,
		DynamicAdjustmentTolerance: s.DynamicAdjustmentTolerance,
		DeliveryTimeEmaDuration:    s.DeliveryTimeEmaDuration,
	}
}
