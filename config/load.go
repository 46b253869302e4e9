package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"algo-engine-go/engine"
	"algo-engine-go/infrastructure/logger"
)

// AppConfig 应用运行时配置的根结构。
type AppConfig struct {
	Env     string                  `yaml:"env"`
	Engine  EngineConfig            `yaml:"engine"`
	Logger  logger.Config           `yaml:"logger"`
	Metrics MetricsConfig           `yaml:"metrics"`
	Fees    FeesConfig              `yaml:"fees"`
	Risk    RiskLimits              `yaml:"risk"`
	Symbols map[string]SymbolConfig `yaml:"symbols"`
}

// EngineConfig 引擎运行参数（时间一律用显式单位的整数字段）。
type EngineConfig struct {
	DefaultHorizonMinutes int `yaml:"defaultHorizonMinutes"`
	DefaultIntervals      int `yaml:"defaultIntervals"`
	MaxConcurrentOrders   int `yaml:"maxConcurrentOrders"`
	MaxRiskRejects        int `yaml:"maxRiskRejects"`
}

// ToEngine 转换为引擎配置，零值字段落到引擎默认值。
func (c EngineConfig) ToEngine() engine.Config {
	out := engine.DefaultConfig()
	if c.DefaultHorizonMinutes > 0 {
		out.DefaultHorizon = time.Duration(c.DefaultHorizonMinutes) * time.Minute
	}
	if c.DefaultIntervals > 0 {
		out.DefaultIntervals = c.DefaultIntervals
	}
	if c.MaxConcurrentOrders > 0 {
		out.MaxConcurrentOrders = c.MaxConcurrentOrders
	}
	if c.MaxRiskRejects > 0 {
		out.MaxRiskRejects = c.MaxRiskRejects
	}
	return out
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

type FeesConfig struct {
	MakerBps float64 `yaml:"makerBps"`
	TakerBps float64 `yaml:"takerBps"`
	Minimum  float64 `yaml:"minimum"`
}

// RiskLimits 提交时的默认风控模板覆盖，支持热更新。
type RiskLimits struct {
	MaxSlippageBps       float64 `yaml:"maxSlippageBps"`
	MaxImpactBps         float64 `yaml:"maxImpactBps"`
	MaxParticipationRate float64 `yaml:"maxParticipationRate"`
	MaxPriceDeviation    float64 `yaml:"maxPriceDeviation"`
}

// SymbolConfig 合成行情源的每标的参数。
type SymbolConfig struct {
	InitialPrice   float64 `yaml:"initialPrice"`
	BaseVolume     float64 `yaml:"baseVolume"`
	Volatility     float64 `yaml:"volatility"`
	SpreadBps      float64 `yaml:"spreadBps"`
	TickIntervalMs int     `yaml:"tickIntervalMs"`
}

// Load 从路径读取 YAML 配置并做基础校验。
func Load(path string) (AppConfig, error) {
	var cfg AppConfig
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate 校验必填字段与取值范围。
func Validate(cfg AppConfig) error {
	if cfg.Env == "" {
		return errors.New("env is required")
	}
	if cfg.Engine.DefaultHorizonMinutes < 0 {
		return errors.New("engine.defaultHorizonMinutes must be >= 0")
	}
	if cfg.Engine.DefaultIntervals < 0 {
		return errors.New("engine.defaultIntervals must be >= 0")
	}
	if cfg.Engine.MaxConcurrentOrders < 0 {
		return errors.New("engine.maxConcurrentOrders must be >= 0")
	}
	if cfg.Metrics.Enabled && cfg.Metrics.Addr == "" {
		return errors.New("metrics.addr is required when metrics are enabled")
	}
	if cfg.Fees.MakerBps < 0 || cfg.Fees.TakerBps < 0 || cfg.Fees.Minimum < 0 {
		return errors.New("fees must be >= 0")
	}
	if cfg.Risk.MaxSlippageBps < 0 || cfg.Risk.MaxImpactBps < 0 {
		return errors.New("risk limits must be >= 0")
	}
	if cfg.Risk.MaxParticipationRate < 0 || cfg.Risk.MaxParticipationRate > 1 {
		return errors.New("risk.maxParticipationRate must be in [0,1]")
	}
	if len(cfg.Symbols) == 0 {
		return errors.New("symbols config is required")
	}
	for sym, sc := range cfg.Symbols {
		if sc.InitialPrice <= 0 {
			return fmt.Errorf("symbol %s initialPrice must be > 0", sym)
		}
		if sc.BaseVolume <= 0 {
			return fmt.Errorf("symbol %s baseVolume must be > 0", sym)
		}
		if sc.Volatility < 0 {
			return fmt.Errorf("symbol %s volatility must be >= 0", sym)
		}
		if sc.SpreadBps < 0 {
			return fmt.Errorf("symbol %s spreadBps must be >= 0", sym)
		}
		if sc.TickIntervalMs < 0 {
			return fmt.Errorf("symbol %s tickIntervalMs must be >= 0", sym)
		}
	}
	return nil
}
