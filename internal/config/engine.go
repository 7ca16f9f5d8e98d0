package config

import (
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// EngineConfig carries the billing engine knobs that may change at runtime.
type EngineConfig struct {
	FallbackRetainagePercentage decimal.Decimal
	RestrictCostCodesToBudget   bool
	SubmitLockTTL               time.Duration
}

type engineFile struct {
	FallbackRetainagePercentage string        `mapstructure:"fallbackRetainagePercentage"`
	RestrictCostCodesToBudget   bool          `mapstructure:"restrictCostCodesToBudget"`
	SubmitLockTTL               time.Duration `mapstructure:"submitLockTTL"`
}

func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		FallbackRetainagePercentage: decimal.NewFromInt(10),
		RestrictCostCodesToBudget:   true,
		SubmitLockTTL:               30 * time.Second,
	}
}

type EngineConfigHolder struct {
	current atomic.Value // holds EngineConfig
}

// NewStaticEngineConfigHolder returns a holder that never reloads.
func NewStaticEngineConfigHolder(cfg EngineConfig) *EngineConfigHolder {
	holder := &EngineConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func NewEngineConfigHolder(cfg Config, log *zap.Logger) (*EngineConfigHolder, error) {
	log = log.Named("config.engine")
	v := viper.New()

	if cfg.EngineConfigPath != "" {
		v.SetConfigFile(cfg.EngineConfigPath)
	} else {
		v.SetConfigName("engine")
		v.SetConfigType("yml")
		v.AddConfigPath("/etc/costline")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("COSTLINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultEngineConfig()
	v.SetDefault("engine.fallbackRetainagePercentage", defaults.FallbackRetainagePercentage.String())
	v.SetDefault("engine.restrictCostCodesToBudget", defaults.RestrictCostCodesToBudget)
	v.SetDefault("engine.submitLockTTL", defaults.SubmitLockTTL)

	fileLoaded := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || cfg.EngineConfigPath != "" {
			return nil, err
		}
		fileLoaded = false
	}

	current, err := decodeEngineConfig(v)
	if err != nil {
		return nil, err
	}

	holder := NewStaticEngineConfigHolder(current)
	if !fileLoaded {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		updated, err := decodeEngineConfig(v)
		if err != nil {
			log.Warn("engine config reload ignored", zap.String("file", e.Name), zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("engine config reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

func (h *EngineConfigHolder) Get() EngineConfig {
	return h.current.Load().(EngineConfig)
}

func decodeEngineConfig(v *viper.Viper) (EngineConfig, error) {
	var doc struct {
		Engine engineFile `mapstructure:"engine"`
	}
	if err := v.Unmarshal(&doc); err != nil {
		return EngineConfig{}, err
	}
	return parseEngineConfig(doc.Engine)
}

func parseEngineConfig(raw engineFile) (EngineConfig, error) {
	pct, err := decimal.NewFromString(strings.TrimSpace(raw.FallbackRetainagePercentage))
	if err != nil {
		return EngineConfig{}, errors.New("engine.fallbackRetainagePercentage must be a decimal")
	}
	if pct.IsNegative() || pct.GreaterThan(decimal.NewFromInt(100)) {
		return EngineConfig{}, errors.New("engine.fallbackRetainagePercentage must be between 0 and 100")
	}
	if raw.SubmitLockTTL <= 0 {
		return EngineConfig{}, errors.New("engine.submitLockTTL must be positive")
	}
	return EngineConfig{
		FallbackRetainagePercentage: pct,
		RestrictCostCodesToBudget:   raw.RestrictCostCodesToBudget,
		SubmitLockTTL:               raw.SubmitLockTTL,
	}, nil
}
