package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// ScoringConfig carries the tunable thresholds of the reconciliation and risk
// engines. Defaults implement the published severity table and score weights;
// a mounted scoring.yml can override them without a redeploy.
type ScoringConfig struct {
	// Severity thresholds on mismatch amount difference.
	SeverityCritical float64 `mapstructure:"severityCritical"`
	SeverityHigh     float64 `mapstructure:"severityHigh"`
	SeverityMedium   float64 `mapstructure:"severityMedium"`

	// Composite vendor risk weights. Must sum to 1.
	WeightFiling       float64 `mapstructure:"weightFiling"`
	WeightMismatchRate float64 `mapstructure:"weightMismatchRate"`
	WeightCircular     float64 `mapstructure:"weightCircular"`
	WeightVolume       float64 `mapstructure:"weightVolume"`

	// Filing-rate denominator: expected return filings per kind per year.
	ExpectedFilings int `mapstructure:"expectedFilings"`

	// Circular-trade search bounds.
	CycleMinLength int `mapstructure:"cycleMinLength"`
	CycleMaxLength int `mapstructure:"cycleMaxLength"`

	// Risk level cutoffs on the composite score.
	LevelCritical float64 `mapstructure:"levelCritical"`
	LevelHigh     float64 `mapstructure:"levelHigh"`
	LevelMedium   float64 `mapstructure:"levelMedium"`
}

func DefaultScoringConfig() ScoringConfig {
	return ScoringConfig{
		SeverityCritical: 500_000,
		SeverityHigh:     100_000,
		SeverityMedium:   10_000,

		WeightFiling:       0.25,
		WeightMismatchRate: 0.30,
		WeightCircular:     0.25,
		WeightVolume:       0.20,

		ExpectedFilings: 12,

		CycleMinLength: 2,
		CycleMaxLength: 5,

		LevelCritical: 75,
		LevelHigh:     50,
		LevelMedium:   25,
	}
}

type ScoringConfigHolder struct {
	current atomic.Value // holds ScoringConfig
}

func NewScoringConfigHolder() (*ScoringConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("scoring")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/taxlens/config") // Volume-mounted config
	v.AddConfigPath("/etc/taxlens")            // System config
	v.AddConfigPath(".")                       // Current directory (dev mode)

	v.SetEnvPrefix("TAXLENS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultScoringConfig()
	v.SetDefault("scoring", map[string]any{})

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	cfg := defaults
	if err := v.UnmarshalKey("scoring", &cfg); err != nil {
		return nil, err
	}
	if err := validateScoringConfig(cfg); err != nil {
		return nil, err
	}

	holder := &ScoringConfigHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		updated := DefaultScoringConfig()
		if err := v.UnmarshalKey("scoring", &updated); err != nil {
			log.Printf("[scoring-config] reload failed: %v", err)
			return
		}
		if err := validateScoringConfig(updated); err != nil {
			log.Printf("[scoring-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[scoring-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

// NewStaticScoringConfigHolder wraps a fixed config. Intended for tests.
func NewStaticScoringConfigHolder(cfg ScoringConfig) *ScoringConfigHolder {
	holder := &ScoringConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func (h *ScoringConfigHolder) Get() ScoringConfig {
	return h.current.Load().(ScoringConfig)
}

func validateScoringConfig(cfg ScoringConfig) error {
	if cfg.SeverityCritical < cfg.SeverityHigh || cfg.SeverityHigh < cfg.SeverityMedium {
		return errors.New("scoring: severity thresholds must be non-increasing")
	}
	if cfg.ExpectedFilings <= 0 {
		return errors.New("scoring: expectedFilings must be positive")
	}
	if cfg.CycleMinLength < 2 || cfg.CycleMaxLength < cfg.CycleMinLength {
		return errors.New("scoring: invalid cycle length bounds")
	}
	return nil
}
