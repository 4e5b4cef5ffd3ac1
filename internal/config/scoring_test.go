package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultScoringConfig(t *testing.T) {
	cfg := DefaultScoringConfig()

	assert.Equal(t, 500_000.0, cfg.SeverityCritical)
	assert.Equal(t, 100_000.0, cfg.SeverityHigh)
	assert.Equal(t, 10_000.0, cfg.SeverityMedium)

	assert.InDelta(t, 1.0, cfg.WeightFiling+cfg.WeightMismatchRate+cfg.WeightCircular+cfg.WeightVolume, 1e-9)

	assert.Equal(t, 12, cfg.ExpectedFilings)
	assert.Equal(t, 2, cfg.CycleMinLength)
	assert.Equal(t, 5, cfg.CycleMaxLength)

	assert.NoError(t, validateScoringConfig(cfg))
}

func TestValidateScoringConfigRejectsBadValues(t *testing.T) {
	cfg := DefaultScoringConfig()
	cfg.SeverityHigh = cfg.SeverityCritical + 1
	assert.Error(t, validateScoringConfig(cfg))

	cfg = DefaultScoringConfig()
	cfg.ExpectedFilings = 0
	assert.Error(t, validateScoringConfig(cfg))

	cfg = DefaultScoringConfig()
	cfg.CycleMaxLength = 1
	assert.Error(t, validateScoringConfig(cfg))
}

func TestStaticHolderReturnsFixedConfig(t *testing.T) {
	cfg := DefaultScoringConfig()
	cfg.CycleMaxLength = 7

	holder := NewStaticScoringConfigHolder(cfg)
	assert.Equal(t, 7, holder.Get().CycleMaxLength)
}
