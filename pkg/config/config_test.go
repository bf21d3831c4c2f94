package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"EnergyPulse/internal/domain/models"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

const minimalYAML = `
environment: test
provider:
  name: yahoo
instruments:
  - WTI
  - BRENT
`

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalYAML))
	require.NoError(t, err)

	assert.Equal(t, "yahoo", cfg.Provider.Name)
	assert.Equal(t, 500*time.Millisecond, cfg.Provider.RetryBackoff)
	assert.Equal(t, 365, cfg.Defaults.LookbackDays)
	assert.Equal(t, 30, cfg.Defaults.Horizon)
	assert.Equal(t, string(models.ModelForest), cfg.Defaults.Model)
	assert.Equal(t, 14, cfg.Defaults.IndicatorWindow)
	assert.Equal(t, 2.0, cfg.Defaults.BollingerK)
	assert.Equal(t, time.Hour, cfg.Alerts.Cooldown)
	assert.Equal(t, "memory", cfg.Cache.Backend)
	assert.Equal(t, 30*time.Minute, cfg.Cache.TTL)
}

func TestLoadRejectsUnknownProvider(t *testing.T) {
	_, err := Load(writeConfig(t, `
environment: test
provider:
  name: bloomberg
instruments: [WTI]
`))
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrConfigInvalid)
}

func TestLoadRequiresAlphaVantageKey(t *testing.T) {
	_, err := Load(writeConfig(t, `
environment: test
provider:
  name: alphavantage
instruments: [WTI]
`))
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrConfigInvalid)
}

func TestLoadRequiresInstruments(t *testing.T) {
	_, err := Load(writeConfig(t, `
environment: test
provider:
  name: yahoo
`))
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrConfigInvalid)
}

func TestLoadRejectsBadRuleComparator(t *testing.T) {
	_, err := Load(writeConfig(t, `
environment: test
provider:
  name: yahoo
instruments: [WTI]
alerts:
  rules:
    - instrument: WTI
      metric: close
      comparator: "~"
      threshold: 90
`))
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrConfigInvalid)
}

func TestLoadRejectsBadHistoryBackend(t *testing.T) {
	_, err := Load(writeConfig(t, `
environment: test
provider:
  name: yahoo
instruments: [WTI]
history:
  backend: postgres
`))
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrConfigInvalid)
}

func TestAlertRulesFillDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
environment: test
provider:
  name: yahoo
instruments: [WTI]
alerts:
  cooldown: 2h
  rules:
    - instrument: WTI
      metric: close
      comparator: ">"
      threshold: 95
    - id: custom
      instrument: BRENT
      metric: RSI_14
      comparator: "<"
      threshold: 30
      cooldown: 15m
      severity: high
`))
	require.NoError(t, err)

	rules := cfg.AlertRules()
	require.Len(t, rules, 2)

	assert.Equal(t, "rule-0", rules[0].ID)
	assert.Equal(t, 2*time.Hour, rules[0].Cooldown)
	assert.Equal(t, models.SeverityMedium, rules[0].Severity)

	assert.Equal(t, "custom", rules[1].ID)
	assert.Equal(t, 15*time.Minute, rules[1].Cooldown)
	assert.Equal(t, models.SeverityHigh, rules[1].Severity)
}

func TestLoadWithEnvOverrides(t *testing.T) {
	t.Setenv("PROVIDER", "alphavantage")
	t.Setenv("PROVIDER_API_KEY", "demo")
	t.Setenv("INSTRUMENTS", "WTI,NATGAS")

	cfg, err := LoadWithEnv(writeConfig(t, minimalYAML))
	require.NoError(t, err)

	assert.Equal(t, "alphavantage", cfg.Provider.Name)
	assert.Equal(t, "demo", cfg.Provider.APIKey)
	assert.Equal(t, []string{"WTI", "NATGAS"}, cfg.Instruments)
}
