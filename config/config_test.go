package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	assert.NoError(t, Default().Validate())
}

func TestLoadFromFileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
bot:
  symbol: ETH-CLP
  mode: paper
  strategy: grid
  initial_balance: 500000
  tick_interval: 30s
journal:
  type: memory
risk:
  max_open_orders: 3
  max_daily_loss_fraction: 0.02
strategy:
  grid:
    step_pct: 0.015
    levels_per_side: 4
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "ETH-CLP", cfg.Bot.Symbol)
	assert.Equal(t, "grid", cfg.Bot.Strategy)
	assert.Equal(t, 30*time.Second, cfg.Bot.TickInterval)
	assert.Equal(t, 3, cfg.Risk.MaxOpenOrders)
	assert.InDelta(t, 0.015, cfg.Strategy.Grid.StepPct, 1e-9)

	// Untouched keys keep their defaults.
	assert.Equal(t, time.Hour, cfg.Bot.CandleInterval)
	assert.InDelta(t, 0.008, cfg.Exchange.FeeRate, 1e-9)
}

func TestLoadRejectsUnknownStrategy(t *testing.T) {
	path := writeConfig(t, `
bot:
  strategy: martingale
`)
	_, err := LoadFromFile(path)
	assert.ErrorContains(t, err, "unknown strategy")
}

func TestLoadRejectsBadMode(t *testing.T) {
	path := writeConfig(t, `
bot:
  mode: dryrun
`)
	_, err := LoadFromFile(path)
	assert.ErrorContains(t, err, "bot.mode")
}

func TestEnvOverridesSecrets(t *testing.T) {
	t.Setenv("BUDA_API_KEY", "k-123")
	t.Setenv("BUDA_API_SECRET", "s-456")
	t.Setenv("TELEGRAM_BOT_TOKEN", "tg-token")
	t.Setenv("TELEGRAM_CHAT_ID", "tg-chat")

	path := writeConfig(t, `
bot:
  mode: live
telegram:
  enabled: true
`)
	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "k-123", cfg.Exchange.APIKey)
	assert.Equal(t, "s-456", cfg.Exchange.APISecret)
	assert.Equal(t, "tg-token", cfg.Telegram.BotToken)
	assert.Equal(t, "tg-chat", cfg.Telegram.ChatID)
}

func TestLiveModeRequiresCredentials(t *testing.T) {
	t.Setenv("BUDA_API_KEY", "")
	t.Setenv("BUDA_API_SECRET", "")

	path := writeConfig(t, `
bot:
  mode: live
`)
	_, err := LoadFromFile(path)
	assert.ErrorContains(t, err, "BUDA_API_KEY")
}

func TestPostgresJournalNeedsDSN(t *testing.T) {
	t.Setenv("CONDORBOT_DB_DSN", "")

	path := writeConfig(t, `
journal:
  type: postgres
`)
	_, err := LoadFromFile(path)
	assert.ErrorContains(t, err, "journal.dsn")
}

func TestLoadEnvFileMissingIsFine(t *testing.T) {
	assert.NoError(t, LoadEnvFile(filepath.Join(t.TempDir(), "nope.env")))
}

func TestLoadEnvFileSeedsEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("CONDORBOT_TEST_VAR=hello\n"), 0600))
	t.Setenv("CONDORBOT_TEST_VAR", "") // registers cleanup
	os.Unsetenv("CONDORBOT_TEST_VAR")

	require.NoError(t, LoadEnvFile(path))
	assert.Equal(t, "hello", os.Getenv("CONDORBOT_TEST_VAR"))
}
