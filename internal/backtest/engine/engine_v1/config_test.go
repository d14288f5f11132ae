package engine

import (
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/tradepruf/tradepruf/internal/types"
	"github.com/tradepruf/tradepruf/pkg/errors"
)

func TestRunConfigUnmarshalYAML(t *testing.T) {
	t.Run("full config", func(t *testing.T) {
		content := `
initial_capital: 10000
position_size_fraction: 0.5
max_open_positions: 3
min_trade_unit: 0.1
interval: 1h
symbols: [AAPL, MSFT]
start_time: 2024-01-01T00:00:00Z
end_time: 2024-06-30T00:00:00Z
exclude_forced_exits: true
`
		var config RunConfig
		require.NoError(t, yaml.Unmarshal([]byte(content), &config))

		assert.Equal(t, 10000.0, config.InitialCapital)
		assert.Equal(t, 0.5, config.PositionSizeFraction)
		assert.Equal(t, 3, config.MaxOpenPositions)
		assert.Equal(t, 0.1, config.MinTradeUnit)
		assert.Equal(t, types.Interval1h, config.Interval)
		assert.Equal(t, []string{"AAPL", "MSFT"}, config.Symbols)
		assert.True(t, config.StartTime.IsSome())
		assert.True(t, config.EndTime.IsSome())
		assert.True(t, config.ExcludeForcedExits)
	})

	t.Run("defaults for omitted fields", func(t *testing.T) {
		var config RunConfig
		require.NoError(t, yaml.Unmarshal([]byte("initial_capital: 1000"), &config))

		assert.Equal(t, 1.0, config.PositionSizeFraction)
		assert.Equal(t, 1.0, config.MinTradeUnit)
		assert.Equal(t, 0, config.MaxOpenPositions)
		assert.Equal(t, types.Interval1d, config.Interval)
		assert.True(t, config.StartTime.IsNone())
		assert.True(t, config.EndTime.IsNone())
	})
}

func TestRunConfigValidate(t *testing.T) {
	valid := func() RunConfig {
		config := DefaultConfig()
		config.InitialCapital = 1000
		config.Symbols = []string{"AAPL"}

		return config
	}

	tests := []struct {
		name     string
		mutate   func(*RunConfig)
		wantCode errors.ErrorCode
	}{
		{
			name:     "zero capital",
			mutate:   func(c *RunConfig) { c.InitialCapital = 0 },
			wantCode: errors.ErrCodeInvalidCapital,
		},
		{
			name:     "negative capital",
			mutate:   func(c *RunConfig) { c.InitialCapital = -5 },
			wantCode: errors.ErrCodeInvalidCapital,
		},
		{
			name:     "fraction above one",
			mutate:   func(c *RunConfig) { c.PositionSizeFraction = 1.5 },
			wantCode: errors.ErrCodeInvalidSizeFraction,
		},
		{
			name:     "zero fraction",
			mutate:   func(c *RunConfig) { c.PositionSizeFraction = 0 },
			wantCode: errors.ErrCodeInvalidSizeFraction,
		},
		{
			name:     "negative max positions",
			mutate:   func(c *RunConfig) { c.MaxOpenPositions = -1 },
			wantCode: errors.ErrCodeInvalidMaxPositions,
		},
		{
			name:     "zero trade unit",
			mutate:   func(c *RunConfig) { c.MinTradeUnit = 0 },
			wantCode: errors.ErrCodeInvalidTradeUnit,
		},
		{
			name:     "unknown interval",
			mutate:   func(c *RunConfig) { c.Interval = "7m" },
			wantCode: errors.ErrCodeInvalidInterval,
		},
		{
			name: "inverted date range",
			mutate: func(c *RunConfig) {
				c.StartTime = optional.Some(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
				c.EndTime = optional.Some(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
			},
			wantCode: errors.ErrCodeInvalidDateRange,
		},
		{
			name:     "duplicate symbols",
			mutate:   func(c *RunConfig) { c.Symbols = []string{"AAPL", "AAPL"} },
			wantCode: errors.ErrCodeInvalidConfiguration,
		},
	}

	t.Run("valid config passes", func(t *testing.T) {
		config := valid()
		require.NoError(t, config.Validate())
	})

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := valid()
			tt.mutate(&config)

			err := config.Validate()
			require.Error(t, err)
			assert.True(t, errors.HasCode(err, tt.wantCode), "got %v", err)
		})
	}
}

func TestRunConfigGenerateSchemaJSON(t *testing.T) {
	config := DefaultConfig()

	schema, err := config.GenerateSchemaJSON()
	require.NoError(t, err)

	assert.Contains(t, schema, "initial_capital")
	assert.Contains(t, schema, "position_size_fraction")
	assert.Contains(t, schema, "max_open_positions")
	assert.Contains(t, schema, "run-config")
}
