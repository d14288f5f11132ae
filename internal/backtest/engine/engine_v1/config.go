package engine

import (
	"encoding/json"
	"reflect"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
	"github.com/moznion/go-optional"

	"github.com/tradepruf/tradepruf/internal/types"
	"github.com/tradepruf/tradepruf/pkg/errors"
)

// RunConfig configures a single backtest run. Symbols order is significant:
// when several signals share a timestamp they are applied in this order, so
// it decides who gets capital under contention.
type RunConfig struct {
	InitialCapital       float64                    `yaml:"initial_capital" json:"initial_capital" jsonschema:"title=Initial Capital,description=Starting cash for the run,minimum=0"`
	PositionSizeFraction float64                    `yaml:"position_size_fraction" json:"position_size_fraction" jsonschema:"title=Position Size Fraction,description=Fraction of current cash committed per entry,minimum=0,maximum=1"`
	MaxOpenPositions     int                        `yaml:"max_open_positions" json:"max_open_positions" jsonschema:"title=Max Open Positions,description=Cap on simultaneously open positions. Zero means unlimited,minimum=0"`
	MinTradeUnit         float64                    `yaml:"min_trade_unit" json:"min_trade_unit" jsonschema:"title=Minimum Trade Unit,description=Quantity granularity. Entries are rounded down to a multiple of this"`
	Interval             types.Interval             `yaml:"interval" json:"interval" jsonschema:"title=Interval,description=Bar interval of the input data"`
	Symbols              []string                   `yaml:"symbols" json:"symbols" jsonschema:"title=Symbols,description=Assets to simulate, in tie-break order"`
	StartTime            optional.Option[time.Time] `yaml:"start_time" json:"start_time" jsonschema:"title=Start Time,description=Optional inclusive start of the simulated window"`
	EndTime              optional.Option[time.Time] `yaml:"end_time" json:"end_time" jsonschema:"title=End Time,description=Optional inclusive end of the simulated window"`
	ExcludeForcedExits   bool                       `yaml:"exclude_forced_exits" json:"exclude_forced_exits" jsonschema:"title=Exclude Forced Exits,description=Drop end-of-data closes from the win-rate statistics"`
}

// UnmarshalYAML implements custom unmarshaling for RunConfig. The optional
// time fields need the pointer-to-Option translation, and omitted sizing
// fields fall back to their defaults rather than zero.
func (c *RunConfig) UnmarshalYAML(unmarshal func(interface{}) error) error {
	type Config struct {
		InitialCapital       float64        `yaml:"initial_capital"`
		PositionSizeFraction *float64       `yaml:"position_size_fraction"`
		MaxOpenPositions     int            `yaml:"max_open_positions"`
		MinTradeUnit         *float64       `yaml:"min_trade_unit"`
		Interval             types.Interval `yaml:"interval"`
		Symbols              []string       `yaml:"symbols"`
		StartTime            *time.Time     `yaml:"start_time"`
		EndTime              *time.Time     `yaml:"end_time"`
		ExcludeForcedExits   bool           `yaml:"exclude_forced_exits"`
	}

	var config Config
	if err := unmarshal(&config); err != nil {
		return err
	}

	c.InitialCapital = config.InitialCapital
	c.MaxOpenPositions = config.MaxOpenPositions
	c.Interval = config.Interval
	c.Symbols = config.Symbols
	c.ExcludeForcedExits = config.ExcludeForcedExits

	c.PositionSizeFraction = 1.0
	if config.PositionSizeFraction != nil {
		c.PositionSizeFraction = *config.PositionSizeFraction
	}

	c.MinTradeUnit = 1.0
	if config.MinTradeUnit != nil {
		c.MinTradeUnit = *config.MinTradeUnit
	}

	if c.Interval == "" {
		c.Interval = types.Interval1d
	}

	if config.StartTime != nil {
		c.StartTime = optional.Some(*config.StartTime)
	}

	if config.EndTime != nil {
		c.EndTime = optional.Some(*config.EndTime)
	}

	return nil
}

// Validate checks the config and returns a coded error on the first problem
// found.
func (c *RunConfig) Validate() error {
	if c.InitialCapital <= 0 {
		return errors.Newf(errors.ErrCodeInvalidCapital, "initial capital must be positive, got %f", c.InitialCapital)
	}

	if c.PositionSizeFraction <= 0 || c.PositionSizeFraction > 1 {
		return errors.Newf(errors.ErrCodeInvalidSizeFraction, "position size fraction must be in (0, 1], got %f", c.PositionSizeFraction)
	}

	if c.MaxOpenPositions < 0 {
		return errors.Newf(errors.ErrCodeInvalidMaxPositions, "max open positions must not be negative, got %d", c.MaxOpenPositions)
	}

	if c.MinTradeUnit <= 0 {
		return errors.Newf(errors.ErrCodeInvalidTradeUnit, "min trade unit must be positive, got %f", c.MinTradeUnit)
	}

	if !c.Interval.IsValid() {
		return errors.Newf(errors.ErrCodeInvalidInterval, "unknown interval %q", c.Interval)
	}

	if c.StartTime.IsSome() && c.EndTime.IsSome() && !c.StartTime.Unwrap().Before(c.EndTime.Unwrap()) {
		return errors.New(errors.ErrCodeInvalidDateRange, "start time must be before end time")
	}

	validate := validator.New()
	if err := validate.Var(c.Symbols, "omitempty,unique,dive,required"); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "symbols must be unique and non-empty", err)
	}

	return nil
}

// GenerateSchema generates the JSON schema for RunConfig.
func (c *RunConfig) GenerateSchema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
		AllowAdditionalProperties:  false,
		Mapper: func(t reflect.Type) *jsonschema.Schema {
			if t.String() == "optional.Option[time.Time]" {
				return &jsonschema.Schema{
					Type:   "string",
					Format: "date-time",
				}
			}

			if t == reflect.TypeOf(types.Interval("")) {
				enum := make([]any, 0, len(types.AllIntervals))
				for _, interval := range types.AllIntervals {
					enum = append(enum, string(interval))
				}

				return &jsonschema.Schema{
					Type: "string",
					Enum: enum,
				}
			}

			return nil
		},
	}

	schema := reflector.Reflect(c)
	schema.Title = "run-config"
	schema.Description = "Configuration schema for a backtest run"
	schema.Version = "http://json-schema.org/draft-07/schema#"

	return schema
}

// GenerateSchemaJSON generates the JSON schema for RunConfig as a string.
func (c *RunConfig) GenerateSchemaJSON() (string, error) {
	schemaBytes, err := json.MarshalIndent(c.GenerateSchema(), "", "  ")
	if err != nil {
		return "", err
	}

	return string(schemaBytes), nil
}

// DefaultConfig returns a RunConfig with the sizing defaults filled in.
// InitialCapital stays zero so a run without explicit capital fails
// validation instead of silently simulating nothing.
func DefaultConfig() RunConfig {
	return RunConfig{
		InitialCapital:       0,
		PositionSizeFraction: 1.0,
		MaxOpenPositions:     0,
		MinTradeUnit:         1.0,
		Interval:             types.Interval1d,
		Symbols:              nil,
		StartTime:            optional.None[time.Time](),
		EndTime:              optional.None[time.Time](),
		ExcludeForcedExits:   false,
	}
}
