package common

import (
	"errors"
	"fmt"
	"time"

	"github.com/invopop/jsonschema"
)

var errNegativeDuration = errors.New("duration must not be negative")

// Duration is a config timeout or interval written as text ("300ms", "4s", "1h30m").
type Duration struct {
	time.Duration
}

func NewDuration(duration time.Duration) Duration {
	return Duration{duration}
}

// UnmarshalText parses a time.ParseDuration string. Negative values are rejected.
func (d *Duration) UnmarshalText(data []byte) error {
	duration, err := time.ParseDuration(string(data))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(data), err)
	}
	if duration < 0 {
		return fmt.Errorf("invalid duration %q: %w", string(data), errNegativeDuration)
	}
	d.Duration = duration
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// JSONSchema describes Duration in the schema printed by the schema command.
func (Duration) JSONSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:        "string",
		Title:       "Duration",
		Description: "Non-negative duration with units: [ns, us, ms, s, m, h]",
		Pattern:     `^([0-9]+(\.[0-9]+)?(ns|us|µs|ms|s|m|h))+$|^0$`,
		Examples: []any{
			"4s",
			"300ms",
		},
	}
}
