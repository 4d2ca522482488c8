package transformer

import (
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// coercer converts raw XML text into typed column values. Malformed input becomes
// NULL and is reported as a warning, never as an error.
type coercer struct {
	log       *slog.Logger
	accessKey string
}

func (c coercer) warn(field, raw, kind string, err error) {
	c.log.Warn("Value coercion failed, storing NULL",
		"access_key", c.accessKey,
		"field", field,
		"value", raw,
		"target", kind,
		"error", err,
	)
}

func (c coercer) decimal(field, raw string) decimal.NullDecimal {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.NullDecimal{}
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		c.warn(field, raw, "decimal", err)
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}

// integer accepts decimal text ("3.0000") and truncates it, as quantity fields are
// often printed with a fractional part.
func (c coercer) integer(field, raw string) *int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		c.warn(field, raw, "integer", err)
		return nil
	}
	v := int(d.IntPart())
	return &v
}

func (c coercer) date(field, raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		c.warn(field, raw, "date", err)
		return nil
	}
	return &t
}

var timestampLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", time.DateOnly}

func (c coercer) timestamp(field, raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	var lastErr error
	for _, layout := range timestampLayouts {
		t, err := time.Parse(layout, raw)
		if err == nil {
			return &t
		}
		lastErr = err
	}
	c.warn(field, raw, "timestamp", lastErr)
	return nil
}

// amount is the audit flavour of decimal: absent or malformed values count as zero.
func (c coercer) amount(field, raw string) decimal.Decimal {
	d := c.decimal(field, raw)
	if !d.Valid {
		return decimal.Zero
	}
	return d.Decimal
}
