package parser

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/cuemby/fsbench/pkg/types"
	"github.com/dustin/go-humanize"
)

var (
	siPattern       = regexp.MustCompile(`^([0-9]+(?:\.[0-9]+)?)([kKMGT]?)$`)
	durationPattern = regexp.MustCompile(`^([0-9]+)m([0-9]+(?:\.[0-9]+)?)s$`)
)

// ConvertUnit interprets a number with an optional decimal magnitude
// suffix: k=1e3, M=1e6, G=1e9, T=1e12. Anything else is NotAvailable.
func ConvertUnit(s string) types.Value {
	m := siPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return types.NotAvailable
	}
	suffix := m[2]
	if suffix == "K" {
		// humanize only knows the lower-case kilo prefix
		suffix = "k"
	}
	f, _, err := humanize.ParseSI(m[1] + suffix)
	if err != nil {
		return types.NotAvailable
	}
	return types.Number(f)
}

// ConvertDuration interprets "<minutes>m<seconds>s" as total seconds
func ConvertDuration(s string) types.Value {
	s = strings.TrimSpace(s)
	if !durationPattern.MatchString(s) {
		return types.NotAvailable
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return types.NotAvailable
	}
	return types.Number(d.Seconds())
}

// convertSeconds accepts a bare number of seconds, a number with an s or
// ms unit, or the <m>m<s>s form
func convertSeconds(value, unit string) types.Value {
	value = strings.TrimSpace(value)
	switch strings.ToLower(strings.TrimSpace(unit)) {
	case "", "s", "sec", "secs", "seconds":
	case "ms":
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return types.Number(f / 1000)
		}
		return types.NotAvailable
	default:
		return types.NotAvailable
	}

	if f, err := strconv.ParseFloat(strings.TrimSuffix(value, "s"), 64); err == nil && !strings.Contains(value, "m") {
		return types.Number(f)
	}
	return ConvertDuration(value)
}

// convertBytes accepts sizes like "1.2GB", "512 MiB" or a bare byte count
func convertBytes(s string) types.Value {
	n, err := humanize.ParseBytes(strings.TrimSpace(s))
	if err != nil {
		return types.NotAvailable
	}
	return types.Number(float64(n))
}
