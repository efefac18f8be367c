// Package scoring evaluates an organization's rule set against a lead
// snapshot. The engine is pure: no I/O, no clock, same input same output.
package scoring

import (
	"strconv"
	"strings"
)

const (
	PredicatePresent = "present"
	PredicateEquals  = "equals"
	PredicateGte     = "gte"
)

const (
	TemperatureCold = "frio"
	TemperatureWarm = "morno"
	TemperatureHot  = "quente"
)

const (
	DefaultWarmThreshold = 40
	DefaultHotThreshold  = 70
)

// Rule is a single scoring signal. Key is unique within a configuration;
// multiple rules may read the same field as distinct signals.
type Rule struct {
	Key       string  `json:"key"`
	Field     string  `json:"field"`
	Predicate string  `json:"predicate"`
	Value     string  `json:"value,omitempty"`
	Threshold float64 `json:"threshold,omitempty"`
	Weight    int     `json:"weight"`
}

// Snapshot is the flattened lead view the engine reads. Missing or nil
// fields fail their predicate silently; the engine never errors.
type Snapshot map[string]any

// Thresholds are the organization's temperature cut points.
type Thresholds struct {
	Warm int
	Hot  int
}

// Result is the outcome of evaluating a rule set against a snapshot.
type Result struct {
	Score       int
	Temperature string
	Matched     []string
}

// Score evaluates every rule against the snapshot, sums matching weights,
// clamps to [0, 100] and derives the temperature bucket.
func Score(snap Snapshot, rules []Rule, th Thresholds) Result {
	total := 0
	var matched []string

	for _, rule := range rules {
		if matches(snap, rule) {
			total += rule.Weight
			matched = append(matched, rule.Key)
		}
	}

	if total < 0 {
		total = 0
	}
	if total > 100 {
		total = 100
	}

	return Result{
		Score:       total,
		Temperature: Temperature(total, th),
		Matched:     matched,
	}
}

// Temperature maps a score to its bucket. Scores below the warm cut are
// cold, scores from warm up to but excluding hot are warm, the rest hot.
func Temperature(score int, th Thresholds) string {
	warm, hot := th.Warm, th.Hot
	if warm <= 0 && hot <= 0 {
		warm, hot = DefaultWarmThreshold, DefaultHotThreshold
	}

	switch {
	case score < warm:
		return TemperatureCold
	case score < hot:
		return TemperatureWarm
	default:
		return TemperatureHot
	}
}

func matches(snap Snapshot, rule Rule) bool {
	value, ok := snap[rule.Field]
	if !ok || value == nil {
		return false
	}

	switch rule.Predicate {
	case PredicatePresent:
		return isPresent(value)
	case PredicateEquals:
		s, ok := asString(value)
		return ok && strings.EqualFold(s, rule.Value)
	case PredicateGte:
		n, ok := asNumber(value)
		return ok && n >= rule.Threshold
	default:
		return false
	}
}

func isPresent(value any) bool {
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v) != ""
	case bool:
		return v
	default:
		return true
	}
}

func asString(value any) (string, bool) {
	switch v := value.(type) {
	case string:
		return v, true
	case bool:
		return strconv.FormatBool(v), true
	default:
		return "", false
	}
}

func asNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return n, err == nil
	default:
		return 0, false
	}
}
