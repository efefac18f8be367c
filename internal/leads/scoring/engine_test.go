package scoring

import (
	"reflect"
	"testing"
)

func qualificationRules() []Rule {
	return []Rule{
		{Key: "telefone", Field: "telefone", Predicate: PredicatePresent, Weight: 10},
		{Key: "email", Field: "email", Predicate: PredicatePresent, Weight: 10},
		{Key: "empresa", Field: "empresa", Predicate: PredicatePresent, Weight: 15},
		{Key: "temperatura_quente", Field: "temperatura", Predicate: PredicateEquals, Value: "quente", Weight: 20},
	}
}

func TestScoreSumsMatchingRuleWeights(t *testing.T) {
	snap := Snapshot{
		"telefone":    "+5511999990000",
		"email":       "maria@example.com",
		"empresa":     "Clinica Vida",
		"temperatura": "quente",
	}

	result := Score(snap, qualificationRules(), DefaultThresholds())

	if result.Score != 55 {
		t.Fatalf("score = %d, want 55", result.Score)
	}
	if result.Temperature != TemperatureWarm {
		t.Fatalf("temperature = %q, want %q", result.Temperature, TemperatureWarm)
	}
	wantMatched := []string{"telefone", "email", "empresa", "temperatura_quente"}
	if !reflect.DeepEqual(result.Matched, wantMatched) {
		t.Fatalf("matched = %v, want %v", result.Matched, wantMatched)
	}
}

func TestScoreMissingFieldsContributeNothing(t *testing.T) {
	snap := Snapshot{
		"telefone": "+5511999990000",
	}

	result := Score(snap, qualificationRules(), DefaultThresholds())

	if result.Score != 10 {
		t.Fatalf("score = %d, want 10", result.Score)
	}
	if result.Temperature != TemperatureCold {
		t.Fatalf("temperature = %q, want %q", result.Temperature, TemperatureCold)
	}
}

func TestScoreClampsToHundred(t *testing.T) {
	rules := []Rule{
		{Key: "a", Field: "telefone", Predicate: PredicatePresent, Weight: 60},
		{Key: "b", Field: "email", Predicate: PredicatePresent, Weight: 70},
	}
	snap := Snapshot{"telefone": "x", "email": "y"}

	result := Score(snap, rules, DefaultThresholds())

	if result.Score != 100 {
		t.Fatalf("score = %d, want 100", result.Score)
	}
	if result.Temperature != TemperatureHot {
		t.Fatalf("temperature = %q, want %q", result.Temperature, TemperatureHot)
	}
}

func TestScoreClampsNegativeToZero(t *testing.T) {
	rules := []Rule{
		{Key: "penalty", Field: "telefone", Predicate: PredicatePresent, Weight: -30},
	}
	snap := Snapshot{"telefone": "x"}

	result := Score(snap, rules, DefaultThresholds())

	if result.Score != 0 {
		t.Fatalf("score = %d, want 0", result.Score)
	}
}

func TestScoreIsDeterministic(t *testing.T) {
	snap := Snapshot{
		"telefone":    "+5511999990000",
		"email":       "maria@example.com",
		"temperatura": "quente",
	}
	rules := qualificationRules()

	first := Score(snap, rules, DefaultThresholds())
	second := Score(snap, rules, DefaultThresholds())

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("scoring is not deterministic: %+v vs %+v", first, second)
	}
}

func TestScoreGtePredicate(t *testing.T) {
	rules := []Rule{
		{Key: "orcamento_alto", Field: "orcamento", Predicate: PredicateGte, Threshold: 50000, Weight: 25},
	}

	tests := []struct {
		name  string
		value any
		want  int
	}{
		{"above threshold", 80000.0, 25},
		{"exactly threshold", 50000, 25},
		{"below threshold", 49999.99, 0},
		{"numeric string", "60000", 25},
		{"unparseable string", "muito", 0},
		{"missing field", nil, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			snap := Snapshot{}
			if tc.value != nil {
				snap["orcamento"] = tc.value
			}
			result := Score(snap, rules, DefaultThresholds())
			if result.Score != tc.want {
				t.Fatalf("score = %d, want %d", result.Score, tc.want)
			}
		})
	}
}

func TestTemperatureBuckets(t *testing.T) {
	tests := []struct {
		score int
		want  string
	}{
		{0, TemperatureCold},
		{39, TemperatureCold},
		{40, TemperatureWarm},
		{55, TemperatureWarm},
		{69, TemperatureWarm},
		{70, TemperatureHot},
		{100, TemperatureHot},
	}

	for _, tc := range tests {
		if got := Temperature(tc.score, DefaultThresholds()); got != tc.want {
			t.Errorf("Temperature(%d) = %q, want %q", tc.score, got, tc.want)
		}
	}
}

func TestTemperatureCustomThresholds(t *testing.T) {
	th := Thresholds{Warm: 20, Hot: 90}

	if got := Temperature(19, th); got != TemperatureCold {
		t.Fatalf("Temperature(19) = %q, want cold", got)
	}
	if got := Temperature(20, th); got != TemperatureWarm {
		t.Fatalf("Temperature(20) = %q, want warm", got)
	}
	if got := Temperature(89, th); got != TemperatureWarm {
		t.Fatalf("Temperature(89) = %q, want warm", got)
	}
	if got := Temperature(90, th); got != TemperatureHot {
		t.Fatalf("Temperature(90) = %q, want hot", got)
	}
}

func TestTemperatureZeroThresholdsFallBackToDefaults(t *testing.T) {
	if got := Temperature(55, Thresholds{}); got != TemperatureWarm {
		t.Fatalf("Temperature(55) = %q, want warm", got)
	}
}

func TestDefaultRulesHaveUniqueKeys(t *testing.T) {
	seen := map[string]bool{}
	for _, rule := range DefaultRules() {
		if seen[rule.Key] {
			t.Fatalf("duplicate rule key %q", rule.Key)
		}
		seen[rule.Key] = true
	}
}
