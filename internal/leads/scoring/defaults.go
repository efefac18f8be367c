package scoring

// DefaultRules is the rule set seeded for a new organization. Weights
// follow the standard qualification form fields.
func DefaultRules() []Rule {
	return []Rule{
		{Key: "telefone", Field: "telefone", Predicate: PredicatePresent, Weight: 10},
		{Key: "email", Field: "email", Predicate: PredicatePresent, Weight: 10},
		{Key: "empresa", Field: "empresa", Predicate: PredicatePresent, Weight: 15},
		{Key: "cargo", Field: "cargo", Predicate: PredicatePresent, Weight: 10},
		{Key: "temperatura_quente", Field: "temperatura", Predicate: PredicateEquals, Value: TemperatureHot, Weight: 20},
		{Key: "temperatura_morno", Field: "temperatura", Predicate: PredicateEquals, Value: TemperatureWarm, Weight: 10},
		{Key: "nivel_interesse_alto", Field: "nivel_interesse", Predicate: PredicateEquals, Value: "alto", Weight: 15},
		{Key: "nivel_interesse_medio", Field: "nivel_interesse", Predicate: PredicateEquals, Value: "medio", Weight: 8},
		{Key: "orcamento_disponivel", Field: "orcamento_disponivel", Predicate: PredicatePresent, Weight: 15},
		{Key: "decisor_principal", Field: "decisor_principal", Predicate: PredicatePresent, Weight: 15},
		{Key: "dor_principal", Field: "dor_principal", Predicate: PredicatePresent, Weight: 10},
	}
}

// DefaultThresholds returns the standard temperature cut points.
func DefaultThresholds() Thresholds {
	return Thresholds{Warm: DefaultWarmThreshold, Hot: DefaultHotThreshold}
}
