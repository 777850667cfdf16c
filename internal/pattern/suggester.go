package pattern

import (
	"strings"
)

// Extraction strategies, strongest first.
const (
	StrategyEntity        = "entity_only"
	StrategyMultiKeyword  = "multi_keyword"
	StrategySingleKeyword = "single_keyword"
)

// Known counterparty names that identify a merchant on their own. When one
// of these appears in a description it makes a better pattern than any
// combination of surrounding words.
var knownEntities = []string{
	"ITAU", "BRADESCO", "SANTANDER", "CAIXA", "SICREDI", "SICOOB",
	"NUBANK", "INTER", "C6 BANK", "BTG",
	"ENEL", "CEMIG", "COPEL", "CELESC", "LIGHT", "SABESP", "SANEPAR",
	"COMGAS", "VIVO", "CLARO", "TIM", "OI",
	"CORREIOS", "SERASA", "SEBRAE",
	"AMBEV", "NESTLE", "UNILEVER",
	"UBER", "IFOOD", "MERCADO LIVRE", "AMAZON", "GOOGLE", "MICROSOFT",
	"LOCALIZA", "AZUL", "GOL", "LATAM",
}

// Suggestion is an extracted rule pattern with the strategy that produced it.
type Suggestion struct {
	Pattern  string
	Strategy string
}

// ExtractPattern derives a reusable rule pattern from a transaction
// description. It prefers a known entity, then a multi-keyword combination
// of significant words, then a single significant word. Descriptions made
// only of generic bank vocabulary yield nothing.
func ExtractPattern(description string) (Suggestion, bool) {
	normalized := Normalize(description)
	if normalized == "" {
		return Suggestion{}, false
	}

	for _, entity := range knownEntities {
		if strings.Contains(normalized, entity) {
			return Suggestion{Pattern: entity, Strategy: StrategyEntity}, true
		}
	}

	words := SignificantWords(description)
	switch {
	case len(words) >= 2:
		n := len(words)
		if n > 3 {
			n = 3
		}
		return Suggestion{Pattern: strings.Join(words[:n], " "), Strategy: StrategyMultiKeyword}, true
	case len(words) == 1 && len(words[0]) >= MinPatternLength:
		return Suggestion{Pattern: words[0], Strategy: StrategySingleKeyword}, true
	default:
		return Suggestion{}, false
	}
}
