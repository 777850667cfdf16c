// Package pattern provides rule-based transaction matching and rule pattern
// extraction for Brazilian bank statement descriptions.
package pattern

import (
	"strings"
	"unicode"
)

// Generic tokens that appear in almost every statement line. A pattern made
// only of these words would match everything, so they never anchor a rule
// and never form a cache key on their own.
var genericWords = map[string]bool{
	// Transaction types
	"PIX": true, "TED": true, "DOC": true, "TEV": true,
	"TRANSFERENCIA": true, "TRANSF": true,
	"PAGAMENTO": true, "PAGTO": true, "PGTO": true,
	"RECEBIMENTO": true, "COMPRA": true, "DEBITO": true, "CREDITO": true,
	"ENVIADO": true, "RECEBIDO": true, "ENVIADA": true, "RECEBIDA": true,
	"SISPAG": true, "BOLETO": true, "TARIFA": true, "TAR": true,
	// Legal forms
	"LTDA": true, "ME": true, "EPP": true, "EIRELI": true, "SA": true, "CIA": true,
	// Generic business words
	"COMERCIO": true, "COMERCIAL": true, "SERVICOS": true, "INDUSTRIA": true,
	"DISTRIBUIDORA": true, "REPRESENTACOES": true, "EMPRESA": true,
	// Bank prefixes
	"BCO": true, "BANCO": true, "AG": true, "CC": true, "CONTA": true,
	// Prepositions and connectives
	"DE": true, "DA": true, "DO": true, "DAS": true, "DOS": true, "E": true,
	"EM": true, "NA": true, "NO": true, "PARA": true, "POR": true, "COM": true,
	// Catch-alls
	"OUTROS": true, "DIVERSOS": true, "GERAL": true,
}

// IsGenericWord reports whether a token is too common to identify anything.
func IsGenericWord(word string) bool {
	return genericWords[strings.ToUpper(word)]
}

// Normalize reduces a bank description to its stable text: uppercase,
// digits and punctuation stripped, whitespace collapsed. Two lines for the
// same counterparty differ mostly in dates and document numbers, which this
// removes.
func Normalize(description string) string {
	var b strings.Builder
	b.Grow(len(description))
	for _, r := range strings.ToUpper(description) {
		switch {
		case unicode.IsLetter(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		default:
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// SignificantWords returns the normalized non-generic tokens of a
// description, in order.
func SignificantWords(description string) []string {
	var words []string
	for _, w := range strings.Fields(Normalize(description)) {
		if !IsGenericWord(w) && len(w) >= 2 {
			words = append(words, w)
		}
	}
	return words
}

// Levenshtein computes the edit distance between two strings.
func Levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min3(curr[j-1]+1, prev[j]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

// Similarity returns a 0-1 score from the edit distance between the
// normalized forms of two strings.
func Similarity(a, b string) float64 {
	na, nb := Normalize(a), Normalize(b)
	if na == nb {
		return 1
	}
	longest := len([]rune(na))
	if l := len([]rune(nb)); l > longest {
		longest = l
	}
	if longest == 0 {
		return 1
	}
	return 1 - float64(Levenshtein(na, nb))/float64(longest)
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
