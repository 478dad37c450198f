package quiz

import (
	"strings"
)

// terminalPunct is stripped from the end of answers before comparison
const terminalPunct = ".!?;:,"

var quoteReplacer = strings.NewReplacer("’", "'", "‘", "'", "“", `"`, "”", `"`)

// Normalize lowercases s, collapses runs of whitespace to a single space,
// trims it and strips terminal punctuation. Normalize(Normalize(s)) == Normalize(s).
func Normalize(s string) string {
	return strings.TrimRight(fold(s), terminalPunct+" ")
}

// fold lowercases s and collapses whitespace but keeps punctuation
func fold(s string) string {
	s = quoteReplacer.Replace(s)
	s = strings.ToLower(s)
	return strings.Join(strings.Fields(s), " ")
}

// JoinTokens assembles word-order tokens into a sentence, attaching
// punctuation and contraction tokens to the preceding word.
// ["I", "like", "cooking", "."] becomes "I like cooking."
func JoinTokens(tokens []string) string {
	var b strings.Builder
	for _, tok := range tokens {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		if b.Len() > 0 && !attachesLeft(tok) {
			b.WriteByte(' ')
		}
		b.WriteString(tok)
	}
	return b.String()
}

func attachesLeft(tok string) bool {
	if strings.Trim(tok, terminalPunct) == "" {
		return true
	}
	return strings.HasPrefix(tok, "'") || strings.HasPrefix(tok, "’")
}
