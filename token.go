package knowsearch

import (
	"strings"
	"unicode"
)

// ═══════════════════════════════════════════════════════════════════════════════
// TOKENIZATION
// ═══════════════════════════════════════════════════════════════════════════════
// The tokenizer turns an already-decoded rune stream into a lazy sequence of
// normalized tokens with positions. Three rules, tried in order against the
// next non-whitespace rune:
//
//  1. a run of decimal digits is emitted as-is (no case folding: digits have
//     no case)
//  2. a run of alphanumerics starting with a letter is uppercased, and if
//     stemming is enabled the uppercased run is replaced by its stem
//  3. anything else is a single rune, uppercased
//
// Position is a plain token counter: it advances by one for every token
// emitted, regardless of kind, in emission order. Whitespace never becomes a
// token and never advances the counter.
// ═══════════════════════════════════════════════════════════════════════════════

// PositionedToken pairs a normalized token with its zero-based position in
// the document that produced it.
type PositionedToken struct {
	Text     string
	Position int
}

// Tokenizer is a lazy, single-pass scanner over a rune slice.
type Tokenizer struct {
	runes []rune
	next  int
	stem  bool
}

// NewTokenizer returns a tokenizer that emits uppercased, unstemmed tokens.
func NewTokenizer(chars []rune) *Tokenizer {
	return &Tokenizer{runes: chars}
}

// NewStemmedTokenizer returns a tokenizer that stems alphabetic runs after
// uppercasing them. Digit runs and single-character tokens are unaffected by
// stemming.
func NewStemmedTokenizer(chars []rune) *Tokenizer {
	return &Tokenizer{runes: chars, stem: true}
}

// Next returns the next token and its position, or ok=false once the input
// is exhausted.
func (t *Tokenizer) Next() (token string, position int, ok bool) {
	t.skipWhitespace()
	if len(t.runes) == 0 {
		return "", 0, false
	}

	lead := t.runes[0]
	var text string
	switch {
	case unicode.IsDigit(lead):
		text = string(t.chopWhile(unicode.IsDigit))
	case unicode.IsLetter(lead):
		run := t.chopWhile(isAlphanumeric)
		upper := strings.ToUpper(string(run))
		if t.stem {
			text = Stem(upper)
		} else {
			text = upper
		}
	default:
		text = strings.ToUpper(string(lead))
		t.runes = t.runes[1:]
	}

	position = t.next
	t.next++
	return text, position, true
}

func (t *Tokenizer) skipWhitespace() {
	i := 0
	for i < len(t.runes) && unicode.IsSpace(t.runes[i]) {
		i++
	}
	t.runes = t.runes[i:]
}

func (t *Tokenizer) chopWhile(predicate func(rune) bool) []rune {
	i := 0
	for i < len(t.runes) && predicate(t.runes[i]) {
		i++
	}
	run := t.runes[:i]
	t.runes = t.runes[i:]
	return run
}

func isAlphanumeric(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// TokenizeAll drains a tokenizer into a slice. Used where the whole document
// is needed at once (forward/inverted document ingestion); callers on a
// latency-sensitive path can drive Next directly instead.
func TokenizeAll(chars []rune, stem bool) []PositionedToken {
	var tok *Tokenizer
	if stem {
		tok = NewStemmedTokenizer(chars)
	} else {
		tok = NewTokenizer(chars)
	}

	out := make([]PositionedToken, 0, len(chars)/4)
	for {
		text, pos, ok := tok.Next()
		if !ok {
			break
		}
		out = append(out, PositionedToken{Text: text, Position: pos})
	}
	return out
}
