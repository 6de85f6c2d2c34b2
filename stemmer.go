package knowsearch

import (
	"strings"

	snowballeng "github.com/kljensen/snowball/english"
)

// Stem reduces an uppercased token to its English Porter2 root, e.g.
// "RUNNING" and "RUNNER" both collapse to "RUN". It is deterministic: the
// same input always produces the same output.
func Stem(token string) string {
	return strings.ToUpper(snowballeng.Stem(token, false))
}
