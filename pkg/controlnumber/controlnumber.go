// Package controlnumber generates human readable reference numbers of the
// form PREFIX-YEAR-NNNN.
package controlnumber

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
	"strings"
	"time"
)

const suffixSpace = 10000

var pattern = regexp.MustCompile(`^[A-Z0-9]+-\d{4}-\d{4}$`)

// Generator produces candidate control numbers. Uniqueness is not guaranteed
// here; callers insert under a UNIQUE constraint and ask for another candidate
// on collision.
type Generator struct {
	prefix string
	now    func() time.Time
	suffix func() (int, error)
}

// New builds a generator for the given prefix using a random 4-digit suffix.
func New(prefix string) *Generator {
	return &Generator{
		prefix: strings.ToUpper(strings.TrimSpace(prefix)),
		now:    time.Now,
		suffix: randomSuffix,
	}
}

// Prefix returns the configured prefix.
func (g *Generator) Prefix() string {
	return g.prefix
}

// Next returns a fresh candidate.
func (g *Generator) Next() (string, error) {
	n, err := g.suffix()
	if err != nil {
		return "", fmt.Errorf("generate control number: %w", err)
	}
	return Format(g.prefix, g.now().Year(), n), nil
}

// Stem returns the PREFIX-YEAR- part shared by every number issued this year.
func (g *Generator) Stem() string {
	return fmt.Sprintf("%s-%d-", g.prefix, g.now().Year())
}

// Format renders the canonical representation.
func Format(prefix string, year, n int) string {
	return fmt.Sprintf("%s-%d-%04d", prefix, year, n%suffixSpace)
}

// Valid reports whether value has the canonical shape.
func Valid(value string) bool {
	return pattern.MatchString(value)
}

func randomSuffix() (int, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(suffixSpace))
	if err != nil {
		return 0, err
	}
	return int(n.Int64()), nil
}
