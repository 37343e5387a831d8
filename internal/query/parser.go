package query

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// Parsed is the result of extracting price constraints from query text.
// Inverted ranges (min > max) are kept as given.
type Parsed struct {
	Text     string
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
}

// Kind says which bound(s) a rule sets.
type Kind int

const (
	// KindRange sets both bounds. When it matches, later rules are skipped.
	KindRange Kind = iota
	// KindUpper sets the maximum price.
	KindUpper
	// KindLower sets the minimum price.
	KindLower
)

// Rule extracts one kind of price constraint. Extract receives the submatches
// of Pattern and returns the bounds it found; ok is false for numbers it
// cannot parse, in which case the matched text stays in the residual.
type Rule struct {
	Name    string
	Pattern *regexp.Regexp
	Kind    Kind
	Extract func(groups []string) (min, max *decimal.Decimal, ok bool)
}

const number = `(\d+\.?\d*)`

// DefaultRules is the ordered rule table used by Parse.
var DefaultRules = []Rule{
	{
		Name:    "range",
		Pattern: regexp.MustCompile(`between\s+` + number + `\s+(?:and|to)\s+` + number),
		Kind:    KindRange,
		Extract: func(g []string) (*decimal.Decimal, *decimal.Decimal, bool) {
			lo, ok1 := parseAmount(g[1])
			hi, ok2 := parseAmount(g[2])
			return lo, hi, ok1 && ok2
		},
	},
	{
		Name:    "upper",
		Pattern: regexp.MustCompile(`(?:under|below)\s+` + number),
		Kind:    KindUpper,
		Extract: func(g []string) (*decimal.Decimal, *decimal.Decimal, bool) {
			hi, ok := parseAmount(g[1])
			return nil, hi, ok
		},
	},
	{
		Name:    "lower",
		Pattern: regexp.MustCompile(`(?:over|above|more than)\s+` + number),
		Kind:    KindLower,
		Extract: func(g []string) (*decimal.Decimal, *decimal.Decimal, bool) {
			lo, ok := parseAmount(g[1])
			return lo, nil, ok
		},
	},
}

var (
	stripper   = strings.NewReplacer("₹", "", "$", "", "€", "", "£", "", "¥", "", ",", "")
	whitespace = regexp.MustCompile(`\s+`)
)

// Parse extracts price constraints from raw using DefaultRules.
func Parse(raw string) Parsed {
	return ParseWith(DefaultRules, raw)
}

// ParseWith applies rules in order to the normalized text. Each matching rule
// removes its span from the residual text.
func ParseWith(rules []Rule, raw string) Parsed {
	text := Normalize(raw)
	var p Parsed

	for _, r := range rules {
		loc := r.Pattern.FindStringSubmatchIndex(text)
		if loc == nil {
			continue
		}
		groups := make([]string, len(loc)/2)
		for i := range groups {
			if loc[2*i] >= 0 {
				groups[i] = text[loc[2*i]:loc[2*i+1]]
			}
		}
		lo, hi, ok := r.Extract(groups)
		if !ok {
			continue
		}
		if lo != nil {
			p.MinPrice = lo
		}
		if hi != nil {
			p.MaxPrice = hi
		}
		text = text[:loc[0]] + " " + text[loc[1]:]
		if r.Kind == KindRange {
			break
		}
	}

	p.Text = strings.TrimSpace(whitespace.ReplaceAllString(text, " "))
	return p
}

// Normalize trims and lowercases s and strips currency symbols and
// thousands separators.
func Normalize(s string) string {
	return strings.TrimSpace(stripper.Replace(strings.ToLower(s)))
}

func parseAmount(s string) (*decimal.Decimal, bool) {
	d, err := decimal.NewFromString(strings.TrimSuffix(s, "."))
	if err != nil {
		return nil, false
	}
	return &d, true
}
