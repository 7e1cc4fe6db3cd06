package predicate

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"oddsrules/domain/core"
)

var (
	fullWidth = strings.NewReplacer(
		"（", "(", "）", ")", "－", "-", "，", ",",
		"＞", ">", "＜", "<", "＝", "=", "～", "~",
		"≥", ">=", "≧", ">=", "≤", "<=", "≦", "<=",
	)
	whitespace = regexp.MustCompile(`\s+`)
)

// NormalizeCondition folds full-width symbols to ASCII and strips whitespace
func NormalizeCondition(text string) string {
	return whitespace.ReplaceAllString(fullWidth.Replace(strings.TrimSpace(text)), "")
}

// Parse builds a predicate over feature from human-written condition text:
// "<3", ">=2", "≥0.8", "(0.89~0.99)", "0.8~0.86", "=0.5" or a bare number
// (equality, stored as a degenerate range). Failures wrap core.ErrUnparsablePredicate.
func Parse(name, feature, text string) (Predicate, error) {
	if name == "" {
		name = feature + strings.TrimSpace(text)
	}
	p, err := parseCondition(feature, NormalizeCondition(text))
	if err != nil {
		return Predicate{}, core.NewUnparsablePredicateError(name, text, err)
	}
	p.Name = name
	if err := p.Validate(); err != nil {
		return Predicate{}, core.NewUnparsablePredicateError(name, text, err)
	}
	return p, nil
}

func parseCondition(feature, s string) (Predicate, error) {
	if s == "" {
		return Predicate{}, fmt.Errorf("empty condition")
	}
	p := Predicate{Feature: feature}

	if strings.Contains(s, "~") {
		inner := strings.TrimSuffix(strings.TrimPrefix(s, "("), ")")
		parts := strings.Split(inner, "~")
		if len(parts) != 2 {
			return Predicate{}, fmt.Errorf("invalid range %q", s)
		}
		lo, err := parseNum(parts[0])
		if err != nil {
			return Predicate{}, err
		}
		hi, err := parseNum(parts[1])
		if err != nil {
			return Predicate{}, err
		}
		if lo > hi {
			lo, hi = hi, lo
		}
		p.Op, p.Lo, p.Hi = OpRange, lo, hi
		return p, nil
	}

	var rest string
	switch {
	case strings.HasPrefix(s, ">="):
		p.Op, rest = OpGE, s[2:]
	case strings.HasPrefix(s, "<="):
		p.Op, rest = OpLE, s[2:]
	case strings.HasPrefix(s, ">"):
		p.Op, rest = OpGT, s[1:]
	case strings.HasPrefix(s, "<"):
		p.Op, rest = OpLT, s[1:]
	default:
		v, err := parseNum(strings.TrimPrefix(s, "="))
		if err != nil {
			return Predicate{}, err
		}
		p.Op, p.Lo, p.Hi = OpRange, v, v
		return p, nil
	}

	v, err := parseNum(rest)
	if err != nil {
		return Predicate{}, err
	}
	p.Threshold = v
	return p, nil
}

func parseNum(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	return v, nil
}
