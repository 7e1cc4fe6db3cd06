package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Source errors
	ErrMalformedSource = errors.New("malformed source")
	ErrNoDataRows      = fmt.Errorf("%w: no data rows", ErrMalformedSource)
	ErrMissingSheet    = fmt.Errorf("%w: sheet not found", ErrMalformedSource)

	// Predicate errors
	ErrUnparsablePredicate = errors.New("unparsable predicate")
	ErrUnknownFeature      = fmt.Errorf("%w: unknown feature", ErrUnparsablePredicate)

	// Engine errors
	ErrInconsistentTally = errors.New("tally changed between selection and recheck")
	ErrInvalidPolicy     = errors.New("invalid acceptance policy")

	// Rule set errors
	ErrRuleSetNotFound = errors.New("rule set not found")
	ErrInvalidRuleSet  = errors.New("invalid rule set document")

	// Query errors
	ErrInvalidQuery = errors.New("invalid query case")
)

// Error constructors with context
func NewMalformedSourceError(source string, reason string) error {
	return fmt.Errorf("%w: %s: %s", ErrMalformedSource, source, reason)
}

func NewUnparsablePredicateError(name, text string, cause error) error {
	if cause != nil {
		return fmt.Errorf("%w: %s %q: %v", ErrUnparsablePredicate, name, text, cause)
	}
	return fmt.Errorf("%w: %s %q", ErrUnparsablePredicate, name, text)
}

func NewUnknownFeatureError(feature, text string) error {
	return fmt.Errorf("%w: %s %q", ErrUnknownFeature, feature, text)
}

func NewInconsistentTallyError(rule string, stored, recomputed string) error {
	return fmt.Errorf("%w: %s stored=%s recomputed=%s", ErrInconsistentTally, rule, stored, recomputed)
}

// Error checking helpers
func IsMalformedSource(err error) bool {
	return errors.Is(err, ErrMalformedSource)
}

func IsUnparsablePredicate(err error) bool {
	return errors.Is(err, ErrUnparsablePredicate)
}
