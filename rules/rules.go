package rules

import (
	"fmt"
	"strconv"
	"strings"
)

// Condition gates a When rule or a ForbidWhen rule. The only variant
// currently needed by any provider profile is a model-name prefix check.
type Condition interface {
	holds(modelID string) bool
}

// ModelPrefix matches when the request's model id starts with Prefix.
type ModelPrefix struct {
	Prefix string
}

func (c ModelPrefix) holds(modelID string) bool {
	return strings.HasPrefix(modelID, c.Prefix)
}

// RangeMode selects what Range does when a value falls outside [Min, Max].
type RangeMode int

const (
	// RangeError fails the transform with an error.
	RangeError RangeMode = iota
	// RangeClamp rewrites the value to the nearest bound.
	RangeClamp
)

// Rule is one step of a MappingProfile. Concrete variants are Move, Drop,
// Default, Range, ForbidWhen, EnumMap, When, and MaxLen.
type Rule interface {
	apply(ctx *evalContext) error
}

type evalContext struct {
	root    map[string]any
	modelID string
}

// Move relocates the value at From to To. If From is missing or null, this
// is a no-op.
type Move struct {
	From string
	To   string
}

func (r Move) apply(ctx *evalContext) error {
	v, ok, err := get(ctx.root, r.From)
	if err != nil {
		return fmt.Errorf("rules: Move %q -> %q: %w", r.From, r.To, err)
	}
	if !ok || v == nil {
		return nil
	}
	if err := drop(ctx.root, r.From); err != nil {
		return err
	}
	return set(ctx.root, r.To, v)
}

// Drop removes Field, including an array element when Field's terminal
// segment is an index.
type Drop struct {
	Field string
}

func (r Drop) apply(ctx *evalContext) error {
	return drop(ctx.root, r.Field)
}

// Default sets Field to Value only if it is currently missing or null.
// Intermediate objects/arrays are created as needed.
type Default struct {
	Field string
	Value any
}

func (r Default) apply(ctx *evalContext) error {
	v, ok, err := get(ctx.root, r.Field)
	if err != nil {
		return fmt.Errorf("rules: Default %q: %w", r.Field, err)
	}
	if ok && v != nil {
		return nil
	}
	return set(ctx.root, r.Field, r.Value)
}

// Range validates (or, in RangeClamp mode, rewrites) the numeric value at
// Field against [Min, Max]. A missing field is not an error.
type Range struct {
	Field   string
	Min     float64
	Max     float64
	Mode    RangeMode
	Message string
}

func (r Range) apply(ctx *evalContext) error {
	v, ok, err := get(ctx.root, r.Field)
	if err != nil {
		return fmt.Errorf("rules: Range %q: %w", r.Field, err)
	}
	if !ok || v == nil {
		return nil
	}
	num, isNum := asFloat(v)
	if !isNum {
		return nil
	}
	if num >= r.Min && num <= r.Max {
		return nil
	}
	switch r.Mode {
	case RangeClamp:
		clamped := num
		if num < r.Min {
			clamped = r.Min
		} else if num > r.Max {
			clamped = r.Max
		}
		return set(ctx.root, r.Field, clamped)
	default:
		msg := r.Message
		if msg == "" {
			msg = fmt.Sprintf("%s must be within [%v, %v], got %v", r.Field, r.Min, r.Max, num)
		}
		return fmt.Errorf("rules: %s", msg)
	}
}

// ForbidWhen fails the transform if Field is set (non-null, non-missing)
// and Condition holds against the request's model id.
type ForbidWhen struct {
	Field     string
	Condition Condition
	Message   string
}

func (r ForbidWhen) apply(ctx *evalContext) error {
	v, ok, err := get(ctx.root, r.Field)
	if err != nil {
		return fmt.Errorf("rules: ForbidWhen %q: %w", r.Field, err)
	}
	if !ok || v == nil {
		return nil
	}
	if r.Condition == nil || !r.Condition.holds(ctx.modelID) {
		return nil
	}
	msg := r.Message
	if msg == "" {
		msg = fmt.Sprintf("%s is not permitted for model %q", r.Field, ctx.modelID)
	}
	return fmt.Errorf("rules: %s", msg)
}

// EnumMap translates the discrete string value at From into a structured
// value placed at To, using Map to look up the translation. If the value is
// not present in Map and Default is non-nil, Default is used instead; if
// Default is nil and the value is unmapped, this is a no-op (the source
// value is left where it is).
type EnumMap struct {
	From    string
	To      string
	Map     map[string]any
	Default any
}

func (r EnumMap) apply(ctx *evalContext) error {
	v, ok, err := get(ctx.root, r.From)
	if err != nil {
		return fmt.Errorf("rules: EnumMap %q -> %q: %w", r.From, r.To, err)
	}
	if !ok || v == nil {
		return nil
	}
	key, isStr := v.(string)
	if !isStr {
		return nil
	}
	mapped, found := r.Map[key]
	if !found {
		if r.Default == nil {
			return nil
		}
		mapped = r.Default
	}
	if err := drop(ctx.root, r.From); err != nil {
		return err
	}
	return set(ctx.root, r.To, mapped)
}

// When applies Rules only if Condition holds against the request's model id.
type When struct {
	Condition Condition
	Rules     []Rule
}

func (r When) apply(ctx *evalContext) error {
	if r.Condition == nil || !r.Condition.holds(ctx.modelID) {
		return nil
	}
	for _, sub := range r.Rules {
		if err := sub.apply(ctx); err != nil {
			return err
		}
	}
	return nil
}

// MaxLen fails if the array at Field has more than Max elements. A missing
// field, or a field that is not an array, is not an error.
type MaxLen struct {
	Field   string
	Max     int
	Message string
}

func (r MaxLen) apply(ctx *evalContext) error {
	v, ok, err := get(ctx.root, r.Field)
	if err != nil {
		return fmt.Errorf("rules: MaxLen %q: %w", r.Field, err)
	}
	if !ok || v == nil {
		return nil
	}
	arr, isArr := v.([]any)
	if !isArr || len(arr) <= r.Max {
		return nil
	}
	msg := r.Message
	if msg == "" {
		msg = fmt.Sprintf("%s has %d elements, exceeding the maximum of %d", r.Field, len(arr), r.Max)
	}
	return fmt.Errorf("rules: %s", msg)
}

// ProviderParamsMergeStrategy controls how a provider's passthrough
// provider_options are merged into the transformed request body.
type ProviderParamsMergeStrategy interface {
	mergeStrategyMarker()
}

// Flatten merges provider_options keys directly into the top-level request
// body, overwriting any colliding keys the rule engine already set.
type Flatten struct{}

func (Flatten) mergeStrategyMarker() {}

// Namespace nests provider_options under a single top-level key.
type Namespace struct {
	Name string
}

func (Namespace) mergeStrategyMarker() {}

// MappingProfile is the ordered rule list and merge policy for one provider.
type MappingProfile struct {
	ProviderID    string
	Rules         []Rule
	MergeStrategy ProviderParamsMergeStrategy
}

// Apply runs the profile's rules in order over body (a JSON-decoded value,
// i.e. map[string]any/[]any/primitives), merges providerOptions per the
// profile's MergeStrategy, and strips top-level nulls. modelID is consulted
// by Condition-bearing rules (When, ForbidWhen).
//
// body is mutated in place and also returned for convenience.
func (p MappingProfile) Apply(body map[string]any, modelID string, providerOptions map[string]any) (map[string]any, error) {
	ctx := &evalContext{root: body, modelID: modelID}

	for _, rule := range p.Rules {
		if err := rule.apply(ctx); err != nil {
			return nil, fmt.Errorf("rules: profile %q: %w", p.ProviderID, err)
		}
	}

	if len(providerOptions) > 0 {
		switch strategy := p.MergeStrategy.(type) {
		case Namespace:
			body[strategy.Name] = providerOptions
		default:
			for k, v := range providerOptions {
				body[k] = v
			}
		}
	}

	stripNullsTopLevel(body)
	return body, nil
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}
