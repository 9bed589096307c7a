// Package domain implements the rule condition language: one comparison per
// line, all conditions on a rule AND-ed together.
package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// Supported comparison operators.
const (
	OpGT       = ">"
	OpGTE      = ">="
	OpLT       = "<"
	OpLTE      = "<="
	OpEQ       = "=="
	OpNEQ      = "!="
	OpContains = "contains"
)

var knownOps = map[string]bool{
	OpGT: true, OpGTE: true, OpLT: true, OpLTE: true,
	OpEQ: true, OpNEQ: true, OpContains: true,
}

// Condition is a parsed "field operator literal" expression.
type Condition struct {
	Field   string
	Op      string
	Literal string
}

// ParseCondition parses a "field operator literal" expression. The literal may
// contain spaces ("location contains Dubai Marina").
func ParseCondition(expr string) (Condition, error) {
	parts := strings.Fields(expr)
	if len(parts) < 3 {
		return Condition{}, fmt.Errorf("malformed condition %q: want \"field operator literal\"", expr)
	}
	cond := Condition{
		Field:   parts[0],
		Op:      parts[1],
		Literal: strings.Join(parts[2:], " "),
	}
	if !knownOps[cond.Op] {
		return Condition{}, fmt.Errorf("malformed condition %q: unknown operator %q", expr, cond.Op)
	}
	return cond, nil
}

// Evaluate resolves the condition against the event's field map. A field that
// is absent or nil never matches; that is a non-match, not an error. Numeric
// operators on non-numeric values are an error so the offending rule can be
// skipped and logged.
func (c Condition) Evaluate(fields map[string]interface{}) (bool, error) {
	value, ok := fields[c.Field]
	if !ok || value == nil {
		return false, nil
	}

	switch c.Op {
	case OpGT, OpGTE, OpLT, OpLTE:
		left, err := toNumber(value)
		if err != nil {
			return false, fmt.Errorf("field %s: %w", c.Field, err)
		}
		right, err := toNumber(c.Literal)
		if err != nil {
			return false, fmt.Errorf("literal %q: %w", c.Literal, err)
		}
		switch c.Op {
		case OpGT:
			return left > right, nil
		case OpGTE:
			return left >= right, nil
		case OpLT:
			return left < right, nil
		default:
			return left <= right, nil
		}
	case OpEQ, OpNEQ:
		// Numbers compare numerically so "score == 80" matches int 80.
		if left, err := toNumber(value); err == nil {
			if right, err := toNumber(c.Literal); err == nil {
				return (left == right) == (c.Op == OpEQ), nil
			}
		}
		equal := strings.EqualFold(toString(value), c.Literal)
		return equal == (c.Op == OpEQ), nil
	case OpContains:
		return strings.Contains(strings.ToLower(toString(value)), strings.ToLower(c.Literal)), nil
	default:
		return false, fmt.Errorf("unknown operator %q", c.Op)
	}
}

// EvaluateAll parses and ANDs every condition. The first malformed condition
// or evaluation error aborts with that error; an empty list always matches.
func EvaluateAll(conditions []string, fields map[string]interface{}) (bool, error) {
	for _, expr := range conditions {
		cond, err := ParseCondition(expr)
		if err != nil {
			return false, err
		}
		ok, err := cond.Evaluate(fields)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func toNumber(value interface{}) (float64, error) {
	switch v := value.(type) {
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case float64:
		return v, nil
	case string:
		n, err := strconv.ParseFloat(strings.ReplaceAll(v, ",", ""), 64)
		if err != nil {
			return 0, fmt.Errorf("not a number: %q", v)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("not a number: %v", value)
	}
}

func toString(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v
	default:
		return fmt.Sprintf("%v", v)
	}
}
