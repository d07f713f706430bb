package guardrail

import (
	"encoding/json"
	"fmt"
)

// Comparison operators supported by eligibility rules.
const (
	OpGTE = ">="
	OpLTE = "<="
	OpEQ  = "=="
	OpNEQ = "!="
	OpGT  = ">"
	OpLT  = "<"
)

// Rule is one typed eligibility condition against a user-data field.
type Rule struct {
	Field string      `json:"field"`
	Op    string      `json:"op"`
	Value interface{} `json:"value"`
}

// UserData is the derived numeric/boolean record eligibility rules evaluate
// against.
type UserData map[string]interface{}

// RuleResult records one rule's outcome for the decision trace.
type RuleResult struct {
	Rule   Rule   `json:"rule"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail,omitempty"`
}

// EligibilityResult is the full outcome of evaluating an offer's rules.
type EligibilityResult struct {
	Passed  bool         `json:"passed"`
	Results []RuleResult `json:"results"`
}

// FailedRules returns the rules that did not pass.
func (r *EligibilityResult) FailedRules() []Rule {
	var failed []Rule
	for _, res := range r.Results {
		if !res.Passed {
			failed = append(failed, res.Rule)
		}
	}
	return failed
}

// ParseRules decodes an offer's serialized rule list. An empty blob yields no
// rules.
func ParseRules(raw string) ([]Rule, error) {
	if raw == "" {
		return nil, nil
	}
	var rules []Rule
	if err := json.Unmarshal([]byte(raw), &rules); err != nil {
		return nil, fmt.Errorf("ParseRules: %w", err)
	}
	return rules, nil
}

// EvaluateRules checks every rule against the user data record. A rule whose
// field is absent from the record fails closed. An empty rule list passes.
func EvaluateRules(rules []Rule, data UserData) *EligibilityResult {
	result := &EligibilityResult{Passed: true}
	for _, rule := range rules {
		res := evaluateRule(rule, data)
		if !res.Passed {
			result.Passed = false
		}
		result.Results = append(result.Results, res)
	}
	return result
}

func evaluateRule(rule Rule, data UserData) RuleResult {
	value, ok := data[rule.Field]
	if !ok {
		return RuleResult{Rule: rule, Passed: false, Detail: "field not present"}
	}

	passed, err := compare(value, rule.Op, rule.Value)
	if err != nil {
		return RuleResult{Rule: rule, Passed: false, Detail: err.Error()}
	}
	return RuleResult{Rule: rule, Passed: passed}
}

func compare(actual interface{}, op string, expected interface{}) (bool, error) {
	actualNum, actualIsNum := toFloat(actual)
	expectedNum, expectedIsNum := toFloat(expected)

	if actualIsNum && expectedIsNum {
		switch op {
		case OpGTE:
			return actualNum >= expectedNum, nil
		case OpLTE:
			return actualNum <= expectedNum, nil
		case OpEQ:
			return actualNum == expectedNum, nil
		case OpNEQ:
			return actualNum != expectedNum, nil
		case OpGT:
			return actualNum > expectedNum, nil
		case OpLT:
			return actualNum < expectedNum, nil
		default:
			return false, fmt.Errorf("unknown operator %q", op)
		}
	}

	// Non-numeric values support equality operators only.
	switch op {
	case OpEQ:
		return actual == expected, nil
	case OpNEQ:
		return actual != expected, nil
	default:
		return false, fmt.Errorf("operator %q requires numeric operands", op)
	}
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
