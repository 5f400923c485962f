package textproc

import (
	"regexp"
)

// Rule is a labelled pattern; every match is replaced by "[REDACTED <Label>]".
type Rule struct {
	Label   string
	Pattern *regexp.Regexp
}

// The default rules run in this order, and each rule sees the text the
// previous ones produced. The patterns are heuristics: any 8-12 digit number
// is treated as a bank account, so plain phone numbers written without
// separators are labelled "Bank Account", and identifiers in other formats
// pass through untouched.
var defaultRules = []Rule{
	{Label: "SSN", Pattern: regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`)},
	{Label: "Bank Account", Pattern: regexp.MustCompile(`\b\d{8,12}\b`)},
	{Label: "Phone", Pattern: regexp.MustCompile(`(?:\+?1[-.\s]?)?(?:\(\d{3}\)|\b\d{3})[-.\s]?\d{3}[-.\s]?\d{4}\b`)},
	{Label: "Credit Card", Pattern: regexp.MustCompile(`\b(?:\d[ -]?){12,15}\d\b`)},
	{Label: "Email", Pattern: regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)},
}

// DefaultRules returns a copy of the built-in rule set in application order.
func DefaultRules() []Rule {
	out := make([]Rule, len(defaultRules))
	copy(out, defaultRules)
	return out
}

// Placeholder returns the replacement text for a rule label.
func Placeholder(label string) string {
	return "[REDACTED " + label + "]"
}

// Finding counts the matches a rule replaced.
type Finding struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// Redactor applies an ordered rule list. It holds no mutable state and is
// safe for concurrent use.
type Redactor struct {
	rules []Rule
}

// NewRedactor builds a redactor over rules, or over DefaultRules when none
// are given.
func NewRedactor(rules ...Rule) *Redactor {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	return &Redactor{rules: rules}
}

// Redact replaces every non-overlapping match of each rule, in rule order.
func (r *Redactor) Redact(text string) string {
	out, _ := r.RedactWithFindings(text)
	return out
}

// maxRedactPasses bounds the fixed-point loop for custom rules whose
// patterns match part of a placeholder.
const maxRedactPasses = 8

// RedactWithFindings is Redact plus a per-label match count for rules
// that fired. Matched values are never returned.
//
// A placeholder can expose a fresh word boundary next to text an earlier
// rule already passed over, so the rule list is reapplied until a full pass
// changes nothing. The result is a fixed point: redacting it again is a no-op.
func (r *Redactor) RedactWithFindings(text string) (string, []Finding) {
	counts := make(map[string]int, len(r.rules))
	for pass := 0; pass < maxRedactPasses; pass++ {
		before := text
		for _, rule := range r.rules {
			placeholder := Placeholder(rule.Label)
			text = rule.Pattern.ReplaceAllStringFunc(text, func(match string) string {
				if match != placeholder {
					counts[rule.Label]++
				}
				return placeholder
			})
		}
		if text == before {
			break
		}
	}

	var findings []Finding
	for _, rule := range r.rules {
		if n, ok := counts[rule.Label]; ok {
			findings = append(findings, Finding{Label: rule.Label, Count: n})
			delete(counts, rule.Label)
		}
	}
	return text, findings
}

// Findings reports what Redact would replace without returning the text.
func (r *Redactor) Findings(text string) []Finding {
	_, findings := r.RedactWithFindings(text)
	return findings
}

var defaultRedactor = NewRedactor()

// Redact applies the default rule set.
func Redact(text string) string {
	return defaultRedactor.Redact(text)
}
