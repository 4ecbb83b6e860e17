// Package validate checks raw snapshots and produces the validation gate.
package validate

import (
	"encoding/json"

	"github.com/bytedance/sonic"
)

type Severity string

const (
	Error   Severity = "error"
	Warning Severity = "warning"
)

type Finding struct {
	Rule     string
	Severity Severity
	Message  string
}

// Report is the per-category result written into the validation report.
type Report struct {
	DataType   string         `json:"data_type"`
	Valid      bool           `json:"valid"`
	Errors     []string       `json:"errors"`
	Warnings   []string       `json:"warnings"`
	Statistics map[string]any `json:"statistics"`
	S3Key      string         `json:"s3_key,omitempty"`

	Findings []Finding `json:"-"`
}

func newReport(dataType string) *Report {
	return &Report{
		DataType:   dataType,
		Valid:      true,
		Errors:     []string{},
		Warnings:   []string{},
		Statistics: map[string]any{},
	}
}

func (r *Report) add(rule string, sev Severity, msg string) {
	r.Findings = append(r.Findings, Finding{Rule: rule, Severity: sev, Message: msg})
	if sev == Error {
		r.Errors = append(r.Errors, msg)
		r.Valid = false
		return
	}
	r.Warnings = append(r.Warnings, msg)
}

// HasFinding reports whether rule produced at least one finding.
func (r *Report) HasFinding(rule string) bool {
	for _, f := range r.Findings {
		if f.Rule == rule {
			return true
		}
	}
	return false
}

// Rule is one entry in a category's rule table. Check may also fill
// statistics; every message it returns becomes a finding of Severity.
// A Halt rule that reports anything stops the table.
type Rule[T any] struct {
	Name     string
	Severity Severity
	Halt     bool
	Check    func(in *T, r *Report) []string
}

// Apply evaluates rules in order against in.
func Apply[T any](rules []Rule[T], in *T, r *Report) {
	for _, rule := range rules {
		msgs := rule.Check(in, r)
		for _, m := range msgs {
			r.add(rule.Name, rule.Severity, m)
		}
		if rule.Halt && len(msgs) > 0 {
			return
		}
	}
}

// topLevel splits a JSON object into its members so key presence can be checked.
func topLevel(raw []byte) (map[string]json.RawMessage, error) {
	var m map[string]json.RawMessage
	if err := sonic.ConfigStd.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func isNullJSON(r json.RawMessage) bool {
	return len(r) == 0 || string(r) == "null"
}

func unmarshalMember(raw json.RawMessage, v any) error {
	if isNullJSON(raw) {
		return nil
	}
	return sonic.ConfigStd.Unmarshal(raw, v)
}
