package core

import (
	"fmt"
	"strings"
)

// GatePolicy decides what Commit does with a preview that has failed rows.
type GatePolicy string

const (
	// PolicyStrict aborts the whole commit when any row failed.
	PolicyStrict GatePolicy = "STRICT"
	// PolicyLenient drops FAIL and SKIP rows and commits the rest.
	PolicyLenient GatePolicy = "LENIENT"
)

// ParseGatePolicy parses a policy name case-insensitively.
func ParseGatePolicy(s string) (GatePolicy, error) {
	switch GatePolicy(strings.ToUpper(strings.TrimSpace(s))) {
	case PolicyStrict:
		return PolicyStrict, nil
	case PolicyLenient:
		return PolicyLenient, nil
	default:
		return "", fmt.Errorf("invalid gate policy %q (must be strict or lenient)", s)
	}
}

// ParsePolicyOverrides parses "import:policy" pairs such as "vessels:strict".
func ParsePolicyOverrides(pairs []string) (map[string]GatePolicy, error) {
	out := make(map[string]GatePolicy, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, ":")
		if !ok {
			return nil, fmt.Errorf("invalid gate policy override %q (want import:policy)", pair)
		}
		p, err := ParseGatePolicy(value)
		if err != nil {
			return nil, err
		}
		out[strings.ToLower(strings.TrimSpace(key))] = p
	}
	return out, nil
}

// Gate applies the policy to a preview. Under STRICT any failed row aborts
// the commit with a CommitAbortedError; otherwise the eligible rows are
// returned in row order.
func (p GatePolicy) Gate(report *PreviewReport) ([]*ImportRow, error) {
	if p != PolicyLenient && report.Summary.Fail > 0 {
		return nil, &CommitAbortedError{
			ImportType: report.ImportType,
			Failed:     report.Summary.Fail,
			Preview:    report,
		}
	}

	candidates := make([]*ImportRow, 0, report.Summary.Ready+report.Summary.ReadyWithWarnings)
	for _, row := range report.Rows {
		if row.Status.Eligible() {
			candidates = append(candidates, row)
		}
	}
	return candidates, nil
}
