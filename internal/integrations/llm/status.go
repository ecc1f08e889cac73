package llm

import (
	"regexp"
	"strings"
)

const (
	LabelIssue  = "ISSUE"
	LabelOthers = "OTHERS"
)

// ReleaseLabels are the labels a pull request title can be tagged with.
var ReleaseLabels = []string{"FEAT", "FIX", "REFACTOR", "DOCS", "TEST", "CHORE", "PERF", LabelOthers}

// normalizeLabel maps model output and common synonyms onto ReleaseLabels.
func normalizeLabel(label string) string {
	switch l := strings.ToUpper(strings.TrimSpace(label)); l {
	case "FEAT", "FEATURE", "FEATURES":
		return "FEAT"
	case "FIX", "BUGFIX", "BUG", "HOTFIX":
		return "FIX"
	case "REFACTOR", "REFACTORING":
		return "REFACTOR"
	case "DOCS", "DOC", "DOCUMENTATION":
		return "DOCS"
	case "TEST", "TESTS", "TESTING":
		return "TEST"
	case "CHORE", "CHORES", "BUILD", "CI", "DEPS":
		return "CHORE"
	case "PERF", "PERFORMANCE":
		return "PERF"
	default:
		return LabelOthers
	}
}

// conventionalPrefixRe matches conventional-commit titles such as
// "fix(api): ..." or "feat!: ...".
var conventionalPrefixRe = regexp.MustCompile(`^\s*([A-Za-z]+)(?:\([^)]*\))?!?:`)

// prefixLabel labels a title that already names its change type. Unknown
// types are left to the model.
func prefixLabel(title string) (string, bool) {
	m := conventionalPrefixRe.FindStringSubmatch(title)
	if m == nil {
		return "", false
	}
	label := normalizeLabel(m[1])
	if label == LabelOthers {
		return "", false
	}
	return label, true
}
