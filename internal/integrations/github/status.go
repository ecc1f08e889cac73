package github

import (
	"strings"

	"devdigest/internal/domain"
)

// ghostLogin stands in for deleted accounts, matching what github.com shows.
const ghostLogin = "ghost"

// mapState folds GitHub's OPEN/CLOSED/MERGED into open or closed.
func mapState(state string, closed bool) domain.ItemState {
	switch strings.ToUpper(state) {
	case "CLOSED", "MERGED":
		return domain.StateClosed
	case "OPEN":
		return domain.StateOpen
	}
	if closed {
		return domain.StateClosed
	}
	return domain.StateOpen
}

func mapKind(typename string) (domain.ItemKind, bool) {
	switch typename {
	case "PullRequest":
		return domain.KindPullRequest, true
	case "Issue":
		return domain.KindIssue, true
	}
	return "", false
}

func login(a *actor) string {
	if a == nil || a.Login == "" {
		return ghostLogin
	}
	return a.Login
}
