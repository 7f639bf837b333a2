package jira

import (
	"fmt"
	"time"
)

func openBugsJQL(project string) string {
	return fmt.Sprintf(
		`project = %q AND issuetype = Bug AND status NOT IN ("Done", "Resolved", "Closed") ORDER BY status ASC, priority DESC`,
		project)
}

func fallbackBugsJQL(project string) string {
	return fmt.Sprintf(`project = %q AND issuetype = Bug`, project)
}

// completedJQL matches issues whose status changed to Done inside the window.
// The window is derived from the configured report time, not from the wall
// clock at query time.
func completedJQL(project string, start, end time.Time) string {
	return fmt.Sprintf(
		`project = %q AND status changed to Done AFTER %q AND status changed to Done BEFORE %q`,
		project, start.Format(jqlDateTime), end.Format(jqlDateTime))
}

// resolvedRangeJQL is the leaderboard query: everything resolved in the
// trailing window, ordered by assignee so pagination stays stable.
func resolvedRangeJQL(project string, start, end time.Time) string {
	return fmt.Sprintf(
		`project = %q AND status = Done AND resolved >= %q AND resolved <= %q ORDER BY assignee ASC`,
		project, start.Format(jqlDate), end.Format(jqlDate)+" 23:59")
}
