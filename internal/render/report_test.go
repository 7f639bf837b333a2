package render

import (
	"strings"
	"testing"
	"time"

	"bugwatch/internal/config"
	"bugwatch/internal/jira"
)

func TestReportGroupsByContributor(t *testing.T) {
	start := time.Date(2026, 3, 1, 21, 37, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 1)
	m := config.ParseMapping("Jan Kowalski:Jan")
	issues := []jira.Issue{
		{Key: "AB-1", Assignee: "Jan Kowalski"},
		{Key: "AB-2", Assignee: "Jan Kowalski"},
		{Key: "AB-3", Assignee: "Anna Nowak"},
	}
	doc := Report(issues, start, end, "https://jira.example.com", m, true)

	if !strings.Contains(doc.Text, "<b>Jan</b>: 2") {
		t.Errorf("grouped line missing:\n%s", doc.Text)
	}
	if !strings.Contains(doc.Text, "<b>Anna Nowak</b>: 1") {
		t.Errorf("unmapped contributor missing:\n%s", doc.Text)
	}
	if !strings.Contains(doc.Text, `href="https://jira.example.com/browse/AB-1"`) {
		t.Errorf("issue link missing:\n%s", doc.Text)
	}
	if !strings.Contains(doc.Text, "Total completed: <b>3</b>") {
		t.Errorf("total missing:\n%s", doc.Text)
	}
	if !strings.Contains(doc.Text, "01.03.2026 21:37 — 02.03.2026 21:37") {
		t.Errorf("window missing:\n%s", doc.Text)
	}
}

func TestReportSkipsUnassigned(t *testing.T) {
	start := time.Date(2026, 3, 1, 21, 37, 0, 0, time.UTC)
	issues := []jira.Issue{
		{Key: "AB-1", Assignee: ""},
		{Key: "AB-2", Assignee: "Jan Kowalski"},
	}
	doc := Report(issues, start, start.AddDate(0, 0, 1), "", config.NewMapping(nil), false)
	if strings.Contains(doc.Text, "AB-1") {
		t.Errorf("unassigned issue listed:\n%s", doc.Text)
	}
	// The total still counts every completed issue.
	if !strings.Contains(doc.Text, "Total completed: <b>2</b>") {
		t.Errorf("total wrong:\n%s", doc.Text)
	}
}

func TestReportEmptyWindow(t *testing.T) {
	start := time.Date(2026, 3, 1, 21, 37, 0, 0, time.UTC)
	doc := Report(nil, start, start.AddDate(0, 0, 1), "", config.NewMapping(nil), true)
	if !strings.Contains(doc.Text, "No tasks were completed") {
		t.Errorf("empty marker missing:\n%s", doc.Text)
	}
}

func TestReportAutoFooter(t *testing.T) {
	start := time.Date(2026, 3, 1, 21, 37, 0, 0, time.UTC)
	auto := Report(nil, start, start.AddDate(0, 0, 1), "", config.NewMapping(nil), true)
	manual := Report(nil, start, start.AddDate(0, 0, 1), "", config.NewMapping(nil), false)
	if !strings.Contains(auto.Text, "Generated automatically") {
		t.Error("auto footer missing on scheduled report")
	}
	if strings.Contains(manual.Text, "Generated automatically") {
		t.Error("auto footer present on manual report")
	}
}

func TestReportNoServerURLFallsBackToPlainKeys(t *testing.T) {
	start := time.Date(2026, 3, 1, 21, 37, 0, 0, time.UTC)
	doc := Report([]jira.Issue{{Key: "AB-1", Assignee: "Jan"}}, start, start.AddDate(0, 0, 1), "", config.NewMapping(nil), false)
	if strings.Contains(doc.Text, "<a href") {
		t.Errorf("link rendered without server url:\n%s", doc.Text)
	}
	if !strings.Contains(doc.Text, "AB-1") {
		t.Errorf("key missing:\n%s", doc.Text)
	}
}

func TestErrorDocument(t *testing.T) {
	doc := Error("Report failed", "jira <down>")
	if !strings.Contains(doc.Text, "Report failed") {
		t.Errorf("title missing: %q", doc.Text)
	}
	if strings.Contains(doc.Text, "<down>") {
		t.Errorf("detail not escaped: %q", doc.Text)
	}
}

func TestHelpListsCommands(t *testing.T) {
	text := Help().Text
	for _, cmd := range []string{"/refresh", "/setbugschat", "/setreportschat", "/setleaderboardchat", "/setinterval", "/report", "/leaderboard", "/status"} {
		if !strings.Contains(text, cmd) {
			t.Errorf("help missing %s", cmd)
		}
	}
}
