package render

import (
	"fmt"
	"html"
	"strings"
	"time"

	"bugwatch/internal/config"
	"bugwatch/internal/jira"
	"bugwatch/internal/transport"
)

const windowFormat = "02.01.2006 15:04"

// Report renders the completed-task summary for a reporting window, grouped
// per contributor with links back to the tracker. auto marks scheduled runs.
func Report(issues []jira.Issue, start, end time.Time, serverURL string, mapping *config.Mapping, auto bool) transport.Document {
	var b strings.Builder
	fmt.Fprintf(&b, "<b>📊 Completed tasks report</b>\nPeriod: %s — %s\n",
		start.Format(windowFormat), end.Format(windowFormat))

	if len(issues) == 0 {
		b.WriteString("\nNo tasks were completed in this period.\n")
	} else {
		var order []string
		byUser := map[string][]jira.Issue{}
		for _, is := range issues {
			if is.Assignee == "" {
				continue
			}
			name := mapping.Display(is.Assignee)
			if _, ok := byUser[name]; !ok {
				order = append(order, name)
			}
			byUser[name] = append(byUser[name], is)
		}

		for _, name := range order {
			tasks := byUser[name]
			links := make([]string, 0, len(tasks))
			for _, is := range tasks {
				links = append(links, issueLink(is.Key, serverURL))
			}
			fmt.Fprintf(&b, "\n<b>%s</b>: %d — %s\n",
				html.EscapeString(name), len(tasks), strings.Join(links, ", "))
		}
		fmt.Fprintf(&b, "\nTotal completed: <b>%d</b>\n", len(issues))
	}

	if auto {
		b.WriteString("\n<i>Generated automatically</i>")
	}
	return doc(b.String())
}

func issueLink(key, serverURL string) string {
	if serverURL == "" {
		return html.EscapeString(key)
	}
	return fmt.Sprintf(`<a href="%s/browse/%s">%s</a>`, serverURL, key, html.EscapeString(key))
}

// Error renders an inline error document for on-demand commands. Scheduled
// loops never post errors; they only log.
func Error(title, detail string) transport.Document {
	return doc(fmt.Sprintf("<b>⚠️ %s</b>\n%s", html.EscapeString(title), html.EscapeString(detail)))
}

// Help lists the admin commands.
func Help() transport.Document {
	var b strings.Builder
	b.WriteString("<b>📋 bugwatch commands</b>\n\n")
	for _, c := range [][2]string{
		{"/refresh", "refresh the bug list now"},
		{"/setbugschat [chat id]", "set the bugs chat (default: this chat)"},
		{"/setreportschat [chat id]", "set the reports chat"},
		{"/setleaderboardchat [chat id]", "set the leaderboard chat"},
		{"/setinterval <seconds|duration>", "set the bug refresh interval (e.g. 300 or 5m)"},
		{"/report", "generate a completed-tasks report now"},
		{"/leaderboard [days]", "generate the leaderboard now"},
		{"/status", "show loop and config state"},
		{"/help", "this help"},
	} {
		fmt.Fprintf(&b, "<b>%s</b> — %s\n", c[0], c[1])
	}
	b.WriteString("\nChat and interval changes are owner-only.")
	return doc(b.String())
}
