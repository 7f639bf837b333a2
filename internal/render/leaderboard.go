package render

import (
	"fmt"
	"html"
	"sort"
	"strings"
	"time"

	"bugwatch/internal/leaderboard"
	"bugwatch/internal/transport"
)

var medals = []string{"🥇", "🥈", "🥉"}

// Leaderboard renders the contributor ranking plus the wall of shame.
// pick selects one roast line per inactive contributor.
func Leaderboard(board *leaderboard.Board, windowDays int, now time.Time, pick leaderboard.Picker) transport.Document {
	start := now.AddDate(0, 0, -windowDays)

	var b strings.Builder
	fmt.Fprintf(&b, "<b>🏆 Leaderboard — last %d days</b>\n%s — %s\n",
		windowDays, start.Format("02.01.2006"), now.Format("02.01.2006"))

	active := board.Active()
	if len(active) == 0 {
		b.WriteString("\nNo completed tasks found in this period.\n")
		return doc(b.String())
	}

	b.WriteString("\n")
	for i, st := range active {
		pos := fmt.Sprintf("%d.", i+1)
		if i < len(medals) {
			pos = medals[i]
		}
		fmt.Fprintf(&b, "%s <b>%s</b>: %d tasks\n", pos, html.EscapeString(st.Name), st.Total)
	}

	// Per-type details for the podium.
	for i, st := range active {
		if i >= len(medals) {
			break
		}
		fmt.Fprintf(&b, "\n%s <b>%s</b> — details:\n", medals[i], html.EscapeString(st.Name))
		types := make([]string, 0, len(st.Types))
		for typ := range st.Types {
			types = append(types, typ)
		}
		sort.Strings(types)
		for _, typ := range types {
			fmt.Fprintf(&b, "  %s: %d\n", html.EscapeString(typ), st.Types[typ])
		}
	}

	if inactive := board.Inactive(); len(inactive) > 0 {
		b.WriteString("\n<b>⚠️ Wall of shame ⚠️</b>\n")
		for _, st := range inactive {
			fmt.Fprintf(&b, "• %s\n", html.EscapeString(pick(leaderboard.Roasts, st.Name)))
		}
	}

	fmt.Fprintf(&b, "\n<i>Generated %s</i>", now.Format(stampFormat))
	return doc(b.String())
}
