// Package render turns issue lists into chat-ready documents. Output is
// Telegram HTML; everything user-controlled goes through escaping.
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

const (
	// Telegram caps messages at 4096 chars; staying well under leaves room
	// for markup and the occasional long summary.
	chunkLimit = 3500

	stampFormat = "02.01.2006 15:04:05"
)

func doc(text string) transport.Document {
	return transport.Document{Text: text, ParseMode: "HTML", DisablePreview: true}
}

// Bugs renders the current open-bug list as one or more documents, grouped
// by status in the order statuses first appear.
func Bugs(issues []jira.Issue, now time.Time, mapping *config.Mapping) []transport.Document {
	header := fmt.Sprintf("<b>Current bugs</b>\nLast update: %s\n", now.Format(stampFormat))
	footer := "\n<i>Use /refresh to update manually</i>"

	if len(issues) == 0 {
		return []transport.Document{doc(header + "\nNo bugs matched the criteria. Enjoy it while it lasts.")}
	}

	var statusOrder []string
	byStatus := map[string][]jira.Issue{}
	for _, is := range issues {
		if _, ok := byStatus[is.Status]; !ok {
			statusOrder = append(statusOrder, is.Status)
		}
		byStatus[is.Status] = append(byStatus[is.Status], is)
	}

	var blocks []string
	for _, status := range statusOrder {
		var b strings.Builder
		fmt.Fprintf(&b, "\n<b>%s</b>\n", html.EscapeString(status))
		for _, is := range byStatus[status] {
			b.WriteString(bugLine(is, mapping))
		}
		blocks = append(blocks, b.String())
	}

	texts := chunk(header, footer, blocks)
	docs := make([]transport.Document, 0, len(texts))
	for _, t := range texts {
		docs = append(docs, doc(t))
	}
	return docs
}

func bugLine(is jira.Issue, mapping *config.Mapping) string {
	who := "unassigned"
	if is.Assignee != "" {
		who = mapping.Display(is.Assignee)
	}
	return fmt.Sprintf("• <b>%s</b> — %s <i>(%s)</i>\n",
		html.EscapeString(is.Key), html.EscapeString(is.Summary), html.EscapeString(who))
}

// chunk packs blocks into documents under the size limit. The first document
// carries the header; every document gets the footer. A single oversized
// block is split on line boundaries.
func chunk(header, footer string, blocks []string) []string {
	budget := chunkLimit - len(footer)

	var out []string
	cur := header
	flush := func() {
		if strings.TrimSpace(cur) != "" {
			out = append(out, cur+footer)
		}
		cur = ""
	}

	for _, block := range blocks {
		if len(block) > budget {
			// Split an oversized status block on lines.
			for _, line := range strings.SplitAfter(block, "\n") {
				if len(cur)+len(line) > budget {
					flush()
				}
				cur += line
			}
			continue
		}
		if len(cur)+len(block) > budget {
			flush()
		}
		cur += block
	}
	flush()

	if len(out) == 0 {
		out = append(out, header+footer)
	}
	return out
}
