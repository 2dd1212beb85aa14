package ai

import (
	"fmt"
	"strings"

	"github.com/liamchampton/write-my-performance-review/internal/domain"
)

const (
	activitySystemPrompt = "You write short, professional summaries of work activities."
	reviewSystemPrompt   = "You write compelling, evidence-based performance review summaries for technology professionals."
)

func activityPrompt(req ActivityRequest) string {
	return fmt.Sprintf(`Summarize the following professional activity in 2-3 sentences.

Title: %s
Category: %s
Description: %s

Lead with the outcome: who was reached, what was delivered and which technical topics were covered. Call out results that show quality, security awareness or effective use of AI, and how the work helped the team grow or build trust.`,
		req.Title, req.Category, req.Description)
}

// reviewPrompt lists every activity that already has a summary. Activities
// without one are skipped but still counted in the header.
func reviewPrompt(activities []domain.Activity) string {
	entries := make([]string, 0, len(activities))
	for i, activity := range activities {
		if activity.AISummary == "" {
			continue
		}
		title := activity.Title
		if title == "" {
			title = "Untitled"
		}
		category := activity.Category
		if category == "" {
			category = "General"
		}
		entries = append(entries, fmt.Sprintf("%d. [%s] %s (%s)\n   %s", i+1, category, title, activity.Date, activity.AISummary))
	}

	return fmt.Sprintf(`Write a performance review summary from the %d activities below.

The summary should:
- open with the most significant accomplishments and their overall impact
- quote concrete numbers where the activities give them (audience, views, engagement)
- group related work by theme or category
- show technical depth and community involvement
- use a professional tone and active voice suitable for a formal review

Activities:

%s

Write 3-5 paragraphs.`, len(activities), strings.Join(entries, "\n\n"))
}
