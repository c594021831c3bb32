package interpret

import (
	"regexp"
	"time"
)

// defaultDueHour is the clock time applied when a date phrase carries no
// explicit time of day.
const defaultDueHour = 17

var (
	clockTimeRe = regexp.MustCompile(`(?i)\b\d{1,2}:\d{2}\b|\b\d{1,2}\s*(am|pm)\b|\bnoon\b|\bmidnight\b`)

	// trailingConnectorRe trims a dangling temporal connector left behind
	// after the matched date span is removed ("renew passport by" → "renew
	// passport"). This is a best-effort strip: a connector word that ends
	// the text for unrelated reasons is removed too.
	trailingConnectorRe = regexp.MustCompile(`(?i)\s+(by|on|at|in|this|next|due|for|today|tomorrow|tonight)\s*$`)
)

// extractDue recognizes a natural-language date phrase in text. It returns
// the RFC3339 due instant, the text with the date language removed, and
// whether a phrase was found.
func (e *Extractor) extractDue(text string) (due string, remaining string, ok bool) {
	base := e.now().In(e.loc)
	r, err := e.dates.Parse(text, base)
	if err != nil || r == nil {
		return "", text, false
	}

	t := r.Time.In(e.loc)
	if !clockTimeRe.MatchString(r.Text) {
		t = time.Date(t.Year(), t.Month(), t.Day(), defaultDueHour, 0, 0, 0, e.loc)
	}

	stripped := text[:r.Index] + text[r.Index+len(r.Text):]
	stripped = trailingConnectorRe.ReplaceAllString(collapseSpaces(stripped), "")

	return t.Format(time.RFC3339), collapseSpaces(stripped), true
}
