package interpret

import (
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

// ShortcutRule maps a literal trigger token in the inbound text to a status
// label override. Rules are static configuration, loaded once at startup.
type ShortcutRule struct {
	Trigger string `yaml:"trigger"`
	Status  string `yaml:"status"`
}

// DefaultShortcuts returns the built-in trigger set.
func DefaultShortcuts() []ShortcutRule {
	return []ShortcutRule{
		{Trigger: "!urgent", Status: "⭐️ Today"},
		{Trigger: "!week", Status: "📅 This Week"},
		{Trigger: "!later", Status: "💤 Later"},
		{Trigger: "!waiting", Status: "⏳ Waiting"},
	}
}

// ProcessedTask is the normalized intermediate produced by the extractor.
// Status and DueDate are optional overlays; empty means not detected.
type ProcessedTask struct {
	Text    string
	Status  string
	DueDate string // RFC3339 instant
}

// Extractor scans raw text for shortcut triggers and natural-language date
// phrases, stripping matched substrings from the working text.
type Extractor struct {
	rules []ShortcutRule
	loc   *time.Location
	now   func() time.Time
	dates *when.Parser
}

// NewExtractor builds an extractor. Nil arguments fall back to the default
// shortcut set, UTC and the wall clock.
func NewExtractor(rules []ShortcutRule, loc *time.Location, now func() time.Time) *Extractor {
	if rules == nil {
		rules = DefaultShortcuts()
	}
	if loc == nil {
		loc = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return &Extractor{rules: rules, loc: loc, now: now, dates: w}
}

// Process scans text for shortcut triggers and a date phrase. Each matching
// rule overwrites Status and strips its trigger, so when several distinct
// triggers appear the last rule in enumeration order wins. Absence of a match
// is the default path, not an error: fields stay empty and Text is unchanged.
func (e *Extractor) Process(text string) ProcessedTask {
	out := ProcessedTask{Text: text}

	for _, rule := range e.rules {
		if strings.Contains(out.Text, rule.Trigger) {
			out.Status = rule.Status
			out.Text = collapseSpaces(strings.Replace(out.Text, rule.Trigger, "", 1))
		}
	}

	if due, remaining, ok := e.extractDue(out.Text); ok {
		out.DueDate = due
		out.Text = remaining
	}

	return out
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
