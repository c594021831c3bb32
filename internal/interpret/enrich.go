package interpret

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/hurttlocker/textask/internal/llm"
)

// CategoryCandidate is an element of the externally supplied category
// vocabulary. ID "fallback" is the sentinel for "no real category resolved".
type CategoryCandidate struct {
	Name string
	ID   string
}

// FallbackCategory is returned when no real category can be resolved.
var FallbackCategory = CategoryCandidate{Name: "Uncategorized", ID: "fallback"}

// DefaultDuration is the duration used whenever estimation fails.
const DefaultDuration = "15 mins"

// maxDurationMins is the estimation ceiling; anything above clamps to "2 hr".
const maxDurationMins = 120

// defaultOracleTimeout bounds a single oracle call so enrichment never
// blocks task creation.
const defaultOracleTimeout = 10 * time.Second

const classifySystemPrompt = `You are a task categorizer. You will be given a task description and a list of category names. Reply with exactly one name from the list, copied character for character, including any emoji. Reply with the name only, no punctuation, no explanation.`

const durationSystemPrompt = `You are a task duration estimator. Estimate how long the given task takes. Reply with exactly one value from this list and nothing else: 15 mins, 30 mins, 45 mins, 1 hr, 1 hr 15 mins, 1 hr 30 mins, 1 hr 45 mins, 2 hr.`

// Oracle enriches tasks via an external completion service. Replies are
// untrusted free text: every payload is validated before use, and any
// failure degrades to a fixed default. Enrichment never blocks persistence.
type Oracle struct {
	provider llm.Provider
	timeout  time.Duration
}

// NewOracle wraps provider with a per-call timeout (0 = default 10s).
// A nil provider is allowed and behaves as a permanently failing oracle.
func NewOracle(provider llm.Provider, timeout time.Duration) *Oracle {
	if timeout <= 0 {
		timeout = defaultOracleTimeout
	}
	return &Oracle{provider: provider, timeout: timeout}
}

// Classify resolves description to one of candidates. The returned candidate
// is always usable; a non-nil error only explains why a fallback was chosen
// (oracle unreachable, reply not in the candidate list). With an empty
// candidate list the oracle is not called at all.
func (o *Oracle) Classify(ctx context.Context, description string, candidates []CategoryCandidate) (CategoryCandidate, error) {
	if len(candidates) == 0 {
		return FallbackCategory, nil
	}

	reply, err := o.complete(ctx, classifyPrompt(description, candidates), classifySystemPrompt, 64)
	if err != nil {
		return uncategorizedOf(candidates), fmt.Errorf("category oracle: %w", err)
	}

	reply = strings.TrimSpace(reply)
	for _, c := range candidates {
		if c.Name == reply {
			return c, nil
		}
	}
	return uncategorizedOf(candidates), fmt.Errorf("category oracle: reply %q not in candidate list", reply)
}

// EstimateDuration asks the oracle for a duration estimate. The returned
// string is always grammar-valid; a non-nil error explains a default.
func (o *Oracle) EstimateDuration(ctx context.Context, description string) (string, error) {
	reply, err := o.complete(ctx, durationPrompt(description), durationSystemPrompt, 16)
	if err != nil {
		return DefaultDuration, fmt.Errorf("duration oracle: %w", err)
	}
	normalized, ok := normalizeDuration(reply)
	if !ok {
		return DefaultDuration, fmt.Errorf("duration oracle: reply %q does not match the duration grammar", reply)
	}
	return normalized, nil
}

func (o *Oracle) complete(ctx context.Context, prompt, system string, maxTokens int) (string, error) {
	if o.provider == nil {
		return "", fmt.Errorf("no oracle provider configured")
	}
	callCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()
	return o.provider.Complete(callCtx, prompt, llm.CompletionOpts{
		MaxTokens:   maxTokens,
		Temperature: 0.1,
		System:      system,
	})
}

func classifyPrompt(description string, candidates []CategoryCandidate) string {
	var sb strings.Builder
	sb.WriteString("TASK: ")
	sb.WriteString(description)
	sb.WriteString("\n\nCATEGORIES:\n")
	for _, c := range candidates {
		sb.WriteString("- ")
		sb.WriteString(c.Name)
		sb.WriteString("\n")
	}
	return sb.String()
}

func durationPrompt(description string) string {
	return "TASK: " + description
}

// uncategorizedOf prefers the vocabulary's own uncategorized entry, matched
// by case-insensitive substring, over the hardcoded sentinel.
func uncategorizedOf(candidates []CategoryCandidate) CategoryCandidate {
	for _, c := range candidates {
		if strings.Contains(strings.ToLower(c.Name), "uncategorized") {
			return c
		}
	}
	return FallbackCategory
}

var (
	minsOnlyRe = regexp.MustCompile(`^(\d+) mins$`)
	hrOnlyRe   = regexp.MustCompile(`^(\d+) hr$`)
	hrMinsRe   = regexp.MustCompile(`^(\d+) hr (\d+) mins$`)
)

// NormalizeDuration validates raw against the duration grammar ("<N> mins",
// "<N> hr" or "<N> hr <M> mins"). Grammar mismatch yields the default;
// totals over two hours clamp to "2 hr"; valid values pass through trimmed.
func NormalizeDuration(raw string) string {
	if normalized, ok := normalizeDuration(raw); ok {
		return normalized
	}
	return DefaultDuration
}

func normalizeDuration(raw string) (string, bool) {
	s := strings.TrimSpace(raw)

	var total int
	switch {
	case minsOnlyRe.MatchString(s):
		m := minsOnlyRe.FindStringSubmatch(s)
		total, _ = strconv.Atoi(m[1])
	case hrOnlyRe.MatchString(s):
		m := hrOnlyRe.FindStringSubmatch(s)
		h, _ := strconv.Atoi(m[1])
		total = h * 60
	case hrMinsRe.MatchString(s):
		m := hrMinsRe.FindStringSubmatch(s)
		h, _ := strconv.Atoi(m[1])
		mins, _ := strconv.Atoi(m[2])
		total = h*60 + mins
	default:
		return "", false
	}

	if total > maxDurationMins {
		return "2 hr", true
	}
	return s, true
}
