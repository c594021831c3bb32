package interpret

import (
	"context"
	"errors"
	"testing"

	"github.com/hurttlocker/textask/internal/llm"
)

// fakeProvider is a canned-reply oracle for tests.
type fakeProvider struct {
	reply string
	err   error
	calls int
}

func (f *fakeProvider) Complete(ctx context.Context, prompt string, opts llm.CompletionOpts) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func (f *fakeProvider) Name() string { return "fake" }

var testCandidates = []CategoryCandidate{
	{Name: "💼 Work", ID: "cat-work"},
	{Name: "🏠 Home", ID: "cat-home"},
	{Name: "❓ Uncategorized", ID: "cat-unc"},
}

func TestClassifyExactMatch(t *testing.T) {
	p := &fakeProvider{reply: "🏠 Home"}
	o := NewOracle(p, 0)

	got, err := o.Classify(context.Background(), "fix the sink", testCandidates)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != "cat-home" {
		t.Errorf("got %+v, want cat-home", got)
	}
}

func TestClassifyReplyNotInCandidates(t *testing.T) {
	p := &fakeProvider{reply: "Chores"}
	o := NewOracle(p, 0)

	got, err := o.Classify(context.Background(), "fix the sink", testCandidates)
	if err == nil {
		t.Fatal("expected a fallback-explaining error")
	}
	// The vocabulary's own uncategorized entry wins over the sentinel.
	if got.ID != "cat-unc" {
		t.Errorf("got %+v, want the vocabulary uncategorized entry", got)
	}
}

func TestClassifyOracleFailure(t *testing.T) {
	p := &fakeProvider{err: errors.New("connection refused")}
	o := NewOracle(p, 0)

	got, err := o.Classify(context.Background(), "fix the sink", testCandidates)
	if err == nil {
		t.Fatal("expected a fallback-explaining error")
	}
	if got.ID != "cat-unc" {
		t.Errorf("got %+v, want the vocabulary uncategorized entry", got)
	}
}

func TestClassifyFailureWithoutUncategorizedEntry(t *testing.T) {
	p := &fakeProvider{err: errors.New("boom")}
	o := NewOracle(p, 0)

	candidates := []CategoryCandidate{{Name: "💼 Work", ID: "cat-work"}}
	got, _ := o.Classify(context.Background(), "fix the sink", candidates)
	if got != FallbackCategory {
		t.Errorf("got %+v, want the fallback sentinel", got)
	}
}

func TestClassifyEmptyCandidatesSkipsOracle(t *testing.T) {
	p := &fakeProvider{reply: "anything"}
	o := NewOracle(p, 0)

	got, err := o.Classify(context.Background(), "fix the sink", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != FallbackCategory {
		t.Errorf("got %+v, want the fallback sentinel", got)
	}
	if p.calls != 0 {
		t.Errorf("oracle was called %d times, want 0", p.calls)
	}
}

func TestEstimateDuration(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  string
	}{
		{"valid mins", "45 mins", "45 mins"},
		{"valid hr", "1 hr", "1 hr"},
		{"valid hr mins", "1 hr 30 mins", "1 hr 30 mins"},
		{"over ceiling", "3 hr", "2 hr"},
		{"over ceiling with mins", "2 hr 15 mins", "2 hr"},
		{"invalid format", "soon", "15 mins"},
		{"invalid units", "90 minutes", "15 mins"},
		{"untrimmed valid", "  30 mins  ", "30 mins"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := NewOracle(&fakeProvider{reply: tt.reply}, 0)
			got, _ := o.EstimateDuration(context.Background(), "some task")
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEstimateDurationOracleFailure(t *testing.T) {
	o := NewOracle(&fakeProvider{err: errors.New("timeout")}, 0)
	got, err := o.EstimateDuration(context.Background(), "some task")
	if err == nil {
		t.Fatal("expected a fallback-explaining error")
	}
	if got != DefaultDuration {
		t.Errorf("got %q, want %q", got, DefaultDuration)
	}
}

func TestEstimateDurationNilProvider(t *testing.T) {
	o := NewOracle(nil, 0)
	got, err := o.EstimateDuration(context.Background(), "some task")
	if err == nil {
		t.Fatal("expected error from nil provider")
	}
	if got != DefaultDuration {
		t.Errorf("got %q, want %q", got, DefaultDuration)
	}
}

func TestNormalizeDuration(t *testing.T) {
	if got := NormalizeDuration("2 hr 1 mins"); got != "2 hr" {
		t.Errorf("got %q, want clamp to 2 hr", got)
	}
	if got := NormalizeDuration(""); got != DefaultDuration {
		t.Errorf("got %q, want default", got)
	}
	if got := NormalizeDuration("15 mins"); got != "15 mins" {
		t.Errorf("got %q, want pass-through", got)
	}
}
