package interpret

import "testing"

func TestBestMatch(t *testing.T) {
	tests := []struct {
		name       string
		candidates []string
		query      string
		want       string
		wantOK     bool
	}{
		{"typo match", []string{"Call", "Email", "Meeting"}, "meetng", "Meeting", true},
		{"exact match", []string{"Call", "Email", "Meeting"}, "Email", "Email", true},
		{"case insensitive", []string{"Call", "Email", "Meeting"}, "call", "Call", true},
		{"emoji candidate", []string{"🛒 Groceries", "💼 Work"}, "groceries", "🛒 Groceries", true},
		{"empty candidates", nil, "anything", "", false},
		{"empty query", []string{"Call"}, "", "", false},
		{"nothing in common", []string{"Call"}, "zzzzzzzzzz", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := BestMatch(tt.candidates, tt.query)
			if ok != tt.wantOK {
				t.Fatalf("ok: got %v, want %v (match %q)", ok, tt.wantOK, got)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBestMatchStableTieBreak(t *testing.T) {
	// Identical candidates score the same; the first seen must win, every time.
	candidates := []string{"Task A", "Task B"}
	for i := 0; i < 20; i++ {
		got, ok := BestMatch(candidates, "task")
		if !ok || got != "Task A" {
			t.Fatalf("iteration %d: got %q ok=%v, want stable %q", i, got, ok, "Task A")
		}
	}
}

func TestBestMatchLenient(t *testing.T) {
	// No minimum-similarity cutoff beyond the usability floor: a poor match
	// is still returned as best.
	got, ok := BestMatch([]string{"Call", "Email"}, "cll")
	if !ok {
		t.Fatal("expected a lenient match")
	}
	if got != "Call" {
		t.Errorf("got %q, want %q", got, "Call")
	}
}
