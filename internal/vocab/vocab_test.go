package vocab

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hurttlocker/textask/internal/interpret"
)

type countingFetcher struct {
	calls int
	err   error
}

func (f *countingFetcher) Categories(ctx context.Context) ([]interpret.CategoryCandidate, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return []interpret.CategoryCandidate{{Name: "💼 Work", ID: "cat-work"}}, nil
}

func (f *countingFetcher) Statuses(ctx context.Context) (map[string]string, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return map[string]string{"today": "⭐️ Today"}, nil
}

func (f *countingFetcher) TaskTypes(ctx context.Context) ([]string, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return []string{"Call"}, nil
}

func TestCachedHitsUpstreamOnce(t *testing.T) {
	f := &countingFetcher{}
	v := NewCached(f, time.Minute, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		got, err := v.Categories(ctx)
		if err != nil {
			t.Fatalf("Categories: %v", err)
		}
		if len(got) != 1 || got[0].ID != "cat-work" {
			t.Errorf("categories: %v", got)
		}
	}
	if f.calls != 1 {
		t.Errorf("upstream calls: got %d, want 1", f.calls)
	}
}

func TestCachedPropagatesFetchError(t *testing.T) {
	f := &countingFetcher{err: errors.New("table store down")}
	v := NewCached(f, time.Minute, nil)

	if _, err := v.TaskTypes(context.Background()); err == nil {
		t.Fatal("expected fetch error to propagate")
	}
	// Errors are not cached; the next call retries upstream.
	f.err = nil
	types, err := v.TaskTypes(context.Background())
	if err != nil {
		t.Fatalf("TaskTypes after recovery: %v", err)
	}
	if len(types) != 1 {
		t.Errorf("types: %v", types)
	}
}

func TestCachedStatuses(t *testing.T) {
	f := &countingFetcher{}
	v := NewCached(f, time.Minute, nil)

	statuses, err := v.Statuses(context.Background())
	if err != nil {
		t.Fatalf("Statuses: %v", err)
	}
	if statuses["today"] != "⭐️ Today" {
		t.Errorf("statuses: %v", statuses)
	}
}

func TestStartRefreshRejectsBadSpec(t *testing.T) {
	v := NewCached(&countingFetcher{}, time.Minute, nil)
	if err := v.StartRefresh("not a cron spec"); err == nil {
		t.Fatal("expected error for invalid cron spec")
	}
}

func TestStartRefreshTwice(t *testing.T) {
	v := NewCached(&countingFetcher{}, time.Minute, nil)
	if err := v.StartRefresh("@every 1h"); err != nil {
		t.Fatalf("StartRefresh: %v", err)
	}
	defer v.StopRefresh()
	if err := v.StartRefresh("@every 1h"); err == nil {
		t.Fatal("expected error on double start")
	}
}
