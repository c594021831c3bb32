// Package interpret turns a free-form inbound message into a normalized
// task record: shortcut and date extraction, delimiter parsing for
// structured messages, fuzzy vocabulary matching, and best-effort oracle
// enrichment with deterministic fallbacks when the oracle is unavailable.
package interpret

import (
	"context"
	"fmt"
	"sync"
)

// Fallback status labels used when the status vocabulary is unavailable.
const (
	defaultTodayStatus   = "⭐️ Today"
	defaultBacklogStatus = "🗄 Backlog"
)

// Status vocabulary keys resolved against VocabularySource.Statuses.
const (
	statusKeyToday   = "today"
	statusKeyBacklog = "backlog"
)

// VocabularySource supplies the request-time vocabularies. Implementations
// may fail or return empty lists; the pipeline tolerates both.
type VocabularySource interface {
	Categories(ctx context.Context) ([]CategoryCandidate, error)
	Statuses(ctx context.Context) (map[string]string, error)
	TaskTypes(ctx context.Context) ([]string, error)
}

// Interpreter is the message-interpretation pipeline. All fields must be
// set; use New.
type Interpreter struct {
	extractor *Extractor
	oracle    *Oracle
	vocab     VocabularySource
}

// New builds an interpreter from its collaborators.
func New(extractor *Extractor, oracle *Oracle, vocab VocabularySource) *Interpreter {
	return &Interpreter{extractor: extractor, oracle: oracle, vocab: vocab}
}

// Result is an interpreted record plus its per-request metrics.
type Result struct {
	Record  TaskRecord
	Metrics Metrics
}

// Interpret runs the full pipeline on one raw message. It returns an error
// only for the user-input taxonomy (ErrMalformedInput, ErrUnknownTaskType)
// and context cancellation; enrichment and vocabulary failures degrade to
// documented defaults and still produce a record.
func (i *Interpreter) Interpret(ctx context.Context, raw string) (*Result, error) {
	var m Metrics

	processed := i.extractor.Process(raw)
	m.ShortcutMatched = processed.Status != ""
	m.DateDetected = processed.DueDate != ""

	// Vocabulary-unavailable is absorbed: empty lists trigger the same
	// fallbacks as empty vocabularies.
	statuses, _ := i.vocab.Statuses(ctx)
	categories, _ := i.vocab.Categories(ctx)

	if IsStructured(processed.Text) {
		m.Structured = true
		return i.interpretStructured(ctx, processed, statuses, categories, m)
	}
	return i.interpretSimple(ctx, processed, statuses, categories, m)
}

func (i *Interpreter) interpretStructured(ctx context.Context, processed ProcessedTask, statuses map[string]string, categories []CategoryCandidate, m Metrics) (*Result, error) {
	fields, err := ParseFields(processed.Text)
	if err != nil {
		return nil, err
	}

	types, _ := i.vocab.TaskTypes(ctx)
	if len(types) == 0 {
		return nil, fmt.Errorf("%w: task type vocabulary is empty", ErrUnknownTaskType)
	}
	taskType, ok := BestMatch(types, fields.TaskType)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTaskType, fields.TaskType)
	}

	// The sender supplied the duration; run it through the same grammar
	// as oracle replies so clamping and defaults behave identically.
	duration, valid := normalizeDuration(fields.TaskTime)
	if !valid {
		duration = DefaultDuration
		m.DurationDefaulted = true
	}

	m.OracleCalls++
	category, cerr := i.oracle.Classify(ctx, fields.TaskText, categories)
	if cerr != nil {
		m.OracleFailures++
	}
	m.CategoryFallback = category.ID == FallbackCategory.ID

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	record := Assemble(AssembleInput{
		Processed: ProcessedTask{
			Text:    fields.TaskText,
			Status:  processed.Status,
			DueDate: processed.DueDate,
		},
		Category:      category,
		Duration:      duration,
		DefaultStatus: statusLabel(statuses, statusKeyBacklog, defaultBacklogStatus),
		TaskType:      taskType,
		NeedsTriage:   true,
	})
	return &Result{Record: record, Metrics: m}, nil
}

func (i *Interpreter) interpretSimple(ctx context.Context, processed ProcessedTask, statuses map[string]string, categories []CategoryCandidate, m Metrics) (*Result, error) {
	var (
		wg       sync.WaitGroup
		category CategoryCandidate
		cerr     error
		duration string
		derr     error
	)

	// The two oracle calls are independent; both must settle (or fall back)
	// before assembly.
	wg.Add(2)
	go func() {
		defer wg.Done()
		category, cerr = i.oracle.Classify(ctx, processed.Text, categories)
	}()
	go func() {
		defer wg.Done()
		duration, derr = i.oracle.EstimateDuration(ctx, processed.Text)
	}()
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.OracleCalls += 2
	if cerr != nil {
		m.OracleFailures++
	}
	if derr != nil {
		m.OracleFailures++
		m.DurationDefaulted = true
	}
	m.CategoryFallback = category.ID == FallbackCategory.ID

	record := Assemble(AssembleInput{
		Processed:     processed,
		Category:      category,
		Duration:      duration,
		DefaultStatus: statusLabel(statuses, statusKeyToday, defaultTodayStatus),
	})
	return &Result{Record: record, Metrics: m}, nil
}

func statusLabel(statuses map[string]string, key, fallback string) string {
	if label, ok := statuses[key]; ok && label != "" {
		return label
	}
	return fallback
}
