package interpret

import (
	"errors"
	"fmt"
	"strings"
)

// Delimiter separates the three fields of a structured message.
const Delimiter = "-"

// ErrMalformedInput marks a structured message the sender must resend.
var ErrMalformedInput = errors.New("malformed structured message")

// ErrUnknownTaskType marks a task type that cannot be resolved against the
// type vocabulary.
var ErrUnknownTaskType = errors.New("unknown task type")

// ParsedFields are the typed segments of a "type - time - text" message.
type ParsedFields struct {
	TaskType string
	TaskTime string
	TaskText string
}

// IsStructured reports whether text should go through the delimiter parser.
// Text containing a URL scheme separator is always treated as simple, even
// when it also contains the delimiter. That coupling is a business rule:
// shared links become plain tasks, never field soup.
func IsStructured(text string) bool {
	return strings.Contains(text, Delimiter) && !strings.Contains(text, "://")
}

// ParseFields splits a structured message into its three trimmed fields.
// Extra delimiters fold into the final text field. Fewer than three segments
// is a user-input error, not a system fault.
func ParseFields(text string) (ParsedFields, error) {
	parts := strings.SplitN(text, Delimiter, 3)
	if len(parts) < 3 {
		return ParsedFields{}, fmt.Errorf("%w: want 3 %q-separated fields, got %d", ErrMalformedInput, Delimiter, len(parts))
	}
	return ParsedFields{
		TaskType: strings.TrimSpace(parts[0]),
		TaskTime: strings.TrimSpace(parts[1]),
		TaskText: strings.TrimSpace(parts[2]),
	}, nil
}
