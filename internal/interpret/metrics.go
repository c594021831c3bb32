package interpret

// Metrics is the per-request accounting value returned alongside each
// interpreted record. It is accumulated by the caller (logged, summed,
// dropped); the pipeline itself holds no global counter state.
type Metrics struct {
	Structured        bool // message went through the delimiter parser
	ShortcutMatched   bool // a shortcut trigger set the status overlay
	DateDetected      bool // a date phrase produced a due date
	OracleCalls       int  // completions attempted
	OracleFailures    int  // completions that fell back to defaults
	CategoryFallback  bool // no real category resolved
	DurationDefaulted bool // duration came from the fixed default
}
