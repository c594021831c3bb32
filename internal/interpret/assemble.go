package interpret

// Column names for assembled records. The assembler always emits required
// fields first in this order, then the optional fields that apply, so
// downstream consumers and tests see a stable layout.
const (
	ColumnTaskName    = "Task Name"
	ColumnStatus      = "Task Status"
	ColumnCategory    = "Category"
	ColumnDuration    = "Predicted Duration"
	ColumnTaskType    = "Task Type"
	ColumnNeedsTriage = "Needs Triage"
	ColumnDueDate     = "Due Date"
)

// Field is one named column value in a TaskRecord.
type Field struct {
	Column string
	Value  any
}

// TaskRecord is the final assembled structure handed to the persistence
// sink: an ordered set of named field/value pairs.
type TaskRecord struct {
	Fields []Field
}

// Get returns the value for column, if present.
func (r TaskRecord) Get(column string) (any, bool) {
	for _, f := range r.Fields {
		if f.Column == column {
			return f.Value, true
		}
	}
	return nil, false
}

// AssembleInput carries the pipeline outputs to merge into one record.
type AssembleInput struct {
	Processed     ProcessedTask
	Category      CategoryCandidate
	Duration      string
	DefaultStatus string
	TaskType      string // set only for structured messages
	NeedsTriage   bool
}

// Assemble merges the pipeline outputs into a normalized task record.
// Task name, status, category id and duration are always present; task
// type, needs-triage and due date are appended only when set.
func Assemble(in AssembleInput) TaskRecord {
	status := in.Processed.Status
	if status == "" {
		status = in.DefaultStatus
	}

	fields := []Field{
		{Column: ColumnTaskName, Value: in.Processed.Text},
		{Column: ColumnStatus, Value: status},
		{Column: ColumnCategory, Value: in.Category.ID},
		{Column: ColumnDuration, Value: in.Duration},
	}
	if in.TaskType != "" {
		fields = append(fields, Field{Column: ColumnTaskType, Value: in.TaskType})
	}
	if in.NeedsTriage {
		fields = append(fields, Field{Column: ColumnNeedsTriage, Value: true})
	}
	if in.Processed.DueDate != "" {
		fields = append(fields, Field{Column: ColumnDueDate, Value: in.Processed.DueDate})
	}

	return TaskRecord{Fields: fields}
}
