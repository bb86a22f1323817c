package model

// Kind tells whether an obligation is a task or an informational notice.
type Kind string

const (
	KindTask Kind = "task"
	KindInfo Kind = "info"
)

func (k Kind) Valid() bool {
	return k == KindTask || k == KindInfo
}

// DateStatus classifies a due date relative to today.
type DateStatus string

const (
	DateStatusPast   DateStatus = "past"
	DateStatusActive DateStatus = "activeDayRange"
	DateStatusFuture DateStatus = "future"
)

// TaskStatus is the lifecycle state of a task payload.
type TaskStatus string

const (
	TaskTodo       TaskStatus = "todo"
	TaskPending    TaskStatus = "pending"
	TaskDone       TaskStatus = "done"
	TaskWarning    TaskStatus = "warning"
	TaskLate       TaskStatus = "late"
	TaskUnrealised TaskStatus = "unrealised"
)

func (s TaskStatus) Valid() bool {
	switch s {
	case TaskTodo, TaskPending, TaskDone, TaskWarning, TaskLate, TaskUnrealised:
		return true
	}
	return false
}

// IsOpen reports whether a task in this state still counts as outstanding.
func (s TaskStatus) IsOpen() bool {
	switch s {
	case TaskTodo, TaskPending, TaskWarning, TaskLate:
		return true
	}
	return false
}
