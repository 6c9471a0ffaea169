package model

// Outcome is the coarse result shown to the user for a download request.
type Outcome string

const (
	OutcomeNone       Outcome = "none"
	OutcomeProcessing Outcome = "processing"
	OutcomeCompleted  Outcome = "completed"
	OutcomeInvalidURL Outcome = "invalid-url"
	OutcomeCanceled   Outcome = "canceled"
	OutcomeUnknown    Outcome = "unknown"
)

// OutcomeOf maps a task to the outcome the UI reports for it.
func OutcomeOf(task *DownloadTask) Outcome {
	if task == nil {
		return OutcomeNone
	}
	switch task.Status {
	case TaskStatusCompleted:
		return OutcomeCompleted
	case TaskStatusStopped:
		return OutcomeCanceled
	case TaskStatusError:
		return OutcomeUnknown
	default:
		return OutcomeProcessing
	}
}
