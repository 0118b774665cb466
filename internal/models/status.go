package models

// DocumentStatus tracks a document through ingestion. The numeric values
// are persisted and must stay stable.
type DocumentStatus int16

const (
	StatusNew DocumentStatus = iota + 1
	StatusInProgress
	StatusProcessed
)

func (s DocumentStatus) String() string {
	switch s {
	case StatusNew:
		return "NEW"
	case StatusInProgress:
		return "IN_PROGRESS"
	case StatusProcessed:
		return "PROCESSED"
	default:
		return "UNKNOWN"
	}
}
