package db

import (
	"encoding/json"
	"time"

	"github.com/uptrace/bun"

	"study-stream/internal/models"
)

// School is the top of the study hierarchy: a school holds subjects,
// subjects hold documents.
type School struct {
	bun.BaseModel `bun:"table:study_stream_school,alias:sch"`

	ID         int64      `bun:"id,pk,autoincrement"`
	Name       string     `bun:"name,notnull"`
	SchoolType int16      `bun:"school_type,notnull"`
	StartDate  time.Time  `bun:"start_date,notnull,default:current_timestamp"`
	FinishDate *time.Time `bun:"finish_date"`

	Subjects []*Subject `bun:"rel:has-many,join:id=school_id"`
}

type Subject struct {
	bun.BaseModel `bun:"table:study_stream_subject,alias:sub"`

	ID         int64      `bun:"id,pk,autoincrement"`
	SchoolID   int64      `bun:"school_id"`
	ClassName  string     `bun:"class_name,notnull"`
	StartDate  time.Time  `bun:"start_date,notnull,default:current_timestamp"`
	FinishDate *time.Time `bun:"finish_date"`

	Documents []*Document `bun:"rel:has-many,join:id=subject_id"`
}

// Document is a study document added by the user. Its status walks
// NEW -> IN_PROGRESS -> PROCESSED during ingestion, falling back to NEW on
// failure; the transition timestamps are recorded alongside.
type Document struct {
	bun.BaseModel `bun:"table:study_stream_document,alias:d"`

	ID             int64                 `bun:"id,pk,autoincrement"`
	SubjectID      int64                 `bun:"subject_id"`
	Name           string                `bun:"name,notnull"`
	FilePath       string                `bun:"file_path,notnull"`
	FileType       int16                 `bun:"file_type,notnull"`
	Status         models.DocumentStatus `bun:"status,notnull"`
	CreationDate   time.Time             `bun:"creation_date,notnull,default:current_timestamp"`
	InProgressDate *time.Time            `bun:"in_progress_date"`
	ProcessedDate  *time.Time            `bun:"processed_date"`
}

// Note holds the free-form subject notes as an opaque JSON document.
type Note struct {
	bun.BaseModel `bun:"table:study_stream_note,alias:n"`

	ID          int64           `bun:"id,pk,autoincrement"`
	SubjectID   int64           `bun:"subject_id,unique"`
	JSONContent json.RawMessage `bun:"json_content,type:jsonb,notnull"`
	CreatedAt   time.Time       `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt   time.Time       `bun:"updated_at,notnull,default:current_timestamp"`
}

// Message type codes, stable for persistence.
const (
	MessageTypeQuestion int16 = 1
	MessageTypeAnswer   int16 = 2
)

// Message is one persisted chat message, kept so a conversation survives
// restarts.
type Message struct {
	bun.BaseModel `bun:"table:study_stream_message,alias:m"`

	ID        int64     `bun:"id,pk,autoincrement"`
	Type      int16     `bun:"type,notnull"`
	Content   string    `bun:"content,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
}
