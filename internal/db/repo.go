package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"study-stream/internal/models"
)

// DocumentRepo is the slice of the study store the ingestion orchestration
// depends on. The orchestrator is the sole writer of the status and
// transition timestamps.
type DocumentRepo interface {
	GetDocument(ctx context.Context, id int64) (*Document, error)
	CreateDocument(ctx context.Context, doc *Document) error
	UpdateStatus(ctx context.Context, id int64, status models.DocumentStatus) error
}

// StudyRepo implements the study CRUD store on bun/postgres.
type StudyRepo struct {
	db *bun.DB
}

var _ DocumentRepo = (*StudyRepo)(nil)

func NewStudyRepo(db *bun.DB) *StudyRepo {
	return &StudyRepo{db: db}
}

// FetchSchools loads the whole School -> Subject -> Document tree eagerly
// for the navigator.
func (r *StudyRepo) FetchSchools(ctx context.Context) ([]*School, error) {
	var schools []*School
	err := r.db.NewSelect().
		Model(&schools).
		Relation("Subjects").
		Relation("Subjects.Documents").
		Order("sch.id").
		Scan(ctx)
	return schools, err
}

func (r *StudyRepo) GetDocument(ctx context.Context, id int64) (*Document, error) {
	doc := new(Document)
	err := r.db.NewSelect().Model(doc).Where("d.id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: document %d", models.ErrNotFound, id)
	}
	return doc, err
}

func (r *StudyRepo) CreateDocument(ctx context.Context, doc *Document) error {
	if doc.Status == 0 {
		doc.Status = models.StatusNew
	}
	if doc.CreationDate.IsZero() {
		doc.CreationDate = time.Now().UTC()
	}
	_, err := r.db.NewInsert().Model(doc).Exec(ctx)
	return err
}

// UpdateStatus writes the status and the matching transition timestamp.
func (r *StudyRepo) UpdateStatus(ctx context.Context, id int64, status models.DocumentStatus) error {
	now := time.Now().UTC()
	q := r.db.NewUpdate().
		Model((*Document)(nil)).
		Set("status = ?", status).
		Where("id = ?", id)
	switch status {
	case models.StatusInProgress:
		q = q.Set("in_progress_date = ?", now)
	case models.StatusProcessed:
		q = q.Set("processed_date = ?", now)
	}
	res, err := q.Exec(ctx)
	if err != nil {
		return err
	}
	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		return fmt.Errorf("%w: document %d", models.ErrNotFound, id)
	}
	return nil
}

// DeleteDocument removes the document record. The embedded vectors are
// left in place; the store keeps what it has ingested.
func (r *StudyRepo) DeleteDocument(ctx context.Context, id int64) error {
	res, err := r.db.NewDelete().Model((*Document)(nil)).Where("id = ?", id).Exec(ctx)
	if err != nil {
		return err
	}
	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		return fmt.Errorf("%w: document %d", models.ErrNotFound, id)
	}
	return nil
}

func (r *StudyRepo) CreateSchool(ctx context.Context, school *School) error {
	_, err := r.db.NewInsert().Model(school).Exec(ctx)
	return err
}

func (r *StudyRepo) CreateSubject(ctx context.Context, subject *Subject) error {
	_, err := r.db.NewInsert().Model(subject).Exec(ctx)
	return err
}

// SaveNote inserts or replaces the single note attached to a subject.
func (r *StudyRepo) SaveNote(ctx context.Context, note *Note) error {
	note.UpdatedAt = time.Now().UTC()
	if note.CreatedAt.IsZero() {
		note.CreatedAt = note.UpdatedAt
	}
	_, err := r.db.NewInsert().
		Model(note).
		On("CONFLICT (subject_id) DO UPDATE").
		Set("json_content = EXCLUDED.json_content").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return err
}

func (r *StudyRepo) GetNote(ctx context.Context, subjectID int64) (*Note, error) {
	note := new(Note)
	err := r.db.NewSelect().Model(note).Where("subject_id = ?", subjectID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: note for subject %d", models.ErrNotFound, subjectID)
	}
	return note, err
}

func (r *StudyRepo) CreateMessage(ctx context.Context, msg *Message) error {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.NewInsert().Model(msg).Exec(ctx)
	return err
}

// RecentMessages returns the latest n messages in chronological order.
func (r *StudyRepo) RecentMessages(ctx context.Context, n int) ([]*Message, error) {
	var messages []*Message
	err := r.db.NewSelect().
		Model(&messages).
		Order("m.created_at DESC").
		Limit(n).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}
