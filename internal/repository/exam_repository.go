package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vandap/vandap-backend/internal/model"
)

// ExamRepository handles exam data access.
type ExamRepository struct {
	pool *pgxpool.Pool
}

// NewExamRepository creates a new ExamRepository.
func NewExamRepository(pool *pgxpool.Pool) *ExamRepository {
	return &ExamRepository{pool: pool}
}

// GetByID retrieves an exam by ID.
func (r *ExamRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error) {
	e := &model.Exam{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, preparation_seconds, recording_seconds, created_at
		 FROM exams WHERE id = $1`, id,
	).Scan(&e.ID, &e.Name, &e.PreparationSeconds, &e.RecordingSeconds, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// List retrieves all exams, newest first.
func (r *ExamRepository) List(ctx context.Context) ([]model.Exam, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, preparation_seconds, recording_seconds, created_at
		 FROM exams ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var exams []model.Exam
	for rows.Next() {
		var e model.Exam
		if err := rows.Scan(&e.ID, &e.Name, &e.PreparationSeconds, &e.RecordingSeconds, &e.CreatedAt); err != nil {
			return nil, err
		}
		exams = append(exams, e)
	}
	return exams, rows.Err()
}

// Create inserts a new exam.
func (r *ExamRepository) Create(ctx context.Context, e *model.Exam) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO exams (name, preparation_seconds, recording_seconds)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at`,
		e.Name, e.PreparationSeconds, e.RecordingSeconds,
	).Scan(&e.ID, &e.CreatedAt)
}

// Update modifies an exam's name and timing configuration.
func (r *ExamRepository) Update(ctx context.Context, e *model.Exam) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE exams SET name = $1, preparation_seconds = $2, recording_seconds = $3
		 WHERE id = $4`,
		e.Name, e.PreparationSeconds, e.RecordingSeconds, e.ID,
	)
	return err
}

// Delete removes an exam. Fails with a foreign key violation if participants
// or questions still reference it.
func (r *ExamRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM exams WHERE id = $1`, id)
	return err
}
