package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vandap/vandap-backend/internal/model"
)

var ErrDuplicateQuestionCode = errors.New("question with this code already exists in the exam")

// QuestionRepository handles question bank data access.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

// GetByID retrieves a question by ID.
func (r *QuestionRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Question, error) {
	q := &model.Question{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, exam_id, code, content_ref, active, created_at
		 FROM questions WHERE id = $1`, id,
	).Scan(&q.ID, &q.ExamID, &q.Code, &q.ContentRef, &q.Active, &q.CreatedAt)
	if err != nil {
		return nil, err
	}
	return q, nil
}

// ListByExam retrieves all questions of an exam ordered by code.
func (r *QuestionRepository) ListByExam(ctx context.Context, examID uuid.UUID) ([]model.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, exam_id, code, content_ref, active, created_at
		 FROM questions WHERE exam_id = $1 ORDER BY code`, examID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		var q model.Question
		if err := rows.Scan(&q.ID, &q.ExamID, &q.Code, &q.ContentRef, &q.Active, &q.CreatedAt); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// RandomActive picks one active question of the exam uniformly at random.
// Returns (nil, nil) when the exam has no active questions.
func (r *QuestionRepository) RandomActive(ctx context.Context, examID uuid.UUID) (*model.Question, error) {
	q := &model.Question{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, exam_id, code, content_ref, active, created_at
		 FROM questions WHERE exam_id = $1 AND active
		 ORDER BY random() LIMIT 1`, examID,
	).Scan(&q.ID, &q.ExamID, &q.Code, &q.ContentRef, &q.Active, &q.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return q, nil
}

// Create inserts a new question.
func (r *QuestionRepository) Create(ctx context.Context, q *model.Question) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO questions (exam_id, code, content_ref, active)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`,
		q.ExamID, q.Code, q.ContentRef, q.Active,
	).Scan(&q.ID, &q.CreatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateQuestionCode
		}
		return err
	}
	return nil
}

// Update modifies a question's code, content ref and active flag.
func (r *QuestionRepository) Update(ctx context.Context, q *model.Question) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE questions SET code = $1, content_ref = $2, active = $3 WHERE id = $4`,
		q.Code, q.ContentRef, q.Active, q.ID,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateQuestionCode
		}
		return err
	}
	return nil
}

// Delete removes a question. Fails with a foreign key violation if a
// participant already drew it.
func (r *QuestionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM questions WHERE id = $1`, id)
	return err
}
