package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vandap/vandap-backend/internal/model"
)

// ParticipantRepository handles exam participation data access. State
// transitions are conditional updates guarded by the current status, so two
// concurrent requests can never both win the same transition. Each mutator
// returns whether its guard matched a row.
type ParticipantRepository struct {
	pool *pgxpool.Pool
}

// NewParticipantRepository creates a new ParticipantRepository.
func NewParticipantRepository(pool *pgxpool.Pool) *ParticipantRepository {
	return &ParticipantRepository{pool: pool}
}

const participantColumns = `id, exam_id, student_id, question_id, status, start_time, submit_time, artifact_ref, created_at`

// GetByID retrieves a participant by ID.
func (r *ParticipantRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Participant, error) {
	p := &model.Participant{}
	err := r.pool.QueryRow(ctx,
		`SELECT `+participantColumns+` FROM participants WHERE id = $1`, id,
	).Scan(&p.ID, &p.ExamID, &p.StudentID, &p.QuestionID, &p.Status, &p.StartTime, &p.SubmitTime, &p.ArtifactRef, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// GetByExamAndStudent retrieves a student's participant row in one exam.
func (r *ParticipantRepository) GetByExamAndStudent(ctx context.Context, examID uuid.UUID, studentID int) (*model.Participant, error) {
	p := &model.Participant{}
	err := r.pool.QueryRow(ctx,
		`SELECT `+participantColumns+` FROM participants
		 WHERE exam_id = $1 AND student_id = $2`, examID, studentID,
	).Scan(&p.ID, &p.ExamID, &p.StudentID, &p.QuestionID, &p.Status, &p.StartTime, &p.SubmitTime, &p.ArtifactRef, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Assign registers students as participants of an exam. Students already
// assigned are skipped. Returns the number of newly created rows.
func (r *ParticipantRepository) Assign(ctx context.Context, examID uuid.UUID, studentIDs []int) (int, error) {
	created := 0
	for _, sid := range studentIDs {
		tag, err := r.pool.Exec(ctx,
			`INSERT INTO participants (exam_id, student_id)
			 VALUES ($1, $2)
			 ON CONFLICT (exam_id, student_id) DO NOTHING`,
			examID, sid,
		)
		if err != nil {
			return created, err
		}
		created += int(tag.RowsAffected())
	}
	return created, nil
}

// AssignQuestion attaches a drawn question to a waiting participant who has
// no question yet.
func (r *ParticipantRepository) AssignQuestion(ctx context.Context, id, questionID uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE participants SET question_id = $1
		 WHERE id = $2 AND status = 'waiting' AND question_id IS NULL`,
		questionID, id,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// MarkStarted moves a waiting participant with a drawn question into the
// in_progress state, anchoring their attempt window at startTime.
func (r *ParticipantRepository) MarkStarted(ctx context.Context, id uuid.UUID, startTime time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE participants SET status = 'in_progress', start_time = $1
		 WHERE id = $2 AND status = 'waiting' AND question_id IS NOT NULL AND start_time IS NULL`,
		startTime, id,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// RebaseStart moves an in-progress participant's anchor backwards. Used when
// a participant skips the rest of their preparation countdown. The guard only
// allows moving the anchor to an earlier instant, never extending the window.
func (r *ParticipantRepository) RebaseStart(ctx context.Context, id uuid.UUID, newStart time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE participants SET start_time = $1
		 WHERE id = $2 AND status = 'in_progress' AND start_time > $1`,
		newStart, id,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// MarkSubmitted finalizes an in-progress participant with the submission time
// and the recording ref (nil when the window expired with nothing staged).
func (r *ParticipantRepository) MarkSubmitted(ctx context.Context, id uuid.UUID, submitTime time.Time, artifactRef *string) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE participants SET status = 'completed', submit_time = $1, artifact_ref = $2
		 WHERE id = $3 AND status = 'in_progress'`,
		submitTime, artifactRef, id,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// ResetAttempt clears everything back to the initial waiting state. A running
// attempt is never wiped: the guard skips rows that are in_progress.
func (r *ParticipantRepository) ResetAttempt(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE participants
		 SET status = 'waiting', question_id = NULL, start_time = NULL, submit_time = NULL, artifact_ref = NULL
		 WHERE id = $1 AND status <> 'in_progress'`,
		id,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// ReplaceArtifactRef swaps the stored recording ref, but only if the row
// still points at the expected one. A reset or re-submission between enqueue
// and transcode loses the race on purpose.
func (r *ParticipantRepository) ReplaceArtifactRef(ctx context.Context, id uuid.UUID, from, to string) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE participants SET artifact_ref = $1 WHERE id = $2 AND artifact_ref = $3`,
		to, id, from,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// ListByExam returns all participants of an exam with student and question
// details, ordered by student code. Feeds the monitor view and the report
// export.
func (r *ParticipantRepository) ListByExam(ctx context.Context, examID uuid.UUID) ([]model.ParticipantDetail, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT p.id, p.exam_id, p.student_id, p.question_id, p.status,
		        p.start_time, p.submit_time, p.artifact_ref, p.created_at,
		        s.student_code, s.full_name, q.code
		 FROM participants p
		 JOIN students s ON s.id = p.student_id
		 LEFT JOIN questions q ON q.id = p.question_id
		 WHERE p.exam_id = $1
		 ORDER BY s.student_code`, examID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var details []model.ParticipantDetail
	for rows.Next() {
		var d model.ParticipantDetail
		if err := rows.Scan(
			&d.ID, &d.ExamID, &d.StudentID, &d.QuestionID, &d.Status,
			&d.StartTime, &d.SubmitTime, &d.ArtifactRef, &d.CreatedAt,
			&d.StudentCode, &d.FullName, &d.QuestionCode,
		); err != nil {
			return nil, err
		}
		details = append(details, d)
	}
	return details, rows.Err()
}

// ListExpired returns in-progress participants whose full attempt window
// elapsed before the given instant. The expiry sweep finalizes them.
func (r *ParticipantRepository) ListExpired(ctx context.Context, now time.Time) ([]model.Participant, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT p.id, p.exam_id, p.student_id, p.question_id, p.status,
		        p.start_time, p.submit_time, p.artifact_ref, p.created_at
		 FROM participants p
		 JOIN exams e ON e.id = p.exam_id
		 WHERE p.status = 'in_progress'
		   AND p.start_time + (e.preparation_seconds + e.recording_seconds) * interval '1 second' <= $1`,
		now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var participants []model.Participant
	for rows.Next() {
		var p model.Participant
		if err := rows.Scan(&p.ID, &p.ExamID, &p.StudentID, &p.QuestionID, &p.Status, &p.StartTime, &p.SubmitTime, &p.ArtifactRef, &p.CreatedAt); err != nil {
			return nil, err
		}
		participants = append(participants, p)
	}
	return participants, rows.Err()
}
