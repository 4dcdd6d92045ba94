package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vandap/vandap-backend/internal/model"
)

var ErrDuplicateUsername = errors.New("supervisor with this username already exists")

// SupervisorRepository handles supervisor account data access.
type SupervisorRepository struct {
	pool *pgxpool.Pool
}

// NewSupervisorRepository creates a new SupervisorRepository.
func NewSupervisorRepository(pool *pgxpool.Pool) *SupervisorRepository {
	return &SupervisorRepository{pool: pool}
}

// GetByID retrieves a supervisor by ID.
func (r *SupervisorRepository) GetByID(ctx context.Context, id int) (*model.Supervisor, error) {
	s := &model.Supervisor{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, username, full_name, password_hash, created_at
		 FROM supervisors WHERE id = $1`, id,
	).Scan(&s.ID, &s.Username, &s.FullName, &s.PasswordHash, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// GetByUsername retrieves a supervisor by username.
func (r *SupervisorRepository) GetByUsername(ctx context.Context, username string) (*model.Supervisor, error) {
	s := &model.Supervisor{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, username, full_name, password_hash, created_at
		 FROM supervisors WHERE username = $1`, username,
	).Scan(&s.ID, &s.Username, &s.FullName, &s.PasswordHash, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Create inserts a new supervisor.
func (r *SupervisorRepository) Create(ctx context.Context, s *model.Supervisor) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO supervisors (username, full_name, password_hash)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at`,
		s.Username, s.FullName, s.PasswordHash,
	).Scan(&s.ID, &s.CreatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateUsername
		}
		return err
	}
	return nil
}
