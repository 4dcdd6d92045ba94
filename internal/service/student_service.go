package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/vandap/vandap-backend/internal/model"
	"github.com/vandap/vandap-backend/internal/repository"
	"github.com/xuri/excelize/v2"
)

var ErrStudentNotFound = errors.New("student not found")

// StudentImportRowError describes one rejected row of a roster import.
type StudentImportRowError struct {
	Row         int    `json:"row"`
	StudentCode string `json:"student_code,omitempty"`
	Error       string `json:"error"`
}

// StudentImportReport summarizes a roster import.
type StudentImportReport struct {
	TotalRows   int                     `json:"total_rows"`
	SuccessRows int                     `json:"success_rows"`
	FailedRows  int                     `json:"failed_rows"`
	Errors      []StudentImportRowError `json:"errors"`
}

// StudentService handles student roster management.
type StudentService struct {
	students *repository.StudentRepository
	auth     *AuthService
	log      zerolog.Logger
}

// NewStudentService creates a new StudentService.
func NewStudentService(students *repository.StudentRepository, auth *AuthService, log zerolog.Logger) *StudentService {
	return &StudentService{
		students: students,
		auth:     auth,
		log:      log.With().Str("component", "student_service").Logger(),
	}
}

// GetByID retrieves one student.
func (s *StudentService) GetByID(ctx context.Context, id int) (*model.Student, error) {
	st, err := s.students.GetByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrStudentNotFound
	}
	return st, err
}

// GetByCode retrieves one student by their unique code.
func (s *StudentService) GetByCode(ctx context.Context, code string) (*model.Student, error) {
	st, err := s.students.GetByCode(ctx, code)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrStudentNotFound
	}
	return st, err
}

// List retrieves students with pagination.
func (s *StudentService) List(ctx context.Context, page, perPage int) ([]model.Student, int, error) {
	offset := (page - 1) * perPage
	return s.students.ListPaginated(ctx, perPage, offset)
}

// Create registers a new student with a hashed password.
func (s *StudentService) Create(ctx context.Context, req *model.CreateStudentRequest) (*model.Student, error) {
	hash, err := s.auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	st := &model.Student{
		StudentCode:  req.StudentCode,
		FullName:     req.FullName,
		PasswordHash: hash,
	}
	if err := s.students.Create(ctx, st); err != nil {
		return nil, err
	}
	return st, nil
}

// Update modifies a student's code and name, and password when provided.
func (s *StudentService) Update(ctx context.Context, id int, req *model.UpdateStudentRequest) (*model.Student, error) {
	st, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	st.StudentCode = req.StudentCode
	st.FullName = req.FullName
	if err := s.students.Update(ctx, st); err != nil {
		return nil, err
	}

	if req.Password != "" {
		hash, err := s.auth.HashPassword(req.Password)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		if err := s.students.UpdatePassword(ctx, id, hash); err != nil {
			return nil, err
		}
	}
	return st, nil
}

// Delete removes a student.
func (s *StudentService) Delete(ctx context.Context, id int) error {
	return s.students.Delete(ctx, id)
}

// ImportExcel loads a student roster from an xlsx file. Expected columns:
// student_code, full_name, password. Existing codes are updated in place, new
// codes are created. Row failures do not abort the rest of the import.
func (s *StudentService) ImportExcel(ctx context.Context, r io.Reader) (*StudentImportReport, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open excel: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("excel sheet is empty")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	if len(rows) < 2 {
		return nil, errors.New("no data rows found")
	}

	header := map[string]int{}
	for i, h := range rows[0] {
		header[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, col := range []string{"student_code", "full_name"} {
		if _, ok := header[col]; !ok {
			return nil, fmt.Errorf("missing required column: %s", col)
		}
	}

	report := &StudentImportReport{Errors: make([]StudentImportRowError, 0)}
	for i := 1; i < len(rows); i++ {
		rowNo := i + 1
		row := rows[i]
		report.TotalRows++

		get := func(key string) string {
			idx, ok := header[key]
			if !ok || idx >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[idx])
		}

		code := get("student_code")
		fullName := get("full_name")
		password := get("password")

		if code == "" || fullName == "" {
			report.FailedRows++
			report.Errors = append(report.Errors, StudentImportRowError{
				Row: rowNo, StudentCode: code, Error: "thiếu mã sinh viên hoặc họ tên",
			})
			continue
		}

		existing, err := s.students.GetByCode(ctx, code)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			report.FailedRows++
			report.Errors = append(report.Errors, StudentImportRowError{
				Row: rowNo, StudentCode: code, Error: "không kiểm tra được sinh viên hiện có",
			})
			continue
		}

		if existing == nil {
			if len(password) < 6 {
				report.FailedRows++
				report.Errors = append(report.Errors, StudentImportRowError{
					Row: rowNo, StudentCode: code, Error: "mật khẩu tối thiểu 6 ký tự cho sinh viên mới",
				})
				continue
			}
			if _, err := s.Create(ctx, &model.CreateStudentRequest{
				StudentCode: code,
				FullName:    fullName,
				Password:    password,
			}); err != nil {
				report.FailedRows++
				report.Errors = append(report.Errors, StudentImportRowError{
					Row: rowNo, StudentCode: code, Error: err.Error(),
				})
				continue
			}
		} else {
			if _, err := s.Update(ctx, existing.ID, &model.UpdateStudentRequest{
				StudentCode: code,
				FullName:    fullName,
				Password:    password,
			}); err != nil {
				report.FailedRows++
				report.Errors = append(report.Errors, StudentImportRowError{
					Row: rowNo, StudentCode: code, Error: err.Error(),
				})
				continue
			}
		}

		report.SuccessRows++
	}

	s.log.Info().
		Int("total", report.TotalRows).
		Int("success", report.SuccessRows).
		Int("failed", report.FailedRows).
		Msg("Student roster imported")
	return report, nil
}

// ExportExcel writes the full student roster to an xlsx file.
func (s *StudentService) ExportExcel(ctx context.Context) ([]byte, error) {
	students, _, err := s.students.ListPaginated(ctx, 10000, 0)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	headers := []string{"student_code", "full_name", "created_at"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}
	for i, st := range students {
		row := i + 2
		values := []any{
			st.StudentCode,
			st.FullName,
			st.CreatedAt.Format("2006-01-02 15:04:05"),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			_ = f.SetCellValue(sheet, cell, v)
		}
	}
	_ = f.SetColWidth(sheet, "A", "C", 22)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write excel: %w", err)
	}
	return buf.Bytes(), nil
}
