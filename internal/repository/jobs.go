package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/automations/constants"
	"github.com/joseph-ayodele/automations/internal/common"
	"github.com/joseph-ayodele/automations/internal/entity"
)

// RowFilter selects processed rows whose business key contains Term.
type RowFilter struct {
	Term          string
	CaseSensitive bool
}

// JobRepository stores automation headers and their rows.
type JobRepository interface {
	CreateJob(ctx context.Context, job *entity.Job, rows []entity.JobRow, businessKey string) error
	ListJobs(ctx context.Context, kind string, offset, limit int) ([]entity.Job, int, error)
	GetJob(ctx context.Context, id string) (*entity.Job, error)
	SetStatus(ctx context.Context, id string, status constants.JobStatus) error

	Rows(ctx context.Context, jobID string) ([]entity.JobRow, error)
	ProcessedPage(ctx context.Context, jobID string, f RowFilter, offset, limit int) ([]entity.JobRow, int, error)
	PendingRows(ctx context.Context, jobID string, limit int) ([]entity.JobRow, error)
	UpdateRow(ctx context.Context, row entity.JobRow, processed bool) error
	CountUnprocessed(ctx context.Context, jobID string) (int, error)

	PauseRows(ctx context.Context, jobID, marker, sentinel string) (int, error)
	ResumeRows(ctx context.Context, jobID, marker string) (int, error)
}

type jobRepo struct {
	db  *DB
	log *slog.Logger
}

func NewJobRepository(db *DB, log *slog.Logger) JobRepository {
	if log == nil {
		log = slog.Default()
	}
	return &jobRepo{db: db, log: log}
}

const jobColumns = `id, kind, label, uploaded_by, uploaded_at, total_rows, status`

// CreateJob assigns ids, stores the header and every row in one transaction.
func (r *jobRepo) CreateJob(ctx context.Context, job *entity.Job, rows []entity.JobRow, businessKey string) error {
	if job.ID == "" {
		job.ID = entity.ID(uuid.NewString())
	}
	if job.UploadedAt.IsZero() {
		job.UploadedAt = entity.Timestamp{Time: time.Now().UTC()}
	}
	if job.Status == "" {
		job.Status = constants.JobStatusRunning
	}
	total := len(rows)
	job.TotalRows = &total

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %v", common.ErrDatabase, err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, r.db.rebind(`INSERT INTO automation_jobs (`+jobColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`),
		job.ID.String(), job.Kind, job.Label, job.UploadedBy, formatTime(job.UploadedAt.Time), total, string(job.Status))
	if err != nil {
		r.log.Error("job create failed", "job_id", job.ID, "err", err)
		return fmt.Errorf("%w: insert job: %v", common.ErrDatabase, err)
	}

	insertRow := r.db.rebind(`INSERT INTO automation_rows (id, job_id, position, business_key, fields, processed, paused) VALUES (?, ?, ?, ?, ?, 0, 0)`)
	for i := range rows {
		rows[i].ID = entity.ID(uuid.NewString())
		rows[i].JobID = job.ID
		fields, err := json.Marshal(nonNil(rows[i].Fields))
		if err != nil {
			return fmt.Errorf("encode row %d: %w", i, err)
		}
		if _, err := tx.ExecContext(ctx, insertRow, rows[i].ID.String(), job.ID.String(), i, rows[i].Get(businessKey), string(fields)); err != nil {
			return fmt.Errorf("%w: insert row %d: %v", common.ErrDatabase, i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", common.ErrDatabase, err)
	}
	r.log.Info("job created", "job_id", job.ID, "kind", job.Kind, "rows", len(rows))
	return nil
}

func (r *jobRepo) ListJobs(ctx context.Context, kind string, offset, limit int) ([]entity.Job, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, r.db.rebind(`SELECT COUNT(*) FROM automation_jobs WHERE kind = ?`), kind).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("%w: count jobs: %v", common.ErrDatabase, err)
	}

	q := `SELECT ` + jobColumns + ` FROM automation_jobs WHERE kind = ? ORDER BY uploaded_at DESC, id`
	args := []any{kind}
	if limit > 0 {
		q += ` LIMIT ? OFFSET ?`
		args = append(args, limit, max(offset, 0))
	}
	rows, err := r.db.QueryContext(ctx, r.db.rebind(q), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: list jobs: %v", common.ErrDatabase, err)
	}
	defer func() { _ = rows.Close() }()

	out := []entity.Job{}
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *j)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("%w: list jobs: %v", common.ErrDatabase, err)
	}
	return out, total, nil
}

func (r *jobRepo) GetJob(ctx context.Context, id string) (*entity.Job, error) {
	row := r.db.QueryRowContext(ctx, r.db.rebind(`SELECT `+jobColumns+` FROM automation_jobs WHERE id = ?`), id)
	j, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	return j, err
}

func (r *jobRepo) SetStatus(ctx context.Context, id string, status constants.JobStatus) error {
	res, err := r.db.ExecContext(ctx, r.db.rebind(`UPDATE automation_jobs SET status = ? WHERE id = ?`), string(status), id)
	if err != nil {
		return fmt.Errorf("%w: set status: %v", common.ErrDatabase, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return common.ErrNotFound
	}
	r.log.Info("job status updated", "job_id", id, "status", status)
	return nil
}

const rowColumns = `id, job_id, fields`

func (r *jobRepo) Rows(ctx context.Context, jobID string) ([]entity.JobRow, error) {
	return r.queryRows(ctx, `SELECT `+rowColumns+` FROM automation_rows WHERE job_id = ? ORDER BY position`, jobID)
}

func (r *jobRepo) ProcessedPage(ctx context.Context, jobID string, f RowFilter, offset, limit int) ([]entity.JobRow, int, error) {
	where := `job_id = ? AND processed = 1`
	args := []any{jobID}
	if term := strings.TrimSpace(f.Term); term != "" {
		if f.CaseSensitive {
			where += ` AND ` + r.containsFunc() + ` > 0`
			args = append(args, term)
		} else {
			where += ` AND LOWER(business_key) LIKE LOWER(?) ESCAPE '\'`
			args = append(args, "%"+escapeLike(term)+"%")
		}
	}

	var total int
	if err := r.db.QueryRowContext(ctx, r.db.rebind(`SELECT COUNT(*) FROM automation_rows WHERE `+where), args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("%w: count rows: %v", common.ErrDatabase, err)
	}

	rows, err := r.queryRows(ctx, `SELECT `+rowColumns+` FROM automation_rows WHERE `+where+` ORDER BY position LIMIT ? OFFSET ?`,
		append(args, limit, max(offset, 0))...)
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func (r *jobRepo) containsFunc() string {
	if r.db.Dialect == DialectPostgres {
		return `strpos(business_key, ?)`
	}
	return `instr(business_key, ?)`
}

func (r *jobRepo) PendingRows(ctx context.Context, jobID string, limit int) ([]entity.JobRow, error) {
	q := `SELECT ` + rowColumns + ` FROM automation_rows WHERE job_id = ? AND processed = 0 AND paused = 0 ORDER BY position`
	args := []any{jobID}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	return r.queryRows(ctx, q, args...)
}

func (r *jobRepo) UpdateRow(ctx context.Context, row entity.JobRow, processed bool) error {
	fields, err := json.Marshal(nonNil(row.Fields))
	if err != nil {
		return fmt.Errorf("encode row: %w", err)
	}
	// paused rows are left alone so a pause racing a worker wins
	res, err := r.db.ExecContext(ctx, r.db.rebind(`UPDATE automation_rows SET fields = ?, processed = ? WHERE id = ? AND paused = 0`),
		string(fields), boolInt(processed), row.ID.String())
	if err != nil {
		return fmt.Errorf("%w: update row: %v", common.ErrDatabase, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *jobRepo) CountUnprocessed(ctx context.Context, jobID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, r.db.rebind(`SELECT COUNT(*) FROM automation_rows WHERE job_id = ? AND processed = 0`), jobID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("%w: count unprocessed: %v", common.ErrDatabase, err)
	}
	return n, nil
}

// PauseRows writes the sentinel into the marker of every pending row. The marker's prior
// value is kept aside for ResumeRows.
func (r *jobRepo) PauseRows(ctx context.Context, jobID, marker, sentinel string) (int, error) {
	return r.retag(ctx, jobID, `processed = 0 AND paused = 0`, 1, func(row *entity.JobRow, _ string) string {
		prior := row.Get(marker)
		row.Set(marker, sentinel)
		return prior
	})
}

// ResumeRows puts back the marker value every row had before PauseRows tagged it.
func (r *jobRepo) ResumeRows(ctx context.Context, jobID, marker string) (int, error) {
	return r.retag(ctx, jobID, `paused = 1`, 0, func(row *entity.JobRow, saved string) string {
		row.Set(marker, saved)
		return ""
	})
}

// retag rewrites the rows matching cond inside one transaction. edit receives the value
// stored aside by the previous retag and returns the one to store now.
func (r *jobRepo) retag(ctx context.Context, jobID, cond string, paused int, edit func(*entity.JobRow, string) string) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: begin: %v", common.ErrDatabase, err)
	}
	defer func() { _ = tx.Rollback() }()

	type tagged struct {
		row   entity.JobRow
		saved string
	}
	res, err := tx.QueryContext(ctx, r.db.rebind(`SELECT id, fields, paused_value FROM automation_rows WHERE job_id = ? AND `+cond), jobID)
	if err != nil {
		return 0, fmt.Errorf("%w: query rows: %v", common.ErrDatabase, err)
	}
	var rows []tagged
	for res.Next() {
		var id, fields string
		t := tagged{}
		if err := res.Scan(&id, &fields, &t.saved); err != nil {
			_ = res.Close()
			return 0, fmt.Errorf("%w: scan row: %v", common.ErrDatabase, err)
		}
		t.row = entity.JobRow{ID: entity.ID(id), JobID: entity.ID(jobID), Fields: map[string]string{}}
		if err := json.Unmarshal([]byte(fields), &t.row.Fields); err != nil {
			_ = res.Close()
			return 0, fmt.Errorf("decode row %s: %w", id, err)
		}
		rows = append(rows, t)
	}
	if err := res.Err(); err != nil {
		_ = res.Close()
		return 0, fmt.Errorf("%w: iterate rows: %v", common.ErrDatabase, err)
	}
	_ = res.Close()

	update := r.db.rebind(`UPDATE automation_rows SET fields = ?, paused = ?, paused_value = ? WHERE id = ?`)
	for i := range rows {
		saved := edit(&rows[i].row, rows[i].saved)
		fields, err := json.Marshal(nonNil(rows[i].row.Fields))
		if err != nil {
			return 0, fmt.Errorf("encode row: %w", err)
		}
		if _, err := tx.ExecContext(ctx, update, string(fields), paused, saved, rows[i].row.ID.String()); err != nil {
			return 0, fmt.Errorf("%w: retag row: %v", common.ErrDatabase, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%w: commit: %v", common.ErrDatabase, err)
	}
	return len(rows), nil
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (r *jobRepo) queryRows(ctx context.Context, q string, args ...any) ([]entity.JobRow, error) {
	return queryRowsTx(ctx, r.db, r.db.rebind(q), args...)
}

// queryRowsTx reads every row before returning so the connection is free for the next
// statement.
func queryRowsTx(ctx context.Context, qr queryer, q string, args ...any) ([]entity.JobRow, error) {
	rows, err := qr.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: query rows: %v", common.ErrDatabase, err)
	}
	defer func() { _ = rows.Close() }()

	out := []entity.JobRow{}
	for rows.Next() {
		var id, jobID, fields string
		if err := rows.Scan(&id, &jobID, &fields); err != nil {
			return nil, fmt.Errorf("%w: scan row: %v", common.ErrDatabase, err)
		}
		row := entity.JobRow{ID: entity.ID(id), JobID: entity.ID(jobID), Fields: map[string]string{}}
		if err := json.Unmarshal([]byte(fields), &row.Fields); err != nil {
			return nil, fmt.Errorf("decode row %s: %w", id, err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: query rows: %v", common.ErrDatabase, err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanJob(s scanner) (*entity.Job, error) {
	var (
		j                      entity.Job
		id, uploadedAt, status string
		total                  int
	)
	if err := s.Scan(&id, &j.Kind, &j.Label, &j.UploadedBy, &uploadedAt, &total, &status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: scan job: %v", common.ErrDatabase, err)
	}
	j.ID = entity.ID(id)
	j.TotalRows = &total
	j.Status = constants.JobStatus(status)
	if t, err := time.Parse(timeLayout, uploadedAt); err == nil {
		j.UploadedAt = entity.Timestamp{Time: t}
	}
	return &j, nil
}

// timeLayout is fixed width so uploaded_at sorts as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string { return t.UTC().Format(timeLayout) }

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nonNil(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}
