// Package server is the reference gateway: every job endpoint of every registered kind, backed
// by the job store and the async row workers.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/joseph-ayodele/automations/constants"
	"github.com/joseph-ayodele/automations/internal/async"
	"github.com/joseph-ayodele/automations/internal/automation"
	"github.com/joseph-ayodele/automations/internal/common"
	"github.com/joseph-ayodele/automations/internal/entity"
	"github.com/joseph-ayodele/automations/internal/export"
	"github.com/joseph-ayodele/automations/internal/ingest"
	"github.com/joseph-ayodele/automations/internal/repository"
)

const maxUploadBytes = 32 << 20

// JobService implements the gateway endpoints.
type JobService struct {
	repo     repository.JobRepository
	registry *automation.Registry
	queue    async.Queue
	exporter *export.Service
	logger   *slog.Logger
}

func NewJobService(r repository.JobRepository, reg *automation.Registry, q async.Queue, exp *export.Service, logger *slog.Logger) *JobService {
	if logger == nil {
		logger = slog.Default()
	}
	if exp == nil {
		exp = export.NewService(logger)
	}
	return &JobService{repo: r, registry: reg, queue: q, exporter: exp, logger: logger}
}

type createResponse struct {
	ID         entity.ID `json:"id"`
	TotalRows  int       `json:"total_registros"`
	Successful bool      `json:"success"`
}

// Create stores an uploaded workbook as a new job and queues it.
func (s *JobService) Create(kind automation.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			writeError(w, s.logger, common.NewAppError(common.CodeInvalidInput, "expected a multipart form", common.ErrInvalidInput))
			return
		}
		file, hdr, err := r.FormFile(automation.ParamFile)
		if err != nil {
			writeError(w, s.logger, common.NewAppError(common.CodeInvalidInput, "missing file part", common.ErrInvalidInput))
			return
		}
		defer func() { _ = file.Close() }()
		data, err := io.ReadAll(file)
		if err != nil {
			writeError(w, s.logger, common.NewAppError(common.CodeInvalidInput, "unreadable file part", common.ErrInvalidInput))
			return
		}

		preview, err := ingest.ParseBytes(data)
		if err != nil {
			s.logger.Warn("server.create.parse_failed", "kind", kind.Name, "file", hdr.Filename, "error", err)
			writeError(w, s.logger, err)
			return
		}

		rows := make([]entity.JobRow, len(preview.Rows))
		for i, rec := range preview.Rows {
			for k, v := range rec {
				rows[i].Set(k, v)
			}
		}
		job := &entity.Job{
			Kind:       string(kind.Name),
			Label:      hdr.Filename,
			UploadedBy: strings.TrimSpace(r.FormValue(automation.ParamUser)),
		}
		if err := s.repo.CreateJob(r.Context(), job, rows, kind.BusinessKey); err != nil {
			writeError(w, s.logger, err)
			return
		}
		s.enqueue(r.Context(), job.ID.String())

		s.logger.Info("server.create.ok", "kind", kind.Name, "job_id", job.ID, "rows", job.RowCount(), "user", job.UploadedBy)
		writeJSON(w, http.StatusCreated, createResponse{ID: job.ID, TotalRows: job.RowCount(), Successful: true})
	}
}

type pagedJobs struct {
	Rows  []entity.Job `json:"rows"`
	Total int          `json:"total"`
}

// ListJobs answers with a bare array, or {rows, total} when a limit is given.
func (s *JobService) ListJobs(kind automation.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		offset, limit, err := paging(r, 0)
		if err != nil {
			writeError(w, s.logger, err)
			return
		}
		jobs, total, err := s.repo.ListJobs(r.Context(), string(kind.Name), offset, limit)
		if err != nil {
			writeError(w, s.logger, err)
			return
		}
		if limit <= 0 {
			writeJSON(w, http.StatusOK, jobs)
			return
		}
		writeJSON(w, http.StatusOK, pagedJobs{Rows: jobs, Total: total})
	}
}

// ListRows returns every row of a job with the header's total.
func (s *JobService) ListRows(kind automation.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		job, err := s.jobOfKind(r.Context(), kind, r.URL.Query().Get(automation.ParamJobID))
		if err != nil {
			writeError(w, s.logger, err)
			return
		}
		rows, err := s.repo.Rows(r.Context(), job.ID.String())
		if err != nil {
			writeError(w, s.logger, err)
			return
		}
		total := job.RowCount()
		writeJSON(w, http.StatusOK, entity.RowSet{Rows: rows, Total: &total})
	}
}

type detailPage struct {
	Rows  []entity.JobRow `json:"rows"`
	Total int             `json:"total"`
}

// PageRows returns one page of processed rows, filtered on the business key.
func (s *JobService) PageRows(kind automation.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		job, err := s.jobOfKind(r.Context(), kind, chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, s.logger, err)
			return
		}
		offset, limit, err := paging(r, kind.PageSize(0))
		if err != nil {
			writeError(w, s.logger, err)
			return
		}
		filter := repository.RowFilter{CaseSensitive: kind.CaseSensitiveFilter}
		if kind.FilterParam != "" {
			filter.Term = r.URL.Query().Get(kind.FilterParam)
		}
		rows, total, err := s.repo.ProcessedPage(r.Context(), job.ID.String(), filter, offset, limit)
		if err != nil {
			writeError(w, s.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, detailPage{Rows: rows, Total: total})
	}
}

type controlResponse struct {
	Success bool                `json:"success"`
	Status  constants.JobStatus `json:"estado"`
	Rows    int                 `json:"filas"`
}

// Pause stops processing and tags pending rows with the kind's sentinel. Pausing a paused or
// finished job changes nothing.
func (s *JobService) Pause(w http.ResponseWriter, r *http.Request) {
	job, kind, err := s.jobAndKind(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	tagged := 0
	if job.Status == constants.JobStatusRunning {
		if err := s.repo.SetStatus(r.Context(), job.ID.String(), constants.JobStatusPaused); err != nil {
			writeError(w, s.logger, err)
			return
		}
		job.Status = constants.JobStatusPaused
		if tagged, err = s.repo.PauseRows(r.Context(), job.ID.String(), kind.PrimaryMarker(), kind.Sentinel()); err != nil {
			writeError(w, s.logger, err)
			return
		}
	}
	s.logger.Info("server.pause.ok", "job_id", job.ID, "status", job.Status, "rows", tagged)
	writeJSON(w, http.StatusOK, controlResponse{Success: true, Status: job.Status, Rows: tagged})
}

// Resume clears the pause tags and queues the job again. Resuming a running or finished job
// only queues it.
func (s *JobService) Resume(w http.ResponseWriter, r *http.Request) {
	job, kind, err := s.jobAndKind(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	cleared := 0
	if job.Status == constants.JobStatusPaused {
		if cleared, err = s.repo.ResumeRows(r.Context(), job.ID.String(), kind.PrimaryMarker()); err != nil {
			writeError(w, s.logger, err)
			return
		}
		if err := s.repo.SetStatus(r.Context(), job.ID.String(), constants.JobStatusRunning); err != nil {
			writeError(w, s.logger, err)
			return
		}
		job.Status = constants.JobStatusRunning
	}
	if job.Status != constants.JobStatusFinished {
		s.enqueue(r.Context(), job.ID.String())
	}
	s.logger.Info("server.resume.ok", "job_id", job.ID, "status", job.Status, "rows", cleared)
	writeJSON(w, http.StatusOK, controlResponse{Success: true, Status: job.Status, Rows: cleared})
}

type notifyRequest struct {
	JobID entity.ID `json:"idEncabezado" validate:"required"`
}

// Notify reports success only when every row of the job is processed. The HTTP status is 200
// either way.
func (s *JobService) Notify(kind automation.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req notifyRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, s.logger, err)
			return
		}
		if err := common.ValidateRequest(req); err != nil {
			writeError(w, s.logger, err)
			return
		}
		job, err := s.jobOfKind(r.Context(), kind, req.JobID.String())
		if err != nil {
			writeError(w, s.logger, err)
			return
		}
		left, err := s.repo.CountUnprocessed(r.Context(), job.ID.String())
		if err != nil {
			writeError(w, s.logger, err)
			return
		}
		if left > 0 {
			s.logger.Warn("server.notify.not_finished", "job_id", job.ID, "pending", left)
			writeJSON(w, http.StatusOK, messageBody{Success: false, Message: fmt.Sprintf("quedan %d registros por procesar", left)})
			return
		}
		s.logger.Info("server.notify.ok", "job_id", job.ID, "kind", kind.Name, "user", job.UploadedBy)
		writeJSON(w, http.StatusOK, messageBody{Success: true, Message: "notificación enviada"})
	}
}

// Export returns the job's rows as a workbook.
func (s *JobService) Export(kind automation.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		job, err := s.jobOfKind(r.Context(), kind, r.URL.Query().Get(automation.ParamJobID))
		if err != nil {
			writeError(w, s.logger, err)
			return
		}
		rows, err := s.repo.Rows(r.Context(), job.ID.String())
		if err != nil {
			writeError(w, s.logger, err)
			return
		}
		data, err := s.exporter.RowsXLSX(kind, rows)
		if err != nil {
			writeError(w, s.logger, err)
			return
		}
		w.Header().Set("Content-Type", constants.XLSXContentType)
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="resultados_%s_%s.xlsx"`, kind.Name, job.ID))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}

func (s *JobService) enqueue(ctx context.Context, jobID string) {
	if s.queue == nil {
		return
	}
	if err := s.queue.Enqueue(ctx, async.Job{JobID: jobID, TraceID: common.RequestIDFromContext(ctx)}); err != nil {
		s.logger.Warn("server.enqueue.failed", "job_id", jobID, "error", err)
	}
}

func (s *JobService) jobAndKind(ctx context.Context, id string) (*entity.Job, automation.Kind, error) {
	if strings.TrimSpace(id) == "" {
		return nil, automation.Kind{}, common.NewAppError(common.CodeInvalidInput, "job id is required", common.ErrInvalidInput)
	}
	job, err := s.repo.GetJob(ctx, id)
	if err != nil {
		return nil, automation.Kind{}, err
	}
	kind, err := s.registry.Lookup(job.Kind)
	if err != nil {
		return nil, automation.Kind{}, err
	}
	return job, kind, nil
}

// jobOfKind loads a job and hides jobs of other kinds.
func (s *JobService) jobOfKind(ctx context.Context, kind automation.Kind, id string) (*entity.Job, error) {
	job, k, err := s.jobAndKind(ctx, id)
	if err != nil {
		return nil, err
	}
	if k.Name != kind.Name {
		return nil, common.ErrNotFound
	}
	return job, nil
}

func paging(r *http.Request, defaultLimit int) (offset, limit int, err error) {
	q := r.URL.Query()
	limit = defaultLimit
	if v := q.Get(automation.ParamOffset); v != "" {
		if offset, err = strconv.Atoi(v); err != nil || offset < 0 {
			return 0, 0, common.NewAppError(common.CodeInvalidInput, "offset must be a non-negative integer", common.ErrInvalidInput)
		}
	}
	if v := q.Get(automation.ParamLimit); v != "" {
		if limit, err = strconv.Atoi(v); err != nil || limit < 1 {
			return 0, 0, common.NewAppError(common.CodeInvalidInput, "limit must be a positive integer", common.ErrInvalidInput)
		}
	}
	return offset, limit, nil
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return common.NewAppError(common.CodeInvalidInput, "empty body", common.ErrInvalidInput)
		}
		return common.NewAppError(common.CodeInvalidInput, "bad json", common.ErrInvalidInput)
	}
	return nil
}
