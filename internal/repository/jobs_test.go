package repository

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/automations/constants"
	"github.com/joseph-ayodele/automations/internal/common"
	"github.com/joseph-ayodele/automations/internal/entity"
)

func openTest(t *testing.T) (*DB, JobRepository) {
	t.Helper()
	db, err := Open(context.Background(), Config{DSN: ":memory:"}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { Close(db, nil) })
	return db, NewJobRepository(db, nil)
}

func seed(t *testing.T, repo JobRepository, kind string, n int) *entity.Job {
	t.Helper()
	rows := make([]entity.JobRow, n)
	for i := range rows {
		rows[i].Set("cedula", fmt.Sprintf("CC%03d", i))
		rows[i].Set("nombre", fmt.Sprintf("persona %d", i))
	}
	job := &entity.Job{Kind: kind, Label: "lote.xlsx", UploadedBy: "7"}
	require.NoError(t, repo.CreateJob(context.Background(), job, rows, "cedula"))
	return job
}

func TestCreateAndGetJob(t *testing.T) {
	_, repo := openTest(t)
	ctx := context.Background()
	job := seed(t, repo, "legal", 3)

	assert.NotEmpty(t, job.ID)
	assert.Equal(t, constants.JobStatusRunning, job.Status)

	got, err := repo.GetJob(ctx, job.ID.String())
	require.NoError(t, err)
	require.NotNil(t, got.TotalRows)
	assert.Equal(t, 3, *got.TotalRows)
	assert.Equal(t, "lote.xlsx", got.Label)
	assert.WithinDuration(t, job.UploadedAt.Time, got.UploadedAt.Time, 0)

	rows, err := repo.Rows(ctx, job.ID.String())
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "CC000", rows[0].Get("cedula"))
	assert.Equal(t, job.ID, rows[0].JobID)

	_, err = repo.GetJob(ctx, "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestListJobs_ByKindWithPaging(t *testing.T) {
	_, repo := openTest(t)
	for i := 0; i < 3; i++ {
		seed(t, repo, "legal", 1)
	}
	seed(t, repo, "rues", 1)

	all, total, err := repo.ListJobs(context.Background(), "legal", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, all, 3)

	page, total, err := repo.ListJobs(context.Background(), "legal", 2, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, page, 1)
}

func TestProcessingAndPage(t *testing.T) {
	_, repo := openTest(t)
	ctx := context.Background()
	job := seed(t, repo, "legal", 5)

	pending, err := repo.PendingRows(ctx, job.ID.String(), 2)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	for _, r := range pending {
		r.Set("estado_proceso", "procesado")
		require.NoError(t, repo.UpdateRow(ctx, r, true))
	}

	n, err := repo.CountUnprocessed(ctx, job.ID.String())
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	page, total, err := repo.ProcessedPage(ctx, job.ID.String(), RowFilter{}, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Equal(t, "procesado", page[0].Get("estado_proceso"))

	_, total, err = repo.ProcessedPage(ctx, job.ID.String(), RowFilter{Term: "cc001"}, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, total, "case-insensitive match")

	_, total, err = repo.ProcessedPage(ctx, job.ID.String(), RowFilter{Term: "cc001", CaseSensitive: true}, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, 0, total)

	_, total, err = repo.ProcessedPage(ctx, job.ID.String(), RowFilter{Term: "C_0"}, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, 0, total, "LIKE wildcards in the term are literal")
}

func TestPauseAndResumeRows(t *testing.T) {
	_, repo := openTest(t)
	ctx := context.Background()
	job := seed(t, repo, "legal", 4)
	id := job.ID.String()

	first, err := repo.PendingRows(ctx, id, 1)
	require.NoError(t, err)
	first[0].Set("estado_proceso", "procesado")
	require.NoError(t, repo.UpdateRow(ctx, first[0], true))

	n, err := repo.PauseRows(ctx, id, "estado_proceso", "pausado")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	again, err := repo.PauseRows(ctx, id, "estado_proceso", "pausado")
	require.NoError(t, err)
	assert.Equal(t, 0, again, "pausing twice touches nothing")

	pending, err := repo.PendingRows(ctx, id, 0)
	require.NoError(t, err)
	assert.Empty(t, pending)

	rows, err := repo.Rows(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "procesado", rows[0].Get("estado_proceso"))
	assert.Equal(t, "pausado", rows[1].Get("estado_proceso"))

	n, err = repo.ResumeRows(ctx, id, "estado_proceso")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	pending, err = repo.PendingRows(ctx, id, 0)
	require.NoError(t, err)
	assert.Len(t, pending, 3)
	assert.Equal(t, "", pending[0].Get("estado_proceso"))
}

func TestPauseAndResumeRows_RestoresPriorMarker(t *testing.T) {
	_, repo := openTest(t)
	ctx := context.Background()
	job := seed(t, repo, "vigencia", 2)
	id := job.ID.String()

	rows, err := repo.Rows(ctx, id)
	require.NoError(t, err)
	rows[0].Set("estado_proceso", "reintentar")
	require.NoError(t, repo.UpdateRow(ctx, rows[0], false))

	n, err := repo.PauseRows(ctx, id, "estado_proceso", "pausado")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	rows, err = repo.Rows(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "pausado", rows[0].Get("estado_proceso"))

	_, err = repo.ResumeRows(ctx, id, "estado_proceso")
	require.NoError(t, err)

	rows, err = repo.Rows(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "reintentar", rows[0].Get("estado_proceso"))
	assert.Equal(t, "", rows[1].Get("estado_proceso"))

	// a second cycle must not resurrect the first one's value
	rows[1].Set("estado_proceso", "revisar")
	require.NoError(t, repo.UpdateRow(ctx, rows[1], false))
	_, err = repo.PauseRows(ctx, id, "estado_proceso", "pausado")
	require.NoError(t, err)
	_, err = repo.ResumeRows(ctx, id, "estado_proceso")
	require.NoError(t, err)

	rows, err = repo.Rows(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "reintentar", rows[0].Get("estado_proceso"))
	assert.Equal(t, "revisar", rows[1].Get("estado_proceso"))
}

func TestSetStatus(t *testing.T) {
	_, repo := openTest(t)
	job := seed(t, repo, "legal", 1)

	require.NoError(t, repo.SetStatus(context.Background(), job.ID.String(), constants.JobStatusPaused))
	got, err := repo.GetJob(context.Background(), job.ID.String())
	require.NoError(t, err)
	assert.Equal(t, constants.JobStatusPaused, got.Status)

	assert.ErrorIs(t, repo.SetStatus(context.Background(), "nope", constants.JobStatusPaused), common.ErrNotFound)
}

func TestHealthCheckAndRebind(t *testing.T) {
	db, _ := openTest(t)
	require.NoError(t, HealthCheck(context.Background(), db, 0, nil))

	pg := &DB{Dialect: DialectPostgres}
	assert.Equal(t, "SELECT a FROM t WHERE x = $1 AND y = $2", pg.rebind("SELECT a FROM t WHERE x = ? AND y = ?"))
	assert.Equal(t, "x = ?", db.rebind("x = ?"))
}
