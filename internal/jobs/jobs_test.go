package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/automations/constants"
	"github.com/joseph-ayodele/automations/internal/automation"
	"github.com/joseph-ayodele/automations/internal/common"
	"github.com/joseph-ayodele/automations/internal/entity"
	"github.com/joseph-ayodele/automations/internal/gateway"
)

func serve(t *testing.T, h http.HandlerFunc) *Lister {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewLister(gateway.NewClient(srv.URL, nil), automation.Legal(), nil, WithConcurrency(2))
}

func TestList_BareArray(t *testing.T) {
	l := serve(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/listarAutomatizacionesLegal", r.URL.Path)
		assert.Empty(t, r.URL.RawQuery)
		_, _ = w.Write([]byte(`[
			{"id": 1, "nombre": "Lote 1", "usuario": "ana", "fecha_cargue": "2024-03-01 10:00:00", "total_registros": 10, "estado": "en proceso"},
			{"id": "2", "nombre": "Lote 2", "estado": "pausado"}
		]`))
	})

	out, err := l.List(context.Background(), 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, out.Total)
	require.Len(t, out.Jobs, 2)
	assert.Equal(t, entity.ID("1"), out.Jobs[0].ID)
	assert.Equal(t, constants.JobStatusRunning, out.Jobs[0].Status)
	assert.Equal(t, 2024, out.Jobs[0].UploadedAt.Year())
	assert.Equal(t, constants.JobStatusPaused, out.Jobs[1].Status)
}

func TestList_PagedObject(t *testing.T) {
	l := serve(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "limit=5&offset=10", r.URL.RawQuery)
		_, _ = w.Write([]byte(`{"rows": [{"id": 11, "nombre": "x"}], "total": 11}`))
	})

	out, err := l.List(context.Background(), 10, 5)
	require.NoError(t, err)
	assert.Equal(t, 11, out.Total)
	assert.Len(t, out.Jobs, 1)
}

func TestList_JobsKey(t *testing.T) {
	l := serve(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"jobs": [{"id": 1}, {"id": 2}]}`))
	})

	out, err := l.List(context.Background(), 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, out.Total)
}

func TestList_Failures(t *testing.T) {
	for name, h := range map[string]http.HandlerFunc{
		"bad status": func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusInternalServerError) },
		"not json":   func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("hola")) },
		"wrong shape": func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"data": []}`))
		},
		"missing id": func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`[{"nombre": "x"}]`))
		},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := serve(t, h).List(context.Background(), 0, 0)
			assert.ErrorIs(t, err, common.ErrQuery)
		})
	}
}

func TestOverview_PerItemErrors(t *testing.T) {
	var calls atomic.Int32
	l := serve(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		id := r.URL.Query().Get(automation.ParamJobID)
		if id == "bad" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		rows := make([]entity.JobRow, 4)
		for i := range rows {
			if i < 2 {
				rows[i].Set("resultado", fmt.Sprintf("ok-%s", id))
			}
		}
		_ = json.NewEncoder(w).Encode(entity.RowSet{Rows: rows})
	})

	jobs := []entity.Job{
		{ID: "a", TotalRows: intPtr(4)},
		{ID: "bad", TotalRows: intPtr(4)},
		{ID: "c", TotalRows: intPtr(2)},
		{ID: "d"},
	}
	items := l.Overview(context.Background(), jobs)
	require.Len(t, items, 4)

	assert.NoError(t, items[0].Err)
	assert.Equal(t, 50, items[0].Progress.Percentage)

	assert.ErrorIs(t, items[1].Err, common.ErrQuery)
	assert.Equal(t, entity.ID("bad"), items[1].Job.ID)

	assert.Equal(t, 100, items[2].Progress.Percentage)
	assert.True(t, items[2].Complete)

	assert.Equal(t, 4, items[3].Progress.Total, "row count when the header has no total")
	assert.Equal(t, int32(4), calls.Load(), "one read per job and no notification")
}

func TestOverview_ZeroHeaderTotalIsZeroPercent(t *testing.T) {
	l := serve(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == automation.Legal().Endpoints.ListJobs {
			_, _ = w.Write([]byte(`[{"id":"z","total_registros":0},{"id":"n"}]`))
			return
		}
		rows := make([]entity.JobRow, 10)
		for i := range rows {
			rows[i].Set("resultado", "ok")
		}
		_ = json.NewEncoder(w).Encode(entity.RowSet{Rows: rows})
	})

	listing, err := l.List(context.Background(), 0, 0)
	require.NoError(t, err)
	require.Len(t, listing.Jobs, 2)
	require.NotNil(t, listing.Jobs[0].TotalRows)
	assert.Nil(t, listing.Jobs[1].TotalRows)

	items := l.Overview(context.Background(), listing.Jobs)
	require.NoError(t, items[0].Err)
	assert.Equal(t, 0, items[0].Progress.Total)
	assert.Equal(t, 0, items[0].Progress.Percentage)
	assert.False(t, items[0].Complete)

	require.NoError(t, items[1].Err)
	assert.Equal(t, 100, items[1].Progress.Percentage, "absent total falls back to the row count")
}

func intPtr(n int) *int { return &n }
