package control

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/automations/constants"
	"github.com/joseph-ayodele/automations/internal/automation"
	"github.com/joseph-ayodele/automations/internal/common"
	"github.com/joseph-ayodele/automations/internal/entity"
	"github.com/joseph-ayodele/automations/internal/gateway"
)

type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) paths() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func newClient(t *testing.T, status int, body string) (*Client, *recorder) {
	t.Helper()
	rec := &recorder{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		rec.mu.Lock()
		rec.calls = append(rec.calls, r.URL.Path)
		rec.mu.Unlock()
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return NewClient(gateway.NewClient(srv.URL, nil), automation.Legal(), nil), rec
}

func TestPauseThenResume_TwoCallsNoError(t *testing.T) {
	for _, tc := range []struct {
		name   string
		status int
		body   string
	}{
		{"ok empty", http.StatusOK, ""},
		{"no content", http.StatusNoContent, ""},
		{"server error", http.StatusInternalServerError, `{"error": "ya pausado"}`},
		{"garbage", http.StatusOK, `<<not json>>`},
	} {
		t.Run(tc.name, func(t *testing.T) {
			client, rec := newClient(t, tc.status, tc.body)
			ctx := context.Background()

			_, err := client.Pause(ctx, "15")
			require.NoError(t, err)
			ack, err := client.Resume(ctx, "15")
			require.NoError(t, err)

			assert.Equal(t, []string{"/pausar/15", "/reanudar/15"}, rec.paths())
			assert.Equal(t, tc.status, ack.Status)
			assert.Equal(t, CommandResume, ack.Command)
		})
	}
}

func TestPause_Twice(t *testing.T) {
	client, rec := newClient(t, http.StatusConflict, "")

	_, err := client.Pause(context.Background(), "3")
	require.NoError(t, err)
	_, err = client.Pause(context.Background(), "3")
	require.NoError(t, err)
	assert.Len(t, rec.paths(), 2)
}

func TestPause_TransportErrorIsControlError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client := NewClient(gateway.NewClient(url, nil), automation.Legal(), nil)
	_, err := client.Pause(context.Background(), "1")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrControl)
}

func TestTracker_ReconcileAgainstListing(t *testing.T) {
	var tr Tracker
	running := entity.Job{ID: "8", Status: constants.JobStatusRunning}

	assert.False(t, tr.IsPaused(running))
	tr.MarkPaused("8")
	assert.True(t, tr.IsPaused(running), "optimistic flag applies before the next listing")

	tr.Reconcile([]entity.Job{{ID: "2"}})
	assert.Equal(t, "8", tr.LastPaused(), "listing without the job keeps the flag")

	tr.Reconcile([]entity.Job{running})
	assert.Empty(t, tr.LastPaused())
	assert.False(t, tr.IsPaused(running), "fetched status wins after reconciling")

	tr.MarkPaused("8")
	tr.MarkResumed("9")
	assert.Equal(t, "8", tr.LastPaused())
	tr.MarkResumed("8")
	assert.Empty(t, tr.LastPaused())
}
