package outreach

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/automations/internal/common"
)

func newProvider(t *testing.T, h http.HandlerFunc) Provider {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(common.OutreachConfig{BaseURL: srv.URL, APIKey: "secret", KeyHeader: "X-Api-Key"}, 5*time.Second, nil)
}

func TestListCampaigns_SendsKeyAndAcceptsEnvelope(t *testing.T) {
	p := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get("X-Api-Key"))
		assert.Equal(t, "/campaigns", r.URL.Path)
		_, _ = w.Write([]byte(`{"data": [{"id": 3, "name": "Cobranza", "status": "active"}]}`))
	})

	got, err := p.ListCampaigns(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "3", got[0].ID.String())
	assert.Equal(t, "Cobranza", got[0].Name)
}

func TestGetTouchpoints_BareArray(t *testing.T) {
	p := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/campaigns/c%201/touchpoints", r.URL.EscapedPath())
		_, _ = w.Write([]byte(`[{"id": "t1", "campaign_id": "c 1", "channel": "whatsapp", "phone": "3001234567", "at": "2024-05-01T10:00:00Z"}]`))
	})

	got, err := p.GetTouchpoints(context.Background(), "c 1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "whatsapp", got[0].Channel)
	assert.Equal(t, 2024, got[0].At.Year())
}

func TestCreateSequence(t *testing.T) {
	p := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		var req SequenceRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "3001234567", req.Phone)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id": 77, "status": "queued"}`))
	})

	seq, err := p.CreateSequence(context.Background(), SequenceRequest{CampaignID: "3", Phone: "3001234567"})
	require.NoError(t, err)
	assert.Equal(t, "77", seq.ID.String())
	assert.Equal(t, "queued", seq.Status)
}

func TestCreateSequence_InvalidRequestMakesNoCall(t *testing.T) {
	called := false
	p := newProvider(t, func(w http.ResponseWriter, r *http.Request) { called = true })

	_, err := p.CreateSequence(context.Background(), SequenceRequest{CampaignID: "3"})
	assert.ErrorIs(t, err, common.ErrOutreach)
	assert.ErrorIs(t, err, common.ErrInvalidInput)
	assert.False(t, called)
}

func TestErrorsAreOutreachErrors(t *testing.T) {
	p := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := p.ListCampaigns(context.Background())
	assert.ErrorIs(t, err, common.ErrOutreach)
	_, err = p.GetTouchpoints(context.Background(), "")
	assert.ErrorIs(t, err, common.ErrOutreach)
}
