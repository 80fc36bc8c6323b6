package gateway

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/automations/internal/common"
)

func TestDo_ClassifiesOutcomes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			_, _ = w.Write([]byte(`{"a": 1}`))
		case "/empty":
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusTeapot)
			_, _ = w.Write([]byte("nope"))
		}
	}))
	defer srv.Close()
	c := NewClient(srv.URL+"/", nil)
	ctx := context.Background()

	ok := c.Get(ctx, "/ok", nil)
	assert.Equal(t, OutcomeOK, ok.Outcome)
	var v map[string]int
	require.NoError(t, ok.DecodeJSON(&v))
	assert.Equal(t, 1, v["a"])
	assert.NoError(t, ok.AsError())

	empty := c.Post(ctx, "/empty")
	assert.Equal(t, OutcomeOK, empty.Outcome)
	assert.Error(t, empty.DecodeJSON(&v))

	bad := c.Get(ctx, "/other", nil)
	assert.Equal(t, OutcomeBadStatus, bad.Outcome)
	var se *StatusError
	require.ErrorAs(t, bad.AsError(), &se)
	assert.Equal(t, http.StatusTeapot, se.Status)
	assert.Contains(t, se.Error(), "nope")

	srv.Close()
	down := c.Get(ctx, "/ok", nil)
	assert.Equal(t, OutcomeTransportError, down.Outcome)
	assert.Error(t, down.AsError())
	assert.Equal(t, "transport_error", down.Outcome.String())
}

func TestStatusError_TruncatesOnRuneBoundary(t *testing.T) {
	// "ñ" is two bytes, so byte 200 falls inside a rune after the leading "x"
	se := &StatusError{Status: http.StatusBadGateway, Body: []byte("x" + strings.Repeat("ñ", 300))}
	msg := se.Error()
	assert.True(t, utf8.ValidString(msg))
	assert.True(t, strings.HasSuffix(msg, "…"))
	assert.Equal(t, "server returned status 502: x"+strings.Repeat("ñ", 99)+"…", msg)

	short := &StatusError{Status: http.StatusBadGateway, Body: []byte("  corto  ")}
	assert.Equal(t, "server returned status 502: corto", short.Error())
}

func TestDo_HeadersAndQuery(t *testing.T) {
	var got http.Header
	var rawQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		rawQuery = r.URL.RawQuery
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil, WithHeader("X-Api-Key", "k"), WithName("outreach"))
	ctx := common.WithRequestID(context.Background(), "req-1")
	c.Get(ctx, "/x", url.Values{"id_encabezado": {"9"}})

	assert.Equal(t, "k", got.Get("X-Api-Key"))
	assert.Equal(t, "req-1", got.Get(RequestIDHeader))
	assert.Equal(t, "id_encabezado=9", rawQuery)

	c.Get(context.Background(), "/x", nil)
	assert.NotEmpty(t, got.Get(RequestIDHeader), "fresh id when the context has none")
}

func TestPostMultipart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "7", r.FormValue("idUsuario"))
		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		defer func() { _ = f.Close() }()
		b, _ := io.ReadAll(f)
		assert.Equal(t, "a.xlsx", hdr.Filename)
		assert.Equal(t, "data", string(b))
	}))
	defer srv.Close()

	resp := NewClient(srv.URL, nil).PostMultipart(context.Background(), "/up", map[string]string{"idUsuario": "7"}, "file", "a.xlsx", []byte("data"))
	assert.Equal(t, OutcomeOK, resp.Outcome)
}

func TestSchema_Validate(t *testing.T) {
	s := MustCompileSchema("thing", map[string]any{
		"type":     "object",
		"required": []any{"n"},
		"properties": map[string]any{
			"n": map[string]any{"type": "integer"},
		},
	})
	assert.NoError(t, s.Validate([]byte(`{"n": 3}`)))
	assert.Error(t, s.Validate([]byte(`{"n": "3"}`)))
	assert.Error(t, s.Validate([]byte(`{}`)))
	assert.Error(t, s.Validate([]byte(`not json`)))

	_, err := CompileSchema("broken", map[string]any{"type": 12})
	assert.Error(t, err)
}
