package upload

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/automations/internal/automation"
	"github.com/joseph-ayodele/automations/internal/common"
	"github.com/joseph-ayodele/automations/internal/gateway"
)

func workbook(t *testing.T, rows ...[]any) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	for i := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &rows[i]))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

type captured struct {
	calls    atomic.Int32
	user     atomic.Value
	fileName atomic.Value
	fileSize atomic.Int64
}

func newClient(t *testing.T, status int, body string) (*Client, *captured) {
	t.Helper()
	kind := automation.Legal()
	c := &captured{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c.calls.Add(1)
		assert.Equal(t, kind.Endpoints.Create, r.URL.Path)
		if err := r.ParseMultipartForm(1 << 20); err == nil {
			c.user.Store(r.FormValue(automation.ParamUser))
			if f, hdr, err := r.FormFile(automation.ParamFile); err == nil {
				n, _ := io.Copy(io.Discard, f)
				c.fileSize.Store(n)
				c.fileName.Store(hdr.Filename)
				_ = f.Close()
			}
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return NewClient(gateway.NewClient(srv.URL, nil), kind, nil), c
}

func validFile(t *testing.T) File {
	return File{Name: "casos.xlsx", Data: workbook(t,
		[]any{"cedula", "nombre"},
		[]any{"100", "Ana"},
	)}
}

func TestSubmit_HeaderOnlyMakesNoCall(t *testing.T) {
	client, c := newClient(t, http.StatusOK, `{"id": 1}`)

	_, err := client.Submit(context.Background(), File{Name: "x.xlsx", Data: workbook(t, []any{"cedula", "nombre"})}, "7")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrParse)
	assert.Equal(t, int32(0), c.calls.Load())
}

func TestSubmit_SendsMultipartParts(t *testing.T) {
	client, c := newClient(t, http.StatusCreated, `{"idEncabezado": 42}`)
	f := validFile(t)

	id, err := client.Submit(context.Background(), f, "7")
	require.NoError(t, err)
	assert.Equal(t, "42", id)
	assert.Equal(t, int32(1), c.calls.Load())
	assert.Equal(t, "7", c.user.Load())
	assert.Equal(t, "casos.xlsx", c.fileName.Load())
	assert.Equal(t, int64(len(f.Data)), c.fileSize.Load())
}

func TestSubmit_UserFromContext(t *testing.T) {
	client, c := newClient(t, http.StatusOK, `{"id": "a1"}`)

	ctx := common.WithUserID(context.Background(), "99")
	id, err := client.Submit(ctx, validFile(t), "")
	require.NoError(t, err)
	assert.Equal(t, "a1", id)
	assert.Equal(t, "99", c.user.Load())
}

func TestSubmit_UnparseableSuccessBody(t *testing.T) {
	client, _ := newClient(t, http.StatusOK, `Archivo guardado`)

	id, err := client.Submit(context.Background(), validFile(t), "7")
	require.NoError(t, err)
	assert.Empty(t, id)
}

func TestSubmit_RejectedWithMessage(t *testing.T) {
	client, _ := newClient(t, http.StatusBadRequest, `{"mensaje": "columnas inválidas"}`)

	_, err := client.Submit(context.Background(), validFile(t), "7")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrUpload)
	assert.Contains(t, err.Error(), "columnas inválidas")

	var se *gateway.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadRequest, se.Status)
}

func TestSubmit_RejectedWithUnparseableBody(t *testing.T) {
	client, _ := newClient(t, http.StatusInternalServerError, `<html>boom</html>`)

	_, err := client.Submit(context.Background(), validFile(t), "7")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrUpload)
	assert.Contains(t, err.Error(), unknownResponse)
}

func TestSubmit_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client := NewClient(gateway.NewClient(url, nil), automation.Legal(), nil)
	_, err := client.Submit(context.Background(), validFile(t), "7")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrUpload)
}
