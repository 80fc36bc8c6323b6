package export

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/automations/internal/automation"
	"github.com/joseph-ayodele/automations/internal/common"
	"github.com/joseph-ayodele/automations/internal/entity"
	"github.com/joseph-ayodele/automations/internal/gateway"
)

func TestRowsXLSX_KindColumnsThenExtras(t *testing.T) {
	kind := automation.Rues()
	r1 := entity.JobRow{ID: "1"}
	r1.Set("nit", "900123")
	r1.Set("razon_social", "ACME SAS")
	r1.Set("estado_rues", "ACTIVA")
	r1.Set("ciudad", "Bogotá")
	r2 := entity.JobRow{ID: "2"}
	r2.Set("nit", "800456")

	data, err := NewService(nil).RowsXLSX(kind, []entity.JobRow{r1, r2})
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	assert.Equal(t, []string{"Rues"}, f.GetSheetList())
	rows, err := f.GetRows("Rues")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"ID", "NIT", "Razón social", "Matrícula", "Estado RUES", "ciudad"}, rows[0])
	assert.Equal(t, []string{"1", "900123", "ACME SAS", "", "ACTIVA", "Bogotá"}, rows[1])
	assert.Equal(t, "800456", rows[2][1])
}

func TestRowsXLSX_NoRows(t *testing.T) {
	data, err := NewService(nil).RowsXLSX(automation.Legal(), nil)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	rows, err := f.GetRows("Legal")
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestDownload(t *testing.T) {
	kind := automation.Legal()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != kind.Endpoints.Export {
			http.NotFound(w, r)
			return
		}
		if r.URL.Query().Get(automation.ParamJobID) != "5" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte("PK-bytes"))
	}))
	defer srv.Close()
	d := NewDownloader(gateway.NewClient(srv.URL, nil), kind, nil)

	data, err := d.Download(context.Background(), "5")
	require.NoError(t, err)
	assert.Equal(t, []byte("PK-bytes"), data)

	_, err = d.Download(context.Background(), "6")
	assert.ErrorIs(t, err, common.ErrQuery)
}
