package async

import (
	"context"
	"errors"
	"strings"

	"github.com/joseph-ayodele/automations/internal/automation"
	"github.com/joseph-ayodele/automations/internal/entity"
	"github.com/joseph-ayodele/automations/internal/outreach"
)

// MarkProcessed is what the default processor writes into a row's first marker.
const MarkProcessed = "procesado"

// RowProcessor does the work for one row and records the result in the row's fields.
type RowProcessor interface {
	Process(ctx context.Context, kind automation.Kind, row *entity.JobRow) error
}

// ProcessorFunc adapts a function to RowProcessor.
type ProcessorFunc func(ctx context.Context, kind automation.Kind, row *entity.JobRow) error

func (f ProcessorFunc) Process(ctx context.Context, kind automation.Kind, row *entity.JobRow) error {
	return f(ctx, kind, row)
}

// MarkerStamper marks a row as done without doing anything else.
type MarkerStamper struct {
	Value string
}

func (m MarkerStamper) Process(_ context.Context, kind automation.Kind, row *entity.JobRow) error {
	marker := kind.PrimaryMarker()
	if marker == "" || strings.TrimSpace(row.Get(marker)) != "" {
		return nil
	}
	v := m.Value
	if v == "" {
		v = MarkProcessed
	}
	row.Set(marker, v)
	return nil
}

// Row fields the outreach processor reads and writes.
const (
	FieldCampaign = "campana"
	FieldPhone    = "telefono"
	FieldName     = "nombre"
	FieldMessage  = "mensaje"
	FieldSequence = "secuencia"
)

var errNoCampaign = errors.New("row has no campaign and no default campaign is configured")

// OutreachProcessor enrolls each row's phone number into an outreach campaign.
type OutreachProcessor struct {
	provider        outreach.Provider
	defaultCampaign string
}

func NewOutreachProcessor(p outreach.Provider, defaultCampaign string) *OutreachProcessor {
	return &OutreachProcessor{provider: p, defaultCampaign: defaultCampaign}
}

func (o *OutreachProcessor) Process(ctx context.Context, kind automation.Kind, row *entity.JobRow) error {
	campaign := strings.TrimSpace(row.Get(FieldCampaign))
	if campaign == "" {
		campaign = o.defaultCampaign
	}
	if campaign == "" {
		return errNoCampaign
	}

	seq, err := o.provider.CreateSequence(ctx, outreach.SequenceRequest{
		CampaignID: campaign,
		Phone:      strings.TrimSpace(row.Get(FieldPhone)),
		Name:       row.Get(FieldName),
		Message:    row.Get(FieldMessage),
	})
	if err != nil {
		return err
	}

	status := strings.TrimSpace(seq.Status)
	if status == "" {
		status = "enviado"
	}
	row.Set(kind.PrimaryMarker(), status)
	row.Set(FieldSequence, seq.ID.String())
	return nil
}
