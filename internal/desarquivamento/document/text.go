// Package document renders delivery receipts for retrieved requests.
package document

import (
	"bytes"
	"context"
	"fmt"
	"text/template"
	"time"

	"desarquivamento/internal/desarquivamento/models"
)

const dateLayout = "02/01/2006"

var funcs = template.FuncMap{
	"date": func(t time.Time) string { return t.Format(dateLayout) },
	"optdate": func(t *time.Time) string {
		if t == nil {
			return "-"
		}
		return t.Format(dateLayout)
	},
	"yesno":  yesNo,
	"orDash": orDash,
}

var receiptTemplate = template.Must(template.New("receipt").Funcs(funcs).Parse(`DELIVERY RECEIPT - REQUEST #{{.RequestID}}

Status:              {{.StatusLabel}}
Requester:           {{.RequesterName}}
Process number:      {{orDash .ProcessNumber}}
Document reference:  {{.DocumentReference}}
Document type:       {{.DocumentType}}
Department:          {{.Department}}
Responsible server:  {{orDash .ResponsibleServer}}
Urgent:              {{yesno .Urgent}}
Extension requested: {{yesno .ExtensionRequested}}

Requested on:        {{date .RequestedAt}}
Retrieved on:        {{optdate .RetrievedAt}}
Returned on:         {{optdate .ReturnedAt}}
{{if .Purpose}}
Purpose:
{{.Purpose}}
{{end}}
Issued on {{date .IssuedAt}} by user {{.IssuedBy}}.

Received by: ________________________________
`))

// TextRenderer renders a plain-text delivery receipt.
type TextRenderer struct{}

func NewTextRenderer() *TextRenderer {
	return &TextRenderer{}
}

func (TextRenderer) Render(ctx context.Context, receipt models.DeliveryReceipt) (*models.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := receiptTemplate.Execute(&buf, receipt); err != nil {
		return nil, fmt.Errorf("render receipt: %w", err)
	}
	return &models.Document{
		Filename:    fmt.Sprintf("desarquivamento-%d.txt", receipt.RequestID),
		ContentType: "text/plain; charset=utf-8",
		Body:        buf.Bytes(),
	}, nil
}
