package document

import (
	"bytes"
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"

	"desarquivamento/internal/desarquivamento/models"
)

const (
	receiptSheet = "Recibo"
	xlsxType     = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// XLSXRenderer renders the delivery receipt as a two-column workbook.
type XLSXRenderer struct{}

func NewXLSXRenderer() *XLSXRenderer {
	return &XLSXRenderer{}
}

func (XLSXRenderer) Render(ctx context.Context, receipt models.DeliveryReceipt) (*models.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	if err := f.SetSheetName("Sheet1", receiptSheet); err != nil {
		return nil, fmt.Errorf("name sheet: %w", err)
	}

	rows := [][2]any{
		{"Request", receipt.RequestID},
		{"Status", receipt.StatusLabel},
		{"Requester", receipt.RequesterName},
		{"Process number", orDash(receipt.ProcessNumber)},
		{"Document reference", receipt.DocumentReference},
		{"Document type", receipt.DocumentType},
		{"Department", receipt.Department},
		{"Responsible server", orDash(receipt.ResponsibleServer)},
		{"Urgent", yesNo(receipt.Urgent)},
		{"Extension requested", yesNo(receipt.ExtensionRequested)},
		{"Requested on", receipt.RequestedAt.Format(dateLayout)},
		{"Retrieved on", optDate(receipt)},
		{"Returned on", optReturned(receipt)},
		{"Purpose", orDash(receipt.Purpose)},
		{"Issued on", receipt.IssuedAt.Format(dateLayout)},
		{"Issued by", receipt.IssuedBy},
		{"Received by", ""},
	}
	for i, row := range rows {
		if err := f.SetSheetRow(receiptSheet, fmt.Sprintf("A%d", i+1), &[]any{row[0], row[1]}); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	if err := f.SetColWidth(receiptSheet, "A", "A", 22); err != nil {
		return nil, fmt.Errorf("size columns: %w", err)
	}
	if err := f.SetColWidth(receiptSheet, "B", "B", 48); err != nil {
		return nil, fmt.Errorf("size columns: %w", err)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return &models.Document{
		Filename:    fmt.Sprintf("desarquivamento-%d.xlsx", receipt.RequestID),
		ContentType: xlsxType,
		Body:        buf.Bytes(),
	}, nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func optDate(r models.DeliveryReceipt) string {
	if r.RetrievedAt == nil {
		return "-"
	}
	return r.RetrievedAt.Format(dateLayout)
}

func optReturned(r models.DeliveryReceipt) string {
	if r.ReturnedAt == nil {
		return "-"
	}
	return r.ReturnedAt.Format(dateLayout)
}
