// Package docsvc renders the app's documents: PDF receipts and XLSX exports & imports.
package docsvc

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/jung-kurt/gofpdf"
	"github.com/pkg/errors"
	"github.com/skip2/go-qrcode"

	"github.com/campuserp/erp/core/fee"
)

const qrSize = 256

type receiptRenderer struct{}

var _ fee.ReceiptRenderer = (*receiptRenderer)(nil)

func NewReceiptRenderer() fee.ReceiptRenderer {
	return &receiptRenderer{}
}

func money(currency string, amount float64) string {
	return fmt.Sprintf("%s %.2f", currency, amount)
}

// RenderReceipt writes an A5 PDF receipt, with a QR code of doc.VerifyCode.
func (r *receiptRenderer) RenderReceipt(w io.Writer, doc fee.ReceiptDocument) error {
	pdf := gofpdf.New("P", "mm", "A5", "")
	pdf.SetTitle("Receipt "+doc.Receipt.ReceiptNo, true)
	pdf.SetAuthor(doc.Institution, true)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, tr(doc.Institution), "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(0, 6, "Fee Receipt", "", 1, "C", false, 0, "")
	pdf.Ln(4)

	line := func(label, value string) {
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(35, 6, label, "", 0, "L", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(0, 6, tr(value), "", 1, "L", false, 0, "")
	}
	rcpt := doc.Receipt
	line("Receipt No:", rcpt.ReceiptNo)
	line("Date:", rcpt.PaidAt.Format("02 Jan 2006 15:04"))
	line("Student:", doc.StudentName)
	line("Enrollment No:", doc.EnrollmentNo)
	line("Course:", fmt.Sprintf("%s (Semester %d)", doc.CourseName, doc.Semester))
	line("Session:", doc.SessionID)
	mode := strings.ToUpper(rcpt.Mode)
	if rcpt.Reference != "" {
		mode += " / " + rcpt.Reference
	}
	line("Mode:", mode)
	line("Amount Paid:", money(doc.Currency, rcpt.Amount))
	if rcpt.Remarks != "" {
		line("Remarks:", rcpt.Remarks)
	}
	pdf.Ln(4)

	// heads
	pdf.SetFont("Arial", "B", 9)
	pdf.SetFillColor(230, 230, 230)
	for _, col := range []struct {
		title string
		width float64
	}{{"Fee Head", 52}, {"Amount", 28}, {"Paid", 28}, {"Balance", 20}} {
		pdf.CellFormat(col.width, 7, col.title, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 9)
	for _, h := range doc.Summary.Heads {
		pdf.CellFormat(52, 6, tr(h.Name), "1", 0, "L", false, 0, "")
		pdf.CellFormat(28, 6, fmt.Sprintf("%.2f", h.Amount), "1", 0, "R", false, 0, "")
		pdf.CellFormat(28, 6, fmt.Sprintf("%.2f", h.Paid), "1", 0, "R", false, 0, "")
		pdf.CellFormat(20, 6, fmt.Sprintf("%.2f", h.Balance), "1", 1, "R", false, 0, "")
	}
	pdf.SetFont("Arial", "B", 9)
	pdf.CellFormat(52, 6, "Total", "1", 0, "L", false, 0, "")
	pdf.CellFormat(28, 6, fmt.Sprintf("%.2f", doc.Summary.Total), "1", 0, "R", false, 0, "")
	pdf.CellFormat(28, 6, fmt.Sprintf("%.2f", doc.Summary.Paid), "1", 0, "R", false, 0, "")
	pdf.CellFormat(20, 6, fmt.Sprintf("%.2f", doc.Summary.Balance), "1", 1, "R", false, 0, "")
	if doc.Summary.Excess > 0 {
		pdf.SetFont("Arial", "", 9)
		pdf.CellFormat(0, 6, "Excess paid: "+money(doc.Currency, doc.Summary.Excess), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	if doc.VerifyCode != "" {
		png, err := qrcode.Encode(doc.VerifyCode, qrcode.Medium, qrSize)
		if err != nil {
			return errors.Wrap(err, "encoding receipt QR code")
		}
		opts := gofpdf.ImageOptions{ImageType: "PNG", ReadDpi: false}
		pdf.RegisterImageOptionsReader("verify-qr", opts, bytes.NewReader(png))
		pdf.ImageOptions("verify-qr", pdf.GetX(), pdf.GetY(), 30, 30, true, opts, 0, "")
		pdf.SetFont("Arial", "I", 7)
		pdf.CellFormat(0, 4, "Scan to verify this receipt.", "", 1, "L", false, 0, "")
	}

	pdf.SetFont("Arial", "I", 7)
	pdf.CellFormat(0, 4, "This is a computer generated receipt.", "", 1, "C", false, 0, "")

	if err := pdf.Output(w); err != nil {
		return errors.Wrap(err, "writing receipt PDF")
	}
	return nil
}
