package invoice

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/go-pdf/fpdf"
)

const (
	pageMargin = 15.0
	lineHeight = 6.0
	dateLayout = "02 Jan 2006"
)

// колонки таблицы позиций: №, описание, кол-во, цена, сумма
var columnWidths = []float64{10, 90, 15, 32.5, 32.5}

// PDFRenderer рисует счёт на одной странице A4 стандартными шрифтами
type PDFRenderer struct{}

func NewPDFRenderer() *PDFRenderer {
	return &PDFRenderer{}
}

// Render возвращает готовый PDF
func (r *PDFRenderer) Render(doc *Document) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(true, pageMargin)
	pdf.SetTitle("Invoice "+doc.Number, false)
	pdf.SetAuthor(doc.Company.Name, false)
	pdf.SetCreationDate(doc.IssuedAt)
	pdf.SetModificationDate(doc.IssuedAt)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.AddPage()

	// шапка продавца
	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 9, tr(doc.Company.Name), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	for _, line := range nonEmpty(doc.Company.Address, doc.Company.Email) {
		pdf.CellFormat(0, 4.5, tr(line), "", 1, "L", false, 0, "")
	}
	if doc.Company.TaxID != "" {
		pdf.CellFormat(0, 4.5, tr("GSTIN: "+doc.Company.TaxID), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 8, "TAX INVOICE", "B", 1, "R", false, 0, "")
	pdf.Ln(3)

	// реквизиты счёта и покупателя в две колонки
	half := (210 - 2*pageMargin) / 2
	top := pdf.GetY()
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(half, lineHeight, "Bill to", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	for _, line := range nonEmpty(doc.CustomerName, doc.CustomerEmail, doc.CustomerPhone) {
		pdf.CellFormat(half, 4.5, tr(line), "", 1, "L", false, 0, "")
	}
	pdf.Ln(2)
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(half, lineHeight, "Ship to", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	for _, line := range doc.AddressLines() {
		pdf.CellFormat(half, 4.5, tr(line), "", 1, "L", false, 0, "")
	}
	leftBottom := pdf.GetY()

	pdf.SetXY(pageMargin+half, top)
	meta := [][2]string{
		{"Invoice no.", doc.Number},
		{"Invoice date", doc.IssuedAt.Format(dateLayout)},
		{"Order id", doc.OrderID},
		{"Order date", doc.OrderDate.Format(dateLayout)},
		{"Payment", paymentLabel(doc)},
	}
	if doc.TransactionID != "" {
		meta = append(meta, [2]string{"Transaction", doc.TransactionID})
	}
	for _, kv := range meta {
		pdf.SetX(pageMargin + half)
		pdf.SetFont("Helvetica", "B", 9)
		pdf.CellFormat(28, 4.5, kv[0], "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 9)
		pdf.CellFormat(half-28, 4.5, tr(kv[1]), "", 1, "L", false, 0, "")
	}
	if pdf.GetY() < leftBottom {
		pdf.SetY(leftBottom)
	}
	pdf.Ln(6)

	r.drawItems(pdf, doc, tr)
	r.drawTotals(pdf, doc)

	pdf.Ln(10)
	pdf.SetFont("Helvetica", "I", 8)
	pdf.MultiCell(0, 4, "All prices are inclusive of GST. This is a computer generated invoice and does not require a signature.", "", "L", false)

	if pdf.Err() {
		return nil, fmt.Errorf("failed to draw invoice: %w", pdf.Error())
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to write invoice: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *PDFRenderer) drawItems(pdf *fpdf.Fpdf, doc *Document, tr func(string) string) {
	headers := []string{"#", "Item", "Qty", "Unit price", "Amount"}
	aligns := []string{"C", "L", "C", "R", "R"}

	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(235, 228, 210)
	for i, h := range headers {
		pdf.CellFormat(columnWidths[i], 7, h, "1", 0, aligns[i], true, 0, "")
	}
	pdf.Ln(-1)

	for _, line := range doc.Lines {
		description := line.Description
		if line.Details != "" {
			description += " (" + line.Details + ")"
		}
		description = tr(description)

		// высота строки по числу строк в описании
		lines := pdf.SplitText(description, columnWidths[1]-2)
		height := float64(len(lines)) * 5
		if height < 7 {
			height = 7
		}

		x, y := pdf.GetX(), pdf.GetY()
		pdf.SetFont("Helvetica", "", 9)
		pdf.CellFormat(columnWidths[0], height, strconv.Itoa(line.Index), "1", 0, "C", false, 0, "")
		pdf.Rect(x+columnWidths[0], y, columnWidths[1], height, "D")
		pdf.MultiCell(columnWidths[1], 5, description, "", "L", false)
		pdf.SetXY(x+columnWidths[0]+columnWidths[1], y)
		pdf.CellFormat(columnWidths[2], height, strconv.Itoa(line.Quantity), "1", 0, "C", false, 0, "")
		pdf.CellFormat(columnWidths[3], height, doc.Money(line.UnitPrice), "1", 0, "R", false, 0, "")
		pdf.CellFormat(columnWidths[4], height, doc.Money(line.LineTotal), "1", 0, "R", false, 0, "")
		pdf.SetXY(x, y+height)
	}
}

func (r *PDFRenderer) drawTotals(pdf *fpdf.Fpdf, doc *Document) {
	labelWidth := columnWidths[0] + columnWidths[1] + columnWidths[2] + columnWidths[3]
	rows := [][2]string{
		{"Subtotal", doc.Money(doc.Subtotal)},
		{"Shipping", doc.Money(doc.Shipping)},
		{"GST included", doc.Money(doc.Tax)},
	}

	pdf.Ln(2)
	pdf.SetFont("Helvetica", "", 9)
	for _, row := range rows {
		pdf.CellFormat(labelWidth, 6, row[0], "", 0, "R", false, 0, "")
		pdf.CellFormat(columnWidths[4], 6, row[1], "", 1, "R", false, 0, "")
	}
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(labelWidth, 8, "Total", "T", 0, "R", false, 0, "")
	pdf.CellFormat(columnWidths[4], 8, doc.Money(doc.Total), "T", 1, "R", false, 0, "")
}

func paymentLabel(doc *Document) string {
	if doc.PaymentMethod == "" {
		return doc.PaymentStatus
	}
	return doc.PaymentMethod + " (" + doc.PaymentStatus + ")"
}
