// Package pdf renders the rate-confirmation document for an awarded
// auction.
package pdf

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/loadlane/auction-service/internal/model"
)

// RateConfirmation bundles everything the document shows.
type RateConfirmation struct {
	Auction model.Auction
	Award   model.Award
	Carrier model.CarrierProfile
}

type Generator struct {
	fontName string
}

func NewGenerator() *Generator {
	return &Generator{fontName: "Helvetica"}
}

func (g *Generator) Generate(doc RateConfirmation) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()

	// Helvetica is a cp1252 core font; every drawn string goes through the
	// translator so dashes and accented names survive.
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont(g.fontName, "B", 14)
	pdf.CellFormat(0, 10, "RATE CONFIRMATION", "", 1, "C", false, 0, "")

	pdf.SetFont(g.fontName, "", 11)
	pdf.CellFormat(0, 6, tr(fmt.Sprintf("Auction %s — awarded %s", doc.Auction.AuctionNumber, formatDate(doc.Award.AwardedAt))), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	g.carrierBlock(pdf, tr, doc.Carrier)
	pdf.Ln(2)
	g.routeBlock(pdf, tr, doc.Auction)
	pdf.Ln(4)

	pdf.SetFont(g.fontName, "B", 12)
	pdf.CellFormat(0, 8, "Rates", "", 1, "L", false, 0, "")

	headers := []string{"Description", "Amount, USD"}
	colWidths := []float64{130, 50}
	g.tableRow(pdf, tr, headers, colWidths, true)
	g.tableRow(pdf, tr, []string{"Carrier rate", formatCents(doc.Award.WinnerAmountCents)}, colWidths, false)
	if doc.Award.MarginCents != nil {
		g.tableRow(pdf, tr, []string{"Margin", formatCents(*doc.Award.MarginCents)}, colWidths, false)
	}
	g.tableRow(pdf, tr, []string{"Total quoted", formatCents(doc.Award.QuotedCents())}, colWidths, false)

	if doc.Award.Notes != nil && strings.TrimSpace(*doc.Award.Notes) != "" {
		pdf.Ln(2)
		pdf.SetFont(g.fontName, "", 10)
		pdf.MultiCell(0, 5, tr(fmt.Sprintf("Notes: %s", *doc.Award.Notes)), "", "L", false)
	}

	pdf.Ln(8)
	pdf.SetFont(g.fontName, "B", 12)
	pdf.CellFormat(0, 8, "Signatures", "", 1, "L", false, 0, "")
	pdf.SetFont(g.fontName, "", 11)
	pdf.CellFormat(0, 6, tr(fmt.Sprintf("Carrier: ______________________ /%s/", safeValue(doc.Carrier.LegalName))), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, "Broker: ______________________", "", 1, "L", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (g *Generator) carrierBlock(pdf *gofpdf.Fpdf, tr func(string) string, carrier model.CarrierProfile) {
	pdf.SetFont(g.fontName, "B", 11)
	pdf.CellFormat(0, 6, "Carrier", "", 1, "L", false, 0, "")
	pdf.SetFont(g.fontName, "", 10)
	lines := []string{
		safeValue(carrier.LegalName),
		fmt.Sprintf("MC#: %s", safeValue(carrier.MCNumber)),
		fmt.Sprintf("Contact: %s", safePtr(carrier.ContactName)),
		fmt.Sprintf("Phone: %s", safePtr(carrier.Phone)),
	}
	for _, line := range lines {
		pdf.MultiCell(0, 5, tr(line), "", "L", false)
	}
}

func (g *Generator) routeBlock(pdf *gofpdf.Fpdf, tr func(string) string, auction model.Auction) {
	pdf.SetFont(g.fontName, "B", 11)
	pdf.CellFormat(0, 6, "Load", "", 1, "L", false, 0, "")
	pdf.SetFont(g.fontName, "", 10)
	lines := []string{
		fmt.Sprintf("Route: %s", strings.Join(auction.Stops, " -> ")),
		fmt.Sprintf("Distance: %d mi", auction.DistanceMiles),
		fmt.Sprintf("Pickup: %s", formatTimePtr(auction.PickupAt)),
		fmt.Sprintf("Delivery: %s", formatTimePtr(auction.DeliveryAt)),
	}
	for _, line := range lines {
		pdf.MultiCell(0, 5, tr(line), "", "L", false)
	}
}

func (g *Generator) tableRow(pdf *gofpdf.Fpdf, tr func(string) string, cols []string, widths []float64, header bool) {
	style := ""
	if header {
		style = "B"
	}
	pdf.SetFont(g.fontName, style, 10)
	for i, col := range cols {
		align := "L"
		if i > 0 {
			align = "R"
		}
		pdf.CellFormat(widths[i], 8, tr(col), "1", 0, align, false, 0, "")
	}
	pdf.Ln(-1)
}

func safeValue(value string) string {
	if strings.TrimSpace(value) == "" {
		return "—"
	}
	return value
}

func safePtr(value *string) string {
	if value == nil {
		return "—"
	}
	return safeValue(*value)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "—"
	}
	return t.Format("2006-01-02")
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return "—"
	}
	return t.Format("2006-01-02 15:04")
}

func formatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}
