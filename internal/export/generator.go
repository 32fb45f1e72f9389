// Package export renders the operator's archive export: one workbook of
// archived auctions with their offer counts and award outcomes.
package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/loadlane/auction-service/internal/model"
)

// ArchiveRow is one exported auction with its aggregates.
type ArchiveRow struct {
	Auction    model.Auction
	OfferCount int64
	Award      *model.Award
}

// ArchiveReport is the input to Generate.
type ArchiveReport struct {
	From time.Time
	To   time.Time
	Rows []ArchiveRow
}

type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

func (g *Generator) Generate(report ArchiveReport) ([]byte, error) {
	file := excelize.NewFile()

	summarySheet := "Summary"
	file.SetSheetName("Sheet1", summarySheet)
	g.writeSummary(file, summarySheet, report)

	detailSheet := "Auctions"
	file.NewSheet(detailSheet)
	g.writeDetail(file, detailSheet, report)

	file.SetActiveSheet(0)
	buf, err := file.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (g *Generator) writeSummary(file *excelize.File, sheet string, report ArchiveReport) {
	awarded := 0
	var totalAwardedCents int64
	for _, row := range report.Rows {
		if row.Award != nil {
			awarded++
			totalAwardedCents += row.Award.WinnerAmountCents
		}
	}

	set := func(cell string, value interface{}) {
		_ = file.SetCellValue(sheet, cell, value)
	}

	set("A1", "Period start")
	set("B1", formatDate(report.From))
	set("A2", "Period end")
	set("B2", formatDate(report.To))
	set("A3", "Archived auctions")
	set("B3", len(report.Rows))
	set("A4", "Awarded")
	set("B4", awarded)
	set("A5", "Expired without award")
	set("B5", len(report.Rows)-awarded)
	set("A6", "Total awarded, USD")
	set("B6", formatCents(totalAwardedCents))

	_ = file.SetColWidth(sheet, "A", "A", 28)
	_ = file.SetColWidth(sheet, "B", "B", 18)
}

func (g *Generator) writeDetail(file *excelize.File, sheet string, report ArchiveReport) {
	set := func(cell string, value interface{}) {
		_ = file.SetCellValue(sheet, cell, value)
	}

	headers := []string{
		"Auction #",
		"Origin",
		"Destination",
		"Stops",
		"Distance, mi",
		"Tag",
		"Received at",
		"Archived at",
		"Offers",
		"Outcome",
		"Winner amount, USD",
		"Quoted, USD",
	}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		set(cell, header)
	}

	for i, row := range report.Rows {
		r := i + 2
		set(fmt.Sprintf("A%d", r), row.Auction.AuctionNumber)
		set(fmt.Sprintf("B%d", r), row.Auction.Origin())
		set(fmt.Sprintf("C%d", r), row.Auction.Destination())
		set(fmt.Sprintf("D%d", r), strings.Join(row.Auction.Stops, " → "))
		set(fmt.Sprintf("E%d", r), row.Auction.DistanceMiles)
		set(fmt.Sprintf("F%d", r), row.Auction.Tag)
		set(fmt.Sprintf("G%d", r), formatDateTime(row.Auction.ReceivedAt))
		set(fmt.Sprintf("H%d", r), formatDateTimePtr(row.Auction.ArchivedAt))
		set(fmt.Sprintf("I%d", r), row.OfferCount)
		if row.Award != nil {
			set(fmt.Sprintf("J%d", r), "awarded")
			set(fmt.Sprintf("K%d", r), formatCents(row.Award.WinnerAmountCents))
			set(fmt.Sprintf("L%d", r), formatCents(row.Award.QuotedCents()))
		} else {
			set(fmt.Sprintf("J%d", r), "expired")
		}
	}

	_ = file.SetColWidth(sheet, "A", "A", 14)
	_ = file.SetColWidth(sheet, "B", "C", 24)
	_ = file.SetColWidth(sheet, "D", "D", 48)
	_ = file.SetColWidth(sheet, "E", "F", 12)
	_ = file.SetColWidth(sheet, "G", "H", 20)
	_ = file.SetColWidth(sheet, "I", "L", 16)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}

func formatDateTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02 15:04:05")
}

func formatDateTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatDateTime(*t)
}

func formatCents(cents int64) string {
	return fmt.Sprintf("%d.%02d", cents/100, cents%100)
}
