package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/loadlane/auction-service/internal/export"
	"github.com/loadlane/auction-service/internal/model"
	"github.com/loadlane/auction-service/internal/pdf"
)

type ArchiveSource interface {
	ListArchived(ctx context.Context, from, to time.Time) ([]model.Auction, error)
	GetByNumber(ctx context.Context, auctionNumber string) (*model.Auction, error)
}

type OfferCounts interface {
	CountsByAuction(ctx context.Context, auctionNumbers []string) (map[string]int64, error)
}

type AwardLookup interface {
	ListByAuctions(ctx context.Context, auctionNumbers []string) (map[string]model.Award, error)
	GetByAuction(ctx context.Context, auctionNumber string) (*model.Award, error)
}

type ProfileLookup interface {
	GetProfile(ctx context.Context, carrierID uuid.UUID) (*model.CarrierProfile, error)
}

type ExcelGenerator interface {
	Generate(report export.ArchiveReport) ([]byte, error)
}

type PDFGenerator interface {
	Generate(doc pdf.RateConfirmation) ([]byte, error)
}

// ExportService renders the operator documents: the archive workbook and
// the per-award rate confirmation.
type ExportService struct {
	auctions ArchiveSource
	offers   OfferCounts
	awards   AwardLookup
	profiles ProfileLookup
	excel    ExcelGenerator
	pdf      PDFGenerator
}

func NewExportService(auctions ArchiveSource, offers OfferCounts, awards AwardLookup, profiles ProfileLookup, excel ExcelGenerator, pdf PDFGenerator) *ExportService {
	return &ExportService{
		auctions: auctions,
		offers:   offers,
		awards:   awards,
		profiles: profiles,
		excel:    excel,
		pdf:      pdf,
	}
}

type ExportArchiveInput struct {
	PeriodStart time.Time
	PeriodEnd   time.Time
	Principal   model.Principal
}

type FileResult struct {
	FileName string
	Content  []byte
}

func (s *ExportService) ExportArchive(ctx context.Context, input ExportArchiveInput) (*FileResult, error) {
	if !input.Principal.IsOperator() {
		return nil, ErrPermissionDenied
	}
	if input.PeriodStart.IsZero() || input.PeriodEnd.IsZero() {
		return nil, fmt.Errorf("%w: period dates are required", ErrInvalidInput)
	}

	periodStart := dateOnly(input.PeriodStart)
	periodEnd := dateOnly(input.PeriodEnd)
	if periodStart.After(periodEnd) {
		return nil, fmt.Errorf("%w: period_start must be before or equal to period_end", ErrInvalidInput)
	}
	endExclusive := periodEnd.Add(24 * time.Hour)

	auctions, err := s.auctions.ListArchived(ctx, periodStart, endExclusive)
	if err != nil {
		return nil, err
	}

	numbers := make([]string, 0, len(auctions))
	for _, auction := range auctions {
		numbers = append(numbers, auction.AuctionNumber)
	}
	counts, err := s.offers.CountsByAuction(ctx, numbers)
	if err != nil {
		return nil, err
	}
	awards, err := s.awards.ListByAuctions(ctx, numbers)
	if err != nil {
		return nil, err
	}

	rows := make([]export.ArchiveRow, 0, len(auctions))
	for _, auction := range auctions {
		row := export.ArchiveRow{
			Auction:    auction,
			OfferCount: counts[auction.AuctionNumber],
		}
		if award, ok := awards[auction.AuctionNumber]; ok {
			a := award
			row.Award = &a
		}
		rows = append(rows, row)
	}

	content, err := s.excel.Generate(export.ArchiveReport{
		From: periodStart,
		To:   periodEnd,
		Rows: rows,
	})
	if err != nil {
		return nil, err
	}

	fileName := fmt.Sprintf("auctions-archive-%s-%s.xlsx",
		periodStart.Format("20060102"), periodEnd.Format("20060102"))
	return &FileResult{FileName: fileName, Content: content}, nil
}

// RateConfirmation renders the award document for one auction.
func (s *ExportService) RateConfirmation(ctx context.Context, principal model.Principal, auctionNumber string) (*FileResult, error) {
	if !principal.IsOperator() {
		return nil, ErrPermissionDenied
	}

	auction, err := s.auctions.GetByNumber(ctx, auctionNumber)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	award, err := s.awards.GetByAuction(ctx, auction.AuctionNumber)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	profile, err := s.profiles.GetProfile(ctx, award.WinnerCarrierID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			profile = &model.CarrierProfile{CarrierID: award.WinnerCarrierID}
		} else {
			return nil, err
		}
	}

	content, err := s.pdf.Generate(pdf.RateConfirmation{
		Auction: *auction,
		Award:   *award,
		Carrier: *profile,
	})
	if err != nil {
		return nil, err
	}

	fileName := fmt.Sprintf("rate-confirmation-%s.pdf", sanitizeFileName(auction.AuctionNumber))
	return &FileResult{FileName: fileName, Content: content}, nil
}

func dateOnly(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func sanitizeFileName(input string) string {
	result := make([]rune, 0, len(input))
	for _, r := range input {
		switch {
		case r >= 'a' && r <= 'z':
			result = append(result, r)
		case r >= 'A' && r <= 'Z':
			result = append(result, r)
		case r >= '0' && r <= '9':
			result = append(result, r)
		case r == '-', r == '_':
			result = append(result, r)
		default:
			result = append(result, '-')
		}
	}
	return strings.Trim(string(result), "-")
}
