package pdf

import (
	"bytes"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/peterldowns/testy/check"

	"github.com/loadlane/auction-service/internal/model"
)

func TestGenerate_ProducesDocument(t *testing.T) {
	g := NewGenerator()
	margin := int64(500)
	notes := "Detention — billed after 2h."
	contact := "José Álvarez"
	phone := "+1 555 0100"

	out, err := g.Generate(RateConfirmation{
		Auction: model.Auction{
			AuctionNumber: "AUC-1",
			Stops:         []string{"Chicago, IL", "Dallas, TX"},
			DistanceMiles: 920,
		},
		Award: model.Award{
			AuctionNumber:     "AUC-1",
			WinnerCarrierID:   uuid.New(),
			WinnerAmountCents: 350000,
			MarginCents:       &margin,
			Notes:             &notes,
			AwardedAt:         time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC),
		},
		Carrier: model.CarrierProfile{
			LegalName:   "Álvarez Freight LLC",
			MCNumber:    "MC123456",
			ContactName: &contact,
			Phone:       &phone,
		},
	})
	check.Nil(t, err)
	check.True(t, bytes.HasPrefix(out, []byte("%PDF-")))

	// Helvetica takes cp1252 bytes; raw UTF-8 dash sequences must not leak
	// into the document.
	check.False(t, bytes.Contains(out, []byte("—")))
}

func TestGenerate_PlaceholdersForMissingFields(t *testing.T) {
	g := NewGenerator()

	out, err := g.Generate(RateConfirmation{
		Auction: model.Auction{AuctionNumber: "AUC-2", Stops: []string{"A", "B"}},
		Award:   model.Award{AuctionNumber: "AUC-2", WinnerAmountCents: 120000},
		Carrier: model.CarrierProfile{},
	})
	check.Nil(t, err)
	check.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
}
