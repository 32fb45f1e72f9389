package matching

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/peterldowns/testy/check"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/loadlane/auction-service/internal/model"
	"github.com/loadlane/auction-service/internal/window"
)

type fakeAuctionSource struct {
	auctions map[string]model.Auction
	expired  []model.Auction
}

func (f *fakeAuctionSource) GetByNumber(_ context.Context, number string) (*model.Auction, error) {
	a, ok := f.auctions[number]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &a, nil
}

func (f *fakeAuctionSource) ListExpiredUnawarded(context.Context, time.Time) ([]model.Auction, error) {
	return f.expired, nil
}

type fakeOfferSource struct {
	offers  map[string][]model.Offer
	history model.BidHistory
}

func (f *fakeOfferSource) ListByAuction(_ context.Context, number string) ([]model.Offer, error) {
	return f.offers[number], nil
}

func (f *fakeOfferSource) BidHistory(context.Context, uuid.UUID, string) (model.BidHistory, error) {
	return f.history, nil
}

type fakeCarrierReads struct {
	prefs     map[uuid.UUID]model.Preferences
	favorites map[uuid.UUID][]model.Auction
}

func (f *fakeCarrierReads) GetPreferences(_ context.Context, carrierID uuid.UUID) (model.Preferences, error) {
	if p, ok := f.prefs[carrierID]; ok {
		return p, nil
	}
	return model.DefaultPreferences(carrierID), nil
}

func (f *fakeCarrierReads) ListFavorites(_ context.Context, carrierID uuid.UUID) ([]model.Auction, error) {
	return f.favorites[carrierID], nil
}

type fakeLogStore struct {
	entries []model.NotificationLog
}

func (f *fakeLogStore) Insert(_ context.Context, log model.NotificationLog) error {
	f.entries = append(f.entries, log)
	return nil
}

func (f *fakeLogStore) CountForRecipientSince(_ context.Context, recipientID uuid.UUID, since time.Time) (int64, error) {
	var n int64
	for _, e := range f.entries {
		if e.RecipientID == recipientID && e.SentAt.After(since) {
			n++
		}
	}
	return n, nil
}

func (f *fakeLogStore) LastSentAt(_ context.Context, recipientID uuid.UUID, auctionNumber string) (*time.Time, error) {
	var last *time.Time
	for _, e := range f.entries {
		if e.RecipientID == recipientID && e.AuctionNumber == auctionNumber {
			if last == nil || e.SentAt.After(*last) {
				t := e.SentAt
				last = &t
			}
		}
	}
	return last, nil
}

func (f *fakeLogStore) CountForRecipientAuction(_ context.Context, recipientID uuid.UUID, auctionNumber string) (int64, error) {
	var n int64
	for _, e := range f.entries {
		if e.RecipientID == recipientID && e.AuctionNumber == auctionNumber {
			n++
		}
	}
	return n, nil
}

func (f *fakeLogStore) LastOfTypeAt(_ context.Context, auctionNumber, notificationType string) (*time.Time, error) {
	var last *time.Time
	for _, e := range f.entries {
		if e.AuctionNumber == auctionNumber && string(e.Type) == notificationType {
			if last == nil || e.SentAt.After(*last) {
				t := e.SentAt
				last = &t
			}
		}
	}
	return last, nil
}

type fakeSender struct {
	sent []model.NotificationLog
}

func (f *fakeSender) Send(_ context.Context, entry model.NotificationLog) error {
	f.sent = append(f.sent, entry)
	return nil
}

type processorFixture struct {
	auctions  *fakeAuctionSource
	offers    *fakeOfferSource
	carriers  *fakeCarrierReads
	logs      *fakeLogStore
	sender    *fakeSender
	processor *Processor
	now       time.Time
}

func newProcessorFixture(t *testing.T) *processorFixture {
	t.Helper()
	now := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)
	f := &processorFixture{
		auctions: &fakeAuctionSource{auctions: map[string]model.Auction{}},
		offers:   &fakeOfferSource{offers: map[string][]model.Offer{}},
		carriers: &fakeCarrierReads{
			prefs:     map[uuid.UUID]model.Preferences{},
			favorites: map[uuid.UUID][]model.Auction{},
		},
		logs:   &fakeLogStore{},
		sender: &fakeSender{},
		now:    now,
	}
	f.processor = NewProcessor(
		f.auctions, f.offers, f.carriers, f.logs, f.sender,
		window.Default(),
		Limits{
			RatePerHour:        20,
			Cooldown:           8 * time.Minute,
			MaxPerAuction:      3,
			EscalationCooldown: 5 * time.Minute,
		},
		[]uuid.UUID{operatorID},
		zerolog.Nop(),
	)
	f.processor.now = func() time.Time { return f.now }
	return f
}

var operatorID = uuid.MustParse("99999999-9999-9999-9999-999999999999")

func (f *processorFixture) addAuction(a model.Auction) {
	f.auctions.auctions[a.AuctionNumber] = a
}

func (f *processorFixture) jobWith(carrierID uuid.UUID, auctionNumber string, triggers ...model.Trigger) model.NotificationJob {
	return model.NotificationJob{
		JobID:         uuid.New(),
		CarrierID:     carrierID,
		AuctionNumber: auctionNumber,
		Triggers:      triggers,
		EnqueuedAt:    f.now,
	}
}

func TestProcess_DeliversFavoriteAvailable(t *testing.T) {
	f := newProcessorFixture(t)
	f.addAuction(openAuction("AUC-1", []string{"Chicago, IL", "Dallas, TX"}, f.now.Add(-time.Minute)))

	trigger := model.Trigger{ID: 7, CarrierID: carrierA, Type: model.TriggerFavoriteAvailable, Active: true}
	f.processor.Process(context.Background(), model.LaneStandard, f.jobWith(carrierA, "AUC-1", trigger))

	check.Equal(t, 1, len(f.logs.entries))
	check.Equal(t, 1, len(f.sender.sent))
	entry := f.logs.entries[0]
	check.Equal(t, model.NoticeFavoriteAvailable, entry.Type)
	check.Equal(t, carrierA, entry.RecipientID)
	check.NotNil(t, entry.TriggerID)
	check.Equal(t, int64(7), *entry.TriggerID)
}

func TestProcess_CooldownSuppressesRepeat(t *testing.T) {
	f := newProcessorFixture(t)
	f.addAuction(openAuction("AUC-1", []string{"Chicago, IL", "Dallas, TX"}, f.now.Add(-time.Minute)))

	trigger := model.Trigger{ID: 7, CarrierID: carrierA, Type: model.TriggerNewRoute, Active: true}
	f.processor.Process(context.Background(), model.LaneStandard, f.jobWith(carrierA, "AUC-1", trigger))
	check.Equal(t, 1, len(f.logs.entries))

	f.now = f.now.Add(3 * time.Minute)
	f.processor.Process(context.Background(), model.LaneStandard, f.jobWith(carrierA, "AUC-1", trigger))
	check.Equal(t, 1, len(f.logs.entries))

	f.now = f.now.Add(6 * time.Minute)
	f.processor.Process(context.Background(), model.LaneStandard, f.jobWith(carrierA, "AUC-1", trigger))
	check.Equal(t, 2, len(f.logs.entries))
}

func TestProcess_CeilingRewritesFinalWarning(t *testing.T) {
	f := newProcessorFixture(t)
	f.addAuction(openAuction("AUC-1", []string{"Chicago, IL", "Dallas, TX"}, f.now.Add(-time.Minute)))

	// two earlier notifications, old enough for the cooldown to have passed
	for i := 0; i < 2; i++ {
		f.logs.entries = append(f.logs.entries, model.NotificationLog{
			RecipientID:   carrierA,
			AuctionNumber: "AUC-1",
			Type:          model.NoticeNewRoute,
			SentAt:        f.now.Add(-time.Duration(20-i) * time.Minute),
		})
	}

	trigger := model.Trigger{ID: 7, CarrierID: carrierA, Type: model.TriggerNewRoute, Active: true}
	f.processor.Process(context.Background(), model.LaneStandard, f.jobWith(carrierA, "AUC-1", trigger))

	check.Equal(t, 3, len(f.logs.entries))
	check.Equal(t,
		"Final notification for matching auction AUC-1: 1 minute left till bidding is closed.",
		f.logs.entries[2].Message)

	// ceiling reached: nothing more goes out
	f.now = f.now.Add(10 * time.Minute)
	f.addAuction(openAuction("AUC-1", []string{"Chicago, IL", "Dallas, TX"}, f.now.Add(-time.Minute)))
	f.processor.Process(context.Background(), model.LaneStandard, f.jobWith(carrierA, "AUC-1", trigger))
	check.Equal(t, 3, len(f.logs.entries))
}

func TestProcess_RateLimitSkipsJob(t *testing.T) {
	f := newProcessorFixture(t)
	f.addAuction(openAuction("AUC-1", []string{"Chicago, IL", "Dallas, TX"}, f.now.Add(-time.Minute)))

	for i := 0; i < 20; i++ {
		f.logs.entries = append(f.logs.entries, model.NotificationLog{
			RecipientID:   carrierA,
			AuctionNumber: "AUC-OTHER",
			SentAt:        f.now.Add(-30 * time.Minute),
		})
	}

	trigger := model.Trigger{ID: 7, CarrierID: carrierA, Type: model.TriggerNewRoute, Active: true}
	f.processor.Process(context.Background(), model.LaneStandard, f.jobWith(carrierA, "AUC-1", trigger))

	check.Equal(t, 20, len(f.logs.entries))
}

func TestProcess_VirtualStateTriggerWithoutFavorites(t *testing.T) {
	f := newProcessorFixture(t)
	f.addAuction(openAuction("AUC-1", []string{"Chicago, IL", "Dallas, TX"}, f.now.Add(-time.Minute)))

	virtual := model.Trigger{
		CarrierID: carrierA,
		Type:      model.TriggerSimilarLoad,
		Config:    model.TriggerConfig{StatePreferences: []string{"IL"}},
		Active:    true,
	}
	f.processor.Process(context.Background(), model.LaneStandard, f.jobWith(carrierA, "AUC-1", virtual))

	check.Equal(t, 1, len(f.logs.entries))
	check.True(t, strings.HasPrefix(f.logs.entries[0].Message, "New load in your preferred states:"))
	check.Nil(t, f.logs.entries[0].TriggerID)
}

func TestProcess_SimilarLoadScoresAgainstFavorites(t *testing.T) {
	f := newProcessorFixture(t)
	f.addAuction(openAuction("AUC-1", []string{"Chicago, IL", "Dallas, TX"}, f.now.Add(-time.Minute)))
	f.carriers.favorites[carrierA] = []model.Auction{
		openAuction("AUC-FAV", []string{"Chicago, IL", "Dallas, TX"}, f.now.Add(-72*time.Hour)),
	}

	trigger := model.Trigger{ID: 7, CarrierID: carrierA, Type: model.TriggerSimilarLoad, Active: true}
	f.processor.Process(context.Background(), model.LaneStandard, f.jobWith(carrierA, "AUC-1", trigger))

	check.Equal(t, 1, len(f.logs.entries))
	check.True(t, strings.HasPrefix(f.logs.entries[0].Message, "High-match load found!"))
}

func TestProcess_SimilarLoadBelowThresholdStaysQuiet(t *testing.T) {
	f := newProcessorFixture(t)
	f.addAuction(openAuction("AUC-1", []string{"Miami, FL", "Seattle, WA"}, f.now.Add(-time.Minute)))
	f.carriers.favorites[carrierA] = []model.Auction{
		{AuctionNumber: "AUC-FAV", Stops: []string{"Chicago, IL", "Dallas, TX"}, DistanceMiles: 100, Tag: "XX"},
	}

	trigger := model.Trigger{ID: 7, CarrierID: carrierA, Type: model.TriggerSimilarLoad, Active: true}
	f.processor.Process(context.Background(), model.LaneStandard, f.jobWith(carrierA, "AUC-1", trigger))

	check.Equal(t, 0, len(f.logs.entries))
}

func TestNotifyAuctionAwarded_WinnerAndLosers(t *testing.T) {
	f := newProcessorFixture(t)
	auction := openAuction("AUC-1", []string{"Chicago, IL", "Dallas, TX"}, f.now.Add(-30*time.Minute))
	f.offers.offers["AUC-1"] = []model.Offer{
		{AuctionNumber: "AUC-1", CarrierID: carrierA, AmountCents: 3500},
		{AuctionNumber: "AUC-1", CarrierID: carrierB, AmountCents: 4000},
	}

	award := model.Award{AuctionNumber: "AUC-1", WinnerCarrierID: carrierA, WinnerAmountCents: 3500}
	f.processor.NotifyAuctionAwarded(context.Background(), auction, award)

	check.Equal(t, 2, len(f.logs.entries))

	var won, lost *model.NotificationLog
	for i := range f.logs.entries {
		switch f.logs.entries[i].Type {
		case model.NoticeAuctionWon:
			won = &f.logs.entries[i]
		case model.NoticeAuctionLost:
			lost = &f.logs.entries[i]
		}
	}
	check.NotNil(t, won)
	check.NotNil(t, lost)
	check.Equal(t, carrierA, won.RecipientID)
	check.Equal(t, model.LaneUrgent, won.Lane)
	check.Equal(t, "Auction Won! You won AUC-1 at $35.00.", won.Message)
	check.Equal(t, carrierB, lost.RecipientID)
	check.Equal(t, model.LaneStandard, lost.Lane)
}

func TestNotifyOfferSubmitted_ReachesOperators(t *testing.T) {
	f := newProcessorFixture(t)
	auction := openAuction("AUC-1", []string{"Chicago, IL", "Dallas, TX"}, f.now)

	f.processor.NotifyOfferSubmitted(context.Background(), auction, model.Offer{CarrierID: carrierA, AmountCents: 4200})

	check.Equal(t, 1, len(f.logs.entries))
	check.Equal(t, operatorID, f.logs.entries[0].RecipientID)
	check.Equal(t, model.NoticeBidReceived, f.logs.entries[0].Type)
	check.Equal(t, "New offer on AUC-1: $42.00.", f.logs.entries[0].Message)
}

func TestProcessTrigger_HandlesEveryKnownType(t *testing.T) {
	f := newProcessorFixture(t)
	auction := openAuction("AUC-1", []string{"Chicago, IL", "Dallas, TX"}, f.now.Add(-time.Minute))
	f.addAuction(auction)

	for _, typ := range model.KnownTriggerTypes {
		trigger := model.Trigger{ID: 1, CarrierID: carrierA, Type: typ, Active: true}
		err := f.processor.processTrigger(context.Background(), model.LaneStandard, carrierA, trigger, auction, model.DefaultPreferences(carrierA))
		check.Nil(t, err)
	}

	err := f.processor.processTrigger(context.Background(), model.LaneStandard, carrierA, model.Trigger{Type: "bogus"}, auction, model.DefaultPreferences(carrierA))
	check.Error(t, err)
}

func TestEscalateExpiredUnawarded_CooldownBetweenRounds(t *testing.T) {
	f := newProcessorFixture(t)
	f.auctions.expired = []model.Auction{
		openAuction("AUC-1", []string{"Chicago, IL", "Dallas, TX"}, f.now.Add(-time.Hour)),
	}

	f.processor.EscalateExpiredUnawarded(context.Background())
	check.Equal(t, 1, len(f.logs.entries))
	check.Equal(t, model.LaneUrgent, f.logs.entries[0].Lane)
	check.Equal(t, operatorID, f.logs.entries[0].RecipientID)

	// inside the escalation cooldown
	f.now = f.now.Add(2 * time.Minute)
	f.processor.EscalateExpiredUnawarded(context.Background())
	check.Equal(t, 1, len(f.logs.entries))

	f.now = f.now.Add(5 * time.Minute)
	f.processor.EscalateExpiredUnawarded(context.Background())
	check.Equal(t, 2, len(f.logs.entries))
}

func TestEscalateExpiredUnawarded_IndependentOfCarrierDeadlineAlerts(t *testing.T) {
	f := newProcessorFixture(t)
	f.auctions.expired = []model.Auction{
		openAuction("AUC-1", []string{"Chicago, IL", "Dallas, TX"}, f.now.Add(-time.Hour)),
	}

	// A carrier got a deadline alert moments before expiry. Operator
	// escalation keys on its own type and must still fire.
	f.logs.entries = append(f.logs.entries, model.NotificationLog{
		RecipientID:   carrierA,
		AuctionNumber: "AUC-1",
		Type:          model.NoticeDeadlineApproaching,
		SentAt:        f.now.Add(-time.Minute),
	})

	f.processor.EscalateExpiredUnawarded(context.Background())
	check.Equal(t, 2, len(f.logs.entries))
	escalation := f.logs.entries[1]
	check.Equal(t, operatorID, escalation.RecipientID)
	check.Equal(t, model.NoticeEscalation, escalation.Type)
}
