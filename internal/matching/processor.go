package matching

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/loadlane/auction-service/internal/cache"
	"github.com/loadlane/auction-service/internal/model"
	"github.com/loadlane/auction-service/internal/notify"
	"github.com/loadlane/auction-service/internal/window"
)

type AuctionSource interface {
	GetByNumber(ctx context.Context, auctionNumber string) (*model.Auction, error)
	ListExpiredUnawarded(ctx context.Context, expiredBefore time.Time) ([]model.Auction, error)
}

type OfferSource interface {
	ListByAuction(ctx context.Context, auctionNumber string) ([]model.Offer, error)
	BidHistory(ctx context.Context, carrierID uuid.UUID, tag string) (model.BidHistory, error)
}

type CarrierReads interface {
	GetPreferences(ctx context.Context, carrierID uuid.UUID) (model.Preferences, error)
	ListFavorites(ctx context.Context, carrierID uuid.UUID) ([]model.Auction, error)
}

type LogStore interface {
	Insert(ctx context.Context, log model.NotificationLog) error
	CountForRecipientSince(ctx context.Context, recipientID uuid.UUID, since time.Time) (int64, error)
	LastSentAt(ctx context.Context, recipientID uuid.UUID, auctionNumber string) (*time.Time, error)
	CountForRecipientAuction(ctx context.Context, recipientID uuid.UUID, auctionNumber string) (int64, error)
	LastOfTypeAt(ctx context.Context, auctionNumber, notificationType string) (*time.Time, error)
}

// Limits are the dispatch throttles, all consulted against the notification
// log so restarts and multiple instances share one budget.
type Limits struct {
	RatePerHour        int
	Cooldown           time.Duration
	MaxPerAuction      int
	EscalationCooldown time.Duration
}

// Processor consumes queued jobs and turns them into delivered, logged
// notifications. It also owns the direct paths that bypass the queue: award
// fan-out, operator bid notices and deadline escalation.
type Processor struct {
	auctions  AuctionSource
	offers    OfferSource
	carriers  CarrierReads
	logs      LogStore
	sender    notify.Sender
	policy    window.Policy
	limits    Limits
	operators []uuid.UUID
	now       func() time.Time
	log       zerolog.Logger

	prefsCache *cache.Cache[uuid.UUID, model.Preferences]
	favCache   *cache.Cache[uuid.UUID, []model.Auction]
}

func NewProcessor(
	auctions AuctionSource,
	offers OfferSource,
	carriers CarrierReads,
	logs LogStore,
	sender notify.Sender,
	policy window.Policy,
	limits Limits,
	operators []uuid.UUID,
	log zerolog.Logger,
) *Processor {
	return &Processor{
		auctions:   auctions,
		offers:     offers,
		carriers:   carriers,
		logs:       logs,
		sender:     sender,
		policy:     policy,
		limits:     limits,
		operators:  operators,
		now:        time.Now,
		log:        log,
		prefsCache: cache.New[uuid.UUID, model.Preferences](5 * time.Minute),
		favCache:   cache.New[uuid.UUID, []model.Auction](5 * time.Minute),
	}
}

// Process handles one dequeued job: rate limit, open check, then one pass
// over the bundled triggers. Per-trigger failures are logged and skipped.
func (p *Processor) Process(ctx context.Context, lane model.Lane, job model.NotificationJob) {
	sent, err := p.logs.CountForRecipientSince(ctx, job.CarrierID, p.now().Add(-time.Hour))
	if err != nil {
		p.log.Error().Err(err).Str("job_id", job.JobID.String()).Msg("rate limit lookup")
		return
	}
	if sent >= int64(p.limits.RatePerHour) {
		p.log.Debug().Str("carrier_id", job.CarrierID.String()).Msg("rate limit reached, skipping job")
		return
	}

	auction, err := p.auctions.GetByNumber(ctx, job.AuctionNumber)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			p.log.Error().Err(err).Str("auction_number", job.AuctionNumber).Msg("loading auction for job")
		}
		return
	}
	if !p.policy.IsOpen(p.now(), auction.ReceivedAt, auction.Archived) {
		return
	}

	prefs := p.preferences(ctx, job.CarrierID)

	for _, trigger := range job.Triggers {
		if err := p.processTrigger(ctx, lane, job.CarrierID, trigger, *auction, prefs); err != nil {
			p.log.Error().Err(err).
				Str("carrier_id", job.CarrierID.String()).
				Str("trigger_type", string(trigger.Type)).
				Msg("processing trigger")
		}
	}
}

func (p *Processor) processTrigger(ctx context.Context, lane model.Lane, carrierID uuid.UUID, trigger model.Trigger, auction model.Auction, prefs model.Preferences) error {
	switch trigger.Type {
	case model.TriggerSimilarLoad:
		return p.processSimilarLoad(ctx, lane, carrierID, trigger, auction, prefs)
	case model.TriggerExactMatch:
		return p.processExactMatch(ctx, lane, carrierID, trigger, auction)
	case model.TriggerFavoriteAvailable:
		msg := fmt.Sprintf("Favorite Load Available: %s (%s → %s) is open for bidding.",
			auction.AuctionNumber, auction.Origin(), auction.Destination())
		return p.notify(ctx, lane, carrierID, trigger, auction, model.NoticeFavoriteAvailable, msg)
	case model.TriggerNewRoute:
		msg := fmt.Sprintf("New Route Posted: %s → %s (%dmi), auction %s.",
			auction.Origin(), auction.Destination(), auction.DistanceMiles, auction.AuctionNumber)
		return p.notify(ctx, lane, carrierID, trigger, auction, model.NoticeNewRoute, msg)
	case model.TriggerDeadlineApproaching:
		remaining := p.policy.Remaining(p.now(), auction.ReceivedAt)
		msg := fmt.Sprintf("Deadline Approaching: auction %s closes in %d minutes.",
			auction.AuctionNumber, int(remaining.Minutes()))
		return p.notify(ctx, lane, carrierID, trigger, auction, model.NoticeDeadlineApproaching, msg)
	default:
		return fmt.Errorf("unknown trigger type %q", trigger.Type)
	}
}

// processSimilarLoad scores the auction against the carrier's reference
// loads; the best match at or above the carrier's threshold is notifiable.
// A virtual state-preference trigger for a carrier without favorites falls
// back to a plain preferred-states alert.
func (p *Processor) processSimilarLoad(ctx context.Context, lane model.Lane, carrierID uuid.UUID, trigger model.Trigger, auction model.Auction, prefs model.Preferences) error {
	if !prefs.SimilarLoadAlerts {
		return nil
	}

	minScore := prefs.MinMatchScore
	if minScore <= 0 {
		minScore = NotifiableScore
	}

	favorites := p.favorites(ctx, carrierID)
	if len(favorites) == 0 {
		if !trigger.Virtual() || len(trigger.Config.StatePreferences) == 0 {
			return nil
		}
		msg := fmt.Sprintf("New load in your preferred states: %s - %dmi, %s.",
			auction.AuctionNumber, auction.DistanceMiles, auction.Tag)
		return p.notify(ctx, lane, carrierID, trigger, auction, model.NoticeSimilarLoad, msg)
	}

	history, err := p.offers.BidHistory(ctx, carrierID, auction.Tag)
	if err != nil {
		return err
	}

	var best Match
	for _, favorite := range favorites {
		if favorite.AuctionNumber == auction.AuctionNumber {
			continue
		}
		m := Score(auction, favorite, history)
		if m.Score > best.Score {
			best = m
		}
	}
	if best.Score < minScore {
		return nil
	}

	msg := fmt.Sprintf("High-match load found! %s - %dmi, %s. Match: %d%%.",
		auction.AuctionNumber, auction.DistanceMiles, auction.Tag, best.Score)
	if len(best.Reasons) > 0 {
		msg += " " + strings.Join(best.Reasons, ". ") + "."
	}
	return p.notify(ctx, lane, carrierID, trigger, auction, model.NoticeSimilarLoad, msg)
}

func (p *Processor) processExactMatch(ctx context.Context, lane model.Lane, carrierID uuid.UUID, trigger model.Trigger, auction model.Auction) error {
	cfg := trigger.Config

	backhaul := cfg.BackhaulEnabled
	if cfg.FavoriteAuctionNumber != "" && !backhaul {
		if favorite, err := p.auctions.GetByNumber(ctx, cfg.FavoriteAuctionNumber); err == nil {
			backhaul = ReversedRoute(favorite.Stops, auction.Stops)
		}
	}

	var msg string
	switch {
	case backhaul:
		msg = fmt.Sprintf("Backhaul opportunity: %s runs your saved lane in reverse (%s → %s).",
			auction.AuctionNumber, auction.Origin(), auction.Destination())
	case cfg.MatchKind == model.MatchKindState:
		msg = fmt.Sprintf("Load in your saved lane's states: %s (%s → %s, %dmi).",
			auction.AuctionNumber, auction.Origin(), auction.Destination(), auction.DistanceMiles)
	default:
		msg = fmt.Sprintf("Exact Match Available! %s runs your saved lane %s → %s.",
			auction.AuctionNumber, auction.Origin(), auction.Destination())
	}
	return p.notify(ctx, lane, carrierID, trigger, auction, model.NoticeExactMatch, msg)
}

// notify applies the per-(carrier, auction) cooldown and the hard ceiling,
// then logs and delivers. The notification that hits the ceiling is
// rewritten as the final warning; nothing is sent past it.
func (p *Processor) notify(ctx context.Context, lane model.Lane, recipientID uuid.UUID, trigger model.Trigger, auction model.Auction, typ model.NotificationType, message string) error {
	now := p.now()

	last, err := p.logs.LastSentAt(ctx, recipientID, auction.AuctionNumber)
	if err != nil {
		return err
	}
	if last != nil && now.Sub(*last) < p.limits.Cooldown {
		return nil
	}

	count, err := p.logs.CountForRecipientAuction(ctx, recipientID, auction.AuctionNumber)
	if err != nil {
		return err
	}
	if count >= int64(p.limits.MaxPerAuction) {
		return nil
	}
	if count == int64(p.limits.MaxPerAuction)-1 {
		message = fmt.Sprintf("Final notification for matching auction %s: 1 minute left till bidding is closed.", auction.AuctionNumber)
	}

	return p.deliver(ctx, model.NotificationLog{
		RecipientID:   recipientID,
		TriggerID:     triggerID(trigger),
		AuctionNumber: auction.AuctionNumber,
		Type:          typ,
		Message:       message,
		Lane:          lane,
		SentAt:        now,
	})
}

// NotifyAuctionAwarded tells the winner and every losing bidder. Failures
// are logged per carrier; the award itself is already committed.
func (p *Processor) NotifyAuctionAwarded(ctx context.Context, auction model.Auction, award model.Award) {
	offers, err := p.offers.ListByAuction(ctx, auction.AuctionNumber)
	if err != nil {
		p.log.Error().Err(err).Str("auction_number", auction.AuctionNumber).Msg("listing offers for award fan-out")
		return
	}

	seen := make(map[uuid.UUID]bool, len(offers))
	for _, offer := range offers {
		if seen[offer.CarrierID] {
			continue
		}
		seen[offer.CarrierID] = true

		var entry model.NotificationLog
		if offer.CarrierID == award.WinnerCarrierID {
			entry = model.NotificationLog{
				RecipientID:   offer.CarrierID,
				AuctionNumber: auction.AuctionNumber,
				Type:          model.NoticeAuctionWon,
				Message: fmt.Sprintf("Auction Won! You won %s at %s.",
					auction.AuctionNumber, dollars(award.WinnerAmountCents)),
				Lane:   model.LaneUrgent,
				SentAt: p.now(),
			}
		} else {
			entry = model.NotificationLog{
				RecipientID:   offer.CarrierID,
				AuctionNumber: auction.AuctionNumber,
				Type:          model.NoticeAuctionLost,
				Message:       fmt.Sprintf("Auction %s was awarded to another carrier.", auction.AuctionNumber),
				Lane:          model.LaneStandard,
				SentAt:        p.now(),
			}
		}
		if err := p.deliver(ctx, entry); err != nil {
			p.log.Error().Err(err).Str("carrier_id", offer.CarrierID.String()).Msg("award fan-out delivery")
		}
	}
}

// NotifyOfferSubmitted pushes an operator-facing notice for each new offer.
func (p *Processor) NotifyOfferSubmitted(ctx context.Context, auction model.Auction, offer model.Offer) {
	msg := fmt.Sprintf("New offer on %s: %s.", auction.AuctionNumber, dollars(offer.AmountCents))
	for _, operatorID := range p.operators {
		err := p.deliver(ctx, model.NotificationLog{
			RecipientID:   operatorID,
			AuctionNumber: auction.AuctionNumber,
			Type:          model.NoticeBidReceived,
			Message:       msg,
			Lane:          model.LaneStandard,
			SentAt:        p.now(),
		})
		if err != nil {
			p.log.Error().Err(err).Str("operator_id", operatorID.String()).Msg("operator bid notice")
		}
	}
}

// EscalateExpiredUnawarded reminds operators about every auction that ran
// out of time without an award, at most once per escalation cooldown, until
// an award lands or the auction is archived.
func (p *Processor) EscalateExpiredUnawarded(ctx context.Context) {
	now := p.now()
	auctions, err := p.auctions.ListExpiredUnawarded(ctx, now.Add(-p.policy.BidWindow))
	if err != nil {
		p.log.Error().Err(err).Msg("listing expired unawarded auctions")
		return
	}

	for _, auction := range auctions {
		last, err := p.logs.LastOfTypeAt(ctx, auction.AuctionNumber, string(model.NoticeEscalation))
		if err != nil {
			p.log.Error().Err(err).Str("auction_number", auction.AuctionNumber).Msg("escalation history lookup")
			continue
		}
		if last != nil && now.Sub(*last) < p.limits.EscalationCooldown {
			continue
		}

		msg := fmt.Sprintf("Auction %s expired without an award — action needed.", auction.AuctionNumber)
		for _, operatorID := range p.operators {
			err := p.deliver(ctx, model.NotificationLog{
				RecipientID:   operatorID,
				AuctionNumber: auction.AuctionNumber,
				Type:          model.NoticeEscalation,
				Message:       msg,
				Lane:          model.LaneUrgent,
				SentAt:        now,
			})
			if err != nil {
				p.log.Error().Err(err).Str("operator_id", operatorID.String()).Msg("deadline escalation delivery")
			}
		}
	}
}

// deliver writes the log row first, then sends. A send failure is returned
// but the row stays: the log is the dedupe source of truth and delivery is
// best-effort.
func (p *Processor) deliver(ctx context.Context, entry model.NotificationLog) error {
	if err := p.logs.Insert(ctx, entry); err != nil {
		return err
	}
	return p.sender.Send(ctx, entry)
}

func (p *Processor) preferences(ctx context.Context, carrierID uuid.UUID) model.Preferences {
	if prefs, ok := p.prefsCache.Get(carrierID); ok {
		return prefs
	}
	prefs, err := p.carriers.GetPreferences(ctx, carrierID)
	if err != nil {
		p.log.Error().Err(err).Str("carrier_id", carrierID.String()).Msg("loading preferences")
		return model.DefaultPreferences(carrierID)
	}
	p.prefsCache.Set(carrierID, prefs)
	return prefs
}

func (p *Processor) favorites(ctx context.Context, carrierID uuid.UUID) []model.Auction {
	if favorites, ok := p.favCache.Get(carrierID); ok {
		return favorites
	}
	favorites, err := p.carriers.ListFavorites(ctx, carrierID)
	if err != nil {
		p.log.Error().Err(err).Str("carrier_id", carrierID.String()).Msg("loading favorites")
		return nil
	}
	p.favCache.Set(carrierID, favorites)
	return favorites
}

func triggerID(trigger model.Trigger) *int64 {
	if trigger.Virtual() {
		return nil
	}
	id := trigger.ID
	return &id
}

func dollars(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s$%d.%02d", sign, cents/100, cents%100)
}
