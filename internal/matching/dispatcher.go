package matching

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/loadlane/auction-service/internal/model"
	"github.com/loadlane/auction-service/internal/window"
)

// TriggerSource lists the explicit triggers carriers created themselves.
type TriggerSource interface {
	ListActive(ctx context.Context) ([]model.Trigger, error)
}

// PreferenceSource feeds the virtual-trigger synthesis: stated preferences
// and favorites for carriers without explicit triggers.
type PreferenceSource interface {
	ListStatePreferenceCarriers(ctx context.Context) ([]model.Preferences, error)
	ListAllFavorites(ctx context.Context) ([]model.FavoriteRef, error)
}

// Enqueuer is the queue the dispatcher hands jobs to.
type Enqueuer interface {
	Enqueue(lane model.Lane, job model.NotificationJob) bool
}

// Dispatcher fans a new auction out to every carrier whose triggers or
// stated preferences match, one queued job per carrier. Per-carrier failures
// are logged and skipped so one bad trigger cannot block the rest.
type Dispatcher struct {
	triggers TriggerSource
	carriers PreferenceSource
	queue    Enqueuer
	policy   window.Policy
	now      func() time.Time
	log      zerolog.Logger
}

func NewDispatcher(triggers TriggerSource, carriers PreferenceSource, queue Enqueuer, policy window.Policy, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		triggers: triggers,
		carriers: carriers,
		queue:    queue,
		policy:   policy,
		now:      time.Now,
		log:      log,
	}
}

// Dispatch evaluates every carrier against the auction and enqueues one job
// per matching carrier. An auction already past its window is skipped.
func (d *Dispatcher) Dispatch(ctx context.Context, auction model.Auction) {
	if !d.policy.IsOpen(d.now(), auction.ReceivedAt, auction.Archived) {
		d.log.Debug().Str("auction_number", auction.AuctionNumber).Msg("auction no longer open, skipping dispatch")
		return
	}

	byCarrier := make(map[uuid.UUID][]model.Trigger)

	explicit, err := d.triggers.ListActive(ctx)
	if err != nil {
		d.log.Error().Err(err).Msg("listing active triggers")
	}
	for _, t := range explicit {
		byCarrier[t.CarrierID] = append(byCarrier[t.CarrierID], t)
	}

	for _, t := range d.statePreferenceTriggers(ctx, auction) {
		byCarrier[t.CarrierID] = append(byCarrier[t.CarrierID], t)
	}
	for _, t := range d.favoriteTriggers(ctx, auction) {
		byCarrier[t.CarrierID] = append(byCarrier[t.CarrierID], t)
	}

	enqueued := 0
	for carrierID, triggers := range byCarrier {
		job := model.NotificationJob{
			JobID:         uuid.New(),
			CarrierID:     carrierID,
			AuctionNumber: auction.AuctionNumber,
			Triggers:      triggers,
			EnqueuedAt:    d.now(),
		}
		if d.queue.Enqueue(laneFor(triggers), job) {
			enqueued++
		}
	}

	d.log.Info().
		Str("auction_number", auction.AuctionNumber).
		Int("carriers", len(byCarrier)).
		Int("enqueued", enqueued).
		Msg("auction dispatched")
}

// statePreferenceTriggers synthesizes a virtual similar_load trigger for
// each carrier whose preferred states cover the auction's origin and who has
// no explicit similar_load trigger.
func (d *Dispatcher) statePreferenceTriggers(ctx context.Context, auction model.Auction) []model.Trigger {
	prefs, err := d.carriers.ListStatePreferenceCarriers(ctx)
	if err != nil {
		d.log.Error().Err(err).Msg("listing state preference carriers")
		return nil
	}

	originState := stopState(auction.Origin())
	if originState == "" {
		originState = strings.ToUpper(strings.TrimSpace(auction.Tag))
	}
	if originState == "" {
		return nil
	}

	var out []model.Trigger
	for _, p := range prefs {
		if !containsState(p.StatePreferences, originState) {
			continue
		}
		out = append(out, model.Trigger{
			CarrierID: p.CarrierID,
			Type:      model.TriggerSimilarLoad,
			Config: model.TriggerConfig{
				StatePreferences:       p.StatePreferences,
				DistanceThresholdMiles: p.DistanceThresholdMiles,
			},
			Active: true,
		})
	}
	return out
}

// favoriteTriggers synthesizes a virtual exact_match trigger for each
// carrier whose favorite matches the auction: same lane, same lane in the
// states, or the reverse direction when the carrier prioritizes backhaul.
func (d *Dispatcher) favoriteTriggers(ctx context.Context, auction model.Auction) []model.Trigger {
	favorites, err := d.carriers.ListAllFavorites(ctx)
	if err != nil {
		d.log.Error().Err(err).Msg("listing carrier favorites")
		return nil
	}

	var out []model.Trigger
	for _, fav := range favorites {
		kind, backhaul, ok := classifyFavoriteMatch(fav.Auction, auction, fav.PrioritizeBackhaul)
		if !ok {
			continue
		}
		out = append(out, model.Trigger{
			CarrierID: fav.CarrierID,
			Type:      model.TriggerExactMatch,
			Config: model.TriggerConfig{
				FavoriteAuctionNumber: fav.Auction.AuctionNumber,
				MatchKind:             kind,
				BackhaulEnabled:       backhaul,
			},
			Active: true,
		})
	}
	return out
}

// classifyFavoriteMatch compares a favorite lane against the new auction.
// City matches outrank state matches; the reverse direction counts only when
// the carrier opted into backhaul.
func classifyFavoriteMatch(favorite, auction model.Auction, backhaulEnabled bool) (model.MatchKind, bool, bool) {
	if len(favorite.Stops) < 2 || len(auction.Stops) < 2 {
		return "", false, false
	}

	favOrigin, favDest := favorite.Origin(), favorite.Destination()
	newOrigin, newDest := auction.Origin(), auction.Destination()

	switch {
	case similarCity(favOrigin, newOrigin) && similarCity(favDest, newDest):
		return model.MatchKindExact, false, true
	case backhaulEnabled && similarCity(favOrigin, newDest) && similarCity(favDest, newOrigin):
		return model.MatchKindExact, true, true
	case sameState(favOrigin, newOrigin) && sameState(favDest, newDest):
		return model.MatchKindState, false, true
	case backhaulEnabled && sameState(favOrigin, newDest) && sameState(favDest, newOrigin):
		return model.MatchKindState, true, true
	}
	return "", false, false
}

// laneFor routes a trigger mix to its priority lane.
func laneFor(triggers []model.Trigger) model.Lane {
	for _, t := range triggers {
		if t.Type == model.TriggerExactMatch || t.Type == model.TriggerDeadlineApproaching {
			return model.LaneUrgent
		}
	}
	return model.LaneStandard
}

// stopState extracts the trailing state code from a stop like "CHICAGO, IL".
func stopState(stop string) string {
	i := strings.LastIndex(stop, ",")
	if i < 0 {
		return ""
	}
	return strings.ToUpper(strings.TrimSpace(stop[i+1:]))
}

func sameState(a, b string) bool {
	sa, sb := stopState(a), stopState(b)
	return sa != "" && sa == sb
}

func containsState(states []string, state string) bool {
	for _, s := range states {
		if strings.EqualFold(strings.TrimSpace(s), state) {
			return true
		}
	}
	return false
}
