package matching

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/peterldowns/testy/check"
	"github.com/rs/zerolog"

	"github.com/loadlane/auction-service/internal/model"
	"github.com/loadlane/auction-service/internal/window"
)

var (
	carrierA = uuid.MustParse("11111111-1111-1111-1111-111111111111")
	carrierB = uuid.MustParse("22222222-2222-2222-2222-222222222222")
)

type fakeTriggerSource struct {
	triggers []model.Trigger
}

func (f *fakeTriggerSource) ListActive(context.Context) ([]model.Trigger, error) {
	return f.triggers, nil
}

type fakePreferenceSource struct {
	prefs     []model.Preferences
	favorites []model.FavoriteRef
}

func (f *fakePreferenceSource) ListStatePreferenceCarriers(context.Context) ([]model.Preferences, error) {
	return f.prefs, nil
}

func (f *fakePreferenceSource) ListAllFavorites(context.Context) ([]model.FavoriteRef, error) {
	return f.favorites, nil
}

type enqueuedJob struct {
	lane model.Lane
	job  model.NotificationJob
}

type fakeQueue struct {
	jobs []enqueuedJob
	full bool
}

func (f *fakeQueue) Enqueue(lane model.Lane, job model.NotificationJob) bool {
	if f.full {
		return false
	}
	f.jobs = append(f.jobs, enqueuedJob{lane: lane, job: job})
	return true
}

func (f *fakeQueue) jobFor(carrierID uuid.UUID) (enqueuedJob, bool) {
	for _, e := range f.jobs {
		if e.job.CarrierID == carrierID {
			return e, true
		}
	}
	return enqueuedJob{}, false
}

func newTestDispatcher(triggers *fakeTriggerSource, prefs *fakePreferenceSource, queue *fakeQueue, now time.Time) *Dispatcher {
	d := NewDispatcher(triggers, prefs, queue, window.Default(), zerolog.Nop())
	d.now = func() time.Time { return now }
	return d
}

func openAuction(number string, stops []string, receivedAt time.Time) model.Auction {
	return model.Auction{
		AuctionNumber: number,
		Stops:         stops,
		DistanceMiles: 800,
		Tag:           "IL",
		ReceivedAt:    receivedAt,
	}
}

func TestDispatch_SkipsExpiredAuction(t *testing.T) {
	now := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)
	queue := &fakeQueue{}
	triggers := &fakeTriggerSource{triggers: []model.Trigger{
		{ID: 1, CarrierID: carrierA, Type: model.TriggerNewRoute, Active: true},
	}}
	d := newTestDispatcher(triggers, &fakePreferenceSource{}, queue, now)

	d.Dispatch(context.Background(), openAuction("AUC-1", []string{"Chicago, IL", "Dallas, TX"}, now.Add(-time.Hour)))

	check.Equal(t, 0, len(queue.jobs))
}

func TestDispatch_BundlesTriggersPerCarrier(t *testing.T) {
	now := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)
	queue := &fakeQueue{}
	triggers := &fakeTriggerSource{triggers: []model.Trigger{
		{ID: 1, CarrierID: carrierA, Type: model.TriggerNewRoute, Active: true},
		{ID: 2, CarrierID: carrierA, Type: model.TriggerDeadlineApproaching, Active: true},
		{ID: 3, CarrierID: carrierB, Type: model.TriggerNewRoute, Active: true},
	}}
	d := newTestDispatcher(triggers, &fakePreferenceSource{}, queue, now)

	d.Dispatch(context.Background(), openAuction("AUC-1", []string{"Chicago, IL", "Dallas, TX"}, now))

	check.Equal(t, 2, len(queue.jobs))

	jobA, ok := queue.jobFor(carrierA)
	check.True(t, ok)
	check.Equal(t, 2, len(jobA.job.Triggers))
	check.Equal(t, model.LaneUrgent, jobA.lane) // deadline_approaching in the mix

	jobB, ok := queue.jobFor(carrierB)
	check.True(t, ok)
	check.Equal(t, model.LaneStandard, jobB.lane)
}

func TestDispatch_SynthesizesStatePreferenceTrigger(t *testing.T) {
	now := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)
	queue := &fakeQueue{}
	prefs := &fakePreferenceSource{prefs: []model.Preferences{
		{CarrierID: carrierA, SimilarLoadAlerts: true, StatePreferences: []string{"IL", "TX"}, DistanceThresholdMiles: 50},
		{CarrierID: carrierB, SimilarLoadAlerts: true, StatePreferences: []string{"CA"}, DistanceThresholdMiles: 50},
	}}
	d := newTestDispatcher(&fakeTriggerSource{}, prefs, queue, now)

	d.Dispatch(context.Background(), openAuction("AUC-1", []string{"Chicago, IL", "Dallas, TX"}, now))

	check.Equal(t, 1, len(queue.jobs))
	job, ok := queue.jobFor(carrierA)
	check.True(t, ok)
	check.Equal(t, model.TriggerSimilarLoad, job.job.Triggers[0].Type)
	check.True(t, job.job.Triggers[0].Virtual())
	check.Equal(t, []string{"IL", "TX"}, job.job.Triggers[0].Config.StatePreferences)
}

func TestDispatch_SynthesizesFavoriteTrigger(t *testing.T) {
	now := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)
	queue := &fakeQueue{}
	favorite := openAuction("AUC-OLD", []string{"Chicago, IL", "Dallas, TX"}, now.Add(-48*time.Hour))
	prefs := &fakePreferenceSource{favorites: []model.FavoriteRef{
		{CarrierID: carrierA, Auction: favorite, PrioritizeBackhaul: true},
	}}
	d := newTestDispatcher(&fakeTriggerSource{}, prefs, queue, now)

	// reverse direction of the saved lane
	d.Dispatch(context.Background(), openAuction("AUC-2", []string{"Dallas, TX", "Chicago, IL"}, now))

	job, ok := queue.jobFor(carrierA)
	check.True(t, ok)
	check.Equal(t, model.LaneUrgent, job.lane)
	trigger := job.job.Triggers[0]
	check.Equal(t, model.TriggerExactMatch, trigger.Type)
	check.Equal(t, "AUC-OLD", trigger.Config.FavoriteAuctionNumber)
	check.True(t, trigger.Config.BackhaulEnabled)
}

func TestClassifyFavoriteMatch(t *testing.T) {
	favorite := openAuction("F", []string{"Chicago, IL", "Dallas, TX"}, time.Time{})

	kind, backhaul, ok := classifyFavoriteMatch(favorite, openAuction("A", []string{"Chicago, IL", "Dallas, TX"}, time.Time{}), false)
	check.True(t, ok)
	check.Equal(t, model.MatchKindExact, kind)
	check.False(t, backhaul)

	kind, backhaul, ok = classifyFavoriteMatch(favorite, openAuction("A", []string{"Dallas, TX", "Chicago, IL"}, time.Time{}), true)
	check.True(t, ok)
	check.Equal(t, model.MatchKindExact, kind)
	check.True(t, backhaul)

	// reverse lane without backhaul opt-in is not a match
	_, _, ok = classifyFavoriteMatch(favorite, openAuction("A", []string{"Dallas, TX", "Chicago, IL"}, time.Time{}), false)
	check.False(t, ok)

	// same states, different cities
	kind, backhaul, ok = classifyFavoriteMatch(favorite, openAuction("A", []string{"Springfield, IL", "Austin, TX"}, time.Time{}), false)
	check.True(t, ok)
	check.Equal(t, model.MatchKindState, kind)
	check.False(t, backhaul)

	_, _, ok = classifyFavoriteMatch(favorite, openAuction("A", []string{"Denver, CO", "Seattle, WA"}, time.Time{}), true)
	check.False(t, ok)
}

func TestLaneFor_CoversEveryTriggerType(t *testing.T) {
	for _, typ := range model.KnownTriggerTypes {
		lane := laneFor([]model.Trigger{{Type: typ}})
		if typ == model.TriggerExactMatch || typ == model.TriggerDeadlineApproaching {
			check.Equal(t, model.LaneUrgent, lane)
		} else {
			check.Equal(t, model.LaneStandard, lane)
		}
	}
}
