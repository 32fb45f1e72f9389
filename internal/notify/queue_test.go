package notify

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/peterldowns/testy/check"
	"github.com/rs/zerolog"

	"github.com/loadlane/auction-service/internal/model"
)

func job(number string) model.NotificationJob {
	return model.NotificationJob{JobID: uuid.New(), AuctionNumber: number}
}

func TestEnqueue_DropsWhenLaneFull(t *testing.T) {
	q := NewQueue(2, zerolog.Nop())

	check.True(t, q.Enqueue(model.LaneStandard, job("AUC-1")))
	check.True(t, q.Enqueue(model.LaneStandard, job("AUC-2")))
	check.False(t, q.Enqueue(model.LaneStandard, job("AUC-3")))

	// lanes have independent capacity
	check.True(t, q.Enqueue(model.LaneUrgent, job("AUC-4")))
}

func TestRun_UrgentDrainsFirst(t *testing.T) {
	q := NewQueue(8, zerolog.Nop())

	for i := 0; i < 3; i++ {
		check.True(t, q.Enqueue(model.LaneStandard, job("STD")))
	}
	for i := 0; i < 3; i++ {
		check.True(t, q.Enqueue(model.LaneUrgent, job("URG")))
	}

	ctx, cancel := context.WithCancel(context.Background())

	var mu sync.Mutex
	var order []model.Lane
	handle := func(_ context.Context, lane model.Lane, _ model.NotificationJob) {
		mu.Lock()
		order = append(order, lane)
		if len(order) == 6 {
			cancel()
		}
		mu.Unlock()
	}

	// single worker so ordering is deterministic
	q.Run(ctx, 1, handle)

	mu.Lock()
	defer mu.Unlock()
	check.Equal(t, 6, len(order))
	for i := 0; i < 3; i++ {
		check.Equal(t, model.LaneUrgent, order[i])
	}
	for i := 3; i < 6; i++ {
		check.Equal(t, model.LaneStandard, order[i])
	}
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	q := NewQueue(1, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// returns promptly with nothing queued
	q.Run(ctx, 4, func(context.Context, model.Lane, model.NotificationJob) {})
}
