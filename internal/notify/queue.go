// Package notify carries queued notification jobs from the dispatcher to the
// workers. Two buffered channels form the urgent and standard lanes; a full
// lane drops the job with a log line rather than blocking the request path.
package notify

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/loadlane/auction-service/internal/model"
)

// Sender delivers one notification. Delivery mechanics (email, push, in-app)
// live outside this service.
type Sender interface {
	Send(ctx context.Context, log model.NotificationLog) error
}

// Handler processes one dequeued job.
type Handler func(ctx context.Context, lane model.Lane, job model.NotificationJob)

type Queue struct {
	urgent   chan model.NotificationJob
	standard chan model.NotificationJob
	log      zerolog.Logger
}

func NewQueue(depth int, log zerolog.Logger) *Queue {
	if depth <= 0 {
		depth = 1024
	}
	return &Queue{
		urgent:   make(chan model.NotificationJob, depth),
		standard: make(chan model.NotificationJob, depth),
		log:      log,
	}
}

// Enqueue places the job on the given lane without blocking. Returns false
// when the lane is full and the job was dropped.
func (q *Queue) Enqueue(lane model.Lane, job model.NotificationJob) bool {
	ch := q.standard
	if lane == model.LaneUrgent {
		ch = q.urgent
	}
	select {
	case ch <- job:
		return true
	default:
		q.log.Warn().
			Str("lane", string(lane)).
			Str("job_id", job.JobID.String()).
			Str("auction_number", job.AuctionNumber).
			Msg("notification lane full, dropping job")
		return false
	}
}

// Run starts concurrency workers and blocks until ctx is cancelled. Each
// worker drains the urgent lane before taking standard work.
func (q *Queue) Run(ctx context.Context, concurrency int, handle Handler) {
	if concurrency <= 0 {
		concurrency = 1
	}
	done := make(chan struct{})
	for i := 0; i < concurrency; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			q.work(ctx, handle)
		}()
	}
	for i := 0; i < concurrency; i++ {
		<-done
	}
}

func (q *Queue) work(ctx context.Context, handle Handler) {
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-q.urgent:
			handle(ctx, model.LaneUrgent, job)
		default:
		}
		select {
		case <-ctx.Done():
			return
		case job := <-q.urgent:
			handle(ctx, model.LaneUrgent, job)
		case job := <-q.standard:
			handle(ctx, model.LaneStandard, job)
		}
	}
}
