package notify

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/loadlane/auction-service/internal/model"
)

// LogSender is the in-process delivery channel: the log row written by the
// processor is the carrier-visible notification, and this sender only emits
// an operational trace. Push or email delivery would slot in behind the same
// Sender interface.
type LogSender struct {
	log zerolog.Logger
}

func NewLogSender(log zerolog.Logger) *LogSender {
	return &LogSender{log: log}
}

func (s *LogSender) Send(_ context.Context, entry model.NotificationLog) error {
	s.log.Info().
		Str("recipient_id", entry.RecipientID.String()).
		Str("auction_number", entry.AuctionNumber).
		Str("type", string(entry.Type)).
		Str("lane", string(entry.Lane)).
		Msg("notification delivered")
	return nil
}
