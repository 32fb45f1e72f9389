package matching

import (
	"context"

	"github.com/loadlane/auction-service/internal/model"
)

// EventBridge connects lifecycle events to the dispatcher and processor.
// Every hook returns immediately; the work runs in its own goroutine so
// creation and award never block on notification fan-out.
type EventBridge struct {
	dispatcher *Dispatcher
	processor  *Processor
}

func NewEventBridge(dispatcher *Dispatcher, processor *Processor) *EventBridge {
	return &EventBridge{dispatcher: dispatcher, processor: processor}
}

func (b *EventBridge) AuctionCreated(auction model.Auction) {
	go b.dispatcher.Dispatch(context.Background(), auction)
}

func (b *EventBridge) AuctionAwarded(auction model.Auction, award model.Award) {
	go b.processor.NotifyAuctionAwarded(context.Background(), auction, award)
}

func (b *EventBridge) OfferSubmitted(auction model.Auction, offer model.Offer) {
	go b.processor.NotifyOfferSubmitted(context.Background(), auction, offer)
}
