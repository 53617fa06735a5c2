package events

import (
	"context"

	"go.uber.org/zap"

	sharedEvents "github.com/davicafu/jobberlab/internal/shared/events"
	sharedBus "github.com/davicafu/jobberlab/internal/shared/infra/platform/bus"
)

type GigSeeder interface {
	SeedGigs(ctx context.Context, sellers []sharedEvents.SeedSeller) (int, error)
}

// SeedConsumer atiende jobber-seed-gig / receive-sellers.
type SeedConsumer struct {
	seeder GigSeeder
	log    *zap.Logger
}

func NewSeedConsumer(seeder GigSeeder, log *zap.Logger) *SeedConsumer {
	return &SeedConsumer{seeder: seeder, log: log}
}

func (c *SeedConsumer) Handler() sharedBus.MessageHandler {
	return sharedBus.JSONHandler(c.handle)
}

func (c *SeedConsumer) Start(ctx context.Context, sub sharedBus.Subscriber) error {
	return sub.Consume(ctx, sharedEvents.SeedGigBinding, c.Handler())
}

func (c *SeedConsumer) handle(ctx context.Context, msg sharedEvents.SeedGigs) error {
	n, err := c.seeder.SeedGigs(ctx, msg.Sellers)
	if err != nil {
		return err
	}
	c.log.Info("🌱 Gigs seeded", zap.Int("created", n))
	return nil
}
