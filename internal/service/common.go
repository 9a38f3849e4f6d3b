package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/meal-tickets/internal/clock"
	"github.com/spec-kit/meal-tickets/internal/domain"
	"github.com/spec-kit/meal-tickets/internal/events"
	"github.com/spec-kit/meal-tickets/internal/repository"
	"github.com/spec-kit/meal-tickets/pkg/util/errorutil"
)

// publisher emits events after committed writes. Publication failures are
// logged and never fail the caller.
type publisher struct {
	dispatcher events.Dispatcher
	clock      clock.Clock
	logger     *zap.Logger
}

func (p publisher) publishEvent(ctx context.Context, event events.Event) {
	if p.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = p.clock.Now()
	}
	if err := p.dispatcher.Publish(ctx, event); err != nil {
		p.logger.Warn("event publication failed",
			zap.String("event_type", string(event.Type)),
			zap.String("event_id", event.ID),
			zap.Error(err))
	}
}

func orDefaultClock(c clock.Clock) clock.Clock {
	if c == nil {
		return clock.New()
	}
	return c
}

func orNopLogger(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}

// ownerCache memoizes directory lookups by owner id for one call, so joining
// n tickets costs one lookup per distinct owner.
type ownerCache struct {
	dir   repository.OwnerDirectory
	known map[string]*domain.Owner
}

func newOwnerCache(dir repository.OwnerDirectory) *ownerCache {
	return &ownerCache{dir: dir, known: map[string]*domain.Owner{}}
}

// resolve returns the owner or nil when the directory has no such id.
func (c *ownerCache) resolve(ctx context.Context, id string) (*domain.Owner, error) {
	if owner, ok := c.known[id]; ok {
		return owner, nil
	}
	owner, err := c.dir.FindByID(ctx, id)
	switch {
	case err == nil:
		c.known[id] = &owner
		return &owner, nil
	case errors.Is(err, repository.ErrOwnerNotFound):
		c.known[id] = nil
		return nil, nil
	default:
		return nil, errorutil.Wrap(err, "resolve owner")
	}
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
