package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/meal-tickets/internal/clock"
	"github.com/spec-kit/meal-tickets/internal/domain"
	"github.com/spec-kit/meal-tickets/internal/events"
	"github.com/spec-kit/meal-tickets/internal/observability"
	"github.com/spec-kit/meal-tickets/internal/repository"
	"github.com/spec-kit/meal-tickets/pkg/util/errorutil"
)

// ConsumptionService claims an owner's oldest available ticket.
type ConsumptionService struct {
	tickets repository.TicketStore
	owners  repository.OwnerDirectory
	clock   clock.Clock
	metrics *observability.Metrics
	publisher
}

// ConsumptionDependencies bundles collaborators for the consumption service.
type ConsumptionDependencies struct {
	TicketStore    repository.TicketStore
	OwnerDirectory repository.OwnerDirectory
	Dispatcher     events.Dispatcher
	Clock          clock.Clock
	Metrics        *observability.Metrics
	Logger         *zap.Logger
}

// NewConsumptionService constructs the service.
func NewConsumptionService(deps ConsumptionDependencies) *ConsumptionService {
	c := orDefaultClock(deps.Clock)
	return &ConsumptionService{
		tickets:   deps.TicketStore,
		owners:    deps.OwnerDirectory,
		clock:     c,
		metrics:   deps.Metrics,
		publisher: publisher{dispatcher: deps.Dispatcher, clock: c, logger: orNopLogger(deps.Logger)},
	}
}

// ConsumeOldest marks the owner's oldest Available ticket as Used. An unknown
// email fails with OWNER_NOT_FOUND; an owner with nothing left fails with
// NO_AVAILABLE_TICKET. Concurrent calls never receive the same ticket.
func (s *ConsumptionService) ConsumeOldest(ctx context.Context, ownerEmail string) (TicketView, error) {
	email := strings.TrimSpace(ownerEmail)
	if email == "" {
		return TicketView{}, errorutil.NewValidationError("email required", nil)
	}

	owner, err := s.owners.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrOwnerNotFound) {
			s.metrics.RecordConsumption(observability.OutcomeOwnerNotFound)
			return TicketView{}, errorutil.NewOwnerNotFound(map[string]any{"email": email})
		}
		s.metrics.RecordConsumption(observability.OutcomeError)
		return TicketView{}, errorutil.NewInternalError(err)
	}

	usedAt := s.clock.Now()
	claimed, err := s.tickets.TryClaim(ctx, owner.ID, domain.TicketStatusAvailable, domain.TicketStatusUsed, &usedAt)
	if err != nil {
		s.metrics.RecordConsumption(observability.OutcomeError)
		return TicketView{}, errorutil.NewInternalError(err)
	}
	if claimed == nil {
		s.metrics.RecordConsumption(observability.OutcomeNoTicket)
		return TicketView{}, errorutil.NewNoAvailableTicket(map[string]any{"email": email})
	}

	payload := events.TicketConsumedPayload{
		TicketID: claimed.ID,
		Price:    claimed.Price,
		IssuedAt: claimed.IssuedAt,
		UsedAt:   usedAt,
	}
	if claimed.UsedAt != nil {
		payload.UsedAt = *claimed.UsedAt
	}
	s.publishEvent(ctx, events.Event{
		Type:    events.EventTicketConsumed,
		OwnerID: owner.ID,
		Payload: payload,
	})
	return newTicketView(*claimed, owner), nil
}
