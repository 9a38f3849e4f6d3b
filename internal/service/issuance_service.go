package service

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/spec-kit/meal-tickets/internal/clock"
	"github.com/spec-kit/meal-tickets/internal/domain"
	"github.com/spec-kit/meal-tickets/internal/events"
	"github.com/spec-kit/meal-tickets/internal/repository"
	"github.com/spec-kit/meal-tickets/pkg/util/errorutil"
)

// Batch bounds for a single issuance request.
const (
	MinIssueQuantity = 1
	MaxIssueQuantity = 5
)

// MaxTicketPrice is the largest price the tickets table can hold.
var MaxTicketPrice = decimal.New(999999999999, -2)

// IssuanceService creates tickets for existing owners.
type IssuanceService struct {
	tickets repository.TicketStore
	owners  repository.OwnerDirectory
	clock   clock.Clock
	logger  *zap.Logger
	publisher
}

// IssuanceDependencies bundles collaborators for the issuance service.
type IssuanceDependencies struct {
	TicketStore    repository.TicketStore
	OwnerDirectory repository.OwnerDirectory
	Dispatcher     events.Dispatcher
	Clock          clock.Clock
	Logger         *zap.Logger
}

// NewIssuanceService constructs the service.
func NewIssuanceService(deps IssuanceDependencies) *IssuanceService {
	c := orDefaultClock(deps.Clock)
	logger := orNopLogger(deps.Logger)
	return &IssuanceService{
		tickets:   deps.TicketStore,
		owners:    deps.OwnerDirectory,
		clock:     c,
		logger:    logger,
		publisher: publisher{dispatcher: deps.Dispatcher, clock: c, logger: logger},
	}
}

// CreateTickets issues quantity identical Available tickets to ownerID.
// Input is validated before any write.
func (s *IssuanceService) CreateTickets(ctx context.Context, ownerID string, price decimal.Decimal, quantity int) ([]TicketView, error) {
	if quantity < MinIssueQuantity || quantity > MaxIssueQuantity {
		return nil, errorutil.NewInvalidQuantity(quantity, MinIssueQuantity, MaxIssueQuantity)
	}
	// Prices are stored with two decimals.
	price = price.Round(2)
	if price.IsNegative() || price.GreaterThan(MaxTicketPrice) {
		return nil, errorutil.NewInvalidPrice(price.String(), MaxTicketPrice.StringFixed(2))
	}

	owner, err := s.owners.FindByID(ctx, ownerID)
	if err != nil {
		if errors.Is(err, repository.ErrOwnerNotFound) {
			return nil, errorutil.NewOwnerNotFound(map[string]any{"owner_id": ownerID})
		}
		return nil, errorutil.NewInternalError(err)
	}

	issuedAt := s.clock.Now()
	batch := make([]domain.Ticket, quantity)
	for i := range batch {
		batch[i] = domain.Ticket{
			OwnerID:  owner.ID,
			Price:    price,
			Status:   domain.TicketStatusAvailable,
			IssuedAt: issuedAt,
		}
	}

	stored, err := s.persist(ctx, batch)
	if err != nil {
		var partial *repository.PartialBatchError
		switch {
		case errors.As(err, &partial):
			s.logger.Error("partial ticket batch persisted",
				zap.String("owner_id", owner.ID),
				zap.Int("requested", quantity),
				zap.Strings("stored_ids", partial.StoredIDs),
				zap.Error(err))
		case errors.Is(err, repository.ErrOwnerNotFound):
			return nil, errorutil.NewOwnerNotFound(map[string]any{"owner_id": ownerID})
		case errors.Is(err, repository.ErrPriceOutOfRange):
			return nil, errorutil.NewInvalidPrice(price.String(), MaxTicketPrice.StringFixed(2))
		}
		return nil, errorutil.NewInternalError(err)
	}

	views := make([]TicketView, 0, len(stored))
	ids := make([]string, 0, len(stored))
	for _, t := range stored {
		views = append(views, newTicketView(t, owner))
		ids = append(ids, t.ID)
	}

	s.publishEvent(ctx, events.Event{
		Type:    events.EventTicketsIssued,
		OwnerID: owner.ID,
		Payload: events.TicketsIssuedPayload{TicketIDs: ids, Price: stored[0].Price, IssuedAt: issuedAt},
	})
	return views, nil
}

func (s *IssuanceService) persist(ctx context.Context, batch []domain.Ticket) ([]domain.Ticket, error) {
	if len(batch) == 1 {
		t, err := s.tickets.Insert(ctx, batch[0])
		if err != nil {
			return nil, err
		}
		return []domain.Ticket{t}, nil
	}
	return s.tickets.InsertBatch(ctx, batch)
}
