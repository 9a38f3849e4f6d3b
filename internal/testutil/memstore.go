package testutil

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/meal-tickets/internal/domain"
	"github.com/spec-kit/meal-tickets/internal/repository"
)

// MemoryTicketStore is a mutex-guarded TicketStore for service and handler tests.
type MemoryTicketStore struct {
	mu      sync.Mutex
	tickets []domain.Ticket

	// FindErr, when set, is returned by FindMatching and Summarize.
	FindErr error
	// ClaimErr, when set, is returned by TryClaim.
	ClaimErr error

	batchFailAfter int
	batchErr       error
}

func NewMemoryTicketStore() *MemoryTicketStore {
	return &MemoryTicketStore{batchFailAfter: -1}
}

// FailBatchAfter makes the next InsertBatch store n tickets and then fail with err.
func (s *MemoryTicketStore) FailBatchAfter(n int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batchFailAfter = n
	s.batchErr = err
}

func (s *MemoryTicketStore) Insert(_ context.Context, t domain.Ticket) (domain.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertLocked(t), nil
}

func (s *MemoryTicketStore) InsertBatch(_ context.Context, tickets []domain.Ticket) ([]domain.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := make([]domain.Ticket, 0, len(tickets))
	for i, t := range tickets {
		if s.batchFailAfter >= 0 && i == s.batchFailAfter {
			ids := make([]string, 0, len(stored))
			for _, st := range stored {
				ids = append(ids, st.ID)
			}
			err := &repository.PartialBatchError{Requested: len(tickets), StoredIDs: ids, Err: s.batchErr}
			s.batchFailAfter, s.batchErr = -1, nil
			return nil, err
		}
		stored = append(stored, s.insertLocked(t))
	}
	return stored, nil
}

func (s *MemoryTicketStore) insertLocked(t domain.Ticket) domain.Ticket {
	t.ID = uuid.NewString()
	s.tickets = append(s.tickets, t)
	return t
}

func (s *MemoryTicketStore) FindMatching(_ context.Context, pred repository.TicketPredicate) ([]domain.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FindErr != nil {
		return nil, s.FindErr
	}
	return s.matchLocked(pred), nil
}

func (s *MemoryTicketStore) TryClaim(_ context.Context, ownerID string, from, to domain.TicketStatus, usedAt *time.Time) (*domain.Ticket, error) {
	if err := repository.ValidateTransition(from, to, usedAt); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ClaimErr != nil {
		return nil, s.ClaimErr
	}

	oldest := -1
	for i, t := range s.tickets {
		if t.OwnerID != ownerID || t.Status != from {
			continue
		}
		if oldest < 0 || t.IssuedAt.Before(s.tickets[oldest].IssuedAt) {
			oldest = i
		}
	}
	if oldest < 0 {
		return nil, nil
	}
	claimed := &s.tickets[oldest]
	claimed.Status = to
	if usedAt != nil {
		u := *usedAt
		claimed.UsedAt = &u
	}
	out := *claimed
	return &out, nil
}

func (s *MemoryTicketStore) Summarize(_ context.Context, pred repository.TicketPredicate) (domain.TicketStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FindErr != nil {
		return domain.TicketStats{}, s.FindErr
	}
	var stats domain.TicketStats
	for _, t := range s.matchLocked(pred) {
		stats.Add(t)
	}
	return stats, nil
}

// Snapshot returns a copy of every stored ticket in insertion order.
func (s *MemoryTicketStore) Snapshot() []domain.Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Ticket(nil), s.tickets...)
}

// Len reports how many tickets are stored.
func (s *MemoryTicketStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tickets)
}

func (s *MemoryTicketStore) matchLocked(pred repository.TicketPredicate) []domain.Ticket {
	out := []domain.Ticket{}
	for _, t := range s.tickets {
		if pred.OwnerID != nil && t.OwnerID != *pred.OwnerID {
			continue
		}
		if pred.Status != nil && t.Status != *pred.Status {
			continue
		}
		if pred.IssuedFrom != nil && t.IssuedAt.Before(*pred.IssuedFrom) {
			continue
		}
		if pred.IssuedTo != nil && t.IssuedAt.After(*pred.IssuedTo) {
			continue
		}
		out = append(out, t)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].IssuedAt.Before(out[j].IssuedAt) })
	return out
}

// MemoryOwnerDirectory is an in-memory OwnerDirectory that counts lookups.
type MemoryOwnerDirectory struct {
	mu     sync.Mutex
	owners map[string]domain.Owner
	calls  int
}

func NewMemoryOwnerDirectory() *MemoryOwnerDirectory {
	return &MemoryOwnerDirectory{owners: map[string]domain.Owner{}}
}

// Add registers an owner with a fresh id.
func (d *MemoryOwnerDirectory) Add(name, email string) domain.Owner {
	d.mu.Lock()
	defer d.mu.Unlock()
	owner := domain.Owner{ID: uuid.NewString(), Name: name, Email: email}
	d.owners[owner.ID] = owner
	return owner
}

// Remove forgets an owner, leaving its tickets orphaned.
func (d *MemoryOwnerDirectory) Remove(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.owners, id)
}

// Calls reports how many lookups were served.
func (d *MemoryOwnerDirectory) Calls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

func (d *MemoryOwnerDirectory) FindByID(_ context.Context, id string) (domain.Owner, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	owner, ok := d.owners[id]
	if !ok {
		return domain.Owner{}, repository.ErrOwnerNotFound
	}
	return owner, nil
}

func (d *MemoryOwnerDirectory) FindByEmail(_ context.Context, email string) (domain.Owner, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	for _, owner := range d.owners {
		if strings.EqualFold(owner.Email, strings.TrimSpace(email)) {
			return owner, nil
		}
	}
	return domain.Owner{}, repository.ErrOwnerNotFound
}
