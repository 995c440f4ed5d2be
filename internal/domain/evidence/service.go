package evidence

import (
	"context"
	"sync"
	"time"

	"github.com/appraisehub/valuation-platform/internal/infrastructure/monitoring/logging"
	"github.com/appraisehub/valuation-platform/pkg/errors"
	"github.com/appraisehub/valuation-platform/pkg/types/common"
)

// ─────────────────────────────────────────────────────────────────────────────
// Collaborator contracts
// ─────────────────────────────────────────────────────────────────────────────

// PropertyLocker serializes work against one property.  Operations on
// different properties are fully independent and may run in parallel; the
// selection/classification/compile sequence for one property must read a
// consistent snapshot.
type PropertyLocker interface {
	// WithLock runs fn while holding the lock for the given property.
	WithLock(ctx context.Context, address common.PropertyAddress, fn func(ctx context.Context) error) error
}

// ChangePublisher is notified after a property's evidence set (and therefore
// its comparable selection) has changed.  Implementations must tolerate being
// called frequently; delivery failures are logged, never propagated, because
// the mutation has already committed.
type ChangePublisher interface {
	PublishEvidenceChanged(ctx context.Context, address common.PropertyAddress, set *ComparableSet) error
}

// ─────────────────────────────────────────────────────────────────────────────
// MutexLocker — in-process PropertyLocker
// ─────────────────────────────────────────────────────────────────────────────

// MutexLocker implements PropertyLocker with one mutex per property address.
// It is the single-process default; a Redis-backed implementation provides the
// same contract across replicas.
type MutexLocker struct {
	mu    sync.Mutex
	locks map[common.PropertyAddress]*sync.Mutex
}

// NewMutexLocker constructs an empty MutexLocker.
func NewMutexLocker() *MutexLocker {
	return &MutexLocker{locks: make(map[common.PropertyAddress]*sync.Mutex)}
}

func (m *MutexLocker) lockFor(address common.PropertyAddress) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[address]
	if !ok {
		l = &sync.Mutex{}
		m.locks[address] = l
	}
	return l
}

// WithLock implements PropertyLocker.
func (m *MutexLocker) WithLock(ctx context.Context, address common.PropertyAddress, fn func(ctx context.Context) error) error {
	l := m.lockFor(address)
	l.Lock()
	defer l.Unlock()
	return fn(ctx)
}

// ─────────────────────────────────────────────────────────────────────────────
// Service — the Evidence Store façade
// ─────────────────────────────────────────────────────────────────────────────

// Service owns evidence mutation and guarantees the recomputation side effect:
// every create/update/delete is followed — before the result is observable by
// any caller — by a selection pass that rewrites the property's is_comparable
// flags.  Callers must treat each mutating call as a single atomic unit
// including that side effect.
type Service struct {
	repo     Repository
	selector *Selector
	locker   PropertyLocker
	events   ChangePublisher // optional
	log      logging.Logger
	now      func() time.Time
}

// NewService constructs an evidence Service.  events may be nil when no
// downstream consumer exists (tests, CLI offline mode).
func NewService(repo Repository, selector *Selector, locker PropertyLocker,
	events ChangePublisher, log logging.Logger) *Service {
	if selector == nil {
		selector = NewSelector()
	}
	if locker == nil {
		locker = NewMutexLocker()
	}
	return &Service{
		repo:     repo,
		selector: selector,
		locker:   locker,
		events:   events,
		log:      log.Named("evidence"),
		now:      time.Now,
	}
}

// WithClock replaces the service's time source.  Tests use this to keep audit
// timestamps deterministic.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Submit validates and stores a new evidence record, then recomputes the
// property's comparable selection.  Returns the stored record with its
// assigned sequence.
func (s *Service) Submit(ctx context.Context, r *Record) (*Record, error) {
	if r == nil {
		return nil, errors.InvalidParam("evidence record is required")
	}
	if r.ID.IsZero() {
		r.ID = common.NewID()
	}
	now := s.now()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
		r.UpdatedAt = now
		r.Version = 1
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}

	var stored *Record
	err := s.locker.WithLock(ctx, r.PropertyAddress, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, r); err != nil {
			return err
		}
		stored = r
		return s.recompute(ctx, r.PropertyAddress)
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("evidence submitted",
		logging.String("property", stored.PropertyAddress.String()),
		logging.String("id", stored.ID.String()),
		logging.String("status", string(stored.Status)))
	return stored.Clone(), nil
}

// Update applies a patch to an existing record and recomputes the selection.
func (s *Service) Update(ctx context.Context, id common.ID, patch *Record) (*Record, error) {
	if patch == nil {
		return nil, errors.InvalidParam("evidence patch is required")
	}
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	// A record may not migrate between properties through an update; that
	// would silently detach it from its selection scope.
	if patch.PropertyAddress != "" && patch.PropertyAddress != current.PropertyAddress {
		return nil, errors.New(errors.ErrCodeEvidenceInvalid,
			"property_address of an existing record cannot change")
	}
	patch.PropertyAddress = current.PropertyAddress

	var updated *Record
	err = s.locker.WithLock(ctx, current.PropertyAddress, func(ctx context.Context) error {
		if err := current.ApplyPatch(patch, s.now()); err != nil {
			return err
		}
		if err := s.repo.Update(ctx, current); err != nil {
			return err
		}
		updated = current
		return s.recompute(ctx, current.PropertyAddress)
	})
	if err != nil {
		return nil, err
	}
	return updated.Clone(), nil
}

// Remove deletes a record and recomputes the selection for its property.
func (s *Service) Remove(ctx context.Context, id common.ID) error {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return s.locker.WithLock(ctx, current.PropertyAddress, func(ctx context.Context) error {
		if err := s.repo.Delete(ctx, id); err != nil {
			return err
		}
		return s.recompute(ctx, current.PropertyAddress)
	})
}

// List returns the property's records ordered by transaction date descending.
func (s *Service) List(ctx context.Context, address common.PropertyAddress) ([]*Record, error) {
	if address == "" {
		return nil, errors.InvalidParam("property address is required")
	}
	return s.repo.ListByProperty(ctx, address)
}

// CurrentSet returns the property's current comparable selection without
// mutating anything.
func (s *Service) CurrentSet(ctx context.Context, address common.PropertyAddress) (*ComparableSet, error) {
	records, err := s.repo.ListByProperty(ctx, address)
	if err != nil {
		return nil, err
	}
	return s.selector.Select(records), nil
}

// recompute reruns selection for the property and rewrites the is_comparable
// flags in one repository call.  It runs inside the property lock, so the
// flags a caller observes after any mutating operation are always consistent
// with the record set it just changed.
func (s *Service) recompute(ctx context.Context, address common.PropertyAddress) error {
	records, err := s.repo.ListByProperty(ctx, address)
	if err != nil {
		return err
	}
	set := s.selector.Select(records)

	// No minimum: the selection is empty and every flag is cleared.
	if err := s.repo.SetComparableFlags(ctx, address, set.IDs()); err != nil {
		return err
	}

	if s.events != nil {
		if err := s.events.PublishEvidenceChanged(ctx, address, set); err != nil {
			// The mutation has committed; a lost event must not fail it.
			s.log.Warn("evidence change event not delivered",
				logging.String("property", address.String()),
				logging.Err(err))
		}
	}
	return nil
}
