package services

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrijs2005/todosync/internal/client/models"
	"github.com/dmitrijs2005/todosync/internal/client/store"
	"github.com/dmitrijs2005/todosync/internal/logging"
	"github.com/google/uuid"
)

var (
	ErrEmptyText  = errors.New("todo text is empty")
	ErrNotFound   = errors.New("todo not found")
	ErrNotDeleted = errors.New("todo is not deleted")
)

// TodoService is the mutation API of the todo collection. Every operation
// only writes the local store; the sync engine picks the change up from
// there.
type TodoService interface {
	Add(ctx context.Context, text string) (models.Todo, error)
	Edit(ctx context.Context, id, text string) (models.Todo, error)
	ToggleDone(ctx context.Context, id string) (models.Todo, error)
	SoftDelete(ctx context.Context, id string) (models.Todo, error)
	Restore(ctx context.Context, id string) (models.Todo, error)
	HardDelete(ctx context.Context, id string) error
	Active(ctx context.Context) []models.Todo
	All(ctx context.Context) []models.Todo
	Get(ctx context.Context, id string) (models.Todo, error)
}

type todoService struct {
	store  *store.Store
	logger logging.Logger
	now    func() time.Time
	newID  func() string
}

type Option func(*todoService)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *todoService) { s.now = now }
}

// WithIDGenerator overrides uuid.NewString.
func WithIDGenerator(f func() string) Option {
	return func(s *todoService) { s.newID = f }
}

func NewTodoService(st *store.Store, logger logging.Logger, opts ...Option) TodoService {
	s := &todoService{
		store:  st,
		logger: logger.With("module", "todos"),
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *todoService) Add(ctx context.Context, text string) (models.Todo, error) {
	text = models.NormalizeText(text)
	if text == "" {
		return models.Todo{}, ErrEmptyText
	}

	now := s.now().UTC().Truncate(models.TimestampPrecision)
	t := models.Todo{
		ID:        s.newID(),
		Text:      text,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.store.Assign(t, models.OriginLocal)

	s.logger.Debug(ctx, "todo added", "id", t.ID)
	return t, nil
}

func (s *todoService) Edit(ctx context.Context, id, text string) (models.Todo, error) {
	text = models.NormalizeText(text)
	if text == "" {
		return models.Todo{}, ErrEmptyText
	}
	return s.mutate(ctx, "edit", id, func(cur models.Todo) (models.Patch, error) {
		return models.Patch{Text: &text}, nil
	})
}

func (s *todoService) ToggleDone(ctx context.Context, id string) (models.Todo, error) {
	return s.mutate(ctx, "toggle", id, func(cur models.Todo) (models.Patch, error) {
		return models.Patch{Done: models.Ptr(!cur.Done)}, nil
	})
}

func (s *todoService) SoftDelete(ctx context.Context, id string) (models.Todo, error) {
	return s.mutate(ctx, "soft delete", id, func(cur models.Todo) (models.Patch, error) {
		return models.Patch{Deleted: models.Ptr(true)}, nil
	})
}

func (s *todoService) Restore(ctx context.Context, id string) (models.Todo, error) {
	return s.mutate(ctx, "restore", id, func(cur models.Todo) (models.Patch, error) {
		if !cur.Deleted {
			return models.Patch{}, ErrNotDeleted
		}
		return models.Patch{Deleted: models.Ptr(false)}, nil
	})
}

func (s *todoService) HardDelete(ctx context.Context, id string) error {
	if !s.store.Delete(id, models.OriginLocal) {
		return ErrNotFound
	}
	s.logger.Debug(ctx, "todo purged", "id", id)
	return nil
}

func (s *todoService) Active(ctx context.Context) []models.Todo {
	return s.store.Active()
}

func (s *todoService) All(ctx context.Context) []models.Todo {
	m := s.store.Get()
	out := make([]models.Todo, 0, len(m))
	for _, t := range m {
		out = append(out, t)
	}
	store.SortByCreated(out)
	return out
}

func (s *todoService) Get(ctx context.Context, id string) (models.Todo, error) {
	t, ok := s.store.Lookup(id)
	if !ok {
		return models.Todo{}, ErrNotFound
	}
	return t, nil
}

// mutate applies the patch built by fn and bumps updatedAt, all against a
// single consistent read of the item.
func (s *todoService) mutate(ctx context.Context, op, id string, fn func(cur models.Todo) (models.Patch, error)) (models.Todo, error) {
	var fnErr error

	next, m := s.store.Update(id, func(cur models.Todo, ok bool) (models.Todo, store.Mutation) {
		if !ok {
			fnErr = ErrNotFound
			return cur, store.Skip
		}
		p, err := fn(cur)
		if err != nil {
			fnErr = err
			return cur, store.Skip
		}
		p.UpdatedAt = models.Ptr(models.NextUpdatedAt(cur.UpdatedAt, s.now()))
		return p.Apply(cur), store.Put
	}, models.OriginLocal)

	if fnErr != nil {
		return models.Todo{}, fnErr
	}
	if m != store.Put {
		return models.Todo{}, ErrNotFound
	}

	s.logger.Debug(ctx, "todo "+op, "id", id, "updated_at", next.UpdatedAt)
	return next, nil
}
