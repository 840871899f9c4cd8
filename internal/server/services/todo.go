// Package services implements the server-side todo operations on top of a
// repository and publishes every committed change to the feed.
package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/todosync/internal/common"
	"github.com/dmitrijs2005/todosync/internal/logging"
	"github.com/dmitrijs2005/todosync/internal/server/auth"
	"github.com/dmitrijs2005/todosync/internal/server/models"
	"github.com/dmitrijs2005/todosync/internal/server/repositories/todos"
)

// Publisher receives committed changes.
type Publisher interface {
	Publish(ev models.ChangeEvent)
}

type TodoService interface {
	Select(ctx context.Context, who auth.Identity, since time.Time) ([]models.Todo, error)
	Insert(ctx context.Context, who auth.Identity, t models.Todo) (models.Todo, models.WriteResult, error)
	Update(ctx context.Context, who auth.Identity, t models.Todo) (models.Todo, models.WriteResult, error)
	Delete(ctx context.Context, who auth.Identity, id string) (bool, error)
}

type todoService struct {
	repo      todos.Repository
	publisher Publisher
	logger    logging.Logger
	now       func() time.Time
}

func NewTodoService(repo todos.Repository, publisher Publisher, logger logging.Logger) TodoService {
	return &todoService{
		repo:      repo,
		publisher: publisher,
		logger:    logger.With("module", "todo_service"),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func validate(t models.Todo) error {
	switch {
	case strings.TrimSpace(t.ID) == "":
		return fmt.Errorf("%w: empty id", common.ErrorValidation)
	case strings.TrimSpace(t.Text) == "":
		return fmt.Errorf("%w: empty text", common.ErrorValidation)
	case t.UpdatedAt.IsZero():
		return fmt.Errorf("%w: missing updated_at", common.ErrorValidation)
	}
	return nil
}

func (s *todoService) Select(ctx context.Context, who auth.Identity, since time.Time) ([]models.Todo, error) {
	rows, err := s.repo.SelectSince(ctx, who.UserID, since)
	if err != nil {
		s.logger.Error(ctx, "select failed", "user", who.UserID, "error", err)
		return nil, err
	}
	return rows, nil
}

func (s *todoService) Insert(ctx context.Context, who auth.Identity, t models.Todo) (models.Todo, models.WriteResult, error) {
	if err := validate(t); err != nil {
		return models.Todo{}, models.Stale, err
	}
	t.UserID = who.UserID
	if t.CreatedAt.IsZero() {
		t.CreatedAt = t.UpdatedAt
	}

	row, res, err := s.repo.Upsert(ctx, t)
	if err != nil {
		s.logger.Error(ctx, "insert failed", "user", who.UserID, "id", t.ID, "error", err)
		return models.Todo{}, models.Stale, err
	}

	switch res {
	case models.Inserted:
		s.publish(who, models.EventInsert, row)
	case models.Updated:
		s.publish(who, models.EventUpdate, row)
	}
	return row, res, nil
}

func (s *todoService) Update(ctx context.Context, who auth.Identity, t models.Todo) (models.Todo, models.WriteResult, error) {
	if err := validate(t); err != nil {
		return models.Todo{}, models.Stale, err
	}
	t.UserID = who.UserID

	row, res, err := s.repo.Update(ctx, t)
	if err != nil {
		return models.Todo{}, models.Stale, err
	}
	if res.Applied() {
		s.publish(who, models.EventUpdate, row)
	}
	return row, res, nil
}

func (s *todoService) Delete(ctx context.Context, who auth.Identity, id string) (bool, error) {
	if strings.TrimSpace(id) == "" {
		return false, fmt.Errorf("%w: empty id", common.ErrorValidation)
	}

	existed, err := s.repo.Delete(ctx, who.UserID, id)
	if err != nil {
		s.logger.Error(ctx, "delete failed", "user", who.UserID, "id", id, "error", err)
		return false, err
	}
	if existed {
		s.publisher.Publish(models.ChangeEvent{
			UserID:       who.UserID,
			Type:         models.EventDelete,
			ID:           id,
			SourceDevice: who.DeviceID,
			CommittedAt:  s.now(),
		})
	}
	return existed, nil
}

func (s *todoService) publish(who auth.Identity, typ models.EventType, row models.Todo) {
	r := row
	s.publisher.Publish(models.ChangeEvent{
		UserID:       who.UserID,
		Type:         typ,
		ID:           row.ID,
		Todo:         &r,
		SourceDevice: who.DeviceID,
		CommittedAt:  s.now(),
	})
}
