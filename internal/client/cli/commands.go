package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/todosync/internal/client/models"
	"github.com/dmitrijs2005/todosync/internal/client/services"
)

var ErrAmbiguousRef = errors.New("reference matches more than one todo")

const syncTimeout = 30 * time.Second

// resolve maps a listing number or an id prefix to a todo id.
func (a *App) resolve(ctx context.Context, ref string) (string, error) {
	if n, err := strconv.Atoi(ref); err == nil {
		if n < 1 || n > len(a.listed) {
			return "", fmt.Errorf("%w: no item %d in the last listing", services.ErrNotFound, n)
		}
		return a.listed[n-1], nil
	}

	var match string
	for _, t := range a.todos.All(ctx) {
		if !strings.HasPrefix(t.ID, ref) {
			continue
		}
		if t.ID == ref {
			return t.ID, nil
		}
		if match != "" {
			return "", fmt.Errorf("%w: %q", ErrAmbiguousRef, ref)
		}
		match = t.ID
	}
	if match == "" {
		return "", fmt.Errorf("%w: %q", services.ErrNotFound, ref)
	}
	return match, nil
}

func (a *App) pendingSet() map[string]bool {
	pending := map[string]bool{}
	if a.engine == nil {
		return pending
	}
	for _, op := range a.engine.Pending() {
		pending[op.ID] = true
	}
	return pending
}

func (a *App) show(t models.Todo) {
	printlnFn(a.render.list([]models.Todo{t}, a.pendingSet()))
}

func (a *App) Add(ctx context.Context, text string) error {
	t, err := a.todos.Add(ctx, text)
	if err != nil {
		return err
	}
	a.listed = append(a.listed, t.ID)
	printlnFn(fmt.Sprintf("Added #%d %s", len(a.listed), shortID(t.ID)))
	return nil
}

func (a *App) Toggle(ctx context.Context, ref string) error {
	return a.apply(ctx, ref, a.todos.ToggleDone)
}

func (a *App) Delete(ctx context.Context, ref string) error {
	return a.apply(ctx, ref, a.todos.SoftDelete)
}

func (a *App) Restore(ctx context.Context, ref string) error {
	return a.apply(ctx, ref, a.todos.Restore)
}

func (a *App) Edit(ctx context.Context, ref, text string) error {
	return a.apply(ctx, ref, func(ctx context.Context, id string) (models.Todo, error) {
		return a.todos.Edit(ctx, id, text)
	})
}

func (a *App) apply(ctx context.Context, ref string, fn func(ctx context.Context, id string) (models.Todo, error)) error {
	id, err := a.resolve(ctx, ref)
	if err != nil {
		return err
	}
	t, err := fn(ctx, id)
	if err != nil {
		return err
	}
	a.show(t)
	return nil
}

// Purge removes a todo for good, on every device.
func (a *App) Purge(ctx context.Context, ref string) error {
	id, err := a.resolve(ctx, ref)
	if err != nil {
		return err
	}
	if err := a.todos.HardDelete(ctx, id); err != nil {
		return err
	}
	printlnFn("Purged " + shortID(id))
	return nil
}

// List prints active todos, or every todo including tombstones when all is
// set, and remembers the order for numeric references.
func (a *App) List(ctx context.Context, all bool) error {
	var todos []models.Todo
	if all {
		todos = a.todos.All(ctx)
	} else {
		todos = a.todos.Active(ctx)
	}

	a.listed = a.listed[:0]
	for _, t := range todos {
		a.listed = append(a.listed, t.ID)
	}
	printlnFn(a.render.list(todos, a.pendingSet()))
	return nil
}

func (a *App) Sync(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, syncTimeout)
	defer cancel()
	if err := a.engine.Sync(ctx); err != nil {
		return err
	}
	printlnFn("Synced.")
	return nil
}

func (a *App) Refresh(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, syncTimeout)
	defer cancel()
	if err := a.engine.Refresh(ctx); err != nil {
		return err
	}
	printlnFn("Refreshed.")
	return nil
}

func (a *App) Status(ctx context.Context) error {
	printlnFn(a.render.status(a.engine.Status()))
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
