package services

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/todosync/internal/common"
	"github.com/dmitrijs2005/todosync/internal/logging"
	"github.com/dmitrijs2005/todosync/internal/server/auth"
	"github.com/dmitrijs2005/todosync/internal/server/models"
	"github.com/dmitrijs2005/todosync/internal/server/repositories/todos"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	events []models.ChangeEvent
}

func (p *recordingPublisher) Publish(ev models.ChangeEvent) { p.events = append(p.events, ev) }

var (
	alicePhone  = auth.Identity{UserID: "alice", DeviceID: "phone"}
	aliceLaptop = auth.Identity{UserID: "alice", DeviceID: "laptop"}
	ts1         = time.Date(2024, 4, 1, 12, 0, 0, 0, time.UTC)
	ts2         = ts1.Add(time.Minute)
)

func newService() (TodoService, *recordingPublisher) {
	pub := &recordingPublisher{}
	return NewTodoService(todos.NewInMemoryRepository(), pub, logging.Nop()), pub
}

func TestInsert_PublishesWithSourceDevice(t *testing.T) {
	ctx := context.Background()
	svc, pub := newService()

	row, res, err := svc.Insert(ctx, alicePhone, models.Todo{ID: "a", Text: "Buy milk", UpdatedAt: ts1})
	require.NoError(t, err)
	assert.Equal(t, models.Inserted, res)
	assert.Equal(t, "alice", row.UserID)
	assert.Equal(t, ts1, row.CreatedAt, "created_at defaults to updated_at")

	require.Len(t, pub.events, 1)
	ev := pub.events[0]
	assert.Equal(t, models.EventInsert, ev.Type)
	assert.Equal(t, "phone", ev.SourceDevice)
	assert.Equal(t, "alice", ev.UserID)
	require.NotNil(t, ev.Todo)
	assert.Equal(t, "Buy milk", ev.Todo.Text)
}

func TestInsert_RetryAndStale(t *testing.T) {
	ctx := context.Background()
	svc, pub := newService()

	_, _, err := svc.Insert(ctx, alicePhone, models.Todo{ID: "a", Text: "v2", UpdatedAt: ts2})
	require.NoError(t, err)

	row, res, err := svc.Insert(ctx, aliceLaptop, models.Todo{ID: "a", Text: "v1", UpdatedAt: ts1})
	require.NoError(t, err)
	assert.Equal(t, models.Stale, res)
	assert.Equal(t, "v2", row.Text)
	assert.Len(t, pub.events, 1, "stale writes are not published")
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()
	svc, pub := newService()

	_, _, err := svc.Update(ctx, alicePhone, models.Todo{ID: "a", Text: "x", UpdatedAt: ts1})
	assert.ErrorIs(t, err, common.ErrorNotFound)

	_, _, err = svc.Insert(ctx, alicePhone, models.Todo{ID: "a", Text: "v1", UpdatedAt: ts1})
	require.NoError(t, err)

	row, res, err := svc.Update(ctx, aliceLaptop, models.Todo{ID: "a", Text: "v2", Done: true, UpdatedAt: ts2})
	require.NoError(t, err)
	assert.Equal(t, models.Updated, res)
	assert.True(t, row.Done)

	require.Len(t, pub.events, 2)
	assert.Equal(t, models.EventUpdate, pub.events[1].Type)
	assert.Equal(t, "laptop", pub.events[1].SourceDevice)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	svc, pub := newService()

	_, _, err := svc.Insert(ctx, alicePhone, models.Todo{ID: "a", Text: "v1", UpdatedAt: ts1})
	require.NoError(t, err)

	existed, err := svc.Delete(ctx, alicePhone, "a")
	require.NoError(t, err)
	assert.True(t, existed)

	existed, err = svc.Delete(ctx, alicePhone, "a")
	require.NoError(t, err)
	assert.False(t, existed)

	require.Len(t, pub.events, 2, "only the first delete is published")
	assert.Equal(t, models.EventDelete, pub.events[1].Type)
	assert.Nil(t, pub.events[1].Todo)
}

func TestValidation(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService()

	_, _, err := svc.Insert(ctx, alicePhone, models.Todo{Text: "x", UpdatedAt: ts1})
	assert.ErrorIs(t, err, common.ErrorValidation)
	_, _, err = svc.Insert(ctx, alicePhone, models.Todo{ID: "a", Text: "  ", UpdatedAt: ts1})
	assert.ErrorIs(t, err, common.ErrorValidation)
	_, _, err = svc.Update(ctx, alicePhone, models.Todo{ID: "a", Text: "x"})
	assert.ErrorIs(t, err, common.ErrorValidation)
	_, err = svc.Delete(ctx, alicePhone, "")
	assert.ErrorIs(t, err, common.ErrorValidation)
}

func TestSelect_IsolatedPerUser(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService()

	_, _, _ = svc.Insert(ctx, alicePhone, models.Todo{ID: "a", Text: "mine", UpdatedAt: ts1})
	_, _, _ = svc.Insert(ctx, auth.Identity{UserID: "bob"}, models.Todo{ID: "b", Text: "his", UpdatedAt: ts1})

	rows, err := svc.Select(ctx, aliceLaptop, time.Time{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "a", rows[0].ID)

	rows, err = svc.Select(ctx, aliceLaptop, ts1)
	require.NoError(t, err)
	assert.Empty(t, rows)
}
