package grpc

import (
	pb "github.com/dmitrijs2005/todosync/internal/proto"
	"github.com/dmitrijs2005/todosync/internal/server/models"
)

func toPB(t models.Todo) *pb.Todo {
	return &pb.Todo{
		Id:        t.ID,
		Text:      t.Text,
		Done:      t.Done,
		Deleted:   t.Deleted,
		CreatedAt: t.CreatedAt.UTC(),
		UpdatedAt: t.UpdatedAt.UTC(),
		Counter:   t.Counter,
	}
}

func fromPB(t *pb.Todo) models.Todo {
	return models.Todo{
		ID:        t.Id,
		Text:      t.Text,
		Done:      t.Done,
		Deleted:   t.Deleted,
		CreatedAt: t.CreatedAt.UTC(),
		UpdatedAt: t.UpdatedAt.UTC(),
	}
}

// EventToPB converts a feed event into its wire form.
func EventToPB(ev models.ChangeEvent) *pb.ChangeEvent {
	out := &pb.ChangeEvent{
		Type:         pb.EventType(ev.Type),
		Id:           ev.ID,
		SourceDevice: ev.SourceDevice,
		CommittedAt:  ev.CommittedAt.UTC(),
	}
	if ev.Todo != nil {
		out.Todo = toPB(*ev.Todo)
	}
	return out
}
