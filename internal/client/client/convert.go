package client

import (
	"github.com/dmitrijs2005/todosync/internal/client/models"
	pb "github.com/dmitrijs2005/todosync/internal/proto"
)

func toPB(t models.Todo) *pb.Todo {
	return &pb.Todo{
		Id:        t.ID,
		Text:      t.Text,
		Done:      t.Done,
		Deleted:   t.Deleted,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
		Counter:   t.Counter,
	}
}

func fromPB(t *pb.Todo) models.Todo {
	if t == nil {
		return models.Todo{}
	}
	return models.Todo{
		ID:        t.Id,
		Text:      t.Text,
		Done:      t.Done,
		Deleted:   t.Deleted,
		CreatedAt: t.CreatedAt.UTC(),
		UpdatedAt: t.UpdatedAt.UTC(),
		Counter:   t.Counter,
	}
}

func eventFromPB(ev *pb.ChangeEvent) models.RemoteEvent {
	out := models.RemoteEvent{
		Kind:         models.EventKind(ev.Type),
		ID:           ev.Id,
		SourceDevice: ev.SourceDevice,
	}
	if ev.Todo != nil && ev.Type != pb.EventDelete {
		t := fromPB(ev.Todo)
		out.Todo = &t
		if out.ID == "" {
			out.ID = t.ID
		}
	}
	return out
}
