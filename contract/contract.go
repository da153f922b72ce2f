//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"

	"board-lab/domain"
)

// PushChannel is the reply capability the host holds for one participant:
// everything the host can send without being asked. Implementations must be
// safe for concurrent use and must report delivery failure as an error so
// the dispatcher can retire the channel.
type PushChannel interface {
	PushShapes(shapes []domain.Shape) error
	PushStrokes(strokes []domain.Stroke) error
	PushLabels(labels []domain.Label) error
	PushRoster(names []string) error
	PushChat(history []string) error

	// NotifyEvicted tells the participant it was removed by the manager.
	NotifyEvicted() error
	// NotifyShutdown tells the participant the host is going away.
	NotifyShutdown() error
}

// Approver is the human-in-the-loop admission hook. Decide blocks the
// registering request, possibly for a long time, until a human answers.
type Approver interface {
	Decide(candidate string) bool
}

// Moderator masks forbidden words in chat text before it reaches the
// transcript.
type Moderator interface {
	Censor(original string) string
}

// BoardStore is the persistence collaborator: opaque snapshot serialization
// of the three document collections under a caller-chosen key.
type BoardStore interface {
	Save(ctx context.Context, key string, snap domain.Snapshot) error
	Load(ctx context.Context, key string) (domain.Snapshot, error)
}

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// GetWorkerName uses reflection to retrieve the type name of the worker,
// for logging and supervision purposes, avoiding manual naming in the
// Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}
