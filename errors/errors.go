package errors

import "fmt"

var (
	// ErrDuplicateName rejects a registration whose display name is already
	// taken. The admission hook is never consulted for duplicates.
	ErrDuplicateName = fmt.Errorf("display name already in use")

	// ErrDeniedByApprover rejects a registration after the manager said no.
	ErrDeniedByApprover = fmt.Errorf("join request denied by the manager")

	// ErrNotFound is a value-equality lookup miss. It usually means a benign
	// race with a concurrent delete, so the replication service absorbs it
	// rather than surfacing it to participants.
	ErrNotFound = fmt.Errorf("no matching board item")

	// ErrChannelUnreachable marks a push channel whose participant is gone.
	ErrChannelUnreachable = fmt.Errorf("push channel unreachable")

	// ErrEvictManager refuses eviction of the manager's own entry.
	ErrEvictManager = fmt.Errorf("the manager cannot be evicted")

	// ErrSessionEnded is the client-side terminal error once a participant's
	// session is over (evicted, host shut down, or transport lost).
	ErrSessionEnded = fmt.Errorf("session ended")

	ErrWorkerPanic = fmt.Errorf("worker panic")
)
