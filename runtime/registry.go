// Package runtime wires the session registry, the broadcast dispatcher and
// the replication service around the board document. It orchestrates the
// system without containing geometry or transport logic.
package runtime

import (
	"sync"

	"github.com/samber/lo"

	"board-lab/contract"
	"board-lab/errors"
)

// Registry is the session roster: display names in join order, the push
// channel held for each participant, and the chat transcript.
//
// The manager's own name is seeded at construction. It appears in the roster
// like any other entry but has no push channel and can never be removed.
type Registry struct {
	mu          sync.RWMutex
	managerName string
	names       []string
	channels    map[string]contract.PushChannel
	chat        []string
}

func NewRegistry(managerName string) *Registry {
	return &Registry{
		managerName: managerName,
		names:       []string{managerName},
		channels:    make(map[string]contract.PushChannel),
	}
}

func (r *Registry) ManagerName() string {
	return r.managerName
}

// Register admits a participant. Duplicates are rejected immediately without
// consulting the approver; otherwise the calling request blocks on the human
// decision. The registry lock is not held across that call, so concurrent
// registrations and broadcasts proceed while a decision is pending. The name
// may have been claimed while we waited, so uniqueness is re-checked on
// insert.
func (r *Registry) Register(name string, ch contract.PushChannel, approver contract.Approver) error {
	r.mu.RLock()
	taken := r.contains(name)
	r.mu.RUnlock()
	if taken {
		return errors.ErrDuplicateName
	}

	if !approver.Decide(name) {
		return errors.ErrDeniedByApprover
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.contains(name) {
		return errors.ErrDuplicateName
	}
	r.names = append(r.names, name)
	r.channels[name] = ch
	return nil
}

// Remove drops the named entry. The manager entry is permanent. Reports
// whether anything changed.
func (r *Registry) Remove(name string) bool {
	if name == r.managerName {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.channels[name]; !ok {
		return false
	}
	delete(r.channels, name)
	r.removeName(name)
	return true
}

// Channel returns the push channel held for the named participant.
func (r *Registry) Channel(name string) (contract.PushChannel, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ch, ok := r.channels[name]
	return ch, ok
}

// RemoveByChannel drops the entry owning the given channel, if any. This is
// the one removal path that needs no name: the dispatcher only knows which
// channel died.
func (r *Registry) RemoveByChannel(ch contract.PushChannel) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for name, c := range r.channels {
		if c == ch {
			delete(r.channels, name)
			r.removeName(name)
			return name, true
		}
	}
	return "", false
}

// Names returns the roster in join order, manager first.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.names...)
}

// Channels returns a point-in-time copy of the live push channels, safe to
// iterate while registrations and removals continue.
func (r *Registry) Channels() []contract.PushChannel {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return lo.Values(r.channels)
}

// AppendChat appends one already-formatted "<name>: <message>" line.
func (r *Registry) AppendChat(line string) {
	r.mu.Lock()
	r.chat = append(r.chat, line)
	r.mu.Unlock()
}

// ChatHistory returns a copy of the transcript.
func (r *Registry) ChatHistory() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.chat...)
}

func (r *Registry) contains(name string) bool {
	for _, n := range r.names {
		if n == name {
			return true
		}
	}
	return false
}

func (r *Registry) removeName(name string) {
	for i, n := range r.names {
		if n == name {
			r.names = append(r.names[:i], r.names[i+1:]...)
			return
		}
	}
}
