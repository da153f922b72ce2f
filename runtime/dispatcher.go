package runtime

import (
	"log/slog"

	"board-lab/contract"
	"board-lab/domain"
)

// Dispatcher pushes snapshots to every registered channel. A push failure is
// never retried and never surfaced to other participants: the dead channel's
// entry is removed and the survivors get a fresh roster. Push order across
// channels is unspecified; within one channel the document parts go out
// before roster and chat when one mutation triggered both.
type Dispatcher struct {
	log      *slog.Logger
	registry *Registry
}

func NewDispatcher(log *slog.Logger, registry *Registry) *Dispatcher {
	return &Dispatcher{log: log, registry: registry}
}

// BroadcastDocument pushes the full three-collection snapshot to everyone.
func (d *Dispatcher) BroadcastDocument(snap domain.Snapshot) {
	for _, ch := range d.registry.Channels() {
		if err := d.pushDocument(ch, snap); err != nil {
			d.DropChannel(ch)
		}
	}
}

// BroadcastRoster pushes the current roster to everyone, optionally skipping
// one channel (a freshly admitted participant learns its roster through the
// join reply instead).
func (d *Dispatcher) BroadcastRoster(skip contract.PushChannel) {
	names := d.registry.Names()
	for _, ch := range d.registry.Channels() {
		if ch == skip {
			continue
		}
		if err := ch.PushRoster(names); err != nil {
			d.DropChannel(ch)
		}
	}
}

// BroadcastChat pushes the whole transcript to everyone.
func (d *Dispatcher) BroadcastChat() {
	history := d.registry.ChatHistory()
	for _, ch := range d.registry.Channels() {
		if err := ch.PushChat(history); err != nil {
			d.DropChannel(ch)
		}
	}
}

// DropChannel retires a channel discovered dead, removing its session entry
// and telling the survivors. Safe to call twice for the same channel.
func (d *Dispatcher) DropChannel(ch contract.PushChannel) {
	name, ok := d.registry.RemoveByChannel(ch)
	if !ok {
		return
	}
	d.log.Info("Participant channel unreachable, removing session", "name", name)
	d.BroadcastRoster(nil)
}

func (d *Dispatcher) pushDocument(ch contract.PushChannel, snap domain.Snapshot) error {
	if err := ch.PushShapes(snap.Shapes); err != nil {
		return err
	}
	if err := ch.PushStrokes(snap.Strokes); err != nil {
		return err
	}
	return ch.PushLabels(snap.Labels)
}
