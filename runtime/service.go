package runtime

import (
	"context"
	"log/slog"

	"board-lab/contract"
	"board-lab/domain"
	"board-lab/errors"
)

// JoinResult is everything a freshly admitted participant needs to render:
// the full document, the roster including itself, and the chat so far.
type JoinResult struct {
	Snapshot domain.Snapshot
	Roster   []string
	Chat     []string
	Manager  string
}

// Service is the replication service: the single mutation authority over the
// board. Every operation mutates the canonical document (or roster, or
// transcript) and then pushes the changed collection wholesale to every
// registered channel. There are no deltas and no per-participant state
// beyond the push channel itself.
type Service struct {
	log        *slog.Logger
	board      *domain.Board
	registry   *Registry
	dispatcher *Dispatcher
	surface    *Surface
	moderator  contract.Moderator
	store      contract.BoardStore
}

func NewService(
	log *slog.Logger,
	board *domain.Board,
	registry *Registry,
	dispatcher *Dispatcher,
	surface *Surface,
	moderator contract.Moderator,
	store contract.BoardStore,
) *Service {
	return &Service{
		log:        log,
		board:      board,
		registry:   registry,
		dispatcher: dispatcher,
		surface:    surface,
		moderator:  moderator,
		store:      store,
	}
}

func (s *Service) Registry() *Registry  { return s.registry }
func (s *Service) Surface() *Surface    { return s.surface }
func (s *Service) Board() *domain.Board { return s.board }

// Register runs the admission flow for one candidate. On success the reply
// carries the full current state; everyone already present gets a roster
// push, but not the newcomer, whose channel would otherwise see the roster
// twice.
func (s *Service) Register(name string, ch contract.PushChannel, approver contract.Approver) (JoinResult, error) {
	if err := s.registry.Register(name, ch, approver); err != nil {
		return JoinResult{}, err
	}
	s.log.Info("participant admitted", slog.String("name", name))
	s.dispatcher.BroadcastRoster(ch)
	return JoinResult{
		Snapshot: s.board.Snapshot(),
		Roster:   s.registry.Names(),
		Chat:     s.registry.ChatHistory(),
		Manager:  s.registry.ManagerName(),
	}, nil
}

// Quit removes a voluntarily departing participant. Unknown names are a
// no-op; departure is idempotent.
func (s *Service) Quit(name string) {
	if s.registry.Remove(name) {
		s.log.Info("participant left", slog.String("name", name))
		s.dispatcher.BroadcastRoster(nil)
	}
}

// Evict removes a participant at the manager's request. The victim is told
// first; a victim whose channel is already dead is evicted all the same.
func (s *Service) Evict(name string) error {
	if name == s.registry.ManagerName() {
		return errors.ErrEvictManager
	}
	ch, ok := s.registry.Channel(name)
	if !ok {
		return errors.ErrNotFound
	}
	if err := ch.NotifyEvicted(); err != nil {
		s.log.Warn("eviction notice undeliverable", slog.String("name", name), slog.Any("error", err))
	}
	s.registry.Remove(name)
	s.dispatcher.BroadcastRoster(nil)
	return nil
}

// DropChannel retires a channel whose transport failed. The registry entry
// goes with it and the survivors get a fresh roster.
func (s *Service) DropChannel(ch contract.PushChannel) {
	s.dispatcher.DropChannel(ch)
}

// SendMessage appends one chat line and pushes the transcript. The stored
// line is already formatted and moderated; receivers display it verbatim.
func (s *Service) SendMessage(name, text string) {
	line := name + ": " + s.moderator.Censor(text)
	s.registry.AppendChat(line)
	s.dispatcher.BroadcastChat()
}

// Shutdown tells every participant the session is over. Delivery failures
// are ignored; the process is exiting either way.
func (s *Service) Shutdown() {
	for _, ch := range s.registry.Channels() {
		if err := ch.NotifyShutdown(); err != nil {
			s.log.Warn("shutdown notice undeliverable", slog.Any("error", err))
		}
	}
}

// ---- document mutations -------------------------------------------------

// AddShape inserts a default-geometry shape and returns it so the caller
// can address follow-up mutations at it.
func (s *Service) AddShape(kind domain.ShapeKind) domain.Shape {
	sh := s.board.AddShape(kind)
	s.dispatcher.BroadcastDocument(s.board.Snapshot())
	return sh
}

func (s *Service) MoveShape(ref domain.Shape, dx, dy float64) error {
	return s.mutate(s.board.MoveShape(ref, dx, dy))
}

func (s *Service) ResizeShape(ref domain.Shape, control int, x, y float64) error {
	return s.mutate(s.board.ResizeShape(ref, control, x, y))
}

func (s *Service) SetShapeBorderColor(ref domain.Shape, c domain.Color) error {
	return s.mutate(s.board.SetShapeBorderColor(ref, c))
}

func (s *Service) SetShapeFillColor(ref domain.Shape, c domain.Color) error {
	return s.mutate(s.board.SetShapeFillColor(ref, c))
}

func (s *Service) SetShapeLabelColor(ref domain.Shape, c domain.Color) error {
	return s.mutate(s.board.SetShapeLabelColor(ref, c))
}

func (s *Service) SetShapeLabel(ref domain.Shape, text string) error {
	return s.mutate(s.board.SetShapeLabel(ref, text))
}

func (s *Service) DeleteShape(ref domain.Shape) {
	s.board.DeleteShape(ref)
	s.dispatcher.BroadcastDocument(s.board.Snapshot())
}

func (s *Service) AddStroke(st domain.Stroke) {
	s.board.AddStroke(st)
	s.dispatcher.BroadcastDocument(s.board.Snapshot())
}

func (s *Service) EraseStrokes(eraser domain.Circle) int {
	n := s.board.EraseStrokes(eraser)
	if n > 0 {
		s.dispatcher.BroadcastDocument(s.board.Snapshot())
	}
	return n
}

func (s *Service) AddLabel(l domain.Label) {
	s.board.AddLabel(l)
	s.dispatcher.BroadcastDocument(s.board.Snapshot())
}

func (s *Service) SetLabelText(ref domain.Label, text string) error {
	return s.mutate(s.board.SetLabelText(ref, text))
}

func (s *Service) SetLabelColor(ref domain.Label, c domain.Color) error {
	return s.mutate(s.board.SetLabelColor(ref, c))
}

func (s *Service) MoveLabel(ref domain.Label, dx, dy float64) error {
	return s.mutate(s.board.MoveLabel(ref, dx, dy))
}

func (s *Service) DeleteLabel(ref domain.Label) {
	s.board.DeleteLabel(ref)
	s.dispatcher.BroadcastDocument(s.board.Snapshot())
}

// mutate broadcasts after a successful board mutation. A stale-reference
// miss means a concurrent delete already satisfied the caller's intent, so
// it is absorbed here with no push; participants never see it as an error.
func (s *Service) mutate(err error) error {
	if err == errors.ErrNotFound {
		s.log.Debug("stale reference ignored")
		return nil
	}
	if err != nil {
		return err
	}
	s.dispatcher.BroadcastDocument(s.board.Snapshot())
	return nil
}

// ---- delegated gestures -------------------------------------------------

// PressAs applies a participant's raw press under the requested mode. The
// host surface adopts the mode for the duration of the event only.
func (s *Service) PressAs(mode Mode, x, y float64) {
	s.surface.WithMode(mode, func() { s.surface.Press(x, y) })
	s.dispatcher.BroadcastDocument(s.board.Snapshot())
}

func (s *Service) DragAs(mode Mode, x, y float64) {
	s.surface.WithMode(mode, func() { s.surface.Drag(x, y) })
	s.dispatcher.BroadcastDocument(s.board.Snapshot())
}

func (s *Service) ReleaseAs(mode Mode) {
	s.surface.WithMode(mode, func() { s.surface.Release() })
}

// ---- wholesale document operations --------------------------------------

// NewBoard discards the entire document.
func (s *Service) NewBoard() {
	s.board.Clear()
	s.dispatcher.BroadcastDocument(s.board.Snapshot())
}

// SaveBoard persists the current snapshot under key.
func (s *Service) SaveBoard(ctx context.Context, key string) error {
	return s.store.Save(ctx, key, s.board.Snapshot())
}

// LoadBoard replaces the document with a stored snapshot and pushes it out.
func (s *Service) LoadBoard(ctx context.Context, key string) error {
	snap, err := s.store.Load(ctx, key)
	if err != nil {
		return err
	}
	s.board.Replace(snap)
	s.dispatcher.BroadcastDocument(s.board.Snapshot())
	return nil
}
