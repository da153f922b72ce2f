// Package client is the participant side of a session: a proxy holding the
// connection to the host, a read-only local mirror of the shared state, and
// request methods for every operation a participant may perform.
package client

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"

	"board-lab/domain"
	"board-lab/errors"
	"board-lab/infrastructure/ws"
)

// EventKind classifies session-ending notices surfaced to the owner of the
// proxy.
type EventKind string

const (
	EventEvicted      EventKind = "evicted"
	EventShutdown     EventKind = "shutdown"
	EventQuit         EventKind = "quit"
	EventDisconnected EventKind = "disconnected"
)

type Event struct {
	Kind EventKind
	Err  error
}

// Proxy is the participant's handle on a live session. Every mutation is a
// request to the host; the mirror only changes when the host pushes, never
// locally. After a session-ending event every call fails with
// errors.ErrSessionEnded.
type Proxy struct {
	log  *slog.Logger
	conn *websocket.Conn
	name string

	writeMu sync.Mutex

	pendingMu sync.Mutex
	seq       uint64
	pending   map[uint64]chan ws.Ack

	mirrorMu sync.RWMutex
	manager  string
	shapes   []domain.Shape
	strokes  []domain.Stroke
	labels   []domain.Label
	roster   []string
	chat     []string

	events    chan Event
	updates   chan struct{}
	closed    chan struct{}
	closeOnce sync.Once
}

// Dial connects, sends the join request and blocks until the host answers.
// The admission decision is human-gated on the host side, so this can block
// for a long time; cancel ctx to give up.
func Dial(ctx context.Context, log *slog.Logger, url, name string) (*Proxy, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}

	p := &Proxy{
		log:     log,
		conn:    conn,
		name:    name,
		pending: make(map[uint64]chan ws.Ack),
		events:  make(chan Event, 4),
		updates: make(chan struct{}, 1),
		closed:  make(chan struct{}),
	}

	if err := p.join(ctx); err != nil {
		conn.Close()
		return nil, err
	}

	go p.readLoop()
	return p, nil
}

func (p *Proxy) join(ctx context.Context) error {
	payload, err := json.Marshal(ws.JoinRequest{Name: p.name})
	if err != nil {
		return err
	}
	if err := p.conn.WriteJSON(ws.Frame{Seq: 1, Type: ws.TypeJoin, Payload: payload}); err != nil {
		return err
	}
	p.seq = 1

	// Watch ctx while the blocking read waits on the admission decision.
	readDone := make(chan error, 1)
	var reply ws.JoinReply
	go func() { readDone <- p.readJoinReply(&reply) }()
	select {
	case <-ctx.Done():
		p.conn.Close()
		<-readDone
		return ctx.Err()
	case err := <-readDone:
		if err != nil {
			return err
		}
	}

	p.mirrorMu.Lock()
	p.manager = reply.Manager
	p.shapes = reply.Shapes
	p.strokes = reply.Strokes
	p.labels = reply.Labels
	p.roster = reply.Roster
	p.chat = reply.Chat
	p.mirrorMu.Unlock()
	return nil
}

func (p *Proxy) readJoinReply(reply *ws.JoinReply) error {
	var frame ws.Frame
	if err := p.conn.ReadJSON(&frame); err != nil {
		return err
	}
	if frame.Type != ws.TypeAck {
		return fmt.Errorf("unexpected %s frame before join ack", frame.Type)
	}
	var ack ws.Ack
	if err := json.Unmarshal(frame.Payload, &ack); err != nil {
		return err
	}
	if ack.Code != ws.CodeOK {
		return errorFromAck(ack)
	}
	return json.Unmarshal(ack.Data, reply)
}

// Name returns the display name this proxy joined under.
func (p *Proxy) Name() string { return p.name }

// Manager returns the session manager's display name.
func (p *Proxy) Manager() string {
	p.mirrorMu.RLock()
	defer p.mirrorMu.RUnlock()
	return p.manager
}

func (p *Proxy) Shapes() []domain.Shape {
	p.mirrorMu.RLock()
	defer p.mirrorMu.RUnlock()
	return append([]domain.Shape(nil), p.shapes...)
}

func (p *Proxy) Strokes() []domain.Stroke {
	p.mirrorMu.RLock()
	defer p.mirrorMu.RUnlock()
	return append([]domain.Stroke(nil), p.strokes...)
}

func (p *Proxy) Labels() []domain.Label {
	p.mirrorMu.RLock()
	defer p.mirrorMu.RUnlock()
	return append([]domain.Label(nil), p.labels...)
}

func (p *Proxy) Roster() []string {
	p.mirrorMu.RLock()
	defer p.mirrorMu.RUnlock()
	return append([]string(nil), p.roster...)
}

func (p *Proxy) Chat() []string {
	p.mirrorMu.RLock()
	defer p.mirrorMu.RUnlock()
	return append([]string(nil), p.chat...)
}

// Events delivers session-ending notices: eviction, host shutdown, or
// transport failure. The channel is closed once the session is over.
func (p *Proxy) Events() <-chan Event { return p.events }

// Updates signals, coalesced, that some part of the mirror changed.
func (p *Proxy) Updates() <-chan struct{} { return p.updates }

// Done is closed when the session has ended for any reason.
func (p *Proxy) Done() <-chan struct{} { return p.closed }

// ---- requests -----------------------------------------------------------

// AddShape asks the host for a new default shape and returns the created
// value, which is the reference for follow-up mutations.
func (p *Proxy) AddShape(ctx context.Context, kind domain.ShapeKind) (domain.Shape, error) {
	ack, err := p.call(ctx, ws.TypeShapeAdd, ws.ShapeAddRequest{Kind: kind})
	if err != nil {
		return domain.Shape{}, err
	}
	var shape domain.Shape
	if err := json.Unmarshal(ack.Data, &shape); err != nil {
		return domain.Shape{}, err
	}
	return shape, nil
}

func (p *Proxy) MoveShape(ctx context.Context, ref domain.Shape, dx, dy float64) error {
	_, err := p.call(ctx, ws.TypeShapeMove, ws.ShapeMoveRequest{Shape: ref, DX: dx, DY: dy})
	return err
}

func (p *Proxy) ResizeShape(ctx context.Context, ref domain.Shape, control int, x, y float64) error {
	_, err := p.call(ctx, ws.TypeShapeResize, ws.ShapeResizeRequest{Shape: ref, Control: control, X: x, Y: y})
	return err
}

func (p *Proxy) StyleShape(ctx context.Context, req ws.ShapeStyleRequest) error {
	_, err := p.call(ctx, ws.TypeShapeStyle, req)
	return err
}

func (p *Proxy) SetShapeLabel(ctx context.Context, ref domain.Shape, text string) error {
	_, err := p.call(ctx, ws.TypeShapeLabel, ws.ShapeLabelRequest{Shape: ref, Text: text})
	return err
}

func (p *Proxy) DeleteShape(ctx context.Context, ref domain.Shape) error {
	_, err := p.call(ctx, ws.TypeShapeDelete, ws.ShapeDeleteRequest{Shape: ref})
	return err
}

func (p *Proxy) AddStroke(ctx context.Context, stroke domain.Stroke) error {
	_, err := p.call(ctx, ws.TypeStrokeAdd, ws.StrokeAddRequest{Stroke: stroke})
	return err
}

func (p *Proxy) EraseStrokes(ctx context.Context, eraser domain.Circle) error {
	_, err := p.call(ctx, ws.TypeStrokeErase, ws.StrokeEraseRequest{Eraser: eraser})
	return err
}

func (p *Proxy) AddLabel(ctx context.Context, label domain.Label) error {
	_, err := p.call(ctx, ws.TypeLabelAdd, ws.LabelAddRequest{Label: label})
	return err
}

func (p *Proxy) SetLabelText(ctx context.Context, ref domain.Label, text string) error {
	_, err := p.call(ctx, ws.TypeLabelText, ws.LabelTextRequest{Label: ref, Text: text})
	return err
}

func (p *Proxy) SetLabelColor(ctx context.Context, ref domain.Label, color domain.Color) error {
	_, err := p.call(ctx, ws.TypeLabelColor, ws.LabelColorRequest{Label: ref, Color: color})
	return err
}

func (p *Proxy) MoveLabel(ctx context.Context, ref domain.Label, dx, dy float64) error {
	_, err := p.call(ctx, ws.TypeLabelMove, ws.LabelMoveRequest{Label: ref, DX: dx, DY: dy})
	return err
}

func (p *Proxy) DeleteLabel(ctx context.Context, ref domain.Label) error {
	_, err := p.call(ctx, ws.TypeLabelDelete, ws.LabelDeleteRequest{Label: ref})
	return err
}

// Press delegates a raw pointer press to the host surface under the given
// mode ("shape" or "text").
func (p *Proxy) Press(ctx context.Context, mode string, x, y float64) error {
	_, err := p.call(ctx, ws.TypePress, ws.GestureRequest{Mode: mode, X: x, Y: y})
	return err
}

func (p *Proxy) Drag(ctx context.Context, mode string, x, y float64) error {
	_, err := p.call(ctx, ws.TypeDrag, ws.GestureRequest{Mode: mode, X: x, Y: y})
	return err
}

func (p *Proxy) Release(ctx context.Context, mode string) error {
	_, err := p.call(ctx, ws.TypeRelease, ws.GestureRequest{Mode: mode})
	return err
}

func (p *Proxy) SendMessage(ctx context.Context, text string) error {
	_, err := p.call(ctx, ws.TypeChat, ws.ChatRequest{Text: text})
	return err
}

// Quit announces departure, waits for the ack, and tears the session down.
func (p *Proxy) Quit(ctx context.Context) error {
	_, err := p.call(ctx, ws.TypeQuit, nil)
	p.terminate(Event{Kind: EventQuit})
	if err != nil && !stderrors.Is(err, errors.ErrSessionEnded) {
		return err
	}
	return nil
}

// Close tears the connection down without the goodbye.
func (p *Proxy) Close() {
	p.terminate(Event{Kind: EventDisconnected})
}

// ---- plumbing -----------------------------------------------------------

func (p *Proxy) call(ctx context.Context, frameType string, payload any) (ws.Ack, error) {
	select {
	case <-p.closed:
		return ws.Ack{}, errors.ErrSessionEnded
	default:
	}

	var raw json.RawMessage
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return ws.Ack{}, err
		}
		raw = encoded
	}

	p.pendingMu.Lock()
	p.seq++
	seq := p.seq
	ch := make(chan ws.Ack, 1)
	p.pending[seq] = ch
	p.pendingMu.Unlock()

	p.writeMu.Lock()
	err := p.conn.WriteJSON(ws.Frame{Seq: seq, Type: frameType, Payload: raw})
	p.writeMu.Unlock()
	if err != nil {
		p.forget(seq)
		p.terminate(Event{Kind: EventDisconnected, Err: err})
		return ws.Ack{}, errors.ErrSessionEnded
	}

	select {
	case ack := <-ch:
		if ack.Code != ws.CodeOK {
			return ack, errorFromAck(ack)
		}
		return ack, nil
	case <-ctx.Done():
		p.forget(seq)
		return ws.Ack{}, ctx.Err()
	case <-p.closed:
		return ws.Ack{}, errors.ErrSessionEnded
	}
}

func (p *Proxy) forget(seq uint64) {
	p.pendingMu.Lock()
	delete(p.pending, seq)
	p.pendingMu.Unlock()
}

func (p *Proxy) readLoop() {
	for {
		var frame ws.Frame
		if err := p.conn.ReadJSON(&frame); err != nil {
			p.terminate(Event{Kind: EventDisconnected, Err: err})
			return
		}

		switch frame.Type {
		case ws.TypeAck:
			var ack ws.Ack
			if err := json.Unmarshal(frame.Payload, &ack); err != nil {
				p.log.Warn("Malformed ack", "err", err)
				continue
			}
			p.pendingMu.Lock()
			ch, ok := p.pending[frame.Seq]
			delete(p.pending, frame.Seq)
			p.pendingMu.Unlock()
			if ok {
				ch <- ack
			}

		case ws.TypeShapes:
			updateInto(p, frame.Payload, func(shapes []domain.Shape) { p.shapes = shapes })
		case ws.TypeStrokes:
			updateInto(p, frame.Payload, func(strokes []domain.Stroke) { p.strokes = strokes })
		case ws.TypeLabels:
			updateInto(p, frame.Payload, func(labels []domain.Label) { p.labels = labels })
		case ws.TypeRoster:
			updateInto(p, frame.Payload, func(roster []string) { p.roster = roster })
		case ws.TypeChatLog:
			updateInto(p, frame.Payload, func(chat []string) { p.chat = chat })

		case ws.TypeEvicted:
			p.terminate(Event{Kind: EventEvicted})
			return
		case ws.TypeShutdown:
			p.terminate(Event{Kind: EventShutdown})
			return

		default:
			p.log.Debug("Unknown push ignored", "type", frame.Type)
		}
	}
}

// updateInto replaces one mirrored collection wholesale and signals the
// update channel without blocking.
func updateInto[T any](p *Proxy, payload json.RawMessage, apply func([]T)) {
	var items []T
	if err := json.Unmarshal(payload, &items); err != nil {
		p.log.Warn("Malformed push ignored", "err", err)
		return
	}
	p.mirrorMu.Lock()
	apply(items)
	p.mirrorMu.Unlock()
	select {
	case p.updates <- struct{}{}:
	default:
	}
}

// terminate ends the session once: pending calls unblock, the event is
// delivered, and the events channel closes.
func (p *Proxy) terminate(event Event) {
	p.closeOnce.Do(func() {
		close(p.closed)
		p.conn.Close()
		select {
		case p.events <- event:
		default:
		}
		close(p.events)
	})
}

func errorFromAck(ack ws.Ack) error {
	switch ack.Code {
	case ws.CodeDuplicateName:
		return errors.ErrDuplicateName
	case ws.CodeDenied:
		return errors.ErrDeniedByApprover
	case ws.CodeNotFound:
		return errors.ErrNotFound
	default:
		return fmt.Errorf("request failed: %s", ack.Error)
	}
}
