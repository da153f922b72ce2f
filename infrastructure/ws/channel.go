package ws

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"board-lab/domain"
	"board-lab/errors"
)

// Channel adapts one websocket connection into the push capability the host
// holds for a participant. All writes, acks included, flow through a single
// buffered outbox drained by one writer goroutine, so the connection never
// sees interleaved writes.
//
// A full outbox that stays full past the enqueue timeout means the receiver
// stopped draining; the push reports failure and the dispatcher retires the
// channel.
type Channel struct {
	log  *slog.Logger
	conn *websocket.Conn

	out            chan Frame
	closed         chan struct{}
	drained        chan struct{}
	closeOnce      sync.Once
	enqueueTimeout time.Duration
}

func NewChannel(log *slog.Logger, conn *websocket.Conn, outboxSize int, enqueueTimeout time.Duration) *Channel {
	c := &Channel{
		log:            log,
		conn:           conn,
		out:            make(chan Frame, outboxSize),
		closed:         make(chan struct{}),
		drained:        make(chan struct{}),
		enqueueTimeout: enqueueTimeout,
	}
	go c.writeLoop()
	return c
}

func (c *Channel) PushShapes(shapes []domain.Shape) error {
	return c.push(TypeShapes, shapes)
}

func (c *Channel) PushStrokes(strokes []domain.Stroke) error {
	return c.push(TypeStrokes, strokes)
}

func (c *Channel) PushLabels(labels []domain.Label) error {
	return c.push(TypeLabels, labels)
}

func (c *Channel) PushRoster(names []string) error {
	return c.push(TypeRoster, names)
}

func (c *Channel) PushChat(history []string) error {
	return c.push(TypeChatLog, history)
}

func (c *Channel) NotifyEvicted() error {
	return c.push(TypeEvicted, nil)
}

func (c *Channel) NotifyShutdown() error {
	return c.push(TypeShutdown, nil)
}

// Ack enqueues the reply to one request frame. Replies ride the same outbox
// as pushes, which is what keeps them ordered relative to the pushes the
// request itself triggered.
func (c *Channel) Ack(seq uint64, ack Ack) error {
	payload, err := json.Marshal(ack)
	if err != nil {
		return err
	}
	return c.enqueue(Frame{Seq: seq, Type: TypeAck, Payload: payload})
}

// Close tears the connection down. Idempotent. Frames already in the outbox
// still go out first: a rejection or quit ack is enqueued moments before the
// caller closes, and the participant must see it rather than a bare EOF. The
// wait for the writer is bounded by the same grace period as enqueue.
func (c *Channel) Close() {
	c.closeOnce.Do(func() {
		close(c.closed)
		select {
		case <-c.drained:
		case <-time.After(c.enqueueTimeout):
			c.log.Debug("Outbox not drained before close")
		}
		if err := c.conn.Close(); err != nil {
			c.log.Debug("Connection close", "err", err)
		}
	})
}

func (c *Channel) push(frameType string, payload any) error {
	var raw json.RawMessage
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		raw = encoded
	}
	return c.enqueue(Frame{Type: frameType, Payload: raw})
}

func (c *Channel) enqueue(frame Frame) error {
	select {
	case <-c.closed:
		return errors.ErrChannelUnreachable
	default:
	}

	select {
	case c.out <- frame:
		return nil
	case <-c.closed:
		return errors.ErrChannelUnreachable
	default:
	}

	// Outbox full: give the receiver a bounded grace period to drain.
	timer := time.NewTimer(c.enqueueTimeout)
	defer timer.Stop()
	select {
	case c.out <- frame:
		return nil
	case <-c.closed:
		return errors.ErrChannelUnreachable
	case <-timer.C:
		return errors.ErrChannelUnreachable
	}
}

func (c *Channel) writeLoop() {
	defer close(c.drained)
	for {
		select {
		case <-c.closed:
			// No more enqueues can land; flush what is already queued.
			for {
				select {
				case frame := <-c.out:
					if err := c.conn.WriteJSON(frame); err != nil {
						c.log.Debug("Write failed during drain", "err", err)
						return
					}
				default:
					return
				}
			}
		case frame := <-c.out:
			if err := c.conn.WriteJSON(frame); err != nil {
				c.log.Debug("Write failed, closing channel", "err", err)
				// Close waits on the drain signal, so it must not run on
				// this goroutine.
				go c.Close()
				return
			}
		}
	}
}
