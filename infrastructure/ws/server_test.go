package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"board-lab/domain"
	"board-lab/errors"
	"board-lab/moderation"
	"board-lab/runtime"
)

type approverFunc func(candidate string) bool

func (f approverFunc) Decide(candidate string) bool { return f(candidate) }

type memoryStore struct {
	snaps map[string]domain.Snapshot
}

func (s *memoryStore) Save(ctx context.Context, key string, snap domain.Snapshot) error {
	s.snaps[key] = snap
	return nil
}

func (s *memoryStore) Load(ctx context.Context, key string) (domain.Snapshot, error) {
	snap, ok := s.snaps[key]
	if !ok {
		return domain.Snapshot{}, errors.ErrNotFound
	}
	return snap, nil
}

type fixedMeasurer struct{}

func (fixedMeasurer) MeasureText(text string) (float64, float64) { return 40, 16 }

func newTestService(t *testing.T) *runtime.Service {
	t.Helper()
	log := slog.New(slog.DiscardHandler)
	moderator, err := moderation.New([]string{"dang"}, '*')
	require.NoError(t, err)
	board := domain.NewBoard()
	registry := runtime.NewRegistry("boss")
	dispatcher := runtime.NewDispatcher(log, registry)
	surface := runtime.NewSurface(board, fixedMeasurer{})
	return runtime.NewService(log, board, registry, dispatcher, surface, moderator, &memoryStore{snaps: map[string]domain.Snapshot{}})
}

func newTestServer(t *testing.T, approver approverFunc) (*httptest.Server, *runtime.Service) {
	t.Helper()
	service := newTestService(t)
	server, err := NewServer(slog.New(slog.DiscardHandler), service, approver)
	require.NoError(t, err)
	ts := httptest.NewServer(server)
	t.Cleanup(ts.Close)
	return ts, service
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, seq uint64, frameType string, payload any) {
	t.Helper()
	frame := Frame{Seq: seq, Type: frameType}
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		frame.Payload = raw
	}
	require.NoError(t, conn.WriteJSON(frame))
}

// awaitAck reads frames until the ack for seq arrives, returning it plus
// any pushes that came first.
func awaitAck(t *testing.T, conn *websocket.Conn, seq uint64) (Ack, []Frame) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var pushes []Frame
	for {
		var frame Frame
		require.NoError(t, conn.ReadJSON(&frame))
		if frame.Type == TypeAck && frame.Seq == seq {
			var ack Ack
			require.NoError(t, json.Unmarshal(frame.Payload, &ack))
			return ack, pushes
		}
		pushes = append(pushes, frame)
	}
}

// awaitPush reads frames until one of the given type arrives.
func awaitPush(t *testing.T, conn *websocket.Conn, frameType string) Frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		var frame Frame
		require.NoError(t, conn.ReadJSON(&frame))
		if frame.Type == frameType {
			return frame
		}
	}
}

func join(t *testing.T, conn *websocket.Conn, name string) JoinReply {
	t.Helper()
	send(t, conn, 1, TypeJoin, JoinRequest{Name: name})
	ack, _ := awaitAck(t, conn, 1)
	require.Equal(t, CodeOK, ack.Code)
	var reply JoinReply
	require.NoError(t, json.Unmarshal(ack.Data, &reply))
	return reply
}

func TestServer_JoinHandshake(t *testing.T) {
	req := require.New(t)
	ts, service := newTestServer(t, func(string) bool { return true })
	service.AddShape(domain.KindRectangle)
	service.SendMessage("boss", "welcome")

	conn := dial(t, ts)
	reply := join(t, conn, "alice")

	req.Equal("boss", reply.Manager)
	req.Equal([]string{"boss", "alice"}, reply.Roster)
	req.Equal([]string{"boss: welcome"}, reply.Chat)
	req.Len(reply.Shapes, 1)
}

func TestServer_JoinRejectsBadName(t *testing.T) {
	req := require.New(t)
	ts, _ := newTestServer(t, func(string) bool { return true })

	for _, name := range []string{"", "tab\tname", strings.Repeat("x", 33)} {
		conn := dial(t, ts)
		send(t, conn, 1, TypeJoin, JoinRequest{Name: name})
		ack, _ := awaitAck(t, conn, 1)
		req.Equal(CodeBadRequest, ack.Code)
	}
}

func TestServer_JoinDuplicateName(t *testing.T) {
	req := require.New(t)
	ts, _ := newTestServer(t, func(string) bool { return true })

	first := dial(t, ts)
	join(t, first, "alice")

	second := dial(t, ts)
	send(t, second, 1, TypeJoin, JoinRequest{Name: "alice"})
	ack, _ := awaitAck(t, second, 1)
	req.Equal(CodeDuplicateName, ack.Code)
}

func TestServer_JoinDenied(t *testing.T) {
	req := require.New(t)
	ts, _ := newTestServer(t, func(string) bool { return false })

	conn := dial(t, ts)
	send(t, conn, 1, TypeJoin, JoinRequest{Name: "mallory"})
	ack, _ := awaitAck(t, conn, 1)
	req.Equal(CodeDenied, ack.Code)
}

func TestServer_FirstFrameMustBeJoin(t *testing.T) {
	req := require.New(t)
	ts, _ := newTestServer(t, func(string) bool { return true })

	conn := dial(t, ts)
	send(t, conn, 1, TypeChat, ChatRequest{Text: "hi"})
	ack, _ := awaitAck(t, conn, 1)
	req.Equal(CodeBadRequest, ack.Code)
}

func TestServer_ShapeAddIsMirrored(t *testing.T) {
	req := require.New(t)
	ts, _ := newTestServer(t, func(string) bool { return true })

	alice := dial(t, ts)
	join(t, alice, "alice")
	bob := dial(t, ts)
	join(t, bob, "bob")
	awaitPush(t, alice, TypeRoster)

	send(t, alice, 2, TypeShapeAdd, ShapeAddRequest{Kind: domain.KindEllipse})
	ack, _ := awaitAck(t, alice, 2)
	req.Equal(CodeOK, ack.Code)

	var created domain.Shape
	req.NoError(json.Unmarshal(ack.Data, &created))
	req.Equal(domain.Rect{X: 50, Y: 200, Width: 50, Height: 50}, created.Bounds)

	push := awaitPush(t, bob, TypeShapes)
	var shapes []domain.Shape
	req.NoError(json.Unmarshal(push.Payload, &shapes))
	req.Len(shapes, 1)
	req.True(shapes[0].Equal(created))
}

func TestServer_MoveStaleShape(t *testing.T) {
	req := require.New(t)
	ts, service := newTestServer(t, func(string) bool { return true })
	shape := service.AddShape(domain.KindRectangle)

	conn := dial(t, ts)
	join(t, conn, "alice")

	send(t, conn, 2, TypeShapeMove, ShapeMoveRequest{Shape: shape, DX: 5, DY: 5})
	ack, _ := awaitAck(t, conn, 2)
	req.Equal(CodeOK, ack.Code)

	// The original value is now stale; the miss is absorbed, not reported
	send(t, conn, 3, TypeShapeMove, ShapeMoveRequest{Shape: shape, DX: 5, DY: 5})
	ack, _ = awaitAck(t, conn, 3)
	req.Equal(CodeOK, ack.Code)
	req.Len(service.Board().Snapshot().Shapes, 1)
	req.Equal(domain.Rect{X: 55, Y: 55, Width: 50, Height: 50}, service.Board().Snapshot().Shapes[0].Bounds)
}

func TestServer_ChatIsModeratedAndPushed(t *testing.T) {
	req := require.New(t)
	ts, _ := newTestServer(t, func(string) bool { return true })

	conn := dial(t, ts)
	join(t, conn, "alice")

	send(t, conn, 2, TypeChat, ChatRequest{Text: "dang it"})
	ack, pushes := awaitAck(t, conn, 2)
	req.Equal(CodeOK, ack.Code)

	frame := findFrame(pushes, TypeChatLog)
	if frame == nil {
		got := awaitPush(t, conn, TypeChatLog)
		frame = &got
	}
	var history []string
	req.NoError(json.Unmarshal(frame.Payload, &history))
	req.Equal([]string{"alice: **** it"}, history)
}

func TestServer_DelegatedGesture(t *testing.T) {
	req := require.New(t)
	ts, service := newTestServer(t, func(string) bool { return true })
	service.AddShape(domain.KindRectangle)
	service.Surface().SetMode(runtime.ModeErase)

	conn := dial(t, ts)
	join(t, conn, "alice")

	send(t, conn, 2, TypePress, GestureRequest{Mode: "shape", X: 60, Y: 60})
	ack, _ := awaitAck(t, conn, 2)
	req.Equal(CodeOK, ack.Code)
	send(t, conn, 3, TypeDrag, GestureRequest{Mode: "shape", X: 80, Y: 90})
	ack, _ = awaitAck(t, conn, 3)
	req.Equal(CodeOK, ack.Code)
	send(t, conn, 4, TypeRelease, GestureRequest{Mode: "shape"})
	ack, _ = awaitAck(t, conn, 4)
	req.Equal(CodeOK, ack.Code)

	req.Equal(domain.Rect{X: 70, Y: 80, Width: 50, Height: 50}, service.Board().Snapshot().Shapes[0].Bounds)
	req.Equal(runtime.ModeErase, service.Surface().Mode())

	send(t, conn, 5, TypePress, GestureRequest{Mode: "erase", X: 0, Y: 0})
	ack, _ = awaitAck(t, conn, 5)
	req.Equal(CodeBadRequest, ack.Code)
}

func TestServer_QuitRemovesFromRoster(t *testing.T) {
	req := require.New(t)
	ts, service := newTestServer(t, func(string) bool { return true })

	alice := dial(t, ts)
	join(t, alice, "alice")
	bob := dial(t, ts)
	join(t, bob, "bob")

	send(t, bob, 2, TypeQuit, nil)
	ack, _ := awaitAck(t, bob, 2)
	req.Equal(CodeOK, ack.Code)

	req.Eventually(func() bool {
		names := service.Registry().Names()
		return len(names) == 2 && names[1] == "alice"
	}, 5*time.Second, 20*time.Millisecond)
}

func TestServer_DisconnectRetiresParticipant(t *testing.T) {
	req := require.New(t)
	ts, service := newTestServer(t, func(string) bool { return true })

	alice := dial(t, ts)
	join(t, alice, "alice")
	bob := dial(t, ts)
	join(t, bob, "bob")
	awaitPush(t, alice, TypeRoster)

	req.NoError(bob.Close())

	req.Eventually(func() bool {
		names := service.Registry().Names()
		return len(names) == 2 && names[1] == "alice"
	}, 5*time.Second, 20*time.Millisecond)

	// The survivor hears about it through a roster push
	push := awaitPush(t, alice, TypeRoster)
	var names []string
	req.NoError(json.Unmarshal(push.Payload, &names))
	req.NotContains(names, "bob")
}

func TestServer_UnknownTypeRejected(t *testing.T) {
	req := require.New(t)
	ts, _ := newTestServer(t, func(string) bool { return true })

	conn := dial(t, ts)
	join(t, conn, "alice")

	send(t, conn, 2, "bogus", nil)
	ack, _ := awaitAck(t, conn, 2)
	req.Equal(CodeBadRequest, ack.Code)
}

func findFrame(frames []Frame, frameType string) *Frame {
	for i := range frames {
		if frames[i].Type == frameType {
			return &frames[i]
		}
	}
	return nil
}
