package ws

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"board-lab/contract"
	"board-lab/domain"
	"board-lab/runtime"
)

const (
	defaultOutboxSize     = 64
	defaultEnqueueTimeout = 5 * time.Second
)

var displayNamePattern = regexp.MustCompile(`^[A-Za-z0-9_ ()-]+$`)

// Server accepts participant connections, runs the join handshake, and then
// dispatches request frames serially per connection. One goroutine reads,
// the channel's writer goroutine writes; the replication service does the
// actual work.
type Server struct {
	log      *slog.Logger
	service  *runtime.Service
	approver contract.Approver
	validate *validator.Validate
	upgrader websocket.Upgrader
}

func NewServer(log *slog.Logger, service *runtime.Service, approver contract.Approver) (*Server, error) {
	validate := validator.New()
	if err := validate.RegisterValidation("displayname", func(fl validator.FieldLevel) bool {
		return displayNamePattern.MatchString(fl.Field().String())
	}); err != nil {
		return nil, err
	}
	return &Server{
		log:      log,
		service:  service,
		approver: approver,
		validate: validate,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
	}, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("Upgrade failed", "err", err)
		return
	}

	connID := uuid.NewString()
	log := s.log.With(slog.String("conn", connID))
	channel := NewChannel(log, conn, defaultOutboxSize, defaultEnqueueTimeout)

	name, ok := s.handshake(conn, channel, log)
	if !ok {
		channel.Close()
		return
	}
	log = log.With(slog.String("name", name))
	log.Info("Session open")

	s.serve(conn, channel, name, log)
}

// handshake requires the first frame to be a valid join and blocks on the
// admission decision. The join ack carries the full session state.
func (s *Server) handshake(conn *websocket.Conn, channel *Channel, log *slog.Logger) (string, bool) {
	var frame Frame
	if err := conn.ReadJSON(&frame); err != nil {
		log.Debug("Read before join failed", "err", err)
		return "", false
	}
	if frame.Type != TypeJoin {
		s.ack(channel, frame.Seq, Ack{Code: CodeBadRequest, Error: "join required"}, log)
		return "", false
	}

	var join JoinRequest
	if err := json.Unmarshal(frame.Payload, &join); err != nil {
		s.ack(channel, frame.Seq, Ack{Code: CodeBadRequest, Error: "malformed join"}, log)
		return "", false
	}
	if err := s.validate.Struct(join); err != nil {
		s.ack(channel, frame.Seq, Ack{Code: CodeBadRequest, Error: "invalid name"}, log)
		return "", false
	}

	result, err := s.service.Register(join.Name, channel, s.approver)
	if err != nil {
		s.ack(channel, frame.Seq, Ack{Code: CodeOf(err), Error: err.Error()}, log)
		return "", false
	}

	reply := JoinReply{
		Manager: result.Manager,
		Roster:  result.Roster,
		Chat:    result.Chat,
		Shapes:  result.Snapshot.Shapes,
		Strokes: result.Snapshot.Strokes,
		Labels:  result.Snapshot.Labels,
	}
	data, err := json.Marshal(reply)
	if err != nil {
		log.Error("Join reply marshal failed", "err", err)
		s.service.Quit(join.Name)
		return "", false
	}
	s.ack(channel, frame.Seq, Ack{Code: CodeOK, Data: data}, log)
	return join.Name, true
}

// serve is the per-connection request loop. Frames are handled one at a
// time in arrival order; a read failure retires the participant as a
// disconnect.
func (s *Server) serve(conn *websocket.Conn, channel *Channel, name string, log *slog.Logger) {
	for {
		var frame Frame
		if err := conn.ReadJSON(&frame); err != nil {
			log.Info("Connection lost", "err", err)
			s.service.DropChannel(channel)
			channel.Close()
			return
		}

		if frame.Type == TypeQuit {
			s.ack(channel, frame.Seq, Ack{Code: CodeOK}, log)
			s.service.Quit(name)
			channel.Close()
			log.Info("Session closed")
			return
		}

		s.ack(channel, frame.Seq, s.handle(name, frame), log)
	}
}

func (s *Server) handle(name string, frame Frame) Ack {
	switch frame.Type {
	case TypeChat:
		var req ChatRequest
		if err := json.Unmarshal(frame.Payload, &req); err != nil {
			return badPayload(err)
		}
		s.service.SendMessage(name, req.Text)
		return Ack{Code: CodeOK}

	case TypeShapeAdd:
		var req ShapeAddRequest
		if err := json.Unmarshal(frame.Payload, &req); err != nil {
			return badPayload(err)
		}
		switch req.Kind {
		case domain.KindRectangle, domain.KindEllipse, domain.KindLine:
		default:
			return Ack{Code: CodeBadRequest, Error: fmt.Sprintf("unknown kind %q", req.Kind)}
		}
		shape := s.service.AddShape(req.Kind)
		data, err := json.Marshal(shape)
		if err != nil {
			return Ack{Code: CodeError, Error: err.Error()}
		}
		return Ack{Code: CodeOK, Data: data}

	case TypeShapeMove:
		var req ShapeMoveRequest
		if err := json.Unmarshal(frame.Payload, &req); err != nil {
			return badPayload(err)
		}
		return ackFor(s.service.MoveShape(req.Shape, req.DX, req.DY))

	case TypeShapeResize:
		var req ShapeResizeRequest
		if err := json.Unmarshal(frame.Payload, &req); err != nil {
			return badPayload(err)
		}
		if req.Control < 0 || req.Control > domain.ControlBottomRight {
			return Ack{Code: CodeBadRequest, Error: "control out of range"}
		}
		return ackFor(s.service.ResizeShape(req.Shape, req.Control, req.X, req.Y))

	case TypeShapeStyle:
		var req ShapeStyleRequest
		if err := json.Unmarshal(frame.Payload, &req); err != nil {
			return badPayload(err)
		}
		return s.applyStyle(req)

	case TypeShapeLabel:
		var req ShapeLabelRequest
		if err := json.Unmarshal(frame.Payload, &req); err != nil {
			return badPayload(err)
		}
		return ackFor(s.service.SetShapeLabel(req.Shape, req.Text))

	case TypeShapeDelete:
		var req ShapeDeleteRequest
		if err := json.Unmarshal(frame.Payload, &req); err != nil {
			return badPayload(err)
		}
		s.service.DeleteShape(req.Shape)
		return Ack{Code: CodeOK}

	case TypeStrokeAdd:
		var req StrokeAddRequest
		if err := json.Unmarshal(frame.Payload, &req); err != nil {
			return badPayload(err)
		}
		s.service.AddStroke(req.Stroke)
		return Ack{Code: CodeOK}

	case TypeStrokeErase:
		var req StrokeEraseRequest
		if err := json.Unmarshal(frame.Payload, &req); err != nil {
			return badPayload(err)
		}
		s.service.EraseStrokes(req.Eraser)
		return Ack{Code: CodeOK}

	case TypeLabelAdd:
		var req LabelAddRequest
		if err := json.Unmarshal(frame.Payload, &req); err != nil {
			return badPayload(err)
		}
		s.service.AddLabel(req.Label)
		return Ack{Code: CodeOK}

	case TypeLabelText:
		var req LabelTextRequest
		if err := json.Unmarshal(frame.Payload, &req); err != nil {
			return badPayload(err)
		}
		return ackFor(s.service.SetLabelText(req.Label, req.Text))

	case TypeLabelColor:
		var req LabelColorRequest
		if err := json.Unmarshal(frame.Payload, &req); err != nil {
			return badPayload(err)
		}
		return ackFor(s.service.SetLabelColor(req.Label, req.Color))

	case TypeLabelMove:
		var req LabelMoveRequest
		if err := json.Unmarshal(frame.Payload, &req); err != nil {
			return badPayload(err)
		}
		return ackFor(s.service.MoveLabel(req.Label, req.DX, req.DY))

	case TypeLabelDelete:
		var req LabelDeleteRequest
		if err := json.Unmarshal(frame.Payload, &req); err != nil {
			return badPayload(err)
		}
		s.service.DeleteLabel(req.Label)
		return Ack{Code: CodeOK}

	case TypePress, TypeDrag, TypeRelease:
		var req GestureRequest
		if err := json.Unmarshal(frame.Payload, &req); err != nil {
			return badPayload(err)
		}
		mode, ok := gestureMode(req.Mode)
		if !ok {
			return Ack{Code: CodeBadRequest, Error: fmt.Sprintf("mode %q not delegable", req.Mode)}
		}
		switch frame.Type {
		case TypePress:
			s.service.PressAs(mode, req.X, req.Y)
		case TypeDrag:
			s.service.DragAs(mode, req.X, req.Y)
		case TypeRelease:
			s.service.ReleaseAs(mode)
		}
		return Ack{Code: CodeOK}

	default:
		return Ack{Code: CodeBadRequest, Error: fmt.Sprintf("unknown type %q", frame.Type)}
	}
}

// applyStyle applies each requested color aspect in order and stops at the
// first failure.
func (s *Server) applyStyle(req ShapeStyleRequest) Ack {
	ref := req.Shape
	if req.BorderColor != nil {
		if err := s.service.SetShapeBorderColor(ref, *req.BorderColor); err != nil {
			return ackFor(err)
		}
		ref.BorderColor = *req.BorderColor
	}
	if req.FillColor != nil {
		if err := s.service.SetShapeFillColor(ref, *req.FillColor); err != nil {
			return ackFor(err)
		}
		fill := *req.FillColor
		ref.FillColor = &fill
	}
	if req.LabelColor != nil {
		if err := s.service.SetShapeLabelColor(ref, *req.LabelColor); err != nil {
			return ackFor(err)
		}
	}
	return Ack{Code: CodeOK}
}

// gestureMode maps the wire mode onto a host surface mode. Only shape and
// text gestures are delegable; freehand drawing and erasing go through
// their own request types.
func gestureMode(mode string) (runtime.Mode, bool) {
	switch mode {
	case string(runtime.ModeShape):
		return runtime.ModeShape, true
	case string(runtime.ModeText):
		return runtime.ModeText, true
	default:
		return "", false
	}
}

func (s *Server) ack(channel *Channel, seq uint64, ack Ack, log *slog.Logger) {
	if err := channel.Ack(seq, ack); err != nil {
		log.Debug("Ack undeliverable", "err", err)
	}
}

func ackFor(err error) Ack {
	if err != nil {
		return Ack{Code: CodeOf(err), Error: err.Error()}
	}
	return Ack{Code: CodeOK}
}

func badPayload(err error) Ack {
	return Ack{Code: CodeBadRequest, Error: err.Error()}
}
