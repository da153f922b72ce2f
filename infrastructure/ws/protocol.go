// Package ws is the wire layer: a websocket endpoint speaking JSON frames.
// A participant sends numbered requests and receives one ack per request;
// the host pushes unnumbered frames whenever shared state changes.
package ws

import (
	"encoding/json"
	stderrors "errors"

	"board-lab/domain"
	"board-lab/errors"
)

// Frame is the envelope for every message in both directions. Requests
// carry a client-chosen Seq which the matching ack echoes back; pushes have
// no Seq.
type Frame struct {
	Seq     uint64          `json:"seq,omitempty"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Request frame types, participant to host.
const (
	TypeJoin        = "join"
	TypeQuit        = "quit"
	TypeChat        = "chat"
	TypeShapeAdd    = "shape.add"
	TypeShapeMove   = "shape.move"
	TypeShapeResize = "shape.resize"
	TypeShapeStyle  = "shape.style"
	TypeShapeLabel  = "shape.label"
	TypeShapeDelete = "shape.delete"
	TypeStrokeAdd   = "stroke.add"
	TypeStrokeErase = "stroke.erase"
	TypeLabelAdd    = "label.add"
	TypeLabelText   = "label.text"
	TypeLabelColor  = "label.color"
	TypeLabelMove   = "label.move"
	TypeLabelDelete = "label.delete"
	TypePress       = "press"
	TypeDrag        = "drag"
	TypeRelease     = "release"
)

// Push frame types, host to participant.
const (
	TypeAck      = "ack"
	TypeShapes   = "shapes"
	TypeStrokes  = "strokes"
	TypeLabels   = "labels"
	TypeRoster   = "roster"
	TypeChatLog  = "chatlog"
	TypeEvicted  = "evicted"
	TypeShutdown = "shutdown"
)

// Ack status codes.
const (
	CodeOK            = "ok"
	CodeDuplicateName = "duplicate_name"
	CodeDenied        = "denied"
	CodeNotFound      = "not_found"
	CodeBadRequest    = "bad_request"
	CodeError         = "error"
)

// JoinRequest opens a session. The name doubles as the participant's
// identity for the whole session, hence the restrictive charset.
type JoinRequest struct {
	Name string `json:"name" validate:"required,max=32,displayname"`
}

// JoinReply is the payload of a successful join ack: everything needed to
// render the session from scratch.
type JoinReply struct {
	Manager string          `json:"manager"`
	Roster  []string        `json:"roster"`
	Chat    []string        `json:"chat"`
	Shapes  []domain.Shape  `json:"shapes"`
	Strokes []domain.Stroke `json:"strokes"`
	Labels  []domain.Label  `json:"labels"`
}

// Ack answers exactly one request frame.
type Ack struct {
	Code  string          `json:"code"`
	Error string          `json:"error,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type ChatRequest struct {
	Text string `json:"text"`
}

type ShapeAddRequest struct {
	Kind domain.ShapeKind `json:"kind"`
}

type ShapeMoveRequest struct {
	Shape domain.Shape `json:"shape"`
	DX    float64      `json:"dx"`
	DY    float64      `json:"dy"`
}

type ShapeResizeRequest struct {
	Shape   domain.Shape `json:"shape"`
	Control int          `json:"control"`
	X       float64      `json:"x"`
	Y       float64      `json:"y"`
}

// ShapeStyleRequest updates one optional aspect per non-nil field.
type ShapeStyleRequest struct {
	Shape       domain.Shape  `json:"shape"`
	BorderColor *domain.Color `json:"borderColor,omitempty"`
	FillColor   *domain.Color `json:"fillColor,omitempty"`
	LabelColor  *domain.Color `json:"labelColor,omitempty"`
}

type ShapeLabelRequest struct {
	Shape domain.Shape `json:"shape"`
	Text  string       `json:"text"`
}

type ShapeDeleteRequest struct {
	Shape domain.Shape `json:"shape"`
}

type StrokeAddRequest struct {
	Stroke domain.Stroke `json:"stroke"`
}

type StrokeEraseRequest struct {
	Eraser domain.Circle `json:"eraser"`
}

type LabelAddRequest struct {
	Label domain.Label `json:"label"`
}

type LabelTextRequest struct {
	Label domain.Label `json:"label"`
	Text  string       `json:"text"`
}

type LabelColorRequest struct {
	Label domain.Label `json:"label"`
	Color domain.Color `json:"color"`
}

type LabelMoveRequest struct {
	Label domain.Label `json:"label"`
	DX    float64      `json:"dx"`
	DY    float64      `json:"dy"`
}

type LabelDeleteRequest struct {
	Label domain.Label `json:"label"`
}

// GestureRequest is a raw pointer event delegated to the host surface under
// an explicit mode. Release carries no coordinates worth reading.
type GestureRequest struct {
	Mode string  `json:"mode"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

// CodeOf maps a service error onto its wire code.
func CodeOf(err error) string {
	switch {
	case err == nil:
		return CodeOK
	case stderrors.Is(err, errors.ErrDuplicateName):
		return CodeDuplicateName
	case stderrors.Is(err, errors.ErrDeniedByApprover):
		return CodeDenied
	case stderrors.Is(err, errors.ErrNotFound):
		return CodeNotFound
	default:
		return CodeError
	}
}
