package models

import "fmt"

type ElementType string

const (
	ElementPencil    ElementType = "pencil"
	ElementRectangle ElementType = "rectangle"
)

type Point struct {
	X float64 `json:"x" bson:"x"`
	Y float64 `json:"y" bson:"y"`
}

// Element is one drawable shape. The type tag is a closed set; Points is
// populated only for pencil strokes. Identity is the client-generated ID:
// replacing an element under the same ID is how an update is expressed.
type Element struct {
	ID          string      `json:"id" bson:"id"`
	Type        ElementType `json:"type" bson:"type"`
	X           float64     `json:"x" bson:"x"`
	Y           float64     `json:"y" bson:"y"`
	Width       float64     `json:"width" bson:"width"`
	Height      float64     `json:"height" bson:"height"`
	StrokeColor string      `json:"strokeColor,omitempty" bson:"strokeColor,omitempty"`
	Points      []Point     `json:"points,omitempty" bson:"points,omitempty"`
}

func (e Element) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("element missing id")
	}
	switch e.Type {
	case ElementPencil, ElementRectangle:
		return nil
	default:
		return fmt.Errorf("unknown element type %q", e.Type)
	}
}

// ValidateElements checks every element of a snapshot and rejects duplicate
// ids: an id appears at most once in a room's collection.
func ValidateElements(elements []Element) error {
	seen := make(map[string]struct{}, len(elements))
	for _, e := range elements {
		if err := e.Validate(); err != nil {
			return err
		}
		if _, dup := seen[e.ID]; dup {
			return fmt.Errorf("duplicate element id %q", e.ID)
		}
		seen[e.ID] = struct{}{}
	}
	return nil
}

type CursorPosition struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Participant is one connected collaborator within a room, distinct from the
// underlying websocket connection. Cursor is absent until the first cursor
// event from that participant.
type Participant struct {
	ParticipantID string          `json:"participantId"`
	Cursor        *CursorPosition `json:"cursor,omitempty"`
}

/*** Wire protocol ***/

// Frame is the envelope for every inbound and outbound websocket message.
type Frame struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Inbound event names (client -> server).
const (
	EventElementUpdate = "element-update"
	EventCursorUpdate  = "cursor-update"
)

// Outbound event names (server -> client).
const (
	EventRoomState         = "room-state"
	EventParticipantsList  = "participants-list"
	EventParticipantJoined = "participant-joined"
	EventParticipantLeft   = "participant-left"
	EventElementsUpdated   = "elements-updated"
	EventJoinError         = "join-error"
	EventLeaveError        = "leave-error"
)

// CursorBroadcast is the payload fanned out to peers on a cursor move.
type CursorBroadcast struct {
	ParticipantID string  `json:"participantId"`
	X             float64 `json:"x"`
	Y             float64 `json:"y"`
}

type ParticipantLeft struct {
	ParticipantID string `json:"participantId"`
}
