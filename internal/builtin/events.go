package builtin

import "fmt"

// Event types. Project files and authoring tools refer to these by number.
const (
	EventCreate     = 0
	EventDestroy    = 1
	EventAlarm      = 2
	EventStep       = 3
	EventCollision  = 4
	EventKeyboard   = 5
	EventMouse      = 6
	EventOther      = 7
	EventDraw       = 8
	EventKeyPress   = 9
	EventKeyRelease = 10
	EventTrigger    = 11
)

// Step subtypes.
const (
	StepNormal = 0
	StepBegin  = 1
	StepEnd    = 2
)

// Other subtypes.
const (
	OtherOutsideRoom       = 0
	OtherIntersectBoundary = 1
	OtherGameStart         = 2
	OtherGameEnd           = 3
	OtherRoomStart         = 4
	OtherRoomEnd           = 5
	OtherNoMoreLives       = 6
	OtherAnimationEnd      = 7
	OtherPathEnd           = 8
	OtherNoMoreHealth      = 9
	OtherUser0             = 10
	OtherCloseButton       = 30
)

// NumUserEvents is the number of user-defined Other subtypes.
const NumUserEvents = 16

// Draw subtypes.
const (
	DrawNormal = 0
	DrawGUI    = 64
	DrawResize = 65
)

var eventTypeNames = map[int]string{
	EventCreate:     "Create",
	EventDestroy:    "Destroy",
	EventAlarm:      "Alarm",
	EventStep:       "Step",
	EventCollision:  "Collision",
	EventKeyboard:   "Keyboard",
	EventMouse:      "Mouse",
	EventOther:      "Other",
	EventDraw:       "Draw",
	EventKeyPress:   "KeyPress",
	EventKeyRelease: "KeyRelease",
	EventTrigger:    "Trigger",
}

var otherNames = map[int]string{
	OtherOutsideRoom:       "OutsideRoom",
	OtherIntersectBoundary: "IntersectBoundary",
	OtherGameStart:         "GameStart",
	OtherGameEnd:           "GameEnd",
	OtherRoomStart:         "RoomStart",
	OtherRoomEnd:           "RoomEnd",
	OtherNoMoreLives:       "NoMoreLives",
	OtherAnimationEnd:      "AnimationEnd",
	OtherPathEnd:           "PathEnd",
	OtherNoMoreHealth:      "NoMoreHealth",
	OtherCloseButton:       "CloseButton",
}

// Key addresses one event handler of an object.
type Key struct {
	Type    int
	Subtype int
}

func (k Key) String() string {
	name, ok := eventTypeNames[k.Type]
	if !ok {
		return fmt.Sprintf("Event(%d, %d)", k.Type, k.Subtype)
	}
	switch k.Type {
	case EventCreate, EventDestroy:
		return name
	case EventStep:
		switch k.Subtype {
		case StepBegin:
			return "BeginStep"
		case StepEnd:
			return "EndStep"
		}
		return name
	case EventOther:
		if k.Subtype >= OtherUser0 && k.Subtype < OtherUser0+NumUserEvents {
			return fmt.Sprintf("User%d", k.Subtype-OtherUser0)
		}
		if sub, ok := otherNames[k.Subtype]; ok {
			return sub
		}
	case EventDraw:
		switch k.Subtype {
		case DrawNormal:
			return name
		case DrawGUI:
			return "DrawGUI"
		case DrawResize:
			return "DrawResize"
		}
	}
	return fmt.Sprintf("%s[%d]", name, k.Subtype)
}

// Less orders keys by type then subtype.
func (k Key) Less(o Key) bool {
	if k.Type != o.Type {
		return k.Type < o.Type
	}
	return k.Subtype < o.Subtype
}
