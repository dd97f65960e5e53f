package builtin

import (
	"math"
	"strconv"

	"gml-vm/internal/value"
)

// Special scope values accepted wherever an instance is expected.
const (
	ScopeSelf   = -1
	ScopeOther  = -2
	ScopeAll    = -3
	ScopeNoone  = -4
	ScopeGlobal = -5
	ScopeLocal  = -7
)

// External call conventions and argument types.
const (
	DllCdecl   = 0
	DllStdcall = 1
	TyReal     = 0
	TyString   = 1
)

var constants = map[string]value.Value{
	"true":  value.NewReal(1),
	"false": value.NewReal(0),
	"pi":    value.NewReal(math.Pi),

	"self":   value.NewReal(ScopeSelf),
	"other":  value.NewReal(ScopeOther),
	"all":    value.NewReal(ScopeAll),
	"noone":  value.NewReal(ScopeNoone),
	"global": value.NewReal(ScopeGlobal),
	"local":  value.NewReal(ScopeLocal),

	"ev_create":      value.NewReal(EventCreate),
	"ev_destroy":     value.NewReal(EventDestroy),
	"ev_alarm":       value.NewReal(EventAlarm),
	"ev_step":        value.NewReal(EventStep),
	"ev_collision":   value.NewReal(EventCollision),
	"ev_keyboard":    value.NewReal(EventKeyboard),
	"ev_mouse":       value.NewReal(EventMouse),
	"ev_other":       value.NewReal(EventOther),
	"ev_draw":        value.NewReal(EventDraw),
	"ev_keypress":    value.NewReal(EventKeyPress),
	"ev_keyrelease":  value.NewReal(EventKeyRelease),
	"ev_trigger":     value.NewReal(EventTrigger),
	"ev_step_normal": value.NewReal(StepNormal),
	"ev_step_begin":  value.NewReal(StepBegin),
	"ev_step_end":    value.NewReal(StepEnd),

	"ev_outside":        value.NewReal(OtherOutsideRoom),
	"ev_boundary":       value.NewReal(OtherIntersectBoundary),
	"ev_game_start":     value.NewReal(OtherGameStart),
	"ev_game_end":       value.NewReal(OtherGameEnd),
	"ev_room_start":     value.NewReal(OtherRoomStart),
	"ev_room_end":       value.NewReal(OtherRoomEnd),
	"ev_no_more_lives":  value.NewReal(OtherNoMoreLives),
	"ev_animation_end":  value.NewReal(OtherAnimationEnd),
	"ev_end_of_path":    value.NewReal(OtherPathEnd),
	"ev_no_more_health": value.NewReal(OtherNoMoreHealth),
	"ev_close_button":   value.NewReal(OtherCloseButton),
	"ev_gui":            value.NewReal(DrawGUI),
	"ev_draw_resize":    value.NewReal(DrawResize),

	"dll_cdecl":   value.NewReal(DllCdecl),
	"dll_stdcall": value.NewReal(DllStdcall),
	"ty_real":     value.NewReal(TyReal),
	"ty_string":   value.NewReal(TyString),

	// Colors are packed 0xBBGGRR.
	"c_aqua":    value.NewReal(0xFFFF00),
	"c_black":   value.NewReal(0x000000),
	"c_blue":    value.NewReal(0xFF0000),
	"c_dkgray":  value.NewReal(0x404040),
	"c_fuchsia": value.NewReal(0xFF00FF),
	"c_gray":    value.NewReal(0x808080),
	"c_green":   value.NewReal(0x008000),
	"c_lime":    value.NewReal(0x00FF00),
	"c_ltgray":  value.NewReal(0xC0C0C0),
	"c_maroon":  value.NewReal(0x000080),
	"c_navy":    value.NewReal(0x800000),
	"c_olive":   value.NewReal(0x008080),
	"c_orange":  value.NewReal(0x40A0FF),
	"c_purple":  value.NewReal(0x800080),
	"c_red":     value.NewReal(0x0000FF),
	"c_silver":  value.NewReal(0xC0C0C0),
	"c_teal":    value.NewReal(0x808000),
	"c_white":   value.NewReal(0xFFFFFF),
	"c_yellow":  value.NewReal(0x00FFFF),
}

func init() {
	for i := 0; i < NumUserEvents; i++ {
		constants["ev_user"+strconv.Itoa(i)] = value.NewReal(float64(OtherUser0 + i))
	}
}

// LookupConstant returns the value of a named constant.
func LookupConstant(name string) (value.Value, bool) {
	v, ok := constants[name]
	return v, ok
}
