package builtin

import "strconv"

// Owner says where a built-in variable's storage lives.
type Owner int

const (
	OwnerInstance Owner = iota // per-instance engine state
	OwnerGlobal                // world state, the same from every instance
	OwnerArgument              // the running script's arguments, handled by the VM
)

// Variable describes one engine-provided variable name.
type Variable struct {
	Name     string
	Owner    Owner
	ReadOnly bool
	Array    bool // indexable, like alarm[n] or instance_id[n]
}

// Variable indices. The order is the table order below.
const (
	VarX = iota
	VarY
	VarXPrevious
	VarYPrevious
	VarXStart
	VarYStart
	VarHSpeed
	VarVSpeed
	VarSpeed
	VarDirection
	VarFriction
	VarGravity
	VarGravityDirection
	VarDepth
	VarVisible
	VarPersistent
	VarSolid
	VarSpriteIndex
	VarSpriteWidth
	VarSpriteHeight
	VarImageIndex
	VarImageSpeed
	VarImageNumber
	VarImageXScale
	VarImageYScale
	VarBBoxLeft
	VarBBoxRight
	VarBBoxTop
	VarBBoxBottom
	VarID
	VarObjectIndex
	VarAlarm
	VarInstanceCount
	VarInstanceID
	VarRoom
	VarRoomFirst
	VarRoomLast
	VarRoomWidth
	VarRoomHeight
	VarRoomSpeed
	VarScore
	VarLives
	VarHealth
	VarArgument
	VarArgumentCount
	VarArgument0
)

// MaxArguments is the number of argumentN names.
const MaxArguments = 16

var variables = []Variable{
	VarX:                {Name: "x"},
	VarY:                {Name: "y"},
	VarXPrevious:        {Name: "xprevious"},
	VarYPrevious:        {Name: "yprevious"},
	VarXStart:           {Name: "xstart"},
	VarYStart:           {Name: "ystart"},
	VarHSpeed:           {Name: "hspeed"},
	VarVSpeed:           {Name: "vspeed"},
	VarSpeed:            {Name: "speed"},
	VarDirection:        {Name: "direction"},
	VarFriction:         {Name: "friction"},
	VarGravity:          {Name: "gravity"},
	VarGravityDirection: {Name: "gravity_direction"},
	VarDepth:            {Name: "depth"},
	VarVisible:          {Name: "visible"},
	VarPersistent:       {Name: "persistent"},
	VarSolid:            {Name: "solid"},
	VarSpriteIndex:      {Name: "sprite_index"},
	VarSpriteWidth:      {Name: "sprite_width", ReadOnly: true},
	VarSpriteHeight:     {Name: "sprite_height", ReadOnly: true},
	VarImageIndex:       {Name: "image_index"},
	VarImageSpeed:       {Name: "image_speed"},
	VarImageNumber:      {Name: "image_number", ReadOnly: true},
	VarImageXScale:      {Name: "image_xscale"},
	VarImageYScale:      {Name: "image_yscale"},
	VarBBoxLeft:         {Name: "bbox_left", ReadOnly: true},
	VarBBoxRight:        {Name: "bbox_right", ReadOnly: true},
	VarBBoxTop:          {Name: "bbox_top", ReadOnly: true},
	VarBBoxBottom:       {Name: "bbox_bottom", ReadOnly: true},
	VarID:               {Name: "id", ReadOnly: true},
	VarObjectIndex:      {Name: "object_index", ReadOnly: true},
	VarAlarm:            {Name: "alarm", Array: true},
	VarInstanceCount:    {Name: "instance_count", Owner: OwnerGlobal, ReadOnly: true},
	VarInstanceID:       {Name: "instance_id", Owner: OwnerGlobal, ReadOnly: true, Array: true},
	VarRoom:             {Name: "room", Owner: OwnerGlobal},
	VarRoomFirst:        {Name: "room_first", Owner: OwnerGlobal, ReadOnly: true},
	VarRoomLast:         {Name: "room_last", Owner: OwnerGlobal, ReadOnly: true},
	VarRoomWidth:        {Name: "room_width", Owner: OwnerGlobal, ReadOnly: true},
	VarRoomHeight:       {Name: "room_height", Owner: OwnerGlobal, ReadOnly: true},
	VarRoomSpeed:        {Name: "room_speed", Owner: OwnerGlobal},
	VarScore:            {Name: "score", Owner: OwnerGlobal},
	VarLives:            {Name: "lives", Owner: OwnerGlobal},
	VarHealth:           {Name: "health", Owner: OwnerGlobal},
	VarArgument:         {Name: "argument", Owner: OwnerArgument, Array: true},
	VarArgumentCount:    {Name: "argument_count", Owner: OwnerArgument, ReadOnly: true},
}

var byName map[string]int

func init() {
	for i := 0; i < MaxArguments; i++ {
		variables = append(variables, Variable{Name: "argument" + strconv.Itoa(i), Owner: OwnerArgument})
	}
	byName = make(map[string]int, len(variables))
	for i, v := range variables {
		byName[v.Name] = i
	}
}

// LookupVariable returns the table index of a built-in variable name.
func LookupVariable(name string) (int, bool) {
	i, ok := byName[name]
	return i, ok
}

// VariableAt returns the table entry for index i.
func VariableAt(i int) Variable {
	return variables[i]
}

// NumVariables is the size of the table.
func NumVariables() int { return len(variables) }

// ArgumentIndex reports which positional argument a table index names, for
// argument0 through argument15.
func ArgumentIndex(i int) (int, bool) {
	if i >= VarArgument0 && i < VarArgument0+MaxArguments {
		return i - VarArgument0, true
	}
	return 0, false
}
