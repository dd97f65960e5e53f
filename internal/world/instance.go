package world

import (
	"math"

	"gml-vm/internal/builtin"
	"gml-vm/internal/program"
	"gml-vm/internal/value"
	"gml-vm/internal/vm"
)

// Instance is one live object instance.
type Instance struct {
	id     int
	object *program.Object // nil for the scratch instance room code runs in
	fields *value.Namespace

	active  bool // false once marked for destruction
	removed bool
	outside bool // was outside the room after the last motion phase
	fresh   bool // created during the step in progress

	x, y                 float64
	xprevious, yprevious float64
	xstart, ystart       float64
	hspeed, vspeed       float64
	speed, direction     float64
	friction             float64
	gravity              float64
	gravityDirection     float64

	depth      float64
	visible    bool
	persistent bool
	solid      bool

	spriteIndex int
	imageIndex  float64
	imageSpeed  float64
	imageXScale float64
	imageYScale float64

	alarms []int
}

func newInstance(id int, object *program.Object, x, y float64, alarmSlots int) *Instance {
	inst := &Instance{
		id:          id,
		object:      object,
		fields:      value.NewNamespace(),
		active:      true,
		x:           x,
		y:           y,
		xprevious:   x,
		yprevious:   y,
		xstart:      x,
		ystart:      y,
		visible:     true,
		spriteIndex: -1,
		imageSpeed:  1,
		imageXScale: 1,
		imageYScale: 1,
		alarms:      make([]int, alarmSlots),
	}
	for i := range inst.alarms {
		inst.alarms[i] = -1
	}
	if object != nil {
		inst.depth = object.Depth
		inst.visible = object.Visible
		inst.persistent = object.Persistent
		inst.spriteIndex = object.Sprite
	}
	return inst
}

func (i *Instance) ID() int                  { return i.id }
func (i *Instance) Fields() *value.Namespace { return i.fields }
func (i *Instance) Active() bool             { return i.active }

// ObjectIndex is -1 for the scratch instance.
func (i *Instance) ObjectIndex() int {
	if i.object == nil {
		return -1
	}
	return i.object.Index
}

func (i *Instance) objectName() string {
	if i.object == nil {
		return "<room>"
	}
	return i.object.Name
}

// Position reports x and y.
func (i *Instance) Position() (float64, float64) { return i.x, i.y }

func (i *Instance) setVelocity(hspeed, vspeed float64) {
	i.hspeed, i.vspeed = hspeed, vspeed
	i.speed = math.Hypot(hspeed, vspeed)
	i.direction = normalizeDegrees(math.Atan2(-vspeed, hspeed) * 180 / math.Pi)
}

func (i *Instance) setMotion(direction, speed float64) {
	i.direction, i.speed = direction, speed
	rad := direction * math.Pi / 180
	i.hspeed = speed * math.Cos(rad)
	i.vspeed = -speed * math.Sin(rad)
}

func normalizeDegrees(d float64) float64 {
	d = math.Mod(d, 360)
	if d < 0 {
		d += 360
	}
	return d
}

// box is the instance's bounding box in room coordinates, inclusive.
type box struct {
	left, top, right, bottom float64
}

func (b box) overlaps(o box) bool {
	return b.left <= o.right && o.left <= b.right && b.top <= o.bottom && o.top <= b.bottom
}

// bbox reports the instance's bounding box; ok is false without a sprite or
// when the sprite has no opaque pixels.
func (w *World) bbox(inst *Instance) (box, bool) {
	spr := w.sprite(inst.spriteIndex)
	if spr == nil || spr.BBox.Empty() {
		return box{inst.x, inst.y, inst.x, inst.y}, false
	}
	l := (float64(spr.BBox.Left-spr.OriginX))*inst.imageXScale + inst.x
	r := (float64(spr.BBox.Right+1-spr.OriginX))*inst.imageXScale + inst.x - 1
	t := (float64(spr.BBox.Top-spr.OriginY))*inst.imageYScale + inst.y
	b := (float64(spr.BBox.Bottom+1-spr.OriginY))*inst.imageYScale + inst.y - 1
	if l > r {
		l, r = r, l
	}
	if t > b {
		t, b = b, t
	}
	return box{left: l, top: t, right: r, bottom: b}, true
}

func (w *World) sprite(index int) *program.Sprite {
	if index < 0 || index >= len(w.prog.Sprites) {
		return nil
	}
	return w.prog.Sprites[index]
}

func number(name string, v value.Value) (float64, error) {
	f, ok := v.Number()
	if !ok {
		return 0, vm.Errorf(vm.TypeUnary, "cannot assign %s to '%s'", v.TypeName(), name)
	}
	return f, nil
}

func (w *World) getInstanceVar(inst *Instance, variable, index int) (value.Value, error) {
	switch variable {
	case builtin.VarX:
		return value.NewReal(inst.x), nil
	case builtin.VarY:
		return value.NewReal(inst.y), nil
	case builtin.VarXPrevious:
		return value.NewReal(inst.xprevious), nil
	case builtin.VarYPrevious:
		return value.NewReal(inst.yprevious), nil
	case builtin.VarXStart:
		return value.NewReal(inst.xstart), nil
	case builtin.VarYStart:
		return value.NewReal(inst.ystart), nil
	case builtin.VarHSpeed:
		return value.NewReal(inst.hspeed), nil
	case builtin.VarVSpeed:
		return value.NewReal(inst.vspeed), nil
	case builtin.VarSpeed:
		return value.NewReal(inst.speed), nil
	case builtin.VarDirection:
		return value.NewReal(inst.direction), nil
	case builtin.VarFriction:
		return value.NewReal(inst.friction), nil
	case builtin.VarGravity:
		return value.NewReal(inst.gravity), nil
	case builtin.VarGravityDirection:
		return value.NewReal(inst.gravityDirection), nil
	case builtin.VarDepth:
		return value.NewReal(inst.depth), nil
	case builtin.VarVisible:
		return value.NewBool(inst.visible), nil
	case builtin.VarPersistent:
		return value.NewBool(inst.persistent), nil
	case builtin.VarSolid:
		return value.NewBool(inst.solid), nil
	case builtin.VarSpriteIndex:
		return value.NewInt(inst.spriteIndex), nil
	case builtin.VarSpriteWidth, builtin.VarSpriteHeight, builtin.VarImageNumber:
		spr := w.sprite(inst.spriteIndex)
		if spr == nil {
			return value.NewReal(0), nil
		}
		switch variable {
		case builtin.VarSpriteWidth:
			return value.NewReal(float64(spr.Width) * inst.imageXScale), nil
		case builtin.VarSpriteHeight:
			return value.NewReal(float64(spr.Height) * inst.imageYScale), nil
		}
		return value.NewInt(spr.Frames), nil
	case builtin.VarImageIndex:
		return value.NewReal(inst.imageIndex), nil
	case builtin.VarImageSpeed:
		return value.NewReal(inst.imageSpeed), nil
	case builtin.VarImageXScale:
		return value.NewReal(inst.imageXScale), nil
	case builtin.VarImageYScale:
		return value.NewReal(inst.imageYScale), nil
	case builtin.VarBBoxLeft, builtin.VarBBoxRight, builtin.VarBBoxTop, builtin.VarBBoxBottom:
		b, _ := w.bbox(inst)
		edge := b.left
		switch variable {
		case builtin.VarBBoxRight:
			edge = b.right
		case builtin.VarBBoxTop:
			edge = b.top
		case builtin.VarBBoxBottom:
			edge = b.bottom
		}
		return value.NewReal(edge), nil
	case builtin.VarID:
		return value.NewInt(inst.id), nil
	case builtin.VarObjectIndex:
		return value.NewInt(inst.ObjectIndex()), nil
	case builtin.VarAlarm:
		if index < 0 || index >= len(inst.alarms) {
			return value.Undefined, vm.Errorf(vm.Bounds, "alarm index %d is out of range", index)
		}
		return value.NewInt(inst.alarms[index]), nil
	}
	return value.Undefined, vm.Errorf(vm.Name, "'%s' is not an instance variable", builtin.VariableAt(variable).Name)
}

func (w *World) setInstanceVar(inst *Instance, variable, index int, v value.Value) error {
	name := builtin.VariableAt(variable).Name
	f, err := number(name, v)
	if err != nil {
		return err
	}

	switch variable {
	case builtin.VarX:
		inst.x = f
	case builtin.VarY:
		inst.y = f
	case builtin.VarXPrevious:
		inst.xprevious = f
	case builtin.VarYPrevious:
		inst.yprevious = f
	case builtin.VarXStart:
		inst.xstart = f
	case builtin.VarYStart:
		inst.ystart = f
	case builtin.VarHSpeed:
		inst.setVelocity(f, inst.vspeed)
	case builtin.VarVSpeed:
		inst.setVelocity(inst.hspeed, f)
	case builtin.VarSpeed:
		inst.setMotion(inst.direction, f)
	case builtin.VarDirection:
		inst.setMotion(normalizeDegrees(f), inst.speed)
	case builtin.VarFriction:
		inst.friction = f
	case builtin.VarGravity:
		inst.gravity = f
	case builtin.VarGravityDirection:
		inst.gravityDirection = f
	case builtin.VarDepth:
		inst.depth = f
	case builtin.VarVisible:
		inst.visible = value.ToBool(f)
	case builtin.VarPersistent:
		inst.persistent = value.ToBool(f)
	case builtin.VarSolid:
		inst.solid = value.ToBool(f)
	case builtin.VarSpriteIndex:
		inst.spriteIndex = int(value.ToInt32(f))
	case builtin.VarImageIndex:
		inst.imageIndex = f
	case builtin.VarImageSpeed:
		inst.imageSpeed = f
	case builtin.VarImageXScale:
		inst.imageXScale = f
	case builtin.VarImageYScale:
		inst.imageYScale = f
	case builtin.VarAlarm:
		if index < 0 || index >= len(inst.alarms) {
			return vm.Errorf(vm.Bounds, "alarm index %d is out of range", index)
		}
		inst.alarms[index] = int(value.ToInt32(f))
	default:
		return vm.Errorf(vm.Write, "variable '%s' is read-only", name)
	}
	return nil
}
