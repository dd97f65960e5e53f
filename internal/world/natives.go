package world

import (
	"math"
	"strings"

	"gml-vm/internal/builtin"
	"gml-vm/internal/value"
	"gml-vm/internal/vm"
)

func errRoom(room int) error {
	return vm.Errorf(vm.Resource, "the room with index %d does not exist", room)
}

// self returns the running instance as a world instance.
func self(name string, ctx *vm.Context) (*Instance, error) {
	if inst, ok := ctx.Self.(*Instance); ok && inst != nil {
		return inst, nil
	}
	return nil, vm.Errorf(vm.Scope, "%s needs a calling instance", name)
}

func other(ctx *vm.Context) *Instance {
	if inst, ok := ctx.Other.(*Instance); ok {
		return inst
	}
	return nil
}

func (w *World) registerNatives(t *vm.NativeTable) {
	w.registerInstances(t)
	w.registerEvents(t)
	w.registerRooms(t)
	w.registerCode(t)
	w.registerMotion(t)
	w.registerDraw(t)
	w.registerINI(t)
}

func (w *World) registerInstances(t *vm.NativeTable) {
	t.Define("instance_create", 3, func(ctx *vm.Context, args []value.Value) (value.Value, error) {
		x, err := vm.Real("instance_create", args, 0)
		if err != nil {
			return value.Undefined, err
		}
		y, err := vm.Real("instance_create", args, 1)
		if err != nil {
			return value.Undefined, err
		}
		obj, err := vm.Int("instance_create", args, 2)
		if err != nil {
			return value.Undefined, err
		}
		if obj < 0 || obj >= len(w.prog.Objects) {
			return value.Undefined, vm.Errorf(vm.Resource, "the object with index %d does not exist", obj)
		}
		creator, _ := ctx.Self.(*Instance)
		if creator != nil && creator.object == nil {
			creator = nil
		}
		return value.NewInt(w.create(obj, x, y, creator).id), nil
	})

	t.Define("instance_destroy", -1, func(ctx *vm.Context, args []value.Value) (value.Value, error) {
		switch len(args) {
		case 0:
			inst, err := self("instance_destroy", ctx)
			if err != nil {
				return value.Undefined, err
			}
			inst.active = false
		case 1:
			target, err := vm.Real("instance_destroy", args, 0)
			if err != nil {
				return value.Undefined, err
			}
			for _, inst := range w.Lookup(target) {
				inst.(*Instance).active = false
			}
		default:
			return value.Undefined, vm.Errorf(vm.Arity, "instance_destroy takes at most 1 argument, got %d", len(args))
		}
		return value.Undefined, nil
	})

	t.Define("instance_exists", 1, func(ctx *vm.Context, args []value.Value) (value.Value, error) {
		target, err := vm.Real("instance_exists", args, 0)
		if err != nil {
			return value.Undefined, err
		}
		return value.NewBool(len(w.Lookup(target)) > 0), nil
	})

	t.Define("instance_number", 1, func(ctx *vm.Context, args []value.Value) (value.Value, error) {
		target, err := vm.Real("instance_number", args, 0)
		if err != nil {
			return value.Undefined, err
		}
		return value.NewInt(len(w.Lookup(target))), nil
	})

	t.Define("instance_find", 2, func(ctx *vm.Context, args []value.Value) (value.Value, error) {
		target, err := vm.Real("instance_find", args, 0)
		if err != nil {
			return value.Undefined, err
		}
		n, err := vm.Int("instance_find", args, 1)
		if err != nil {
			return value.Undefined, err
		}
		found := w.Lookup(target)
		if n < 0 || n >= len(found) {
			return value.NewInt(builtin.ScopeNoone), nil
		}
		return value.NewInt(found[n].ID()), nil
	})
}

// registerEvents defines event_user and event_perform. Unlike dispatch from
// the step loop, errors raised by the performed event propagate to the
// caller.
func (w *World) registerEvents(t *vm.NativeTable) {
	perform := func(name string, ctx *vm.Context, key builtin.Key) (value.Value, error) {
		inst, err := self(name, ctx)
		if err != nil {
			return value.Undefined, err
		}
		if inst.object == nil {
			return value.Undefined, nil
		}
		code := inst.object.Event(key)
		if code == nil {
			return value.Undefined, nil
		}
		var oth vm.Instance = inst
		if o := other(ctx); o != nil {
			oth = o
		}
		_, err = w.vm.Execute(code, inst, oth)
		return value.Undefined, err
	}

	t.Define("event_user", 1, func(ctx *vm.Context, args []value.Value) (value.Value, error) {
		n, err := vm.Int("event_user", args, 0)
		if err != nil {
			return value.Undefined, err
		}
		if n < 0 || n >= builtin.NumUserEvents {
			return value.Undefined, vm.Errorf(vm.Bounds, "user event %d is out of range", n)
		}
		return perform("event_user", ctx, builtin.Key{Type: builtin.EventOther, Subtype: builtin.OtherUser0 + n})
	})

	t.Define("event_perform", 2, func(ctx *vm.Context, args []value.Value) (value.Value, error) {
		typ, err := vm.Int("event_perform", args, 0)
		if err != nil {
			return value.Undefined, err
		}
		sub, err := vm.Int("event_perform", args, 1)
		if err != nil {
			return value.Undefined, err
		}
		return perform("event_perform", ctx, builtin.Key{Type: typ, Subtype: sub})
	})
}

func (w *World) registerRooms(t *vm.NativeTable) {
	t.Define("room_goto", 1, func(ctx *vm.Context, args []value.Value) (value.Value, error) {
		room, err := vm.Int("room_goto", args, 0)
		if err != nil {
			return value.Undefined, err
		}
		return value.Undefined, w.gotoRoom(room)
	})
	t.Define("room_goto_next", 0, func(ctx *vm.Context, args []value.Value) (value.Value, error) {
		return value.Undefined, w.gotoRoom(w.room + 1)
	})
	t.Define("room_goto_previous", 0, func(ctx *vm.Context, args []value.Value) (value.Value, error) {
		return value.Undefined, w.gotoRoom(w.room - 1)
	})
	t.Define("room_restart", 0, func(ctx *vm.Context, args []value.Value) (value.Value, error) {
		return value.Undefined, w.gotoRoom(w.room)
	})
	t.Define("game_end", 0, func(ctx *vm.Context, args []value.Value) (value.Value, error) {
		w.ending = true
		return value.Undefined, nil
	})
}

func (w *World) registerCode(t *vm.NativeTable) {
	t.Define("script_execute", -1, func(ctx *vm.Context, args []value.Value) (value.Value, error) {
		if len(args) < 1 {
			return value.Undefined, vm.Errorf(vm.Arity, "script_execute expects at least 1 argument, got 0")
		}
		index, err := vm.Int("script_execute", args, 0)
		if err != nil {
			return value.Undefined, err
		}
		if index < 0 || index >= len(w.prog.ScriptNames) {
			return value.Undefined, vm.Errorf(vm.Resource, "the script with index %d does not exist", index)
		}
		code, ok := w.prog.Script(w.prog.ScriptNames[index])
		if !ok {
			return value.Undefined, vm.Errorf(vm.UnknownFunction, "script %s failed to compile", w.prog.ScriptNames[index])
		}
		if len(args)-1 > builtin.MaxArguments {
			return value.Undefined, vm.Errorf(vm.Arity, "script %s takes at most %d arguments, got %d", w.prog.ScriptNames[index], builtin.MaxArguments, len(args)-1)
		}
		return w.vm.Execute(code, ctx.Self, ctx.Other, append([]value.Value(nil), args[1:]...)...)
	})

	t.Define("execute_string", -1, func(ctx *vm.Context, args []value.Value) (value.Value, error) {
		if len(args) < 1 {
			return value.Undefined, vm.Errorf(vm.Arity, "execute_string expects at least 1 argument, got 0")
		}
		src, err := vm.String("execute_string", args, 0)
		if err != nil {
			return value.Undefined, err
		}
		code, err := w.prog.CompileString("execute_string", src)
		if err != nil {
			return value.Undefined, vm.Errorf(vm.Other, "execute_string: %v", err)
		}
		return w.vm.Execute(code, ctx.Self, ctx.Other, append([]value.Value(nil), args[1:]...)...)
	})

	t.Define("show_debug_message", -1, func(ctx *vm.Context, args []value.Value) (value.Value, error) {
		parts := make([]string, len(args))
		for i, a := range args {
			parts[i] = a.String()
		}
		w.debug(strings.Join(parts, " "))
		return value.Undefined, nil
	})
}

func (w *World) registerMotion(t *vm.NativeTable) {
	reals := func(name string, args []value.Value) ([]float64, error) {
		out := make([]float64, len(args))
		for i := range args {
			f, err := vm.Real(name, args, i)
			if err != nil {
				return nil, err
			}
			out[i] = f
		}
		return out, nil
	}
	define := func(name string, arity int, fn func(inst *Instance, a []float64) value.Value) {
		t.Define(name, arity, func(ctx *vm.Context, args []value.Value) (value.Value, error) {
			inst, err := self(name, ctx)
			if err != nil {
				return value.Undefined, err
			}
			a, err := reals(name, args)
			if err != nil {
				return value.Undefined, err
			}
			return fn(inst, a), nil
		})
	}

	define("motion_set", 2, func(inst *Instance, a []float64) value.Value {
		inst.setMotion(normalizeDegrees(a[0]), a[1])
		return value.Undefined
	})
	define("motion_add", 2, func(inst *Instance, a []float64) value.Value {
		rad := a[0] * math.Pi / 180
		inst.setVelocity(inst.hspeed+a[1]*math.Cos(rad), inst.vspeed-a[1]*math.Sin(rad))
		return value.Undefined
	})
	define("move_towards_point", 3, func(inst *Instance, a []float64) value.Value {
		inst.setMotion(vm.PointDirection(inst.x, inst.y, a[0], a[1]), a[2])
		return value.Undefined
	})
	define("distance_to_point", 2, func(inst *Instance, a []float64) value.Value {
		b, _ := w.bbox(inst)
		dx := math.Max(0, math.Max(b.left-a[0], a[0]-b.right))
		dy := math.Max(0, math.Max(b.top-a[1], a[1]-b.bottom))
		return value.NewReal(math.Hypot(dx, dy))
	})
}

func (w *World) registerDraw(t *vm.NativeTable) {
	reals := func(name string, args []value.Value, n int) ([]float64, error) {
		out := make([]float64, n)
		for i := range out {
			f, err := vm.Real(name, args, i)
			if err != nil {
				return nil, err
			}
			out[i] = f
		}
		return out, nil
	}

	t.Define("draw_sprite", 4, func(ctx *vm.Context, args []value.Value) (value.Value, error) {
		a, err := reals("draw_sprite", args, 4)
		if err != nil {
			return value.Undefined, err
		}
		spr := int(value.ToInt32(a[0]))
		if w.sprite(spr) == nil {
			return value.Undefined, vm.Errorf(vm.Resource, "the sprite with index %d does not exist", spr)
		}
		sub := int(value.ToInt32(a[1]))
		if sub < 0 {
			if inst, ok := ctx.Self.(*Instance); ok && inst != nil {
				sub = int(math.Floor(inst.imageIndex))
			} else {
				sub = 0
			}
		}
		w.renderer.DrawSprite(spr, sub, a[2], a[3])
		return value.Undefined, nil
	})

	t.Define("draw_text", 3, func(ctx *vm.Context, args []value.Value) (value.Value, error) {
		a, err := reals("draw_text", args, 2)
		if err != nil {
			return value.Undefined, err
		}
		w.renderer.DrawText(a[0], a[1], args[2].String())
		return value.Undefined, nil
	})

	t.Define("draw_rectangle", 5, func(ctx *vm.Context, args []value.Value) (value.Value, error) {
		a, err := reals("draw_rectangle", args, 5)
		if err != nil {
			return value.Undefined, err
		}
		w.renderer.DrawRectangle(a[0], a[1], a[2], a[3], value.ToBool(a[4]))
		return value.Undefined, nil
	})

	t.Define("draw_line", 4, func(ctx *vm.Context, args []value.Value) (value.Value, error) {
		a, err := reals("draw_line", args, 4)
		if err != nil {
			return value.Undefined, err
		}
		w.renderer.DrawLine(a[0], a[1], a[2], a[3])
		return value.Undefined, nil
	})

	t.Define("draw_circle", 4, func(ctx *vm.Context, args []value.Value) (value.Value, error) {
		a, err := reals("draw_circle", args, 4)
		if err != nil {
			return value.Undefined, err
		}
		w.renderer.DrawCircle(a[0], a[1], a[2], value.ToBool(a[3]))
		return value.Undefined, nil
	})

	t.Define("draw_set_color", 1, func(ctx *vm.Context, args []value.Value) (value.Value, error) {
		c, err := vm.Int("draw_set_color", args, 0)
		if err != nil {
			return value.Undefined, err
		}
		w.drawColor = c
		w.renderer.SetColor(c)
		return value.Undefined, nil
	})

	t.Define("draw_get_color", 0, func(ctx *vm.Context, args []value.Value) (value.Value, error) {
		return value.NewInt(w.drawColor), nil
	})
}
