package world

import (
	"math"
	"sort"

	"gml-vm/internal/builtin"

	"github.com/go-errors/errors"
)

// Step advances the world by one step. The error is an *EventErrors when any
// event failed; stepping itself always completes.
func (w *World) Step() error {
	if !w.started {
		return errors.New("world has not started")
	}
	if w.ended {
		return nil
	}
	return w.collect(func() {
		w.stepping = true
		w.stepEvent(builtin.StepBegin)
		w.alarms()
		w.stepEvent(builtin.StepNormal)
		w.motion()
		w.collisions()
		w.stepEvent(builtin.StepEnd)
		w.animate()
		w.sweep()
		w.stepping = false
		for _, inst := range w.instances {
			inst.fresh = false
		}
		w.transition()
		w.steps++
	})
}

func (w *World) stepEvent(subtype int) {
	w.broadcast(builtin.Key{Type: builtin.EventStep, Subtype: subtype})
}

func (w *World) alarms() {
	for _, inst := range w.phase() {
		for n := range inst.alarms {
			if !inst.active || inst.alarms[n] <= 0 {
				continue
			}
			inst.alarms[n]--
			if inst.alarms[n] == 0 {
				inst.alarms[n] = -1
				w.dispatch(inst, builtin.Key{Type: builtin.EventAlarm, Subtype: n}, nil)
			}
		}
	}
}

func (w *World) motion() {
	room := w.currentRoom()
	for _, inst := range w.phase() {
		if inst.friction != 0 && inst.speed != 0 {
			speed := inst.speed - inst.friction
			if (inst.speed > 0) != (speed > 0) {
				speed = 0
			}
			inst.setMotion(inst.direction, speed)
		}
		if inst.gravity != 0 {
			rad := inst.gravityDirection * math.Pi / 180
			inst.setVelocity(inst.hspeed+inst.gravity*math.Cos(rad), inst.vspeed-inst.gravity*math.Sin(rad))
		}

		inst.xprevious, inst.yprevious = inst.x, inst.y
		inst.x += inst.hspeed
		inst.y += inst.vspeed

		b, _ := w.bbox(inst)
		outside := b.right < 0 || b.bottom < 0 || b.left >= float64(room.Width) || b.top >= float64(room.Height)
		if outside && !inst.outside {
			w.dispatch(inst, builtin.Key{Type: builtin.EventOther, Subtype: builtin.OtherOutsideRoom}, nil)
		}
		inst.outside = outside
	}
}

// collisions checks each unordered pair once. Each side with a handler for
// the other's object fires with other set to its partner.
func (w *World) collisions() {
	active := w.phase()
	for i, a := range active {
		for _, b := range active[i+1:] {
			if !a.active || !b.active || a.object == nil || b.object == nil {
				continue
			}
			keyA := builtin.Key{Type: builtin.EventCollision, Subtype: b.object.Index}
			keyB := builtin.Key{Type: builtin.EventCollision, Subtype: a.object.Index}
			if !a.object.HasEvent(keyA) && !b.object.HasEvent(keyB) {
				continue
			}
			boxA, okA := w.bbox(a)
			boxB, okB := w.bbox(b)
			if !okA || !okB || !boxA.overlaps(boxB) {
				continue
			}
			if a.solid || b.solid {
				a.x, a.y = a.xprevious, a.yprevious
				b.x, b.y = b.xprevious, b.yprevious
			}
			w.dispatch(a, keyA, b)
			w.dispatch(b, keyB, a)
		}
	}
}

func (w *World) animate() {
	for _, inst := range w.phase() {
		spr := w.sprite(inst.spriteIndex)
		if spr == nil || spr.Frames == 0 {
			continue
		}
		frames := float64(spr.Frames)
		inst.imageIndex += inst.imageSpeed
		wrapped := false
		if inst.imageIndex >= frames {
			inst.imageIndex = math.Mod(inst.imageIndex, frames)
			wrapped = true
		} else if inst.imageIndex < 0 {
			inst.imageIndex = math.Mod(inst.imageIndex, frames) + frames
			wrapped = true
		}
		if wrapped {
			w.dispatch(inst, builtin.Key{Type: builtin.EventOther, Subtype: builtin.OtherAnimationEnd}, nil)
		}
	}
}

// sweep runs Destroy for each instance marked for destruction and removes
// it. Destroy events may mark more, so it repeats until nothing is pending.
func (w *World) sweep() {
	for {
		var pending []*Instance
		for _, inst := range w.instances {
			if !inst.active && !inst.removed {
				pending = append(pending, inst)
			}
		}
		if len(pending) == 0 {
			break
		}
		for _, inst := range pending {
			w.destroy(inst)
		}
	}
	w.compact()
}

func (w *World) destroy(inst *Instance) {
	inst.removed = true
	delete(w.byID, inst.id)
	if inst.object == nil {
		return
	}
	if code := inst.object.Event(builtin.Key{Type: builtin.EventDestroy}); code != nil {
		w.run(inst, nil, code, "Destroy")
	}
}

// compact drops removed instances from the creation-order list.
func (w *World) compact() {
	kept := w.instances[:0]
	for _, inst := range w.instances {
		if !inst.removed {
			kept = append(kept, inst)
		}
	}
	for i := len(kept); i < len(w.instances); i++ {
		w.instances[i] = nil
	}
	w.instances = kept
}

func (w *World) gotoRoom(room int) error {
	if room < 0 || room >= len(w.prog.Rooms) {
		return errRoom(room)
	}
	w.pendingRoom = room
	return nil
}

// transition performs a pending game end or room change.
func (w *World) transition() {
	if w.ending {
		w.broadcast(builtin.Key{Type: builtin.EventOther, Subtype: builtin.OtherGameEnd})
		w.ended = true
		w.logger.Info("game ended", "steps", w.steps)
		return
	}
	if w.pendingRoom < 0 {
		return
	}
	next := w.pendingRoom
	w.pendingRoom = -1

	w.broadcast(builtin.Key{Type: builtin.EventOther, Subtype: builtin.OtherRoomEnd})
	for _, inst := range w.instances {
		if !inst.persistent || !inst.active {
			inst.active = false
			inst.removed = true
			delete(w.byID, inst.id)
		}
	}
	w.compact()
	w.loadRoom(next, false)
}

// loadRoom instantiates every placement before running any creation code,
// so Create events see the whole population.
func (w *World) loadRoom(index int, first bool) {
	room := w.prog.Rooms[index]
	w.room = index
	w.roomSpeed = room.Speed
	w.logger.Debug("room loaded", "room", room.Name)

	created := make([]*Instance, len(room.Placements))
	for i, pl := range room.Placements {
		created[i] = w.instantiate(pl.Object, pl.X, pl.Y)
	}
	for i, pl := range room.Placements {
		inst := created[i]
		if pl.Code != nil && inst.active {
			w.run(inst, nil, pl.Code, "creation code")
		}
		w.dispatch(inst, builtin.Key{Type: builtin.EventCreate}, nil)
	}

	if room.Code != nil {
		w.run(w.scratch(), nil, room.Code, room.Name)
	}
	if first {
		w.broadcast(builtin.Key{Type: builtin.EventOther, Subtype: builtin.OtherGameStart})
	}
	w.broadcast(builtin.Key{Type: builtin.EventOther, Subtype: builtin.OtherRoomStart})
	w.sweep()
}

// Draw renders one frame: Draw events by depth, highest first, then the
// GUI pass in the same order.
func (w *World) Draw() error {
	if !w.started {
		return errors.New("world has not started")
	}
	return w.collect(func() {
		order := w.snapshot()
		sort.SliceStable(order, func(i, j int) bool { return order[i].depth > order[j].depth })

		drawKey := builtin.Key{Type: builtin.EventDraw, Subtype: builtin.DrawNormal}
		for _, inst := range order {
			if !inst.active || !inst.visible {
				continue
			}
			if inst.object.HasEvent(drawKey) {
				w.dispatch(inst, drawKey, nil)
				continue
			}
			if w.sprite(inst.spriteIndex) != nil {
				w.renderer.DrawSprite(inst.spriteIndex, int(math.Floor(inst.imageIndex)), inst.x, inst.y)
			}
		}

		guiKey := builtin.Key{Type: builtin.EventDraw, Subtype: builtin.DrawGUI}
		for _, inst := range order {
			if inst.active && inst.visible {
				w.dispatch(inst, guiKey, nil)
			}
		}
		w.sweep()
	})
}
