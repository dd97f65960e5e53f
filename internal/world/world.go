// Package world runs a compiled program: it owns the instances, dispatches
// their events through the VM, and advances the game one step at a time.
package world

import (
	"context"

	"gml-vm/internal/builtin"
	"gml-vm/internal/chunk"
	"gml-vm/internal/config"
	"gml-vm/internal/ds"
	"gml-vm/internal/external"
	"gml-vm/internal/program"
	"gml-vm/internal/store"
	"gml-vm/internal/value"
	"gml-vm/internal/vm"

	"github.com/go-errors/errors"
	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
)

// DebugSink receives show_debug_message output.
type DebugSink func(message string)

type Options struct {
	Logger   hclog.Logger
	Renderer Renderer
	Debug    DebugSink
	// Store backs the ini functions. Defaults to INI files in the working
	// directory.
	Store store.Store
	// External backs the external functions. When nil the world starts its
	// own registry and closes it in Close.
	External *external.Registry
	Compat   config.Compat
	Context  context.Context
}

type World struct {
	prog     *program.Program
	compat   config.Compat
	logger   hclog.Logger
	runID    string
	ctx      context.Context
	renderer Renderer
	debug    DebugSink
	store    store.Store
	external *external.Registry
	ownsExt  bool

	vm      *vm.VM
	ds      *ds.State
	globals *value.Namespace

	instances []*Instance // creation order, including those pending destruction
	byID      map[int]*Instance
	nextID    int

	started     bool
	stepping    bool
	room        int
	roomSpeed   int
	pendingRoom int // -1 when no transition is pending
	ending      bool
	ended       bool
	steps       int

	score, lives, health float64

	drawColor int
	iniFile   string

	errors []*EventError
}

func New(prog *program.Program, opts Options) *World {
	compat := opts.Compat
	defaults := config.Default().Compat
	if compat.AlarmSlots <= 0 {
		compat.AlarmSlots = defaults.AlarmSlots
	}
	if compat.FirstInstanceID < 100000 {
		compat.FirstInstanceID = defaults.FirstInstanceID
	}

	runID := uuid.NewString()
	logger := opts.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	logger = logger.Named("world").With("run", runID)

	w := &World{
		prog:        prog,
		compat:      compat,
		logger:      logger,
		runID:       runID,
		ctx:         opts.Context,
		renderer:    opts.Renderer,
		debug:       opts.Debug,
		store:       opts.Store,
		external:    opts.External,
		ds:          ds.New(compat.MaxGridCells),
		globals:     value.NewNamespace(),
		byID:        make(map[int]*Instance),
		nextID:      compat.FirstInstanceID,
		room:        -1,
		pendingRoom: -1,
		lives:       -1,
		health:      100,
	}
	if w.ctx == nil {
		w.ctx = context.Background()
	}
	if w.renderer == nil {
		w.renderer = NoopRenderer{}
	}
	if w.debug == nil {
		debugLogger := logger.Named("debug")
		w.debug = func(message string) { debugLogger.Info(message) }
	}
	if w.store == nil {
		w.store = store.NewFileStore(".")
	}
	if w.external == nil {
		w.external = external.New(external.Options{Logger: logger})
		w.ownsExt = true
	}

	natives := vm.NewNativeTable()
	vm.RegisterStdlib(natives, compat.RandomSeed)
	w.ds.Register(natives)
	w.external.Register(natives)
	w.registerNatives(natives)

	w.vm = vm.New(vm.Config{
		StackSize:     compat.StackSize,
		MaxCallDepth:  compat.MaxCallDepth,
		MaxArrayIndex: compat.MaxArrayIndex,
	}, w, natives)
	w.vm.SetScripts(prog.Script)
	return w
}

// RunID identifies this world in logs.
func (w *World) RunID() string { return w.runID }

func (w *World) Program() *program.Program { return w.prog }

// Steps is the number of completed steps.
func (w *World) Steps() int { return w.steps }

// Room is the index of the current room, -1 before Start.
func (w *World) Room() int { return w.room }

// RoomSpeed is the current room's target steps per second.
func (w *World) RoomSpeed() int {
	if w.roomSpeed <= 0 {
		return 30
	}
	return w.roomSpeed
}

// Ended reports that game_end has taken effect.
func (w *World) Ended() bool { return w.ended }

// Close stops the external plugins the world started.
func (w *World) Close() error {
	if w.ownsExt {
		return w.external.Close()
	}
	return nil
}

// collect runs fn and returns the event errors reported meanwhile.
func (w *World) collect(fn func()) error {
	saved := w.errors
	w.errors = nil
	fn()
	caught := w.errors
	w.errors = saved
	if len(caught) == 0 {
		return nil
	}
	return &EventErrors{Errors: caught}
}

// Start loads the first room.
func (w *World) Start() error {
	if w.started {
		return errors.New("world already started")
	}
	if len(w.prog.Rooms) == 0 {
		return errors.New("the program has no rooms")
	}
	w.started = true
	return w.collect(func() { w.loadRoom(0, true) })
}

// Create adds an instance of object at (x, y) and runs its Create event.
func (w *World) Create(object int, x, y float64) (int, error) {
	if object < 0 || object >= len(w.prog.Objects) {
		return 0, errors.Errorf("object %d does not exist", object)
	}
	var inst *Instance
	err := w.collect(func() { inst = w.create(object, x, y, nil) })
	return inst.id, err
}

// MarkForDestruction queues an instance for the next sweep. It stops being
// visible to lookups immediately.
func (w *World) MarkForDestruction(id int) {
	if inst, ok := w.byID[id]; ok {
		inst.active = false
	}
}

// Exists reports whether id names an active instance.
func (w *World) Exists(id int) bool {
	inst, ok := w.byID[id]
	return ok && inst.active
}

// Instance returns the active instance with the given id.
func (w *World) Instance(id int) (*Instance, bool) {
	inst, ok := w.byID[id]
	if !ok || !inst.active {
		return nil, false
	}
	return inst, true
}

// Instances lists the active instances in creation order.
func (w *World) Instances() []*Instance {
	return w.snapshot()
}

func (w *World) Globals() *value.Namespace { return w.globals }

// Lookup implements vm.Host.
func (w *World) Lookup(target float64) []vm.Instance {
	t := int(value.ToInt32(target))
	var out []vm.Instance
	switch {
	case t == builtin.ScopeAll:
		for _, inst := range w.instances {
			if inst.active {
				out = append(out, inst)
			}
		}
	case t >= 100000:
		if inst, ok := w.Instance(t); ok {
			out = append(out, inst)
		}
	default:
		for _, inst := range w.instances {
			if inst.active && inst.ObjectIndex() == t {
				out = append(out, inst)
			}
		}
	}
	return out
}

func (w *World) GetBuiltin(self vm.Instance, variable, index int) (value.Value, error) {
	if builtin.VariableAt(variable).Owner == builtin.OwnerGlobal {
		return w.getGlobalVar(variable, index)
	}
	inst, ok := self.(*Instance)
	if !ok || inst == nil {
		return value.Undefined, vm.Errorf(vm.Scope, "there is no self instance")
	}
	return w.getInstanceVar(inst, variable, index)
}

func (w *World) SetBuiltin(self vm.Instance, variable, index int, v value.Value) error {
	if builtin.VariableAt(variable).Owner == builtin.OwnerGlobal {
		return w.setGlobalVar(variable, v)
	}
	inst, ok := self.(*Instance)
	if !ok || inst == nil {
		return vm.Errorf(vm.Scope, "there is no self instance")
	}
	return w.setInstanceVar(inst, variable, index, v)
}

func (w *World) currentRoom() *program.Room {
	if w.room < 0 {
		return nil
	}
	return w.prog.Rooms[w.room]
}

func (w *World) getGlobalVar(variable, index int) (value.Value, error) {
	switch variable {
	case builtin.VarInstanceCount:
		return value.NewInt(len(w.snapshot())), nil
	case builtin.VarInstanceID:
		active := w.snapshot()
		if index < 0 || index >= len(active) {
			return value.NewInt(builtin.ScopeNoone), nil
		}
		return value.NewInt(active[index].id), nil
	case builtin.VarRoom:
		return value.NewInt(w.room), nil
	case builtin.VarRoomFirst:
		return value.NewInt(0), nil
	case builtin.VarRoomLast:
		return value.NewInt(len(w.prog.Rooms) - 1), nil
	case builtin.VarRoomWidth, builtin.VarRoomHeight:
		room := w.currentRoom()
		if room == nil {
			return value.NewReal(0), nil
		}
		if variable == builtin.VarRoomWidth {
			return value.NewInt(room.Width), nil
		}
		return value.NewInt(room.Height), nil
	case builtin.VarRoomSpeed:
		return value.NewInt(w.roomSpeed), nil
	case builtin.VarScore:
		return value.NewReal(w.score), nil
	case builtin.VarLives:
		return value.NewReal(w.lives), nil
	case builtin.VarHealth:
		return value.NewReal(w.health), nil
	}
	return value.Undefined, vm.Errorf(vm.Name, "'%s' is not a global variable", builtin.VariableAt(variable).Name)
}

func (w *World) setGlobalVar(variable int, v value.Value) error {
	name := builtin.VariableAt(variable).Name
	f, err := number(name, v)
	if err != nil {
		return err
	}

	switch variable {
	case builtin.VarRoom:
		return w.gotoRoom(int(value.ToInt32(f)))
	case builtin.VarRoomSpeed:
		w.roomSpeed = int(value.ToInt32(f))
	case builtin.VarScore:
		w.score = f
	case builtin.VarLives:
		before := w.lives
		w.lives = f
		if before > 0 && f <= 0 {
			w.broadcast(builtin.Key{Type: builtin.EventOther, Subtype: builtin.OtherNoMoreLives})
		}
	case builtin.VarHealth:
		before := w.health
		w.health = f
		if before > 0 && f <= 0 {
			w.broadcast(builtin.Key{Type: builtin.EventOther, Subtype: builtin.OtherNoMoreHealth})
		}
	default:
		return vm.Errorf(vm.Write, "variable '%s' is read-only", name)
	}
	return nil
}

// snapshot lists the active instances in creation order.
func (w *World) snapshot() []*Instance {
	out := make([]*Instance, 0, len(w.instances))
	for _, inst := range w.instances {
		if inst.active {
			out = append(out, inst)
		}
	}
	return out
}

// phase lists the instances a step phase iterates: the active ones that
// existed when the step began.
func (w *World) phase() []*Instance {
	out := make([]*Instance, 0, len(w.instances))
	for _, inst := range w.instances {
		if inst.active && !inst.fresh {
			out = append(out, inst)
		}
	}
	return out
}

// instantiate adds an instance without running any event.
func (w *World) instantiate(object int, x, y float64) *Instance {
	var obj *program.Object
	if object >= 0 && object < len(w.prog.Objects) {
		obj = w.prog.Objects[object]
	}
	inst := newInstance(w.nextID, obj, x, y, w.compat.AlarmSlots)
	inst.fresh = w.stepping
	w.nextID++
	w.instances = append(w.instances, inst)
	w.byID[inst.id] = inst
	return inst
}

// create instantiates and runs the Create event; other is the creator.
func (w *World) create(object int, x, y float64, other *Instance) *Instance {
	inst := w.instantiate(object, x, y)
	w.dispatch(inst, builtin.Key{Type: builtin.EventCreate}, other)
	return inst
}

// scratch is the instance room creation code runs in. It is never listed.
func (w *World) scratch() *Instance {
	return newInstance(0, nil, 0, 0, w.compat.AlarmSlots)
}

func eventLabel(prog *program.Program, key builtin.Key) string {
	if key.Type == builtin.EventCollision && key.Subtype >= 0 && key.Subtype < len(prog.Objects) {
		return "Collision[" + prog.Objects[key.Subtype].Name + "]"
	}
	return key.String()
}

// dispatch runs inst's handler for key, if any. Errors are reported, not
// returned. other defaults to inst.
func (w *World) dispatch(inst *Instance, key builtin.Key, other *Instance) {
	if inst.object == nil || !inst.active {
		return
	}
	code := inst.object.Event(key)
	if code == nil {
		return
	}
	w.run(inst, other, code, eventLabel(w.prog, key))
}

// run executes one unit for inst and reports a failure under label.
func (w *World) run(inst, other *Instance, code *chunk.Chunk, label string) {
	if other == nil {
		other = inst
	}
	if _, err := w.vm.Execute(code, inst, other); err != nil {
		w.report(inst, label, err)
	}
}

func (w *World) report(inst *Instance, label string, err error) {
	e := &EventError{Instance: inst.id, Object: inst.objectName(), Event: label, Err: err}
	w.logger.Error("event failed", "instance", e.Instance, "object", e.Object, "event", e.Event, "error", err)
	w.errors = append(w.errors, e)
}

// broadcast dispatches key to every instance of the current phase.
func (w *World) broadcast(key builtin.Key) {
	for _, inst := range w.phase() {
		w.dispatch(inst, key, nil)
	}
}
