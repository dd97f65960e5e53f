// Package program compiles a project graph into the units the world runs:
// one chunk per event handler, script, room and placement creation code.
package program

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"gml-vm/internal/builtin"
	"gml-vm/internal/chunk"
	"gml-vm/internal/compiler"
	"gml-vm/internal/parser"
	"gml-vm/internal/project"
	"gml-vm/internal/value"

	"github.com/hashicorp/go-hclog"
)

// Diagnostic is one syntax or compile error.
type Diagnostic struct {
	Unit    string `json:"unit"`
	Line    int    `json:"line"`
	Column  int    `json:"column"`
	Message string `json:"message"`
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s:%d:%d: %s", d.Unit, d.Line, d.Column, d.Message)
}

type Diagnostics []Diagnostic

// Err is nil when there are no diagnostics.
func (ds Diagnostics) Err() error {
	if len(ds) == 0 {
		return nil
	}
	lines := make([]string, len(ds))
	for i, d := range ds {
		lines[i] = d.String()
	}
	return errors.New(strings.Join(lines, "\n"))
}

func diagnose(unit string, err error) Diagnostic {
	var syntaxErr *parser.SyntaxError
	var compileErr *compiler.CompileError
	switch {
	case errors.As(err, &syntaxErr):
		return Diagnostic{Unit: unit, Line: syntaxErr.Line, Column: syntaxErr.Column, Message: syntaxErr.Message}
	case errors.As(err, &compileErr):
		return Diagnostic{Unit: compileErr.Unit, Line: compileErr.Line, Column: compileErr.Column, Message: compileErr.Message}
	}
	return Diagnostic{Unit: unit, Message: err.Error()}
}

type Options struct {
	Cache  *Cache
	Logger hclog.Logger
}

type Sprite struct {
	Index   int
	Name    string
	OriginX int
	OriginY int
	Width   int
	Height  int
	Frames  int
	BBox    project.Rect
}

type Object struct {
	Index      int
	Name       string
	Sprite     int // -1 for none
	Depth      float64
	Visible    bool
	Persistent bool

	events map[builtin.Key]*chunk.Chunk
}

// Event returns the handler for key, or nil.
func (o *Object) Event(key builtin.Key) *chunk.Chunk {
	return o.events[key]
}

func (o *Object) HasEvent(key builtin.Key) bool {
	_, ok := o.events[key]
	return ok
}

// Events lists the compiled handlers in key order.
func (o *Object) Events() []builtin.Key {
	keys := make([]builtin.Key, 0, len(o.events))
	for k := range o.events {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
	return keys
}

type Placement struct {
	X, Y   float64
	Object int
	Code   *chunk.Chunk // nil when the placement has none
}

type Room struct {
	Index      int
	Name       string
	Width      int
	Height     int
	Speed      int
	Code       *chunk.Chunk
	Placements []Placement
}

type Program struct {
	Name    string
	Sprites []*Sprite
	Objects []*Object
	Rooms   []*Room

	// ScriptNames is indexed by script resource index.
	ScriptNames []string
	scripts     map[string]*chunk.Chunk

	// Resources maps every resource name to its index.
	Resources map[string]value.Value

	fingerprint string
	cache       *Cache
	logger      hclog.Logger
	units       []*chunk.Chunk
}

// CompileAndLoad compiles every unit of p. Units that fail are reported and
// left out; the rest of the program still loads.
func CompileAndLoad(p *project.Project, opts Options) (*Program, Diagnostics) {
	logger := opts.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	cache := opts.Cache
	if cache == nil {
		cache, _ = NewCache(256)
	}

	prog := &Program{
		Name:      p.Name,
		scripts:   make(map[string]*chunk.Chunk),
		Resources: make(map[string]value.Value),
		cache:     cache,
		logger:    logger.Named("program"),
	}
	for i, s := range p.Sprites {
		prog.Resources[s.Name] = value.NewInt(i)
	}
	for i, o := range p.Objects {
		prog.Resources[o.Name] = value.NewInt(i)
	}
	for i, r := range p.Rooms {
		prog.Resources[r.Name] = value.NewInt(i)
	}
	for i, s := range p.Scripts {
		prog.Resources[s.Name] = value.NewInt(i)
	}
	prog.fingerprint = fingerprint(prog.Resources)

	var diags Diagnostics
	compile := func(unit, source string) *chunk.Chunk {
		c, err := prog.compile(unit, source)
		if err != nil {
			diags = append(diags, diagnose(unit, err))
			return nil
		}
		return c
	}

	for i, s := range p.Sprites {
		prog.Sprites = append(prog.Sprites, &Sprite{
			Index:   i,
			Name:    s.Name,
			OriginX: s.OriginX,
			OriginY: s.OriginY,
			Width:   s.Width,
			Height:  s.Height,
			Frames:  len(s.Frames),
			BBox:    s.BBox,
		})
	}

	for _, s := range p.Scripts {
		prog.ScriptNames = append(prog.ScriptNames, s.Name)
		if c := compile(s.Name, s.Code); c != nil {
			prog.scripts[s.Name] = c
		}
	}

	for i, o := range p.Objects {
		obj := &Object{
			Index:      i,
			Name:       o.Name,
			Sprite:     p.SpriteIndex(o.Sprite),
			Depth:      o.Depth,
			Visible:    o.IsVisible(),
			Persistent: o.Persistent,
			events:     make(map[builtin.Key]*chunk.Chunk),
		}
		for _, e := range o.Events {
			key, target, err := project.ParseEventName(e.Name)
			if err != nil {
				diags = append(diags, Diagnostic{Unit: o.Name, Message: err.Error()})
				continue
			}
			label := key.String()
			if key.Type == builtin.EventCollision {
				key.Subtype = p.ObjectIndex(target)
				label = "Collision[" + target + "]"
			}
			if c := compile(o.Name+"."+label, e.Code); c != nil {
				obj.events[key] = c
			}
		}
		prog.Objects = append(prog.Objects, obj)
	}

	for i, r := range p.Rooms {
		room := &Room{
			Index:  i,
			Name:   r.Name,
			Width:  r.Width,
			Height: r.Height,
			Speed:  r.Speed,
		}
		if strings.TrimSpace(r.Code) != "" {
			room.Code = compile(r.Name, r.Code)
		}
		for n, pl := range r.Placements {
			placement := Placement{X: pl.X, Y: pl.Y, Object: p.ObjectIndex(pl.Object)}
			if strings.TrimSpace(pl.Code) != "" {
				placement.Code = compile(fmt.Sprintf("%s.instance[%d]", r.Name, n), pl.Code)
			}
			room.Placements = append(room.Placements, placement)
		}
		prog.Rooms = append(prog.Rooms, room)
	}

	return prog, diags
}

func (prog *Program) compile(unit, source string) (*chunk.Chunk, error) {
	c, hit, err := prog.cache.Compile(unit, source, prog.Resources, prog.fingerprint)
	if err != nil {
		return nil, err
	}
	prog.logger.Debug("unit ready", "unit", unit, "cached", hit)
	prog.units = append(prog.units, c)
	return c, nil
}

// CompileString compiles source at run time through the unit cache, for
// execute_string.
func (prog *Program) CompileString(unit, source string) (*chunk.Chunk, error) {
	c, hit, err := prog.cache.Compile(unit, source, prog.Resources, prog.fingerprint)
	if err != nil {
		return nil, err
	}
	prog.logger.Trace("string compiled", "unit", unit, "cached", hit)
	return c, nil
}

// Script finds a compiled script by name.
func (prog *Program) Script(name string) (*chunk.Chunk, bool) {
	c, ok := prog.scripts[name]
	return c, ok
}

// Units lists every compiled unit in compilation order.
func (prog *Program) Units() []*chunk.Chunk {
	return prog.units
}

func (prog *Program) Cache() *Cache {
	return prog.cache
}

// ObjectIndex finds an object by name, or -1.
func (prog *Program) ObjectIndex(name string) int {
	for _, o := range prog.Objects {
		if o.Name == name {
			return o.Index
		}
	}
	return -1
}

func (prog *Program) RoomIndex(name string) int {
	for _, r := range prog.Rooms {
		if r.Name == name {
			return r.Index
		}
	}
	return -1
}

func fingerprint(resources map[string]value.Value) string {
	names := make([]string, 0, len(resources))
	for name := range resources {
		names = append(names, name)
	}
	sort.Strings(names)
	var sb strings.Builder
	for _, name := range names {
		fmt.Fprintf(&sb, "%s=%s;", name, resources[name])
	}
	return sb.String()
}
