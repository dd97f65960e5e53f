// Package project describes a legacy game as an ordered resource graph and
// loads it from a YAML project file.
package project

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gml-vm/internal/builtin"

	"github.com/go-errors/errors"
	"gopkg.in/yaml.v3"
)

type Project struct {
	Name    string    `yaml:"name"`
	Sprites []*Sprite `yaml:"sprites"`
	Objects []*Object `yaml:"objects"`
	Rooms   []*Room   `yaml:"rooms"`
	Scripts []*Script `yaml:"scripts"`

	// Dir is where relative code and image paths resolve from.
	Dir string `yaml:"-"`
}

type Sprite struct {
	Name    string   `yaml:"name"`
	OriginX int      `yaml:"origin_x"`
	OriginY int      `yaml:"origin_y"`
	Images  []string `yaml:"images"`

	// Plain dimensions stand in for images. Such frames are fully opaque.
	Width      int `yaml:"width"`
	Height     int `yaml:"height"`
	FrameCount int `yaml:"frames"`

	Frames []*Frame `yaml:"-"`
	BBox   Rect     `yaml:"-"`
}

// Frame is one sub-image in RGBA8, row-major.
type Frame struct {
	Width  int
	Height int
	Pixels []byte
}

type Object struct {
	Name       string   `yaml:"name"`
	Sprite     string   `yaml:"sprite"`
	Depth      float64  `yaml:"depth"`
	Visible    *bool    `yaml:"visible"`
	Persistent bool     `yaml:"persistent"`
	Events     []*Event `yaml:"events"`
}

// IsVisible defaults to true when the project leaves it out.
func (o *Object) IsVisible() bool {
	return o.Visible == nil || *o.Visible
}

// Event is one handler. Names follow the event display form: Create,
// BeginStep, Alarm[3], Collision[obj_wall], User2, RoomStart, DrawGUI...
type Event struct {
	Name string `yaml:"event"`
	Code string `yaml:"code"`
	File string `yaml:"file"`
}

type Room struct {
	Name       string       `yaml:"name"`
	Width      int          `yaml:"width"`
	Height     int          `yaml:"height"`
	Speed      int          `yaml:"speed"`
	Code       string       `yaml:"code"`
	File       string       `yaml:"file"`
	Placements []*Placement `yaml:"instances"`
}

type Placement struct {
	X      float64 `yaml:"x"`
	Y      float64 `yaml:"y"`
	Object string  `yaml:"object"`
	Code   string  `yaml:"code"`
}

type Script struct {
	Name string `yaml:"name"`
	Code string `yaml:"code"`
	File string `yaml:"file"`
}

// Load reads a project file, resolving code files and decoding sprite
// images relative to its directory.
func Load(path string) (*Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, 0)
	}
	p, err := Parse(data)
	if err != nil {
		return nil, errors.Errorf("%s: %v", path, err)
	}
	p.Dir = filepath.Dir(path)
	if p.Name == "" {
		p.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if err := p.resolve(); err != nil {
		return nil, err
	}
	return p, nil
}

// Parse decodes a project without touching the filesystem. Code must be
// inline and sprites must use plain dimensions.
func Parse(data []byte) (*Project, error) {
	p := &Project{}
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, errors.Wrap(err, 0)
	}
	if err := p.check(); err != nil {
		return nil, err
	}
	for _, s := range p.Sprites {
		if len(s.Images) == 0 {
			s.plainFrames()
		}
	}
	return p, nil
}

func (p *Project) check() error {
	seen := map[string]string{}
	claim := func(kind, name string) error {
		if name == "" {
			return errors.Errorf("a %s has no name", kind)
		}
		if prev, ok := seen[name]; ok {
			return errors.Errorf("%s %q clashes with %s of the same name", kind, name, prev)
		}
		seen[name] = kind
		return nil
	}
	for _, s := range p.Sprites {
		if err := claim("sprite", s.Name); err != nil {
			return err
		}
	}
	for _, o := range p.Objects {
		if err := claim("object", o.Name); err != nil {
			return err
		}
	}
	for _, r := range p.Rooms {
		if err := claim("room", r.Name); err != nil {
			return err
		}
	}
	for _, s := range p.Scripts {
		if err := claim("script", s.Name); err != nil {
			return err
		}
	}

	for _, o := range p.Objects {
		if o.Sprite != "" && p.SpriteIndex(o.Sprite) < 0 {
			return errors.Errorf("object %s uses unknown sprite %q", o.Name, o.Sprite)
		}
		for _, e := range o.Events {
			key, target, err := ParseEventName(e.Name)
			if err != nil {
				return errors.Errorf("object %s: %v", o.Name, err)
			}
			if key.Type == builtin.EventCollision && p.ObjectIndex(target) < 0 {
				return errors.Errorf("object %s collides with unknown object %q", o.Name, target)
			}
		}
	}
	for _, r := range p.Rooms {
		for i, pl := range r.Placements {
			if p.ObjectIndex(pl.Object) < 0 {
				return errors.Errorf("room %s instance %d uses unknown object %q", r.Name, i, pl.Object)
			}
		}
	}
	return nil
}

func (p *Project) resolve() error {
	read := func(file string) (string, error) {
		data, err := os.ReadFile(filepath.Join(p.Dir, file))
		if err != nil {
			return "", errors.Wrap(err, 0)
		}
		return string(data), nil
	}

	for _, s := range p.Scripts {
		if s.File != "" {
			code, err := read(s.File)
			if err != nil {
				return err
			}
			s.Code = code
		}
	}
	for _, o := range p.Objects {
		for _, e := range o.Events {
			if e.File != "" {
				code, err := read(e.File)
				if err != nil {
					return err
				}
				e.Code = code
			}
		}
	}
	for _, r := range p.Rooms {
		if r.File != "" {
			code, err := read(r.File)
			if err != nil {
				return err
			}
			r.Code = code
		}
	}
	for _, s := range p.Sprites {
		if len(s.Images) > 0 {
			if err := s.loadImages(p.Dir); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *Project) SpriteIndex(name string) int {
	for i, s := range p.Sprites {
		if s.Name == name {
			return i
		}
	}
	return -1
}

func (p *Project) ObjectIndex(name string) int {
	for i, o := range p.Objects {
		if o.Name == name {
			return i
		}
	}
	return -1
}

var simpleEvents = map[string]builtin.Key{
	"create":            {Type: builtin.EventCreate},
	"destroy":           {Type: builtin.EventDestroy},
	"step":              {Type: builtin.EventStep, Subtype: builtin.StepNormal},
	"beginstep":         {Type: builtin.EventStep, Subtype: builtin.StepBegin},
	"endstep":           {Type: builtin.EventStep, Subtype: builtin.StepEnd},
	"draw":              {Type: builtin.EventDraw, Subtype: builtin.DrawNormal},
	"drawgui":           {Type: builtin.EventDraw, Subtype: builtin.DrawGUI},
	"drawresize":        {Type: builtin.EventDraw, Subtype: builtin.DrawResize},
	"outsideroom":       {Type: builtin.EventOther, Subtype: builtin.OtherOutsideRoom},
	"intersectboundary": {Type: builtin.EventOther, Subtype: builtin.OtherIntersectBoundary},
	"gamestart":         {Type: builtin.EventOther, Subtype: builtin.OtherGameStart},
	"gameend":           {Type: builtin.EventOther, Subtype: builtin.OtherGameEnd},
	"roomstart":         {Type: builtin.EventOther, Subtype: builtin.OtherRoomStart},
	"roomend":           {Type: builtin.EventOther, Subtype: builtin.OtherRoomEnd},
	"nomorelives":       {Type: builtin.EventOther, Subtype: builtin.OtherNoMoreLives},
	"animationend":      {Type: builtin.EventOther, Subtype: builtin.OtherAnimationEnd},
	"pathend":           {Type: builtin.EventOther, Subtype: builtin.OtherPathEnd},
	"nomorehealth":      {Type: builtin.EventOther, Subtype: builtin.OtherNoMoreHealth},
	"closebutton":       {Type: builtin.EventOther, Subtype: builtin.OtherCloseButton},
}

// ParseEventName turns an event name into its key. For collisions the
// subtype is left 0 and target names the other object.
func ParseEventName(name string) (key builtin.Key, target string, err error) {
	lower := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(name), "_", ""))
	if k, ok := simpleEvents[lower]; ok {
		return k, "", nil
	}

	if strings.HasPrefix(lower, "user") {
		n, err := strconv.Atoi(lower[len("user"):])
		if err != nil || n < 0 || n >= builtin.NumUserEvents {
			return key, "", fmt.Errorf("invalid user event %q", name)
		}
		return builtin.Key{Type: builtin.EventOther, Subtype: builtin.OtherUser0 + n}, "", nil
	}

	open := strings.IndexByte(name, '[')
	if open < 0 || !strings.HasSuffix(name, "]") {
		return key, "", fmt.Errorf("unknown event %q", name)
	}
	kind := strings.ToLower(strings.TrimSpace(name[:open]))
	arg := strings.TrimSpace(name[open+1 : len(name)-1])
	switch kind {
	case "alarm":
		n, err := strconv.Atoi(arg)
		if err != nil || n < 0 {
			return key, "", fmt.Errorf("invalid alarm event %q", name)
		}
		return builtin.Key{Type: builtin.EventAlarm, Subtype: n}, "", nil
	case "collision":
		if arg == "" {
			return key, "", fmt.Errorf("collision event %q names no object", name)
		}
		return builtin.Key{Type: builtin.EventCollision}, arg, nil
	}
	return key, "", fmt.Errorf("unknown event %q", name)
}
