package program

import (
	"testing"

	"gml-vm/internal/builtin"
	"gml-vm/internal/project"
	"gml-vm/internal/value"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const game = `
name: demo
sprites:
  - {name: spr_block, width: 16, height: 8}
objects:
  - name: obj_wall
    sprite: spr_block
    depth: 10
  - name: obj_ball
    events:
      - {event: Create, code: "speed = 2"}
      - {event: EndStep, code: "x = 0"}
      - {event: "Collision[obj_wall]", code: "hspeed = -hspeed"}
      - {event: Draw, code: ""}
rooms:
  - name: rm_first
    width: 320
    height: 240
    code: "score = 0"
    instances:
      - {x: 10, y: 20, object: obj_ball, code: "hspeed = 1"}
      - {x: 100, y: 20, object: obj_wall}
scripts:
  - {name: scr_add, code: "return argument0 + argument1"}
  - {name: scr_first_room, code: "return rm_first"}
`

func load(t *testing.T, src string, opts Options) (*Program, Diagnostics) {
	t.Helper()
	p, err := project.Parse([]byte(src))
	require.NoError(t, err)
	return CompileAndLoad(p, opts)
}

func TestCompileAndLoad(t *testing.T) {
	prog, diags := load(t, game, Options{})
	require.Empty(t, diags)
	require.NoError(t, diags.Err())

	assert.Equal(t, "demo", prog.Name)
	assert.Equal(t, value.NewInt(0), prog.Resources["spr_block"])
	assert.Equal(t, value.NewInt(1), prog.Resources["obj_ball"])
	assert.Equal(t, value.NewInt(0), prog.Resources["rm_first"])
	assert.Equal(t, value.NewInt(1), prog.Resources["scr_first_room"])

	wall, ball := prog.Objects[0], prog.Objects[1]
	assert.Equal(t, 0, wall.Sprite)
	assert.Equal(t, -1, ball.Sprite)
	assert.Equal(t, 10.0, wall.Depth)
	assert.True(t, wall.Visible)

	collision := builtin.Key{Type: builtin.EventCollision, Subtype: 0}
	require.True(t, ball.HasEvent(collision))
	assert.Equal(t, "obj_ball.Collision[obj_wall]", ball.Event(collision).Name)
	assert.Equal(t, "obj_ball.EndStep", ball.Event(builtin.Key{Type: builtin.EventStep, Subtype: builtin.StepEnd}).Name)
	assert.Nil(t, ball.Event(builtin.Key{Type: builtin.EventDestroy}))

	// an empty draw handler still counts as a handler
	assert.True(t, ball.HasEvent(builtin.Key{Type: builtin.EventDraw}))
	assert.Equal(t, []builtin.Key{
		{Type: builtin.EventCreate},
		{Type: builtin.EventStep, Subtype: builtin.StepEnd},
		{Type: builtin.EventCollision, Subtype: 0},
		{Type: builtin.EventDraw},
	}, ball.Events())

	room := prog.Rooms[0]
	require.NotNil(t, room.Code)
	assert.Equal(t, "rm_first", room.Code.Name)
	require.Len(t, room.Placements, 2)
	assert.Equal(t, 1, room.Placements[0].Object)
	assert.Equal(t, "rm_first.instance[0]", room.Placements[0].Code.Name)
	assert.Nil(t, room.Placements[1].Code)

	script, ok := prog.Script("scr_add")
	require.True(t, ok)
	assert.Equal(t, "scr_add", script.Name)
	assert.Equal(t, []string{"scr_add", "scr_first_room"}, prog.ScriptNames)
	assert.Equal(t, 1, prog.ObjectIndex("obj_ball"))
	assert.Equal(t, 0, prog.RoomIndex("rm_first"))
	assert.Equal(t, -1, prog.RoomIndex("rm_none"))

	// scripts, four events and two pieces of room code
	assert.Len(t, prog.Units(), 8)
}

func TestDiagnosticsLeaveUnitOut(t *testing.T) {
	prog, diags := load(t, `
objects:
  - name: obj_a
    events:
      - {event: Create, code: "x = = 1"}
      - {event: Step, code: "x += 1"}
scripts:
  - {name: scr_bad, code: "break"}
  - {name: scr_ok, code: "return 1"}
`, Options{})

	require.Len(t, diags, 2)
	assert.Equal(t, "scr_bad", diags[0].Unit)
	assert.Contains(t, diags[0].Message, "break outside of a loop")
	assert.Equal(t, "obj_a.Create", diags[1].Unit)
	assert.Equal(t, 1, diags[1].Line)
	assert.Error(t, diags.Err())
	assert.Contains(t, diags.Err().Error(), "obj_a.Create:1:")

	_, ok := prog.Script("scr_bad")
	assert.False(t, ok)
	_, ok = prog.Script("scr_ok")
	assert.True(t, ok)
	assert.False(t, prog.Objects[0].HasEvent(builtin.Key{Type: builtin.EventCreate}))
	assert.True(t, prog.Objects[0].HasEvent(builtin.Key{Type: builtin.EventStep}))
}

func TestCacheSharesUnitsAcrossLoads(t *testing.T) {
	cache, err := NewCache(64)
	require.NoError(t, err)

	first, diags := load(t, game, Options{Cache: cache})
	require.Empty(t, diags)
	_, misses := cache.Stats()
	assert.Equal(t, 8, misses)

	second, diags := load(t, game, Options{Cache: cache})
	require.Empty(t, diags)
	hits, misses := cache.Stats()
	assert.Equal(t, 8, hits)
	assert.Equal(t, 8, misses)

	a, _ := first.Script("scr_add")
	b, _ := second.Script("scr_add")
	assert.Same(t, a, b)
}

func TestCacheKeyedOnResources(t *testing.T) {
	cache, err := NewCache(64)
	require.NoError(t, err)

	_, diags := load(t, game, Options{Cache: cache})
	require.Empty(t, diags)

	// one more script changes the resource set every unit resolves against
	_, diags = load(t, game+"  - {name: scr_more, code: \"return 2\"}\n", Options{Cache: cache})
	require.Empty(t, diags)
	hits, _ := cache.Stats()
	assert.Zero(t, hits)
}

func TestCompileString(t *testing.T) {
	prog, diags := load(t, game, Options{})
	require.Empty(t, diags)

	c, err := prog.CompileString("execute_string", "return obj_ball")
	require.NoError(t, err)
	again, err := prog.CompileString("execute_string", "return obj_ball")
	require.NoError(t, err)
	assert.Same(t, c, again)

	_, err = prog.CompileString("execute_string", "return (")
	assert.Error(t, err)
}

func TestUnknownEventIsDiagnosed(t *testing.T) {
	// Parse would refuse this, so build the graph by hand.
	p := &project.Project{
		Objects: []*project.Object{{
			Name:   "obj_a",
			Events: []*project.Event{{Name: "Teleport", Code: "x = 1"}},
		}},
	}
	_, diags := CompileAndLoad(p, Options{})
	require.Len(t, diags, 1)
	assert.Equal(t, "obj_a", diags[0].Unit)
}
