package scripting

import (
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Monster AI actions.
const (
	ActionIdle   = "idle"
	ActionChase  = "chase"
	ActionAttack = "attack"
	ActionFlee   = "flee"
	ActionWander = "wander"
)

var actions = map[string]bool{
	ActionIdle:   true,
	ActionChase:  true,
	ActionAttack: true,
	ActionFlee:   true,
	ActionWander: true,
}

// AITarget is a player the monster can see, as packed for Lua.
type AITarget struct {
	ID     uint32
	X, Y   int32
	Z      int32
	Dist   int32 // Chebyshev distance
	Sight  bool  // clear line of sight on the same floor
	Throw  bool  // a missile would reach
	Player bool
}

// AIContext holds pre-packed data for one monster decision.
type AIContext struct {
	MonsterID uint32
	Name      string
	X, Y, Z   int32
	SpawnDist int32 // distance from the spawn point
	Range     int32 // preferred distance to the target
	Targets   []AITarget
}

// AICommand is the action returned by a Lua AI function.
type AICommand struct {
	Action   string
	TargetID uint32 // 0 = first target
	Dir      int    // heading 0-7 for wander (-1 = any)
}

// RunMonsterAI calls the Lua function fn(ctx). ok is false when the
// function is missing, fails or returns something that is not an action.
func (e *Engine) RunMonsterAI(fn string, ctx AIContext) (AICommand, bool) {
	f, isFn := e.vm.GetGlobal(fn).(*lua.LFunction)
	if !isFn {
		return AICommand{}, false
	}

	t := e.vm.NewTable()
	t.RawSetString("id", lua.LNumber(ctx.MonsterID))
	t.RawSetString("name", lua.LString(ctx.Name))
	t.RawSetString("x", lua.LNumber(ctx.X))
	t.RawSetString("y", lua.LNumber(ctx.Y))
	t.RawSetString("z", lua.LNumber(ctx.Z))
	t.RawSetString("spawn_dist", lua.LNumber(ctx.SpawnDist))
	t.RawSetString("range", lua.LNumber(ctx.Range))

	targets := e.vm.NewTable()
	for i, tg := range ctx.Targets {
		row := e.vm.NewTable()
		row.RawSetString("id", lua.LNumber(tg.ID))
		row.RawSetString("x", lua.LNumber(tg.X))
		row.RawSetString("y", lua.LNumber(tg.Y))
		row.RawSetString("z", lua.LNumber(tg.Z))
		row.RawSetString("dist", lua.LNumber(tg.Dist))
		row.RawSetString("sight", luaBool(tg.Sight))
		row.RawSetString("throw", luaBool(tg.Throw))
		row.RawSetString("player", luaBool(tg.Player))
		targets.RawSetInt(i+1, row)
	}
	t.RawSetString("targets", targets)

	if err := e.vm.CallByParam(lua.P{
		Fn:      f,
		NRet:    1,
		Protect: true,
	}, t); err != nil {
		e.log.Error("lua monster ai error", zap.Error(err), zap.String("func", fn), zap.Uint32("monster", ctx.MonsterID))
		return AICommand{}, false
	}

	result := e.vm.Get(-1)
	e.vm.Pop(1)

	var cmd AICommand
	switch r := result.(type) {
	case lua.LString:
		cmd = AICommand{Action: string(r), Dir: -1}
	case *lua.LTable:
		cmd = AICommand{
			Action:   tableString(r, "action"),
			TargetID: uint32(tableInt(r, "target")),
			Dir:      -1,
		}
		if d, ok := r.RawGetString("dir").(lua.LNumber); ok && d >= 0 && d <= 7 {
			cmd.Dir = int(d)
		}
	default:
		e.log.Warn("lua monster ai returned no action", zap.String("func", fn))
		return AICommand{}, false
	}
	if !actions[cmd.Action] {
		e.log.Warn("lua monster ai returned unknown action", zap.String("func", fn), zap.String("action", cmd.Action))
		return AICommand{}, false
	}
	return cmd, true
}
