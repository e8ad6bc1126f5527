package scripting

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

const apiVersion = 1

// scriptDirs are loaded in order; later files may use what earlier ones define.
var scriptDirs = []string{".", "lib", "ai"}

// Engine owns one gopher-lua state. It is not safe for concurrent use and
// is only called from the game loop.
type Engine struct {
	vm  *lua.LState
	log *zap.Logger
}

// NewEngine opens a Lua state and runs every .lua file found in scriptDirs
// below root.
func NewEngine(root string, log *zap.Logger) (*Engine, error) {
	if log == nil {
		log = zap.NewNop()
	}
	e := &Engine{vm: lua.NewState(), log: log}
	e.vm.SetGlobal("API_VERSION", lua.LNumber(apiVersion))
	e.vm.SetGlobal("distance", e.vm.NewFunction(luaDistance))

	for _, sub := range scriptDirs {
		if err := e.runDir(filepath.Join(root, sub)); err != nil {
			e.vm.Close()
			return nil, fmt.Errorf("load scripts: %w", err)
		}
	}
	return e, nil
}

// runDir executes the .lua files of dir in name order. A missing dir is
// not an error.
func (e *Engine) runDir(dir string) error {
	files, err := filepath.Glob(filepath.Join(dir, "*.lua"))
	if err != nil {
		return err
	}
	sort.Strings(files)
	for _, path := range files {
		err := e.vm.DoFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			continue
		case err != nil:
			return fmt.Errorf("%s: %w", path, err)
		}
		e.log.Debug("lua script loaded", zap.String("file", path))
	}
	return nil
}

// HasFunction reports whether the global name is a Lua function.
func (e *Engine) HasFunction(name string) bool {
	_, ok := e.vm.GetGlobal(name).(*lua.LFunction)
	return ok
}

func (e *Engine) Close() {
	e.vm.Close()
}

// luaDistance implements distance(x1, y1, x2, y2), the Chebyshev tile
// distance.
func luaDistance(L *lua.LState) int {
	dx := L.CheckInt(1) - L.CheckInt(3)
	dy := L.CheckInt(2) - L.CheckInt(4)
	L.Push(lua.LNumber(max(dx, -dx, dy, -dy)))
	return 1
}

func tableInt(t *lua.LTable, key string) int {
	n, _ := t.RawGetString(key).(lua.LNumber)
	return int(n)
}

func tableString(t *lua.LTable, key string) string {
	s, _ := t.RawGetString(key).(lua.LString)
	return string(s)
}

func luaBool(v bool) lua.LValue {
	return lua.LBool(v)
}
