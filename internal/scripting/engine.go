package scripting

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/riftforge/assets/internal/format"
)

// Engine wraps a single gopher-lua VM for boot and lifecycle scripting.
// Single-goroutine access only (tick loop). Scripts arrive as compiled
// protos through the asset pipeline, not from disk.
type Engine struct {
	vm  *lua.LState
	log *zap.Logger
}

func NewEngine(log *zap.Logger) *Engine {
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})
	vm.SetGlobal("API_VERSION", lua.LNumber(1))
	return &Engine{vm: vm, log: log}
}

// Run executes a compiled script in the shared VM. Globals it defines
// (hooks included) persist across calls.
func (e *Engine) Run(s *format.Script) error {
	fn := e.vm.NewFunctionFromProto(s.Proto)
	e.vm.Push(fn)
	if err := e.vm.PCall(0, lua.MultRet, nil); err != nil {
		e.vm.SetTop(0)
		return fmt.Errorf("run %s: %w", s.Name, err)
	}
	e.vm.SetTop(0) // discard whatever the chunk returned
	return nil
}

// AcceptAsset asks the accept_asset hook whether a manifest entry should
// be loaded. No hook, or a hook error, accepts: a script bug must not
// blank the manifest.
func (e *Engine) AcceptAsset(name, kind string) bool {
	fn := e.vm.GetGlobal("accept_asset")
	if fn == lua.LNil {
		return true
	}

	t := e.vm.NewTable()
	t.RawSetString("name", lua.LString(name))
	t.RawSetString("kind", lua.LString(kind))

	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, t); err != nil {
		e.log.Error("lua accept_asset error", zap.String("asset", name), zap.Error(err))
		return true
	}

	result := e.vm.Get(-1)
	e.vm.Pop(1)
	return lua.LVAsBool(result)
}

// OnAssetLoaded fires the on_asset_loaded hook, if a script defined one.
func (e *Engine) OnAssetLoaded(name, kind string) {
	e.callHook("on_asset_loaded", name, kind, "")
}

// OnAssetFailed fires the on_asset_failed hook with the error text.
func (e *Engine) OnAssetFailed(name, kind string, loadErr error) {
	msg := ""
	if loadErr != nil {
		msg = loadErr.Error()
	}
	e.callHook("on_asset_failed", name, kind, msg)
}

// OnAssetReloaded fires the on_asset_reloaded hook after a hot reload
// finishes integrating.
func (e *Engine) OnAssetReloaded(name, kind string) {
	e.callHook("on_asset_reloaded", name, kind, "")
}

func (e *Engine) callHook(hook, name, kind, errMsg string) {
	fn := e.vm.GetGlobal(hook)
	if fn == lua.LNil {
		return // hooks are optional
	}

	t := e.vm.NewTable()
	t.RawSetString("name", lua.LString(name))
	t.RawSetString("kind", lua.LString(kind))
	if errMsg != "" {
		t.RawSetString("error", lua.LString(errMsg))
	}

	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    0,
		Protect: true,
	}, t); err != nil {
		e.log.Error("lua hook error", zap.String("hook", hook), zap.String("asset", name), zap.Error(err))
	}
}

// Global reads a global as a string, for tests and diagnostics.
func (e *Engine) Global(name string) (string, bool) {
	v := e.vm.GetGlobal(name)
	if v == lua.LNil {
		return "", false
	}
	return lua.LVAsString(v), true
}

// Close shuts down the Lua VM.
func (e *Engine) Close() {
	e.vm.Close()
}
