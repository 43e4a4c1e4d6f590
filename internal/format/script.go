package format

import (
	"bytes"
	"fmt"

	lua "github.com/yuin/gopher-lua"
	"github.com/yuin/gopher-lua/parse"

	"github.com/riftforge/assets/internal/core/asset"
)

// ScriptFormat compiles Lua source to bytecode on the worker. No LState is
// created and nothing executes; binding into a VM happens later on the
// owning thread, so Import stays side-effect-free.
type ScriptFormat struct{}

func (ScriptFormat) Name() string { return "script" }

func (ScriptFormat) Import(name string, raw []byte) (any, error) {
	chunk, err := parse.Parse(bytes.NewReader(raw), name)
	if err != nil {
		return nil, fmt.Errorf("parse lua: %w", err)
	}
	proto, err := lua.Compile(chunk, name)
	if err != nil {
		return nil, fmt.Errorf("compile lua: %w", err)
	}
	return &Script{Name: name, Proto: proto}, nil
}

// Script is a compiled, not-yet-bound Lua chunk. The scripting engine turns
// it into a callable function inside its own LState.
type Script struct {
	Name  string
	Proto *lua.FunctionProto
}

func ConvertScript(data any) (asset.Outcome[Script], error) {
	s, ok := data.(*Script)
	if !ok {
		return asset.Outcome[Script]{}, fmt.Errorf("script: unexpected data %T", data)
	}
	return asset.Ready(*s), nil
}
