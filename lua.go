package trinity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	lua "github.com/yuin/gopher-lua"
	"github.com/yuin/gopher-lua/parse"
	"golang.org/x/net/html"
)

const luaNodeTypeName = "trinity.node"

// LuaCompiler compiles script resources written in Lua. A script is run as a
// chunk receiving three arguments, the fragment, the data, and the function
// that loads other templates:
//
//	local frag, data, load = ...
//	local div = frag:find("div")
//	div:set_attr("class", data.class)
//	load("simple", function(err, nested)
//		if err == nil then
//			div:append(nested)
//		end
//	end)
//
// The load function takes a template name, optional data, and an optional
// callback, which receives an error message (or nil), the loaded fragment,
// and another load function.
//
// Fragments and nodes have the methods first_child, last_child,
// next_sibling, parent, children, tag, text, set_text, attr, set_attr,
// append, create, find, and html.
//
// Each run gets a fresh Lua state with only the base, table, string, and
// math libraries; scripts can't read files or load other Lua code.
type LuaCompiler struct {
	// Primitive is the name scripts give the load function, used to find
	// the templates a script loads before it runs. Defaults to
	// DefaultPrimitive.
	Primitive string
}

var (
	_ ScriptCompiler    = &LuaCompiler{}
	_ DependencyScanner = &LuaCompiler{}
)

// Extension returns ".lua".
func (*LuaCompiler) Extension() string {
	return ".lua"
}

// Dependencies returns the template names passed as literals to the load
// function in source.
func (c *LuaCompiler) Dependencies(source []byte) []string {
	primitive := c.Primitive
	if primitive == "" {
		primitive = DefaultPrimitive
	}
	return ScanDependencies(source, primitive)
}

// Compile parses and compiles source. The returned Script runs it.
func (c *LuaCompiler) Compile(_ context.Context, name string, source []byte) (Script, error) {
	chunkName := name + c.Extension()
	chunk, err := parse.Parse(bytes.NewReader(source), chunkName)
	if err != nil {
		return nil, fmt.Errorf("error parsing %q: %w", chunkName, err)
	}
	proto, err := lua.Compile(chunk, chunkName)
	if err != nil {
		return nil, fmt.Errorf("error compiling %q: %w", chunkName, err)
	}
	return func(ctx context.Context, frag *Fragment, data any, load Invoker) error {
		// the state outlives this call: load callbacks run in it later.
		// no io or os libraries are opened, so there's nothing that
		// needs closing.
		L := newLuaState()
		L.Push(L.NewFunctionFromProto(proto))
		L.Push(luaNode(L, frag.root))
		L.Push(toLua(L, data))
		L.Push(luaInvoker(ctx, L, load))
		err := L.PCall(3, 0, nil)
		if err != nil {
			return fmt.Errorf("error running %q: %w", chunkName, err)
		}
		return nil
	}, nil
}

func newLuaState() *lua.LState {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	for _, lib := range []struct {
		name string
		open lua.LGFunction
	}{
		{lua.LoadLibName, lua.OpenPackage},
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	} {
		L.Push(L.NewFunction(lib.open))
		L.Push(lua.LString(lib.name))
		L.Call(1, 0)
	}
	for _, global := range []string{"dofile", "loadfile", "load", "loadstring", "require", "module", "package"} {
		L.SetGlobal(global, lua.LNil)
	}
	mt := L.NewTypeMetatable(luaNodeTypeName)
	L.SetField(mt, "__index", L.SetFuncs(L.NewTable(), luaNodeMethods))
	return L
}

// luaInvoker wraps load as a Lua function. Callbacks are called in L, which
// is safe because the Engine only delivers them during a turn of the
// Document, after the script itself has returned. A callback that raises an
// error fails the script's composition.
func luaInvoker(ctx context.Context, L *lua.LState, load Invoker) *lua.LFunction {
	return L.NewFunction(func(L *lua.LState) int {
		name := L.CheckString(1)
		var data any
		var fn *lua.LFunction
		if arg, ok := L.Get(2).(*lua.LFunction); ok {
			fn = arg
		} else {
			data = fromLua(L.Get(2))
			fn = L.OptFunction(3, nil)
		}
		load(ctx, name, data, func(err error, frag *Fragment, next Invoker) {
			if fn == nil {
				return
			}
			args := []lua.LValue{lua.LNil, lua.LNil, lua.LNil}
			if err != nil {
				args[0] = lua.LString(err.Error())
			}
			if frag != nil {
				args[1] = luaNode(L, frag.root)
			}
			if next != nil {
				args[2] = luaInvoker(ctx, L, next)
			}
			callErr := L.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true}, args...)
			if callErr == nil {
				return
			}
			// an error in a callback fails the script that registered
			// it; once that script's composition has reported, all that's
			// left is to log it
			if !failScript(ctx, fmt.Errorf("error in callback loading %q: %w", name, callErr)) {
				logger(ctx).ErrorContext(ctx, "error in script callback",
					"template", name,
					"error", callErr)
			}
		})
		return 0
	})
}

var luaNodeMethods = map[string]lua.LGFunction{
	"first_child": func(L *lua.LState) int {
		L.Push(luaNode(L, checkNode(L, 1).FirstChild))
		return 1
	},
	"last_child": func(L *lua.LState) int {
		L.Push(luaNode(L, checkNode(L, 1).LastChild))
		return 1
	},
	"next_sibling": func(L *lua.LState) int {
		L.Push(luaNode(L, checkNode(L, 1).NextSibling))
		return 1
	},
	"parent": func(L *lua.LState) int {
		L.Push(luaNode(L, checkNode(L, 1).Parent))
		return 1
	},
	"children": func(L *lua.LState) int {
		tbl := L.NewTable()
		for c := checkNode(L, 1).FirstChild; c != nil; c = c.NextSibling {
			tbl.Append(luaNode(L, c))
		}
		L.Push(tbl)
		return 1
	},
	"tag": func(L *lua.LState) int {
		n := checkNode(L, 1)
		if n.Type != html.ElementNode {
			L.Push(lua.LString(""))
			return 1
		}
		L.Push(lua.LString(n.Data))
		return 1
	},
	"text": func(L *lua.LState) int {
		L.Push(lua.LString(textContent(checkNode(L, 1))))
		return 1
	},
	"set_text": func(L *lua.LState) int {
		setTextContent(checkNode(L, 1), L.CheckString(2))
		return 0
	},
	"attr": func(L *lua.LState) int {
		val, ok := getAttr(checkNode(L, 1), L.CheckString(2))
		if !ok {
			L.Push(lua.LNil)
			return 1
		}
		L.Push(lua.LString(val))
		return 1
	},
	"set_attr": func(L *lua.LState) int {
		n := checkNode(L, 1)
		if n.Type != html.ElementNode {
			L.ArgError(1, "element expected")
			return 0
		}
		setAttr(n, L.CheckString(2), L.CheckString(3))
		return 0
	},
	"append": func(L *lua.LState) int {
		parent := checkNode(L, 1)
		switch child := L.Get(2).(type) {
		case lua.LString:
			parent.AppendChild(&html.Node{Type: html.TextNode, Data: string(child)})
		case *lua.LUserData:
			n, ok := child.Value.(*html.Node)
			if !ok {
				L.ArgError(2, "node expected")
				return 0
			}
			appendNode(parent, n)
		default:
			L.ArgError(2, "node or string expected")
		}
		return 0
	},
	"create": func(L *lua.LState) int {
		checkNode(L, 1)
		L.Push(luaNode(L, newElement(L.CheckString(2))))
		return 1
	},
	"find": func(L *lua.LState) int {
		L.Push(luaNode(L, findTag(checkNode(L, 1), strings.ToLower(L.CheckString(2)))))
		return 1
	},
	"html": func(L *lua.LState) int {
		var buf bytes.Buffer
		err := html.Render(&buf, checkNode(L, 1))
		if err != nil {
			L.RaiseError("error rendering node: %v", err)
			return 0
		}
		L.Push(lua.LString(buf.String()))
		return 1
	},
}

func checkNode(L *lua.LState, pos int) *html.Node {
	ud := L.CheckUserData(pos)
	n, ok := ud.Value.(*html.Node)
	if !ok {
		L.ArgError(pos, "node expected")
		return nil
	}
	return n
}

func luaNode(L *lua.LState, n *html.Node) lua.LValue {
	if n == nil {
		return lua.LNil
	}
	ud := L.NewUserData()
	ud.Value = n
	L.SetMetatable(ud, L.GetTypeMetatable(luaNodeTypeName))
	return ud
}

// toLua converts Go data into Lua values. Maps, slices, and scalars are
// converted directly; anything else goes through encoding/json first, the
// same way it would be seen by a client.
func toLua(L *lua.LState, v any) lua.LValue {
	switch v := v.(type) {
	case nil:
		return lua.LNil
	case lua.LValue:
		return v
	case bool:
		return lua.LBool(v)
	case string:
		return lua.LString(v)
	case int:
		return lua.LNumber(v)
	case int32:
		return lua.LNumber(v)
	case int64:
		return lua.LNumber(v)
	case uint:
		return lua.LNumber(v)
	case uint64:
		return lua.LNumber(v)
	case float32:
		return lua.LNumber(v)
	case float64:
		return lua.LNumber(v)
	case *Fragment:
		return luaNode(L, v.root)
	case *html.Node:
		return luaNode(L, v)
	case map[string]any:
		tbl := L.NewTable()
		for key, val := range v {
			tbl.RawSetString(key, toLua(L, val))
		}
		return tbl
	case map[string]string:
		tbl := L.NewTable()
		for key, val := range v {
			tbl.RawSetString(key, lua.LString(val))
		}
		return tbl
	case []any:
		tbl := L.NewTable()
		for _, val := range v {
			tbl.Append(toLua(L, val))
		}
		return tbl
	case []string:
		tbl := L.NewTable()
		for _, val := range v {
			tbl.Append(lua.LString(val))
		}
		return tbl
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return lua.LString(fmt.Sprint(v))
	}
	var generic any
	err = json.Unmarshal(raw, &generic)
	if err != nil {
		return lua.LString(fmt.Sprint(v))
	}
	return toLua(L, generic)
}

// fromLua converts Lua values back into Go data. Tables that are pure
// sequences become []any, other tables become map[string]any, with numeric
// keys turned into strings.
func fromLua(v lua.LValue) any {
	switch v := v.(type) {
	case *lua.LNilType:
		return nil
	case lua.LBool:
		return bool(v)
	case lua.LNumber:
		return float64(v)
	case lua.LString:
		return string(v)
	case *lua.LUserData:
		if n, ok := v.Value.(*html.Node); ok {
			return n
		}
		return v.Value
	case *lua.LTable:
		keys := 0
		v.ForEach(func(lua.LValue, lua.LValue) { keys++ })
		// only pure sequences become lists, anything else would lose keys
		if size := v.MaxN(); size > 0 && size == keys {
			list := make([]any, 0, size)
			for i := 1; i <= size; i++ {
				list = append(list, fromLua(v.RawGetInt(i)))
			}
			return list
		}
		m := map[string]any{}
		v.ForEach(func(key, val lua.LValue) {
			m[key.String()] = fromLua(val)
		})
		return m
	}
	return v.String()
}
