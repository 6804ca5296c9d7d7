package extension

import (
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strings"

	"github.com/Shopify/go-lua"
	"github.com/sarchlab/stepper/config"
	"github.com/sarchlab/stepper/hooking"
	"github.com/sarchlab/stepper/simulation"
)

// hooksKey names the table in the Lua registry that keeps the functions of
// the registered hooks.
const hooksKey = "__stepper_hooks"

// ErrBadReturn is returned when a dt hook written in Lua does not return a
// number.
var ErrBadReturn = errors.New("lua hook returned a non-number")

// A Module is one loaded Lua file together with the interpreter that runs its
// hooks.
type Module struct {
	name  string
	state *lua.State
	ctx   *simulation.Context
	dict  config.Dictionary
	hooks []string
}

// LoadModule runs the Lua file at path. The hooks it subscribes are owned by
// "lua:" followed by the file name without extension.
func LoadModule(
	c *simulation.Context,
	dict config.Dictionary,
	path string,
) (*Module, error) {
	m := &Module{
		name:  strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		state: lua.NewState(),
		ctx:   c,
		dict:  dict,
	}

	lua.OpenLibraries(m.state)
	m.registerAPI()

	if err := lua.LoadFile(m.state, path, ""); err != nil {
		return nil, fmt.Errorf("load lua: %w", err)
	}

	if err := m.state.ProtectedCall(0, 0, 0); err != nil {
		return nil, fmt.Errorf("run lua: %w", err)
	}

	return m, nil
}

// Name returns the name of the module.
func (m *Module) Name() string {
	return m.name
}

// Owner returns the owner tag of the hooks the module subscribes.
func (m *Module) Owner() string {
	return "lua:" + m.name
}

// Hooks returns the hooks the module subscribed, as entry point and hook name
// joined by a slash.
func (m *Module) Hooks() []string {
	return m.hooks
}

func (m *Module) registerAPI() {
	l := m.state

	l.NewTable()
	l.SetField(lua.RegistryIndex, hooksKey)

	l.NewTable()
	lua.SetFunctions(l, []lua.RegistryFunction{
		{Name: "append", Function: m.subscriber(hooking.Append)},
		{Name: "prepend", Function: m.subscriber(hooking.Prepend)},
		{Name: "append_last", Function: m.subscriber(hooking.AppendAlwaysLast)},
		{Name: "prepend_first", Function: m.subscriber(hooking.PrependAlwaysFirst)},
		{Name: "time", Function: m.currentTime},
		{Name: "step", Function: m.timeStep},
		{Name: "dt", Function: m.timeStepSize},
		{Name: "config", Function: m.configValue},
		{Name: "quit", Function: m.quit},
		{Name: "log", Function: m.log},
	}, 0)
	l.SetGlobal("stepper")
}

func (m *Module) subscriber(policy hooking.Policy) lua.Function {
	return func(l *lua.State) int {
		epName := lua.CheckString(l, 1)
		hookName := lua.CheckString(l, 2)
		lua.CheckType(l, 3, lua.TypeFunction)

		key := epName + "/" + hookName

		err := m.register(policy, epName, hookName, key)
		if err != nil {
			lua.Errorf(l, "%s", err.Error())
			return 0
		}

		l.Field(lua.RegistryIndex, hooksKey)
		l.PushValue(3)
		l.SetField(-2, key)
		l.Pop(1)

		m.hooks = append(m.hooks, key)

		return 0
	}
}

func (m *Module) register(
	policy hooking.Policy,
	epName, hookName, key string,
) error {
	ep, err := m.ctx.Registry().Lookup(epName)
	if err != nil {
		return err
	}

	r := m.ctx.Registry()
	owner := m.Owner()

	switch ep.CastType() {
	case hooking.CastVoid:
		return hooking.Register(r, epName, policy, hooking.Hook[hooking.VoidFunc]{
			Name: hookName, Owner: owner,
			Func: func(any) error { return m.call(key) },
		})
	case hooking.CastPair, hooking.CastConstruct:
		return hooking.Register(r, epName, policy, hooking.Hook[hooking.PairFunc]{
			Name: hookName, Owner: owner,
			Func: func(_, _ any) error { return m.call(key) },
		})
	case hooking.CastDt:
		return hooking.Register(r, epName, policy, hooking.Hook[hooking.DtFunc]{
			Name: hookName, Owner: owner,
			Func: func() (float64, error) { return m.callDt(key) },
		})
	case hooking.CastStep:
		return hooking.Register(r, epName, policy, hooking.Hook[hooking.StepFunc]{
			Name: hookName, Owner: owner,
			Func: func(_ any, dt float64) error { return m.call(key, dt) },
		})
	case hooking.CastClass:
		return hooking.Register(r, epName, policy, hooking.Hook[hooking.ClassFunc]{
			Name: hookName, Owner: owner,
			Func: func(_, _ any) error { return m.call(key) },
		})
	}

	return fmt.Errorf("entry point %s has unsupported cast type %s",
		epName, ep.CastType())
}

func (m *Module) pushHook(key string) {
	l := m.state

	l.Field(lua.RegistryIndex, hooksKey)
	l.Field(-1, key)
	l.Remove(-2)
}

func (m *Module) call(key string, args ...float64) error {
	defer m.state.SetTop(m.state.Top())
	m.pushHook(key)

	for _, a := range args {
		m.state.PushNumber(a)
	}

	if err := m.state.ProtectedCall(len(args), 0, 0); err != nil {
		return fmt.Errorf("%s: %w", m.name, err)
	}

	return nil
}

func (m *Module) callDt(key string) (float64, error) {
	l := m.state
	defer l.SetTop(l.Top())
	m.pushHook(key)

	if err := l.ProtectedCall(0, 1, 0); err != nil {
		return 0, fmt.Errorf("%s: %w", m.name, err)
	}

	if l.TypeOf(-1) != lua.TypeNumber {
		return 0, fmt.Errorf("%s: %s: %w", m.name, key, ErrBadReturn)
	}

	dt, _ := l.ToNumber(-1)

	return dt, nil
}

func (m *Module) currentTime(l *lua.State) int {
	l.PushNumber(m.ctx.CurrentTime())
	return 1
}

func (m *Module) timeStep(l *lua.State) int {
	l.PushInteger(m.ctx.TimeStep())
	return 1
}

func (m *Module) timeStepSize(l *lua.State) int {
	l.PushNumber(m.ctx.TimeStepSize())
	return 1
}

func (m *Module) configValue(l *lua.State) int {
	key := lua.CheckString(l, 1)

	_, v, ok := config.Lookup(m.dict, key)
	if !ok {
		l.PushNil()
		return 1
	}

	switch v := v.(type) {
	case string:
		l.PushString(v)
	case bool:
		l.PushBoolean(v)
	case int:
		l.PushInteger(v)
	case int64:
		l.PushNumber(float64(v))
	case float64:
		l.PushNumber(v)
	default:
		l.PushString(fmt.Sprint(v))
	}

	return 1
}

func (m *Module) quit(*lua.State) int {
	m.ctx.RequestGracefulQuit()
	return 0
}

func (m *Module) log(l *lua.State) int {
	log.Printf("%s: %s", m.name, lua.CheckString(l, 1))
	return 0
}
