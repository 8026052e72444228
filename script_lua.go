// script_lua.go - Lua automation for acemu

/*
License: GPLv3 or later
*/

package main

import (
	"context"
	"strings"

	lua "github.com/yuin/gopher-lua"
)

// RunLuaScript runs a script against a running machine. The script sees a
// global table "ace"; every call that touches memory or registers goes
// through the command queue, so the CPU keeps its single owner.
func RunLuaScript(ctx context.Context, m *Machine, path string) error {
	L := lua.NewState()
	defer L.Close()
	L.SetContext(ctx)

	s := &luaScript{ctx: ctx, m: m}
	tbl := L.NewTable()
	L.SetFuncs(tbl, map[string]lua.LGFunction{
		"type":   s.typeText,
		"wait":   s.wait,
		"reset":  s.reset,
		"speed":  s.speed,
		"tape":   s.tape,
		"detach": s.detach,
		"screen": s.screen,
		"peek":   s.peek,
		"poke":   s.poke,
		"reg":    s.reg,
		"disasm": s.disasm,
		"quit":   s.quit,
	})
	L.SetGlobal("ace", tbl)

	if err := L.DoFile(path); err != nil {
		return &MachineError{Operation: "script", Details: path, Err: err}
	}
	return nil
}

type luaScript struct {
	ctx context.Context
	m   *Machine
}

func (s *luaScript) typeText(L *lua.LState) int {
	s.m.Spooler().Type(L.CheckString(1))
	return 0
}

// wait(frames) blocks for that many display refreshes.
func (s *luaScript) wait(L *lua.LState) int {
	if err := s.m.WaitFrames(s.ctx, L.OptInt(1, 1)); err != nil {
		L.RaiseError("wait: %v", err)
	}
	return 0
}

func (s *luaScript) reset(L *lua.LState) int {
	s.m.HostReset()
	return 0
}

// speed([name]) switches to "normal" or "fast" and returns the speed in
// effect.
func (s *luaScript) speed(L *lua.LState) int {
	if L.GetTop() >= 1 {
		switch name := L.CheckString(1); name {
		case SpeedNormal.String():
			s.m.SetSpeed(SpeedNormal)
		case SpeedUnthrottled.String():
			s.m.SetSpeed(SpeedUnthrottled)
		default:
			L.ArgError(1, "want \"normal\" or \"fast\"")
		}
	}
	L.Push(lua.LString(s.m.Timing().Speed().String()))
	return 1
}

func (s *luaScript) tape(L *lua.LState) int {
	if err := s.m.Tape().Attach(L.CheckString(1)); err != nil {
		L.RaiseError("%v", err)
	}
	return 0
}

func (s *luaScript) detach(L *lua.LState) int {
	s.m.Tape().Detach()
	return 0
}

func (s *luaScript) screen(L *lua.LState) int {
	lines, err := Query(s.ctx, s.m, func(m *Machine) []string {
		return ScreenText(m.mem)
	})
	if err != nil {
		L.RaiseError("screen: %v", err)
	}
	L.Push(lua.LString(strings.Join(lines, "\n")))
	return 1
}

func (s *luaScript) peek(L *lua.LState) int {
	addr := checkAddress(L, 1)
	v, err := Query(s.ctx, s.m, func(m *Machine) byte {
		return m.mem.Fetch(addr)
	})
	if err != nil {
		L.RaiseError("peek: %v", err)
	}
	L.Push(lua.LNumber(v))
	return 1
}

// poke(addr, value) writes through the normal store path, so ROM stays
// read-only and mirrors are updated.
func (s *luaScript) poke(L *lua.LState) int {
	addr := checkAddress(L, 1)
	v := L.CheckInt(2)
	if v < 0 || v > 0xFF {
		L.ArgError(2, "byte out of range")
	}
	_, err := Query(s.ctx, s.m, func(m *Machine) struct{} {
		m.mem.Store(addr, byte(v))
		return struct{}{}
	})
	if err != nil {
		L.RaiseError("poke: %v", err)
	}
	return 0
}

// reg(name[, value]) reads or writes a register by name and returns the
// value after the call.
func (s *luaScript) reg(L *lua.LState) int {
	name := L.CheckString(1)
	r8, is8, r16, is16 := LookupRegister(name)
	if !is8 && !is16 {
		L.ArgError(1, "unknown register "+name)
	}
	set := L.GetTop() >= 2
	value := uint(L.OptInt(2, 0))

	v, err := Query(s.ctx, s.m, func(m *Machine) uint {
		regs := &m.cpu.Z80Registers
		if is8 {
			if set {
				regs.Set8(r8, value)
			}
			return uint(regs.Get8(r8))
		}
		if set {
			regs.Set16(r16, value)
		}
		return uint(regs.Get16(r16))
	})
	if err != nil {
		L.RaiseError("reg: %v", err)
	}
	L.Push(lua.LNumber(v))
	return 1
}

// disasm(addr[, count]) returns count decoded instructions, one per line.
func (s *luaScript) disasm(L *lua.LState) int {
	addr := checkAddress(L, 1)
	count := L.OptInt(2, 1)
	if count < 1 || count > 256 {
		L.ArgError(2, "count out of range")
	}
	lines, err := Query(s.ctx, s.m, func(m *Machine) []Z80DisasmLine {
		return DisassembleZ80(m.mem.Fetch, addr, count)
	})
	if err != nil {
		L.RaiseError("disasm: %v", err)
	}
	out := make([]string, len(lines))
	for i, line := range lines {
		out[i] = line.String()
	}
	L.Push(lua.LString(strings.Join(out, "\n")))
	return 1
}

func (s *luaScript) quit(L *lua.LState) int {
	s.m.Quit()
	return 0
}

func checkAddress(L *lua.LState, n int) uint16 {
	addr := L.CheckInt(n)
	if addr < 0 || addr > 0xFFFF {
		L.ArgError(n, "address out of range")
	}
	return uint16(addr)
}
