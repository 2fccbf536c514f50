// Package keys turns configured hotkeys into X key grabs and maps key
// press events back to actions.
package keys

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/keybind"

	"github.com/MarkusIfquil/hematite/internal/config"
)

// ActionKind enumerates what a hotkey can do.
type ActionKind int

const (
	ActionSpawn ActionKind = iota
	ActionCloseWindow
	ActionSwitchTag
	ActionMoveToTag
	ActionChangeRatio
	ActionNextFocus
	ActionNextTag
	ActionSwapMaster
)

// Action is a parsed hotkey action. Which field carries the argument
// depends on Kind.
type Action struct {
	Kind    ActionKind
	Command string  // ActionSpawn
	Tag     int     // ActionSwitchTag, ActionMoveToTag (0-based)
	Amount  float32 // ActionChangeRatio
	Delta   int     // ActionNextFocus, ActionNextTag
}

type binding struct {
	mods     uint16
	keycodes []xproto.Keycode
	action   Action
}

// Handler holds the compiled bindings for one X connection.
type Handler struct {
	bindings []binding
}

// ignoreMods are modifier bits stripped before matching: num lock and
// caps lock must not change what a chord means.
const ignoreMods = xproto.ModMask2 | xproto.ModMaskLock

// ParseMods parses a "|"-separated modifier list ("mod|shift") into an
// X modifier mask. "mod" is the super key.
func ParseMods(s string) (uint16, error) {
	var mask uint16
	if s == "" {
		return 0, nil
	}
	for _, part := range strings.Split(s, "|") {
		switch strings.TrimSpace(part) {
		case "mod":
			mask |= xproto.ModMask4
		case "shift":
			mask |= xproto.ModMaskShift
		case "control":
			mask |= xproto.ModMaskControl
		case "alt":
			mask |= xproto.ModMask1
		default:
			return 0, fmt.Errorf("unknown modifier %q", part)
		}
	}
	return mask, nil
}

func parseAction(h config.Hotkey) (Action, error) {
	switch h.Action {
	case "spawn":
		return Action{Kind: ActionSpawn, Command: h.Arg}, nil
	case "close-window":
		return Action{Kind: ActionCloseWindow}, nil
	case "switch-tag", "move-to-tag":
		n, err := strconv.Atoi(h.Arg)
		if err != nil || n < 1 || n > 9 {
			return Action{}, fmt.Errorf("%s: bad tag %q", h.Action, h.Arg)
		}
		kind := ActionSwitchTag
		if h.Action == "move-to-tag" {
			kind = ActionMoveToTag
		}
		return Action{Kind: kind, Tag: n - 1}, nil
	case "change-ratio":
		f, err := strconv.ParseFloat(h.Arg, 32)
		if err != nil {
			return Action{}, fmt.Errorf("change-ratio: bad amount %q", h.Arg)
		}
		return Action{Kind: ActionChangeRatio, Amount: float32(f)}, nil
	case "next-focus", "next-tag":
		n, err := strconv.Atoi(h.Arg)
		if err != nil {
			return Action{}, fmt.Errorf("%s: bad delta %q", h.Action, h.Arg)
		}
		kind := ActionNextFocus
		if h.Action == "next-tag" {
			kind = ActionNextTag
		}
		return Action{Kind: kind, Delta: n}, nil
	case "swap-master":
		return Action{Kind: ActionSwapMaster}, nil
	}
	return Action{}, fmt.Errorf("unknown action %q", h.Action)
}

// resolver maps a keysym name to the keycodes producing it. Split out so
// bindings can be compiled without an X connection.
type resolver func(name string) ([]xproto.Keycode, error)

func compile(hotkeys []config.Hotkey, resolve resolver) ([]binding, error) {
	bindings := make([]binding, 0, len(hotkeys))
	for i, h := range hotkeys {
		mods, err := ParseMods(h.Mods)
		if err != nil {
			return nil, fmt.Errorf("hotkeys[%d]: %w", i, err)
		}
		action, err := parseAction(h)
		if err != nil {
			return nil, fmt.Errorf("hotkeys[%d]: %w", i, err)
		}
		codes, err := resolve(h.Key)
		if err != nil {
			return nil, fmt.Errorf("hotkeys[%d]: key %q: %w", i, h.Key, err)
		}
		bindings = append(bindings, binding{mods: mods, keycodes: codes, action: action})
	}
	return bindings, nil
}

// New compiles hotkeys against the keyboard mapping of xu.
func New(xu *xgbutil.XUtil, hotkeys []config.Hotkey) (*Handler, error) {
	keybind.Initialize(xu)
	bindings, err := compile(hotkeys, func(name string) ([]xproto.Keycode, error) {
		codes := keybind.StrToKeycodes(xu, name)
		if len(codes) == 0 {
			return nil, fmt.Errorf("no keycode for keysym")
		}
		return codes, nil
	})
	if err != nil {
		return nil, err
	}
	return &Handler{bindings: bindings}, nil
}

// Grab registers every binding on win so key presses arrive regardless
// of the focused window. Lock modifiers are grabbed alongside.
func (h *Handler) Grab(xu *xgbutil.XUtil, win xproto.Window) error {
	for _, b := range h.bindings {
		for _, code := range b.keycodes {
			if err := keybind.GrabChecked(xu, win, b.mods, code); err != nil {
				return fmt.Errorf("grab keycode %d mods %#x: %w", code, b.mods, err)
			}
		}
	}
	return nil
}

// Lookup resolves a key press to its action. Lock modifier state is
// ignored.
func (h *Handler) Lookup(ev xproto.KeyPressEvent) (Action, bool) {
	mods := ev.State &^ ignoreMods
	for _, b := range h.bindings {
		if b.mods != mods {
			continue
		}
		for _, code := range b.keycodes {
			if code == ev.Detail {
				return b.action, true
			}
		}
	}
	return Action{}, false
}
