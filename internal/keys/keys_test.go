package keys

import (
	"errors"
	"testing"

	"github.com/BurntSushi/xgb/xproto"

	"github.com/MarkusIfquil/hematite/internal/config"
)

func TestParseMods(t *testing.T) {
	cases := []struct {
		in      string
		want    uint16
		wantErr bool
	}{
		{"", 0, false},
		{"mod", xproto.ModMask4, false},
		{"shift", xproto.ModMaskShift, false},
		{"mod|shift", xproto.ModMask4 | xproto.ModMaskShift, false},
		{"mod | control", xproto.ModMask4 | xproto.ModMaskControl, false},
		{"alt", xproto.ModMask1, false},
		{"hyper", 0, true},
		{"mod|", 0, true},
	}
	for _, tc := range cases {
		got, err := ParseMods(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("ParseMods(%q): expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseMods(%q): unexpected error: %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("ParseMods(%q) = %#x, want %#x", tc.in, got, tc.want)
		}
	}
}

func TestParseAction(t *testing.T) {
	cases := []struct {
		name    string
		in      config.Hotkey
		want    Action
		wantErr bool
	}{
		{"spawn", config.Hotkey{Action: "spawn", Arg: "alacritty"}, Action{Kind: ActionSpawn, Command: "alacritty"}, false},
		{"close", config.Hotkey{Action: "close-window"}, Action{Kind: ActionCloseWindow}, false},
		{"switch tag is zero based", config.Hotkey{Action: "switch-tag", Arg: "3"}, Action{Kind: ActionSwitchTag, Tag: 2}, false},
		{"move to tag", config.Hotkey{Action: "move-to-tag", Arg: "9"}, Action{Kind: ActionMoveToTag, Tag: 8}, false},
		{"change ratio", config.Hotkey{Action: "change-ratio", Arg: "-0.05"}, Action{Kind: ActionChangeRatio, Amount: -0.05}, false},
		{"next focus", config.Hotkey{Action: "next-focus", Arg: "1"}, Action{Kind: ActionNextFocus, Delta: 1}, false},
		{"next tag backwards", config.Hotkey{Action: "next-tag", Arg: "-1"}, Action{Kind: ActionNextTag, Delta: -1}, false},
		{"swap master", config.Hotkey{Action: "swap-master"}, Action{Kind: ActionSwapMaster}, false},
		{"tag zero", config.Hotkey{Action: "switch-tag", Arg: "0"}, Action{}, true},
		{"tag ten", config.Hotkey{Action: "move-to-tag", Arg: "10"}, Action{}, true},
		{"bad ratio", config.Hotkey{Action: "change-ratio", Arg: "wide"}, Action{}, true},
		{"unknown", config.Hotkey{Action: "minimize"}, Action{}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := parseAction(tc.in)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("got %+v, want %+v", got, tc.want)
			}
		})
	}
}

// fixedResolver maps key names to fixed keycodes for tests.
func fixedResolver(m map[string][]xproto.Keycode) resolver {
	return func(name string) ([]xproto.Keycode, error) {
		codes, ok := m[name]
		if !ok {
			return nil, errors.New("no keycode")
		}
		return codes, nil
	}
}

func TestLookup(t *testing.T) {
	hotkeys := []config.Hotkey{
		{Mods: "mod", Key: "Return", Action: "swap-master"},
		{Mods: "mod|shift", Key: "1", Action: "move-to-tag", Arg: "1"},
		{Mods: "mod", Key: "1", Action: "switch-tag", Arg: "1"},
	}
	bindings, err := compile(hotkeys, fixedResolver(map[string][]xproto.Keycode{
		"Return": {36},
		"1":      {10},
	}))
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	h := &Handler{bindings: bindings}

	cases := []struct {
		name  string
		ev    xproto.KeyPressEvent
		want  ActionKind
		found bool
	}{
		{"swap master", xproto.KeyPressEvent{Detail: 36, State: xproto.ModMask4}, ActionSwapMaster, true},
		{"mods disambiguate", xproto.KeyPressEvent{Detail: 10, State: xproto.ModMask4 | xproto.ModMaskShift}, ActionMoveToTag, true},
		{"plain mod tag", xproto.KeyPressEvent{Detail: 10, State: xproto.ModMask4}, ActionSwitchTag, true},
		{"num lock ignored", xproto.KeyPressEvent{Detail: 36, State: xproto.ModMask4 | xproto.ModMask2}, ActionSwapMaster, true},
		{"caps lock ignored", xproto.KeyPressEvent{Detail: 36, State: xproto.ModMask4 | xproto.ModMaskLock}, ActionSwapMaster, true},
		{"unbound keycode", xproto.KeyPressEvent{Detail: 99, State: xproto.ModMask4}, 0, false},
		{"wrong mods", xproto.KeyPressEvent{Detail: 36, State: xproto.ModMaskControl}, 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			action, ok := h.Lookup(tc.ev)
			if ok != tc.found {
				t.Fatalf("found = %v, want %v", ok, tc.found)
			}
			if ok && action.Kind != tc.want {
				t.Fatalf("kind = %v, want %v", action.Kind, tc.want)
			}
		})
	}
}

func TestCompileRejectsUnresolvableKey(t *testing.T) {
	hotkeys := []config.Hotkey{{Mods: "mod", Key: "Yen", Action: "swap-master"}}
	if _, err := compile(hotkeys, fixedResolver(nil)); err == nil {
		t.Fatalf("expected error for unresolvable keysym")
	}
}
