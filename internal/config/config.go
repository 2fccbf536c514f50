package config

import (
	"fmt"
	"strconv"
)

// Defaults applied when the config file is missing or a value is out of
// range.
const (
	DefaultGap    = 10
	DefaultRatio  = 0.5
	DefaultBorder = 1

	defaultMainColor      = "#11111b"
	defaultSecondaryColor = "#74c7ec"
)

// Color is an RGB color with X11's 16-bit channels.
type Color struct {
	Red   uint16
	Green uint16
	Blue  uint16
}

// ParseHexColor converts a "#rrggbb" string into 16-bit X channels.
func ParseHexColor(hex string) (Color, error) {
	if len(hex) != 7 || hex[0] != '#' {
		return Color{}, fmt.Errorf("color %q is not in #rrggbb form", hex)
	}
	parse := func(s string) (uint16, error) {
		v, err := strconv.ParseUint(s, 16, 8)
		if err != nil {
			return 0, err
		}
		// Scale an 8-bit channel to 16 bits (0xff -> 0xffff).
		return uint16(v) * 257, nil
	}
	r, err := parse(hex[1:3])
	if err != nil {
		return Color{}, fmt.Errorf("bad red channel in %q: %w", hex, err)
	}
	g, err := parse(hex[3:5])
	if err != nil {
		return Color{}, fmt.Errorf("bad green channel in %q: %w", hex, err)
	}
	b, err := parse(hex[5:7])
	if err != nil {
		return Color{}, fmt.Errorf("bad blue channel in %q: %w", hex, err)
	}
	return Color{Red: r, Green: g, Blue: b}, nil
}

// Hotkey binds a key chord to a named action.
type Hotkey struct {
	// Mods is a "|"-separated modifier list: "mod", "shift", "control".
	Mods string `yaml:"mods"`
	// Key is a keysym name as understood by the X keysym table,
	// e.g. "Return", "1", "XF86AudioMute".
	Key string `yaml:"key"`
	// Action names what the chord does. See validActions.
	Action string `yaml:"action"`
	// Arg carries the action parameter: a command line for spawn, a tag
	// number for switch-tag/move-to-tag, a signed amount for
	// change-ratio/next-focus/next-tag.
	Arg string `yaml:"arg,omitempty"`
}

// Sizing holds the tiling parameters.
type Sizing struct {
	Gap    uint16  `yaml:"gap"`
	Ratio  float32 `yaml:"ratio"`
	Border uint16  `yaml:"border"`
}

// Colors holds the hex color strings as written in the file.
type Colors struct {
	Main      string `yaml:"main"`
	Secondary string `yaml:"secondary"`
}

// Config is the full configuration. Call Validate before use.
type Config struct {
	Sizing  Sizing   `yaml:"sizing"`
	Colors  Colors   `yaml:"colors"`
	Hotkeys []Hotkey `yaml:"hotkeys"`
}

// validActions maps accepted hotkey action names to whether they take an
// argument.
var validActions = map[string]bool{
	"spawn":        true,
	"close-window": false,
	"switch-tag":   true,
	"move-to-tag":  true,
	"change-ratio": true,
	"next-focus":   true,
	"next-tag":     true,
	"swap-master":  false,
}

// Validate checks hotkey entries and clamps sizing values into their
// accepted ranges. Out-of-range sizing falls back to the defaults rather
// than failing: a bad gap should not keep the window manager from
// starting.
func (c *Config) Validate() error {
	if c.Sizing.Gap > 1000 {
		c.Sizing.Gap = DefaultGap
	}
	if c.Sizing.Ratio < 0.15 || c.Sizing.Ratio > 0.85 {
		c.Sizing.Ratio = DefaultRatio
	}
	if c.Sizing.Border > 1000 {
		c.Sizing.Border = DefaultBorder
	}
	if _, err := ParseHexColor(c.Colors.Main); err != nil {
		return fmt.Errorf("colors.main: %w", err)
	}
	if _, err := ParseHexColor(c.Colors.Secondary); err != nil {
		return fmt.Errorf("colors.secondary: %w", err)
	}

	for i, h := range c.Hotkeys {
		needsArg, ok := validActions[h.Action]
		if !ok {
			return fmt.Errorf("hotkeys[%d]: unknown action %q", i, h.Action)
		}
		if h.Key == "" {
			return fmt.Errorf("hotkeys[%d]: missing key", i)
		}
		if needsArg && h.Arg == "" {
			return fmt.Errorf("hotkeys[%d]: action %q needs an arg", i, h.Action)
		}
		switch h.Action {
		case "switch-tag", "move-to-tag":
			n, err := strconv.Atoi(h.Arg)
			if err != nil || n < 1 || n > 9 {
				return fmt.Errorf("hotkeys[%d]: %s arg must be a tag number 1-9, got %q", i, h.Action, h.Arg)
			}
		case "next-focus", "next-tag":
			if _, err := strconv.Atoi(h.Arg); err != nil {
				return fmt.Errorf("hotkeys[%d]: %s arg must be an integer, got %q", i, h.Action, h.Arg)
			}
		case "change-ratio":
			if _, err := strconv.ParseFloat(h.Arg, 32); err != nil {
				return fmt.Errorf("hotkeys[%d]: change-ratio arg must be a number, got %q", i, h.Arg)
			}
		}
	}
	return nil
}

// MainColor returns the parsed main color. Only valid after Validate.
func (c *Config) MainColor() Color {
	col, _ := ParseHexColor(c.Colors.Main)
	return col
}

// SecondaryColor returns the parsed secondary color. Only valid after
// Validate.
func (c *Config) SecondaryColor() Color {
	col, _ := ParseHexColor(c.Colors.Secondary)
	return col
}

// Default returns the built-in configuration: dark background, light
// accent, and the stock hotkey table.
func Default() *Config {
	c := &Config{
		Sizing: Sizing{
			Gap:    DefaultGap,
			Ratio:  DefaultRatio,
			Border: DefaultBorder,
		},
		Colors: Colors{
			Main:      defaultMainColor,
			Secondary: defaultSecondaryColor,
		},
		Hotkeys: defaultHotkeys(),
	}
	return c
}

func defaultHotkeys() []Hotkey {
	keys := []Hotkey{
		{Mods: "control|mod", Key: "Return", Action: "spawn", Arg: "alacritty"},
		{Mods: "mod", Key: "c", Action: "spawn", Arg: "rofi -show drun"},
		{Mods: "mod", Key: "u", Action: "spawn", Arg: "maim --select | xclip -selection clipboard -t image/png"},
		{Mods: "mod", Key: "q", Action: "close-window"},
		{Mods: "mod", Key: "h", Action: "change-ratio", Arg: "-0.05"},
		{Mods: "mod", Key: "j", Action: "change-ratio", Arg: "0.05"},
		{Mods: "mod", Key: "k", Action: "next-focus", Arg: "1"},
		{Mods: "mod", Key: "l", Action: "next-focus", Arg: "-1"},
		{Mods: "mod", Key: "Left", Action: "next-tag", Arg: "-1"},
		{Mods: "mod", Key: "Right", Action: "next-tag", Arg: "1"},
		{Mods: "mod", Key: "Return", Action: "swap-master"},
		{Key: "XF86AudioRaiseVolume", Action: "spawn", Arg: "pactl set-sink-volume 0 +5%"},
		{Key: "XF86AudioLowerVolume", Action: "spawn", Arg: "pactl set-sink-volume 0 -5%"},
		{Key: "XF86AudioMute", Action: "spawn", Arg: "pactl set-sink-mute 0 toggle"},
		{Key: "XF86MonBrightnessUp", Action: "spawn", Arg: "light -A 5"},
		{Key: "XF86MonBrightnessDown", Action: "spawn", Arg: "light -U 5"},
	}
	for n := 1; n <= 9; n++ {
		arg := strconv.Itoa(n)
		keys = append(keys,
			Hotkey{Mods: "mod", Key: arg, Action: "switch-tag", Arg: arg},
			Hotkey{Mods: "mod|shift", Key: arg, Action: "move-to-tag", Arg: arg},
		)
	}
	return keys
}
