package state

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/xgb/xproto"
)

// Group determines how a window participates in tiling.
type Group int

const (
	// GroupMaster windows receive the largest share of the work area,
	// independent of how many windows the tag holds.
	GroupMaster Group = iota
	// GroupStack windows divide the remaining area vertically among
	// themselves.
	GroupStack
	// GroupFloating windows are exempt from tiling and keep whatever
	// geometry their own configure requests ask for.
	GroupFloating
	// GroupFullscreen windows cover the whole screen and hide their
	// tiled siblings.
	GroupFullscreen
)

func (g Group) String() string {
	switch g {
	case GroupMaster:
		return "master"
	case GroupStack:
		return "stack"
	case GroupFloating:
		return "floating"
	case GroupFullscreen:
		return "fullscreen"
	}
	return "unknown"
}

// NoWindow is the sentinel for "no focused window". X11 never hands out
// resource id 0.
const NoWindow xproto.Window = 0

// TagCount is the fixed number of virtual desktops.
const TagCount = 9

// Window holds the geometry, group and ids of one managed window.
// The frame wraps the client window for the whole managed lifetime.
type Window struct {
	ID     xproto.Window
	Frame  xproto.Window
	X, Y   int16
	Width  uint16
	Height uint16
	Group  Group
}

// NewWindow returns a window with placeholder geometry. New windows are
// tiled before they are ever shown, so the initial values never reach the
// screen.
func NewWindow(id, frame xproto.Window) Window {
	return Window{
		ID:     id,
		Frame:  frame,
		Width:  100,
		Height: 100,
		Group:  GroupStack,
	}
}

func (w Window) String() string {
	return fmt.Sprintf("id %d fid %d x %d y %d w %d h %d g %s",
		w.ID, w.Frame, w.X, w.Y, w.Width, w.Height, w.Group)
}

// Tag is a virtual desktop: an ordered window list plus the focused
// window. Insertion order doubles as tiling priority; the last inserted
// window is the current master candidate.
type Tag struct {
	Num     int
	Focus   xproto.Window
	Windows []Window
}

func (t *Tag) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "tag %d | focus %d | windows:\n", t.Num, t.Focus)
	for _, w := range t.Windows {
		fmt.Fprintf(&b, "%s\n", w)
	}
	return b.String()
}

// Tiling carries the parameters of one tiling pass. Only Ratio changes
// at runtime, and only between passes.
type Tiling struct {
	Gap       uint16
	Ratio     float32
	MaxWidth  uint16
	MaxHeight uint16
	BarHeight uint16
}

// Handler owns the nine tags, the active tag index and the tiling
// parameters. It is created once at startup and mutated only by the
// event dispatcher; nothing else holds a reference to its internals.
type Handler struct {
	Tags      [TagCount]Tag
	ActiveTag int
	Tiling    Tiling
}

// NewHandler returns a handler with nine empty tags and tag 0 active.
func NewHandler(tiling Tiling) *Handler {
	h := &Handler{Tiling: tiling}
	for i := range h.Tags {
		h.Tags[i].Num = i
	}
	return h
}

// Focused returns the active tag's focused window id, or NoWindow.
func (h *Handler) Focused() xproto.Window {
	return h.Tags[h.ActiveTag].Focus
}

// ActiveWindows returns the active tag's window list.
func (h *Handler) ActiveWindows() []Window {
	return h.Tags[h.ActiveTag].Windows
}

// FindWindow looks a window up in the active tag by its client id or its
// frame id. Returns nil if the window is not managed there.
func (h *Handler) FindWindow(id xproto.Window) *Window {
	ws := h.Tags[h.ActiveTag].Windows
	for i := range ws {
		if ws[i].ID == id || ws[i].Frame == id {
			return &ws[i]
		}
	}
	return nil
}

// AddWindow appends the window to the active tag and focuses it.
func (h *Handler) AddWindow(w Window) {
	t := &h.Tags[h.ActiveTag]
	t.Windows = append(t.Windows, w)
	t.Focus = w.ID
}

// RemoveWindow drops the window from the active tag and moves focus to
// the remaining master candidate.
func (h *Handler) RemoveWindow(id xproto.Window) {
	t := &h.Tags[h.ActiveTag]
	kept := t.Windows[:0]
	for _, w := range t.Windows {
		if w.ID != id {
			kept = append(kept, w)
		}
	}
	t.Windows = kept
	h.SetTagFocusToMaster()
}

// SetTagFocusToMaster focuses the active tag's last window, the current
// master candidate, or clears focus on an empty tag.
func (h *Handler) SetTagFocusToMaster() {
	t := &h.Tags[h.ActiveTag]
	if len(t.Windows) == 0 {
		t.Focus = NoWindow
		return
	}
	t.Focus = t.Windows[len(t.Windows)-1].ID
}

// MoveWindowToTag moves a window from the active tag to the target tag,
// keeping its state, and refocuses the active tag's master candidate.
// Reports whether the window was found.
func (h *Handler) MoveWindowToTag(id xproto.Window, target int) bool {
	w := h.FindWindow(id)
	if w == nil || target < 0 || target >= TagCount || target == h.ActiveTag {
		return false
	}
	moved := *w
	h.Tags[target].Windows = append(h.Tags[target].Windows, moved)
	src := &h.Tags[h.ActiveTag]
	kept := src.Windows[:0]
	for _, sw := range src.Windows {
		if sw.ID != moved.ID {
			kept = append(kept, sw)
		}
	}
	src.Windows = kept
	h.SetTagFocusToMaster()
	return true
}

// SwitchFocusNext cycles the focus by delta positions over the active
// tag's window order. No-op when nothing is focused.
func (h *Handler) SwitchFocusNext(delta int) {
	t := &h.Tags[h.ActiveTag]
	if t.Focus == NoWindow || len(t.Windows) == 0 {
		return
	}
	idx := h.indexOf(t.Focus)
	if idx < 0 {
		return
	}
	idx = mod(idx+delta, len(t.Windows))
	t.Focus = t.Windows[idx].ID
}

// SwapMaster exchanges the positions of the focused window and the
// master candidate. When the focus already is the master and another
// window exists, the runner-up takes its place instead.
func (h *Handler) SwapMaster() {
	t := &h.Tags[h.ActiveTag]
	if t.Focus == NoWindow || len(t.Windows) == 0 {
		return
	}
	master := t.Windows[len(t.Windows)-1].ID
	if master == t.Focus && len(t.Windows) > 1 {
		master = t.Windows[len(t.Windows)-2].ID
	}
	fi := h.indexOf(t.Focus)
	mi := h.indexOf(master)
	if fi < 0 || mi < 0 {
		return
	}
	t.Windows[fi], t.Windows[mi] = t.Windows[mi], t.Windows[fi]
}

// AdjustRatio clamp-adds delta to the master/stack ratio. The clamp
// keeps every later tiling pass well formed.
func (h *Handler) AdjustRatio(delta float32) {
	r := h.Tiling.Ratio + delta
	if r < 0.15 {
		r = 0.15
	}
	if r > 0.85 {
		r = 0.85
	}
	h.Tiling.Ratio = r
}

// Refresh reassigns window groups and retiles the active tag. Mandatory
// after any structural mutation, before geometry reaches the display.
func (h *Handler) Refresh() {
	h.AssignGroups()
	h.TileWindows()
}

func (h *Handler) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "active tag %d\ntags:\n", h.ActiveTag)
	for i := range h.Tags {
		if len(h.Tags[i].Windows) == 0 {
			continue
		}
		b.WriteString(h.Tags[i].String())
	}
	return b.String()
}

// indexOf returns the position of a window in the active tag, matching
// by client or frame id, or -1.
func (h *Handler) indexOf(id xproto.Window) int {
	ws := h.Tags[h.ActiveTag].Windows
	for i := range ws {
		if ws[i].ID == id || ws[i].Frame == id {
			return i
		}
	}
	return -1
}

// mod is the euclidean remainder: always in [0, n).
func mod(a, n int) int {
	m := a % n
	if m < 0 {
		m += n
	}
	return m
}
