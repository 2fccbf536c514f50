package manager

import (
	"io"
	"log/slog"
	"testing"

	"github.com/BurntSushi/xgb/xproto"

	"github.com/MarkusIfquil/hematite/internal/keys"
	"github.com/MarkusIfquil/hematite/internal/state"
)

// fakeConn records every X operation the manager performs.
type fakeConn struct {
	nextFrame     xproto.Window
	destroyed     []xproto.Window
	mapped        []xproto.Window
	unmapped      []xproto.Window
	configured    []xproto.Window
	focused       []xproto.Window
	rootFocused   int
	killed        []xproto.Window
	fullscreenOn  []xproto.Window
	fullscreenOff []xproto.Window
	clientLists   [][]xproto.Window
	desktops      []int
	windowDesktop map[xproto.Window]int
	focusReply    xproto.Window
	floating      map[xproto.Window][2]uint16
	spawned       []string
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		nextFrame:     1000,
		windowDesktop: make(map[xproto.Window]int),
		floating:      make(map[xproto.Window][2]uint16),
	}
}

func (f *fakeConn) AddWindow(w *state.Window) error {
	f.nextFrame++
	w.Frame = f.nextFrame
	return nil
}
func (f *fakeConn) DestroyFrame(w *state.Window) { f.destroyed = append(f.destroyed, w.ID) }
func (f *fakeConn) Map(w *state.Window)          { f.mapped = append(f.mapped, w.ID) }
func (f *fakeConn) Unmap(w *state.Window)        { f.unmapped = append(f.unmapped, w.ID) }
func (f *fakeConn) ConfigureFromState(w *state.Window) error {
	f.configured = append(f.configured, w.ID)
	return nil
}
func (f *fakeConn) HandleConfigureRequest(ev xproto.ConfigureRequestEvent, w *state.Window) error {
	f.configured = append(f.configured, w.ID)
	return nil
}
func (f *fakeConn) SetFocus(tagWindows []state.Window, w state.Window) error {
	f.focused = append(f.focused, w.ID)
	return nil
}
func (f *fakeConn) FocusRoot() error {
	f.rootFocused++
	return nil
}
func (f *fakeConn) GetFocus() (xproto.Window, error) { return f.focusReply, nil }
func (f *fakeConn) Kill(win xproto.Window)           { f.killed = append(f.killed, win) }
func (f *fakeConn) SetFullscreen(w *state.Window) error {
	f.fullscreenOn = append(f.fullscreenOn, w.ID)
	return nil
}
func (f *fakeConn) RemoveFullscreen(w *state.Window) error {
	f.fullscreenOff = append(f.fullscreenOff, w.ID)
	return nil
}
func (f *fakeConn) DecodeFullscreenRequest(ev xproto.ClientMessageEvent) (bool, bool) {
	if ev.Format != 32 || len(ev.Data.Data32) < 2 || ev.Data.Data32[1] == 0 {
		return false, false
	}
	return ev.Data.Data32[0] == 1, true
}
func (f *fakeConn) ShouldFloat(win xproto.Window) (uint16, uint16, bool) {
	size, ok := f.floating[win]
	return size[0], size[1], ok
}
func (f *fakeConn) UpdateClientList(wins []xproto.Window) error {
	f.clientLists = append(f.clientLists, wins)
	return nil
}
func (f *fakeConn) SetCurrentDesktop(tag int) error {
	f.desktops = append(f.desktops, tag)
	return nil
}
func (f *fakeConn) SetWindowDesktop(win xproto.Window, tag int) error {
	f.windowDesktop[win] = tag
	return nil
}
func (f *fakeConn) Geometry() (uint16, uint16) { return 1920, 1080 }
func (f *fakeConn) Spawn(command string)       { f.spawned = append(f.spawned, command) }

type fakeKeys struct {
	actions map[xproto.Keycode]keys.Action
}

func (f *fakeKeys) Lookup(ev xproto.KeyPressEvent) (keys.Action, bool) {
	a, ok := f.actions[ev.Detail]
	return a, ok
}

type fakeBar struct {
	repaints  int
	forgotten []xproto.Window
}

func (f *fakeBar) Repaint(st *state.Handler) error {
	f.repaints++
	return nil
}
func (f *fakeBar) Forget(win xproto.Window) { f.forgotten = append(f.forgotten, win) }

func testManager(actions map[xproto.Keycode]keys.Action) (*Manager, *fakeConn, *fakeBar) {
	conn := newFakeConn()
	bar := &fakeBar{}
	st := state.NewHandler(state.Tiling{
		Gap: 10, Ratio: 0.5, MaxWidth: 1920, MaxHeight: 1080, BarHeight: 18,
	})
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(conn, st, &fakeKeys{actions: actions}, bar, logger), conn, bar
}

func mapWindow(m *Manager, id xproto.Window) {
	m.HandleEvent(xproto.MapRequestEvent{Window: id})
}

func fullscreenMessage(win xproto.Window, on uint32) xproto.ClientMessageEvent {
	return xproto.ClientMessageEvent{
		Format: 32,
		Window: win,
		Data:   xproto.ClientMessageDataUnionData32New([]uint32{on, 7, 0, 0, 0}),
	}
}

func TestMapRequestManagesWindow(t *testing.T) {
	m, conn, bar := testManager(nil)
	mapWindow(m, 42)

	if m.State.FindWindow(42) == nil {
		t.Fatalf("window not managed")
	}
	if m.State.Focused() != 42 {
		t.Fatalf("new window not focused, got %d", m.State.Focused())
	}
	if m.State.FindWindow(42).Frame == 0 {
		t.Fatalf("window not framed")
	}
	if len(conn.configured) == 0 {
		t.Fatalf("window was never configured")
	}
	if bar.repaints == 0 {
		t.Fatalf("bar was not repainted")
	}
}

func TestMapRequestIgnoresKnownWindow(t *testing.T) {
	m, _, bar := testManager(nil)
	mapWindow(m, 42)
	repaints := bar.repaints
	mapWindow(m, 42)

	if got := len(m.State.ActiveWindows()); got != 1 {
		t.Fatalf("window managed twice: %d entries", got)
	}
	if bar.repaints != repaints {
		t.Fatalf("duplicate map request triggered a refresh")
	}
}

func TestMapRequestFloatsFixedSizeWindows(t *testing.T) {
	m, conn, _ := testManager(nil)
	conn.floating[42] = [2]uint16{400, 300}
	mapWindow(m, 42)

	w := m.State.FindWindow(42)
	if w == nil {
		t.Fatalf("window not managed")
	}
	if w.Group != state.GroupFloating {
		t.Fatalf("group = %v, want Floating", w.Group)
	}
	if w.Width != 400 || w.Height != 300 {
		t.Fatalf("size = %dx%d, want 400x300", w.Width, w.Height)
	}
	if w.X != (1920-400)/2 || w.Y != (1080-300)/2 {
		t.Fatalf("not centered: %d,%d", w.X, w.Y)
	}
}

func TestMapRequestPinsOversizedFloatToOrigin(t *testing.T) {
	m, conn, _ := testManager(nil)
	conn.floating[42] = [2]uint16{2560, 1600}
	mapWindow(m, 42)

	w := m.State.FindWindow(42)
	if w == nil {
		t.Fatalf("window not managed")
	}
	if w.X != 0 || w.Y != 0 {
		t.Fatalf("oversized float not pinned to origin: %d,%d", w.X, w.Y)
	}
}

func TestUnmapNotifyUnmanagesWindow(t *testing.T) {
	m, conn, bar := testManager(nil)
	mapWindow(m, 42)
	mapWindow(m, 43)

	m.HandleEvent(xproto.UnmapNotifyEvent{Window: 43})

	if m.State.FindWindow(43) != nil {
		t.Fatalf("window still managed")
	}
	if len(conn.destroyed) != 1 || conn.destroyed[0] != 43 {
		t.Fatalf("frame not destroyed: %v", conn.destroyed)
	}
	if len(bar.forgotten) != 1 || bar.forgotten[0] != 43 {
		t.Fatalf("icon cache not invalidated: %v", bar.forgotten)
	}
	if m.State.Focused() != 42 {
		t.Fatalf("focus did not fall back to remaining window")
	}
	last := conn.clientLists[len(conn.clientLists)-1]
	if len(last) != 1 || last[0] != 42 {
		t.Fatalf("client list not updated: %v", last)
	}
}

func TestUnmapNotifyIgnoresUnknownWindow(t *testing.T) {
	m, conn, _ := testManager(nil)
	m.HandleEvent(xproto.UnmapNotifyEvent{Window: 99})
	if len(conn.destroyed) != 0 {
		t.Fatalf("destroyed a frame for an unmanaged window")
	}
}

func TestSwitchTagRemapsWindows(t *testing.T) {
	m, conn, _ := testManager(map[xproto.Keycode]keys.Action{
		10: {Kind: keys.ActionSwitchTag, Tag: 1},
	})
	mapWindow(m, 42)

	m.HandleEvent(xproto.KeyPressEvent{Detail: 10})

	if m.State.ActiveTag != 1 {
		t.Fatalf("active tag = %d, want 1", m.State.ActiveTag)
	}
	if len(conn.unmapped) != 1 || conn.unmapped[0] != 42 {
		t.Fatalf("old tag windows not unmapped: %v", conn.unmapped)
	}
	if len(conn.desktops) == 0 || conn.desktops[len(conn.desktops)-1] != 1 {
		t.Fatalf("current desktop not published: %v", conn.desktops)
	}
	if conn.rootFocused == 0 {
		t.Fatalf("empty tag should drop focus to root")
	}
}

func TestSwitchToActiveTagIsNoOp(t *testing.T) {
	m, conn, _ := testManager(map[xproto.Keycode]keys.Action{
		10: {Kind: keys.ActionSwitchTag, Tag: 0},
	})
	mapWindow(m, 42)

	m.HandleEvent(xproto.KeyPressEvent{Detail: 10})

	if len(conn.unmapped) != 0 {
		t.Fatalf("switching to the active tag should not touch windows")
	}
	if m.State.ActiveTag != 0 {
		t.Fatalf("active tag changed")
	}
}

func TestNextTagWrapsBackwards(t *testing.T) {
	m, _, _ := testManager(map[xproto.Keycode]keys.Action{
		10: {Kind: keys.ActionNextTag, Delta: -1},
	})
	m.HandleEvent(xproto.KeyPressEvent{Detail: 10})

	if m.State.ActiveTag != state.TagCount-1 {
		t.Fatalf("active tag = %d, want %d", m.State.ActiveTag, state.TagCount-1)
	}
}

func TestMoveWindowToTag(t *testing.T) {
	m, conn, _ := testManager(map[xproto.Keycode]keys.Action{
		10: {Kind: keys.ActionMoveToTag, Tag: 4},
	})
	mapWindow(m, 42)
	conn.focusReply = 42

	m.HandleEvent(xproto.KeyPressEvent{Detail: 10})

	if m.State.FindWindow(42) != nil {
		t.Fatalf("window still on active tag")
	}
	if got := len(m.State.Tags[4].Windows); got != 1 {
		t.Fatalf("window not on target tag: %d entries", got)
	}
	if conn.windowDesktop[42] != 4 {
		t.Fatalf("window desktop property = %d, want 4", conn.windowDesktop[42])
	}
	if len(conn.unmapped) == 0 || conn.unmapped[len(conn.unmapped)-1] != 42 {
		t.Fatalf("moved window not unmapped: %v", conn.unmapped)
	}
}

func TestCloseWindowKillsFocus(t *testing.T) {
	m, conn, _ := testManager(map[xproto.Keycode]keys.Action{
		10: {Kind: keys.ActionCloseWindow},
	})
	mapWindow(m, 42)

	m.HandleEvent(xproto.KeyPressEvent{Detail: 10})

	if len(conn.killed) != 1 || conn.killed[0] != 42 {
		t.Fatalf("focused window not asked to close: %v", conn.killed)
	}
}

func TestCloseWindowWithoutFocusIsNoOp(t *testing.T) {
	m, conn, _ := testManager(map[xproto.Keycode]keys.Action{
		10: {Kind: keys.ActionCloseWindow},
	})
	m.HandleEvent(xproto.KeyPressEvent{Detail: 10})

	if len(conn.killed) != 0 {
		t.Fatalf("kill sent with nothing focused")
	}
}

func TestSpawnRunsCommand(t *testing.T) {
	m, conn, _ := testManager(map[xproto.Keycode]keys.Action{
		10: {Kind: keys.ActionSpawn, Command: "  alacritty  "},
	})
	m.HandleEvent(xproto.KeyPressEvent{Detail: 10})

	if len(conn.spawned) != 1 {
		t.Fatalf("command not spawned: %v", conn.spawned)
	}
}

func TestUnboundKeyIsIgnored(t *testing.T) {
	m, _, bar := testManager(nil)
	m.HandleEvent(xproto.KeyPressEvent{Detail: 10})
	if bar.repaints != 0 {
		t.Fatalf("unbound key triggered a refresh")
	}
}

func TestEnterNotifyMovesFocus(t *testing.T) {
	m, conn, _ := testManager(nil)
	mapWindow(m, 42)
	mapWindow(m, 43)

	frame := m.State.FindWindow(42).Frame
	m.HandleEvent(xproto.EnterNotifyEvent{Event: frame})

	if m.State.Focused() != 42 {
		t.Fatalf("focus = %d, want 42", m.State.Focused())
	}
	if conn.focused[len(conn.focused)-1] != 42 {
		t.Fatalf("server focus not updated: %v", conn.focused)
	}
}

func TestFullscreenRoundTrip(t *testing.T) {
	m, conn, _ := testManager(nil)
	mapWindow(m, 42)

	m.HandleEvent(fullscreenMessage(42, 1))
	w := m.State.FindWindow(42)
	if w.Group != state.GroupFullscreen {
		t.Fatalf("group = %v, want Fullscreen", w.Group)
	}
	if w.X != 0 || w.Y != 0 || w.Width != 1920 || w.Height != 1080 {
		t.Fatalf("fullscreen geometry wrong: %+v", w)
	}
	if len(conn.fullscreenOn) != 1 {
		t.Fatalf("fullscreen not applied on server")
	}

	m.HandleEvent(fullscreenMessage(42, 0))
	w = m.State.FindWindow(42)
	if w.Group != state.GroupMaster {
		t.Fatalf("group after exit = %v, want Master (sole window)", w.Group)
	}
	if len(conn.fullscreenOff) != 1 {
		t.Fatalf("fullscreen not removed on server")
	}
}

func TestConfigureRequestOnlyForManagedWindows(t *testing.T) {
	m, conn, _ := testManager(nil)
	m.HandleEvent(xproto.ConfigureRequestEvent{Window: 99})
	if len(conn.configured) != 0 {
		t.Fatalf("configured an unmanaged window")
	}
}
