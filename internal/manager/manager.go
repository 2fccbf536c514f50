// Package manager dispatches X events to state mutations and pushes the
// resulting layout back to the server.
package manager

import (
	"log/slog"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xproto"

	"github.com/MarkusIfquil/hematite/internal/keys"
	"github.com/MarkusIfquil/hematite/internal/state"
)

// Conn is the slice of the X connection the manager drives. Split out
// so the event handlers can be exercised against a fake server.
type Conn interface {
	AddWindow(w *state.Window) error
	DestroyFrame(w *state.Window)
	Map(w *state.Window)
	Unmap(w *state.Window)
	ConfigureFromState(w *state.Window) error
	HandleConfigureRequest(ev xproto.ConfigureRequestEvent, w *state.Window) error
	SetFocus(tagWindows []state.Window, w state.Window) error
	FocusRoot() error
	GetFocus() (xproto.Window, error)
	Kill(win xproto.Window)
	SetFullscreen(w *state.Window) error
	RemoveFullscreen(w *state.Window) error
	DecodeFullscreenRequest(ev xproto.ClientMessageEvent) (on bool, ok bool)
	ShouldFloat(win xproto.Window) (uint16, uint16, bool)
	UpdateClientList(wins []xproto.Window) error
	SetCurrentDesktop(tag int) error
	SetWindowDesktop(win xproto.Window, tag int) error
	Geometry() (uint16, uint16)
	Spawn(command string)
}

// KeyLookup resolves key presses to configured actions.
type KeyLookup interface {
	Lookup(ev xproto.KeyPressEvent) (keys.Action, bool)
}

// Bar is the slice of the status bar the manager needs.
type Bar interface {
	Repaint(st *state.Handler) error
	Forget(win xproto.Window)
}

// Manager owns the window state and reacts to events. It is driven from
// a single goroutine; nothing here is safe for concurrent use.
type Manager struct {
	State *state.Handler

	conn   Conn
	keys   KeyLookup
	bar    Bar
	logger *slog.Logger
}

func New(conn Conn, st *state.Handler, keys KeyLookup, bar Bar, logger *slog.Logger) *Manager {
	return &Manager{
		State:  st,
		conn:   conn,
		keys:   keys,
		bar:    bar,
		logger: logger,
	}
}

// HandleEvent dispatches one X event. Failures are logged and swallowed:
// a misbehaving client must not take the manager down.
func (m *Manager) HandleEvent(ev xgb.Event) {
	switch e := ev.(type) {
	case xproto.MapRequestEvent:
		m.handleMapRequest(e)
	case xproto.UnmapNotifyEvent:
		m.handleUnmapNotify(e)
	case xproto.KeyPressEvent:
		m.handleKeyPress(e)
	case xproto.EnterNotifyEvent:
		m.handleEnter(e)
	case xproto.ConfigureRequestEvent:
		m.handleConfigureRequest(e)
	case xproto.ClientMessageEvent:
		m.handleClientMessage(e)
	}
}

// handleMapRequest frames and manages a new window. Windows whose size
// hints pin them to a fixed size float centered on the screen.
func (m *Manager) handleMapRequest(ev xproto.MapRequestEvent) {
	if m.State.FindWindow(ev.Window) != nil {
		return
	}
	m.logger.Debug("map request", "window", ev.Window)

	w := state.NewWindow(ev.Window, 0)
	if fw, fh, float := m.conn.ShouldFloat(ev.Window); float {
		sw, sh := m.conn.Geometry()
		w.Group = state.GroupFloating
		w.Width = fw
		w.Height = fh
		w.X = centered(sw, fw)
		w.Y = centered(sh, fh)
	}

	if err := m.conn.AddWindow(&w); err != nil {
		m.logger.Error("framing window", "window", ev.Window, "error", err)
		return
	}
	m.State.AddWindow(w)
	m.refresh()
}

// handleUnmapNotify unmanages a window that disappeared. Unmaps the
// manager performed itself switch the active tag first, so the lookup
// misses and they fall through here.
func (m *Manager) handleUnmapNotify(ev xproto.UnmapNotifyEvent) {
	w := m.State.FindWindow(ev.Window)
	if w == nil {
		return
	}
	m.logger.Debug("unmap notify", "window", ev.Window)

	m.conn.DestroyFrame(w)
	m.bar.Forget(w.ID)
	m.State.RemoveWindow(w.ID)

	ids := make([]xproto.Window, 0, len(m.State.ActiveWindows()))
	for _, aw := range m.State.ActiveWindows() {
		ids = append(ids, aw.ID)
	}
	if err := m.conn.UpdateClientList(ids); err != nil {
		m.logger.Error("updating client list", "error", err)
	}
	m.refresh()
}

func (m *Manager) handleKeyPress(ev xproto.KeyPressEvent) {
	action, ok := m.keys.Lookup(ev)
	if !ok {
		return
	}
	m.logger.Debug("hotkey", "keycode", ev.Detail, "mods", ev.State)

	switch action.Kind {
	case keys.ActionSpawn:
		m.conn.Spawn(action.Command)
	case keys.ActionCloseWindow:
		if focus := m.State.Focused(); focus != state.NoWindow {
			m.conn.Kill(focus)
		}
	case keys.ActionSwitchTag:
		m.changeActiveTag(action.Tag)
	case keys.ActionMoveToTag:
		m.moveWindow(action.Tag)
	case keys.ActionChangeRatio:
		m.State.AdjustRatio(action.Amount)
	case keys.ActionNextFocus:
		m.State.SwitchFocusNext(action.Delta)
	case keys.ActionNextTag:
		next := m.State.ActiveTag + action.Delta
		next = ((next % state.TagCount) + state.TagCount) % state.TagCount
		m.changeActiveTag(next)
	case keys.ActionSwapMaster:
		m.State.SwapMaster()
	}
	m.refresh()
}

// handleEnter moves focus to the window under the pointer.
func (m *Manager) handleEnter(ev xproto.EnterNotifyEvent) {
	if w := m.State.FindWindow(ev.Child); w != nil {
		m.State.Tags[m.State.ActiveTag].Focus = w.ID
	}
	if w := m.State.FindWindow(ev.Event); w != nil {
		m.State.Tags[m.State.ActiveTag].Focus = w.ID
	}
	m.refresh()
}

func (m *Manager) handleConfigureRequest(ev xproto.ConfigureRequestEvent) {
	w := m.State.FindWindow(ev.Window)
	if w == nil {
		return
	}
	if err := m.conn.HandleConfigureRequest(ev, w); err != nil {
		m.logger.Error("configure request", "window", ev.Window, "error", err)
	}
}

func (m *Manager) handleClientMessage(ev xproto.ClientMessageEvent) {
	on, ok := m.conn.DecodeFullscreenRequest(ev)
	if !ok {
		return
	}
	w := m.State.FindWindow(ev.Window)
	if w == nil {
		return
	}

	if on {
		m.logger.Debug("window entering fullscreen", "window", w.ID)
		w.Group = state.GroupFullscreen
		if err := m.conn.SetFullscreen(w); err != nil {
			m.logger.Error("setting fullscreen", "window", w.ID, "error", err)
		}
	} else {
		m.logger.Debug("window leaving fullscreen", "window", w.ID)
		w.Group = state.GroupStack
		if err := m.conn.RemoveFullscreen(w); err != nil {
			m.logger.Error("removing fullscreen", "window", w.ID, "error", err)
		}
	}
	m.refresh()
}

// refresh pushes the state out: focus, layout, window geometry, bar.
func (m *Manager) refresh() {
	m.refreshFocus()
	m.State.Refresh()
	m.configTag()
	if err := m.bar.Repaint(m.State); err != nil {
		m.logger.Error("repainting bar", "error", err)
	}
	m.logger.Debug("state after refresh", "state", m.State)
}

func (m *Manager) refreshFocus() {
	focus := m.State.Focused()
	if focus == state.NoWindow {
		if err := m.conn.FocusRoot(); err != nil {
			m.logger.Error("focusing root", "error", err)
		}
		return
	}
	w := m.State.FindWindow(focus)
	if w == nil {
		return
	}
	if err := m.conn.SetFocus(m.State.ActiveWindows(), *w); err != nil {
		m.logger.Error("setting focus", "window", w.ID, "error", err)
	}
}

// changeActiveTag swaps the visible tag: the old tag's windows are
// unmapped before the switch, the new tag's windows mapped after.
func (m *Manager) changeActiveTag(tag int) {
	if m.State.ActiveTag == tag {
		m.logger.Debug("already on tag", "tag", tag)
		return
	}
	m.logger.Debug("switching tag", "from", m.State.ActiveTag, "to", tag)

	m.forEachActive(m.conn.Unmap)
	m.State.ActiveTag = tag
	m.forEachActive(m.conn.Map)

	if err := m.conn.SetCurrentDesktop(tag); err != nil {
		m.logger.Error("updating current desktop", "error", err)
	}
}

// moveWindow sends the focused window to another tag.
func (m *Manager) moveWindow(tag int) {
	if m.State.ActiveTag == tag {
		m.logger.Debug("window already on tag", "tag", tag)
		return
	}

	focus, err := m.conn.GetFocus()
	if err != nil {
		m.logger.Error("querying input focus", "error", err)
		return
	}
	w := m.State.FindWindow(focus)
	if w == nil {
		return
	}
	m.logger.Debug("moving window", "window", w.ID, "to", tag)

	m.conn.Unmap(w)
	id := w.ID
	if !m.State.MoveWindowToTag(id, tag) {
		return
	}
	if err := m.conn.SetWindowDesktop(id, tag); err != nil {
		m.logger.Error("updating window desktop", "window", id, "error", err)
	}
}

// centered places an extent of size within screen, pinning oversized
// windows to the origin instead of wrapping the uint16 subtraction.
func centered(screen, size uint16) int16 {
	if size >= screen {
		return 0
	}
	return int16((screen - size) / 2)
}

func (m *Manager) forEachActive(f func(*state.Window)) {
	ws := m.State.ActiveWindows()
	for i := range ws {
		f(&ws[i])
	}
}

func (m *Manager) configTag() {
	ws := m.State.ActiveWindows()
	for i := range ws {
		if err := m.conn.ConfigureFromState(&ws[i]); err != nil {
			m.logger.Error("configuring window", "window", ws[i].ID, "error", err)
		}
	}
}
