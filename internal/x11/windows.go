package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/icccm"

	"github.com/MarkusIfquil/hematite/internal/state"
)

// clientEventMask is applied to both the frame and the client window so
// key presses, substructure changes and pointer entry reach the manager.
const clientEventMask = xproto.EventMaskKeyPress |
	xproto.EventMaskSubstructureNotify |
	xproto.EventMaskEnterWindow |
	xproto.EventMaskPropertyChange

// AddWindow creates a frame for w and reparents the client into it. The
// frame id is written back into w. The server is grabbed around the
// reparent so no events interleave with the handover.
func (c *Connection) AddWindow(w *state.Window) error {
	conn := c.XU.Conn()

	frame, err := xproto.NewWindowId(conn)
	if err != nil {
		return fmt.Errorf("allocating frame id: %w", err)
	}
	w.Frame = frame

	err = xproto.CreateWindowChecked(conn, c.Screen.RootDepth, frame, c.Root,
		w.X, w.Y, w.Width, w.Height, 0,
		xproto.WindowClassInputOutput, c.Screen.RootVisual,
		xproto.CwBackPixel|xproto.CwBorderPixel|xproto.CwEventMask,
		[]uint32{c.mainPixel, c.secondaryPixel, clientEventMask}).Check()
	if err != nil {
		return fmt.Errorf("creating frame for %d: %w", w.ID, err)
	}

	err = xproto.ChangeWindowAttributesChecked(conn, w.ID,
		xproto.CwEventMask, []uint32{clientEventMask}).Check()
	if err != nil {
		return fmt.Errorf("setting event mask on %d: %w", w.ID, err)
	}

	if err := ewmh.WmAllowedActionsSet(c.XU, w.ID, []string{"_NET_WM_ACTION_FULLSCREEN"}); err != nil {
		return fmt.Errorf("setting allowed actions on %d: %w", w.ID, err)
	}
	b := int(c.border)
	if err := ewmh.FrameExtentsSet(c.XU, w.ID, &ewmh.FrameExtents{
		Left: b, Right: b, Top: b, Bottom: b,
	}); err != nil {
		return fmt.Errorf("setting frame extents on %d: %w", w.ID, err)
	}
	if err := icccm.WmStateSet(c.XU, w.ID, &icccm.WmState{State: icccm.StateNormal}); err != nil {
		return fmt.Errorf("setting WM_STATE on %d: %w", w.ID, err)
	}

	xproto.GrabServer(conn)
	xproto.ChangeSaveSet(conn, xproto.SetModeInsert, w.ID)
	xproto.ReparentWindow(conn, w.ID, frame, 0, 0)
	c.Map(w)
	xproto.UngrabServer(conn)
	return nil
}

// DestroyFrame hands the client back to the root window and destroys
// its frame. The client itself is left alone so it can exit cleanly.
func (c *Connection) DestroyFrame(w *state.Window) {
	conn := c.XU.Conn()
	xproto.ChangeSaveSet(conn, xproto.SetModeDelete, w.ID)
	xproto.ReparentWindow(conn, w.ID, c.Root, w.X, w.Y)
	xproto.DestroyWindow(conn, w.Frame)
}

// Map shows the frame, then the client.
func (c *Connection) Map(w *state.Window) {
	conn := c.XU.Conn()
	xproto.MapWindow(conn, w.Frame)
	xproto.MapWindow(conn, w.ID)
}

// Unmap hides the client, then the frame.
func (c *Connection) Unmap(w *state.Window) {
	conn := c.XU.Conn()
	xproto.UnmapWindow(conn, w.ID)
	xproto.UnmapWindow(conn, w.Frame)
}

// ConfigureFromState moves the frame to the geometry recorded in w and
// resizes the client to fill it.
func (c *Connection) ConfigureFromState(w *state.Window) error {
	conn := c.XU.Conn()
	const mask = xproto.ConfigWindowX | xproto.ConfigWindowY |
		xproto.ConfigWindowWidth | xproto.ConfigWindowHeight

	err := xproto.ConfigureWindowChecked(conn, w.Frame, mask, []uint32{
		uint32(uint16(w.X)), uint32(uint16(w.Y)),
		uint32(w.Width), uint32(w.Height),
	}).Check()
	if err != nil {
		return fmt.Errorf("configuring frame of %d: %w", w.ID, err)
	}
	err = xproto.ConfigureWindowChecked(conn, w.ID, mask, []uint32{
		0, 0, uint32(w.Width), uint32(w.Height),
	}).Check()
	if err != nil {
		return fmt.Errorf("configuring client %d: %w", w.ID, err)
	}
	return nil
}

// HandleConfigureRequest forwards a client's configure request, records
// the requested geometry if the window floats, then reasserts the
// geometry the manager wants.
func (c *Connection) HandleConfigureRequest(ev xproto.ConfigureRequestEvent, w *state.Window) error {
	conn := c.XU.Conn()

	mask := uint16(0)
	vals := make([]uint32, 0, 4)
	if ev.ValueMask&xproto.ConfigWindowX != 0 {
		mask |= xproto.ConfigWindowX
		vals = append(vals, uint32(uint16(ev.X)))
	}
	if ev.ValueMask&xproto.ConfigWindowY != 0 {
		mask |= xproto.ConfigWindowY
		vals = append(vals, uint32(uint16(ev.Y)))
	}
	if ev.ValueMask&xproto.ConfigWindowWidth != 0 {
		mask |= xproto.ConfigWindowWidth
		vals = append(vals, uint32(ev.Width))
	}
	if ev.ValueMask&xproto.ConfigWindowHeight != 0 {
		mask |= xproto.ConfigWindowHeight
		vals = append(vals, uint32(ev.Height))
	}
	if mask != 0 {
		xproto.ConfigureWindow(conn, ev.Window, mask, vals)
	}

	if w.Group == state.GroupFloating {
		w.X = ev.X
		w.Y = ev.Y
		w.Width = ev.Width
		w.Height = ev.Height
	}
	return c.ConfigureFromState(w)
}

// SetFocus gives w the input focus and repaints borders: the focused
// frame gets the secondary color, the rest of the tag the main color.
// Fullscreen frames keep their zero border.
func (c *Connection) SetFocus(tagWindows []state.Window, w state.Window) error {
	conn := c.XU.Conn()

	err := xproto.SetInputFocusChecked(conn, xproto.InputFocusParent,
		w.ID, xproto.TimeCurrentTime).Check()
	if err != nil {
		return fmt.Errorf("focusing %d: %w", w.ID, err)
	}

	for _, other := range tagWindows {
		if other.Group == state.GroupFullscreen {
			continue
		}
		xproto.ConfigureWindow(conn, other.Frame, xproto.ConfigWindowBorderWidth,
			[]uint32{uint32(c.border)})
		xproto.ChangeWindowAttributes(conn, other.Frame, xproto.CwBorderPixel,
			[]uint32{c.mainPixel})
	}
	xproto.ChangeWindowAttributes(conn, w.Frame, xproto.CwBorderPixel,
		[]uint32{c.secondaryPixel})

	return ewmh.ActiveWindowSet(c.XU, w.ID)
}

// FocusRoot drops the input focus when no window on the tag can take
// it. The active window property is set to the sentinel value 1.
func (c *Connection) FocusRoot() error {
	err := xproto.SetInputFocusChecked(c.XU.Conn(), xproto.InputFocusNone,
		xproto.InputFocusPointerRoot, xproto.TimeCurrentTime).Check()
	if err != nil {
		return fmt.Errorf("focusing root: %w", err)
	}
	return ewmh.ActiveWindowSet(c.XU, 1)
}

// GetFocus reports which window the server says has the input focus.
func (c *Connection) GetFocus() (xproto.Window, error) {
	reply, err := xproto.GetInputFocus(c.XU.Conn()).Reply()
	if err != nil {
		return 0, err
	}
	return reply.Focus, nil
}

// Kill asks win to close itself via the WM_DELETE_WINDOW protocol.
func (c *Connection) Kill(win xproto.Window) {
	ev := xproto.ClientMessageEvent{
		Format: 32,
		Window: win,
		Type:   c.WMProtocols,
		Data: xproto.ClientMessageDataUnionData32New([]uint32{
			uint32(c.WMDeleteWindow), 0, 0, 0, 0,
		}),
	}
	xproto.SendEvent(c.XU.Conn(), false, win, xproto.EventMaskNoEvent,
		string(ev.Bytes()))
}

// SetFullscreen marks win as fullscreen, drops its frame border and
// raises it above the bar.
func (c *Connection) SetFullscreen(w *state.Window) error {
	if err := ewmh.WmStateSet(c.XU, w.ID, []string{"_NET_WM_STATE_FULLSCREEN"}); err != nil {
		return fmt.Errorf("setting fullscreen state on %d: %w", w.ID, err)
	}
	return xproto.ConfigureWindowChecked(c.XU.Conn(), w.Frame,
		xproto.ConfigWindowBorderWidth|xproto.ConfigWindowStackMode,
		[]uint32{0, xproto.StackModeAbove}).Check()
}

// RemoveFullscreen clears the fullscreen state, restores the border and
// lowers the frame back into the tiling order.
func (c *Connection) RemoveFullscreen(w *state.Window) error {
	if err := ewmh.WmStateSet(c.XU, w.ID, nil); err != nil {
		return fmt.Errorf("clearing fullscreen state on %d: %w", w.ID, err)
	}
	return xproto.ConfigureWindowChecked(c.XU.Conn(), w.Frame,
		xproto.ConfigWindowBorderWidth|xproto.ConfigWindowStackMode,
		[]uint32{uint32(c.border), xproto.StackModeBelow}).Check()
}

// ShouldFloat checks WM_NORMAL_HINTS: a window whose minimum and maximum
// sizes match wants a fixed size and is floated at that size.
func (c *Connection) ShouldFloat(win xproto.Window) (uint16, uint16, bool) {
	hints, err := icccm.WmNormalHintsGet(c.XU, win)
	if err != nil {
		return 0, 0, false
	}
	if hints.MinWidth != 0 && hints.MinHeight != 0 &&
		hints.MinWidth == hints.MaxWidth && hints.MinHeight == hints.MaxHeight {
		return uint16(hints.MinWidth), uint16(hints.MinHeight), true
	}
	return 0, 0, false
}

// WindowName returns the window title, preferring the UTF-8 EWMH name
// over the legacy ICCCM one.
func (c *Connection) WindowName(win xproto.Window) string {
	if name, err := ewmh.WmNameGet(c.XU, win); err == nil && name != "" {
		return name
	}
	name, err := icccm.WmNameGet(c.XU, win)
	if err != nil {
		return ""
	}
	return name
}

// DecodeFullscreenRequest checks whether a client message asks for a
// fullscreen state change. The second return value reports whether the
// message was such a request at all.
func (c *Connection) DecodeFullscreenRequest(ev xproto.ClientMessageEvent) (on bool, ok bool) {
	if ev.Type != c.NetWMState || ev.Format != 32 {
		return false, false
	}
	data := ev.Data.Data32
	if len(data) < 2 || xproto.Atom(data[1]) != c.NetWMStateFullscreen {
		return false, false
	}
	switch data[0] {
	case 0:
		return false, true
	case 1:
		return true, true
	}
	return false, false
}

// WindowIcons returns every icon a window advertises via _NET_WM_ICON.
func (c *Connection) WindowIcons(win xproto.Window) ([]ewmh.WmIcon, error) {
	return ewmh.WmIconGet(c.XU, win)
}
