package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"

	"github.com/MarkusIfquil/hematite/internal/state"
)

// supportedAtoms is advertised in _NET_SUPPORTED on the root window.
var supportedAtoms = []string{
	"_NET_SUPPORTED",
	"_NET_CLIENT_LIST",
	"_NET_NUMBER_OF_DESKTOPS",
	"_NET_DESKTOP_GEOMETRY",
	"_NET_DESKTOP_VIEWPORT",
	"_NET_CURRENT_DESKTOP",
	"_NET_ACTIVE_WINDOW",
	"_NET_WORKAREA",
	"_NET_SUPPORTING_WM_CHECK",
	"_NET_FRAME_EXTENTS",
	"_NET_WM_NAME",
	"_NET_WM_DESKTOP",
	"_NET_WM_STATE",
	"_NET_WM_STATE_FULLSCREEN",
	"_NET_WM_ALLOWED_ACTIONS",
	"_NET_WM_ACTION_FULLSCREEN",
	"_NET_WM_ICON",
}

// SetupRoot publishes the EWMH bootstrap properties: the supported atom
// list, desktop layout and the supporting WM check window that tells
// clients a compliant manager is running.
func (c *Connection) SetupRoot() error {
	if err := ewmh.SupportedSet(c.XU, supportedAtoms); err != nil {
		return fmt.Errorf("setting _NET_SUPPORTED: %w", err)
	}
	if err := ewmh.NumberOfDesktopsSet(c.XU, state.TagCount); err != nil {
		return fmt.Errorf("setting desktop count: %w", err)
	}
	w, h := c.Geometry()
	if err := ewmh.DesktopGeometrySet(c.XU, &ewmh.DesktopGeometry{
		Width: int(w), Height: int(h),
	}); err != nil {
		return fmt.Errorf("setting desktop geometry: %w", err)
	}
	if err := ewmh.DesktopViewportSet(c.XU, []ewmh.DesktopViewport{{X: 0, Y: 0}}); err != nil {
		return fmt.Errorf("setting desktop viewport: %w", err)
	}
	if err := ewmh.WorkareaSet(c.XU, []ewmh.Workarea{{
		X: 0, Y: 0, Width: uint(w), Height: uint(h),
	}}); err != nil {
		return fmt.Errorf("setting workarea: %w", err)
	}
	if err := c.addCheckWindow(); err != nil {
		return fmt.Errorf("adding supporting check window: %w", err)
	}
	return nil
}

// addCheckWindow creates the never-mapped window _NET_SUPPORTING_WM_CHECK
// points at. Clients use it to verify the manager is alive.
func (c *Connection) addCheckWindow() error {
	win, err := xproto.NewWindowId(c.XU.Conn())
	if err != nil {
		return err
	}
	err = xproto.CreateWindowChecked(c.XU.Conn(), 0, win, c.Root,
		0, 0, 1, 1, 0, xproto.WindowClassInputOnly, 0, 0, nil).Check()
	if err != nil {
		return err
	}
	if err := ewmh.SupportingWmCheckSet(c.XU, c.Root, win); err != nil {
		return err
	}
	if err := ewmh.SupportingWmCheckSet(c.XU, win, win); err != nil {
		return err
	}
	return ewmh.WmNameSet(c.XU, win, "hematite")
}

// UpdateClientList publishes the ids of all managed windows.
func (c *Connection) UpdateClientList(wins []xproto.Window) error {
	return ewmh.ClientListSet(c.XU, wins)
}

// SetCurrentDesktop publishes the active tag.
func (c *Connection) SetCurrentDesktop(tag int) error {
	return ewmh.CurrentDesktopSet(c.XU, uint(tag))
}

// SetWindowDesktop publishes which tag a window lives on.
func (c *Connection) SetWindowDesktop(win xproto.Window, tag int) error {
	return ewmh.WmDesktopSet(c.XU, win, uint(tag))
}
