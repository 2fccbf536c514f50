// Package x11 wraps the X server connection and the raw protocol calls
// the window manager needs: taking ownership of the root window, frame
// window lifecycle, EWMH properties and drawing primitives for the bar.
package x11

import (
	"fmt"
	"log/slog"
	"os/exec"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/xcursor"
	"github.com/BurntSushi/xgbutil/xprop"

	"github.com/MarkusIfquil/hematite/internal/config"
)

// Connection manages the X11 connection and core X resources.
type Connection struct {
	XU     *xgbutil.XUtil
	Root   xproto.Window
	Screen *xproto.ScreenInfo

	// Atoms needed outside property helpers: client message
	// construction and decoding.
	WMProtocols          xproto.Atom
	WMDeleteWindow       xproto.Atom
	NetWMState           xproto.Atom
	NetWMStateFullscreen xproto.Atom

	mainPixel      uint32
	secondaryPixel uint32
	border         uint16

	logger *slog.Logger
}

// New connects to the X server and allocates the resources the manager
// needs up front: colors, atoms. It does not take window manager
// ownership; call BecomeWM for that.
func New(cfg *config.Config, logger *slog.Logger) (*Connection, error) {
	xu, err := xgbutil.NewConn()
	if err != nil {
		return nil, fmt.Errorf("connecting to X server: %w", err)
	}

	c := &Connection{
		XU:     xu,
		Root:   xu.RootWin(),
		Screen: xu.Screen(),
		border: cfg.Sizing.Border,
		logger: logger,
	}

	for _, a := range []struct {
		name string
		dst  *xproto.Atom
	}{
		{"WM_PROTOCOLS", &c.WMProtocols},
		{"WM_DELETE_WINDOW", &c.WMDeleteWindow},
		{"_NET_WM_STATE", &c.NetWMState},
		{"_NET_WM_STATE_FULLSCREEN", &c.NetWMStateFullscreen},
	} {
		atom, err := xprop.Atm(xu, a.name)
		if err != nil {
			return nil, fmt.Errorf("interning %s: %w", a.name, err)
		}
		*a.dst = atom
	}

	if c.mainPixel, err = c.allocColor(cfg.MainColor()); err != nil {
		return nil, fmt.Errorf("allocating main color: %w", err)
	}
	if c.secondaryPixel, err = c.allocColor(cfg.SecondaryColor()); err != nil {
		return nil, fmt.Errorf("allocating secondary color: %w", err)
	}

	return c, nil
}

func (c *Connection) allocColor(col config.Color) (uint32, error) {
	reply, err := xproto.AllocColor(c.XU.Conn(), c.Screen.DefaultColormap,
		col.Red, col.Green, col.Blue).Reply()
	if err != nil {
		return 0, err
	}
	return reply.Pixel, nil
}

// BecomeWM registers for substructure redirection on the root window.
// Only one client may do this at a time, so an Access error means
// another window manager is already running.
func (c *Connection) BecomeWM() error {
	const mask = xproto.EventMaskSubstructureRedirect |
		xproto.EventMaskSubstructureNotify |
		xproto.EventMaskKeyPress |
		xproto.EventMaskPropertyChange
	err := xproto.ChangeWindowAttributesChecked(c.XU.Conn(), c.Root,
		xproto.CwEventMask, []uint32{mask}).Check()
	if err != nil {
		return fmt.Errorf("taking ownership of root window (is another window manager running?): %w", err)
	}
	c.logger.Info("became window manager", "root", c.Root)
	return nil
}

// SetCursor installs the default left pointer on the root window.
// Without it the root shows the X shaped cursor.
func (c *Connection) SetCursor() error {
	cursor, err := xcursor.CreateCursor(c.XU, xcursor.LeftPtr)
	if err != nil {
		return fmt.Errorf("creating cursor: %w", err)
	}
	return xproto.ChangeWindowAttributesChecked(c.XU.Conn(), c.Root,
		xproto.CwCursor, []uint32{uint32(cursor)}).Check()
}

// Geometry returns the screen size in pixels.
func (c *Connection) Geometry() (uint16, uint16) {
	return c.Screen.WidthInPixels, c.Screen.HeightInPixels
}

// WaitForEvent blocks until the next event or connection error.
func (c *Connection) WaitForEvent() (xgb.Event, xgb.Error) {
	return c.XU.Conn().WaitForEvent()
}

// PollForEvent returns the next queued event without blocking.
func (c *Connection) PollForEvent() (xgb.Event, xgb.Error) {
	return c.XU.Conn().PollForEvent()
}

// Sync flushes the request queue and waits for the server to catch up.
func (c *Connection) Sync() {
	c.XU.Sync()
}

// Close disconnects from the X server.
func (c *Connection) Close() {
	c.XU.Conn().Close()
}

// Spawn runs a shell command detached from the manager. Errors are
// logged, not returned: a bad hotkey command must not kill the manager.
func (c *Connection) Spawn(command string) {
	cmd := exec.Command("sh", "-c", command)
	if err := cmd.Start(); err != nil {
		c.logger.Error("spawning command", "command", command, "error", err)
		return
	}
	go func() {
		// Reap the child so it does not linger as a zombie.
		_ = cmd.Wait()
	}()
}
