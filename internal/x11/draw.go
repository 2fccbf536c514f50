package x11

import (
	"fmt"
	"image"

	"github.com/BurntSushi/xgb/xproto"
)

// CreateWindow creates a bare top level window of the given size at the
// origin. Used for the bar, which the manager owns and frames itself.
func (c *Connection) CreateWindow(width, height uint16) (xproto.Window, error) {
	conn := c.XU.Conn()
	win, err := xproto.NewWindowId(conn)
	if err != nil {
		return 0, err
	}
	err = xproto.CreateWindowChecked(conn, c.Screen.RootDepth, win, c.Root,
		0, 0, width, height, 0,
		xproto.WindowClassInputOutput, c.Screen.RootVisual, 0, nil).Check()
	if err != nil {
		return 0, err
	}
	return win, nil
}

// NewPixmap allocates an off screen buffer matching the root depth.
func (c *Connection) NewPixmap(width, height uint16) (xproto.Pixmap, error) {
	conn := c.XU.Conn()
	pix, err := xproto.NewPixmapId(conn)
	if err != nil {
		return 0, err
	}
	err = xproto.CreatePixmapChecked(conn, c.Screen.RootDepth, pix,
		xproto.Drawable(c.Root), width, height).Check()
	if err != nil {
		return 0, err
	}
	return pix, nil
}

// NewGC creates a graphics context for copy and image operations.
func (c *Connection) NewGC() (xproto.Gcontext, error) {
	conn := c.XU.Conn()
	gc, err := xproto.NewGcontextId(conn)
	if err != nil {
		return 0, err
	}
	err = xproto.CreateGCChecked(conn, gc, xproto.Drawable(c.Root),
		xproto.GcForeground|xproto.GcBackground|xproto.GcGraphicsExposures,
		[]uint32{c.secondaryPixel, c.mainPixel, 0}).Check()
	if err != nil {
		return 0, err
	}
	return gc, nil
}

// PutImage uploads an RGBA image to a drawable. The pixel data is
// converted to the BGRx layout ZPixmap expects at depth 24.
func (c *Connection) PutImage(dst xproto.Drawable, gc xproto.Gcontext, img *image.RGBA) error {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	data := make([]byte, width*height*4)
	i := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			o := img.PixOffset(x, y)
			data[i+0] = img.Pix[o+2]
			data[i+1] = img.Pix[o+1]
			data[i+2] = img.Pix[o+0]
			i += 4
		}
	}

	err := xproto.PutImageChecked(c.XU.Conn(), xproto.ImageFormatZPixmap, dst, gc,
		uint16(width), uint16(height), 0, 0, 0, c.Screen.RootDepth, data).Check()
	if err != nil {
		return fmt.Errorf("uploading %dx%d image: %w", width, height, err)
	}
	return nil
}

// CopyArea copies a pixmap's contents onto a window.
func (c *Connection) CopyArea(src xproto.Pixmap, dst xproto.Window, gc xproto.Gcontext, width, height uint16) {
	xproto.CopyArea(c.XU.Conn(), xproto.Drawable(src), xproto.Drawable(dst), gc,
		0, 0, 0, 0, width, height)
}
