// Package bar draws the status bar: tag indicators on the left, the
// focused window's icon and title in the middle, status text from the
// root window name on the right.
package bar

import (
	"fmt"
	"image"
	"image/color"
	"log/slog"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/MarkusIfquil/hematite/internal/config"
	"github.com/MarkusIfquil/hematite/internal/state"
	"github.com/MarkusIfquil/hematite/internal/x11"
)

// titleLimit caps the focused window title so it cannot run into the
// status text.
const titleLimit = 50

// Painter owns the bar window and redraws it on demand. All drawing
// happens into an in-memory image that is uploaded in one request.
type Painter struct {
	Window state.Window

	conn   *x11.Connection
	face   font.Face
	img    *image.RGBA
	pixmap xproto.Pixmap
	gc     xproto.Gcontext

	bg, fg color.RGBA

	// icons caches scaled window icons keyed by client window.
	icons map[xproto.Window]*image.RGBA

	logger *slog.Logger
}

func toRGBA(c config.Color) color.RGBA {
	return color.RGBA{
		R: uint8(c.Red >> 8),
		G: uint8(c.Green >> 8),
		B: uint8(c.Blue >> 8),
		A: 0xff,
	}
}

// Height returns the bar height derived from the font: one and a half
// times the line height.
func Height() uint16 {
	face := basicfont.Face7x13
	return uint16(face.Metrics().Height.Ceil() * 3 / 2)
}

// New creates the bar window, frames and maps it and prepares the
// drawing surfaces. The bar spans the full screen width at the top.
func New(conn *x11.Connection, cfg *config.Config, logger *slog.Logger) (*Painter, error) {
	width, _ := conn.Geometry()
	height := Height()

	win, err := conn.CreateWindow(width, height)
	if err != nil {
		return nil, fmt.Errorf("creating bar window: %w", err)
	}

	// The bar lives outside the tiling layout, so it floats.
	bar := state.Window{
		ID:     win,
		X:      0,
		Y:      0,
		Width:  width,
		Height: height,
		Group:  state.GroupFloating,
	}
	if err := conn.AddWindow(&bar); err != nil {
		return nil, fmt.Errorf("framing bar window: %w", err)
	}

	pixmap, err := conn.NewPixmap(width, height)
	if err != nil {
		return nil, fmt.Errorf("creating bar pixmap: %w", err)
	}
	gc, err := conn.NewGC()
	if err != nil {
		return nil, fmt.Errorf("creating bar gc: %w", err)
	}

	return &Painter{
		Window: bar,
		conn:   conn,
		face:   basicfont.Face7x13,
		img:    image.NewRGBA(image.Rect(0, 0, int(width), int(height))),
		pixmap: pixmap,
		gc:     gc,
		bg:     toRGBA(cfg.MainColor()),
		fg:     toRGBA(cfg.SecondaryColor()),
		icons:  make(map[xproto.Window]*image.RGBA),
		logger: logger,
	}, nil
}

// Repaint redraws the whole bar from the given state.
func (p *Painter) Repaint(st *state.Handler) error {
	h := int(p.Window.Height)

	fill(p.img, p.img.Bounds(), p.bg)
	p.drawTags(st)

	textX := h*state.TagCount + h/2

	focus := st.Focused()
	if focus != state.NoWindow {
		if icon := p.icon(focus); icon != nil {
			iw := icon.Bounds().Dx()
			ih := icon.Bounds().Dy()
			dst := image.Rect(textX, (h-ih)/2, textX+iw, (h-ih)/2+ih)
			xdraw.Draw(p.img, dst, icon, icon.Bounds().Min, xdraw.Over)
			textX += iw + h/2
		}
		title := []rune(p.conn.WindowName(focus))
		if len(title) > titleLimit {
			title = title[:titleLimit]
		}
		p.drawString(string(title), textX, p.fg)
	}

	p.drawStatus()

	if err := p.conn.PutImage(xproto.Drawable(p.pixmap), p.gc, p.img); err != nil {
		return fmt.Errorf("painting bar: %w", err)
	}
	p.conn.CopyArea(p.pixmap, p.Window.ID, p.gc, p.Window.Width, p.Window.Height)
	return nil
}

// Forget drops a window's cached icon. Called when the window goes away.
func (p *Painter) Forget(win xproto.Window) {
	delete(p.icons, win)
}

// drawTags renders one cell per tag: the active tag is a filled box
// with an inverted digit, occupied tags carry a small square marker.
func (p *Painter) drawTags(st *state.Handler) {
	h := int(p.Window.Height)
	mark := h / 6
	inset := h / 7

	for i := 0; i < state.TagCount; i++ {
		cell := image.Rect(h*i, 0, h*(i+1), h)
		active := i == st.ActiveTag
		occupied := len(st.Tags[i].Windows) > 0

		digit, marker := p.fg, p.fg
		if active {
			fill(p.img, cell, p.fg)
			digit, marker = p.bg, p.bg
		}
		if occupied {
			fill(p.img, image.Rect(cell.Min.X+inset, inset,
				cell.Min.X+inset+mark, inset+mark), marker)
		}

		label := string(rune('1' + i))
		lw := font.MeasureString(p.face, label).Ceil()
		p.drawString(label, cell.Min.X+(h-lw)/2, digit)
	}
}

// drawStatus renders the root window's name right aligned. Setting the
// root name with xsetroot is the conventional way to feed a bar.
func (p *Painter) drawStatus() {
	status := p.conn.WindowName(p.conn.Root)
	if status == "" {
		return
	}
	w := font.MeasureString(p.face, status).Ceil()
	p.drawString(status, int(p.Window.Width)-w, p.fg)
}

// drawString draws one line of text vertically centered at x.
func (p *Painter) drawString(s string, x int, col color.RGBA) {
	metrics := p.face.Metrics()
	baseline := (int(p.Window.Height)-metrics.Height.Ceil())/2 + metrics.Ascent.Ceil()
	d := font.Drawer{
		Dst:  p.img,
		Src:  image.NewUniform(col),
		Face: p.face,
		Dot:  fixed.P(x, baseline),
	}
	d.DrawString(s)
}

// icon returns the window's icon scaled to the text height, caching the
// result. Windows without an icon return nil.
func (p *Painter) icon(win xproto.Window) *image.RGBA {
	if cached, ok := p.icons[win]; ok {
		return cached
	}
	icons, err := p.conn.WindowIcons(win)
	if err != nil || len(icons) == 0 {
		return nil
	}
	scaled := scaleIcon(icons[0], p.face.Metrics().Height.Ceil())
	if scaled == nil {
		p.logger.Debug("window advertises malformed icon", "window", win)
		return nil
	}
	p.icons[win] = scaled
	return scaled
}

// scaleIcon converts an ARGB icon property into an RGBA image scaled so
// its height matches target.
func scaleIcon(icon ewmh.WmIcon, target int) *image.RGBA {
	w := int(icon.Width)
	h := int(icon.Height)
	if w == 0 || h == 0 || len(icon.Data) < w*h {
		return nil
	}

	src := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			argb := uint32(icon.Data[y*w+x])
			o := src.PixOffset(x, y)
			src.Pix[o+0] = uint8(argb >> 16)
			src.Pix[o+1] = uint8(argb >> 8)
			src.Pix[o+2] = uint8(argb)
			src.Pix[o+3] = uint8(argb >> 24)
		}
	}

	scale := float64(h) / float64(target)
	dw := int(float64(w)/scale + 0.5)
	if dw < 1 {
		dw = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, dw, target))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Src, nil)
	return dst
}

func fill(img *image.RGBA, r image.Rectangle, col color.RGBA) {
	xdraw.Draw(img, r, image.NewUniform(col), image.Point{}, xdraw.Src)
}
