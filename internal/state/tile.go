package state

// AssignGroups resets every non-floating, non-fullscreen window of the
// active tag to Stack, then promotes the last such window to Master.
// Insertion order is the implicit priority: the newest non-exempt window
// defaults to master. A tag holding only floating or fullscreen windows
// ends up with no master.
func (h *Handler) AssignGroups() {
	ws := h.Tags[h.ActiveTag].Windows
	for i := range ws {
		if ws[i].Group != GroupFloating && ws[i].Group != GroupFullscreen {
			ws[i].Group = GroupStack
		}
	}
	for i := len(ws) - 1; i >= 0; i-- {
		if ws[i].Group == GroupFloating || ws[i].Group == GroupFullscreen {
			continue
		}
		ws[i].Group = GroupMaster
		return
	}
}

// TileWindows computes on-screen geometry for the active tag.
//
// The master window takes its whole side of the dividing line set by the
// ratio. Stack windows split the other side top to bottom in list order.
// Floating windows are left alone; fullscreen windows cover the screen,
// ignoring gap and bar.
//
// Stack heights use integer division of the screen height, so the last
// stack window may leave remainder pixels uncovered at the bottom. The
// extra top inset goes to stack index 0 only, which sits against the bar.
func (h *Handler) TileWindows() {
	gap := h.Tiling.Gap
	ratio := h.Tiling.Ratio
	maxW, maxH := h.Tiling.MaxWidth, h.Tiling.MaxHeight
	bar := h.Tiling.BarHeight

	ws := h.Tags[h.ActiveTag].Windows

	stacked := 0
	for i := range ws {
		if ws[i].Group == GroupStack {
			stacked++
		}
	}
	n := stacked
	if n < 1 {
		n = 1
	}
	unit := int(maxH) / n

	si := 0
	for i := range ws {
		w := &ws[i]
		switch w.Group {
		case GroupMaster:
			w.X = int16(gap)
			w.Y = int16(gap + bar)
			if stacked == 0 {
				w.Width = maxW - gap*2
			} else {
				w.Width = uint16(float32(maxW)*(1-ratio) - float32(gap)*2)
			}
			w.Height = maxH - gap*2 - bar
		case GroupStack:
			w.X = int16(float32(maxW) * (1 - ratio))
			w.Width = uint16(float32(maxW)*ratio) - gap
			if si == 0 {
				w.Y = int16(gap + bar)
				w.Height = uint16(unit) - gap*2 - bar
			} else {
				w.Y = int16(si * unit)
				w.Height = uint16(unit) - gap
			}
			si++
		case GroupFloating:
			// Geometry owned by the client's configure requests.
		case GroupFullscreen:
			w.X = 0
			w.Y = 0
			w.Width = maxW
			w.Height = maxH
		}
	}
}
