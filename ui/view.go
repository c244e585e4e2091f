package ui

import (
	"image/color"

	"tinygo.org/x/drivers"

	"dccstation/core"
	"dccstation/dcc"
	"dccstation/transmit"
)

var (
	Background = color.RGBA{0, 0, 0, 255}
	Foreground = color.RGBA{255, 255, 255, 255}
	ForwardBar = color.RGBA{0, 200, 0, 255}
	ReverseBar = color.RGBA{230, 120, 0, 255}
)

// Layout in pixels
const (
	margin    = 2
	labelY    = 2
	widgetY   = 16
	boxWidth  = 10
	boxHeight = 14
	textScale = 2
	advance   = glyphWidth*textScale + 1
	barHeight = 4
)

// rectFiller is implemented by displays that fill rectangles in hardware,
// such as ssd1331.Device
type rectFiller interface {
	FillRectangle(x, y, width, height int16, c color.RGBA) error
}

// View draws the throttle page on any drivers.Displayer
type View struct {
	display drivers.Displayer
	filler  rectFiller

	address [4]byte
	speed   [4]byte

	// What is on the panel now. Render only repaints the parts that differ.
	drawn bool
	shown frame
}

type frame struct {
	address   uint8
	magnitude uint8
	dir       dcc.Direction
	cursor    Widget
}

// NewView creates a view on display
func NewView(display drivers.Displayer) *View {
	v := &View{display: display}
	v.filler, _ = display.(rectFiller)
	return v
}

func (v *View) fill(x, y, w, h int16, c color.RGBA) {
	if w <= 0 || h <= 0 {
		return
	}
	if v.filler != nil {
		// Out of bounds rectangles are rejected by the driver, nothing to draw
		_ = v.filler.FillRectangle(x, y, w, h, c)
		return
	}
	for j := y; j < y+h; j++ {
		for i := x; i < x+w; i++ {
			v.display.SetPixel(i, j, c)
		}
	}
}

func (v *View) outline(x, y, w, h int16, c color.RGBA) {
	v.fill(x, y, w, 1, c)
	v.fill(x, y+h-1, w, 1, c)
	v.fill(x, y, 1, h, c)
	v.fill(x+w-1, y, 1, h, c)
}

// drawText draws s with its top left corner at x, y
func (v *View) drawText(s []byte, x, y int16, scale int16, c color.RGBA) {
	for i, ch := range s {
		ox := x + int16(i)*(glyphWidth*scale+1)
		for gy := 0; gy < glyphHeight; gy++ {
			for gx := 0; gx < glyphWidth; gx++ {
				if glyphPixel(ch, gx, gy) {
					v.fill(ox+int16(gx)*scale, y+int16(gy)*scale, scale, scale, c)
				}
			}
		}
	}
}

// TextWidth is the width of n characters at scale
func TextWidth(n int, scale int16) int16 {
	if n == 0 {
		return 0
	}
	return int16(n)*(glyphWidth*scale+1) - 1
}

func appendNumber(dst []byte, prefix byte, n uint8) []byte {
	if prefix != 0 {
		dst = append(dst, prefix)
	}
	return append(dst, core.Itoa(int(n))...)
}

func (v *View) drawWidget(x int16, label byte, focused bool) {
	if focused {
		v.fill(x, widgetY, boxWidth, boxHeight, Foreground)
		v.drawText([]byte{label}, x+(boxWidth-glyphWidth)/2, widgetY+(boxHeight-glyphHeight)/2, 1, Background)
		return
	}
	v.outline(x, widgetY, boxWidth, boxHeight, Foreground)
	v.drawText([]byte{label}, x+(boxWidth-glyphWidth)/2, widgetY+(boxHeight-glyphHeight)/2, 1, Foreground)
}

// Render brings the page up to date with cmd and cursor and flushes the
// display. The first call paints the whole screen. Later calls only repaint
// the widgets, numbers and bar that changed, so an unchanged frame costs no
// bus traffic beyond the flush.
func (v *View) Render(cmd transmit.CommandState, cursor Widget) error {
	w, h := v.display.Size()
	half := w / 2

	next := frame{
		address:   cmd.Address,
		magnitude: cmd.Magnitude(),
		dir:       cmd.Direction(),
		cursor:    cursor,
	}
	full := !v.drawn

	if full {
		v.fill(0, 0, w, h, Background)
		v.drawText([]byte{'A'}, margin, labelY, 1, Foreground)
		v.drawText([]byte{'S'}, half+margin, labelY, 1, Foreground)
	}

	for side := int16(0); side < 2; side++ {
		left := side * half
		for i, x := range [2]int16{left + margin, left + half - margin - boxWidth} {
			id := Widget(side*2) + Widget(i)
			was := v.shown.cursor == id
			is := cursor == id
			if full || was != is {
				label := byte('-')
				if i == 1 {
					label = '+'
				}
				v.fill(x, widgetY, boxWidth, boxHeight, Background)
				v.drawWidget(x, label, is)
			}
		}
	}

	if full || next.address != v.shown.address {
		v.drawNumber(0, half, appendNumber(v.address[:0], 0, next.address))
	}
	if full || next.magnitude != v.shown.magnitude || next.dir != v.shown.dir {
		v.drawNumber(half, half, appendNumber(v.speed[:0], directionLetter(next.dir), next.magnitude))
	}

	barY := h - margin - barHeight
	barWidth := w - 2*margin
	if full {
		v.outline(margin, barY-1, barWidth, barHeight+2, Foreground)
	}
	if full || next.magnitude != v.shown.magnitude || next.dir != v.shown.dir {
		barColor := ForwardBar
		if next.dir == dcc.Reverse {
			barColor = ReverseBar
		}
		length := BarLength(next.magnitude, barWidth-2)
		v.fill(margin+1, barY, length, barHeight, barColor)
		v.fill(margin+1+length, barY, barWidth-2-length, barHeight, Background)
	}

	v.drawn = true
	v.shown = next
	return v.display.Display()
}

// drawNumber clears the space between the two widgets of a half and centers
// text in it
func (v *View) drawNumber(left, half int16, text []byte) {
	inner := left + margin + boxWidth + 1
	v.fill(inner, widgetY, half-2*(margin+boxWidth+1), boxHeight, Background)
	tw := TextWidth(len(text), textScale)
	v.drawText(text, left+(half-tw)/2, widgetY+(boxHeight-glyphHeight*textScale)/2, textScale, Foreground)
}

func directionLetter(d dcc.Direction) byte {
	if d == dcc.Reverse {
		return 'R'
	}
	return 'F'
}

// Invalidate makes the next Render repaint the whole screen
func (v *View) Invalidate() { v.drawn = false }

// BarLength is the filled length of a speed bar of the given width
func BarLength(magnitude uint8, width int16) int16 {
	return int16(int(width) * int(magnitude) / dcc.MaxSpeed)
}
