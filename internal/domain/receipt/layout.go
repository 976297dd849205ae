package receipt

// Page geometry in millimetres (A4 portrait).
const (
	PageWidth  = 210.0
	PageHeight = 297.0
	Margin     = 20.0

	// BannerHeight is the height of the green header band on the summary page
	BannerHeight = 40.0

	// FooterTop is the baseline of the first footer line; each line sits FooterLineStep lower
	FooterTop      = PageHeight - 30
	FooterLineStep = 5.0

	// PixelToUnit converts an image's natural pixel size into page units
	PixelToUnit = 1.0
)

// PrintableWidth is the page width inside the margins
func PrintableWidth() float64 { return PageWidth - 2*Margin }

// PrintableHeight is the page height inside the margins
func PrintableHeight() float64 { return PageHeight - 2*Margin }

// LayoutCursor is the vertical write position while laying out the summary
// page. It is a value: every step returns the advanced cursor.
type LayoutCursor struct {
	Y float64
}

// StartCursor returns the cursor right below the banner
func StartCursor() LayoutCursor {
	return LayoutCursor{Y: BannerHeight + 10}
}

// Advance returns a cursor moved down by dy
func (c LayoutCursor) Advance(dy float64) LayoutCursor {
	return LayoutCursor{Y: c.Y + dy}
}

// At returns a cursor at an absolute position
func (c LayoutCursor) At(y float64) LayoutCursor {
	return LayoutCursor{Y: y}
}

// Rect is a placement box in page units
type Rect struct {
	X, Y, W, H float64
}

// FitWithin scales (w, h) down to fit inside (maxW, maxH) keeping the aspect
// ratio. The larger overflow ratio is applied to both sides; content that
// already fits is returned unchanged.
func FitWithin(w, h, maxW, maxH float64) (float64, float64) {
	if w <= 0 || h <= 0 {
		return 0, 0
	}
	ratio := 1.0
	if w > maxW || h > maxH {
		rw := w / maxW
		rh := h / maxH
		ratio = rw
		if rh > rw {
			ratio = rh
		}
	}
	return w / ratio, h / ratio
}

// Center places a w×h box in the middle of a pageW×pageH page
func Center(w, h, pageW, pageH float64) Rect {
	return Rect{X: (pageW - w) / 2, Y: (pageH - h) / 2, W: w, H: h}
}

// ImagePlacement returns where an image of the given pixel size goes on its page
func ImagePlacement(pxW, pxH int) Rect {
	w, h := FitWithin(float64(pxW)*PixelToUnit, float64(pxH)*PixelToUnit, PrintableWidth(), PrintableHeight())
	return Center(w, h, PageWidth, PageHeight)
}

// FullBleed is the placement of an imported document page
func FullBleed() Rect {
	return Rect{X: 0, Y: 0, W: PageWidth, H: PageHeight}
}
