package printing

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/go-pdf/fpdf"
	"github.com/go-pdf/fpdf/contrib/gofpdi"
	"github.com/maisgenetica/backend/internal/domain/receipt"
	"go.uber.org/zap"
)

// Text sizes in points
const (
	titleSize    = 22.0
	subtitleSize = 12.0
	protocolSize = 14.0
	headingSize  = 16.0
	tableSize    = 12.0
	dividerSize  = 18.0
	errorSize    = 16.0
	footerSize   = 10.0

	cellPadding = 2.0
	lineHeight  = tableSize * 0.3528 * 1.15

	personalLabelWidth = 40.0
	propertyLabelWidth = 60.0
)

type rgb struct{ r, g, b int }

var (
	colorBanner = rgb{34, 197, 94}
	colorWhite  = rgb{255, 255, 255}
	colorBody   = rgb{0, 0, 0}
	colorMuted  = rgb{128, 128, 128}
	colorError  = rgb{220, 38, 38}
	colorSubtle = rgb{75, 85, 99}
)

// PDFRenderer draws a composed receipt as an A4 PDF
type PDFRenderer struct {
	logger *zap.Logger
}

// NewPDFRenderer creates a new PDFRenderer
func NewPDFRenderer(logger *zap.Logger) *PDFRenderer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PDFRenderer{logger: logger}
}

// canvas is the per-render drawing state
type canvas struct {
	pdf      *fpdf.Fpdf
	family   string
	tr       func(string) string
	importer *gofpdi.Importer
	sources  map[*receipt.PaginatedAttachment]*io.ReadSeeker
	images   int
}

// Render implements receipt.Renderer
func (r *PDFRenderer) Render(doc *receipt.ComposedDocument, opts receipt.RenderOptions) (out []byte, err error) {
	if doc == nil || doc.PageCount() == 0 {
		return nil, renderError(StageEmpty, "", nil)
	}
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("receipt render panicked", zap.Any("panic", rec))
			out, err = nil, renderError(StageDraw, "panic", fmt.Errorf("%v", rec))
		}
	}()

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(receipt.Margin, receipt.Margin, receipt.Margin)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCompression(opts.Compress)
	pdf.SetCatalogSort(true)
	pdf.SetCreationDate(doc.SubmittedAt)
	pdf.SetTitle(receipt.Subtitle+" "+doc.ProtocolID, true)
	pdf.SetAuthor(receipt.FooterLines[0], true)
	pdf.SetCreator(receipt.Title, true)

	c := &canvas{
		pdf:      pdf,
		importer: gofpdi.NewImporter(),
		sources:  make(map[*receipt.PaginatedAttachment]*io.ReadSeeker),
	}
	if err := c.setupFont(opts.Font); err != nil {
		return nil, err
	}

	for _, page := range doc.Pages {
		pdf.AddPage()
		switch p := page.(type) {
		case *receipt.SummaryPage:
			c.drawSummary(p)
		case *receipt.DividerPage:
			c.drawDivider()
		case *receipt.ImagePage:
			if err := c.drawImage(p); err != nil {
				r.logger.Warn("attachment image replaced by error page",
					zap.Int("page", p.Footer().PageNumber), zap.Error(err))
				c.drawError()
			}
		case *receipt.ImportedPage:
			if err := c.drawImported(p); err != nil {
				r.logger.Warn("attachment page replaced by error page",
					zap.Int("page", p.Footer().PageNumber),
					zap.Int("source_page", p.SourcePage), zap.Error(err))
				c.drawError()
			}
		case *receipt.ErrorPage:
			c.drawError()
		}
		c.drawFooter(page.Footer())
	}

	if err := pdf.Error(); err != nil {
		return nil, renderError(StageDraw, "", err)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, renderError(StageOutput, "", err)
	}
	return buf.Bytes(), nil
}

// setupFont selects the core Helvetica (cp1252) or registers a TrueType
// face, which fpdf subsets to the glyphs actually used.
func (c *canvas) setupFont(face *receipt.FontFace) error {
	if face == nil || len(face.Regular) == 0 {
		c.family = "Helvetica"
		c.tr = c.pdf.UnicodeTranslatorFromDescriptor("")
		return nil
	}

	c.family = face.Family
	if c.family == "" {
		c.family = "ReceiptSans"
	}
	bold := face.Bold
	if len(bold) == 0 {
		bold = face.Regular
	}
	c.pdf.AddUTF8FontFromBytes(c.family, "", face.Regular)
	c.pdf.AddUTF8FontFromBytes(c.family, "B", bold)
	if err := c.pdf.Error(); err != nil {
		return renderError(StageFont, c.family, err)
	}
	c.tr = func(s string) string { return s }
	return nil
}

func (c *canvas) font(style string, size float64, col rgb) {
	c.pdf.SetFont(c.family, style, size)
	c.pdf.SetTextColor(col.r, col.g, col.b)
}

func (c *canvas) text(x, y float64, s string) {
	c.pdf.Text(x, y, c.tr(s))
}

func (c *canvas) centered(y float64, s string) {
	t := c.tr(s)
	w := c.pdf.GetStringWidth(t)
	c.pdf.Text((receipt.PageWidth-w)/2, y, t)
}

func (c *canvas) drawSummary(p *receipt.SummaryPage) {
	c.pdf.SetFillColor(colorBanner.r, colorBanner.g, colorBanner.b)
	c.pdf.Rect(0, 0, receipt.PageWidth, receipt.BannerHeight, "F")

	c.font("B", titleSize, colorWhite)
	c.centered(20, receipt.Title)
	c.font("", subtitleSize, colorWhite)
	c.centered(30, receipt.Subtitle)

	cur := receipt.StartCursor()
	c.font("B", protocolSize, colorBody)
	c.text(receipt.Margin, cur.Y, p.ProtocolLine())
	c.font("", protocolSize, colorBody)
	c.text(receipt.PageWidth-receipt.Margin-40, cur.Y, p.DateLine())
	cur = cur.Advance(20)

	cur = c.section(cur, receipt.PersonalHeading, p.Personal, personalLabelWidth)
	cur = cur.Advance(15)
	c.section(cur, receipt.PropertyHeading, p.Property, propertyLabelWidth)
}

// section draws a heading and its two-column table and returns the cursor
// at the bottom edge of the table.
func (c *canvas) section(cur receipt.LayoutCursor, heading string, rows []receipt.Row, labelWidth float64) receipt.LayoutCursor {
	c.font("B", headingSize, colorBody)
	c.text(receipt.Margin, cur.Y, heading)
	cur = cur.Advance(10)
	return c.table(cur, rows, labelWidth)
}

func (c *canvas) table(cur receipt.LayoutCursor, rows []receipt.Row, labelWidth float64) receipt.LayoutCursor {
	valueWidth := receipt.PrintableWidth() - labelWidth
	for _, row := range rows {
		c.font("B", tableSize, colorBody)
		labels := c.wrap(row.Label, labelWidth-2*cellPadding)
		c.font("", tableSize, colorBody)
		values := c.wrap(row.Value, valueWidth-2*cellPadding)

		n := max(len(labels), len(values), 1)
		baseline := cur.Y + cellPadding + lineHeight*0.8

		c.font("B", tableSize, colorBody)
		for i, l := range labels {
			c.text(receipt.Margin+cellPadding, baseline+float64(i)*lineHeight, l)
		}
		c.font("", tableSize, colorBody)
		for i, v := range values {
			c.text(receipt.Margin+labelWidth+cellPadding, baseline+float64(i)*lineHeight, v)
		}
		cur = cur.Advance(float64(n)*lineHeight + 2*cellPadding)
	}
	return cur
}

// wrap breaks UTF-8 text into lines no wider than width in the current
// font. Widths are measured on the encoded form, so the core cp1252 font and
// UTF-8 faces both work; lines are returned unencoded.
func (c *canvas) wrap(s string, width float64) []string {
	fits := func(line string) bool { return c.pdf.GetStringWidth(c.tr(line)) <= width }

	var lines []string
	for _, para := range strings.Split(s, "\n") {
		line := ""
		for _, word := range strings.Fields(para) {
			candidate := word
			if line != "" {
				candidate = line + " " + word
			}
			if fits(candidate) {
				line = candidate
				continue
			}
			if line != "" {
				lines = append(lines, line)
				line = ""
			}
			for utf8.RuneCountInString(word) > 1 && !fits(word) {
				runes := []rune(word)
				n := len(runes) - 1
				for n > 1 && !fits(string(runes[:n])) {
					n--
				}
				lines = append(lines, string(runes[:n]))
				word = string(runes[n:])
			}
			line = word
		}
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

func (c *canvas) drawDivider() {
	mid := receipt.PageHeight / 2
	c.font("B", dividerSize, colorBody)
	c.centered(mid-5, receipt.DividerTitle)
	c.font("", subtitleSize, colorSubtle)
	c.centered(mid+5, receipt.DividerSubtitle)
}

func (c *canvas) drawError() {
	mid := receipt.PageHeight / 2
	c.font("B", errorSize, colorError)
	c.centered(mid, receipt.ErrorTitle)
	c.font("", subtitleSize, colorMuted)
	c.centered(mid+10, receipt.ErrorDetail)
}

func (c *canvas) drawImage(p *receipt.ImagePage) error {
	c.images++
	name := fmt.Sprintf("attachment-%d", c.images)
	opts := fpdf.ImageOptions{ImageType: p.Image.Format}

	c.pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(p.Image.Data))
	if err := c.pdf.Error(); err != nil {
		c.pdf.ClearError()
		return receipt.NewAttachmentDecodeError(receipt.ErrCodePageRenderFailure, "cannot embed image", err)
	}
	r := p.Placement
	c.pdf.ImageOptions(name, r.X, r.Y, r.W, r.H, false, opts, 0, "")
	return nil
}

// drawImported places one source page over the whole destination page.
// The template import panics on malformed objects, which is turned into an
// error so only this page is replaced.
func (c *canvas) drawImported(p *receipt.ImportedPage) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = receipt.NewAttachmentDecodeError(receipt.ErrCodePageRenderFailure,
				fmt.Sprintf("cannot import page %d", p.SourcePage), fmt.Errorf("%v", rec))
		}
		if err == nil && c.pdf.Err() {
			err = receipt.NewAttachmentDecodeError(receipt.ErrCodePageRenderFailure,
				fmt.Sprintf("cannot import page %d", p.SourcePage), c.pdf.Error())
		}
		if err != nil {
			c.pdf.ClearError()
		}
	}()

	rs, ok := c.sources[p.Source]
	if !ok {
		rs = newDocumentSource(p.Source.Data)
		c.sources[p.Source] = rs
	}
	tpl := c.importer.ImportPageFromStream(c.pdf, rs, p.SourcePage, mediaBox)
	r := p.Placement
	c.importer.UseImportedTemplate(c.pdf, tpl, r.X, r.Y, r.W, r.H)
	return nil
}

func (c *canvas) drawFooter(f receipt.Footer) {
	c.font("", footerSize, colorMuted)
	for i, line := range f.Lines() {
		c.centered(receipt.FooterTop+float64(i)*receipt.FooterLineStep, line)
	}
}

var _ receipt.Renderer = (*PDFRenderer)(nil)
