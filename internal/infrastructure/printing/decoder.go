package printing

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"
	"strconv"

	"github.com/maisgenetica/backend/internal/domain/receipt"
	"github.com/phpdave11/gofpdi"
	"go.uber.org/zap"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/webp"
)

const (
	mediaBox = "/MediaBox"

	// trailerWindow matches how far from the end the importer looks for
	// startxref
	trailerWindow = 1500

	maxReadsAtEOF = 64
)

var (
	pdfMagic      = []byte("%PDF-")
	startxrefMark = []byte("startxref")
	eofMark       = []byte("%%EOF")

	// errSourceExhausted aborts an import that keeps reading past the end of
	// a damaged document
	errSourceExhausted = errors.New("document ended unexpectedly")
)

// Decoder classifies attachment bytes. It makes one decode attempt per
// candidate format and never panics.
type Decoder struct {
	logger *zap.Logger
}

// NewDecoder creates a new Decoder
func NewDecoder(logger *zap.Logger) *Decoder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Decoder{logger: logger}
}

// Decode returns an *ImageAttachment, a *PaginatedAttachment or an
// *UndecodableAttachment. The declared kind only decides which format is
// tried first; the bytes decide the outcome. The returned value holds its own
// copy of the data.
func (d *Decoder) Decode(att receipt.Attachment) receipt.DecodedAttachment {
	if len(att.Data) == 0 {
		return &receipt.UndecodableAttachment{
			Cause: receipt.NewAttachmentDecodeError(receipt.ErrCodeEmptyAttachment, "attachment is empty", nil),
		}
	}
	data := bytes.Clone(att.Data)

	tryDocumentFirst := att.Kind == receipt.MediaKindDocument ||
		bytes.HasPrefix(data, pdfMagic) ||
		http.DetectContentType(data) == "application/pdf"

	attempts := []func([]byte) (receipt.DecodedAttachment, error){d.decodeImage, d.decodeDocument}
	if tryDocumentFirst {
		attempts[0], attempts[1] = attempts[1], attempts[0]
	}

	var firstErr error
	for _, attempt := range attempts {
		decoded, err := attempt(data)
		if err == nil {
			return decoded
		}
		if firstErr == nil {
			firstErr = err
		}
	}

	d.logger.Warn("attachment could not be decoded",
		zap.String("declared_kind", string(att.Kind)),
		zap.String("content_type", att.ContentType),
		zap.Int("size", len(data)),
		zap.Error(firstErr))
	return &receipt.UndecodableAttachment{Cause: firstErr}
}

// decodeImage fully decodes the raster so corrupt bodies are caught here
// rather than while drawing. JPEG is embedded as-is; every other format is
// normalised to 8-bit non-interlaced PNG, which is what the PDF writer accepts.
func (d *Decoder) decodeImage(data []byte) (receipt.DecodedAttachment, error) {
	img, format, err := decodeRaster(data)
	if err != nil {
		return nil, receipt.NewAttachmentDecodeError(receipt.ErrCodeCorruptImage, "cannot decode image", err)
	}
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, receipt.NewAttachmentDecodeError(receipt.ErrCodeCorruptImage, "image has no pixels", nil)
	}

	if format == "jpeg" {
		return &receipt.ImageAttachment{Data: data, Format: "JPG", Width: b.Dx(), Height: b.Dy()}, nil
	}

	nrgba := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	xdraw.Draw(nrgba, nrgba.Bounds(), img, b.Min, xdraw.Src)
	var buf bytes.Buffer
	if err := png.Encode(&buf, nrgba); err != nil {
		return nil, receipt.NewAttachmentDecodeError(receipt.ErrCodeCorruptImage, "cannot normalise image", err)
	}
	return &receipt.ImageAttachment{Data: buf.Bytes(), Format: "PNG", Width: b.Dx(), Height: b.Dy()}, nil
}

func decodeRaster(data []byte) (image.Image, string, error) {
	switch http.DetectContentType(data) {
	case "image/jpeg":
		img, err := jpeg.Decode(bytes.NewReader(data))
		return img, "jpeg", err
	case "image/png":
		img, err := png.Decode(bytes.NewReader(data))
		return img, "png", err
	case "image/gif":
		img, err := gif.Decode(bytes.NewReader(data))
		return img, "gif", err
	case "image/webp":
		img, err := webp.Decode(bytes.NewReader(data))
		return img, "webp", err
	}
	return nil, "", fmt.Errorf("unsupported image format")
}

// decodeDocument reads the page tree of a PDF. The importer panics on
// malformed input, so the panic is converted into an AttachmentDecodeError.
func (d *Decoder) decodeDocument(data []byte) (decoded receipt.DecodedAttachment, err error) {
	defer func() {
		if r := recover(); r != nil {
			decoded = nil
			err = receipt.NewAttachmentDecodeError(receipt.ErrCodeCorruptDocument, "cannot parse document", fmt.Errorf("%v", r))
		}
	}()

	if !bytes.HasPrefix(data, pdfMagic) {
		return nil, receipt.NewAttachmentDecodeError(receipt.ErrCodeUnknownFormat, "not a PDF document", nil)
	}
	if err := checkTrailer(data); err != nil {
		return nil, receipt.NewAttachmentDecodeError(receipt.ErrCodeCorruptDocument, "cannot parse document", err)
	}

	importer := gofpdi.NewImporter()
	importer.SetSourceStream(newDocumentSource(data))

	n := importer.GetNumPages()
	if n < 1 {
		return nil, receipt.NewAttachmentDecodeError(receipt.ErrCodeEmptyDocument, "document has no pages", nil)
	}

	sizes := importer.GetPageSizes()
	pages := make([]receipt.PageSize, n)
	for i := range pages {
		box := sizes[i+1][mediaBox]
		pages[i] = receipt.PageSize{Width: box["w"], Height: box["h"]}
	}
	return &receipt.PaginatedAttachment{Data: data, Pages: pages}, nil
}

// checkTrailer requires startxref with an in-bounds offset and %%EOF near the
// end of the file. The importer spins forever on documents without them.
func checkTrailer(data []byte) error {
	tail := data[max(0, len(data)-trailerWindow):]
	if !bytes.Contains(tail, eofMark) {
		return errors.New("missing %%EOF marker")
	}
	i := bytes.LastIndex(tail, startxrefMark)
	if i < 0 {
		return errors.New("missing startxref")
	}
	fields := bytes.Fields(tail[i+len(startxrefMark):])
	if len(fields) == 0 {
		return errors.New("missing xref offset")
	}
	offset, err := strconv.Atoi(string(fields[0]))
	if err != nil || offset <= 0 || offset >= len(data) {
		return fmt.Errorf("xref offset %q out of range", fields[0])
	}
	return nil
}

// documentSource feeds the importer. It panics with errSourceExhausted once
// the importer has hit the end of the data maxReadsAtEOF times without
// seeking, which turns its read loops on damaged documents into a
// recoverable failure.
type documentSource struct {
	*bytes.Reader
	eofReads int
}

func (s *documentSource) Read(p []byte) (int, error) {
	n, err := s.Reader.Read(p)
	if err == io.EOF {
		s.eofReads++
		if s.eofReads > maxReadsAtEOF {
			panic(errSourceExhausted)
		}
	}
	return n, err
}

func (s *documentSource) Seek(offset int64, whence int) (int64, error) {
	s.eofReads = 0
	return s.Reader.Seek(offset, whence)
}

func newDocumentSource(data []byte) *io.ReadSeeker {
	var rs io.ReadSeeker = &documentSource{Reader: bytes.NewReader(data)}
	return &rs
}
