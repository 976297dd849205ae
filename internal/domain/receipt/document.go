package receipt

import "time"

// ComposedDocument is the receipt produced by one composition. It owns its
// pages and the attachment copy they reference.
type ComposedDocument struct {
	ProtocolID  string
	SubmittedAt time.Time
	DateText    string
	Pages       []Page
}

// PageCount returns the number of pages
func (d *ComposedDocument) PageCount() int {
	return len(d.Pages)
}

// Text returns all text drawn on the 1-based page n, footer included
func (d *ComposedDocument) Text(n int) []string {
	if n < 1 || n > len(d.Pages) {
		return nil
	}
	p := d.Pages[n-1]
	return append(p.Lines(), p.Footer().Lines()...)
}

// FooterNumbers returns the stamped page number of every page in order
func (d *ComposedDocument) FooterNumbers() []int {
	nums := make([]int, len(d.Pages))
	for i, p := range d.Pages {
		nums[i] = p.Footer().PageNumber
	}
	return nums
}

// HasAttachmentError reports whether the attachment was replaced by an error page
func (d *ComposedDocument) HasAttachmentError() bool {
	for _, p := range d.Pages {
		if p.Kind() == PageKindError {
			return true
		}
	}
	return false
}

// RenderOptions controls serialisation only; page content is fixed by the inputs.
type RenderOptions struct {
	Compress bool
	// Font, when set, replaces the core Helvetica with an embedded TrueType
	// face that is subset to the glyphs used.
	Font *FontFace
}

// FontFace is a TrueType family in regular and bold weights
type FontFace struct {
	Family  string
	Regular []byte
	Bold    []byte
}

// Renderer serialises a composed document to bytes
type Renderer interface {
	Render(doc *ComposedDocument, opts RenderOptions) ([]byte, error)
}

// RenderToBytes serialises the document with r
func (d *ComposedDocument) RenderToBytes(r Renderer, opts RenderOptions) ([]byte, error) {
	return r.Render(d, opts)
}

// Assemble lays out the receipt pages for record and the decoded attachment.
// Footers are left unstamped; call Finalize once the page list is complete.
func Assemble(record Record, att DecodedAttachment, now time.Time, loc *time.Location) *ComposedDocument {
	doc := &ComposedDocument{
		ProtocolID:  NewProtocolID(now),
		SubmittedAt: now,
		DateText:    FormatDate(now, loc),
	}

	doc.Pages = append(doc.Pages,
		&SummaryPage{
			ProtocolID: doc.ProtocolID,
			DateText:   doc.DateText,
			Personal:   PersonalRows(record),
			Property:   PropertyRows(record),
		},
		&DividerPage{},
	)

	switch a := att.(type) {
	case *ImageAttachment:
		doc.Pages = append(doc.Pages, &ImagePage{
			Image:     a,
			Placement: ImagePlacement(a.Width, a.Height),
		})
	case *PaginatedAttachment:
		if len(a.Pages) == 0 {
			doc.Pages = append(doc.Pages, &ErrorPage{
				Cause: NewAttachmentDecodeError(ErrCodeEmptyDocument, "document has no pages", nil),
			})
			break
		}
		for i := range a.Pages {
			doc.Pages = append(doc.Pages, &ImportedPage{
				Source:     a,
				SourcePage: i + 1,
				Placement:  FullBleed(),
			})
		}
	case *UndecodableAttachment:
		doc.Pages = append(doc.Pages, &ErrorPage{Cause: a.Cause})
	default:
		doc.Pages = append(doc.Pages, &ErrorPage{
			Cause: NewAttachmentDecodeError(ErrCodeUnknownFormat, "no attachment decoded", nil),
		})
	}
	return doc
}

// Finalize stamps every page with its 1-based position in the document
func Finalize(doc *ComposedDocument) *ComposedDocument {
	for i, p := range doc.Pages {
		p.stamp(Footer{PageNumber: i + 1})
	}
	return doc
}

// Compose is Assemble followed by Finalize
func Compose(record Record, att DecodedAttachment, now time.Time, loc *time.Location) *ComposedDocument {
	return Finalize(Assemble(record, att, now, loc))
}
