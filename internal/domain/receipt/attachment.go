package receipt

// MediaKind is the declared type of an uploaded attachment
type MediaKind string

const (
	MediaKindImage    MediaKind = "image"
	MediaKindDocument MediaKind = "document"
)

// IsValid checks if the media kind is known
func (k MediaKind) IsValid() bool {
	switch k {
	case MediaKindImage, MediaKindDocument:
		return true
	}
	return false
}

// Attachment is the producer's proof-of-registration file. The composer
// borrows it for one call and keeps no reference to Data afterwards.
type Attachment struct {
	Data        []byte
	Kind        MediaKind
	ContentType string
}

// DecodedAttachment is the outcome of a single decode attempt:
// exactly one of *ImageAttachment, *PaginatedAttachment or *UndecodableAttachment.
type DecodedAttachment interface {
	decoded()
}

// ImageAttachment is a raster image with its natural pixel size.
// Format is the image type understood by the PDF writer (jpg, png, gif).
type ImageAttachment struct {
	Data   []byte
	Format string
	Width  int
	Height int
}

// PageSize is the MediaBox of one source document page, in points
type PageSize struct {
	Width  float64
	Height float64
}

// PaginatedAttachment is a PDF whose pages are embedded one per output page
type PaginatedAttachment struct {
	Data  []byte
	Pages []PageSize
}

// UndecodableAttachment records why the attachment could not be read
type UndecodableAttachment struct {
	Cause error
}

func (*ImageAttachment) decoded()       {}
func (*PaginatedAttachment) decoded()   {}
func (*UndecodableAttachment) decoded() {}

// PageCount returns how many output pages the attachment occupies
func PageCount(d DecodedAttachment) int {
	if p, ok := d.(*PaginatedAttachment); ok && len(p.Pages) > 0 {
		return len(p.Pages)
	}
	return 1
}
