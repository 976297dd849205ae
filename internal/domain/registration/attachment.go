package registration

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/maisgenetica/backend/internal/domain/receipt"
	"github.com/maisgenetica/backend/internal/domain/shared"
)

// MaxAttachmentSize is the upload limit for the proof-of-registration file (1 MiB)
const MaxAttachmentSize = 1 << 20

// Storage key prefixes
const (
	AttachmentKeyPrefix = "comprovantes/"
	ReceiptKeyPrefix    = "inscricoes/"
)

// AttachmentSpec describes an accepted upload
type AttachmentSpec struct {
	ContentType string
	Kind        receipt.MediaKind
	Extension   string
}

var acceptedTypes = map[string]AttachmentSpec{
	"image/jpeg":      {ContentType: "image/jpeg", Kind: receipt.MediaKindImage, Extension: "jpg"},
	"image/png":       {ContentType: "image/png", Kind: receipt.MediaKindImage, Extension: "png"},
	"image/gif":       {ContentType: "image/gif", Kind: receipt.MediaKindImage, Extension: "gif"},
	"image/webp":      {ContentType: "image/webp", Kind: receipt.MediaKindImage, Extension: "webp"},
	"application/pdf": {ContentType: "application/pdf", Kind: receipt.MediaKindDocument, Extension: "pdf"},
}

// ValidateAttachment checks the upload size and type and returns how it is
// stored. Parameters such as "; charset=" are ignored.
func ValidateAttachment(contentType string, size int64) (AttachmentSpec, error) {
	verr := &shared.ValidationError{}

	mediaType := strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	accepted, ok := acceptedTypes[mediaType]
	if !ok {
		verr.Add("comprovante", "formato não suportado; envie uma imagem (JPG, PNG, GIF, WEBP) ou PDF")
	}
	switch {
	case size <= 0:
		verr.Add("comprovante", "arquivo vazio")
	case size > MaxAttachmentSize:
		verr.Add("comprovante", "arquivo excede o limite de 1 MB")
	}

	if err := verr.OrNil(); err != nil {
		return AttachmentSpec{}, err
	}
	return accepted, nil
}

// AttachmentObjectKey is the storage key of an uploaded proof file:
// comprovantes/<unix millis>-<registration id>.<ext>. The id keeps two
// uploads in the same millisecond apart.
func AttachmentObjectKey(id uuid.UUID, t time.Time, ext string) string {
	return AttachmentKeyPrefix + objectStem(id, t) + "." + ext
}

// ReceiptObjectKey is the storage key of a composed receipt:
// inscricoes/<unix millis>-<registration id>-inscricao.pdf
func ReceiptObjectKey(id uuid.UUID, t time.Time) string {
	return ReceiptKeyPrefix + objectStem(id, t) + "-inscricao.pdf"
}

func objectStem(id uuid.UUID, t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10) + "-" + id.String()
}
