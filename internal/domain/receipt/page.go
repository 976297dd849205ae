package receipt

// PageKind identifies what a page contains
type PageKind string

const (
	PageKindSummary  PageKind = "summary"
	PageKindDivider  PageKind = "divider"
	PageKindImage    PageKind = "image"
	PageKindImported PageKind = "imported"
	PageKindError    PageKind = "error"
)

// Receipt headings
const (
	Title           = "Piauí + Genética"
	Subtitle        = "Comprovante de Inscrição"
	PersonalHeading = "Dados Pessoais"
	PropertyHeading = "Dados da Propriedade"
	DividerTitle    = "Anexo do Comprovante de Inscrição"
	DividerSubtitle = "Documento enviado pelo produtor"
	ErrorTitle      = "Não foi possível incluir o anexo neste comprovante."
	ErrorDetail     = "Os dados da inscrição foram registrados normalmente."
)

// Page is one page of a composed receipt
type Page interface {
	Kind() PageKind
	// Lines is the body text drawn on the page, footer excluded
	Lines() []string
	Footer() Footer
	stamp(Footer)
}

type pageBase struct {
	footer Footer
}

func (p *pageBase) Footer() Footer { return p.footer }
func (p *pageBase) stamp(f Footer) { p.footer = f }

// SummaryPage is page 1: banner, protocol, date and the two data tables
type SummaryPage struct {
	pageBase
	ProtocolID string
	DateText   string
	Personal   []Row
	Property   []Row
}

func (p *SummaryPage) Kind() PageKind { return PageKindSummary }

// ProtocolLine is the text printed on the left of the protocol row
func (p *SummaryPage) ProtocolLine() string { return "Protocolo: " + p.ProtocolID }

// DateLine is the text printed on the right of the protocol row
func (p *SummaryPage) DateLine() string { return "Data: " + p.DateText }

func (p *SummaryPage) Lines() []string {
	lines := []string{Title, Subtitle, p.ProtocolLine(), p.DateLine(), PersonalHeading}
	for _, r := range p.Personal {
		lines = append(lines, r.Label, r.Value)
	}
	lines = append(lines, PropertyHeading)
	for _, r := range p.Property {
		lines = append(lines, r.Label, r.Value)
	}
	return lines
}

// DividerPage separates the summary from the attachment
type DividerPage struct {
	pageBase
}

func (p *DividerPage) Kind() PageKind  { return PageKindDivider }
func (p *DividerPage) Lines() []string { return []string{DividerTitle, DividerSubtitle} }

// ImagePage holds a raster attachment scaled into the printable area
type ImagePage struct {
	pageBase
	Image     *ImageAttachment
	Placement Rect
}

func (p *ImagePage) Kind() PageKind  { return PageKindImage }
func (p *ImagePage) Lines() []string { return nil }

// ImportedPage is one page of a PDF attachment placed full-bleed
type ImportedPage struct {
	pageBase
	Source *PaginatedAttachment
	// SourcePage is 1-based
	SourcePage int
	Placement  Rect
}

func (p *ImportedPage) Kind() PageKind  { return PageKindImported }
func (p *ImportedPage) Lines() []string { return nil }

// ErrorPage replaces attachment content that could not be decoded or drawn
type ErrorPage struct {
	pageBase
	Cause error
}

func (p *ErrorPage) Kind() PageKind  { return PageKindError }
func (p *ErrorPage) Lines() []string { return []string{ErrorTitle, ErrorDetail} }

// NewErrorPage builds an error page carrying over footer, used when a page
// fails while being drawn.
func NewErrorPage(cause error, footer Footer) *ErrorPage {
	p := &ErrorPage{Cause: cause}
	p.stamp(footer)
	return p
}
