package receipt

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecord() Record {
	return Record{
		Name:                "Maria das Dores Silva",
		CPF:                 "529.982.247-25",
		Phone:               "(89) 99912-3456",
		Email:               "maria@example.com",
		City:                "Corrente",
		Locality:            "Povoado Vereda",
		PropertyArea:        decimal.RequireFromString("10.5"),
		PastureArea:         decimal.RequireFromString("8.0"),
		TotalHerd:           50,
		ReproductionFemales: 20,
		ProgramAnimals:      5,
		SemenType:           "Nelore",
	}
}

var fixedNow = time.Date(2026, 10, 19, 14, 0, 0, 0, time.UTC)

func TestCompose_PageCount(t *testing.T) {
	tests := []struct {
		name string
		att  DecodedAttachment
		want int
		kind PageKind
	}{
		{
			name: "image attachment",
			att:  &ImageAttachment{Format: "jpg", Width: 1200, Height: 800},
			want: 3,
			kind: PageKindImage,
		},
		{
			name: "three page document",
			att:  &PaginatedAttachment{Pages: []PageSize{{595, 842}, {595, 842}, {842, 595}}},
			want: 5,
			kind: PageKindImported,
		},
		{
			name: "undecodable attachment",
			att:  &UndecodableAttachment{Cause: errors.New("garbage")},
			want: 3,
			kind: PageKindError,
		},
		{
			name: "document without pages",
			att:  &PaginatedAttachment{},
			want: 3,
			kind: PageKindError,
		},
		{
			name: "nothing decoded",
			att:  nil,
			want: 3,
			kind: PageKindError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := Compose(sampleRecord(), tt.att, fixedNow, time.UTC)

			require.Equal(t, tt.want, doc.PageCount())
			assert.Equal(t, 2+PageCount(tt.att), doc.PageCount())
			assert.Equal(t, PageKindSummary, doc.Pages[0].Kind())
			assert.Equal(t, PageKindDivider, doc.Pages[1].Kind())
			assert.Equal(t, []string{"Anexo do Comprovante de Inscrição", "Documento enviado pelo produtor"},
				doc.Pages[1].Lines())
			for _, p := range doc.Pages[2:] {
				assert.Equal(t, tt.kind, p.Kind())
			}
			assert.Equal(t, tt.kind == PageKindError, doc.HasAttachmentError())
		})
	}
}

func TestCompose_FooterNumbersAreSequential(t *testing.T) {
	att := &PaginatedAttachment{Pages: make([]PageSize, 7)}

	doc := Compose(sampleRecord(), att, fixedNow, time.UTC)

	nums := doc.FooterNumbers()
	require.Len(t, nums, 9)
	for i, n := range nums {
		assert.Equal(t, i+1, n)
	}
	last := doc.Text(9)
	assert.Equal(t, "Página 9", last[len(last)-1])
}

func TestCompose_SummaryContainsEveryField(t *testing.T) {
	rec := sampleRecord()

	doc := Compose(rec, &ImageAttachment{Format: "png", Width: 10, Height: 10}, fixedNow, time.UTC)

	text := doc.Text(1)
	for _, want := range []string{
		rec.Name, rec.CPF, rec.Phone, rec.Email, rec.City, rec.Locality,
		"10.5 hectares", "8 hectares", "50", "20", "5", rec.SemenType,
		"Protocolo: " + NewProtocolID(fixedNow), "Data: 19/10/2026",
		Title, Subtitle,
	} {
		assert.Contains(t, text, want)
	}
	for _, line := range FooterLines {
		assert.Contains(t, text, line)
	}
	assert.Contains(t, text, "Página 1")
}

func TestCompose_IsDeterministicForSameInputs(t *testing.T) {
	att := &PaginatedAttachment{Pages: make([]PageSize, 2)}

	a := Compose(sampleRecord(), att, fixedNow, time.UTC)
	b := Compose(sampleRecord(), att, fixedNow.Add(time.Minute), time.UTC)

	require.Equal(t, a.PageCount(), b.PageCount())
	for n := 2; n <= a.PageCount(); n++ {
		assert.Equal(t, a.Text(n), b.Text(n))
	}
	assert.Equal(t, a.Pages[0].(*SummaryPage).Personal, b.Pages[0].(*SummaryPage).Personal)
	assert.Equal(t, a.Pages[0].(*SummaryPage).Property, b.Pages[0].(*SummaryPage).Property)
}

func TestCompose_ImagePageIsCenteredInsideMargins(t *testing.T) {
	doc := Compose(sampleRecord(), &ImageAttachment{Format: "jpg", Width: 1200, Height: 800}, fixedNow, time.UTC)

	page, ok := doc.Pages[2].(*ImagePage)
	require.True(t, ok)
	assert.LessOrEqual(t, page.Placement.W, PrintableWidth())
	assert.LessOrEqual(t, page.Placement.H, PrintableHeight())
	assert.InDelta(t, 1.5, page.Placement.W/page.Placement.H, 0.01)
}

func TestCompose_ImportedPagesKeepSourceOrder(t *testing.T) {
	att := &PaginatedAttachment{Pages: make([]PageSize, 3)}

	doc := Compose(sampleRecord(), att, fixedNow, time.UTC)

	for i, p := range doc.Pages[2:] {
		imp, ok := p.(*ImportedPage)
		require.True(t, ok)
		assert.Equal(t, i+1, imp.SourcePage)
		assert.Equal(t, FullBleed(), imp.Placement)
		assert.Same(t, att, imp.Source)
	}
}

func TestAssemble_LeavesFootersUnstamped(t *testing.T) {
	doc := Assemble(sampleRecord(), &UndecodableAttachment{}, fixedNow, time.UTC)

	for _, p := range doc.Pages {
		assert.False(t, p.Footer().IsStamped())
	}
	Finalize(doc)
	for _, p := range doc.Pages {
		assert.True(t, p.Footer().IsStamped())
	}
}

func TestErrorPageText(t *testing.T) {
	doc := Compose(sampleRecord(), &UndecodableAttachment{Cause: errors.New("bad")}, fixedNow, time.UTC)

	text := doc.Text(3)
	assert.Contains(t, text, ErrorTitle)
	assert.Contains(t, text, "Página 3")
	assert.Nil(t, doc.Text(4))
}

func TestAttachmentDecodeError(t *testing.T) {
	cause := errors.New("unexpected EOF")
	err := NewAttachmentDecodeError(ErrCodeCorruptDocument, "cannot read xref", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "CORRUPT_DOCUMENT: cannot read xref: unexpected EOF", err.Error())
	assert.Equal(t, "EMPTY_ATTACHMENT: no data", NewAttachmentDecodeError(ErrCodeEmptyAttachment, "no data", nil).Error())
}
