// Package printing turns a registration and its uploaded attachment into the
// PDF receipt handed back to the producer.
//
// The package contains:
//   - Decoder, which classifies attachment bytes as an image, a PDF or undecodable
//   - Composer, which decodes once and lays out the receipt pages
//   - PDFRenderer, which draws a composed receipt with fpdf and embeds
//     PDF attachment pages through gofpdi
//
// Example usage:
//
//	composer := NewComposer(WithComposerLogger(log))
//	doc, err := composer.Compose(ctx, record, attachment)
//	if err != nil {
//	    return err
//	}
//	pdf, err := doc.RenderToBytes(NewPDFRenderer(log), receipt.RenderOptions{Compress: true})
package printing
