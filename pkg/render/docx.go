package render

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"strings"
)

// DocxRenderer writes minimal valid OOXML word-processing documents.
type DocxRenderer struct {
	pdf *PDFRenderer
}

// NewDocxRenderer creates a DocxRenderer. PDF output is delegated to the
// plain PDF writer so one renderer satisfies both contract formats.
func NewDocxRenderer() *DocxRenderer {
	return &DocxRenderer{pdf: NewPDFRenderer()}
}

var _ ContractRenderer = (*DocxRenderer)(nil)

const docxContentTypes = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
  <Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
  <Default Extension="xml" ContentType="application/xml"/>
  <Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
</Types>`

const docxRootRels = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
  <Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>
</Relationships>`

func (d *DocxRenderer) RenderContractDocx(ctx context.Context, title, body string) ([]byte, error) {
	var doc strings.Builder
	doc.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>`)
	doc.WriteString(`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`)
	writeParagraph(&doc, title, true)
	for _, para := range strings.Split(body, "\n") {
		writeParagraph(&doc, para, false)
	}
	doc.WriteString(`<w:sectPr/></w:body></w:document>`)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	parts := []struct{ name, content string }{
		{"[Content_Types].xml", docxContentTypes},
		{"_rels/.rels", docxRootRels},
		{"word/document.xml", doc.String()},
	}
	for _, part := range parts {
		f, err := zw.Create(part.name)
		if err != nil {
			return nil, fmt.Errorf("failed to create docx part %s: %w", part.name, err)
		}
		if _, err := f.Write([]byte(part.content)); err != nil {
			return nil, fmt.Errorf("failed to write docx part %s: %w", part.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize docx archive: %w", err)
	}

	return buf.Bytes(), nil
}

func (d *DocxRenderer) RenderContractPDF(ctx context.Context, title, body string) ([]byte, error) {
	return d.pdf.RenderContractPDF(ctx, title, body)
}

func writeParagraph(doc *strings.Builder, text string, bold bool) {
	doc.WriteString("<w:p><w:r>")
	if bold {
		doc.WriteString("<w:rPr><w:b/></w:rPr>")
	}
	doc.WriteString(`<w:t xml:space="preserve">`)
	xml.EscapeText(doc, []byte(text))
	doc.WriteString("</w:t></w:r></w:p>")
}
