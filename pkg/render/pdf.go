package render

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/dealshield-inc/dealshield-engine/pkg/models"
)

const (
	pdfPageWidth  = 612
	pdfPageHeight = 792
	pdfMargin     = 56
	pdfLineHeight = 14
	pdfMaxChars   = 88
)

// PDFRenderer writes single-column text PDFs with no external dependencies.
type PDFRenderer struct{}

// NewPDFRenderer creates a PDFRenderer.
func NewPDFRenderer() *PDFRenderer {
	return &PDFRenderer{}
}

var _ ReportRenderer = (*PDFRenderer)(nil)

func (p *PDFRenderer) RenderReportPDF(ctx context.Context, report *models.ContractReport, result *models.AnalysisResult) ([]byte, error) {
	lines := []string{
		"Contract Protection Report",
		"",
		fmt.Sprintf("Report ID: %s", report.ID),
		fmt.Sprintf("Protection score: %.0f / 100", result.ProtectionScore),
		fmt.Sprintf("Overall risk: %s", result.OverallRisk),
	}
	if result.DocumentType != "" {
		lines = append(lines, fmt.Sprintf("Document type: %s", result.DocumentType))
	}
	if result.BrandDetected != "" {
		lines = append(lines, fmt.Sprintf("Brand: %s", result.BrandDetected))
	}
	if result.Summary != "" {
		lines = append(lines, "", "Summary:")
		lines = append(lines, wrapText(result.Summary, pdfMaxChars)...)
	}
	if len(result.Issues) > 0 {
		lines = append(lines, "", fmt.Sprintf("Issues (%d):", len(result.Issues)))
		for i, issue := range result.Issues {
			lines = append(lines, fmt.Sprintf("%d. [%s] %s", i+1, issue.Severity, issue.Title))
			lines = append(lines, wrapText(issue.Description, pdfMaxChars-4)...)
			if issue.Recommendation != "" {
				lines = append(lines, wrapText("Recommendation: "+issue.Recommendation, pdfMaxChars-4)...)
			}
			lines = append(lines, "")
		}
	}
	if len(result.Verified) > 0 {
		lines = append(lines, "", fmt.Sprintf("Verified protections (%d):", len(result.Verified)))
		for _, v := range result.Verified {
			lines = append(lines, wrapText("- "+v.Title+": "+v.Description, pdfMaxChars)...)
		}
	}

	return buildPDF(lines), nil
}

// RenderContractPDF renders plain contract text as a PDF document.
func (p *PDFRenderer) RenderContractPDF(ctx context.Context, title, body string) ([]byte, error) {
	lines := []string{title, ""}
	for _, para := range strings.Split(body, "\n") {
		lines = append(lines, wrapText(para, pdfMaxChars)...)
	}
	return buildPDF(lines), nil
}

// buildPDF assembles a minimal one-page-per-overflow PDF with a Helvetica
// text stream. Cross-reference offsets are computed as objects are written.
func buildPDF(lines []string) []byte {
	linesPerPage := (pdfPageHeight - 2*pdfMargin) / pdfLineHeight
	var pages [][]string
	for start := 0; start < len(lines); start += linesPerPage {
		end := start + linesPerPage
		if end > len(lines) {
			end = len(lines)
		}
		pages = append(pages, lines[start:end])
	}
	if len(pages) == 0 {
		pages = [][]string{{""}}
	}

	// Object layout: 1 catalog, 2 pages, 3 font, then (page, contents) pairs.
	numObjects := 3 + 2*len(pages)
	offsets := make([]int, numObjects+1)
	var buf bytes.Buffer

	buf.WriteString("%PDF-1.4\n")

	writeObj := func(num int, body string) {
		offsets[num] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", num, body)
	}

	var kids []string
	for i := range pages {
		kids = append(kids, fmt.Sprintf("%d 0 R", 4+2*i))
	}

	writeObj(1, "<< /Type /Catalog /Pages 2 0 R >>")
	writeObj(2, fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>",
		strings.Join(kids, " "), len(pages)))
	writeObj(3, "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>")

	for i, pageLines := range pages {
		pageObj := 4 + 2*i
		contentObj := pageObj + 1

		var content strings.Builder
		fmt.Fprintf(&content, "BT\n/F1 11 Tf\n%d %d Td\n%d TL\n", pdfMargin, pdfPageHeight-pdfMargin, pdfLineHeight)
		for _, line := range pageLines {
			fmt.Fprintf(&content, "(%s) Tj\nT*\n", escapePDFText(line))
		}
		content.WriteString("ET")

		writeObj(pageObj, fmt.Sprintf(
			"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 %d %d] /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>",
			pdfPageWidth, pdfPageHeight, contentObj))
		writeObj(contentObj, fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream",
			content.Len(), content.String()))
	}

	xrefStart := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", numObjects+1)
	for num := 1; num <= numObjects; num++ {
		fmt.Fprintf(&buf, "%010d 00000 n \n", offsets[num])
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n",
		numObjects+1, xrefStart)

	return buf.Bytes()
}

func escapePDFText(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "(", `\(`)
	s = strings.ReplaceAll(s, ")", `\)`)
	// Strip characters outside the WinAnsi printable range rather than
	// guessing an encoding for them.
	var b strings.Builder
	for _, r := range s {
		if r == '\t' {
			b.WriteString("    ")
			continue
		}
		if r < 32 || r > 126 {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// wrapText breaks a paragraph into lines at word boundaries.
func wrapText(s string, width int) []string {
	if s == "" {
		return []string{""}
	}
	words := strings.Fields(s)
	if len(words) == 0 {
		return []string{""}
	}
	var lines []string
	current := words[0]
	for _, word := range words[1:] {
		if len(current)+1+len(word) > width {
			lines = append(lines, current)
			current = word
			continue
		}
		current += " " + word
	}
	return append(lines, current)
}
