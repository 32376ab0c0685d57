package analysis

import (
	"archive/zip"
	"bytes"
	"regexp"
	"strings"
	"unicode/utf8"
)

// minExtractedLength is the shortest text we accept as a real contract.
// Below this the document is treated as unreadable rather than analyzed,
// which would only produce hallucinated findings.
const minExtractedLength = 80

var (
	pdfTextRun = regexp.MustCompile(`\(((?:\\.|[^\\()])*)\)\s*Tj`)
	xmlTag     = regexp.MustCompile(`<[^>]+>`)
)

// ExtractText pulls analyzable text out of a contract file. Plain text and
// HTML pass through, PDF literal text runs are scraped from uncompressed
// content streams, and DOCX documents are read from word/document.xml.
func ExtractText(data []byte) (string, error) {
	switch {
	case bytes.HasPrefix(data, []byte("%PDF-")):
		return extractPDFText(data)
	case bytes.HasPrefix(data, []byte("PK\x03\x04")):
		return extractDocxText(data)
	case utf8.Valid(data):
		text := strings.TrimSpace(string(data))
		if looksLikeHTML(text) {
			text = strings.TrimSpace(xmlTag.ReplaceAllString(text, " "))
		}
		if len(text) < minExtractedLength {
			return "", NewParsingError("document is too short to extract text from", nil)
		}
		return text, nil
	default:
		return "", NewParsingError("invalid document: unrecognized file structure", nil)
	}
}

// extractPDFText scrapes literal text-show operators from the PDF byte
// stream. Compressed streams are skipped; if a PDF carries all its text
// compressed we surface a parsing error rather than a partial transcript.
func extractPDFText(data []byte) (string, error) {
	matches := pdfTextRun.FindAllSubmatch(data, -1)

	var sb strings.Builder
	for _, m := range matches {
		sb.WriteString(unescapePDFString(string(m[1])))
		sb.WriteByte(' ')
	}

	text := strings.TrimSpace(sb.String())
	if len(text) < minExtractedLength {
		return "", NewParsingError("unable to extract text from PDF document", nil)
	}
	return text, nil
}

func unescapePDFString(s string) string {
	replacer := strings.NewReplacer(
		`\(`, "(",
		`\)`, ")",
		`\\`, `\`,
		`\n`, "\n",
		`\r`, "\r",
		`\t`, "\t",
	)
	return replacer.Replace(s)
}

// extractDocxText reads word/document.xml out of the OOXML container and
// strips the markup.
func extractDocxText(data []byte) (string, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", NewParsingError("invalid document: corrupt archive structure", err)
	}

	for _, f := range reader.File {
		if f.Name != "word/document.xml" {
			continue
		}

		rc, err := f.Open()
		if err != nil {
			return "", NewParsingError("unable to extract text from document", err)
		}
		var buf bytes.Buffer
		_, err = buf.ReadFrom(rc)
		rc.Close()
		if err != nil {
			return "", NewParsingError("unable to extract text from document", err)
		}

		// Paragraph closers become newlines so clause boundaries survive.
		xmlText := strings.ReplaceAll(buf.String(), "</w:p>", "\n")
		text := strings.TrimSpace(xmlTag.ReplaceAllString(xmlText, ""))
		if len(text) < minExtractedLength {
			return "", NewParsingError("document is too short to extract text from", nil)
		}
		return text, nil
	}

	return "", NewParsingError("invalid document: missing document body", nil)
}

func looksLikeHTML(s string) bool {
	head := strings.ToLower(s[:min(len(s), 256)])
	return strings.Contains(head, "<html") || strings.Contains(head, "<!doctype html")
}
