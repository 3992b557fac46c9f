package document

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"

	"github.com/bryanwahyu/geo-classifier/internal/domain/geo"
)

const (
	MimeDocx = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MimePDF  = "application/pdf"
	MimeHTML = "text/html"

	msgPDFUnsupported = "PDF files are not supported yet. Please copy and paste the text content or convert to .txt/.docx format."
	msgDocxCorrupt    = "Failed to parse .docx file. Please ensure the file is not corrupted."
	msgEmptyContent   = "Failed to read file content"
)

// Kind is the routing decision for an uploaded file.
type Kind string

const (
	KindText Kind = "text"
	KindDocx Kind = "docx"
	KindHTML Kind = "html"
	KindPDF  Kind = "pdf"
)

// Detect routes by extension first, then by declared content type.
func Detect(filename, contentType string) Kind {
	ext := strings.ToLower(filepath.Ext(filename))
	ct := strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	switch {
	case ext == ".docx" || ct == MimeDocx:
		return KindDocx
	case ext == ".pdf" || ct == MimePDF:
		return KindPDF
	case ext == ".html" || ext == ".htm" || ct == MimeHTML:
		return KindHTML
	default:
		return KindText
	}
}

// Extractor implements geo.TextExtractor.
type Extractor struct{}

func NewExtractor() *Extractor { return &Extractor{} }

func (Extractor) Extract(filename, contentType string, data []byte) (string, error) {
	var (
		text string
		err  error
	)
	switch Detect(filename, contentType) {
	case KindPDF:
		return "", fmt.Errorf("%w: %s", geo.ErrUnsupportedFileType, msgPDFUnsupported)
	case KindDocx:
		text, err = docxText(data)
		if err != nil {
			return "", fmt.Errorf("%w: %s", geo.ErrFileRead, msgDocxCorrupt)
		}
	case KindHTML:
		text, err = htmltomarkdown.ConvertString(string(data))
		if err != nil {
			return "", fmt.Errorf("%w: converting html: %w", geo.ErrFileRead, err)
		}
	default:
		text = string(bytes.ToValidUTF8(data, []byte(string(utf8.RuneError))))
	}

	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: %s", geo.ErrFileRead, msgEmptyContent)
	}
	return text, nil
}

// docxText returns the raw paragraph text of word/document.xml, one paragraph per line.
func docxText(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	var doc *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			doc = f
			break
		}
	}
	if doc == nil {
		return "", fmt.Errorf("word/document.xml not found")
	}
	rc, err := doc.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()
	return paragraphs(rc)
}

func paragraphs(r io.Reader) (string, error) {
	dec := xml.NewDecoder(r)
	var (
		out    []string
		cur    strings.Builder
		inText bool
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				cur.WriteByte('\t')
			case "br", "cr":
				cur.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				out = append(out, cur.String())
				cur.Reset()
			}
		case xml.CharData:
			if inText {
				cur.Write(t)
			}
		}
	}
	if cur.Len() > 0 {
		out = append(out, cur.String())
	}
	return strings.Join(out, "\n"), nil
}
