package service

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/docuquery/rag-be/types"
)

// Extractor turns raw uploaded bytes into page-tagged plain text.
type Extractor interface {
	Extract(raw []byte, contentType string) ([]types.PageText, error)
}

// DocumentExtractor handles the supported upload formats in-process: PDF via
// ledongthuc/pdf, PPTX by reading slide XML out of the zip container.
type DocumentExtractor struct{}

func NewDocumentExtractor() *DocumentExtractor {
	return &DocumentExtractor{}
}

func (e *DocumentExtractor) Extract(raw []byte, contentType string) ([]types.PageText, error) {
	switch contentType {
	case types.ContentTypePDF:
		return e.extractPDF(raw)
	case types.ContentTypePPTX:
		return e.extractPPTX(raw)
	default:
		return nil, fmt.Errorf("%w: unsupported content type %q", types.ErrValidation, contentType)
	}
}

func (e *DocumentExtractor) extractPDF(raw []byte) ([]types.PageText, error) {
	reader, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open pdf: %v", types.ErrExtraction, err)
	}

	var pages []types.PageText
	for pageNum := 1; pageNum <= reader.NumPage(); pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// Skip unreadable pages instead of failing the whole document.
			continue
		}
		cleaned := cleanText(text)
		if cleaned == "" {
			continue
		}
		pages = append(pages, types.PageText{PageNumber: pageNum, Text: cleaned})
	}
	return pages, nil
}

var slideNameRe = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)

func (e *DocumentExtractor) extractPPTX(raw []byte) ([]types.PageText, error) {
	archive, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open pptx archive: %v", types.ErrExtraction, err)
	}

	type slide struct {
		number int
		file   *zip.File
	}
	var slides []slide
	for _, file := range archive.File {
		matches := slideNameRe.FindStringSubmatch(file.Name)
		if matches == nil {
			continue
		}
		number, err := strconv.Atoi(matches[1])
		if err != nil {
			continue
		}
		slides = append(slides, slide{number: number, file: file})
	}
	sort.Slice(slides, func(i, j int) bool { return slides[i].number < slides[j].number })

	var pages []types.PageText
	for _, s := range slides {
		text, err := readSlideText(s.file)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to read slide %d: %v", types.ErrExtraction, s.number, err)
		}
		cleaned := cleanText(text)
		if cleaned == "" {
			continue
		}
		pages = append(pages, types.PageText{PageNumber: s.number, Text: cleaned})
	}
	return pages, nil
}

// readSlideText pulls the text runs (<a:t> elements) out of one slide's
// DrawingML, inserting line breaks at paragraph ends.
func readSlideText(file *zip.File) (string, error) {
	rc, err := file.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	decoder := xml.NewDecoder(rc)
	var sb strings.Builder
	inText := false
	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		switch t := token.(type) {
		case xml.StartElement:
			if t.Name.Local == "t" {
				inText = true
			}
		case xml.EndElement:
			if t.Name.Local == "t" {
				inText = false
			}
			if t.Name.Local == "p" {
				sb.WriteString("\n")
			}
		case xml.CharData:
			if inText {
				sb.Write(t)
				sb.WriteString(" ")
			}
		}
	}
	return sb.String(), nil
}

var (
	pageNumberLineRe = regexp.MustCompile(`(?m)^\s*\d+\s*$`)
	pageXofYRe       = regexp.MustCompile(`(?im)^Page \d+ of \d+.*$`)
	continuedRe      = regexp.MustCompile(`(?i)continued on next page`)
	seePageRe        = regexp.MustCompile(`(?i)see page \d+`)
)

// cleanText normalizes extracted text: strips report boilerplate, normalizes
// smart quotes and dashes, collapses whitespace.
func cleanText(text string) string {
	if text == "" {
		return ""
	}

	text = pageNumberLineRe.ReplaceAllString(text, "")
	text = pageXofYRe.ReplaceAllString(text, "")
	text = continuedRe.ReplaceAllString(text, "")
	text = seePageRe.ReplaceAllString(text, "")

	replacer := strings.NewReplacer(
		"“", `"`, "”", `"`,
		"‘", "'", "’", "'",
		"–", "-", "—", "-",
		"\u0000", "", "\ufffd", "",
	)
	text = replacer.Replace(text)

	return strings.Join(strings.Fields(text), " ")
}
