package service

import (
	"archive/zip"
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docuquery/rag-be/types"
)

func TestExtractRejectsUnsupportedContentType(t *testing.T) {
	extractor := NewDocumentExtractor()
	_, err := extractor.Extract([]byte("hello"), "text/plain")
	assert.ErrorIs(t, err, types.ErrValidation)
}

func TestExtractRejectsCorruptPDF(t *testing.T) {
	extractor := NewDocumentExtractor()
	_, err := extractor.Extract([]byte("not a pdf"), types.ContentTypePDF)
	assert.ErrorIs(t, err, types.ErrExtraction)
}

func buildPPTX(t *testing.T, slides map[int]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for num, text := range slides {
		f, err := w.Create(fmt.Sprintf("ppt/slides/slide%d.xml", num))
		require.NoError(t, err)
		_, err = f.Write([]byte(fmt.Sprintf(
			`<p:sld xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main"><p:txBody><a:p><a:r><a:t>%s</a:t></a:r></a:p></p:txBody></p:sld>`,
			text)))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestExtractPPTXSlidesAsPages(t *testing.T) {
	extractor := NewDocumentExtractor()
	raw := buildPPTX(t, map[int]string{
		2: "Second slide content here.",
		1: "First slide content here.",
	})

	pages, err := extractor.Extract(raw, types.ContentTypePPTX)
	require.NoError(t, err)
	require.Len(t, pages, 2)

	// Slides come back ordered by slide number regardless of zip order.
	assert.Equal(t, 1, pages[0].PageNumber)
	assert.Equal(t, "First slide content here.", pages[0].Text)
	assert.Equal(t, 2, pages[1].PageNumber)
	assert.Equal(t, "Second slide content here.", pages[1].Text)
}

func TestExtractRejectsCorruptPPTX(t *testing.T) {
	extractor := NewDocumentExtractor()
	_, err := extractor.Extract([]byte("not a zip"), types.ContentTypePPTX)
	assert.ErrorIs(t, err, types.ErrExtraction)
}

func TestCleanText(t *testing.T) {
	assert.Equal(t, "", cleanText(""))
	assert.Equal(t, "Hello world", cleanText("Hello   world"))
	assert.Equal(t, `He said "yes" - twice`, cleanText("He said “yes” – twice"))

	// Boilerplate lines are stripped.
	assert.Equal(t, "Real content here.", cleanText("Real content here.\n42\nPage 3 of 10"))
	assert.Equal(t, "Intro text.", cleanText("Intro text. Continued on next page"))
}
