package ingest

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Renderer rasterizes a single PDF page to PNG bytes for OCR.
type Renderer interface {
	RenderPage(path string, pageIndex int) ([]byte, error)
}

// Recognizer runs optical text recognition over a PNG image.
type Recognizer interface {
	Recognize(png []byte) (string, error)
}

// Extractor pulls per-page text out of PDF documents. Pages whose embedded
// text is shorter than minTextLen are treated as scanned: the page is
// rendered and OCR'd, and the longer of the two texts wins.
type Extractor struct {
	minTextLen int
	renderer   Renderer
	recognizer Recognizer
	logger     *slog.Logger
}

// NewExtractor creates an Extractor. renderer and recognizer may be nil, in
// which case the OCR fallback is disabled and embedded text is used as-is.
func NewExtractor(minTextLen int, renderer Renderer, recognizer Recognizer) *Extractor {
	if minTextLen <= 0 {
		minTextLen = 50
	}
	return &Extractor{
		minTextLen: minTextLen,
		renderer:   renderer,
		recognizer: recognizer,
		logger:     slog.Default(),
	}
}

// ExtractText returns the concatenated text of all pages in the document.
func (e *Extractor) ExtractText(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening pdf %s: %w", path, err)
	}
	defer f.Close()

	var sb strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		text := e.pageText(r, path, i)
		if strings.TrimSpace(text) == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(text)
	}
	return sb.String(), nil
}

// pageText extracts one page's text, falling back to OCR for scanned pages.
func (e *Extractor) pageText(r *pdf.Reader, path string, pageNum int) string {
	var text string
	page := r.Page(pageNum)
	if !page.V.IsNull() {
		extracted, err := page.GetPlainText(nil)
		if err != nil {
			e.logger.Warn("pdf text extraction failed, trying OCR", "path", path, "page", pageNum, "error", err)
		} else {
			text = extracted
		}
	}

	if len(strings.TrimSpace(text)) >= e.minTextLen || e.renderer == nil || e.recognizer == nil {
		return text
	}

	ocrText, err := e.ocrPage(path, pageNum-1)
	if err != nil {
		e.logger.Warn("page OCR failed, keeping embedded text", "path", path, "page", pageNum, "error", err)
		return text
	}

	// Keep whichever extraction recovered more.
	if len(strings.TrimSpace(ocrText)) > len(strings.TrimSpace(text)) {
		return ocrText
	}
	return text
}

func (e *Extractor) ocrPage(path string, pageIndex int) (string, error) {
	png, err := e.renderer.RenderPage(path, pageIndex)
	if err != nil {
		return "", fmt.Errorf("rendering page %d: %w", pageIndex, err)
	}
	text, err := e.recognizer.Recognize(png)
	if err != nil {
		return "", fmt.Errorf("recognizing page %d: %w", pageIndex, err)
	}
	return text, nil
}
