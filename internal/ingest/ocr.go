package ingest

import (
	"fmt"

	"github.com/gen2brain/go-fitz"
	"github.com/otiai10/gosseract/v2"
)

// renderDPI matches the original ingestion pipeline's raster resolution;
// below ~200 DPI tesseract loses small appliance-manual print.
const renderDPI = 300

// FitzRenderer rasterizes PDF pages via MuPDF.
type FitzRenderer struct{}

// RenderPage renders the zero-based page of the document at path to PNG.
func (FitzRenderer) RenderPage(path string, pageIndex int) ([]byte, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s with mupdf: %w", path, err)
	}
	defer doc.Close()

	png, err := doc.ImagePNG(pageIndex, renderDPI)
	if err != nil {
		return nil, fmt.Errorf("rendering page %d of %s: %w", pageIndex, path, err)
	}
	return png, nil
}

// TesseractRecognizer runs tesseract OCR over rendered page images.
type TesseractRecognizer struct {
	// Language is the tesseract language code, e.g. "kor".
	Language string
}

// Recognize extracts text from a PNG image.
func (t TesseractRecognizer) Recognize(png []byte) (string, error) {
	client := gosseract.NewClient()
	defer client.Close()

	if t.Language != "" {
		if err := client.SetLanguage(t.Language); err != nil {
			return "", fmt.Errorf("setting OCR language %q: %w", t.Language, err)
		}
	}
	if err := client.SetImageFromBytes(png); err != nil {
		return "", fmt.Errorf("loading image for OCR: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("running OCR: %w", err)
	}
	return text, nil
}
