// Package textacq turns an input file into a best-effort plain-text
// representation: CSV passes through, PDFs go through the text layer with
// an OCR fallback for scanned documents, images go straight to OCR.
package textacq

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/rs/zerolog"

	"github.com/dvloznov/tx-extractor/internal/domain"
	"github.com/dvloznov/tx-extractor/internal/ocr"
)

// allowedImageMIMEs is the accepted set for receipt uploads.
var allowedImageMIMEs = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// Acquirer resolves raw file bytes into text, consulting the OCR provider
// when the direct path yields nothing. A nil provider disables the OCR
// fallback.
type Acquirer struct {
	ocr ocr.Provider
	log zerolog.Logger
}

func New(ocrProvider ocr.Provider, log zerolog.Logger) *Acquirer {
	return &Acquirer{ocr: ocrProvider, log: log}
}

// FromFile produces the plain text of a statement file. The format is
// selected by file extension; anything but .csv/.pdf is rejected with
// ErrUnsupportedFormat before any work happens.
func (a *Acquirer) FromFile(ctx context.Context, filename string, data []byte) (string, domain.ImportFormat, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return string(data), domain.FormatCSV, nil
	case ".pdf":
		text, err := a.pdfText(ctx, data)
		if err != nil {
			return "", domain.FormatPDF, err
		}
		return text, domain.FormatPDF, nil
	default:
		return "", "", fmt.Errorf("%w: %s", domain.ErrUnsupportedFormat, filename)
	}
}

// FromImage runs OCR over a receipt image. The MIME type must be in the
// allowed image set.
func (a *Acquirer) FromImage(ctx context.Context, data []byte, mimeType string) (*ocr.Result, error) {
	if !allowedImageMIMEs[strings.ToLower(mimeType)] {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedFormat, mimeType)
	}
	if a.ocr == nil {
		return nil, domain.ErrAcquisitionFailed
	}
	res, err := a.ocr.RecognizeImage(ctx, data, mimeType)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(res.FullText) == "" {
		return nil, domain.ErrAcquisitionFailed
	}
	return res, nil
}

// pdfText tries the text layer first; an empty or failing layer (scanned
// statement) falls back to OCR. Both paths empty is fatal.
func (a *Acquirer) pdfText(ctx context.Context, data []byte) (string, error) {
	text, err := ExtractPDFTextLayer(data)
	if err != nil {
		a.log.Warn().Err(err).Msg("pdf text layer extraction failed, falling back to ocr")
	}
	if strings.TrimSpace(text) != "" {
		return text, nil
	}
	if a.ocr == nil {
		return "", domain.ErrAcquisitionFailed
	}

	res, ocrErr := a.ocr.RecognizePDF(ctx, data)
	if ocrErr != nil {
		a.log.Error().Err(ocrErr).Msg("pdf ocr fallback failed")
		return "", domain.ErrAcquisitionFailed
	}
	if strings.TrimSpace(res.FullText) == "" {
		return "", domain.ErrAcquisitionFailed
	}
	a.log.Info().Str("provider", res.Provider).Msg("pdf text recovered via ocr")
	return res.FullText, nil
}

// ExtractPDFTextLayer reads the embedded text layer page by page, joining
// the word tokens of a page with single spaces and pages with newlines.
// The pdf library panics on some malformed files; that is reported as an
// error, not propagated.
func ExtractPDFTextLayer(data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf reader panic: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	var pages []string
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		rows, rerr := page.GetTextByRow()
		if rerr != nil {
			continue
		}
		var words []string
		for _, row := range rows {
			for _, word := range row.Content {
				if word.S != "" {
					words = append(words, word.S)
				}
			}
		}
		if len(words) > 0 {
			pages = append(pages, strings.Join(words, " "))
		}
	}
	return strings.Join(pages, "\n"), nil
}
