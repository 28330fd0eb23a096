package pdf

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/gen2brain/go-fitz"

	"github.com/joseph-ayodele/studydeck/internal/common"
)

// Extraction is the text of a whole document.
type Extraction struct {
	Text  string
	Pages int
}

// TextExtractor turns PDF bytes into text.
type TextExtractor interface {
	ExtractText(ctx context.Context, data []byte) (Extraction, error)
}

// ErrNoText is returned when a document yields no text at all, typically a scanned PDF.
var ErrNoText = errors.New("no extractable text found in PDF")

// NewExtractor returns the extractor named by cfg.Extractor.
func NewExtractor(cfg common.PDFConfig, logger *slog.Logger) (TextExtractor, error) {
	switch cfg.Extractor {
	case "", "fitz":
		return NewFitzExtractor(logger), nil
	case "pdftotext":
		return NewPdftotextExtractor(cfg.PdftotextBin, logger), nil
	default:
		return nil, common.ConfigurationError(fmt.Sprintf("unknown PDF_EXTRACTOR %q", cfg.Extractor), nil)
	}
}

// FitzExtractor reads text page by page with MuPDF.
type FitzExtractor struct {
	logger *slog.Logger
}

func NewFitzExtractor(logger *slog.Logger) *FitzExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &FitzExtractor{logger: logger}
}

func (f *FitzExtractor) ExtractText(ctx context.Context, data []byte) (Extraction, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return Extraction{}, fmt.Errorf("open PDF: %w", err)
	}
	defer doc.Close()

	pages := doc.NumPage()
	var b strings.Builder
	for i := 0; i < pages; i++ {
		if err := ctx.Err(); err != nil {
			return Extraction{}, err
		}
		txt, err := doc.Text(i)
		if err != nil {
			return Extraction{}, fmt.Errorf("read page %d: %w", i+1, err)
		}
		if i > 0 {
			b.WriteString("\f")
		}
		b.WriteString(txt)
	}
	f.logger.Debug("pdf.fitz.extracted", "pages", pages, "bytes", b.Len())
	return finish(b.String(), pages)
}

// PdftotextExtractor shells out to poppler's pdftotext.
type PdftotextExtractor struct {
	bin    string
	runner Runner
	logger *slog.Logger
}

func NewPdftotextExtractor(bin string, logger *slog.Logger) *PdftotextExtractor {
	if bin == "" {
		bin = "pdftotext"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PdftotextExtractor{bin: bin, runner: execRunner{logger: logger}, logger: logger}
}

// WithRunner swaps the command runner.
func (p *PdftotextExtractor) WithRunner(r Runner) *PdftotextExtractor {
	p.runner = r
	return p
}

func (p *PdftotextExtractor) ExtractText(ctx context.Context, data []byte) (Extraction, error) {
	tmp, err := os.CreateTemp("", "studydeck-*.pdf")
	if err != nil {
		return Extraction{}, err
	}
	defer func(path string) {
		if err := os.Remove(path); err != nil {
			p.logger.Warn("pdf.tempfile.remove_failed", "path", path, "error", err)
		}
	}(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return Extraction{}, err
	}
	if err := tmp.Close(); err != nil {
		return Extraction{}, err
	}

	// pdftotext -layout -enc UTF-8 -eol unix <path> -
	out, err := p.runner.Run(ctx, p.bin, "-layout", "-enc", "UTF-8", "-eol", "unix", tmp.Name(), "-")
	if err != nil {
		return Extraction{}, err
	}
	text := string(out)
	// A form-feed \f is used as page separator by default
	pages := strings.Count(strings.TrimRight(text, "\f"), "\f") + 1
	return finish(text, pages)
}

func finish(raw string, pages int) (Extraction, error) {
	text := Normalize(raw)
	if text == "" {
		return Extraction{Pages: pages}, ErrNoText
	}
	return Extraction{Text: text, Pages: pages}, nil
}
