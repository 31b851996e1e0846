package document

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cloudwego/eino-ext/components/document/parser/pdf"
	einoParser "github.com/cloudwego/eino/components/document/parser"
	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"

	"github.com/spigell/resume-screener/internal/failure"
	"github.com/spigell/resume-screener/internal/resume"
)

type pageParser interface {
	Parse(ctx context.Context, reader io.Reader, opts ...einoParser.Option) ([]*schema.Document, error)
}

// Decoder turns uploaded files into resume text. PDF files go through the
// PDF parser, everything else is read as UTF-8 text.
type Decoder struct {
	pdf    pageParser
	logger *zap.Logger
}

// NewDecoder creates a decoder with a page-splitting PDF parser.
func NewDecoder(ctx context.Context, logger *zap.Logger) (*Decoder, error) {
	p, err := pdf.NewPDFParser(ctx, &pdf.Config{ToPages: true})
	if err != nil {
		return nil, fmt.Errorf("creating pdf parser: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Decoder{pdf: p, logger: logger}, nil
}

// Decode returns the text of the file contents. Failures are extraction errors.
func (d *Decoder) Decode(ctx context.Context, name string, data []byte) (string, error) {
	if strings.EqualFold(filepath.Ext(name), ".pdf") {
		return d.decodePDF(ctx, name, data)
	}
	return strings.ToValidUTF8(string(data), ""), nil
}

// DecodeFile reads and decodes the file at path. The document is named by
// the base name of the path.
func (d *Decoder) DecodeFile(ctx context.Context, path string) (resume.RawDocument, error) {
	name := filepath.Base(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return resume.RawDocument{}, failure.Extraction("read "+name, err)
	}

	text, err := d.Decode(ctx, name, data)
	if err != nil {
		return resume.RawDocument{}, err
	}

	if d.logger != nil {
		d.logger.Debug("document decoded", zap.String("source", name), zap.Int("text_length", len(text)))
	}
	return resume.RawDocument{SourceName: name, Text: text}, nil
}

func (d *Decoder) decodePDF(ctx context.Context, name string, data []byte) (string, error) {
	if d.pdf == nil {
		return "", failure.Extraction("decode "+name, errors.New("pdf parser is not configured"))
	}

	docs, err := d.pdf.Parse(ctx, bytes.NewReader(data), einoParser.WithURI(name))
	if err != nil {
		return "", failure.Extraction("decode "+name, err)
	}

	// empty pages stay as empty lines so page boundaries are kept
	pages := make([]string, 0, len(docs))
	for _, doc := range docs {
		if doc == nil {
			pages = append(pages, "")
			continue
		}
		pages = append(pages, doc.Content)
	}

	return strings.ToValidUTF8(strings.Join(pages, "\n"), ""), nil
}
