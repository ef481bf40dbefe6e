package snapshot

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// SaveAsDocumentSnapshot downloads the node's page printed to PDF. An empty
// filename selects DefaultDocumentName. The host must support the
// DocumentRenderer capability.
func (e *Exporter) SaveAsDocumentSnapshot(ctx context.Context, filename string) error {
	if !e.usable() {
		return nil
	}
	if filename == "" {
		filename = DefaultDocumentName
	}
	start := time.Now()
	err := e.document(ctx, filename)
	e.record(ctx, "document", filename, start, err)
	return err
}

func (e *Exporter) document(ctx context.Context, filename string) error {
	dr, ok := e.host.(DocumentRenderer)
	if !ok {
		return fmt.Errorf("snapshot: host cannot render documents")
	}
	data, err := dr.RenderDocument(ctx, e.node)
	if err != nil {
		return renderErr("document", err)
	}

	// Validation is advisory: a PDF that pdfcpu rejects is still saved as
	// produced, matching the tolerant stance on malformed vector output.
	conf := model.NewDefaultConfiguration()
	if pctx, verr := api.ReadValidateAndOptimize(bytes.NewReader(data), conf); verr != nil {
		e.log.Warn("snapshot: document validation failed", "filename", filename, "error", verr)
	} else {
		e.log.Debug("snapshot: document validated", "filename", filename, "pages", pctx.PageCount)
	}

	blob, err := e.host.Wrap(ctx, data, "application/pdf")
	if err != nil {
		return fmt.Errorf("snapshot: wrap document: %w", err)
	}
	return e.sv.SaveFromBlob(ctx, blob, filename)
}
