package snapshot

import (
	"context"
	"fmt"
	"time"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/microcosm-cc/bluemonday"
)

// Shared across all exporters; both are safe for concurrent use.
var (
	markupPolicy = bluemonday.UGCPolicy()
	markdownConv = converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
			table.NewTablePlugin(),
		),
	)
)

// SaveAsMarkdownSnapshot downloads the node's content converted to Markdown.
// An empty filename selects DefaultMarkdownName. The host must support the
// MarkupRenderer capability.
//
// The markup is sanitised (UGC policy) before conversion, so script tags,
// event handlers and similar payloads never reach the converted document.
func (e *Exporter) SaveAsMarkdownSnapshot(ctx context.Context, filename string) error {
	if !e.usable() {
		return nil
	}
	if filename == "" {
		filename = DefaultMarkdownName
	}
	start := time.Now()
	err := e.markdown(ctx, filename)
	e.record(ctx, "markdown", filename, start, err)
	return err
}

func (e *Exporter) markdown(ctx context.Context, filename string) error {
	mr, ok := e.host.(MarkupRenderer)
	if !ok {
		return fmt.Errorf("snapshot: host cannot render markup")
	}
	markup, err := mr.RenderMarkup(ctx, e.node)
	if err != nil {
		return renderErr("markup", err)
	}

	clean := markupPolicy.Sanitize(markup)
	md, err := markdownConv.ConvertString(clean)
	if err != nil {
		return fmt.Errorf("snapshot: convert markdown: %w", err)
	}
	return e.sv.Save(ctx, md, "text/markdown", filename)
}
