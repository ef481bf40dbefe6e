// CLAUDE:SUMMARY Node export strategies — vector, raster, document, markdown — bridging a rendering host to the generic saver.
// Package snapshot exports the rendered appearance of a visual-tree node as a
// downloaded file. It bridges a rendering host (see package browser) to the
// generic saver: each strategy asks the host for one representation of the
// node — vector text, raster image, printed document, or markup — and hands
// the result to the saver's matching path.
//
// An exporter over an absent or dead node is inert: every strategy becomes a
// no-op. Export is best-effort and user-triggered; a failed export simply
// produces no file.
package snapshot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hazyhaar/chsave/journal"
	"github.com/hazyhaar/chsave/saver"
)

// Node is an opaque handle to a visual-tree node, minted by the rendering
// host. The exporter holds the handle but never mutates the node.
type Node interface {
	// Live reports whether the handle still points at a usable node.
	Live() bool
}

// Renderer produces file-ready representations of a node. Both operations
// block until the host finishes rendering; cancellation goes through ctx.
type Renderer interface {
	// RenderVector returns a vector-graphics text representation. A
	// well-formed result starts with the data-URI prefix
	// "data:image/svg+xml;charset=utf-8,".
	RenderVector(ctx context.Context, node Node) (string, error)
	// RenderRaster returns a binary image of the node as a host blob.
	RenderRaster(ctx context.Context, node Node) (saver.Blob, error)
}

// DocumentRenderer is an optional host capability: printing the node's page
// to a PDF document.
type DocumentRenderer interface {
	RenderDocument(ctx context.Context, node Node) ([]byte, error)
}

// MarkupRenderer is an optional host capability: serialising the node's
// outer markup.
type MarkupRenderer interface {
	RenderMarkup(ctx context.Context, node Node) (string, error)
}

// Host bundles every collaborator an export needs.
type Host interface {
	saver.Document
	saver.BinaryHost
	Renderer
}

// Default filenames, one per strategy.
const (
	DefaultVectorName   = "export.svg"
	DefaultRasterName   = "export.png"
	DefaultDocumentName = "export.pdf"
	DefaultMarkdownName = "export.md"
)

// vectorPrefix is the data-URI token a well-formed vector rendering starts
// with. A result lacking it is saved unchanged rather than rejected.
const vectorPrefix = "data:image/svg+xml;charset=utf-8,"

// Exporter exports one node through a host. It composes a private saver over
// the same host rather than extending it, so the saver stays independently
// testable.
type Exporter struct {
	node Node
	host Host
	sv   *saver.Saver
	jrnl *journal.Journal
	log  *slog.Logger
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithJournal records one journal event per attempted export.
func WithJournal(j *journal.Journal) Option {
	return func(e *Exporter) { e.jrnl = j }
}

// WithLogger overrides the default slog logger.
func WithLogger(log *slog.Logger) Option {
	return func(e *Exporter) { e.log = log }
}

// New creates an Exporter over node. A nil or dead node is accepted: the
// exporter then silently does nothing, because the host's behaviour on an
// invalid node is unspecified.
func New(node Node, host Host, opts ...Option) *Exporter {
	e := &Exporter{
		node: node,
		host: host,
		log:  slog.Default(),
	}
	for _, o := range opts {
		o(e)
	}
	e.sv = saver.New(host, host, saver.WithLogger(e.log))
	return e
}

// SaveAsVectorSnapshot downloads the node as an SVG file. An empty filename
// selects DefaultVectorName.
func (e *Exporter) SaveAsVectorSnapshot(ctx context.Context, filename string) error {
	if !e.usable() {
		return nil
	}
	if filename == "" {
		filename = DefaultVectorName
	}
	start := time.Now()
	err := e.vector(ctx, filename)
	e.record(ctx, "vector", filename, start, err)
	return err
}

func (e *Exporter) vector(ctx context.Context, filename string) error {
	text, err := e.host.RenderVector(ctx, e.node)
	if err != nil {
		return renderErr("vector", err)
	}
	// Strip the fixed data-URI prefix; tolerate its absence.
	return e.sv.Save(ctx, strings.TrimPrefix(text, vectorPrefix), "image/svg+xml", filename)
}

// SaveAsRasterSnapshot downloads the node as a PNG file. An empty filename
// selects DefaultRasterName.
func (e *Exporter) SaveAsRasterSnapshot(ctx context.Context, filename string) error {
	if !e.usable() {
		return nil
	}
	if filename == "" {
		filename = DefaultRasterName
	}
	start := time.Now()
	err := e.raster(ctx, filename)
	e.record(ctx, "raster", filename, start, err)
	return err
}

func (e *Exporter) raster(ctx context.Context, filename string) error {
	blob, err := e.host.RenderRaster(ctx, e.node)
	if err != nil {
		return renderErr("raster", err)
	}
	return e.sv.SaveFromBlob(ctx, blob, filename)
}

func (e *Exporter) usable() bool {
	return e.node != nil && e.node.Live()
}

func (e *Exporter) record(ctx context.Context, format, filename string, start time.Time, err error) {
	if e.jrnl == nil {
		return
	}
	ev := journal.Event{
		Format:     format,
		Filename:   filename,
		DurationMs: time.Since(start).Milliseconds(),
		Status:     "success",
	}
	if err != nil {
		ev.Status = "error"
		ev.Error = err.Error()
	}
	e.jrnl.Record(ctx, ev)
}

func renderErr(kind string, err error) error {
	return fmt.Errorf("snapshot: render %s: %w", kind, err)
}

// ExportAsVector is a one-call convenience: guard, construct, export.
func ExportAsVector(ctx context.Context, host Host, node Node, filename string) error {
	if node == nil {
		return nil
	}
	return New(node, host).SaveAsVectorSnapshot(ctx, filename)
}

// ExportAsRaster is a one-call convenience: guard, construct, export.
func ExportAsRaster(ctx context.Context, host Host, node Node, filename string) error {
	if node == nil {
		return nil
	}
	return New(node, host).SaveAsRasterSnapshot(ctx, filename)
}
