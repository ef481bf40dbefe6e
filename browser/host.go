// CLAUDE:SUMMARY Rod page adapter — trigger/blob registries plus the vector, raster, document, and markup renderers.
package browser

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/hazyhaar/chsave/saver"
	"github.com/hazyhaar/chsave/snapshot"
)

// Host adapts one Rod page to the saver and snapshot collaborator contracts.
// Blobs and trigger elements live in page-side registries
// (window.__chsaveBlobs / window.__chsaveTriggers) keyed by short random IDs,
// so concurrent exports on the same page never collide.
type Host struct {
	page *rod.Page
	log  *slog.Logger
}

// Compile-time contract checks.
var (
	_ saver.Document            = (*Host)(nil)
	_ saver.BinaryHost          = (*Host)(nil)
	_ snapshot.Host             = (*Host)(nil)
	_ snapshot.DocumentRenderer = (*Host)(nil)
	_ snapshot.MarkupRenderer   = (*Host)(nil)
)

// HostOption configures a Host.
type HostOption func(*Host)

// WithHostLogger overrides the default slog logger.
func WithHostLogger(log *slog.Logger) HostOption {
	return func(h *Host) { h.log = log }
}

// NewHost wraps an already-navigated Rod page.
func NewHost(page *rod.Page, opts ...HostOption) *Host {
	h := &Host{page: page, log: slog.Default()}
	for _, o := range opts {
		o(h)
	}
	return h
}

// Page returns the underlying Rod page.
func (h *Host) Page() *rod.Page { return h.page }

// Close closes the page. Pending object URLs die with it.
func (h *Host) Close() error { return h.page.Close() }

// Node is a handle to a DOM element on the host page.
type Node struct {
	el *rod.Element
}

// Live reports whether the handle points at an element.
func (n *Node) Live() bool { return n != nil && n.el != nil }

// Element resolves a CSS selector to a node handle. Empty selector means the
// document body.
func (h *Host) Element(ctx context.Context, selector string) (*Node, error) {
	if selector == "" {
		selector = "body"
	}
	el, err := h.page.Context(ctx).Element(selector)
	if err != nil {
		return nil, fmt.Errorf("browser: element %q: %w", selector, err)
	}
	return &Node{el: el}, nil
}

// asNode unwraps a snapshot.Node minted by this package.
func asNode(node snapshot.Node) (*Node, error) {
	n, ok := node.(*Node)
	if !ok || !n.Live() {
		return nil, fmt.Errorf("browser: foreign or dead node handle")
	}
	return n, nil
}

// Wrap stores data as a Blob in the page-side registry and returns a handle
// to it. The object URL is NOT minted here — that happens lazily in
// MintReference, right before trigger activation.
func (h *Host) Wrap(ctx context.Context, data []byte, mimeType string) (saver.Blob, error) {
	b64 := base64.StdEncoding.EncodeToString(data)
	res, err := h.page.Context(ctx).Eval(`(b64, type) => {
		const bin = atob(b64);
		const bytes = new Uint8Array(bin.length);
		for (let i = 0; i < bin.length; i++) bytes[i] = bin.charCodeAt(i);
		window.__chsaveBlobs = window.__chsaveBlobs || {};
		const id = "b-" + Math.random().toString(36).slice(2);
		window.__chsaveBlobs[id] = new Blob([bytes], { type });
		return id;
	}`, b64, mimeType)
	if err != nil {
		return nil, fmt.Errorf("browser: wrap blob: %w", err)
	}
	return &blob{page: h.page, id: res.Value.Str()}, nil
}

// blob is a handle to a page-side Blob object.
type blob struct {
	page *rod.Page
	id   string
}

// MintReference creates an object URL for the blob. The URL stays valid until
// the page unloads, which outlives any single trigger activation.
func (b *blob) MintReference(ctx context.Context) (string, error) {
	res, err := b.page.Context(ctx).Eval(
		`(id) => URL.createObjectURL(window.__chsaveBlobs[id])`, b.id)
	if err != nil {
		return "", fmt.Errorf("browser: mint reference: %w", err)
	}
	return res.Value.Str(), nil
}

// RenderVector serialises the element as a prefixed SVG data-URI string.
func (h *Host) RenderVector(ctx context.Context, node snapshot.Node) (string, error) {
	n, err := asNode(node)
	if err != nil {
		return "", err
	}
	res, err := n.el.Context(ctx).Eval(
		`() => "data:image/svg+xml;charset=utf-8," + new XMLSerializer().serializeToString(this)`)
	if err != nil {
		return "", fmt.Errorf("browser: serialize vector: %w", err)
	}
	return res.Value.Str(), nil
}

// RenderRaster screenshots the element as PNG and wraps the bytes as a host
// blob.
func (h *Host) RenderRaster(ctx context.Context, node snapshot.Node) (saver.Blob, error) {
	n, err := asNode(node)
	if err != nil {
		return nil, err
	}
	bin, err := n.el.Context(ctx).Screenshot(proto.PageCaptureScreenshotFormatPng, 0)
	if err != nil {
		return nil, fmt.Errorf("browser: screenshot: %w", err)
	}
	return h.Wrap(ctx, bin, "image/png")
}

// RenderDocument prints the element's page to PDF. CDP printing is
// page-scoped, so the document snapshot captures the whole page that holds
// the node.
func (h *Host) RenderDocument(ctx context.Context, node snapshot.Node) ([]byte, error) {
	if _, err := asNode(node); err != nil {
		return nil, err
	}
	r, err := h.page.Context(ctx).PDF(&proto.PagePrintToPDF{PrintBackground: true})
	if err != nil {
		return nil, fmt.Errorf("browser: print to pdf: %w", err)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("browser: read pdf stream: %w", err)
	}
	return data, nil
}

// RenderMarkup returns the element's outer HTML.
func (h *Host) RenderMarkup(ctx context.Context, node snapshot.Node) (string, error) {
	n, err := asNode(node)
	if err != nil {
		return "", err
	}
	res, err := n.el.Context(ctx).Eval(`() => this.outerHTML`)
	if err != nil {
		return "", fmt.Errorf("browser: outer html: %w", err)
	}
	return res.Value.Str(), nil
}
