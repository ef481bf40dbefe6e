// CLAUDE:SUMMARY Generic content-to-download pipeline — wraps content as a host blob and drives a transient trigger element through its lifecycle.
// Package saver turns in-memory content into a browser-native file download.
//
// The package owns the download mechanics only: wrapping content as a host
// binary object, minting a short-lived reference, and driving a transient
// trigger element through its create → configure → activate → remove
// lifecycle. The host document and binary layer are injected interfaces, so
// the saver runs against a live page (see package browser) or against fakes
// in tests.
//
// Downloads are fire-and-forget: once the trigger is activated the saver has
// no feedback channel. A blocked or failed download is indistinguishable from
// a successful one. Errors returned by the operations cover collaborator
// transport failures, never download outcomes.
package saver

import (
	"context"
	"fmt"
	"log/slog"
)

// Trigger is a transient activatable element in the host document. It lives
// for a single save call: the saver configures it, activates it exactly once,
// and removes it. Implementations bind their cancellation context at creation
// time (see Document.CreateTrigger).
type Trigger interface {
	// SetDownloadName designates the destination filename.
	SetDownloadName(name string) error
	// SetReference points the trigger at a content reference.
	SetReference(ref string) error
	// SetNewContext marks the trigger to open in a separate browsing
	// context, so activation never navigates the current view away.
	SetNewContext(enabled bool) error
	// Activate fires the trigger. Called exactly once per element.
	Activate() error
	// Remove discards the element from the host document.
	Remove() error
}

// Document creates transient trigger elements in the host page.
type Document interface {
	CreateTrigger(ctx context.Context) (Trigger, error)
}

// Blob is an opaque handle to a binary object owned by the host.
type Blob interface {
	// MintReference returns a short-lived reference string for the blob,
	// valid for at least the duration of one trigger activation.
	MintReference(ctx context.Context) (string, error)
}

// BinaryHost wraps raw bytes as host binary objects.
type BinaryHost interface {
	Wrap(ctx context.Context, data []byte, mimeType string) (Blob, error)
}

// Saver converts a content payload plus a filename into a completed download
// action. Each call creates and discards its own trigger element; calls share
// no state and may run concurrently.
type Saver struct {
	doc Document
	bin BinaryHost
	log *slog.Logger
}

// Option configures a Saver.
type Option func(*Saver)

// WithLogger overrides the default slog logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Saver) { s.log = log }
}

// New creates a Saver over the given host collaborators.
func New(doc Document, bin BinaryHost, opts ...Option) *Saver {
	s := &Saver{doc: doc, bin: bin, log: slog.Default()}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Save wraps content into a binary object tagged with mimeType and downloads
// it under filename. The MIME type is passed through to the host unvalidated;
// a malformed type is the host's concern.
func (s *Saver) Save(ctx context.Context, content, mimeType, filename string) error {
	blob, err := s.bin.Wrap(ctx, []byte(content), mimeType)
	if err != nil {
		return fmt.Errorf("saver: wrap content: %w", err)
	}
	return s.SaveFromBlob(ctx, blob, filename)
}

// SaveFromBlob downloads an existing host binary object under filename. The
// blob reference is minted lazily, inside the trigger routine, so a
// host-imposed reference expiry starts as close as possible to activation.
func (s *Saver) SaveFromBlob(ctx context.Context, blob Blob, filename string) error {
	return s.trigger(ctx, filename, blob.MintReference)
}

// SaveFromTextAsData downloads content using the text itself as the content
// reference — for callers that pre-formed a data URI themselves.
func (s *Saver) SaveFromTextAsData(ctx context.Context, content, filename string) error {
	return s.trigger(ctx, filename, func(context.Context) (string, error) {
		return content, nil
	})
}

// trigger drives one trigger element through its full lifecycle. Ordering is
// fixed: the element exists before resolve runs, attribute assignment
// precedes activation, and removal is unconditional once the element exists.
func (s *Saver) trigger(ctx context.Context, filename string, resolve func(context.Context) (string, error)) error {
	t, err := s.doc.CreateTrigger(ctx)
	if err != nil {
		return fmt.Errorf("saver: create trigger: %w", err)
	}
	defer func() {
		if rerr := t.Remove(); rerr != nil {
			s.log.Warn("saver: trigger remove failed", "filename", filename, "error", rerr)
		}
	}()

	if err := t.SetDownloadName(filename); err != nil {
		return fmt.Errorf("saver: set download name: %w", err)
	}

	ref, err := resolve(ctx)
	if err != nil {
		return fmt.Errorf("saver: resolve reference: %w", err)
	}
	if err := t.SetReference(ref); err != nil {
		return fmt.Errorf("saver: set reference: %w", err)
	}
	if err := t.SetNewContext(true); err != nil {
		return fmt.Errorf("saver: set new context: %w", err)
	}
	if err := t.Activate(); err != nil {
		return fmt.Errorf("saver: activate: %w", err)
	}
	return nil
}
