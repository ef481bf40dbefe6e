package snapshot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/hazyhaar/chsave/saver"
)

// --- fakes ---

type fakeNode struct {
	live bool
}

func (n *fakeNode) Live() bool { return n.live }

func liveNode() *fakeNode { return &fakeNode{live: true} }

type fakeTrigger struct {
	downloadName string
	reference    string
	newContext   bool
	activations  int
	removed      bool
}

func (t *fakeTrigger) SetDownloadName(name string) error { t.downloadName = name; return nil }
func (t *fakeTrigger) SetReference(ref string) error     { t.reference = ref; return nil }
func (t *fakeTrigger) SetNewContext(on bool) error       { t.newContext = on; return nil }
func (t *fakeTrigger) Activate() error                   { t.activations++; return nil }
func (t *fakeTrigger) Remove() error                     { t.removed = true; return nil }

type fakeBlob struct {
	ref   string
	mints int
}

func (b *fakeBlob) MintReference(context.Context) (string, error) {
	b.mints++
	return b.ref, nil
}

type wrapCall struct {
	content  string
	mimeType string
	blob     *fakeBlob
}

// fakeHost implements Host plus the optional DocumentRenderer and
// MarkupRenderer capabilities.
type fakeHost struct {
	mu       sync.Mutex
	triggers []*fakeTrigger
	wraps    []wrapCall

	vectorOut   string
	vectorErr   error
	vectorCalls int

	rasterBlob  *fakeBlob
	rasterErr   error
	rasterCalls int

	docData []byte
	docErr  error

	markup    string
	markupErr error
}

func (h *fakeHost) CreateTrigger(context.Context) (saver.Trigger, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	t := &fakeTrigger{}
	h.triggers = append(h.triggers, t)
	return t, nil
}

func (h *fakeHost) Wrap(_ context.Context, data []byte, mimeType string) (saver.Blob, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	blob := &fakeBlob{ref: fmt.Sprintf("blob:fake/%d", len(h.wraps))}
	h.wraps = append(h.wraps, wrapCall{content: string(data), mimeType: mimeType, blob: blob})
	return blob, nil
}

func (h *fakeHost) RenderVector(context.Context, Node) (string, error) {
	h.mu.Lock()
	h.vectorCalls++
	h.mu.Unlock()
	return h.vectorOut, h.vectorErr
}

func (h *fakeHost) RenderRaster(context.Context, Node) (saver.Blob, error) {
	h.mu.Lock()
	h.rasterCalls++
	h.mu.Unlock()
	if h.rasterErr != nil {
		return nil, h.rasterErr
	}
	return h.rasterBlob, nil
}

func (h *fakeHost) RenderDocument(context.Context, Node) ([]byte, error) {
	return h.docData, h.docErr
}

func (h *fakeHost) RenderMarkup(context.Context, Node) (string, error) {
	return h.markup, h.markupErr
}

// coreHost implements only the required Host contract, no optional
// capabilities.
type coreHost struct {
	inner *fakeHost
}

func (h *coreHost) CreateTrigger(ctx context.Context) (saver.Trigger, error) {
	return h.inner.CreateTrigger(ctx)
}
func (h *coreHost) Wrap(ctx context.Context, data []byte, mt string) (saver.Blob, error) {
	return h.inner.Wrap(ctx, data, mt)
}
func (h *coreHost) RenderVector(ctx context.Context, n Node) (string, error) {
	return h.inner.RenderVector(ctx, n)
}
func (h *coreHost) RenderRaster(ctx context.Context, n Node) (saver.Blob, error) {
	return h.inner.RenderRaster(ctx, n)
}

func oneTrigger(t *testing.T, h *fakeHost) *fakeTrigger {
	t.Helper()
	if n := len(h.triggers); n != 1 {
		t.Fatalf("expected exactly 1 trigger element, got %d", n)
	}
	tr := h.triggers[0]
	if tr.activations != 1 {
		t.Fatalf("trigger activated %d times, want 1", tr.activations)
	}
	if !tr.removed {
		t.Fatal("trigger not removed")
	}
	return tr
}

// --- vector ---

func TestVectorSnapshot_StripsPrefix(t *testing.T) {
	h := &fakeHost{vectorOut: "data:image/svg+xml;charset=utf-8,<svg>...</svg>"}
	e := New(liveNode(), h)

	if err := e.SaveAsVectorSnapshot(context.Background(), "chart.svg"); err != nil {
		t.Fatal(err)
	}

	if len(h.wraps) != 1 {
		t.Fatalf("expected 1 wrap, got %d", len(h.wraps))
	}
	w := h.wraps[0]
	if w.content != "<svg>...</svg>" {
		t.Errorf("saved content = %q, want prefix stripped exactly", w.content)
	}
	if w.mimeType != "image/svg+xml" {
		t.Errorf("mime = %q", w.mimeType)
	}
	tr := oneTrigger(t, h)
	if tr.downloadName != "chart.svg" {
		t.Errorf("filename = %q", tr.downloadName)
	}
}

func TestVectorSnapshot_MissingPrefixSavedUnchanged(t *testing.T) {
	h := &fakeHost{vectorOut: "<svg>no prefix</svg>"}
	e := New(liveNode(), h)

	if err := e.SaveAsVectorSnapshot(context.Background(), ""); err != nil {
		t.Fatal(err)
	}
	if h.wraps[0].content != "<svg>no prefix</svg>" {
		t.Errorf("saved content = %q, want input unchanged", h.wraps[0].content)
	}
}

func TestVectorSnapshot_DefaultFilename(t *testing.T) {
	h := &fakeHost{vectorOut: "data:image/svg+xml;charset=utf-8,<svg/>"}
	e := New(liveNode(), h)

	if err := e.SaveAsVectorSnapshot(context.Background(), ""); err != nil {
		t.Fatal(err)
	}
	if got := oneTrigger(t, h).downloadName; got != DefaultVectorName {
		t.Errorf("filename = %q, want %q", got, DefaultVectorName)
	}
}

func TestVectorSnapshot_RenderErrorPropagates(t *testing.T) {
	h := &fakeHost{vectorErr: errors.New("renderer gone")}
	e := New(liveNode(), h)

	err := e.SaveAsVectorSnapshot(context.Background(), "")
	if err == nil || !strings.Contains(err.Error(), "render vector") {
		t.Fatalf("err = %v", err)
	}
	if len(h.triggers) != 0 {
		t.Errorf("trigger created despite render failure")
	}
}

// --- raster ---

func TestRasterSnapshot_SavesBlob(t *testing.T) {
	blob := &fakeBlob{ref: "blob:fake/raster"}
	h := &fakeHost{rasterBlob: blob}
	e := New(liveNode(), h)

	if err := e.SaveAsRasterSnapshot(context.Background(), ""); err != nil {
		t.Fatal(err)
	}
	tr := oneTrigger(t, h)
	if tr.downloadName != DefaultRasterName {
		t.Errorf("filename = %q, want %q", tr.downloadName, DefaultRasterName)
	}
	if tr.reference != "blob:fake/raster" {
		t.Errorf("reference = %q, want minted blob URL", tr.reference)
	}
	if blob.mints != 1 {
		t.Errorf("blob minted %d times, want 1", blob.mints)
	}
	// Raster bytes go straight to the blob path, never re-wrapped.
	if len(h.wraps) != 0 {
		t.Errorf("unexpected wrap calls: %d", len(h.wraps))
	}
}

// --- guards ---

func TestSnapshot_NilNodeIsNoOp(t *testing.T) {
	h := &fakeHost{vectorOut: "data:image/svg+xml;charset=utf-8,<svg/>"}
	e := New(nil, h)

	for name, export := range map[string]func(context.Context, string) error{
		"vector":   e.SaveAsVectorSnapshot,
		"raster":   e.SaveAsRasterSnapshot,
		"document": e.SaveAsDocumentSnapshot,
		"markdown": e.SaveAsMarkdownSnapshot,
	} {
		if err := export(context.Background(), "x"); err != nil {
			t.Errorf("%s: err = %v, want silent no-op", name, err)
		}
	}
	if h.vectorCalls != 0 || h.rasterCalls != 0 {
		t.Errorf("renderer called on nil node: vector=%d raster=%d", h.vectorCalls, h.rasterCalls)
	}
	if len(h.triggers) != 0 {
		t.Errorf("trigger created on nil node")
	}
}

func TestSnapshot_DeadNodeIsNoOp(t *testing.T) {
	h := &fakeHost{vectorOut: "data:image/svg+xml;charset=utf-8,<svg/>"}
	e := New(&fakeNode{live: false}, h)

	if err := e.SaveAsVectorSnapshot(context.Background(), ""); err != nil {
		t.Fatal(err)
	}
	if h.vectorCalls != 0 || len(h.triggers) != 0 {
		t.Error("dead node reached the renderer")
	}
}

// --- helpers ---

func TestExportHelpers_NilNode(t *testing.T) {
	h := &fakeHost{}
	if err := ExportAsVector(context.Background(), h, nil, ""); err != nil {
		t.Errorf("ExportAsVector(nil) = %v", err)
	}
	if err := ExportAsRaster(context.Background(), h, nil, ""); err != nil {
		t.Errorf("ExportAsRaster(nil) = %v", err)
	}
	if h.vectorCalls != 0 || h.rasterCalls != 0 || len(h.triggers) != 0 {
		t.Error("helpers touched the host for a nil node")
	}
}

func TestExportHelpers_Invoke(t *testing.T) {
	h := &fakeHost{
		vectorOut:  "data:image/svg+xml;charset=utf-8,<svg/>",
		rasterBlob: &fakeBlob{ref: "blob:fake/h"},
	}

	if err := ExportAsVector(context.Background(), h, liveNode(), "v.svg"); err != nil {
		t.Fatal(err)
	}
	if err := ExportAsRaster(context.Background(), h, liveNode(), "r.png"); err != nil {
		t.Fatal(err)
	}
	if len(h.triggers) != 2 {
		t.Fatalf("expected 2 triggers, got %d", len(h.triggers))
	}
	names := []string{h.triggers[0].downloadName, h.triggers[1].downloadName}
	if names[0] != "v.svg" || names[1] != "r.png" {
		t.Errorf("filenames = %v", names)
	}
}

// --- concurrency ---

func TestConcurrentExports_Independent(t *testing.T) {
	var wg sync.WaitGroup
	hosts := make([]*fakeHost, 2)
	for i := range hosts {
		hosts[i] = &fakeHost{
			vectorOut: fmt.Sprintf("data:image/svg+xml;charset=utf-8,<svg id=%d/>", i),
		}
	}

	for i, h := range hosts {
		wg.Add(1)
		go func(i int, h *fakeHost) {
			defer wg.Done()
			e := New(liveNode(), h)
			if err := e.SaveAsVectorSnapshot(context.Background(), fmt.Sprintf("n%d.svg", i)); err != nil {
				t.Errorf("export %d: %v", i, err)
			}
		}(i, h)
	}
	wg.Wait()

	for i, h := range hosts {
		tr := oneTrigger(t, h)
		if tr.downloadName != fmt.Sprintf("n%d.svg", i) {
			t.Errorf("host %d filename = %q", i, tr.downloadName)
		}
		if h.wraps[0].content != fmt.Sprintf("<svg id=%d/>", i) {
			t.Errorf("host %d content = %q", i, h.wraps[0].content)
		}
	}
}
