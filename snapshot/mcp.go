// CLAUDE:SUMMARY Registers one MCP export tool per snapshot strategy, with the browser layer injected as an Opener.
package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/chsave/journal"
)

// Opener resolves a page URL and CSS selector to a live export host and node.
// The browser layer supplies the production implementation; the indirection
// keeps this package free of a browser dependency.
type Opener func(ctx context.Context, pageURL, selector string) (Host, Node, error)

type exportReq struct {
	URL      string `json:"url"`
	Selector string `json:"selector"`
	Filename string `json:"filename"`
}

type strategy struct {
	name        string
	description string
	defaultName string
	run         func(ctx context.Context, e *Exporter, filename string) error
}

// RegisterMCP registers one export tool per strategy on an MCP server.
func RegisterMCP(srv *mcp.Server, open Opener, jrnl *journal.Journal) {
	strategies := []strategy{
		{
			name:        "chsave_export_vector",
			description: "Export a DOM node as an SVG vector snapshot downloaded by the browser.",
			defaultName: DefaultVectorName,
			run: func(ctx context.Context, e *Exporter, filename string) error {
				return e.SaveAsVectorSnapshot(ctx, filename)
			},
		},
		{
			name:        "chsave_export_raster",
			description: "Export a DOM node as a PNG raster snapshot downloaded by the browser.",
			defaultName: DefaultRasterName,
			run: func(ctx context.Context, e *Exporter, filename string) error {
				return e.SaveAsRasterSnapshot(ctx, filename)
			},
		},
		{
			name:        "chsave_export_pdf",
			description: "Export the page holding a DOM node as a PDF document download.",
			defaultName: DefaultDocumentName,
			run: func(ctx context.Context, e *Exporter, filename string) error {
				return e.SaveAsDocumentSnapshot(ctx, filename)
			},
		},
		{
			name:        "chsave_export_markdown",
			description: "Export a DOM node's content as a Markdown file download.",
			defaultName: DefaultMarkdownName,
			run: func(ctx context.Context, e *Exporter, filename string) error {
				return e.SaveAsMarkdownSnapshot(ctx, filename)
			},
		},
	}
	for _, st := range strategies {
		registerExportTool(srv, open, jrnl, st)
	}
}

func inputSchema(properties map[string]any, required []string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

func registerExportTool(srv *mcp.Server, open Opener, jrnl *journal.Journal, st strategy) {
	tool := &mcp.Tool{
		Name:        st.name,
		Description: st.description,
		InputSchema: inputSchema(map[string]any{
			"url":      map[string]any{"type": "string", "description": "Page URL to open"},
			"selector": map[string]any{"type": "string", "description": "CSS selector of the node (default: body)"},
			"filename": map[string]any{"type": "string", "description": "Destination filename (default: " + st.defaultName + ")"},
		}, []string{"url"}),
	}

	srv.AddTool(tool, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var r exportReq
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			var res mcp.CallToolResult
			res.SetError(fmt.Errorf("invalid arguments: %w", err))
			return &res, nil
		}
		if r.URL == "" {
			var res mcp.CallToolResult
			res.SetError(errors.New("url is required"))
			return &res, nil
		}
		if r.Filename == "" {
			r.Filename = st.defaultName
		}

		host, node, err := open(ctx, r.URL, r.Selector)
		if err != nil {
			var res mcp.CallToolResult
			res.SetError(fmt.Errorf("open %s: %w", r.URL, err))
			return &res, nil
		}

		opts := []Option{}
		if jrnl != nil {
			opts = append(opts, WithJournal(jrnl))
		}
		if err := st.run(ctx, New(node, host, opts...), r.Filename); err != nil {
			var res mcp.CallToolResult
			res.SetError(errors.New(err.Error()))
			return &res, nil
		}

		data, _ := json.Marshal(map[string]string{
			"status":   "triggered",
			"filename": r.Filename,
			"url":      r.URL,
		})
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
		}, nil
	})
}
