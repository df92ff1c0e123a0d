// Package mcptool exposes document triage as an MCP tool.
package mcptool

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"doc-triage/internal/models"
	"doc-triage/internal/pipeline"
	"doc-triage/internal/processor"
	"doc-triage/internal/source"
)

// MetadataTriageDocuments describes the triage_documents tool.
var MetadataTriageDocuments = &mcp.Tool{
	Name: "triage_documents",
	Description: "Rank the sections of a set of local documents by relevance to a persona and the " +
		"task they need to accomplish. " +
		"Supported formats: pdf, markdown, html, docx, txt. " +
		"Returns the top sections with their document, page and importance rank, plus a condensed " +
		"text for each. Documents that cannot be read are skipped and listed in document_errors.",
	InputSchema: map[string]interface{}{
		"type":     "object",
		"required": []string{"paths", "persona", "task"},
		"properties": map[string]interface{}{
			"paths": map[string]interface{}{
				"type":        "array",
				"items":       map[string]interface{}{"type": "string"},
				"description": "Paths of the documents to analyse, in reporting order",
			},
			"persona": map[string]interface{}{
				"type":        "string",
				"description": "Role of the reader, e.g. \"Travel Planner\"",
			},
			"task": map[string]interface{}{
				"type":        "string",
				"description": "The job the reader needs to get done",
			},
			"top_k": map[string]interface{}{
				"type":        "integer",
				"description": "Number of sections to return. Defaults to the configured value.",
				"minimum":     1,
			},
		},
	},
}

// InputTriageDocuments is the input for the TriageDocuments tool.
type InputTriageDocuments struct {
	Paths   []string `json:"paths"`
	Persona string   `json:"persona"`
	Task    string   `json:"task"`
	TopK    int      `json:"top_k"`
}

// OutputTriageDocuments is the output for the TriageDocuments tool.
type OutputTriageDocuments struct {
	Report *models.Report `json:"report"`
	// DocumentErrors lists the documents that were skipped and why.
	DocumentErrors []string `json:"document_errors"`
	// RunID is set when the run was stored.
	RunID string `json:"run_id,omitempty"`
}

// Triager serves the tool from a pipeline factory
type Triager struct {
	factory pipeline.Factory
	opener  processor.Opener
}

// NewTriager returns a Triager reading documents through opener, or the
// local filesystem when opener is nil.
func NewTriager(factory pipeline.Factory, opener processor.Opener) *Triager {
	if opener == nil {
		opener = source.FileOpener{}
	}
	return &Triager{factory: factory, opener: opener}
}

// Register adds the tool to server.
func (t *Triager) Register(server *mcp.Server) {
	mcp.AddTool(server, MetadataTriageDocuments, t.TriageDocuments)
}

// TriageDocuments runs one triage job over the requested paths.
func (t *Triager) TriageDocuments(ctx context.Context, _ *mcp.CallToolRequest, input InputTriageDocuments) (*mcp.CallToolResult, OutputTriageDocuments, error) {
	if len(input.Paths) == 0 {
		return nil, OutputTriageDocuments{}, fmt.Errorf("paths is required")
	}
	if input.Persona == "" || input.Task == "" {
		return nil, OutputTriageDocuments{}, fmt.Errorf("persona and task are required")
	}
	if input.TopK < 0 {
		return nil, OutputTriageDocuments{}, fmt.Errorf("top_k must be positive")
	}

	p, err := t.factory(t.opener, pipeline.Options{TopK: input.TopK})
	if err != nil {
		return nil, OutputTriageDocuments{}, err
	}

	names := make([]string, len(input.Paths))
	for i, path := range input.Paths {
		names[i] = filepath.Base(path)
	}

	res, err := p.Run(ctx, pipeline.Request{
		Documents: names,
		Paths:     input.Paths,
		Persona:   input.Persona,
		Task:      input.Task,
	})
	if err != nil {
		return nil, OutputTriageDocuments{}, err
	}

	docErrors := make([]string, len(res.Failures))
	for i, f := range res.Failures {
		docErrors[i] = f.Error()
	}

	return nil, OutputTriageDocuments{
		Report:         res.Report,
		DocumentErrors: docErrors,
		RunID:          res.RunID,
	}, nil
}
