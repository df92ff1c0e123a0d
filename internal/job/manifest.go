// Package job decodes triage job manifests.
package job

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"

	"doc-triage/internal/models"
)

// Manifest describes one triage job. JSON manifests decode as YAML.
type Manifest struct {
	ChallengeInfo ChallengeInfo `yaml:"challenge_info" json:"challenge_info"`
	Documents     []DocumentRef `yaml:"documents" json:"documents"`
	Persona       Persona       `yaml:"persona" json:"persona"`
	JobToBeDone   JobToBeDone   `yaml:"job_to_be_done" json:"job_to_be_done"`

	// Directory holding the document files. Defaults to <manifest dir>/PDFs.
	DocumentDir string `yaml:"-" json:"-"`
}

type ChallengeInfo struct {
	ChallengeID  string `yaml:"challenge_id" json:"challenge_id"`
	TestCaseName string `yaml:"test_case_name" json:"test_case_name"`
	Description  string `yaml:"description" json:"description"`
}

type DocumentRef struct {
	Filename string `yaml:"filename" json:"filename"`
	Title    string `yaml:"title" json:"title"`
}

type Persona struct {
	Role string `yaml:"role" json:"role"`
}

type JobToBeDone struct {
	Task string `yaml:"task" json:"task"`
}

// DefaultDocumentDir is the folder, next to the manifest, that holds the documents
const DefaultDocumentDir = "PDFs"

// Load reads and validates a manifest file
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	m, err := Parse(data)
	if err != nil {
		return nil, err
	}
	m.DocumentDir = filepath.Join(filepath.Dir(path), DefaultDocumentDir)
	return m, nil
}

// Parse decodes and validates manifest content
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, &models.ConfigError{Field: "manifest", Message: err.Error()}
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks that the manifest names a persona, a task and at least one document
func (m *Manifest) Validate() error {
	if strings.TrimSpace(m.Persona.Role) == "" {
		return &models.ConfigError{Field: "persona.role", Message: "is required"}
	}
	if strings.TrimSpace(m.JobToBeDone.Task) == "" {
		return &models.ConfigError{Field: "job_to_be_done.task", Message: "is required"}
	}
	if len(m.Documents) == 0 {
		return &models.ConfigError{Field: "documents", Message: "at least one document is required"}
	}
	for i, d := range m.Documents {
		if strings.TrimSpace(d.Filename) == "" {
			return &models.ConfigError{Field: fmt.Sprintf("documents[%d].filename", i), Message: "is required"}
		}
	}
	return nil
}

// Filenames returns the document filenames in manifest order
func (m *Manifest) Filenames() []string {
	names := make([]string, len(m.Documents))
	for i, d := range m.Documents {
		names[i] = d.Filename
	}
	return names
}

// Paths resolves every document against DocumentDir
func (m *Manifest) Paths() []string {
	paths := make([]string, len(m.Documents))
	for i, d := range m.Documents {
		paths[i] = filepath.Join(m.DocumentDir, d.Filename)
	}
	return paths
}
