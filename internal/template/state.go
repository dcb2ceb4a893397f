package template

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// StateFile is the project-relative location of the template record.
const StateFile = ".statproj/template.json"

// nowFunc is stubbed in tests.
var nowFunc = time.Now

// State records which template version a project was rendered from. It is the
// baseline for three-way merges during update-template.
type State struct {
	TemplateURL string    `json:"template_url"`
	Ref         string    `json:"ref"`
	Commit      string    `json:"commit,omitempty"`
	Context     Context   `json:"context"`
	AppliedAt   time.Time `json:"applied_at"`
}

// LoadState reads the template record for a project.
func LoadState(projectDir string) (*State, error) {
	data, err := os.ReadFile(filepath.Join(projectDir, StateFile))
	if err != nil {
		return nil, fmt.Errorf("read template state: %w", err)
	}
	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("parse template state: %w", err)
	}
	return &st, nil
}

// SaveState writes the template record for a project.
func SaveState(projectDir string, st *State) error {
	path := filepath.Join(projectDir, StateFile)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal template state: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write template state: %w", err)
	}
	return nil
}

// HasState reports whether projectDir carries a template record.
func HasState(projectDir string) bool {
	_, err := os.Stat(filepath.Join(projectDir, StateFile))
	return err == nil
}
