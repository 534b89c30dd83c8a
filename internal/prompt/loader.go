// Package prompt loads the system prompts used for assessment generation.
// Defaults are compiled in; a directory of YAML files may override them by id.
package prompt

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"text/template"

	"gopkg.in/yaml.v3"
)

// Well-known template ids.
const (
	LearningUnit = "learning_unit"
	FactCheck    = "fact_check"
	Quiz         = "quiz"
)

//go:embed defaults/*.yaml
var defaults embed.FS

// Template is one prompt definition.
type Template struct {
	ID          string  `yaml:"id"`
	System      string  `yaml:"system"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
	JSON        bool    `yaml:"json"`

	tmpl *template.Template
}

// Render executes the system prompt with data.
func (t Template) Render(data any) (string, error) {
	if t.tmpl == nil {
		return t.System, nil
	}
	var buf bytes.Buffer
	if err := t.tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render prompt %s: %w", t.ID, err)
	}
	return strings.TrimSpace(buf.String()), nil
}

// Loader holds parsed templates keyed by id.
type Loader struct {
	templates map[string]Template
	mu        sync.RWMutex
}

// NewLoader loads the built-in templates and then any overrides found in
// overrideDir. An empty overrideDir uses the defaults only.
func NewLoader(overrideDir string) (*Loader, error) {
	l := &Loader{templates: make(map[string]Template)}

	if err := l.loadFS(defaults, "defaults"); err != nil {
		return nil, fmt.Errorf("loading default prompts: %w", err)
	}
	if overrideDir != "" {
		if err := l.loadFS(os.DirFS(overrideDir), "."); err != nil {
			return nil, fmt.Errorf("loading prompts from %s: %w", overrideDir, err)
		}
	}

	for _, id := range []string{LearningUnit, FactCheck, Quiz} {
		if _, ok := l.templates[id]; !ok {
			return nil, fmt.Errorf("prompt %q is not defined", id)
		}
	}

	slog.Info("prompts loaded", "templates", len(l.templates), "override_dir", overrideDir)
	return l, nil
}

// Get returns a template by id.
func (l *Loader) Get(id string) (Template, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	t, ok := l.templates[id]
	return t, ok
}

func (l *Loader) loadFS(fsys fs.FS, root string) error {
	return fs.WalkDir(fsys, root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}
		return l.loadFile(fsys, path)
	})
}

func (l *Loader) loadFile(fsys fs.FS, path string) error {
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return err
	}

	var t Template
	if err := yaml.Unmarshal(data, &t); err != nil {
		slog.Warn("skipping invalid prompt YAML", "path", path, "error", err)
		return nil
	}
	if t.ID == "" {
		return nil // Not a prompt file
	}

	t.tmpl, err = template.New(t.ID).Option("missingkey=error").Parse(t.System)
	if err != nil {
		return fmt.Errorf("parse prompt %s: %w", path, err)
	}

	l.mu.Lock()
	l.templates[t.ID] = t
	l.mu.Unlock()
	return nil
}
