// Package template loads message bodies and resolves them by name.
package template

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"

	"campaign-scheduler/internal/cache"
	"campaign-scheduler/internal/config"
)

type Template struct {
	Name    string
	Content string
}

// Source produces the named templates for a scheduling pass.
type Source interface {
	LoadTemplates() ([]Template, error)
}

// FileSource reads each configured template from disk.
type FileSource struct {
	Files []config.TemplateFile
}

func NewFileSource(files []config.TemplateFile) *FileSource { return &FileSource{Files: files} }

// LoadTemplates fails on the first unreadable file.
func (s *FileSource) LoadTemplates() ([]Template, error) {
	out := make([]Template, 0, len(s.Files))
	for _, f := range s.Files {
		b, err := os.ReadFile(f.Path)
		if err != nil {
			log.Error().Err(err).Str("template", f.Name).Str("path", f.Path).Msg("load template")
			return nil, fmt.Errorf("load template %q: %w", f.Name, err)
		}
		out = append(out, Template{Name: f.Name, Content: string(b)})
	}
	return out, nil
}

// Registry resolves template names against the most recently loaded set.
type Registry struct {
	snap cache.Snapshot[map[string]Template]
}

func NewRegistry() *Registry { return &Registry{} }

func (r *Registry) Update(ts []Template) {
	m := make(map[string]Template, len(ts))
	for _, t := range ts {
		m[t.Name] = t
	}
	r.snap.Store(m)
}

func (r *Registry) Lookup(name string) (Template, bool) {
	m, ok := r.snap.Load()
	if !ok {
		return Template{}, false
	}
	t, ok := m[name]
	return t, ok
}

func (r *Registry) Len() int {
	m, _ := r.snap.Load()
	return len(m)
}
