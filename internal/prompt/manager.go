// Package prompt serves the per-phase system prompts. Built-in defaults cover
// every phase; a prompts directory of *.txt files can override any of them,
// and an optional watcher hot-reloads edits.
package prompt

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"quill/internal/phase"
)

// BaseName is the generic assistant prompt used when no specific template
// matches.
const BaseName = "base"

var defaults = map[string]string{
	BaseName: `You are a Content Creation Assistant that helps users create high-quality content through a structured process.
You guide users through four phases:
1. Context Gathering - Understanding the topic, audience, and goals
2. Structure Development - Creating an outline and organization
3. Content Development - Expanding sections with details
4. Refinement - Polishing and finalizing

Your job is to ask relevant questions, analyze responses, and guide the user through this process.`,

	"phases.context_gathering": `You are in the Context Gathering phase of content creation.

In this phase, your goal is to understand:
- The topic and main ideas
- The target audience
- The purpose and goals of the content
- The tone and style preferences
- Any specific requirements or constraints

Ask focused questions to gather this information. Be conversational but purposeful.`,

	"phases.structure_development": `You are in the Structure Development phase of content creation.

In this phase, your goal is to help the user:
- Create a logical outline for their content
- Organize their ideas in a coherent flow
- Identify main sections and subsections
- Determine the right structure for their content type

Ask questions that help the user think about organization and structure.`,

	"phases.content_development": `You are in the Content Development phase of content creation.

In this phase, your goal is to help the user:
- Expand each section with supporting details
- Develop compelling arguments or explanations
- Add examples, evidence, or stories
- Create engaging content for each part of the structure

Focus on one section at a time and ask questions that help the user develop rich content.`,

	"phases.refinement": `You are in the Refinement phase of content creation.

In this phase, your goal is to help the user:
- Review and improve their content
- Ensure consistency in tone and style
- Strengthen weak areas
- Polish the final product

Ask questions that help the user critically evaluate and improve their content.`,
}

// Manager resolves prompt templates by name. Lookup order: file override,
// built-in default, base prompt. It never returns empty text.
type Manager struct {
	dir string
	log *zap.Logger

	mu        sync.RWMutex
	overrides map[string]string
}

// NewManager creates a Manager reading overrides from dir. A missing
// directory is fine; the built-in defaults carry the full set.
func NewManager(dir string, log *zap.Logger) *Manager {
	m := &Manager{
		dir:       dir,
		log:       log,
		overrides: make(map[string]string),
	}
	if _, err := os.Stat(dir); err == nil {
		m.reload()
	} else {
		log.Info("prompts directory not found, using built-in templates", zap.String("dir", dir))
	}
	return m
}

// Get returns the template for name.
func (m *Manager) Get(name string) string {
	m.mu.RLock()
	text, ok := m.overrides[name]
	m.mu.RUnlock()
	if ok && strings.TrimSpace(text) != "" {
		return text
	}
	if text, ok := defaults[name]; ok {
		return text
	}
	m.log.Warn("prompt not found, using base prompt", zap.String("name", name))
	return defaults[BaseName]
}

// PhasePrompt returns the system prompt for a workflow phase.
func (m *Manager) PhasePrompt(p phase.Phase) string {
	return m.Get(phaseTemplateName(p))
}

func phaseTemplateName(p phase.Phase) string {
	name := strings.ToLower(strings.ReplaceAll(p.String(), " ", "_"))
	return "phases." + name
}

// reload re-reads every *.txt file under the prompts directory. Template
// names are the relative path with separators mapped to dots and the .txt
// suffix dropped (phases/refinement.txt -> phases.refinement).
func (m *Manager) reload() {
	loaded := make(map[string]string)
	err := filepath.WalkDir(m.dir, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(path, ".txt") {
			return err
		}
		rel, err := filepath.Rel(m.dir, path)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			m.log.Error("failed to read prompt template", zap.String("path", path), zap.Error(err))
			return nil
		}
		name := strings.TrimSuffix(filepath.ToSlash(rel), ".txt")
		name = strings.ReplaceAll(name, "/", ".")
		loaded[name] = string(data)
		return nil
	})
	if err != nil {
		m.log.Error("failed to scan prompts directory", zap.String("dir", m.dir), zap.Error(err))
		return
	}

	m.mu.Lock()
	m.overrides = loaded
	m.mu.Unlock()
	m.log.Info("loaded prompt templates", zap.Int("count", len(loaded)), zap.String("dir", m.dir))
}

// WriteDefaults materializes the built-in templates under dir so users have
// files to edit. Existing files are left alone.
func WriteDefaults(dir string) error {
	for name, text := range defaults {
		parts := strings.Split(name, ".")
		path := filepath.Join(append([]string{dir}, parts...)...) + ".txt"
		if _, err := os.Stat(path); err == nil {
			continue
		}
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return err
		}
		if err := os.WriteFile(path, []byte(text+"\n"), 0644); err != nil {
			return err
		}
	}
	return nil
}
