// Package content provides the read-only scenario and script documents used
// to build coaching prompts.
package content

import (
	"cmp"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"regexp"
	"slices"

	"github.com/ashureev/coachline/internal/domain"
	"gopkg.in/yaml.v3"
)

// documentNamePattern restricts identifiers that may be turned into file names.
var documentNamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]{0,127}$`)

// scriptExtensions are tried in order when loading a script by identifier.
var scriptExtensions = []string{".json", ".yaml", ".yml"}

// Store serves scenario and script documents. Lookups never fail: missing or
// malformed documents degrade to a fallback or to absence.
type Store struct {
	scripts   fs.FS
	scenarios fs.FS
	logger    *slog.Logger
}

// New creates a Store. A nil scripts FS uses the embedded default scripts and
// a nil scenarios FS serves only the built-in scenario documents.
func New(scripts, scenarios fs.FS, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	if scripts == nil {
		scripts = DefaultScripts()
	}
	return &Store{
		scripts:   scripts,
		scenarios: scenarios,
		logger:    logger,
	}
}

// NewFromDirs creates a Store backed by directories on disk. Empty paths fall
// back to the defaults described in New.
func NewFromDirs(scriptsDir, scenariosDir string, logger *slog.Logger) *Store {
	var scripts, scenarios fs.FS
	if scriptsDir != "" {
		scripts = os.DirFS(scriptsDir)
	}
	if scenariosDir != "" {
		scenarios = os.DirFS(scenariosDir)
	}
	return New(scripts, scenarios, logger)
}

// Scenarios returns the fixed scenario catalog.
func (s *Store) Scenarios() []domain.ScenarioInfo {
	return slices.Clone(scenarioCatalog)
}

// Scenario resolves the document for id. An external <id>.md document wins,
// then the built-in document for id, then the restaurant document.
func (s *Store) Scenario(id domain.Scenario) string {
	if s.scenarios != nil && documentNamePattern.MatchString(string(id)) {
		data, err := fs.ReadFile(s.scenarios, string(id)+".md")
		if err == nil {
			return string(data)
		}
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("Failed to read scenario document", "scenario", id, "error", err)
		}
	}
	if doc, ok := builtinScenarios[id]; ok {
		return doc
	}
	return builtinScenarios[domain.DefaultScenario]
}

// ListScripts parses every script document and returns their summaries
// ordered by category, difficulty and title. Documents that fail to parse are
// logged and skipped.
func (s *Store) ListScripts() []domain.ScriptSummary {
	entries, err := fs.ReadDir(s.scripts, ".")
	if err != nil {
		s.logger.Warn("Failed to read scripts directory", "error", err)
		return []domain.ScriptSummary{}
	}

	summaries := make([]domain.ScriptSummary, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !slices.Contains(scriptExtensions, path.Ext(entry.Name())) {
			continue
		}
		script, err := s.readScript(entry.Name())
		if err != nil {
			s.logger.Warn("Failed to load script", "file", entry.Name(), "error", err)
			continue
		}
		summaries = append(summaries, script.Summary())
	}

	slices.SortStableFunc(summaries, func(a, b domain.ScriptSummary) int {
		return cmp.Or(
			cmp.Compare(a.Category, b.Category),
			cmp.Compare(a.Difficulty, b.Difficulty),
			cmp.Compare(a.Title, b.Title),
		)
	})
	return summaries
}

// LoadScript returns the script stored under id. The boolean is false when the
// identifier is unsafe, no document exists, or the document is malformed.
func (s *Store) LoadScript(id string) (*domain.Script, bool) {
	if !documentNamePattern.MatchString(id) {
		s.logger.Warn("Rejected script identifier", "script_id", id)
		return nil, false
	}

	for _, ext := range scriptExtensions {
		script, err := s.readScript(id + ext)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			s.logger.Error("Failed to load script", "script_id", id, "error", err)
			return nil, false
		}
		return script, true
	}

	s.logger.Warn("Script not found", "script_id", id)
	return nil, false
}

func (s *Store) readScript(name string) (*domain.Script, error) {
	data, err := fs.ReadFile(s.scripts, name)
	if err != nil {
		return nil, err
	}

	var script domain.Script
	switch path.Ext(name) {
	case ".json":
		err = json.Unmarshal(data, &script)
	default:
		err = yaml.Unmarshal(data, &script)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	if err := script.Validate(); err != nil {
		return nil, fmt.Errorf("validate %s: %w", name, err)
	}
	return &script, nil
}
