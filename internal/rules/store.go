// Package rules implements the layered rule document that drives IGU
// generation: system defaults, project overrides, and user preferences are
// deep-merged, with runtime overrides on top. The generation core never sees
// the raw nested maps; it consumes the typed RuleSet built by Resolve.
package rules

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Source file names inside the config directory, lowest precedence first.
const (
	SystemFile  = "system_defaults.yaml"
	ProjectFile = "project_config.yaml"
	UserFile    = "user_preferences.yaml"
)

// Store holds the layered rule document. All layers are optional; the
// generator runs on built-in defaults with zero configuration present.
// Updates land in the user layer and are persisted by Save.
type Store struct {
	dir string
	log *zap.SugaredLogger

	system  map[string]any
	project map[string]any
	user    map[string]any
	runtime map[string]any

	dirty bool
}

// Open loads all layers from dir. Missing files are not errors; malformed
// YAML is.
func Open(dir string, log *zap.SugaredLogger) (*Store, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	s := &Store{dir: dir, log: log, runtime: map[string]any{}}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload re-reads all layered sources from disk. Unsaved Set edits are
// discarded with the stale user layer and the dirty flag is cleared; runtime
// overrides survive.
func (s *Store) Reload() error {
	var err error
	if s.system, err = loadLayer(filepath.Join(s.dir, SystemFile)); err != nil {
		return err
	}
	if s.project, err = loadLayer(filepath.Join(s.dir, ProjectFile)); err != nil {
		return err
	}
	if s.user, err = loadLayer(filepath.Join(s.dir, UserFile)); err != nil {
		return err
	}
	s.dirty = false
	s.log.Debugw("rule layers loaded", "dir", s.dir)
	return nil
}

func loadLayer(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]any{}, nil
		}
		return nil, fmt.Errorf("read rule layer %s: %w", path, err)
	}
	doc := map[string]any{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse rule layer %s: %w", path, err)
	}
	return doc, nil
}

// merge recursively overlays src onto dst. Nested maps merge key-wise;
// everything else is replaced by the later layer.
func merge(dst, src map[string]any) map[string]any {
	out := make(map[string]any, len(dst)+len(src))
	for k, v := range dst {
		out[k] = v
	}
	for k, v := range src {
		if sub, ok := v.(map[string]any); ok {
			if cur, ok := out[k].(map[string]any); ok {
				out[k] = merge(cur, sub)
				continue
			}
		}
		out[k] = v
	}
	return out
}

// Merged returns the fully merged document, later layers winning per key.
func (s *Store) Merged() map[string]any {
	m := merge(s.system, s.project)
	m = merge(m, s.user)
	return merge(m, s.runtime)
}

// Get resolves a dotted path through the merged document, returning def when
// any segment is missing. Missing configuration is never an error.
func (s *Store) Get(path string, def any) any {
	cur := any(s.Merged())
	for _, key := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return def
		}
		cur, ok = m[key]
		if !ok {
			return def
		}
	}
	return cur
}

// GetFloat resolves a numeric value at path, tolerating the int/float
// ambiguity of YAML scalars.
func (s *Store) GetFloat(path string, def float64) float64 {
	switch v := s.Get(path, nil).(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return def
	}
}

// GetInt resolves an integer value at path.
func (s *Store) GetInt(path string, def int) int {
	switch v := s.Get(path, nil).(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return def
	}
}

// GetBool resolves a boolean value at path.
func (s *Store) GetBool(path string, def bool) bool {
	if v, ok := s.Get(path, nil).(bool); ok {
		return v
	}
	return def
}

// GetString resolves a string value at path.
func (s *Store) GetString(path string, def string) string {
	if v, ok := s.Get(path, nil).(string); ok {
		return v
	}
	return def
}

// Set writes value at a dotted path in the user layer, creating intermediate
// maps as needed, and marks the store dirty. The change is not persisted
// until Save.
func (s *Store) Set(path string, value any) {
	if s.user == nil {
		s.user = map[string]any{}
	}
	setPath(s.user, path, value)
	s.dirty = true
	s.log.Infow("rule updated", "path", path, "value", value)
}

// SetRuntime writes a runtime-only override that is never persisted.
func (s *Store) SetRuntime(path string, value any) {
	setPath(s.runtime, path, value)
}

// ClearRuntime drops all runtime overrides.
func (s *Store) ClearRuntime() {
	s.runtime = map[string]any{}
}

func setPath(doc map[string]any, path string, value any) {
	keys := strings.Split(path, ".")
	cur := doc
	for _, key := range keys[:len(keys)-1] {
		next, ok := cur[key].(map[string]any)
		if !ok {
			next = map[string]any{}
			cur[key] = next
		}
		cur = next
	}
	cur[keys[len(keys)-1]] = value
}

// Dirty reports whether unsaved Set calls exist.
func (s *Store) Dirty() bool { return s.dirty }

// Save persists the user layer. The previous file is copied to a .backup
// first, and a timestamped audit entry is appended to modification_history.
// The in-memory document stays valid whether or not the write succeeds.
func (s *Store) Save() error {
	path := filepath.Join(s.dir, UserFile)
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	if prev, err := os.ReadFile(path); err == nil {
		if err := os.WriteFile(path+".backup", prev, 0644); err != nil {
			return fmt.Errorf("write rule backup: %w", err)
		}
	}

	history, _ := s.user["modification_history"].([]any)
	history = append(history, map[string]any{
		"id":          uuid.New().String()[:8],
		"date":        time.Now().UTC().Format(time.RFC3339),
		"description": "rule document updated",
	})
	s.user["modification_history"] = history

	data, err := yaml.Marshal(s.user)
	if err != nil {
		return fmt.Errorf("marshal rule document: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write rule document: %w", err)
	}
	s.dirty = false
	s.log.Infow("rule document saved", "path", path)
	return nil
}
