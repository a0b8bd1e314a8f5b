package modspec

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"starsound/internal/services"
	"starsound/internal/textutil"
)

// Envelope wraps a plan on disk with the metadata the list view needs
// without decoding the whole document.
type Envelope struct {
	ModName string    `json:"modName"`
	SavedAt time.Time `json:"savedAt"`
	Plan    Plan      `json:"plan"`
}

// Store persists plans as JSON files under a single directory, one file per
// mod name.
type Store struct {
	dir string
}

// NewStore returns a store rooted at dir. The directory is created on
// first save.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the directory plans are stored in.
func (s *Store) Dir() string { return s.dir }

// Path returns the file a plan with the given mod name saves to.
func (s *Store) Path(modName string) string {
	return filepath.Join(s.dir, textutil.SanitizeToken(modName)+".json")
}

// Save writes the plan to the store, stamping the envelope with the current
// time. An existing file for the same mod name is replaced.
func (s *Store) Save(plan Plan) (string, error) {
	if strings.TrimSpace(plan.ModName) == "" {
		return "", services.Wrap(services.ErrValidation, "modspec", "save", "plan has no mod name", nil)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", services.Wrap(services.ErrTransient, "modspec", "save", "create plans directory", err)
	}
	env := Envelope{ModName: plan.ModName, SavedAt: time.Now().UTC(), Plan: plan}
	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "modspec", "save", plan.ModName, err)
	}
	path := s.Path(plan.ModName)
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return "", services.Wrap(services.ErrTransient, "modspec", "save", path, err)
	}
	return path, nil
}

// Load reads a saved plan by mod name.
func (s *Store) Load(modName string) (Envelope, error) {
	return LoadFile(s.Path(modName))
}

// Delete removes a saved plan. Deleting a plan that does not exist reports
// ErrNotFound so the CLI can tell the user the name was wrong.
func (s *Store) Delete(modName string) error {
	path := s.Path(modName)
	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return services.Wrap(services.ErrNotFound, "modspec", "delete", path, nil)
		}
		return services.Wrap(services.ErrTransient, "modspec", "delete", path, err)
	}
	return nil
}

// List returns every saved plan envelope sorted by mod name. Files that do
// not decode are skipped and reported as warnings.
func (s *Store) List() ([]Envelope, []string, error) {
	dirents, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, nil
		}
		return nil, nil, services.Wrap(services.ErrTransient, "modspec", "list", s.dir, err)
	}
	var envelopes []Envelope
	var warnings []string
	for _, ent := range dirents {
		if ent.IsDir() || !strings.HasSuffix(ent.Name(), ".json") {
			continue
		}
		env, err := LoadFile(filepath.Join(s.dir, ent.Name()))
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("%s: %v", ent.Name(), err))
			continue
		}
		envelopes = append(envelopes, env)
	}
	sort.Slice(envelopes, func(i, j int) bool {
		if envelopes[i].ModName == envelopes[j].ModName {
			return envelopes[i].SavedAt.Before(envelopes[j].SavedAt)
		}
		return envelopes[i].ModName < envelopes[j].ModName
	})
	return envelopes, warnings, nil
}

// LoadFile reads a plan document from an arbitrary path. Both the envelope
// shape written by Save and a bare plan object are accepted, so hand-written
// plans do not need the wrapper.
func LoadFile(path string) (Envelope, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Envelope{}, services.Wrap(services.ErrNotFound, "modspec", "load", path, nil)
		}
		return Envelope{}, services.Wrap(services.ErrTransient, "modspec", "load", path, err)
	}
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, services.Wrap(services.ErrValidation, "modspec", "load", path, err)
	}
	if env.Plan.ModName == "" && len(env.Plan.Biomes) == 0 {
		var plan Plan
		if err := json.Unmarshal(data, &plan); err == nil && (plan.ModName != "" || len(plan.Biomes) > 0) {
			env.Plan = plan
		}
	}
	if env.ModName == "" {
		env.ModName = env.Plan.ModName
	}
	if env.Plan.ModName == "" {
		env.Plan.ModName = env.ModName
	}
	return env, nil
}
