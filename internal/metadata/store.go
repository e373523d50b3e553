package metadata

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
)

// ErrAlreadyInitialized is returned when Initialize is called on a project
// that already has a config file.
var ErrAlreadyInitialized = errors.New("project already initialized")

const (
	configFile = "config.json"
	specsFile  = "specs.json"
)

// Store persists project configuration and contract tracking records under
// a dedicated state directory. It assumes exclusive access by one process;
// callers serialize concurrent invocations.
type Store struct {
	root string
	dir  string
}

// NewStore creates a store rooted at projectRoot with state kept in
// stateDir (relative to the root unless absolute).
func NewStore(projectRoot, stateDir string) *Store {
	dir := stateDir
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(projectRoot, stateDir)
	}
	return &Store{root: projectRoot, dir: dir}
}

// Root returns the project root directory.
func (s *Store) Root() string { return s.root }

// Dir returns the state directory.
func (s *Store) Dir() string { return s.dir }

// CacheDir returns the directory holding cached contract content.
func (s *Store) CacheDir() string { return filepath.Join(s.dir, "cache") }

// BackupDir returns the directory holding pre-sync artifact backups.
func (s *Store) BackupDir() string { return filepath.Join(s.dir, "backups") }

// Initialize creates the state directory and writes a fresh project
// config. It fails when the project is already initialized.
func (s *Store) Initialize(projectName, apiBaseURL string) (*ProjectConfig, error) {
	if _, err := os.Stat(filepath.Join(s.dir, configFile)); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyInitialized, s.dir)
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}

	if projectName == "" {
		projectName = filepath.Base(s.root)
	}

	cfg := &ProjectConfig{
		ProjectName: projectName,
		CreatedAt:   time.Now().UTC(),
		APIBaseURL:  apiBaseURL,
		AutoSync:    true,
	}
	if err := s.SaveConfig(cfg); err != nil {
		return nil, err
	}
	if err := s.SaveTracking(map[string]SpecMetadata{}); err != nil {
		return nil, err
	}
	if err := s.updateGitignore(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Status derives the project state from config presence and last sync.
func (s *Store) Status() Status {
	cfg, err := s.LoadConfig()
	if err != nil || cfg == nil {
		return StatusUninitialized
	}
	if cfg.LastSync != nil {
		return StatusSynced
	}
	return StatusInitialized
}

// LoadConfig returns the project config, or nil when uninitialized.
func (s *Store) LoadConfig() (*ProjectConfig, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, configFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg ProjectConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &cfg, nil
}

// SaveConfig writes the project config.
func (s *Store) SaveConfig(cfg *ProjectConfig) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.dir, configFile), data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// LoadTracking returns the full tracking mapping keyed by contract path.
// A missing specs file yields an empty mapping.
func (s *Store) LoadTracking() (map[string]SpecMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, specsFile))
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]SpecMetadata{}, nil
		}
		return nil, fmt.Errorf("read tracking: %w", err)
	}
	specs := map[string]SpecMetadata{}
	if err := json.Unmarshal(data, &specs); err != nil {
		return nil, fmt.Errorf("parse tracking: %w", err)
	}
	return specs, nil
}

// SaveTracking writes the full tracking mapping.
func (s *Store) SaveTracking(specs map[string]SpecMetadata) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	data, err := json.MarshalIndent(specs, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal tracking: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.dir, specsFile), data, 0o644); err != nil {
		return fmt.Errorf("write tracking: %w", err)
	}
	return nil
}

// UpdateTracking stores one record. The whole mapping is read, mutated in
// memory, and written back as a unit.
func (s *Store) UpdateTracking(path string, meta SpecMetadata) error {
	specs, err := s.LoadTracking()
	if err != nil {
		return err
	}
	specs[path] = meta
	return s.SaveTracking(specs)
}

// Checksum computes the content hash of a file. A missing file hashes to
// the empty string so that deletion shows up as a change.
func (s *Store) Checksum(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("checksum %s: %w", path, err)
	}
	return fmt.Sprintf("%016x", xxhash.Sum64(data)), nil
}

// HasChanged compares the current checksum of a contract against its
// tracked checksum. Untracked paths count as changed.
func (s *Store) HasChanged(path string) (bool, error) {
	current, err := s.Checksum(path)
	if err != nil {
		return false, err
	}
	specs, err := s.LoadTracking()
	if err != nil {
		return false, err
	}
	meta, ok := specs[path]
	if !ok {
		return true, nil
	}
	return meta.Checksum != current, nil
}

// UpdateLastSync stamps the config with the current time.
func (s *Store) UpdateLastSync() error {
	cfg, err := s.LoadConfig()
	if err != nil {
		return err
	}
	if cfg == nil {
		return nil
	}
	now := time.Now().UTC()
	cfg.LastSync = &now
	return s.SaveConfig(cfg)
}

// updateGitignore appends ignore patterns for generated and cached state
// on first initialization.
func (s *Store) updateGitignore() error {
	marker := "# specsync generated files"
	stateName := filepath.Base(s.dir)
	entries := []string{
		marker,
		stateName + "/generated/",
		stateName + "/cache/",
		stateName + "/backups/",
		stateName + "/*.log",
		"",
	}

	path := filepath.Join(s.root, ".gitignore")
	existing, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("read gitignore: %w", err)
	}
	if strings.Contains(string(existing), marker) {
		return nil
	}

	block := strings.Join(entries, "\n")
	if len(existing) > 0 {
		block = string(existing) + "\n" + block
	}
	if err := os.WriteFile(path, []byte(block), 0o644); err != nil {
		return fmt.Errorf("write gitignore: %w", err)
	}
	return nil
}
