package changedetect

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"go.uber.org/zap"

	"github.com/wudi/specsync/internal/contract"
	"github.com/wudi/specsync/internal/metadata"
)

// Detector finds contract files and compares them against their last
// tracked revision.
type Detector struct {
	store    *metadata.Store
	specsDir string
	logger   *zap.Logger
}

// NewDetector creates a detector bound to a metadata store. specsDir is the
// canonical contracts directory name, relative to the project root.
func NewDetector(store *metadata.Store, specsDir string, logger *zap.Logger) *Detector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Detector{store: store, specsDir: specsDir, logger: logger}
}

// FindContracts discovers candidate contract documents. The canonical
// contracts directory wins; otherwise the project root is scanned for files
// that sniff as OpenAPI documents.
func (d *Detector) FindContracts() []string {
	var found []string

	specsDir := filepath.Join(d.store.Root(), d.specsDir)
	if entries, err := os.ReadDir(specsDir); err == nil {
		for _, e := range entries {
			if e.IsDir() || !hasContractExt(e.Name()) {
				continue
			}
			found = append(found, filepath.Join(specsDir, e.Name()))
		}
	}

	if len(found) == 0 {
		entries, err := os.ReadDir(d.store.Root())
		if err != nil {
			return nil
		}
		for _, e := range entries {
			if e.IsDir() || !hasContractExt(e.Name()) {
				continue
			}
			path := filepath.Join(d.store.Root(), e.Name())
			if contract.Sniff(path) {
				found = append(found, path)
			}
		}
	}

	sort.Strings(found)
	return found
}

func hasContractExt(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml", ".json":
		return true
	}
	return false
}

// DetectAll runs detection over every discovered contract and returns the
// analyses that contain changes, keyed by contract path.
func (d *Detector) DetectAll() map[string]*Analysis {
	changes := make(map[string]*Analysis)
	for _, path := range d.FindContracts() {
		analysis, err := d.Detect(path)
		if err != nil {
			d.logger.Warn("change detection failed",
				zap.String("contract", path),
				zap.Error(err),
			)
			continue
		}
		if analysis != nil && len(analysis.Changes) > 0 {
			changes[path] = analysis
		}
	}
	return changes
}

// Detect compares one contract against its tracked revision. It returns
// nil when the checksum is unchanged, and a single NEW-contract analysis
// when the path is not tracked yet. When either revision cannot be loaded
// the analysis degrades to a single conservative breaking change so that
// downstream planning still proceeds.
func (d *Detector) Detect(path string) (*Analysis, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("stat contract: %w", err)
	}

	specs, err := d.store.LoadTracking()
	if err != nil {
		return nil, err
	}

	tracked, ok := specs[path]
	if !ok {
		return newContractAnalysis(path), nil
	}

	current, err := d.store.Checksum(path)
	if err != nil {
		return nil, err
	}
	if current == tracked.Checksum {
		return nil, nil
	}

	oldDoc, err := d.loadCached(path)
	if err != nil {
		d.logger.Warn("falling back to conservative analysis",
			zap.String("contract", path),
			zap.Error(err),
		)
		return degradedAnalysis(path, err), nil
	}
	newDoc, err := contract.Load(path)
	if err != nil {
		d.logger.Warn("falling back to conservative analysis",
			zap.String("contract", path),
			zap.Error(err),
		)
		return degradedAnalysis(path, err), nil
	}

	return Diff(path, oldDoc, newDoc), nil
}

// UpdateTracking recomputes the checksum and version for a contract,
// stores its tracking record, and caches the document content for future
// diffs.
func (d *Detector) UpdateTracking(path string) error {
	checksum, err := d.store.Checksum(path)
	if err != nil {
		return err
	}

	version := "1.0.0"
	doc, loadErr := contract.Load(path)
	if loadErr == nil {
		if v := contract.DocVersion(doc); v != "" {
			version = v
		}
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat contract: %w", err)
	}

	meta := metadata.SpecMetadata{
		FilePath:        path,
		Checksum:        checksum,
		Version:         version,
		LastModified:    info.ModTime().UTC(),
		BreakingChanges: []string{},
	}
	if err := d.store.UpdateTracking(path, meta); err != nil {
		return err
	}

	if loadErr != nil {
		// Nothing to cache; the next diff will degrade conservatively.
		d.logger.Warn("tracked unparseable contract",
			zap.String("contract", path),
			zap.Error(loadErr),
		)
		return nil
	}
	return d.cacheContent(path, doc)
}

func (d *Detector) cachePath(specPath string) string {
	stem := strings.TrimSuffix(filepath.Base(specPath), filepath.Ext(specPath))
	return filepath.Join(d.store.CacheDir(), stem+".json")
}

func (d *Detector) cacheContent(specPath string, doc *openapi3.T) error {
	if err := os.MkdirAll(d.store.CacheDir(), 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	data, err := doc.MarshalJSON()
	if err != nil {
		return fmt.Errorf("marshal contract: %w", err)
	}
	if err := os.WriteFile(d.cachePath(specPath), data, 0o644); err != nil {
		return fmt.Errorf("write cache: %w", err)
	}
	return nil
}

// loadCached returns the last-synchronized content of a contract. When no
// cached copy exists the current file is loaded as a fallback.
func (d *Detector) loadCached(specPath string) (*openapi3.T, error) {
	data, err := os.ReadFile(d.cachePath(specPath))
	if err != nil {
		if os.IsNotExist(err) {
			return contract.Load(specPath)
		}
		return nil, fmt.Errorf("read cache: %w", err)
	}
	return contract.LoadFromData(data)
}

func newContractAnalysis(path string) *Analysis {
	name := filepath.Base(path)
	return &Analysis{
		SpecPath: path,
		Changes: []Change{{
			Kind:        KindNew,
			Path:        "",
			Description: fmt.Sprintf("New OpenAPI specification: %s", name),
			Breaking:    false,
		}},
		Breaking: false,
		Summary:  fmt.Sprintf("New specification added: %s", name),
	}
}

func degradedAnalysis(path string, cause error) *Analysis {
	return &Analysis{
		SpecPath: path,
		Changes: []Change{{
			Kind:        KindModified,
			Path:        "",
			Description: fmt.Sprintf("Unable to analyze changes: %v", cause),
			Breaking:    true,
		}},
		Breaking: true,
		Summary:  "Specification modified (unable to analyze specific changes)",
	}
}
