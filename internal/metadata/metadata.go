// Package metadata owns the persisted project state: the project config
// and the per-contract tracking records. Every other component reads and
// writes tracked state through a Store handle.
package metadata

import "time"

// Status describes project initialization state.
type Status string

const (
	StatusUninitialized Status = "uninitialized"
	StatusInitialized   Status = "initialized"
	StatusSynced        Status = "synced"
)

// SpecMetadata is the tracking record for a single contract file.
type SpecMetadata struct {
	FilePath           string    `json:"file_path"`
	Checksum           string    `json:"checksum"`
	Version            string    `json:"version"`
	LastModified       time.Time `json:"last_modified"`
	BreakingChanges    []string  `json:"breaking_changes"`
	ImplementationPath string    `json:"implementation_path,omitempty"`
}

// ProjectConfig is the per-project configuration record.
type ProjectConfig struct {
	ProjectName string     `json:"project_name"`
	CreatedAt   time.Time  `json:"created_at"`
	LastSync    *time.Time `json:"last_sync,omitempty"`
	APIBaseURL  string     `json:"api_base_url,omitempty"`
	AutoSync    bool       `json:"auto_sync"`
}
