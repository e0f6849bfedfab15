package truststore

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"path/filepath"
	"time"

	syncerrors "github.com/cacertsync/cacertsync/internal/errors"
)

// Metadata records the outcome of the last sync run. It lives beside the
// system trust store and is what the status and check commands read.
type Metadata struct {
	Version  string     `json:"version"`
	LastSync SyncInfo   `json:"last_sync"`
	Backup   BackupInfo `json:"backup,omitempty"`
}

// SyncInfo describes the state of the system trust store after a sync.
type SyncInfo struct {
	Completed time.Time `json:"completed"`
	Imported  int       `json:"imported"`
	Skipped   int       `json:"skipped,omitempty"`
	Entries   int       `json:"entries"`
	SHA256    string    `json:"sha256"`
	Format    string    `json:"format"`
	Sources   []string  `json:"sources,omitempty"`
}

// BackupInfo describes the saved copy of the original per-JVM cacerts.
type BackupInfo struct {
	Path    string    `json:"path,omitempty"`
	Created time.Time `json:"created,omitzero"`
	SHA256  string    `json:"sha256,omitempty"`
}

// currentSchemaVersion is the current metadata schema version.
const currentSchemaVersion = "1"

// metadataFilename is the metadata file kept beside the system store.
const metadataFilename = ".cacertsync.json"

// NewMetadata creates a new metadata instance with default values.
func NewMetadata() *Metadata {
	return &Metadata{Version: currentSchemaVersion}
}

// MetadataPath returns the path of the sync metadata file for the
// configured system trust store.
func (s *Syncer) MetadataPath() string {
	return filepath.Join(filepath.Dir(s.StorePath), metadataFilename)
}

// ReadMetadata reads and parses the sync metadata file.
func (s *Syncer) ReadMetadata() (*Metadata, error) {
	data, err := s.fs.ReadFile(s.MetadataPath())
	if err != nil {
		return nil, &syncerrors.SyncError{
			Op:   "read metadata",
			Path: s.MetadataPath(),
			Err:  err,
		}
	}

	var m Metadata
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, &syncerrors.SyncError{
			Op:   "parse metadata",
			Path: s.MetadataPath(),
			Err:  err,
		}
	}

	return &m, nil
}

// writeMetadata writes the metadata file using atomic rename.
func (s *Syncer) writeMetadata(m *Metadata) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return &syncerrors.SyncError{
			Op:  "marshal metadata",
			Err: err,
		}
	}

	tempPath := s.MetadataPath() + ".tmp"
	if err := s.fs.WriteFile(tempPath, data, 0644); err != nil {
		return &syncerrors.SyncError{
			Op:   "write temp metadata",
			Path: tempPath,
			Err:  err,
		}
	}

	// Atomic rename (os.Rename is atomic on POSIX systems)
	if err := s.fs.Rename(tempPath, s.MetadataPath()); err != nil {
		_ = s.fs.Remove(tempPath)
		return &syncerrors.SyncError{
			Op:   "rename metadata",
			Path: s.MetadataPath(),
			Err:  err,
		}
	}

	return nil
}

// ComputeSHA256 computes the SHA256 hash of the given data.
func ComputeSHA256(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}
