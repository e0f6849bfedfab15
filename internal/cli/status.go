package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	syncerrors "github.com/cacertsync/cacertsync/internal/errors"
	"github.com/cacertsync/cacertsync/internal/truststore"
)

var statusJSON bool

// statusCmd represents the status command.
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Display trust store sync status",
	Long: `Display the state of the Java trust store synchronization without
making any changes.

Shows:
  - Detected Java installation and its cacerts path
  - Whether cacerts is symlinked into the system trust store
  - System trust store format and certificate count
  - Backup presence
  - Last sync details

Examples:
  cacertsync status
  cacertsync status --json`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Output in JSON format")
}

// StatusOutput represents the structured output of the status command.
type StatusOutput struct {
	JavaHome    string          `json:"java_home"`
	CacertsPath string          `json:"cacerts_path"`
	StorePath   string          `json:"store_path"`
	Linked      bool            `json:"linked"`
	Store       StoreStatus     `json:"store"`
	Backup      BackupStatus    `json:"backup"`
	LastSync    *LastSyncStatus `json:"last_sync,omitempty"`
}

// StoreStatus describes the system trust store file.
type StoreStatus struct {
	Exists    bool   `json:"exists"`
	Format    string `json:"format,omitempty"`
	CertCount int    `json:"cert_count"`
	SizeBytes int64  `json:"size_bytes,omitempty"`
}

// BackupStatus describes the saved original cacerts.
type BackupStatus struct {
	Exists bool   `json:"exists"`
	Path   string `json:"path"`
}

// LastSyncStatus mirrors the recorded sync metadata.
type LastSyncStatus struct {
	Completed time.Time `json:"completed"`
	Imported  int       `json:"imported"`
	Skipped   int       `json:"skipped"`
	Entries   int       `json:"entries"`
	SHA256    string    `json:"sha256"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	syncer := newSyncerOrExit()

	status := gatherStatus(syncer)

	if statusJSON {
		if err := JSON(status); err != nil {
			Error("Failed to encode JSON: %v", err)
			os.Exit(syncerrors.ExitGeneralError)
		}
	} else {
		printStatusHuman(status)
	}

	return nil
}

// gatherStatus collects sync state for the given syncer.
func gatherStatus(syncer *truststore.Syncer) StatusOutput {
	fsys := syncer.FS()
	status := StatusOutput{
		JavaHome:    syncer.Java.Home,
		CacertsPath: syncer.Java.CacertsPath,
		StorePath:   syncer.StorePath,
	}

	status.Backup.Path = syncer.Java.BackupPath()
	if _, err := fsys.Lstat(status.Backup.Path); err == nil {
		status.Backup.Exists = true
	}

	// cacerts counts as linked when it is a symlink resolving to the
	// system store.
	if target, err := fsys.Readlink(syncer.Java.CacertsPath); err == nil {
		status.Linked = target == syncer.StorePath
	}

	if data, err := fsys.ReadFile(syncer.StorePath); err == nil {
		status.Store.Exists = true
		status.Store.SizeBytes = int64(len(data))
		if count, format, err := truststore.CountEntries(data, syncer.StorePass); err == nil {
			status.Store.CertCount = count
			status.Store.Format = string(format)
		}
	}

	if md, err := syncer.ReadMetadata(); err == nil {
		status.LastSync = &LastSyncStatus{
			Completed: md.LastSync.Completed,
			Imported:  md.LastSync.Imported,
			Skipped:   md.LastSync.Skipped,
			Entries:   md.LastSync.Entries,
			SHA256:    md.LastSync.SHA256,
		}
	}

	return status
}

func printStatusHuman(status StatusOutput) {
	Header("Java Trust Store Status")

	Field("Java home", status.JavaHome)
	Field("cacerts", status.CacertsPath)
	Field("System store", status.StorePath)

	if status.Linked {
		Field("Linked", StatusIcon("ok")+" yes")
	} else {
		Field("Linked", StatusIcon("warn")+" no (run 'cacertsync' to sync)")
	}

	EmptyLine()
	Subheader("System store")
	if status.Store.Exists {
		Field("Format", status.Store.Format)
		Field("Certificates", fmt.Sprintf("%d", status.Store.CertCount))
	} else {
		Field("Exists", "no")
	}

	EmptyLine()
	Subheader("Backup")
	if status.Backup.Exists {
		Field("Path", status.Backup.Path)
	} else {
		Field("Exists", "no")
	}

	if status.LastSync != nil {
		EmptyLine()
		Subheader("Last sync")
		Field("Completed", status.LastSync.Completed.Format(time.RFC3339))
		Field("Imported", fmt.Sprintf("%d", status.LastSync.Imported))
		if status.LastSync.Skipped > 0 {
			Field("Skipped", fmt.Sprintf("%d", status.LastSync.Skipped))
		}
	}
}
