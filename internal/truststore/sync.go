package truststore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	syncerrors "github.com/cacertsync/cacertsync/internal/errors"
)

// Default locations. These match the Debian ca-certificates layout; they
// are fields on Syncer so tests can point them at temp directories.
const (
	// DefaultStorePath is the system-level Java trust store maintained
	// by cacertsync. Every synced JVM's cacerts symlinks here.
	DefaultStorePath = "/etc/ssl/certs/java/cacerts"

	// DefaultStorePass is the conventional cacerts password.
	DefaultStorePass = "changeit"

	// bridgePackage wires OS certificates into Java-readable form on
	// Debian-based systems.
	bridgePackage = "ca-certificates-java"
)

// DefaultSourceDirs are the OS certificate directories scanned for
// .crt/.pem files during a sync.
var DefaultSourceDirs = []string{
	"/usr/local/share/ca-certificates",
	"/usr/share/ca-certificates",
}

// Syncer rebuilds the system Java trust store from OS certificates and
// wires a JVM's cacerts to it.
type Syncer struct {
	StorePath    string      // System trust store location
	StorePass    string      // Keystore password
	SourceDirs   []string    // OS certificate source directories
	TargetFormat StoreFormat // On-disk format the store is converted to

	Java *JavaInstall

	fs     FileSystem
	runner Runner
}

// NewSyncer creates a Syncer for the given Java installation with the
// default system paths.
func NewSyncer(java *JavaInstall) *Syncer {
	return &Syncer{
		StorePath:    DefaultStorePath,
		StorePass:    DefaultStorePass,
		SourceDirs:   append([]string(nil), DefaultSourceDirs...),
		TargetFormat: FormatJKS,
		Java:         java,
		fs:           &OSFileSystem{},
		runner:       &ExecRunner{},
	}
}

// NewSyncerWith creates a Syncer with explicit FileSystem and Runner
// implementations. Tests use it to avoid touching system paths or
// spawning keytool.
func NewSyncerWith(java *JavaInstall, fsys FileSystem, runner Runner) *Syncer {
	s := NewSyncer(java)
	s.fs = fsys
	s.runner = runner
	return s
}

// FS returns the FileSystem the syncer operates through, so read-only
// callers inspect the same view of the world the syncer writes to.
func (s *Syncer) FS() FileSystem {
	return s.fs
}

// Report summarizes a sync run.
type Report struct {
	Imported      int         // Certificates imported into the store
	Skipped       int         // Source files that failed to import
	Entries       int         // Trusted-certificate entries after sync
	Format        StoreFormat // Final on-disk format
	Converted     bool        // Whether a format conversion ran
	BackupCreated bool        // Whether the original cacerts was backed up this run
	Warnings      []string    // Non-fatal conditions
}

func (r *Report) warnf(format string, args ...interface{}) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// Sync rebuilds the system trust store from the OS certificate
// directories, converts it to the target format, replaces the JVM's
// cacerts with a symlink to it, and verifies the result.
//
// Per-certificate import failures are recorded as warnings and skipped;
// any other failure aborts the run. A run that fails midway can leave the
// store partially rebuilt.
func (s *Syncer) Sync(ctx context.Context) (*Report, error) {
	// The lock file lives beside the store, so the directory must exist
	// before the lock can be taken.
	storeDir := filepath.Dir(s.StorePath)
	if err := s.fs.MkdirAll(storeDir, 0755); err != nil {
		return nil, &syncerrors.SyncError{Op: "create store directory", Path: storeDir, Err: err}
	}

	lock := NewFileLock(s.StorePath)
	if err := lock.Lock(ctx); err != nil {
		return nil, &syncerrors.SyncError{Op: "lock trust store", Path: s.StorePath, Err: err}
	}
	defer func() { _ = lock.Unlock() }()

	report := &Report{}

	if err := s.ensureBridgePackage(ctx, report); err != nil {
		return report, err
	}

	if err := s.rebuildStore(ctx, report); err != nil {
		return report, err
	}

	if err := s.convertFormat(ctx, report); err != nil {
		return report, err
	}

	if err := s.fixOwnership(report); err != nil {
		return report, err
	}

	if err := s.linkRuntime(report); err != nil {
		return report, err
	}

	if err := s.verify(report); err != nil {
		return report, err
	}

	if err := s.recordSync(report); err != nil {
		return report, err
	}

	return report, nil
}

// ensureBridgePackage installs ca-certificates-java when the host uses
// dpkg and the package is missing. Hosts without dpkg only get a warning.
func (s *Syncer) ensureBridgePackage(ctx context.Context, report *Report) error {
	if _, err := s.runner.LookPath("dpkg"); err != nil {
		report.warnf("dpkg not found; skipping %s installation", bridgePackage)
		return nil
	}

	if _, err := s.runner.Run(ctx, "dpkg", "-s", bridgePackage); err == nil {
		return nil // already installed
	}

	out, err := s.runner.Run(ctx, "apt-get", "install", "-y", bridgePackage)
	if err != nil {
		return &syncerrors.SyncError{
			Op:  "install " + bridgePackage,
			Err: cmdError("apt-get install", out, err),
		}
	}
	return nil
}

// rebuildStore deletes the system store and recreates it from scratch,
// importing every certificate file found under the source directories.
func (s *Syncer) rebuildStore(ctx context.Context, report *Report) error {
	// Deletion precedes rebuild so the store is never partially written
	// in place.
	if err := s.fs.Remove(s.StorePath); err != nil && !os.IsNotExist(err) {
		return &syncerrors.SyncError{Op: "remove old trust store", Path: s.StorePath, Err: err}
	}

	keytool := NewKeytool(s.Java.KeytoolPath, s.StorePass, s.runner)
	if err := keytool.CreateKeystore(ctx, s.StorePath); err != nil {
		return &syncerrors.SyncError{Op: "create trust store", Path: s.StorePath, Err: err}
	}

	for _, dir := range s.SourceDirs {
		files, err := s.collectCertFiles(ctx, dir)
		if err != nil {
			return err
		}
		for _, file := range files {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			alias := certAlias(dir, file)
			if err := keytool.ImportCert(ctx, s.StorePath, alias, file); err != nil {
				report.Skipped++
				report.warnf("skipping %s: %v", file, err)
				continue
			}
			report.Imported++
		}
	}

	return nil
}

// collectCertFiles walks dir recursively and returns every readable
// .crt/.pem file. A missing source directory is not an error.
func (s *Syncer) collectCertFiles(ctx context.Context, dir string) ([]string, error) {
	entries, err := s.fs.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, &syncerrors.SyncError{Op: "read certificate directory", Path: dir, Err: err}
	}

	var files []string
	for _, entry := range entries {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		path := filepath.Join(dir, entry.Name())
		if entry.IsDir() {
			sub, err := s.collectCertFiles(ctx, path)
			if err != nil {
				return nil, err
			}
			files = append(files, sub...)
			continue
		}

		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".crt" && ext != ".pem" {
			continue
		}

		files = append(files, path)
	}

	return files, nil
}

// certAlias derives a keystore alias from a certificate file path: the
// path relative to its source directory, extension stripped, lowercased.
func certAlias(sourceDir, certPath string) string {
	rel, err := filepath.Rel(sourceDir, certPath)
	if err != nil {
		rel = filepath.Base(certPath)
	}
	rel = strings.TrimSuffix(rel, filepath.Ext(rel))
	rel = filepath.ToSlash(rel)
	return strings.ToLower(rel)
}

// convertFormat converts the store to the target on-disk format when the
// formats differ. keytool from JDK 9 onwards writes PKCS#12 by default,
// while JKS stays readable by every runtime generation. The converted
// store replaces the original via atomic rename.
func (s *Syncer) convertFormat(ctx context.Context, report *Report) error {
	data, err := s.fs.ReadFile(s.StorePath)
	if err != nil {
		return &syncerrors.SyncError{Op: "read trust store", Path: s.StorePath, Err: err}
	}

	format := DetectFormat(data)
	report.Format = format

	if format == s.TargetFormat || s.TargetFormat != FormatJKS {
		return nil
	}
	if format == FormatUnknown {
		return &syncerrors.SyncError{
			Op:   "detect store format",
			Path: s.StorePath,
			Err:  syncerrors.ErrUnknownFormat,
		}
	}

	tempPath := s.StorePath + ".tmp"
	// keytool refuses to write into an existing destination keystore.
	if err := s.fs.Remove(tempPath); err != nil && !os.IsNotExist(err) {
		return &syncerrors.SyncError{Op: "remove temp store", Path: tempPath, Err: err}
	}

	keytool := NewKeytool(s.Java.KeytoolPath, s.StorePass, s.runner)
	if err := keytool.ConvertToJKS(ctx, s.StorePath, tempPath); err != nil {
		return &syncerrors.SyncError{Op: "convert trust store", Path: s.StorePath, Err: err}
	}

	if err := s.fs.Rename(tempPath, s.StorePath); err != nil {
		_ = s.fs.Remove(tempPath)
		return &syncerrors.SyncError{Op: "replace trust store", Path: s.StorePath, Err: err}
	}

	report.Format = s.TargetFormat
	report.Converted = true
	return nil
}

// fixOwnership normalizes store permissions. Ownership is only changed
// when running as root; otherwise it is left as-is.
func (s *Syncer) fixOwnership(report *Report) error {
	if err := s.fs.Chmod(s.StorePath, 0644); err != nil {
		return &syncerrors.SyncError{Op: "chmod trust store", Path: s.StorePath, Err: err}
	}

	if os.Geteuid() == 0 {
		if err := s.fs.Chown(s.StorePath, 0, 0); err != nil {
			report.warnf("chown %s: %v", s.StorePath, err)
		}
	}

	return nil
}

// linkRuntime backs up the JVM's original cacerts (first run only) and
// replaces the path with a symlink to the system store.
func (s *Syncer) linkRuntime(report *Report) error {
	cacerts := s.Java.CacertsPath
	backup := s.Java.BackupPath()

	info, err := s.fs.Lstat(cacerts)
	switch {
	case err != nil && !os.IsNotExist(err):
		return &syncerrors.SyncError{Op: "inspect cacerts", Path: cacerts, Err: err}
	case err == nil && info.Mode()&os.ModeSymlink == 0:
		// A regular cacerts file. Take a backup only if none exists yet,
		// so repeated runs cannot lose the true original.
		if !pathExists(s.fs, backup) {
			if err := s.copyFile(cacerts, backup, 0644); err != nil {
				return &syncerrors.SyncError{Op: "back up cacerts", Path: backup, Err: err}
			}
			report.BackupCreated = true
		}
	}

	if err := s.fs.Remove(cacerts); err != nil && !os.IsNotExist(err) {
		return &syncerrors.SyncError{Op: "remove cacerts", Path: cacerts, Err: err}
	}

	if err := s.fs.Symlink(s.StorePath, cacerts); err != nil {
		return &syncerrors.SyncError{Op: "symlink cacerts", Path: cacerts, Err: err}
	}

	return nil
}

// verify counts trusted-certificate entries in the final store. Zero
// entries is a warning, never a failure.
func (s *Syncer) verify(report *Report) error {
	data, err := s.fs.ReadFile(s.StorePath)
	if err != nil {
		return &syncerrors.SyncError{Op: "read trust store", Path: s.StorePath, Err: err}
	}

	entries, format, err := CountEntries(data, s.StorePass)
	if err != nil {
		return err
	}

	report.Entries = entries
	report.Format = format
	if entries == 0 {
		report.warnf("trust store %s contains no certificates", s.StorePath)
	}

	return nil
}

// recordSync writes the sync metadata file beside the system store.
func (s *Syncer) recordSync(report *Report) error {
	data, err := s.fs.ReadFile(s.StorePath)
	if err != nil {
		return &syncerrors.SyncError{Op: "read trust store", Path: s.StorePath, Err: err}
	}

	md := NewMetadata()
	md.LastSync = SyncInfo{
		Completed: time.Now(),
		Imported:  report.Imported,
		Skipped:   report.Skipped,
		Entries:   report.Entries,
		SHA256:    ComputeSHA256(data),
		Format:    string(report.Format),
		Sources:   append([]string(nil), s.SourceDirs...),
	}

	backup := s.Java.BackupPath()
	if backupData, err := s.fs.ReadFile(backup); err == nil {
		info := BackupInfo{
			Path:   backup,
			SHA256: ComputeSHA256(backupData),
		}
		if stat, err := s.fs.Stat(backup); err == nil {
			info.Created = stat.ModTime()
		}
		md.Backup = info
	}

	return s.writeMetadata(md)
}

// Restore copies the saved backup over the JVM's cacerts path, undoing a
// previous sync. The backup itself is retained. It fails without touching
// the filesystem when no backup exists.
func (s *Syncer) Restore(ctx context.Context) error {
	backup := s.Java.BackupPath()

	if !pathExists(s.fs, backup) {
		return &syncerrors.SyncError{
			Op:   "restore cacerts",
			Path: backup,
			Err:  syncerrors.ErrNoBackup,
		}
	}

	storeDir := filepath.Dir(s.StorePath)
	if err := s.fs.MkdirAll(storeDir, 0755); err != nil {
		return &syncerrors.SyncError{Op: "create store directory", Path: storeDir, Err: err}
	}

	lock := NewFileLock(s.StorePath)
	if err := lock.Lock(ctx); err != nil {
		return &syncerrors.SyncError{Op: "lock trust store", Path: s.StorePath, Err: err}
	}
	defer func() { _ = lock.Unlock() }()

	cacerts := s.Java.CacertsPath
	if err := s.fs.Remove(cacerts); err != nil && !os.IsNotExist(err) {
		return &syncerrors.SyncError{Op: "remove cacerts symlink", Path: cacerts, Err: err}
	}

	if err := s.copyFile(backup, cacerts, 0644); err != nil {
		return &syncerrors.SyncError{Op: "restore cacerts", Path: cacerts, Err: err}
	}

	return nil
}

// copyFile copies src to dst byte-for-byte through a temp file and an
// atomic rename.
func (s *Syncer) copyFile(src, dst string, perm os.FileMode) error {
	data, err := s.fs.ReadFile(src)
	if err != nil {
		return err
	}

	tempPath := dst + ".tmp"
	if err := s.fs.WriteFile(tempPath, data, perm); err != nil {
		return err
	}

	if err := s.fs.Rename(tempPath, dst); err != nil {
		_ = s.fs.Remove(tempPath)
		return err
	}

	return nil
}
