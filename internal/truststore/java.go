package truststore

import (
	"path/filepath"

	syncerrors "github.com/cacertsync/cacertsync/internal/errors"
)

// JavaInstall describes a detected Java installation.
type JavaInstall struct {
	Home        string // Installation root (JAVA_HOME)
	CacertsPath string // Path to the runtime's cacerts trust store
	KeytoolPath string // Path to the keytool binary
}

// BackupPath returns the path where the original cacerts file is saved
// before it is replaced by a symlink.
func (j *JavaInstall) BackupPath() string {
	return j.CacertsPath + ".backup"
}

// ResolveSymlinks is the function used to resolve the real path of the
// java executable. It is a var so tests can replace it.
var ResolveSymlinks = filepath.EvalSymlinks

// DetectJava locates a Java installation. If javaHome is non-empty it is
// used directly (the JAVA_HOME convention); otherwise the java executable
// is resolved on PATH and its real path's grandparent directory is taken
// as the installation root.
//
// The returned installation is validated: the home must contain an
// executable bin/java and a bin/keytool. Detection fails before any
// filesystem mutation occurs.
func DetectJava(fsys FileSystem, runner Runner, javaHome string) (*JavaInstall, error) {
	if javaHome == "" {
		javaPath, err := runner.LookPath("java")
		if err != nil {
			return nil, &syncerrors.SyncError{
				Op:  "detect java",
				Err: syncerrors.ErrNoJava,
			}
		}

		// java on PATH is usually a chain of symlinks
		// (e.g. /usr/bin/java -> /etc/alternatives/java -> $JAVA_HOME/bin/java).
		resolved, err := ResolveSymlinks(javaPath)
		if err != nil {
			return nil, &syncerrors.SyncError{
				Op:   "resolve java executable",
				Path: javaPath,
				Err:  err,
			}
		}

		// Grandparent of .../bin/java is the installation root.
		javaHome = filepath.Dir(filepath.Dir(resolved))
	}

	install := &JavaInstall{Home: javaHome}

	// The home must hold an executable runtime.
	javaBin := filepath.Join(javaHome, "bin", "java")
	info, err := fsys.Stat(javaBin)
	if err != nil || info.IsDir() || info.Mode().Perm()&0111 == 0 {
		return nil, &syncerrors.SyncError{
			Op:   "validate java home",
			Path: javaHome,
			Err:  syncerrors.ErrInvalidJavaHome,
		}
	}

	keytool := filepath.Join(javaHome, "bin", "keytool")
	if _, err := fsys.Stat(keytool); err != nil {
		return nil, &syncerrors.SyncError{
			Op:   "locate keytool",
			Path: keytool,
			Err:  syncerrors.ErrNoKeytool,
		}
	}
	install.KeytoolPath = keytool

	// Modern JDK layout first, then the pre-9 jre/ layout. When both
	// exist the jre path is the one the runtime actually reads.
	install.CacertsPath = filepath.Join(javaHome, "lib", "security", "cacerts")
	if jre := filepath.Join(javaHome, "jre", "lib", "security", "cacerts"); pathExists(fsys, jre) {
		install.CacertsPath = jre
	}

	return install, nil
}

func pathExists(fsys FileSystem, path string) bool {
	_, err := fsys.Lstat(path)
	return err == nil
}
