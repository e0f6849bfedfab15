package truststore

import (
	"context"
	"fmt"
	"strings"
)

// placeholderAlias is the throwaway entry used to create a fresh keystore.
// keytool has no way to create an empty keystore directly, so a dummy key
// pair is generated and immediately deleted.
const placeholderAlias = "cacertsync-placeholder"

// Keytool drives the JDK keytool binary. All keystore mutation goes
// through keytool; Go keystore libraries are used read-side only.
type Keytool struct {
	Path      string // keytool binary
	StorePass string
	runner    Runner
}

// NewKeytool creates a Keytool for the given binary path.
func NewKeytool(path, storePass string, runner Runner) *Keytool {
	return &Keytool{
		Path:      path,
		StorePass: storePass,
		runner:    runner,
	}
}

// CreateKeystore creates a fresh, empty keystore at storePath via the
// placeholder-entry workaround.
func (k *Keytool) CreateKeystore(ctx context.Context, storePath string) error {
	genArgs := []string{
		"-genkeypair",
		"-alias", placeholderAlias,
		"-dname", "CN=cacertsync",
		"-keyalg", "RSA",
		"-keysize", "2048",
		"-validity", "1",
		"-keystore", storePath,
		"-storepass", k.StorePass,
		"-keypass", k.StorePass,
	}
	if out, err := k.runner.Run(ctx, k.Path, genArgs...); err != nil {
		return cmdError("keytool -genkeypair", out, err)
	}

	delArgs := []string{
		"-delete",
		"-alias", placeholderAlias,
		"-keystore", storePath,
		"-storepass", k.StorePass,
	}
	if out, err := k.runner.Run(ctx, k.Path, delArgs...); err != nil {
		return cmdError("keytool -delete", out, err)
	}

	return nil
}

// ImportCert imports the certificate file as a trusted-certificate entry
// under the given alias.
func (k *Keytool) ImportCert(ctx context.Context, storePath, alias, certPath string) error {
	args := []string{
		"-importcert", "-noprompt",
		"-keystore", storePath,
		"-storepass", k.StorePass,
		"-file", certPath,
		"-alias", alias,
	}
	if out, err := k.runner.Run(ctx, k.Path, args...); err != nil {
		return cmdError("keytool -importcert", out, err)
	}
	return nil
}

// ConvertToJKS copies every entry of the source keystore into a new
// JKS-format keystore at dstPath. The source format is auto-detected by
// keytool; dstPath must not already exist.
func (k *Keytool) ConvertToJKS(ctx context.Context, srcPath, dstPath string) error {
	args := []string{
		"-importkeystore", "-noprompt",
		"-srckeystore", srcPath,
		"-srcstorepass", k.StorePass,
		"-destkeystore", dstPath,
		"-deststoretype", "JKS",
		"-deststorepass", k.StorePass,
	}
	if out, err := k.runner.Run(ctx, k.Path, args...); err != nil {
		return cmdError("keytool -importkeystore", out, err)
	}
	return nil
}

// cmdError wraps a failed external command with its trimmed output, which
// is where keytool puts the actual failure reason.
func cmdError(op string, out []byte, err error) error {
	msg := strings.TrimSpace(string(out))
	if msg == "" {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %s", op, err, msg)
}
