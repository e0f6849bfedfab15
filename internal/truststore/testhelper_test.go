package truststore

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pavlo-v-chernykh/keystore-go/v4"
)

// fakeKeytool implements Runner by simulating the keytool, dpkg and
// apt-get binaries. Imported certificates are tracked per keystore path,
// and -importkeystore writes a real JKS file through keystore-go so the
// verification path parses genuine bytes.
type fakeKeytool struct {
	t *testing.T

	certs    map[string][]*x509.Certificate
	commands [][]string

	hasDpkg       bool
	dpkgInstalled bool
	failImports   map[string]bool // cert file paths whose import fails
}

func newFakeKeytool(t *testing.T) *fakeKeytool {
	return &fakeKeytool{
		t:           t,
		certs:       make(map[string][]*x509.Certificate),
		failImports: make(map[string]bool),
	}
}

func (f *fakeKeytool) LookPath(name string) (string, error) {
	if name == "dpkg" && !f.hasDpkg {
		return "", fmt.Errorf("exec: %q: executable file not found in $PATH", name)
	}
	return "/usr/bin/" + name, nil
}

func (f *fakeKeytool) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	f.commands = append(f.commands, append([]string{name}, args...))

	switch {
	case strings.HasSuffix(name, "keytool"):
		return f.runKeytool(args)
	case name == "dpkg":
		if f.dpkgInstalled {
			return []byte("Status: install ok installed"), nil
		}
		return []byte("package not installed"), fmt.Errorf("exit status 1")
	case name == "apt-get":
		f.dpkgInstalled = true
		return nil, nil
	default:
		return nil, fmt.Errorf("unexpected command %q", name)
	}
}

func (f *fakeKeytool) runKeytool(args []string) ([]byte, error) {
	storePath := argValue(args, "-keystore")

	switch args[0] {
	case "-genkeypair":
		// Fresh keystore. Content only needs to look like PKCS#12 until
		// the conversion step rewrites it.
		f.certs[storePath] = nil
		if err := os.WriteFile(storePath, []byte{0x30, 0x82, 0x01, 0x00}, 0600); err != nil {
			return nil, err
		}
		return nil, nil

	case "-delete":
		return nil, nil

	case "-importcert":
		certFile := argValue(args, "-file")
		if f.failImports[certFile] {
			return []byte("keytool error: java.lang.Exception: Input not an X.509 certificate"), fmt.Errorf("exit status 1")
		}
		data, err := os.ReadFile(certFile)
		if err != nil {
			return []byte(err.Error()), fmt.Errorf("exit status 1")
		}
		block, _ := pem.Decode(data)
		if block == nil || block.Type != "CERTIFICATE" {
			return []byte("keytool error: java.lang.Exception: Input not an X.509 certificate"), fmt.Errorf("exit status 1")
		}
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return []byte(err.Error()), fmt.Errorf("exit status 1")
		}
		f.certs[storePath] = append(f.certs[storePath], cert)
		return nil, nil

	case "-importkeystore":
		src := argValue(args, "-srckeystore")
		dst := argValue(args, "-destkeystore")
		pass := argValue(args, "-deststorepass")
		data, err := encodeJKS(f.certs[src], pass)
		if err != nil {
			return []byte(err.Error()), fmt.Errorf("exit status 1")
		}
		f.certs[dst] = f.certs[src]
		if err := os.WriteFile(dst, data, 0600); err != nil {
			return nil, err
		}
		return nil, nil

	default:
		return nil, fmt.Errorf("unexpected keytool subcommand %q", args[0])
	}
}

// argValue returns the value following the given flag in args.
func argValue(args []string, flag string) string {
	for i, arg := range args {
		if arg == flag && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

// encodeJKS writes the certificates into JKS bytes.
func encodeJKS(certs []*x509.Certificate, password string) ([]byte, error) {
	ks := keystore.New()
	for i, cert := range certs {
		entry := keystore.TrustedCertificateEntry{
			CreationTime: time.Now(),
			Certificate: keystore.Certificate{
				Type:    "X509",
				Content: cert.Raw,
			},
		}
		if err := ks.SetTrustedCertificateEntry(fmt.Sprintf("cert-%d", i), entry); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := ks.Store(&buf, []byte(password)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// makeCertPEM generates a self-signed CA certificate in PEM form.
func makeCertPEM(t *testing.T, cn string) []byte {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	template := &x509.Certificate{
		SerialNumber:          big.NewInt(time.Now().UnixNano()),
		Subject:               pkix.Name{CommonName: cn},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(24 * 365 * time.Hour),
		IsCA:                  true,
		BasicConstraintsValid: true,
		KeyUsage:              x509.KeyUsageCertSign,
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("create certificate: %v", err)
	}

	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
}

// syncFixture is a complete fake environment: a Java installation layout,
// OS certificate source directories and a Syncer pointed at them.
type syncFixture struct {
	syncer   *Syncer
	runner   *fakeKeytool
	javaHome string
	localDir string
	shareDir string
	original []byte // pre-sync cacerts content
}

func newSyncFixture(t *testing.T) *syncFixture {
	t.Helper()
	tmp := t.TempDir()

	javaHome := filepath.Join(tmp, "jdk")
	security := filepath.Join(javaHome, "lib", "security")
	for _, dir := range []string{filepath.Join(javaHome, "bin"), security} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
	}
	for _, bin := range []string{"java", "keytool"} {
		if err := os.WriteFile(filepath.Join(javaHome, "bin", bin), []byte("#!/bin/sh\n"), 0755); err != nil {
			t.Fatalf("write %s: %v", bin, err)
		}
	}

	original := []byte("original-cacerts-content")
	cacerts := filepath.Join(security, "cacerts")
	if err := os.WriteFile(cacerts, original, 0644); err != nil {
		t.Fatalf("write cacerts: %v", err)
	}

	localDir := filepath.Join(tmp, "usr", "local", "share", "ca-certificates")
	shareDir := filepath.Join(tmp, "usr", "share", "ca-certificates")
	for _, dir := range []string{localDir, shareDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
	}

	java := &JavaInstall{
		Home:        javaHome,
		CacertsPath: cacerts,
		KeytoolPath: filepath.Join(javaHome, "bin", "keytool"),
	}

	runner := newFakeKeytool(t)
	syncer := NewSyncerWith(java, &OSFileSystem{}, runner)
	syncer.StorePath = filepath.Join(tmp, "etc", "ssl", "certs", "java", "cacerts")
	syncer.SourceDirs = []string{localDir, shareDir}

	return &syncFixture{
		syncer:   syncer,
		runner:   runner,
		javaHome: javaHome,
		localDir: localDir,
		shareDir: shareDir,
		original: original,
	}
}

// addCert writes a certificate file under one of the source directories.
func (f *syncFixture) addCert(t *testing.T, dir, relPath string) {
	t.Helper()
	path := filepath.Join(dir, relPath)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	cn := strings.TrimSuffix(filepath.Base(relPath), filepath.Ext(relPath))
	if err := os.WriteFile(path, makeCertPEM(t, cn), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
