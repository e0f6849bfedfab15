package truststore

import (
	"bytes"
	"encoding/binary"

	"github.com/pavlo-v-chernykh/keystore-go/v4"
	"software.sslmate.com/src/go-pkcs12"

	syncerrors "github.com/cacertsync/cacertsync/internal/errors"
)

// StoreFormat identifies the on-disk keystore format.
type StoreFormat string

const (
	FormatJKS     StoreFormat = "jks"
	FormatPKCS12  StoreFormat = "pkcs12"
	FormatUnknown StoreFormat = ""
)

// jksMagic is the big-endian magic number at the start of every JKS file.
const jksMagic uint32 = 0xfeedfeed

// DetectFormat inspects raw keystore bytes and reports the on-disk format.
// PKCS#12 files start with an ASN.1 SEQUENCE (0x30); JKS files start with
// the 0xFEEDFEED magic.
func DetectFormat(data []byte) StoreFormat {
	if len(data) < 4 {
		return FormatUnknown
	}
	if binary.BigEndian.Uint32(data[:4]) == jksMagic {
		return FormatJKS
	}
	if data[0] == 0x30 {
		return FormatPKCS12
	}
	return FormatUnknown
}

// CountEntries parses raw keystore bytes and returns the number of
// trusted-certificate entries, along with the detected format. Counting is
// done in-process rather than by shelling out to keytool -list: the store
// has just been written and parsing it is also a stronger integrity check.
func CountEntries(data []byte, password string) (int, StoreFormat, error) {
	switch format := DetectFormat(data); format {
	case FormatJKS:
		n, err := countJKSEntries(data, password)
		return n, format, err
	case FormatPKCS12:
		n, err := countPKCS12Entries(data, password)
		return n, format, err
	default:
		return 0, FormatUnknown, &syncerrors.SyncError{
			Op:  "parse keystore",
			Err: syncerrors.ErrUnknownFormat,
		}
	}
}

func countJKSEntries(data []byte, password string) (int, error) {
	ks := keystore.New()
	if err := ks.Load(bytes.NewReader(data), []byte(password)); err != nil {
		return 0, &syncerrors.SyncError{
			Op:  "parse jks keystore",
			Err: err,
		}
	}

	count := 0
	for _, alias := range ks.Aliases() {
		if ks.IsTrustedCertificateEntry(alias) {
			count++
		}
	}
	return count, nil
}

func countPKCS12Entries(data []byte, password string) (int, error) {
	certs, err := pkcs12.DecodeTrustStore(data, password)
	if err != nil {
		// Stores written by the passwordless encoder carry no MAC.
		certs, err = pkcs12.DecodeTrustStore(data, "")
	}
	if err != nil {
		return 0, &syncerrors.SyncError{
			Op:  "parse pkcs12 keystore",
			Err: err,
		}
	}
	return len(certs), nil
}
