package cli

import (
	"context"
	"testing"

	syncerrors "github.com/cacertsync/cacertsync/internal/errors"
)

func TestRootCmd_Exists(t *testing.T) {
	if rootCmd == nil {
		t.Fatal("rootCmd is nil")
	}

	if rootCmd.Use != "cacertsync" {
		t.Errorf("rootCmd.Use = %q, want %q", rootCmd.Use, "cacertsync")
	}
}

func TestRootCmd_RestoreFlag(t *testing.T) {
	flag := rootCmd.Flags().Lookup("restore")
	if flag == nil {
		t.Fatal("--restore flag not found")
	}

	if flag.DefValue != "false" {
		t.Errorf("--restore default = %q, want %q", flag.DefValue, "false")
	}
}

func TestRootCmd_Subcommands(t *testing.T) {
	want := map[string]bool{
		"version":    false,
		"status":     false,
		"check":      false,
		"completion": false,
	}

	for _, sub := range rootCmd.Commands() {
		if _, ok := want[sub.Name()]; ok {
			want[sub.Name()] = true
		}
	}

	for name, found := range want {
		if !found {
			t.Errorf("subcommand %q not registered", name)
		}
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"no backup", &syncerrors.SyncError{Op: "restore", Err: syncerrors.ErrNoBackup}, syncerrors.ExitCertError},
		{"no java", &syncerrors.SyncError{Op: "detect", Err: syncerrors.ErrNoJava}, syncerrors.ExitConfigError},
		{"invalid home", &syncerrors.SyncError{Op: "detect", Err: syncerrors.ErrInvalidJavaHome}, syncerrors.ExitConfigError},
		{"no keytool", &syncerrors.SyncError{Op: "detect", Err: syncerrors.ErrNoKeytool}, syncerrors.ExitConfigError},
		{"timeout", context.DeadlineExceeded, syncerrors.ExitLockError},
		{"generic", &syncerrors.SyncError{Op: "chmod", Err: context.Canceled}, syncerrors.ExitGeneralError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := exitCode(tt.err); got != tt.want {
				t.Errorf("exitCode() = %d, want %d", got, tt.want)
			}
		})
	}
}
