// Package cli provides the command-line interface for cacertsync.
package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	syncerrors "github.com/cacertsync/cacertsync/internal/errors"
	"github.com/cacertsync/cacertsync/internal/truststore"
)

// Version information (will be set by build flags in production).
var (
	Version   = "dev"
	GitCommit = "none"
	BuildDate = "unknown"
)

var rootRestore bool

// syncTimeout bounds a full sync run. Importing a few hundred
// certificates through keytool is slow but well under this.
const syncTimeout = 10 * time.Minute

// rootCmd represents the base command when called without any subcommands.
// Running it without flags performs a sync; --restore reverts the JVM's
// cacerts from the saved backup.
var rootCmd = &cobra.Command{
	Use:   "cacertsync",
	Short: "Synchronize a Java trust store with the OS certificate bundle",
	Long: `cacertsync rebuilds a system-level Java trust store from the operating
system's CA certificates and replaces the JVM's built-in cacerts with a
symlink to it, so Java applications trust the same roots as the rest of
the system.

The original cacerts file is backed up before the first replacement.
Run with --restore to revert the JVM to that backup.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runRoot,
}

// versionCmd represents the version command.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("cacertsync version %s\n", Version)
		fmt.Printf("  commit: %s\n", GitCommit)
		fmt.Printf("  built:  %s\n", BuildDate)
	},
}

func init() {
	rootCmd.Flags().BoolVar(&rootRestore, "restore", false, "Restore the JVM's cacerts from the saved backup")
	rootCmd.AddCommand(versionCmd)
}

func runRoot(cmd *cobra.Command, args []string) error {
	syncer := newSyncerOrExit()

	ctx, cancel := context.WithTimeout(context.Background(), syncTimeout)
	defer cancel()

	if rootRestore {
		return runRestore(ctx, syncer)
	}
	return runSync(ctx, syncer)
}

func runSync(ctx context.Context, syncer *truststore.Syncer) error {
	Info("Syncing %s from OS certificates...", syncer.StorePath)

	report, err := syncer.Sync(ctx)
	if report != nil {
		for _, warning := range report.Warnings {
			Warning("%s", warning)
		}
	}
	if err != nil {
		Error("Sync failed: %v", err)
		os.Exit(exitCode(err))
	}

	Success("Imported %d certificates (%d skipped)", report.Imported, report.Skipped)
	if report.Converted {
		Success("Converted trust store to %s", report.Format)
	}
	if report.BackupCreated {
		Success("Backed up original cacerts to %s", syncer.Java.BackupPath())
	}
	Success("Linked %s -> %s", syncer.Java.CacertsPath, syncer.StorePath)
	Info("Trust store now holds %d certificates", report.Entries)

	return nil
}

func runRestore(ctx context.Context, syncer *truststore.Syncer) error {
	if err := syncer.Restore(ctx); err != nil {
		Error("Restore failed: %v", err)
		os.Exit(exitCode(err))
	}

	Success("Restored %s from %s", syncer.Java.CacertsPath, syncer.Java.BackupPath())
	return nil
}

// newSyncerOrExit detects the Java installation and builds a Syncer,
// exiting with a config error when no usable installation is found.
func newSyncerOrExit() *truststore.Syncer {
	java, err := truststore.DetectJava(&truststore.OSFileSystem{}, &truststore.ExecRunner{}, os.Getenv("JAVA_HOME"))
	if err != nil {
		Error("%v", err)
		os.Exit(syncerrors.ExitConfigError)
	}
	return truststore.NewSyncer(java)
}

// exitCode maps an error to the process exit code.
func exitCode(err error) int {
	switch {
	case syncerrors.IsError(err, syncerrors.ErrNoBackup):
		return syncerrors.ExitCertError
	case syncerrors.IsError(err, syncerrors.ErrNoJava),
		syncerrors.IsError(err, syncerrors.ErrInvalidJavaHome),
		syncerrors.IsError(err, syncerrors.ErrNoKeytool):
		return syncerrors.ExitConfigError
	case syncerrors.IsError(err, context.DeadlineExceeded):
		return syncerrors.ExitLockError
	default:
		return syncerrors.ExitGeneralError
	}
}

// Execute runs the root command and handles errors.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
