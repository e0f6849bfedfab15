package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	syncerrors "github.com/cacertsync/cacertsync/internal/errors"
	"github.com/cacertsync/cacertsync/internal/truststore"
)

var (
	checkVerbose bool
	checkJSON    bool
)

// checkCmd represents the check command.
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run diagnostics on the trust store synchronization",
	Long: `Run diagnostics on the Java trust store synchronization to identify issues.

Checks performed:
  - Java installation is detected and has an executable runtime
  - keytool is present
  - System trust store exists, parses, and holds certificates
  - JVM cacerts is a symlink resolving to the system store
  - Backup of the original cacerts exists and matches recorded hash
  - File permissions allow read access

Use --verbose for detailed diagnostic information.
Use --json for machine-readable output.

Examples:
  cacertsync check
  cacertsync check --verbose
  cacertsync check --json`,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().BoolVar(&checkVerbose, "verbose", false, "Show detailed diagnostic information")
	checkCmd.Flags().BoolVar(&checkJSON, "json", false, "Output in JSON format")
}

// CheckResult represents the result of a single diagnostic check.
type CheckResult struct {
	Name        string   `json:"name"`
	Status      string   `json:"status"` // "pass", "warn", "fail"
	Issues      []string `json:"issues,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// CheckOutput represents the complete diagnostic output.
type CheckOutput struct {
	Checks      []CheckResult `json:"checks"`
	Summary     Summary       `json:"summary"`
	OverallPass bool          `json:"overall_pass"`
}

// Summary contains counts of check results.
type Summary struct {
	Total    int `json:"total"`
	Passed   int `json:"passed"`
	Warnings int `json:"warnings"`
	Failures int `json:"failures"`
}

func runCheck(cmd *cobra.Command, args []string) error {
	syncer := newSyncerOrExit()

	results := []CheckResult{
		checkJavaInstall(syncer),
		checkSystemStore(syncer),
		checkSymlink(syncer),
		checkBackup(syncer),
		checkPermissions(syncer),
	}

	summary := Summary{Total: len(results)}
	overallPass := true
	for _, result := range results {
		switch result.Status {
		case "pass":
			summary.Passed++
		case "warn":
			summary.Warnings++
			// Warnings don't fail the overall check
		case "fail":
			summary.Failures++
			overallPass = false
		}
	}

	output := CheckOutput{
		Checks:      results,
		Summary:     summary,
		OverallPass: overallPass,
	}

	if checkJSON {
		if err := JSON(output); err != nil {
			Error("Failed to encode JSON: %v", err)
			os.Exit(syncerrors.ExitGeneralError)
		}
	} else {
		printCheckOutput(output)
	}

	if !overallPass {
		os.Exit(syncerrors.ExitGeneralError)
	}

	return nil
}

func printCheckOutput(output CheckOutput) {
	Header("Trust Store Diagnostics")

	for _, check := range output.Checks {
		fmt.Printf("%s %s\n", StatusIcon(check.Status), check.Name)

		if (checkVerbose || check.Status != "pass") && len(check.Issues) > 0 {
			for _, issue := range check.Issues {
				fmt.Printf("  - %s\n", issue)
			}
		}

		if check.Status != "pass" && len(check.Suggestions) > 0 {
			for _, suggestion := range check.Suggestions {
				fmt.Printf("  → %s\n", suggestion)
			}
		}

		EmptyLine()
	}

	Subheader("Summary")
	Field("Total checks", fmt.Sprintf("%d", output.Summary.Total))
	Field("Passed", fmt.Sprintf("%d", output.Summary.Passed))
	if output.Summary.Warnings > 0 {
		Field("Warnings", fmt.Sprintf("%d", output.Summary.Warnings))
	}
	if output.Summary.Failures > 0 {
		Field("Failures", fmt.Sprintf("%d", output.Summary.Failures))
	}
	EmptyLine()

	if output.OverallPass {
		if output.Summary.Warnings > 0 {
			Info("Status: PASS (with warnings)")
		} else {
			Info("Status: PASS")
		}
	} else {
		Info("Status: FAIL")
	}
}

// checkJavaInstall verifies the detected installation has a runtime and keytool.
func checkJavaInstall(syncer *truststore.Syncer) CheckResult {
	result := CheckResult{
		Name:   "Java installation",
		Status: "pass",
	}

	// Detection already validated bin/java and keytool; record details.
	result.Issues = append(result.Issues, fmt.Sprintf("Home: %s", syncer.Java.Home))
	result.Issues = append(result.Issues, fmt.Sprintf("keytool: %s", syncer.Java.KeytoolPath))

	fsys := syncer.FS()
	if _, err := fsys.Stat(syncer.Java.CacertsPath); err != nil {
		if info, lerr := fsys.Lstat(syncer.Java.CacertsPath); lerr == nil && info.Mode()&os.ModeSymlink != 0 {
			result.Status = "fail"
			result.Issues = append(result.Issues, "cacerts is a dangling symlink")
			result.Suggestions = append(result.Suggestions, "Run 'cacertsync' to rebuild the system store")
		} else {
			result.Status = "warn"
			result.Issues = append(result.Issues, fmt.Sprintf("cacerts missing: %v", err))
		}
	}

	return result
}

// checkSystemStore verifies the system trust store parses and holds certificates.
func checkSystemStore(syncer *truststore.Syncer) CheckResult {
	result := CheckResult{
		Name:   "System trust store",
		Status: "pass",
	}

	data, err := syncer.FS().ReadFile(syncer.StorePath)
	if err != nil {
		result.Status = "fail"
		result.Issues = append(result.Issues, fmt.Sprintf("Cannot read system store: %v", err))
		result.Suggestions = append(result.Suggestions, "Run 'cacertsync' to create it")
		return result
	}

	count, format, err := truststore.CountEntries(data, syncer.StorePass)
	if err != nil {
		result.Status = "fail"
		result.Issues = append(result.Issues, fmt.Sprintf("Store does not parse: %v", err))
		result.Suggestions = append(result.Suggestions, "Run 'cacertsync' to rebuild the store")
		return result
	}

	result.Issues = append(result.Issues, fmt.Sprintf("Format: %s, certificates: %d", format, count))

	if count == 0 {
		result.Status = "warn"
		result.Issues = append(result.Issues, "Store contains no certificates")
		result.Suggestions = append(result.Suggestions, "Check that the OS certificate directories are populated")
	}

	// Recorded hash should match the file on disk.
	if md, err := syncer.ReadMetadata(); err == nil && md.LastSync.SHA256 != "" {
		if actual := truststore.ComputeSHA256(data); actual != md.LastSync.SHA256 {
			result.Status = "warn"
			result.Issues = append(result.Issues, "Store SHA256 does not match last sync record")
			result.Suggestions = append(result.Suggestions, "Store was modified outside cacertsync; re-run 'cacertsync'")
		}
	}

	return result
}

// checkSymlink verifies the JVM cacerts is wired to the system store.
func checkSymlink(syncer *truststore.Syncer) CheckResult {
	result := CheckResult{
		Name:   "cacerts symlink",
		Status: "pass",
	}

	target, err := syncer.FS().Readlink(syncer.Java.CacertsPath)
	if err != nil {
		result.Status = "warn"
		result.Issues = append(result.Issues, "cacerts is not a symlink")
		result.Suggestions = append(result.Suggestions, "Run 'cacertsync' to link it to the system store")
		return result
	}

	if target != syncer.StorePath {
		result.Status = "fail"
		result.Issues = append(result.Issues, fmt.Sprintf("cacerts points at %s, expected %s", target, syncer.StorePath))
		result.Suggestions = append(result.Suggestions, "Run 'cacertsync' to relink it")
	}

	return result
}

// checkBackup verifies the original cacerts backup.
func checkBackup(syncer *truststore.Syncer) CheckResult {
	result := CheckResult{
		Name:   "Original cacerts backup",
		Status: "pass",
	}

	backup := syncer.Java.BackupPath()
	fsys := syncer.FS()
	data, err := fsys.ReadFile(backup)
	if err != nil {
		// Missing backup is only a problem once cacerts has been replaced.
		if _, lerr := fsys.Readlink(syncer.Java.CacertsPath); lerr == nil {
			result.Status = "fail"
			result.Issues = append(result.Issues, "cacerts is synced but no backup exists")
			result.Suggestions = append(result.Suggestions, "Restore is impossible without the backup")
		} else {
			result.Issues = append(result.Issues, "No backup yet (cacerts not synced)")
		}
		return result
	}

	if md, err := syncer.ReadMetadata(); err == nil && md.Backup.SHA256 != "" {
		if actual := truststore.ComputeSHA256(data); actual != md.Backup.SHA256 {
			result.Status = "warn"
			result.Issues = append(result.Issues, "Backup SHA256 does not match sync record")
		}
	}

	return result
}

// checkPermissions verifies the store and backup are readable.
func checkPermissions(syncer *truststore.Syncer) CheckResult {
	result := CheckResult{
		Name:   "File permissions",
		Status: "pass",
	}

	files := []string{
		syncer.StorePath,
		syncer.Java.BackupPath(),
	}

	for _, file := range files {
		info, err := syncer.FS().Stat(file)
		if err != nil {
			// File doesn't exist - will be caught by other checks
			continue
		}

		if info.Mode().Perm()&0400 == 0 {
			result.Status = "fail"
			result.Issues = append(result.Issues, fmt.Sprintf("File is not readable: %s", file))
		}
	}

	if result.Status == "fail" {
		result.Suggestions = append(result.Suggestions, "Fix file permissions: chmod 644 <file>")
	}

	return result
}
