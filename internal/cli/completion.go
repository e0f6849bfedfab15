package cli

import (
	"os"

	"github.com/spf13/cobra"

	syncerrors "github.com/cacertsync/cacertsync/internal/errors"
)

// completionCmd represents the completion command.
var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh]",
	Short: "Generate shell completion scripts",
	Long: `Generate shell completion scripts for bash or zsh.

To load completions:

Bash:

  $ source <(cacertsync completion bash)

  # To load completions for each session, execute once:
  $ cacertsync completion bash > /etc/bash_completion.d/cacertsync

Zsh:

  # If shell completion is not already enabled in your environment,
  # you will need to enable it.  You can execute the following once:

  $ echo "autoload -U compinit; compinit" >> ~/.zshrc

  # To load completions for each session, execute once:
  $ cacertsync completion zsh > "${fpath[1]}/_cacertsync"

  # You will need to start a new shell for this setup to take effect.`,
	ValidArgs: []string{"bash", "zsh"},
	Args:      cobra.ExactValidArgs(1),
	RunE:      runCompletion,
}

func init() {
	rootCmd.AddCommand(completionCmd)
}

func runCompletion(cmd *cobra.Command, args []string) error {
	shell := args[0]

	switch shell {
	case "bash":
		if err := cmd.Root().GenBashCompletion(os.Stdout); err != nil {
			Error("Failed to generate bash completion: %v", err)
			os.Exit(syncerrors.ExitGeneralError)
		}
	case "zsh":
		if err := cmd.Root().GenZshCompletion(os.Stdout); err != nil {
			Error("Failed to generate zsh completion: %v", err)
			os.Exit(syncerrors.ExitGeneralError)
		}
	default:
		Error("Unsupported shell: %s. Supported shells: bash, zsh", shell)
		os.Exit(syncerrors.ExitConfigError)
	}

	return nil
}
