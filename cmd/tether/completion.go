package main

import (
	"github.com/spf13/cobra"
)

var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion scripts",
	Long: `Generate shell completion scripts for tether.

To load completions:

Bash:
  $ source <(tether completion bash)

  # To load completions for each session, execute once:
  # Linux:
  $ tether completion bash > /etc/bash_completion.d/tether
  # macOS:
  $ tether completion bash > $(brew --prefix)/etc/bash_completion.d/tether

Zsh:
  # If shell completion is not already enabled in your environment,
  # you will need to enable it. You can execute the following once:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc

  # To load completions for each session, execute once:
  $ tether completion zsh > "${fpath[1]}/_tether"

  # You will need to start a new shell for this setup to take effect.

Fish:
  $ tether completion fish | source

  # To load completions for each session, execute once:
  $ tether completion fish > ~/.config/fish/completions/tether.fish

PowerShell:
  PS> tether completion powershell | Out-String | Invoke-Expression

  # To load completions for every new session, run:
  PS> tether completion powershell > tether.ps1
  # and source this file from your PowerShell profile.
`,
	DisableFlagsInUseLine: true,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		switch args[0] {
		case "bash":
			return cmd.Root().GenBashCompletion(out)
		case "zsh":
			return cmd.Root().GenZshCompletion(out)
		case "fish":
			return cmd.Root().GenFishCompletion(out, true)
		case "powershell":
			return cmd.Root().GenPowerShellCompletionWithDesc(out)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(completionCmd)
}
