// simplecopy: gesture-driven clipboard helper for the desktop.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is set at build time via -ldflags "-X main.Version=x.y.z".
var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "simplecopy",
		Short: "Clipboard gestures: append selections, copy URLs and links",
		Long: `simplecopy is a small daemon that turns key gestures into clipboard
actions. A single tap of control+shift+c appends the selected text to the
clipboard, a double tap clears it; control+shift+a copies the browser URL,
or the link under the cursor on a double tap.

Run "simplecopy run" in the desktop session and bind your key daemon's
shortcuts to "simplecopy tap <gesture>".

Config file search order (first found wins):
  /etc/simplecopy/simplecopy.toml
  $HOME/.config/simplecopy/simplecopy.toml
  path supplied via --config

All settings can be set via SIMPLECOPY_<KEY> env vars or config-file keys.
See "simplecopy run --help" for the flag reference.`,
		SilenceUsage: true,
	}

	root.AddCommand(
		newRunCmd(),
		newTapCmd(),
		newToggleAppendCmd(),
		newStatusCmd(),
		newConfigCmd(),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "simplecopy %s\n", Version)
		},
	}
}
