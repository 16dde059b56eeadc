package main

import (
	"fmt"
	"io"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newConfigCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as TOML",
		Long: `Resolves defaults, the config file, SIMPLECOPY_* env vars and flags the
same way "simplecopy run" does and prints the result. The output is a valid
simplecopy.toml.`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(cmd *cobra.Command, _ []string) error { return printConfig(cmd.OutOrStdout(), v) },
	}
	addConfigFlag(cmd)
	return cmd
}

func printConfig(out io.Writer, v *viper.Viper) error {
	cfg, err := effectiveConfig(v)
	if err != nil {
		return err
	}
	if f := v.ConfigFileUsed(); f != "" {
		fmt.Fprintf(out, "# loaded from %s\n", f)
	}
	return toml.NewEncoder(out).Encode(cfg)
}
