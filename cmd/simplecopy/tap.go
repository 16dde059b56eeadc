package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"go.klb.dev/simplecopy/internal/control"
)

func newTapCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tap <gesture>",
		Short: "Send one tap of a gesture to the daemon",
		Long: `Sends a single key press of <gesture> (for example control+shift+c)
to the running daemon. Bind this to the gesture in your desktop's shortcut
settings; repeated taps within the settle window count as a multi tap.`,
		Args: cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return withControl(func(ctx context.Context, c *control.Client) error {
				return c.Tap(ctx, args[0])
			})
		},
	}
}

func newToggleAppendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "toggle-append",
		Short: "Turn append mode on or off",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withControl(func(ctx context.Context, c *control.Client) error {
				on, err := c.ToggleAppend(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "append: %s\n", onOff(on))
				return nil
			})
		},
	}
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
