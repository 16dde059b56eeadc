package main

import (
	"context"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"go.klb.dev/simplecopy/internal/control"
)

func newStatusCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon state",
		Long: `Displays the running daemon's host, toggles, gesture table and counters.
The request goes over the IPC socket.`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(cmd *cobra.Command, _ []string) error { return runStatus(cmd.OutOrStdout(), v) },
	}

	cmd.Flags().Bool("json", false, "output raw JSON")
	addConfigFlag(cmd)

	return cmd
}

func runStatus(out io.Writer, v *viper.Viper) error {
	var st *structpb.Struct
	err := withControl(func(ctx context.Context, c *control.Client) error {
		var err error
		st, err = c.Status(ctx)
		return err
	})
	if err != nil {
		return fmt.Errorf("status: %w", err)
	}

	if v.GetBool("json") {
		enc, err := protojson.MarshalOptions{Multiline: true, Indent: "  "}.Marshal(st)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(enc))
		return nil
	}

	printStatus(out, st.AsMap())
	return nil
}

func printStatus(out io.Writer, m map[string]any) {
	w := tabwriter.NewWriter(out, 1, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Version:\t%v\n", valueOr(m["version"], "-"))
	fmt.Fprintf(w, "Host:\t%v\n", valueOr(m["host"], "-"))
	fmt.Fprintf(w, "Enabled:\t%s\n", onOff(m["enabled"] == true))
	fmt.Fprintf(w, "Append:\t%s\n", onOff(m["append"] == true))
	fmt.Fprintf(w, "Settle window:\t%v\n", valueOr(m["settle_window"], "-"))
	fmt.Fprintf(w, "Taps:\t%v (%v dropped)\n", count(m["taps"]), count(m["dropped"]))
	fmt.Fprintf(w, "Actions:\t%v\n", count(m["actions"]))
	if last, _ := m["last_action"].(string); last != "" {
		line := last
		if method, _ := m["last_method"].(string); method != "" {
			line += " via " + method
		}
		if msg, _ := m["last_message"].(string); msg != "" {
			line += fmt.Sprintf(" (%q)", msg)
		}
		fmt.Fprintf(w, "Last action:\t%s\n", line)
	}
	fmt.Fprintln(w)
	_ = w.Flush()

	gestures, _ := m["gestures"].(map[string]any)
	if len(gestures) == 0 {
		fmt.Fprintln(out, "No gestures bound.")
		return
	}
	armed := map[string]bool{}
	if list, ok := m["armed"].([]any); ok {
		for _, g := range list {
			if s, ok := g.(string); ok {
				armed[s] = true
			}
		}
	}
	names := make([]string, 0, len(gestures))
	for g := range gestures {
		names = append(names, g)
	}
	sort.Strings(names)

	tw := tabwriter.NewWriter(out, 1, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(tw, "\tGESTURE\tSINGLE\tMULTI\n")
	_, _ = fmt.Fprintf(tw, "\t-------\t------\t-----\n")
	for _, g := range names {
		b, _ := gestures[g].(map[string]any)
		marker := ""
		if armed[g] {
			marker = "*"
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%v\t%v\n", marker, g, valueOr(b["single"], "-"), valueOr(b["multi"], "-"))
	}
	_ = tw.Flush()
}

func valueOr(x any, def string) any {
	if s, ok := x.(string); x == nil || (ok && s == "") {
		return def
	}
	return x
}

// count prints a JSON number without a fractional part.
func count(x any) string {
	f, ok := x.(float64)
	if !ok {
		return "0"
	}
	return fmt.Sprintf("%.0f", f)
}
