package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/simplecopy/internal/actions"
	"go.klb.dev/simplecopy/internal/clip"
	"go.klb.dev/simplecopy/internal/logging"
	"go.klb.dev/simplecopy/internal/retrieve"
	"go.klb.dev/simplecopy/internal/tap"
	"go.klb.dev/simplecopy/internal/textnorm"
)

// bindViper wires a command's flags into a viper instance with the standard
// config file search order and SIMPLECOPY_* env var prefix. A .env file in
// the working directory is loaded first; variables already set win.
//
// Precedence (lowest → highest): defaults → config file → SIMPLECOPY_* env vars → flags
func bindViper(cmd *cobra.Command, v *viper.Viper) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf(".env: %w", err)
	}

	setDefaults(v)

	configFlag, _ := cmd.Flags().GetString("config")
	if configFlag != "" {
		v.SetConfigFile(configFlag)
	} else {
		v.SetConfigName("simplecopy")
		v.SetConfigType("toml")
		v.AddConfigPath("/etc/simplecopy/")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(fmt.Sprintf("%s/.config/simplecopy", home))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("config: %w", err)
		}
	}

	v.SetEnvPrefix("SIMPLECOPY")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("binding flags: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("settle-window", tap.DefaultSettleWindow)
	v.SetDefault("fallback-delay", retrieve.DefaultFallbackDelay)
	v.SetDefault("ancestor-hops", retrieve.DefaultAncestorHops)
	v.SetDefault("echo-guard", actions.DefaultEchoGuard)
	v.SetDefault("enabled", true)
	v.SetDefault("append", true)
	v.SetDefault("append-separator", textnorm.DefaultSeparator)
	v.SetDefault("line-ending", "auto")
	v.SetDefault("host", "auto")
	v.SetDefault("clipboard", string(clip.KindAuto))
	v.SetDefault("feedback", []string{"speech", "log"})
	v.SetDefault("browsers", actions.DefaultBrowsers)
	v.SetDefault("file-managers", actions.DefaultFileManagers)
	v.SetDefault("datetime-format", actions.DefaultDateTimeLayout)
}

// addLoggingFlags adds the standard logging flags to a command.
func addLoggingFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("no-background", false, "run interactively: tinter logs + debug level")
	cmd.Flags().String("log-format", "auto", "log format: auto|text|json")
	cmd.Flags().String("log-level", "", "log level: debug|info|warn|error (default: info for service, debug for interactive)")
}

// addConfigFlag adds the --config flag to a command.
func addConfigFlag(cmd *cobra.Command) {
	cmd.Flags().String("config", "", "path to config file (overrides auto-discovery)")
}

// setupLogging reads logging flags from viper and configures slog.
func setupLogging(v *viper.Viper) {
	interactive := v.GetBool("no-background") || logging.IsTTY(os.Stderr)
	logging.Setup(logging.Resolve(interactive, v.GetString("log-format"), v.GetString("log-level")))
}

// settings is the daemon configuration resolved from viper.
type settings struct {
	Options   actions.Options
	Chain     retrieve.Config
	Host      string
	Clipboard clip.Kind
	Feedback  []string
}

func loadSettings(v *viper.Viper) (settings, error) {
	bindings, err := loadBindings(v)
	if err != nil {
		return settings{}, err
	}
	if hops := v.GetInt("ancestor-hops"); hops < 1 {
		return settings{}, fmt.Errorf("ancestor-hops must be at least 1, got %d", hops)
	}
	if w := v.GetDuration("settle-window"); w <= 0 {
		return settings{}, fmt.Errorf("settle-window must be positive, got %s", w)
	}
	sep := unescape(v.GetString("append-separator"))

	return settings{
		Options: actions.Options{
			Enabled:        v.GetBool("enabled"),
			Append:         v.GetBool("append"),
			SettleWindow:   v.GetDuration("settle-window"),
			EchoGuard:      v.GetDuration("echo-guard"),
			Browsers:       v.GetStringSlice("browsers"),
			FileManagers:   v.GetStringSlice("file-managers"),
			DateTimeLayout: v.GetString("datetime-format"),
			Bindings:       bindings,
		},
		Chain: retrieve.Config{
			FallbackDelay: v.GetDuration("fallback-delay"),
			AncestorHops:  v.GetInt("ancestor-hops"),
			Separator:     sep,
			LineEnding:    textnorm.ParseLineEnding(v.GetString("line-ending")),
		},
		Host:      strings.ToLower(strings.TrimSpace(v.GetString("host"))),
		Clipboard: clip.ParseKind(v.GetString("clipboard")),
		Feedback:  v.GetStringSlice("feedback"),
	}, nil
}

// loadBindings reads the [bindings."<gesture>"] tables. Without any, the
// stock gesture table is used.
func loadBindings(v *viper.Viper) (map[string]actions.Binding, error) {
	raw := v.GetStringMap("bindings")
	if len(raw) == 0 {
		return actions.DefaultBindings(), nil
	}
	table := make(map[string]map[string]string, len(raw))
	for g, b := range raw {
		m, ok := b.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("bindings.%s: expected a table with single and multi", g)
		}
		table[g] = map[string]string{
			"single": stringValue(m["single"]),
			"multi":  stringValue(m["multi"]),
		}
	}
	return actions.ParseBindings(table)
}

func stringValue(x any) string {
	if s, ok := x.(string); ok {
		return s
	}
	return ""
}

// unescape lets the separator be written as "\n\n" in env vars and flags.
func unescape(s string) string {
	return strings.NewReplacer(`\r`, "\r", `\n`, "\n", `\t`, "\t").Replace(s)
}

// fileConfig is the TOML shape of the effective configuration.
type fileConfig struct {
	SettleWindow    string                     `toml:"settle-window"`
	FallbackDelay   string                     `toml:"fallback-delay"`
	AncestorHops    int                        `toml:"ancestor-hops"`
	EchoGuard       string                     `toml:"echo-guard"`
	Enabled         bool                       `toml:"enabled"`
	Append          bool                       `toml:"append"`
	AppendSeparator string                     `toml:"append-separator"`
	LineEnding      string                     `toml:"line-ending"`
	Host            string                     `toml:"host"`
	Clipboard       string                     `toml:"clipboard"`
	Feedback        []string                   `toml:"feedback"`
	Browsers        []string                   `toml:"browsers"`
	FileManagers    []string                   `toml:"file-managers"`
	DateTimeFormat  string                     `toml:"datetime-format"`
	Bindings        map[string]actions.Binding `toml:"bindings"`
}

func effectiveConfig(v *viper.Viper) (fileConfig, error) {
	s, err := loadSettings(v)
	if err != nil {
		return fileConfig{}, err
	}
	return fileConfig{
		SettleWindow:    s.Options.SettleWindow.String(),
		FallbackDelay:   s.Chain.FallbackDelay.String(),
		AncestorHops:    s.Chain.AncestorHops,
		EchoGuard:       s.Options.EchoGuard.String(),
		Enabled:         s.Options.Enabled,
		Append:          s.Options.Append,
		AppendSeparator: s.Chain.Separator,
		LineEnding:      v.GetString("line-ending"),
		Host:            s.Host,
		Clipboard:       string(s.Clipboard),
		Feedback:        s.Feedback,
		Browsers:        s.Options.Browsers,
		FileManagers:    s.Options.FileManagers,
		DateTimeFormat:  s.Options.DateTimeLayout,
		Bindings:        s.Options.Bindings,
	}, nil
}
