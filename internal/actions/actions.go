// Package actions maps gestures to clipboard actions and carries them out:
// copying the browser URL or a hyperlink, appending selections, clearing the
// clipboard, copying a file name or the date, and passing keys through to
// the application when an action does not apply.
package actions

import (
	"fmt"
	"sort"
	"strings"

	"go.klb.dev/simplecopy/internal/host"
)

// Action is something a tap can trigger.
type Action string

const (
	ActionNone         Action = "none"
	ActionPassthrough  Action = "passthrough"
	ActionCopyURL      Action = "copy-url"
	ActionCopyLink     Action = "copy-link"
	ActionAppend       Action = "append"
	ActionClear        Action = "clear"
	ActionCopyFilename Action = "copy-filename"
	ActionCopyDateTime Action = "copy-datetime"
	ActionToggleAppend Action = "toggle-append"
)

var knownActions = map[Action]bool{
	ActionNone:         true,
	ActionPassthrough:  true,
	ActionCopyURL:      true,
	ActionCopyLink:     true,
	ActionAppend:       true,
	ActionClear:        true,
	ActionCopyFilename: true,
	ActionCopyDateTime: true,
	ActionToggleAppend: true,
}

// ParseAction validates an action name from config.
func ParseAction(s string) (Action, error) {
	a := Action(strings.ToLower(strings.TrimSpace(s)))
	if a == "" {
		return ActionNone, nil
	}
	if !knownActions[a] {
		return "", fmt.Errorf("unknown action %q", s)
	}
	return a, nil
}

// Binding is what a gesture does on a single tap and on a multi tap.
type Binding struct {
	Single Action `mapstructure:"single" toml:"single"`
	Multi  Action `mapstructure:"multi" toml:"multi"`
}

// DefaultBindings returns the stock gesture table.
func DefaultBindings() map[string]Binding {
	return map[string]Binding{
		"control+shift+a": {Single: ActionCopyURL, Multi: ActionCopyLink},
		"control+shift+c": {Single: ActionAppend, Multi: ActionClear},
		"shift+f":         {Single: ActionPassthrough, Multi: ActionCopyFilename},
		"shift+d":         {Single: ActionPassthrough, Multi: ActionCopyDateTime},
		"shift+l":         {Single: ActionPassthrough, Multi: ActionCopyLink},
		"windows+c":       {Single: ActionToggleAppend, Multi: ActionToggleAppend},
		"windows+z":       {Single: ActionClear, Multi: ActionClear},
	}
}

// ParseBindings converts raw config (gesture -> {single, multi}) into a
// binding table with normalized gesture names.
func ParseBindings(raw map[string]map[string]string) (map[string]Binding, error) {
	out := make(map[string]Binding, len(raw))
	gestures := make([]string, 0, len(raw))
	for g := range raw {
		gestures = append(gestures, g)
	}
	sort.Strings(gestures)
	for _, g := range gestures {
		single, err := ParseAction(raw[g]["single"])
		if err != nil {
			return nil, fmt.Errorf("binding %s: %w", g, err)
		}
		multi, err := ParseAction(raw[g]["multi"])
		if err != nil {
			return nil, fmt.Errorf("binding %s: %w", g, err)
		}
		out[host.NormalizeCombo(g)] = Binding{Single: single, Multi: multi}
	}
	return out, nil
}

// Announced messages.
const (
	MsgAppended       = "Appended"
	MsgCopied         = "Copied"
	MsgNoTextToAppend = "No text selected to append"
	MsgNonTextClip    = "Cannot append to non-text clipboard content"
	MsgWriteError     = "Error writing to clipboard"
	MsgAppendError    = "Error during append operation"
	MsgClean          = "Clean"
	MsgCannotClean    = "Cannot clean"
	MsgNoURL          = "No URL"
	MsgCopy           = "Copy"
	MsgFailedCopy     = "Failed to copy"
	MsgNoLink         = "No link found"
	MsgNotInBrowser   = "Not in a web browser"
	MsgNotInFileMgr   = "Not in a file manager"
	MsgNoName         = "No valid name available"
	MsgDateTimeCopied = "Date and time copy"
	MsgAppendOn       = "Append on"
	MsgAppendOff      = "Append off"
)

// DefaultBrowsers are application names treated as web browsers.
var DefaultBrowsers = []string{"chrome", "chromium", "firefox", "edge", "msedge", "opera", "safari", "brave"}

// DefaultFileManagers are application names treated as file managers.
var DefaultFileManagers = []string{"explorer", "nautilus", "dolphin", "thunar", "nemo", "pcmanfm", "finder", "caja"}

// DefaultDateTimeLayout is the time.Format layout for copy-datetime.
const DefaultDateTimeLayout = "2006-01-02 15:04:05"

func appMatches(app string, names []string) bool {
	app = strings.ToLower(app)
	if app == "" {
		return false
	}
	for _, n := range names {
		if n = strings.ToLower(strings.TrimSpace(n)); n != "" && strings.Contains(app, n) {
			return true
		}
	}
	return false
}

func isEditable(n host.Node) bool {
	if n == nil {
		return false
	}
	return n.Editable() || n.Role() == host.RoleEditableText
}
