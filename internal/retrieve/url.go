package retrieve

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strings"

	"go.klb.dev/simplecopy/internal/host"
)

var httpURL = regexp.MustCompile(`(?i)^https?://`)

// LinkURL returns the target of the link at n. When n is not a link, the
// nearest link among its ancestors (up to the configured hop bound, stopping
// at the root) is used instead; ancestors whose link has no URL are skipped.
func (c *Chain) LinkURL(n host.Node) (string, bool) {
	if n == nil {
		return "", false
	}
	if n.Role() == host.RoleLink {
		u := linkValue(n)
		return u, u != ""
	}

	var u string
	found := host.Ancestor(n, c.cfg.AncestorHops, func(a host.Node) bool {
		if a.Role() != host.RoleLink {
			return false
		}
		u = linkValue(a)
		return u != ""
	})
	if found == nil {
		return "", false
	}
	slog.Debug("link found on ancestor", "name", found.Name())
	return u, true
}

type accessor struct {
	name string
	get  func() (string, error)
}

// linkValue tries the primary value, then the automation value, then the
// legacy accessible value.
func linkValue(n host.Node) string {
	accessors := []accessor{{"value", n.Value}}
	if ae, ok := n.(host.AutomationElement); ok {
		accessors = append(accessors, accessor{"automation", ae.AutomationValue})
	}
	if la, ok := n.(host.LegacyAccessible); ok {
		accessors = append(accessors, accessor{"legacy", la.LegacyValue})
	}
	for _, a := range accessors {
		if u := firstValue(a.name, a.get); u != "" {
			return u
		}
	}
	return ""
}

func firstValue(name string, get func() (string, error)) string {
	v, err := get()
	if err != nil {
		if !errors.Is(err, host.ErrUnsupported) {
			slog.Warn("accessor failed", "accessor", name, "err", err)
		}
		return ""
	}
	return strings.TrimSpace(v)
}

// CurrentURL returns the address of the focused document. Sources, in
// order: the host's document URL, the tree interceptor's URL, an
// automation ID that looks like an http(s) URL, and the legacy value.
func (c *Chain) CurrentURL(ctx context.Context, focus host.Node) (string, bool) {
	if u := firstValue("document", func() (string, error) { return c.host.DocumentURL(ctx) }); u != "" {
		return u, true
	}
	if focus == nil {
		return "", false
	}
	if ic, ok := focus.(host.Intercepted); ok {
		if ti := ic.TreeInterceptor(); ti != nil {
			if u := firstValue("interceptor", ti.DocumentURL); u != "" {
				return u, true
			}
		}
	}
	if ae, ok := focus.(host.AutomationElement); ok {
		if u := firstValue("automation-id", ae.AutomationID); httpURL.MatchString(u) {
			return u, true
		}
	}
	if la, ok := focus.(host.LegacyAccessible); ok {
		if u := firstValue("legacy", la.LegacyValue); u != "" {
			return u, true
		}
	}
	return "", false
}
