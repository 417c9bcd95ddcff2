// Package deeplink parses perch:// links into the fields the rest of the
// application acts on.
package deeplink

import (
	"fmt"
	"net/url"
	"strings"
)

const (
	// Scheme is the URI scheme the application registers with the OS.
	Scheme = "perch"

	// UnknownCommand is shown when a link carries no cmd parameter.
	UnknownCommand = "Unknown Command"
	// UnknownExtension is shown when no display name can be derived.
	UnknownExtension = "Unknown Extension"
)

// Link is a parsed deep link.
type Link struct {
	// Kind is the host portion of the URI, e.g. "extension" or "session".
	Kind   string
	params url.Values
	raw    string
}

// Parse validates and splits a deep link URI. Any URI that does not parse,
// whatever its scheme, is an error; a parseable URI with an unexpected
// scheme is also rejected so callers never act on links meant for other
// applications.
func Parse(raw string) (*Link, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse deep link: %w", err)
	}
	if u.Scheme != Scheme {
		return nil, fmt.Errorf("unexpected deep link scheme %q", u.Scheme)
	}
	// Query() silently drops malformed pairs; ParseQuery reports them.
	params, err := url.ParseQuery(u.RawQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to parse deep link query: %w", err)
	}
	return &Link{
		Kind:   u.Host,
		params: params,
		raw:    raw,
	}, nil
}

// String returns the original URI the link was parsed from.
func (l *Link) String() string {
	return l.raw
}

// Command returns the full command line the link describes: the cmd
// parameter followed by each arg parameter, percent-decoded and joined with
// single spaces. A link without a cmd parameter uses UnknownCommand in its
// place; the args are still appended.
func (l *Link) Command() string {
	cmd := l.params.Get("cmd")
	if cmd == "" {
		cmd = UnknownCommand
	}
	parts := append([]string{cmd}, l.params["arg"]...)
	return strings.TrimSpace(strings.Join(parts, " "))
}

// Args returns the arg parameters on their own, already percent-decoded.
func (l *Link) Args() []string {
	return l.params["arg"]
}

// RemoteURL returns the url parameter and whether it was present.
func (l *Link) RemoteURL() (string, bool) {
	v := l.params.Get("url")
	return v, v != ""
}

// Name derives a human-readable name for the link target. It prefers an
// explicit name parameter, then the first token of the command, and falls
// back to UnknownExtension.
func (l *Link) Name() string {
	if name := l.params.Get("name"); name != "" {
		return name
	}
	if cmd := l.params.Get("cmd"); cmd != "" {
		if fields := strings.Fields(cmd); len(fields) > 0 {
			return fields[0]
		}
	}
	return UnknownExtension
}

// Param returns an arbitrary query parameter.
func (l *Link) Param(key string) string {
	return l.params.Get(key)
}
