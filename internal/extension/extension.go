// Package extension installs extensions from deep links and gates the
// install behind user confirmation.
package extension

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/perchlabs/perch/internal/config"
	"github.com/perchlabs/perch/internal/deeplink"
	"github.com/perchlabs/perch/internal/tui/view"
)

// fromLink builds the persistable extension record a deep link describes.
func fromLink(link *deeplink.Link) (config.Extension, error) {
	fields := strings.Fields(link.Param("cmd"))
	if len(fields) == 0 {
		return config.Extension{}, fmt.Errorf("deep link carries no command")
	}

	name := link.Name()
	id := strings.ToLower(strings.ReplaceAll(name, " ", "-"))
	if id == "" || name == deeplink.UnknownExtension {
		id = uuid.New().String()
	}

	return config.Extension{
		ID:      id,
		Name:    name,
		Cmd:     fields[0],
		Args:    append(fields[1:], link.Args()...),
		Link:    link.String(),
		Enabled: true,
	}, nil
}

// AddFromDeepLink installs the extension a deep link describes and lands
// the user on its configuration page. This is the legacy installer.
func AddFromDeepLink(ctx context.Context, link *deeplink.Link, setView view.SetFunc) error {
	return addFromDeepLink(ctx, link, config.AddExtension, setView)
}

// AddFromDeepLinkV2 is the next-generation installer. It behaves like
// AddFromDeepLink but persists through the supplied store rather than the
// global configuration, so callers control which configuration system the
// record lands in.
func AddFromDeepLinkV2(ctx context.Context, link *deeplink.Link, addExtension func(config.Extension) error, setView view.SetFunc) error {
	return addFromDeepLink(ctx, link, addExtension, setView)
}

func addFromDeepLink(ctx context.Context, link *deeplink.Link, addExtension func(config.Extension) error, setView view.SetFunc) error {
	ext, err := fromLink(link)
	if err != nil {
		return err
	}

	if err := addExtension(ext); err != nil {
		return fmt.Errorf("failed to install extension %q: %w", ext.Name, err)
	}

	slog.Info("extension installed", "id", ext.ID, "name", ext.Name)
	setView(view.ConfigPage, view.ConfigPageOptions{ExtensionID: ext.ID})
	return nil
}
