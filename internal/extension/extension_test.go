package extension

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perchlabs/perch/internal/config"
	"github.com/perchlabs/perch/internal/tui/view"
)

func TestFromLink(t *testing.T) {
	t.Parallel()

	t.Run("full link", func(t *testing.T) {
		link := mustLink(t, "perch://extension?cmd=uvx%20weather-mcp&arg=--verbose&name=Weather")

		ext, err := fromLink(link)
		require.NoError(t, err)
		assert.Equal(t, "weather", ext.ID)
		assert.Equal(t, "Weather", ext.Name)
		assert.Equal(t, "uvx", ext.Cmd)
		assert.Equal(t, []string{"weather-mcp", "--verbose"}, ext.Args)
		assert.True(t, ext.Enabled)
		assert.Equal(t, link.String(), ext.Link)
	})

	t.Run("name with spaces becomes slug", func(t *testing.T) {
		link := mustLink(t, "perch://extension?cmd=run&name=My%20Cool%20Tool")

		ext, err := fromLink(link)
		require.NoError(t, err)
		assert.Equal(t, "my-cool-tool", ext.ID)
	})

	t.Run("no command", func(t *testing.T) {
		_, err := fromLink(mustLink(t, "perch://extension?name=Broken"))
		assert.Error(t, err)
	})
}

func TestAddFromDeepLinkV2(t *testing.T) {
	t.Parallel()

	var stored config.Extension
	var transitioned view.View

	link := mustLink(t, "perch://extension?cmd=uvx%20weather-mcp&name=Weather")
	err := AddFromDeepLinkV2(context.Background(), link,
		func(ext config.Extension) error {
			stored = ext
			return nil
		},
		func(v view.View, opts view.Options) {
			transitioned = v
			cp, ok := opts.(view.ConfigPageOptions)
			require.True(t, ok)
			assert.Equal(t, "weather", cp.ExtensionID)
		})

	require.NoError(t, err)
	assert.Equal(t, "weather", stored.ID)
	assert.Equal(t, view.ConfigPage, transitioned)
}

func TestAddFromDeepLinkV2StoreFailure(t *testing.T) {
	t.Parallel()

	viewChanged := false
	link := mustLink(t, "perch://extension?cmd=uvx%20w&name=W")
	err := AddFromDeepLinkV2(context.Background(), link,
		func(config.Extension) error { return errors.New("disk full") },
		func(view.View, view.Options) { viewChanged = true })

	require.Error(t, err)
	assert.False(t, viewChanged, "view must not change when the install fails")
}
