package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// resetForTest clears the package globals so each test loads fresh.
func resetForTest(t *testing.T) {
	t.Helper()
	viper.Reset()
	cfg = nil
	t.Setenv("HOME", t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", "")
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	home := os.Getenv("HOME")
	path := filepath.Join(home, ".perch.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	resetForTest(t)

	c, err := Load(t.TempDir(), false)
	require.NoError(t, err)

	assert.Equal(t, GenerationV2, c.Generation)
	assert.Equal(t, ".perch", c.Data.Directory)
	assert.Empty(t, c.Provider)
	assert.Empty(t, c.Model)
}

func TestLoadStoredProviderAndModel(t *testing.T) {
	resetForTest(t)
	writeConfigFile(t, `{"provider":"anthropic","model":"sonnet","generation":"v1"}`)

	c, err := Load(t.TempDir(), false)
	require.NoError(t, err)

	assert.Equal(t, "anthropic", c.Provider)
	assert.Equal(t, "sonnet", c.Model)
	assert.Equal(t, GenerationV1, c.Generation)
}

func TestLoadMalformedFile(t *testing.T) {
	resetForTest(t)
	writeConfigFile(t, `{"provider": not json`)

	_, err := Load(t.TempDir(), false)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestRead(t *testing.T) {
	resetForTest(t)
	writeConfigFile(t, `{"provider":"openai","nested":{"key":true}}`)

	_, err := Load(t.TempDir(), false)
	require.NoError(t, err)

	t.Run("present", func(t *testing.T) {
		v, err := Read("provider", true)
		require.NoError(t, err)
		assert.Equal(t, "openai", v)
	})

	t.Run("absent optional", func(t *testing.T) {
		v, err := Read("model", false)
		require.NoError(t, err)
		assert.Empty(t, v)
	})

	t.Run("absent required", func(t *testing.T) {
		_, err := Read("model", true)
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrMalformed)
	})

	t.Run("wrong type is malformed", func(t *testing.T) {
		_, err := Read("nested", false)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrMalformed)
	})
}

func TestAddExtensionPersists(t *testing.T) {
	resetForTest(t)
	path := writeConfigFile(t, `{}`)

	_, err := Load(t.TempDir(), false)
	require.NoError(t, err)

	ext := Extension{ID: "weather", Name: "Weather", Cmd: "uvx", Args: []string{"weather-mcp"}, Enabled: true}
	require.NoError(t, AddExtension(ext))

	assert.Len(t, GetExtensions(), 1)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"weather"`)

	// Re-adding the same ID replaces instead of duplicating.
	ext.Name = "Weather v2"
	require.NoError(t, AddExtension(ext))
	assert.Len(t, GetExtensions(), 1)
	assert.Equal(t, "Weather v2", GetExtensions()[0].Name)
}

func TestSetModelPersistsCurrentAndMostRecent(t *testing.T) {
	resetForTest(t)
	writeConfigFile(t, `{}`)

	_, err := Load(t.TempDir(), false)
	require.NoError(t, err)

	require.NoError(t, SetModel("openai", "gpt-4.1"))

	assert.Equal(t, "openai", Get().Provider)
	assert.Equal(t, "gpt-4.1", Get().Model)
	assert.Equal(t, "gpt-4.1", Get().MostRecentModel)
}

func TestInitIdempotent(t *testing.T) {
	resetForTest(t)

	_, err := Load(t.TempDir(), false)
	require.NoError(t, err)

	require.NoError(t, Init())
	require.NoError(t, Init())

	info, err := os.Stat(DataDirectory())
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
