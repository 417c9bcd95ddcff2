package view

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	t.Parallel()

	v, err := Parse("sharedSession")
	require.NoError(t, err)
	assert.Equal(t, SharedSession, v)

	_, err = Parse("not-a-view")
	assert.Error(t, err)

	_, err = Parse("")
	assert.Error(t, err)
}

func TestDefaultMatchesView(t *testing.T) {
	t.Parallel()

	for _, v := range all {
		assert.Equal(t, v, Default(v).For(), "view %s", v)
	}
}

func TestDefaultUnknownFallsBackToLoading(t *testing.T) {
	t.Parallel()

	assert.Equal(t, Loading, Default(View("bogus")).For())
}
