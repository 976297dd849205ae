package printing

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFontFace(t *testing.T) {
	t.Run("no path selects core font", func(t *testing.T) {
		face, err := LoadFontFace("Sans", "", "")
		require.NoError(t, err)
		assert.Nil(t, face)
	})

	t.Run("reads both weights", func(t *testing.T) {
		dir := t.TempDir()
		regular := filepath.Join(dir, "regular.ttf")
		bold := filepath.Join(dir, "bold.ttf")
		require.NoError(t, os.WriteFile(regular, []byte("regular"), 0o600))
		require.NoError(t, os.WriteFile(bold, []byte("bold"), 0o600))

		face, err := LoadFontFace("Sans", regular, bold)
		require.NoError(t, err)
		assert.Equal(t, "Sans", face.Family)
		assert.Equal(t, []byte("regular"), face.Regular)
		assert.Equal(t, []byte("bold"), face.Bold)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadFontFace("Sans", filepath.Join(t.TempDir(), "missing.ttf"), "")
		var renderErr *RenderError
		require.ErrorAs(t, err, &renderErr)
		assert.Equal(t, StageFont, renderErr.Stage)
	})
}
