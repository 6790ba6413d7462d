package upload

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "votedeck/pkg/domain-errors"
)

func TestSave(t *testing.T) {
	svc, err := New(t.TempDir(), "/uploads")
	require.NoError(t, err)

	t.Run("stores under a random name with the original extension", func(t *testing.T) {
		url, err := svc.Save("poster.PNG", strings.NewReader("fake image bytes"))
		require.NoError(t, err)

		assert.True(t, strings.HasPrefix(url, "/uploads/"))
		assert.True(t, strings.HasSuffix(url, ".png"))
		assert.NotContains(t, url, "poster")

		content, err := os.ReadFile(filepath.Join(svc.Dir(), filepath.Base(url)))
		require.NoError(t, err)
		assert.Equal(t, "fake image bytes", string(content))
	})

	t.Run("rejects disallowed extensions", func(t *testing.T) {
		_, err := svc.Save("script.svg", strings.NewReader("<svg/>"))
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects empty files", func(t *testing.T) {
		_, err := svc.Save("empty.jpg", strings.NewReader(""))
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects oversized files and cleans up", func(t *testing.T) {
		big := strings.NewReader(strings.Repeat("x", MaxSize+1))
		_, err := svc.Save("big.jpg", big)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))

		entries, err := os.ReadDir(svc.Dir())
		require.NoError(t, err)
		for _, entry := range entries {
			info, err := entry.Info()
			require.NoError(t, err)
			assert.LessOrEqual(t, info.Size(), int64(MaxSize))
		}
	})
}
