package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	registrationapp "github.com/maisgenetica/backend/internal/application/registration"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLocal(t *testing.T) *LocalObjectStorage {
	t.Helper()
	s, err := NewLocalObjectStorage(LocalObjectStorageConfig{BasePath: t.TempDir(), BaseURL: "/files/"})
	require.NoError(t, err)
	return s
}

func TestLocalObjectStorage_UploadDownload(t *testing.T) {
	s := newLocal(t)
	ctx := context.Background()

	require.NoError(t, s.Upload(ctx, "inscricoes/1-inscricao.pdf", []byte("%PDF-1.3"), "application/pdf"))

	data, err := s.Download(ctx, "inscricoes/1-inscricao.pdf")
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1.3"), data)

	_, err = os.Stat(filepath.Join(s.BasePath(), "inscricoes", "1-inscricao.pdf"))
	assert.NoError(t, err)

	entries, err := os.ReadDir(filepath.Join(s.BasePath(), "inscricoes"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")

	t.Run("overwrite replaces content", func(t *testing.T) {
		require.NoError(t, s.Upload(ctx, "inscricoes/1-inscricao.pdf", []byte("new"), "application/pdf"))
		data, err := s.Download(ctx, "inscricoes/1-inscricao.pdf")
		require.NoError(t, err)
		assert.Equal(t, []byte("new"), data)
	})
}

func TestLocalObjectStorage_Missing(t *testing.T) {
	s := newLocal(t)
	ctx := context.Background()

	_, err := s.Download(ctx, "comprovantes/none.png")
	assert.ErrorIs(t, err, registrationapp.ErrObjectNotFound)

	exists, err := s.ObjectExists(ctx, "comprovantes/none.png")
	require.NoError(t, err)
	assert.False(t, exists)

	assert.NoError(t, s.DeleteObject(ctx, "comprovantes/none.png"))
}

func TestLocalObjectStorage_RejectsTraversal(t *testing.T) {
	s := newLocal(t)
	ctx := context.Background()

	for _, key := range []string{"", "../escape.pdf", "a/../../b", "/etc/passwd", `a\..\..\b`} {
		t.Run(key, func(t *testing.T) {
			assert.Error(t, s.Upload(ctx, key, []byte("x"), "text/plain"))
			_, err := s.Download(ctx, key)
			assert.Error(t, err)
		})
	}
}

func TestLocalObjectStorage_DeleteAndExists(t *testing.T) {
	s := newLocal(t)
	ctx := context.Background()
	require.NoError(t, s.Upload(ctx, "comprovantes/1.png", []byte("png"), "image/png"))

	exists, err := s.ObjectExists(ctx, "comprovantes/1.png")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, s.DeleteObject(ctx, "comprovantes/1.png"))
	exists, err = s.ObjectExists(ctx, "comprovantes/1.png")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestLocalObjectStorage_GenerateDownloadURL(t *testing.T) {
	s := newLocal(t)

	url, expiresAt, err := s.GenerateDownloadURL(context.Background(), "comprovantes/a b.png", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, "/files/comprovantes/a%20b.png", url)
	assert.True(t, expiresAt.After(time.Now()))
}

func TestLocalObjectStorage_CancelledContext(t *testing.T) {
	s := newLocal(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, s.Upload(ctx, "k", []byte("x"), ""), context.Canceled)
}
