package storage

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorage_Save(t *testing.T) {
	store, err := NewLocalStorage(LocalConfig{Path: t.TempDir()})
	require.NoError(t, err)

	content := "deviation report attachment"
	info, err := store.Save(bytes.NewBufferString(content), "report.pdf")
	require.NoError(t, err)

	assert.NotEmpty(t, info.ID)
	assert.Equal(t, "report.pdf", info.Name)
	assert.Equal(t, int64(len(content)), info.Size)
	assert.Equal(t, "application/pdf", info.MimeType)

	assert.True(t, filepath.IsAbs(info.Path), "Path应为可直接打开的绝对路径")
	data, err := os.ReadFile(info.Path)
	require.NoError(t, err)
	assert.Equal(t, content, string(data))

	assert.Equal(t, ".pdf", filepath.Ext(info.Key))
}

func TestLocalStorage_GetAndDelete(t *testing.T) {
	store, err := NewLocalStorage(LocalConfig{Path: t.TempDir()})
	require.NoError(t, err)

	info, err := store.Save(bytes.NewBufferString("audio bytes"), "meeting.mp3")
	require.NoError(t, err)

	reader, err := store.Get(info.ID)
	require.NoError(t, err)
	data, err := io.ReadAll(reader)
	require.NoError(t, err)
	require.NoError(t, reader.Close())
	assert.Equal(t, "audio bytes", string(data))

	exists, err := store.Exists(info.ID)
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, store.Delete(info.ID))

	exists, err = store.Exists(info.ID)
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = store.Get(info.ID)
	assert.ErrorIs(t, err, ErrFileNotFound)
}

func TestLocalStorage_List(t *testing.T) {
	store, err := NewLocalStorage(LocalConfig{Path: t.TempDir()})
	require.NoError(t, err)

	_, err = store.Save(bytes.NewBufferString("a"), "a.txt")
	require.NoError(t, err)
	_, err = store.Save(bytes.NewBufferString("b"), "b.mp3")
	require.NoError(t, err)

	files, err := store.List()
	require.NoError(t, err)
	require.Len(t, files, 2)

	for _, f := range files {
		assert.NotEmpty(t, f.ID)
		assert.True(t, filepath.IsAbs(f.Path))
	}
}

func TestMimeTypeByName(t *testing.T) {
	cases := map[string]string{
		"voice.mp3":  "audio/mpeg",
		"voice.m4a":  "audio/mp4",
		"scan.pdf":   "application/pdf",
		"notes.md":   "text/markdown",
		"record.bin": "application/octet-stream",
	}
	for name, want := range cases {
		assert.Equal(t, want, mimeTypeByName(name), name)
	}
}
