package services

import (
	"bytes"
	"mime/multipart"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kanishk2004/plug-rag-sub002/internal/config"
)

func newTestStorage(t *testing.T) *FileStorageManager {
	t.Helper()
	return NewFileStorageManager(&config.Config{FileStorageDir: t.TempDir()})
}

// uploadFile builds a real multipart upload so Store sees the same types the
// HTTP layer hands it.
func uploadFile(t *testing.T, name string, content []byte) (multipart.File, *multipart.FileHeader) {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	reader := multipart.NewReader(&buf, w.Boundary())
	form, err := reader.ReadForm(1 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { form.RemoveAll() })

	header := form.File["file"][0]
	file, err := header.Open()
	require.NoError(t, err)
	t.Cleanup(func() { file.Close() })
	return file, header
}

func TestStoreAndRead(t *testing.T) {
	sm := newTestStorage(t)
	content := []byte("the staged file body")
	file, header := uploadFile(t, "report.txt", content)

	info, err := sm.Store(file, header, "tenant-1")
	require.NoError(t, err)

	assert.Equal(t, int64(len(content)), info.Size)
	assert.Len(t, info.Hash, 32)
	assert.Contains(t, info.Path, filepath.Join("documents", "tenant-1"))

	got, err := sm.Read(info.Path)
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestStoreIdenticalContentSameHash(t *testing.T) {
	sm := newTestStorage(t)
	content := []byte("identical bytes")

	f1, h1 := uploadFile(t, "a.txt", content)
	f2, h2 := uploadFile(t, "b.txt", content)

	info1, err := sm.Store(f1, h1, "tenant-1")
	require.NoError(t, err)
	info2, err := sm.Store(f2, h2, "tenant-1")
	require.NoError(t, err)

	assert.Equal(t, info1.Hash, info2.Hash)
	assert.NotEqual(t, info1.Path, info2.Path)
}

func TestStoreRejectsEmptyFile(t *testing.T) {
	sm := newTestStorage(t)
	file, header := uploadFile(t, "empty.txt", nil)

	_, err := sm.Store(file, header, "tenant-1")
	assert.Error(t, err)
}

func TestReadRefusesPathOutsideStagingArea(t *testing.T) {
	sm := newTestStorage(t)

	outside := filepath.Join(t.TempDir(), "secret.txt")
	require.NoError(t, os.WriteFile(outside, []byte("nope"), 0600))

	_, err := sm.Read(outside)
	assert.Error(t, err)

	_, err = sm.Read("../../etc/passwd")
	assert.Error(t, err)
}

func TestCleanupIsIdempotent(t *testing.T) {
	sm := newTestStorage(t)
	file, header := uploadFile(t, "report.txt", []byte("body"))

	info, err := sm.Store(file, header, "tenant-1")
	require.NoError(t, err)

	sm.Cleanup(info.Path)
	_, statErr := os.Stat(info.Path)
	assert.True(t, os.IsNotExist(statErr))

	// Second removal and empty path are no-ops
	sm.Cleanup(info.Path)
	sm.Cleanup("")
}

func TestSecureFilenameSanitizesName(t *testing.T) {
	sm := newTestStorage(t)

	name := sm.generateSecureFilename("my report ..final.pdf")
	assert.NotContains(t, name, " ")
	assert.NotContains(t, name, "..")
	assert.Equal(t, ".pdf", filepath.Ext(name))
}
