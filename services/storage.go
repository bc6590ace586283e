package services

import (
	"crypto/md5"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Kanishk2004/plug-rag-sub002/internal/config"
	"github.com/Kanishk2004/plug-rag-sub002/internal/logger"
)

// FileStorageManager stages uploaded documents on disk until processing
// finishes. Files are written to a temp location and renamed so a crashed
// upload never leaves a partial file in the staging area.
type FileStorageManager struct {
	uploadDir string
	tempDir   string
}

func NewFileStorageManager(cfg *config.Config) *FileStorageManager {
	baseDir := cfg.FileStorageDir
	if baseDir == "" {
		baseDir = "./storage"
	}

	uploadDir := filepath.Join(baseDir, "documents")
	tempDir := filepath.Join(baseDir, "temp")

	os.MkdirAll(uploadDir, 0755)
	os.MkdirAll(tempDir, 0755)

	return &FileStorageManager{
		uploadDir: uploadDir,
		tempDir:   tempDir,
	}
}

// StoredFileInfo describes a staged file.
type StoredFileInfo struct {
	Path       string
	SecureName string
	Hash       string
	Size       int64
}

// Store streams the upload to a per-tenant staging directory, computing the
// MD5 content hash on the way for duplicate detection.
func (sm *FileStorageManager) Store(file multipart.File, header *multipart.FileHeader, tenantID string) (*StoredFileInfo, error) {
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to reset file position: %w", err)
	}

	secureName := sm.generateSecureFilename(header.Filename)

	tenantDir := filepath.Join(sm.uploadDir, tenantID)
	if err := os.MkdirAll(tenantDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create tenant directory: %w", err)
	}
	filePath := filepath.Join(tenantDir, secureName)

	tempPath := filepath.Join(sm.tempDir, uuid.NewString()+".tmp")
	tempFile, err := os.Create(tempPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}

	hasher := md5.New()
	bytesWritten, err := io.Copy(io.MultiWriter(tempFile, hasher), file)
	if err != nil {
		tempFile.Close()
		os.Remove(tempPath)
		return nil, fmt.Errorf("failed to write file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		os.Remove(tempPath)
		return nil, fmt.Errorf("failed to close temp file: %w", err)
	}

	if bytesWritten == 0 {
		os.Remove(tempPath)
		return nil, fmt.Errorf("file is empty")
	}

	if err := os.Rename(tempPath, filePath); err != nil {
		os.Remove(tempPath)
		return nil, fmt.Errorf("failed to move file to final location: %w", err)
	}

	return &StoredFileInfo{
		Path:       filePath,
		SecureName: secureName,
		Hash:       hex.EncodeToString(hasher.Sum(nil)),
		Size:       bytesWritten,
	}, nil
}

// Read loads a staged file back for processing.
func (sm *FileStorageManager) Read(filePath string) ([]byte, error) {
	// Refuse paths outside the staging area
	abs, err := filepath.Abs(filePath)
	if err != nil {
		return nil, err
	}
	uploadAbs, err := filepath.Abs(sm.uploadDir)
	if err != nil {
		return nil, err
	}
	if !strings.HasPrefix(abs, uploadAbs+string(os.PathSeparator)) {
		return nil, fmt.Errorf("path %s is outside the staging area", filePath)
	}
	return os.ReadFile(abs)
}

// Cleanup removes a staged file, logging rather than failing on error.
func (sm *FileStorageManager) Cleanup(filePath string) {
	if filePath == "" {
		return
	}
	if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
		logger.Warn("Failed to cleanup staged file", "path", filePath, "error", err)
	}
}

// generateSecureFilename derives a collision-free staging name that keeps a
// recognizable slice of the original for debugging.
func (sm *FileStorageManager) generateSecureFilename(originalName string) string {
	randomBytes := make([]byte, 8)
	rand.Read(randomBytes)
	randomPrefix := hex.EncodeToString(randomBytes)

	timestamp := time.Now().Format("20060102_150405")

	ext := filepath.Ext(originalName)
	baseName := strings.TrimSuffix(filepath.Base(originalName), ext)
	safeName := strings.ReplaceAll(baseName, " ", "_")
	safeName = strings.ReplaceAll(safeName, "..", "")
	if len(safeName) > 50 {
		safeName = safeName[:50]
	}

	return fmt.Sprintf("%s_%s_%s%s", timestamp, randomPrefix, safeName, ext)
}
