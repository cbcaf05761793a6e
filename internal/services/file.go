// internal/services/file.go
package services

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"abiahub/internal/config"

	"github.com/google/uuid"
)

// Media limits per kind.
const (
	MaxImageSize = 5 << 20  // 5 MB
	MaxVideoSize = 50 << 20 // 50 MB
	MaxVoiceSize = 10 << 20 // 10 MB
)

var allowedImageExts = map[string]bool{".jpg": true, ".jpeg": true, ".png": true}
var allowedVideoExts = map[string]bool{".mp4": true, ".mov": true, ".avi": true}
var allowedVoiceExts = map[string]bool{".mp3": true, ".wav": true, ".m4a": true}

type FileService struct {
	uploadDir string
	baseURL   string
}

func NewFileService(cfg *config.Config) (*FileService, error) {
	for _, sub := range []string{"images", "videos", "voice"} {
		dir := filepath.Join(cfg.UploadDir, sub)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating upload directory %s: %w", dir, err)
		}
	}
	return &FileService{
		uploadDir: cfg.UploadDir,
		baseURL:   cfg.PublicBaseURL,
	}, nil
}

// SaveImage validates and stores an uploaded image, returning its public URL.
func (s *FileService) SaveImage(file *multipart.FileHeader) (string, error) {
	return s.save(file, "images", MaxImageSize, allowedImageExts)
}

func (s *FileService) SaveVideo(file *multipart.FileHeader) (string, error) {
	return s.save(file, "videos", MaxVideoSize, allowedVideoExts)
}

func (s *FileService) SaveVoiceNote(file *multipart.FileHeader) (string, error) {
	return s.save(file, "voice", MaxVoiceSize, allowedVoiceExts)
}

func (s *FileService) save(file *multipart.FileHeader, kind string, maxSize int64, allowedExts map[string]bool) (string, error) {
	if file.Size > maxSize {
		return "", fmt.Errorf("file exceeds %d MB limit", maxSize>>20)
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !allowedExts[ext] {
		return "", fmt.Errorf("file type %s not allowed", ext)
	}

	src, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("opening upload: %w", err)
	}
	defer src.Close()

	// Uploads get opaque names so client-supplied filenames never touch disk.
	name := uuid.New().String() + ext
	dstPath := filepath.Join(s.uploadDir, kind, name)

	dst, err := os.Create(dstPath)
	if err != nil {
		return "", fmt.Errorf("creating file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		os.Remove(dstPath)
		return "", fmt.Errorf("writing file: %w", err)
	}

	return fmt.Sprintf("%s/uploads/%s/%s", s.baseURL, kind, name), nil
}

// Delete removes a stored file given its public URL. Unknown URLs are
// ignored.
func (s *FileService) Delete(publicURL string) error {
	idx := strings.Index(publicURL, "/uploads/")
	if idx < 0 {
		return nil
	}
	rel := publicURL[idx+len("/uploads/"):]
	// Reject traversal attempts embedded in stored URLs.
	if strings.Contains(rel, "..") {
		return fmt.Errorf("invalid file path")
	}
	path := filepath.Join(s.uploadDir, filepath.FromSlash(rel))
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing file: %w", err)
	}
	return nil
}
