// internal/services/file_test.go
package services

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"abiahub/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFileTestService(t *testing.T) *FileService {
	t.Helper()
	cfg := &config.Config{
		UploadDir:     t.TempDir(),
		PublicBaseURL: "http://localhost:8080",
	}
	svc, err := NewFileService(cfg)
	require.NoError(t, err)
	return svc
}

// uploadFileHeader builds a real multipart.FileHeader the way gin hands it
// to handlers.
func uploadFileHeader(t *testing.T, filename string, content []byte) *multipart.FileHeader {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodPost, "/upload", &buf)
	c.Request.Header.Set("Content-Type", writer.FormDataContentType())

	header, err := c.FormFile("file")
	require.NoError(t, err)
	return header
}

func TestSaveImage(t *testing.T) {
	svc := newFileTestService(t)

	header := uploadFileHeader(t, "pothole.jpg", []byte("fake image bytes"))
	url, err := svc.SaveImage(header)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(url, "http://localhost:8080/uploads/images/"))
	assert.True(t, strings.HasSuffix(url, ".jpg"))
	// The stored name must be opaque, not the client's filename.
	assert.NotContains(t, url, "pothole")

	name := url[strings.LastIndex(url, "/")+1:]
	_, err = os.Stat(filepath.Join(svc.uploadDir, "images", name))
	assert.NoError(t, err)
}

func TestSaveImageRejectsBadExtension(t *testing.T) {
	svc := newFileTestService(t)

	for _, filename := range []string{"report.exe", "report.pdf", "report"} {
		header := uploadFileHeader(t, filename, []byte("data"))
		_, err := svc.SaveImage(header)
		assert.Error(t, err, filename)
	}
}

func TestSaveImageRejectsOversized(t *testing.T) {
	svc := newFileTestService(t)

	header := uploadFileHeader(t, "big.jpg", []byte("data"))
	header.Size = MaxImageSize + 1
	_, err := svc.SaveImage(header)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "limit")
}

func TestSaveVoiceNote(t *testing.T) {
	svc := newFileTestService(t)

	header := uploadFileHeader(t, "complaint.mp3", []byte("fake audio"))
	url, err := svc.SaveVoiceNote(header)
	require.NoError(t, err)
	assert.Contains(t, url, "/uploads/voice/")
}

func TestDelete(t *testing.T) {
	svc := newFileTestService(t)

	header := uploadFileHeader(t, "photo.png", []byte("img"))
	url, err := svc.SaveImage(header)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(url))

	name := url[strings.LastIndex(url, "/")+1:]
	_, err = os.Stat(filepath.Join(svc.uploadDir, "images", name))
	assert.True(t, os.IsNotExist(err))
}

func TestDeleteRejectsTraversal(t *testing.T) {
	svc := newFileTestService(t)

	err := svc.Delete("http://localhost:8080/uploads/../../etc/passwd")
	assert.Error(t, err)
}

func TestDeleteIgnoresForeignURL(t *testing.T) {
	svc := newFileTestService(t)
	assert.NoError(t, svc.Delete("https://example.com/images/photo.jpg"))
	assert.NoError(t, svc.Delete("http://localhost:8080/uploads/images/missing.jpg"))
}
