package media

import (
	"fmt"
	"mime"
	"path/filepath"
	"strings"

	"github.com/imagefeed/backend/internal/models"
)

var allowedExtensions = map[string]models.FileType{
	".png":  models.FileTypeImage,
	".jpg":  models.FileTypeImage,
	".jpeg": models.FileTypeImage,
	".gif":  models.FileTypeImage,
	".mp4":  models.FileTypeVideo,
	".mov":  models.FileTypeVideo,
	".avi":  models.FileTypeVideo,
}

var fallbackContentTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".mp4":  "video/mp4",
	".mov":  "video/quicktime",
	".avi":  "video/x-msvideo",
}

// Classify returns the file type for an uploaded file name, or ErrUnsupportedFile.
func Classify(fileName string) (models.FileType, error) {
	ext := strings.ToLower(filepath.Ext(strings.TrimSpace(fileName)))
	fileType, ok := allowedExtensions[ext]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFile, ext)
	}
	return fileType, nil
}

// ContentType picks the MIME type forwarded to the media store. A specific
// declared type is kept; generic ones are replaced using the extension.
func ContentType(fileName, declared string) string {
	declared = strings.TrimSpace(declared)
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	ext := strings.ToLower(filepath.Ext(fileName))
	if byExt := mime.TypeByExtension(ext); byExt != "" {
		return byExt
	}
	if fallback, ok := fallbackContentTypes[ext]; ok {
		return fallback
	}
	return "application/octet-stream"
}
