package strategy

import (
	"strings"

	"github.com/angeloszaimis/routing-proxy/internal/backend"
)

var largeFileExtensions = []string{".mp4", ".mkv", ".avi", ".zip", ".iso"}

// NormalizePath strips the leading slashes of a request path, so that
// "/video/a.mp4" and "video/a.mp4" classify the same way.
func NormalizePath(path string) string {
	return strings.TrimLeft(path, "/")
}

// ContentCategory classifies a request path by its first segment.
func ContentCategory(path string) backend.ContentType {
	path = NormalizePath(path)

	switch {
	case strings.HasPrefix(path, "video/"):
		return backend.ContentVideo
	case strings.HasPrefix(path, "api/"):
		return backend.ContentAPI
	case strings.HasPrefix(path, "image/"):
		return backend.ContentImage
	default:
		return backend.ContentDefault
	}
}

// IsLargeFile reports whether the path names a large download: a known
// archive or video extension, or anything under a video/ segment.
func IsLargeFile(path string) bool {
	if strings.Contains(path, "video/") {
		return true
	}

	for _, ext := range largeFileExtensions {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}

	return false
}
