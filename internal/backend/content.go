package backend

// ContentType is both a backend's declared affinity and the category a
// request path is classified into.
type ContentType string

const (
	ContentVideo   ContentType = "video"
	ContentAPI     ContentType = "api"
	ContentImage   ContentType = "image"
	ContentGeneral ContentType = "general"

	// ContentDefault is the category of requests that match no known prefix.
	// No backend declares it, so such requests are never optimized.
	ContentDefault ContentType = "default"
)

// Affinities lists the content types a backend may declare.
func Affinities() []ContentType {
	return []ContentType{ContentVideo, ContentAPI, ContentImage, ContentGeneral}
}

func (c ContentType) String() string {
	return string(c)
}
