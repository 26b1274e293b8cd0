// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

// Upload flow types
const (
	// UploadTypeSearch marks a photo uploaded only to be matched against registered faces
	UploadTypeSearch = "search"

	// UploadTypeRegister marks a photo that becomes searchable by name, tags and face
	UploadTypeRegister = "register"
)

// Face collection constants
const (
	// MaxIndexedFacesPerPhoto is the number of faces indexed for a registered photo
	MaxIndexedFacesPerPhoto = 1

	// FaceEmbeddingDim is the dimension of InsightFace face embeddings
	FaceEmbeddingDim = 512
)

// Blob store constants
const (
	// DeleteObjectsBatchSize is the maximum number of keys in a single DeleteObjects call
	DeleteObjectsBatchSize = 1000

	// CropContentType is the content type of re-encoded face crops
	CropContentType = "image/png"
)

// Queue consumer constants
const (
	// QueueWaitTimeSeconds is the long-poll duration for receiving messages
	QueueWaitTimeSeconds = 20

	// QueueVisibilityTimeout is how long a received message stays hidden from other consumers
	QueueVisibilityTimeout = 60

	// QueueMaxMessages is the maximum number of messages fetched per poll
	QueueMaxMessages = 10
)

// Client constants
const (
	// DefaultConcurrency is the default number of parallel uploads in the CLI
	DefaultConcurrency = 8

	// MaxUploadSize is the maximum file size accepted by the upload command (100MB)
	MaxUploadSize = 100 << 20
)

// MaxRequestBodySize bounds JSON request bodies read by the API.
const MaxRequestBodySize = 1 << 20

// MaxPageSize caps per_page on search requests; larger values are clamped.
const MaxPageSize = 1000
