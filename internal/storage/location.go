package storage

import (
	"fmt"
	"strings"
)

// Location addresses one object in the blob store.
type Location struct {
	Bucket string
	Key    string
}

// String renders the location as s3://bucket/key.
func (l Location) String() string {
	return "s3://" + l.Bucket + "/" + l.Key
}

// IsZero reports whether the location is unset.
func (l Location) IsZero() bool {
	return l.Bucket == "" && l.Key == ""
}

// ParseLocation parses an s3://bucket/key URI.
func ParseLocation(uri string) (Location, error) {
	rest, ok := strings.CutPrefix(uri, "s3://")
	if !ok {
		return Location{}, fmt.Errorf("invalid image location %q: missing s3:// scheme", uri)
	}
	bucket, key, ok := strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" {
		return Location{}, fmt.Errorf("invalid image location %q: expected s3://bucket/key", uri)
	}
	return Location{Bucket: bucket, Key: key}, nil
}
