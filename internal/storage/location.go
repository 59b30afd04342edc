package storage

import (
	"fmt"
	"strings"
)

const s3Scheme = "s3://"

// Location identifies where a container is read from or written to:
// either a local path or an object in an S3 bucket.
type Location struct {
	Path   string
	Bucket string
	Key    string
}

// ParseLocation parses "s3://bucket/key" or a local file path.
func ParseLocation(s string) (Location, error) {
	if s == "" {
		return Location{}, fmt.Errorf("empty location")
	}
	if !strings.HasPrefix(s, s3Scheme) {
		return Location{Path: s}, nil
	}

	rest := strings.TrimPrefix(s, s3Scheme)
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return Location{}, fmt.Errorf("invalid S3 location %q: expected s3://bucket/key", s)
	}
	return Location{Bucket: parts[0], Key: parts[1]}, nil
}

// IsRemote reports whether the location refers to an S3 object.
func (l Location) IsRemote() bool {
	return l.Bucket != ""
}

// String renders the location in the form accepted by ParseLocation.
func (l Location) String() string {
	if l.IsRemote() {
		return s3Scheme + l.Bucket + "/" + l.Key
	}
	return l.Path
}
