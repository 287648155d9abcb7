package s3store

import (
	"fmt"
	"strings"
)

const scheme = "s3://"

// IsURI reports whether dest names an S3 location.
func IsURI(dest string) bool {
	return strings.HasPrefix(dest, scheme)
}

// ParseURI parses an S3 URI into bucket and key prefix.
// A non-empty prefix always ends with a single "/".
func ParseURI(uri string) (bucket, prefix string, err error) {
	if !IsURI(uri) {
		return "", "", fmt.Errorf("invalid S3 URI %q: must start with %s", uri, scheme)
	}

	bucket, prefix, _ = strings.Cut(strings.TrimPrefix(uri, scheme), "/")
	if bucket == "" {
		return "", "", fmt.Errorf("invalid S3 URI %q: missing bucket name", uri)
	}

	return bucket, normalizePrefix(prefix), nil
}

func normalizePrefix(prefix string) string {
	var parts []string
	for _, p := range strings.Split(prefix, "/") {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return strings.Join(parts, "/") + "/"
}
