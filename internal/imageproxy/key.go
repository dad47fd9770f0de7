package imageproxy

import (
	"net/url"
	"strings"
)

// NormalizeKey turns a raw object key or a full object URL into a key
// relative to bucket. Scheme, host, query and every path segment up to and
// including the bucket name are removed, e.g.
// "https://host/bucket/sf-forums/photo.jpg" with bucket "sf-forums" becomes
// "photo.jpg".
func NormalizeKey(raw, bucket string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	path := raw
	if strings.Contains(raw, "://") {
		u, err := url.Parse(raw)
		if err != nil {
			return ""
		}
		path = u.Path
		// Virtual-hosted style URLs carry the bucket in the host.
		if bucket != "" && strings.HasPrefix(u.Host, bucket+".") {
			return strings.Trim(path, "/")
		}
	} else if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}

	segments := strings.Split(strings.Trim(path, "/"), "/")
	if bucket != "" {
		for i, s := range segments {
			if s == bucket {
				segments = segments[i+1:]
				break
			}
		}
	}

	kept := segments[:0]
	for _, s := range segments {
		if s != "" {
			kept = append(kept, s)
		}
	}
	return strings.Join(kept, "/")
}
