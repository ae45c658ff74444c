package domain

import (
	"net/url"
	"strings"
)

// Resource constraints.
const (
	MaxSourceURLLength = 2048
	MaxFormatIDLength  = 64
	MaxTitleLength     = 256
)

// Resource describes what a token allows the holder to stream.
// The core treats it as opaque; only the transfer source interprets it.
type Resource struct {
	// SourceURL is the upstream location of the bytes.
	SourceURL string `json:"source_url"`

	// FormatID selects a rendition of the source (e.g. "1080p-mp4").
	FormatID string `json:"format_id"`

	// Title is an optional display name used for download filenames.
	Title string `json:"title,omitempty"`
}

// Validate checks the resource descriptor shape.
func (r Resource) Validate() error {
	var violations []string

	switch {
	case r.SourceURL == "":
		violations = append(violations, "source_url is required")
	case len(r.SourceURL) > MaxSourceURLLength:
		violations = append(violations, "source_url exceeds 2048 characters")
	default:
		u, err := url.Parse(r.SourceURL)
		if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
			violations = append(violations, "source_url must be an absolute http(s) URL")
		}
	}

	if r.FormatID == "" {
		violations = append(violations, "format_id is required")
	} else if len(r.FormatID) > MaxFormatIDLength {
		violations = append(violations, "format_id exceeds 64 characters")
	}

	if len(r.Title) > MaxTitleLength {
		violations = append(violations, "title exceeds 256 characters")
	}

	if len(violations) > 0 {
		return ErrValidation.WithDetails(strings.Join(violations, "; "))
	}
	return nil
}

// Host returns the lowercase host of SourceURL, or "" if unparsable.
func (r Resource) Host() string {
	u, err := url.Parse(r.SourceURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}
