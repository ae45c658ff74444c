package domain

import (
	"strings"
	"testing"
)

func TestResource_Validate(t *testing.T) {
	tests := []struct {
		name    string
		r       Resource
		wantErr bool
	}{
		{"valid https", Resource{SourceURL: "https://cdn.example.com/a.mp4", FormatID: "720p"}, false},
		{"valid http with title", Resource{SourceURL: "http://cdn.example.com/a", FormatID: "best", Title: "Clip"}, false},
		{"missing url", Resource{FormatID: "720p"}, true},
		{"relative url", Resource{SourceURL: "/a.mp4", FormatID: "720p"}, true},
		{"ftp scheme", Resource{SourceURL: "ftp://cdn.example.com/a", FormatID: "720p"}, true},
		{"missing format", Resource{SourceURL: "https://cdn.example.com/a"}, true},
		{"long format", Resource{SourceURL: "https://cdn.example.com/a", FormatID: strings.Repeat("f", 65)}, true},
		{"long title", Resource{SourceURL: "https://cdn.example.com/a", FormatID: "x", Title: strings.Repeat("t", 257)}, true},
		{"long url", Resource{SourceURL: "https://cdn.example.com/" + strings.Repeat("a", 2048), FormatID: "x"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.r.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !IsDomainError(err, CodeValidation) {
				t.Errorf("Validate() error code = %q, want VALIDATION_ERROR", GetErrorCode(err))
			}
		})
	}
}

func TestResource_Host(t *testing.T) {
	r := Resource{SourceURL: "https://CDN.Example.com:8443/a.mp4"}
	if got := r.Host(); got != "cdn.example.com" {
		t.Errorf("Host() = %q", got)
	}
}
