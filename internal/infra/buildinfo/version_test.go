package buildinfo

import (
	"runtime"
	"strings"
	"testing"
)

func TestGet(t *testing.T) {
	info := Get()

	if info.Version == "" || info.Commit == "" || info.BuildTime == "" {
		t.Errorf("Get() = %+v, want defaults populated", info)
	}
	if info.GoVersion != runtime.Version() {
		t.Errorf("GoVersion = %q, want %q", info.GoVersion, runtime.Version())
	}
}

func TestString(t *testing.T) {
	expected := Version + " (" + Commit + ") built at " + BuildTime
	if s := String(); s != expected {
		t.Errorf("String() = %q, want %q", s, expected)
	}
}

func TestUserAgent(t *testing.T) {
	ua := UserAgent("streamgate")
	if !strings.HasPrefix(ua, "streamgate/") || !strings.HasSuffix(ua, Version) {
		t.Errorf("UserAgent() = %q", ua)
	}
}
