package domain

import "testing"

func TestNewClientBinding(t *testing.T) {
	if NewClientBinding(nil) != nil {
		t.Error("nil client should produce no binding")
	}
	if NewClientBinding(&ClientInfo{}) != nil {
		t.Error("empty client should produce no binding")
	}

	b := NewClientBinding(&ClientInfo{IP: "203.0.113.7", UserAgent: "curl/8"})
	if b == nil {
		t.Fatal("expected a binding")
	}
	if len(b.Fingerprint) != 64 {
		t.Errorf("fingerprint length = %d, want 64", len(b.Fingerprint))
	}
}

func TestClientBinding_Matches(t *testing.T) {
	b := NewClientBinding(&ClientInfo{IP: "203.0.113.7", UserAgent: "curl/8"})

	tests := []struct {
		name   string
		client *ClientInfo
		want   bool
	}{
		{"same client", &ClientInfo{IP: "203.0.113.7", UserAgent: "curl/8"}, true},
		{"other ip", &ClientInfo{IP: "203.0.113.8", UserAgent: "curl/8"}, false},
		{"other agent", &ClientInfo{IP: "203.0.113.7", UserAgent: "wget"}, false},
		{"no client", nil, false},
		// Field boundaries are separated, so shifting bytes between them changes the digest.
		{"shifted fields", &ClientInfo{IP: "203.0.113.7c", UserAgent: "url/8"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := b.Matches(tt.client); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}

	var unbound *ClientBinding
	if !unbound.Matches(&ClientInfo{IP: "1.2.3.4"}) {
		t.Error("nil binding should match any client")
	}
}
