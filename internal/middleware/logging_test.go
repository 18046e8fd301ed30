package middleware

import "testing"

func TestSanitizePath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/api/posts", "/api/posts"},
		{"/api/posts/42", "/api/posts/:id"},
		{"/api/posts/42/vote", "/api/posts/:id/vote"},
		{"/api/users/me", "/api/users/me"},
		{"/health/ready", "/health/ready"},
	}
	for _, tt := range tests {
		if got := sanitizePath(tt.path); got != tt.want {
			t.Errorf("sanitizePath(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestHashIPForLog(t *testing.T) {
	h := hashIPForLog("203.0.113.9")
	if len(h) != 12 {
		t.Fatalf("len = %d, want 12", len(h))
	}
	if h == hashIPForLog("203.0.113.10") {
		t.Error("different IPs should hash differently")
	}
}
