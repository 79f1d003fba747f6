package storage

import (
	"testing"

	"github.com/nadzzz/lrcdrill/internal/config"
)

func TestURL(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.StorageConfig
		key  string
		want string
	}{
		{
			name: "prefixed",
			cfg:  config.StorageConfig{Endpoint: "s3.example.com", Bucket: "drills", Prefix: "lrcdrill/", Secure: true},
			key:  "abc/learning_audio.mp3",
			want: "https://s3.example.com/drills/lrcdrill/abc/learning_audio.mp3",
		},
		{
			name: "escaped segments",
			cfg:  config.StorageConfig{Endpoint: "localhost:9000", Bucket: "b"},
			key:  "/my song/трек.mp3",
			want: "http://localhost:9000/b/my%20song/%D1%82%D1%80%D0%B5%D0%BA.mp3",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := New(tt.cfg)
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			if got := p.URL(tt.key); got != tt.want {
				t.Errorf("URL = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestNewRejectsBadEndpoint(t *testing.T) {
	if _, err := New(config.StorageConfig{Endpoint: "http://s3.example.com/path", Bucket: "b"}); err == nil {
		t.Error("expected error for an endpoint with scheme and path")
	}
}
