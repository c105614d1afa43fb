package cache

import (
	"errors"
	"testing"

	"github.com/redis/go-redis/v9"
)

func TestParseURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"valid-redis", "redis://localhost:6379", false},
		{"valid-with-db", "redis://localhost:6379/0", false},
		{"wrong-scheme", "http://localhost:6379", true},
		{"empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseURL(tt.url)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseURL() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestKey(t *testing.T) {
	tests := []struct {
		prefix string
		want   string
	}{
		{"", "plan:abc"},
		{"lightup", "lightup:plan:abc"},
	}
	for _, tt := range tests {
		c := &Cache{prefix: tt.prefix}
		if got := c.Key("plan:abc"); got != tt.want {
			t.Errorf("Key() with prefix %q = %q, want %q", tt.prefix, got, tt.want)
		}
	}
}

func TestGetJSON_UnreachableHost(t *testing.T) {
	c := &Cache{Client: redis.NewClient(&redis.Options{Addr: "localhost:59999", MaxRetries: -1})}
	defer c.Close()

	var out map[string]int
	err := c.GetJSON(t.Context(), "k", &out)
	if err == nil || errors.Is(err, ErrMiss) {
		t.Fatalf("GetJSON() error = %v, want connection error", err)
	}
}

func TestNew_UnreachableHost(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping unreachable host test in short mode")
	}

	ctx := t.Context()
	_, err := New(ctx, "redis://localhost:59999", "test")
	if err == nil {
		t.Fatal("New() should return error for unreachable host")
	}
}
