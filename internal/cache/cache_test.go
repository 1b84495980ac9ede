package cache

import (
	"testing"

	"github.com/redis/go-redis/v9"
)

func TestNew_NilClient_ReturnsError(t *testing.T) {
	_, err := New(nil, "")
	if err == nil {
		t.Fatal("expected error for nil redis client")
	}
}

func TestNew_DefaultKeyPrefix(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	defer client.Close()

	c, err := New(client, "")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if got := c.buildKey("session:token:mra_abc"); got != "gatekey:session:token:mra_abc" {
		t.Errorf("buildKey() = %q, want %q", got, "gatekey:session:token:mra_abc")
	}
}

func TestNew_CustomKeyPrefix(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	defer client.Close()

	c, err := New(client, "test:")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if got := c.buildKey("user:id:u1"); got != "test:user:id:u1" {
		t.Errorf("buildKey() = %q, want %q", got, "test:user:id:u1")
	}
}
