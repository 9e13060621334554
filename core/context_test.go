package core

import (
	"context"
	"testing"
	"time"
)

type ctxKey struct{}

func TestNewContext_Defaults(t *testing.T) {
	c := NewContext(nil, "u1")
	if c.UserID != "u1" {
		t.Fatalf("unexpected user id %q", c.UserID)
	}
	if c.InvocationID == "" {
		t.Fatal("expected generated invocation id")
	}
	if other := NewContext(context.Background(), "u1"); other.InvocationID == c.InvocationID {
		t.Fatal("invocation ids must be unique")
	}
	if c.Log() == nil {
		t.Fatal("Log must never return nil")
	}
}

func TestContext_DelegatesToParent(t *testing.T) {
	parent, cancel := context.WithTimeout(context.WithValue(context.Background(), ctxKey{}, "v"), time.Minute)
	c := NewContext(parent, "u1")

	if c.Value(ctxKey{}) != "v" {
		t.Fatal("Value should delegate to the parent context")
	}
	if _, ok := c.Deadline(); !ok {
		t.Fatal("Deadline should delegate to the parent context")
	}
	cancel()
	<-c.Done()
	if c.Err() == nil {
		t.Fatal("expected cancellation error")
	}
}

func TestContext_DataHelpers(t *testing.T) {
	c := NewContext(context.Background(), "u1")
	if _, ok := c.Get("missing"); ok {
		t.Fatal("unexpected value on empty data")
	}
	c.Set("k", 1)
	if v, ok := c.Get("k"); !ok || v.(int) != 1 {
		t.Fatalf("Set/Get mismatch: %+v", c.SessionData)
	}
	c.Delete("k")
	if len(c.SessionData) != 0 {
		t.Fatalf("expected empty data after delete: %+v", c.SessionData)
	}
	if c.WithPayload("msg").Payload != "msg" {
		t.Fatal("payload not set")
	}
}

func TestContext_Render(t *testing.T) {
	c := NewContext(context.Background(), "u1")
	c.Set("name", "ada")
	out, err := c.Render("Hello {{title .name}}, step {{default 1 .step}}")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if out != "Hello Ada, step 1" {
		t.Fatalf("unexpected render output %q", out)
	}
}
