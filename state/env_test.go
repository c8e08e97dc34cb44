package state

import (
	"context"
	"testing"
)

func TestContextRoundTrip(t *testing.T) {
	ctx := ContextWithEnv(context.Background())
	env := EnvFromContext(ctx)
	if env == nil {
		t.Fatal("no env in context")
	}
	if env.Uptime() < 0 {
		t.Fatal("uptime went backwards")
	}
}

func TestMissingEnvPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for context without env")
		}
	}()
	EnvFromContext(context.Background())
}
