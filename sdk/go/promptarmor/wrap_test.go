package promptarmor

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestWrapModelNeverSeesSecret(t *testing.T) {
	c := newTestClient(t)

	var sent string
	ask := c.Wrap(func(ctx context.Context, prompt string) (string, error) {
		sent = prompt
		return "I will email {{EMAIL_1}} today.", nil
	})

	reply, err := ask(context.Background(), "Draft a note to alice@example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sent != "Draft a note to {{EMAIL_1}}" {
		t.Fatalf("model received %q", sent)
	}
	if reply != "I will email alice@example.com today." {
		t.Fatalf("reply not restored: %q", reply)
	}
}

func TestWrapWithLegend(t *testing.T) {
	c := newTestClient(t)

	var sent string
	ask := c.Wrap(func(ctx context.Context, prompt string) (string, error) {
		sent = prompt
		return "ok", nil
	}, WrapWithLegend())

	if _, err := ask(context.Background(), "no secrets here"); err != nil {
		t.Fatal(err)
	}
	if sent != "no secrets here" {
		t.Fatalf("legend added to clean prompt: %q", sent)
	}

	if _, err := ask(context.Background(), "ssn 123-45-6789"); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(sent, "Sensitive values") || !strings.HasSuffix(sent, "ssn {{SSN_1}}") {
		t.Fatalf("unexpected prompt %q", sent)
	}
	if strings.Contains(sent, "123-45-6789") {
		t.Fatal("secret leaked with legend")
	}
}

func TestWrapPropagatesError(t *testing.T) {
	c := newTestClient(t)
	boom := errors.New("rate limited")

	ask := c.Wrap(func(ctx context.Context, prompt string) (string, error) {
		return "partial {{EMAIL_1}}", boom
	})

	reply, err := ask(context.Background(), "x@y.io")
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
	if reply != "partial x@y.io" {
		t.Fatalf("partial reply not restored: %q", reply)
	}
}
