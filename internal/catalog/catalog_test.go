package catalog

import (
	"errors"
	"testing"
)

func TestLoad(t *testing.T) {
	t.Parallel()

	cat, err := Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	models := cat.All()
	if len(models) == 0 {
		t.Fatalf("expected embedded models")
	}

	seen := map[string]bool{}
	for _, m := range models {
		if m.ID == "" || m.Name == "" || m.Task == "" {
			t.Fatalf("incomplete model entry: %+v", m)
		}
		if seen[m.ID] {
			t.Fatalf("duplicate model id %q", m.ID)
		}
		seen[m.ID] = true
	}

	for _, id := range []string{"mobilenet-v2", "resnet-50", "yolo-v8", "cell-counter-v2"} {
		if !seen[id] {
			t.Fatalf("expected model %q in catalog", id)
		}
	}
}

func TestGet(t *testing.T) {
	t.Parallel()

	cat, err := Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	m, err := cat.Get("mobilenet-v2")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if m.Name != "MobileNet" {
		t.Fatalf("unexpected model name %q", m.Name)
	}

	if _, err := cat.Get("nope"); !errors.Is(err, ErrModelNotFound) {
		t.Fatalf("expected ErrModelNotFound, got %v", err)
	}
}
