package catalog

import (
	"context"
	"errors"
	"testing"
)

func TestStaticDirectoryGet(t *testing.T) {
	dir := NewStaticDirectory([]Channel{
		{ID: "tv-1", Name: "Main", Kind: ChannelTV},
		{ID: "radio-1", Name: "Radio", Kind: ChannelRadio},
	})

	ch, err := dir.Get(context.Background(), "radio-1")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if ch.Kind != ChannelRadio {
		t.Fatalf("expected radio kind, got %q", ch.Kind)
	}

	_, err = dir.Get(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestParseMediaKind(t *testing.T) {
	kind, err := ParseMediaKind(" Jingle ")
	if err != nil {
		t.Fatalf("ParseMediaKind returned error: %v", err)
	}
	if kind != MediaJingle {
		t.Fatalf("expected jingle, got %q", kind)
	}

	if kind, _ := ParseMediaKind(""); kind != MediaVideo {
		t.Fatalf("expected empty kind to default to video, got %q", kind)
	}

	if _, err := ParseMediaKind("podcast"); err == nil {
		t.Fatal("expected error for unknown kind")
	}
}
