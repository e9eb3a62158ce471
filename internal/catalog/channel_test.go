package catalog

import (
	"errors"
	"testing"
)

func TestNewChannel(t *testing.T) {
	t.Run("creates channel with valid fields", func(t *testing.T) {
		ch, err := NewChannel("rai1", "Rai 1", "rai1.it", []string{"news"}, "logo.png", "poster.png", "bg.png", "Italian news")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if ch.ID() != "rai1" {
			t.Errorf("expected id rai1, got %q", ch.ID())
		}
		if ch.Name() != "Rai 1" {
			t.Errorf("expected name Rai 1, got %q", ch.Name())
		}
		if ch.EPGID() != "rai1.it" {
			t.Errorf("expected epg id rai1.it, got %q", ch.EPGID())
		}
	})

	t.Run("returns error for empty id", func(t *testing.T) {
		if _, err := NewChannel("", "Rai 1", "", nil, "", "", "", ""); !errors.Is(err, ErrEmptyID) {
			t.Errorf("expected ErrEmptyID, got %v", err)
		}
	})

	t.Run("returns error for empty name", func(t *testing.T) {
		if _, err := NewChannel("rai1", "", "", nil, "", "", "", ""); !errors.Is(err, ErrEmptyName) {
			t.Errorf("expected ErrEmptyName, got %v", err)
		}
	})
}

func TestChannel_HasGenre(t *testing.T) {
	ch, err := NewChannel("rai1", "Rai 1", "", []string{"news", "national"}, "", "", "", "")
	if err != nil {
		t.Fatalf("creating channel: %v", err)
	}

	if !ch.HasGenre("news") {
		t.Error("expected news genre")
	}
	if ch.HasGenre("sport") {
		t.Error("did not expect sport genre")
	}
}
