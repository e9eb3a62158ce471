package driven

import (
	"context"
	"errors"
	"testing"
)

// stubFetcher is a fixed-response implementation of driven.Fetcher for
// transformer tests.
type stubFetcher struct {
	body []byte
	err  error
}

func (s *stubFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	return s.body, s.err
}

const samplePlaylist = `#EXTM3U url-tvg="http://example.com/guide.xml,http://example.com/extra.xml"
#EXTINF:-1 tvg-id="rai1.it" tvg-name="Rai 1" tvg-logo="http://example.com/rai1.png" group-title="News",Rai 1
http://stream.example.com/rai1
#EXTINF:-1 group-title="Entertainment",Canale 5
http://stream.example.com/canale5
#EXTINF:-1 tvg-id="rai1.it",Rai 1 Duplicate
http://stream.example.com/rai1-dup
`

func TestM3UTransformer_Transform(t *testing.T) {
	t.Run("converts playlist entries into a catalog load", func(t *testing.T) {
		transformer := NewM3UTransformer(&stubFetcher{body: []byte(samplePlaylist)})

		load, err := transformer.Transform(context.Background(), "http://example.com/playlist.m3u")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if len(load.Channels) != 2 {
			t.Fatalf("expected 2 channels, got %d", len(load.Channels))
		}

		rai1 := load.Channels[0]
		if rai1.ID() != "rai1.it" {
			t.Errorf("expected id rai1.it, got %q", rai1.ID())
		}
		if rai1.Name() != "Rai 1" {
			t.Errorf("expected name Rai 1, got %q", rai1.Name())
		}
		if rai1.EPGID() != "rai1.it" {
			t.Errorf("expected guide linkage rai1.it, got %q", rai1.EPGID())
		}
		if rai1.Logo() != "http://example.com/rai1.png" {
			t.Errorf("unexpected logo %q", rai1.Logo())
		}
		if !rai1.HasGenre("News") {
			t.Error("expected News genre")
		}
	})

	t.Run("falls back to the normalized name when tvg-id is missing", func(t *testing.T) {
		transformer := NewM3UTransformer(&stubFetcher{body: []byte(samplePlaylist)})

		load, err := transformer.Transform(context.Background(), "http://example.com/playlist.m3u")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if load.Channels[1].ID() != "canale5" {
			t.Errorf("expected normalized id canale5, got %q", load.Channels[1].ID())
		}
	})

	t.Run("drops duplicate channel ids", func(t *testing.T) {
		transformer := NewM3UTransformer(&stubFetcher{body: []byte(samplePlaylist)})

		load, err := transformer.Transform(context.Background(), "http://example.com/playlist.m3u")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		for _, ch := range load.Channels {
			if ch.Name() == "Rai 1 Duplicate" {
				t.Error("expected duplicate id to be dropped")
			}
		}
	})

	t.Run("collects sorted genres", func(t *testing.T) {
		transformer := NewM3UTransformer(&stubFetcher{body: []byte(samplePlaylist)})

		load, err := transformer.Transform(context.Background(), "http://example.com/playlist.m3u")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(load.Genres) != 2 || load.Genres[0] != "Entertainment" || load.Genres[1] != "News" {
			t.Errorf("unexpected genres %v", load.Genres)
		}
	})

	t.Run("extracts announced guide urls from the header", func(t *testing.T) {
		transformer := NewM3UTransformer(&stubFetcher{body: []byte(samplePlaylist)})

		load, err := transformer.Transform(context.Background(), "http://example.com/playlist.m3u")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(load.GuideURLs) != 2 {
			t.Fatalf("expected 2 guide urls, got %d", len(load.GuideURLs))
		}
		if load.GuideURLs[0] != "http://example.com/guide.xml" {
			t.Errorf("unexpected guide url %q", load.GuideURLs[0])
		}
	})

	t.Run("rejects content without an M3U header", func(t *testing.T) {
		transformer := NewM3UTransformer(&stubFetcher{body: []byte("<html>not a playlist</html>")})

		if _, err := transformer.Transform(context.Background(), "http://example.com/playlist.m3u"); err == nil {
			t.Error("expected error for non-M3U content")
		}
	})

	t.Run("rejects a playlist with no usable channels", func(t *testing.T) {
		transformer := NewM3UTransformer(&stubFetcher{body: []byte("#EXTM3U\n")})

		if _, err := transformer.Transform(context.Background(), "http://example.com/playlist.m3u"); err == nil {
			t.Error("expected error for empty playlist")
		}
	})

	t.Run("propagates fetch errors", func(t *testing.T) {
		fetchErr := errors.New("connection refused")
		transformer := NewM3UTransformer(&stubFetcher{err: fetchErr})

		if _, err := transformer.Transform(context.Background(), "http://example.com/playlist.m3u"); !errors.Is(err, fetchErr) {
			t.Errorf("expected fetch error, got %v", err)
		}
	})
}
