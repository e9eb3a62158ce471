package xmltv

import (
	"strings"
	"testing"
	"time"
)

const sampleXML = `<?xml version="1.0" encoding="UTF-8"?>
<tv generator-info-name="test">
	<channel id="Rai1.it">
		<display-name>Rai 1</display-name>
		<icon src="https://example.com/rai1.png"/>
	</channel>
	<channel id="Rai2.it">
		<display-name></display-name>
		<display-name>Rai 2</display-name>
	</channel>
	<channel id="">
		<display-name>Broken</display-name>
	</channel>
	<programme start="20260830100000 +0200" stop="20260830103000 +0200" channel="Rai1.it">
		<title>Morning News</title>
		<desc>Daily news roundup.</desc>
		<category>News</category>
	</programme>
	<programme start="20260830103000 +0200" stop="20260830113000 +0200" channel="Rai1.it">
		<title></title>
		<sub-title>Fallback Title</sub-title>
		<review>Fallback description.</review>
	</programme>
	<programme start="garbage" stop="20260830120000 +0200" channel="Rai1.it">
		<title>Unparsable</title>
	</programme>
</tv>`

func TestParse(t *testing.T) {
	result, err := Parse(strings.NewReader(sampleXML))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	t.Run("channels", func(t *testing.T) {
		if len(result.Channels) != 2 {
			t.Fatalf("expected 2 channels, got %d", len(result.Channels))
		}
		if result.Channels[0].ID != "Rai1.it" {
			t.Errorf("expected id Rai1.it, got %q", result.Channels[0].ID)
		}
		if result.Channels[0].IconSrc != "https://example.com/rai1.png" {
			t.Errorf("unexpected icon src %q", result.Channels[0].IconSrc)
		}
		if result.Channels[1].DisplayName != "Rai 2" {
			t.Errorf("expected blank display-name to be skipped, got %q", result.Channels[1].DisplayName)
		}
	})

	t.Run("programmes", func(t *testing.T) {
		if len(result.Programmes) != 2 {
			t.Fatalf("expected 2 programmes (unparsable start skipped), got %d", len(result.Programmes))
		}

		first := result.Programmes[0]
		if first.Title != "Morning News" || first.Description != "Daily news roundup." || first.Category != "News" {
			t.Errorf("unexpected first programme fields: %+v", first)
		}

		wantStart := time.Date(2026, 8, 30, 8, 0, 0, 0, time.UTC)
		if !first.Start.Equal(wantStart) {
			t.Errorf("expected start %v (offset applied), got %v", wantStart, first.Start)
		}
	})

	t.Run("fallback fields", func(t *testing.T) {
		second := result.Programmes[1]
		if second.Title != "Fallback Title" {
			t.Errorf("expected sub-title fallback, got %q", second.Title)
		}
		if second.Description != "Fallback description." {
			t.Errorf("expected review fallback, got %q", second.Description)
		}
		if second.Category != "" {
			t.Errorf("expected empty category default, got %q", second.Category)
		}
	})
}

func TestParse_BrokenDocument(t *testing.T) {
	_, err := Parse(strings.NewReader("<tv><channel id=\"a\">"))
	if err == nil {
		t.Fatal("expected error for truncated document")
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    time.Time
		wantErr bool
	}{
		{"with offset", "20260830100000 +0200", time.Date(2026, 8, 30, 8, 0, 0, 0, time.UTC), false},
		{"negative offset", "20260830100000 -0500", time.Date(2026, 8, 30, 15, 0, 0, 0, time.UTC), false},
		{"without offset", "20260830100000", time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC), false},
		{"empty", "", time.Time{}, true},
		{"garbage", "not-a-date", time.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDate(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tt.in)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("ParseDate(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
