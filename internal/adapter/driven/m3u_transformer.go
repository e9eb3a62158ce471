package driven

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/avillega/iptv-cache/internal/catalog"
	"github.com/avillega/iptv-cache/internal/normalize"
	driven "github.com/avillega/iptv-cache/internal/port/driven"
)

var (
	tvgIDRegex      = regexp.MustCompile(`tvg-id="([^"]*)"`)
	tvgNameRegex    = regexp.MustCompile(`tvg-name="([^"]*)"`)
	tvgLogoRegex    = regexp.MustCompile(`tvg-logo="([^"]*)"`)
	groupTitleRegex = regexp.MustCompile(`group-title="([^"]*)"`)
	urlTvgRegex     = regexp.MustCompile(`(?:url-tvg|x-tvg-url)="([^"]*)"`)
)

// M3UTransformer converts an M3U playlist into catalog channels. It
// implements the driven.PlaylistTransformer port: the concrete collaborator
// behind the catalog rebuild.
type M3UTransformer struct {
	fetcher driven.Fetcher
}

// NewM3UTransformer creates a playlist transformer backed by the given
// fetcher.
func NewM3UTransformer(fetcher driven.Fetcher) *M3UTransformer {
	return &M3UTransformer{fetcher: fetcher}
}

// Transform downloads the playlist behind url and converts its entries into
// a catalog load. It either fully succeeds or returns an error.
func (t *M3UTransformer) Transform(ctx context.Context, url string) (catalog.Load, error) {
	body, err := t.fetcher.Fetch(ctx, url)
	if err != nil {
		return catalog.Load{}, fmt.Errorf("fetching playlist: %w", err)
	}

	content := string(body)
	if !strings.Contains(content, "#EXTM3U") {
		return catalog.Load{}, fmt.Errorf("content from %s is not an M3U playlist", url)
	}

	lines := strings.Split(content, "\n")

	var channels []catalog.Channel
	var guideURLs []string
	genreSet := make(map[string]struct{})
	seen := make(map[string]struct{})

	for i := 0; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])

		if strings.HasPrefix(line, "#EXTM3U") {
			guideURLs = append(guideURLs, extractGuideURLs(line)...)
			continue
		}

		if !strings.HasPrefix(line, "#EXTINF:") {
			continue
		}
		if i+1 >= len(lines) {
			break
		}

		metadata := line
		i++
		streamURL := strings.TrimSpace(lines[i])
		if streamURL == "" || strings.HasPrefix(streamURL, "#") {
			continue
		}

		name := extractDisplayName(metadata)
		if name == "" {
			name = firstAttr(tvgNameRegex, metadata)
		}
		if name == "" {
			continue
		}

		id := firstAttr(tvgIDRegex, metadata)
		if id == "" {
			id = normalize.ID(name)
		}
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}

		var genres []string
		if group := firstAttr(groupTitleRegex, metadata); group != "" {
			genres = append(genres, group)
			genreSet[group] = struct{}{}
		}

		ch, err := catalog.NewChannel(id, name, firstAttr(tvgIDRegex, metadata), genres,
			firstAttr(tvgLogoRegex, metadata), "", "", "")
		if err != nil {
			continue
		}

		seen[id] = struct{}{}
		channels = append(channels, ch)
	}

	if len(channels) == 0 {
		return catalog.Load{}, fmt.Errorf("playlist %s yielded no channels", url)
	}

	genres := make([]string, 0, len(genreSet))
	for g := range genreSet {
		genres = append(genres, g)
	}
	sort.Strings(genres)

	return catalog.Load{Channels: channels, Genres: genres, GuideURLs: guideURLs}, nil
}

// extractDisplayName extracts the display name from an EXTINF line: the text
// after the last comma.
func extractDisplayName(extinf string) string {
	commaIdx := strings.LastIndex(extinf, ",")
	if commaIdx == -1 {
		return ""
	}
	return strings.TrimSpace(extinf[commaIdx+1:])
}

// extractGuideURLs pulls guide source URLs out of an #EXTM3U header line,
// announced via url-tvg or x-tvg-url attributes as a comma-separated list.
func extractGuideURLs(header string) []string {
	var urls []string
	for _, m := range urlTvgRegex.FindAllStringSubmatch(header, -1) {
		for _, part := range strings.Split(m[1], ",") {
			if u := strings.TrimSpace(part); u != "" {
				urls = append(urls, u)
			}
		}
	}
	return urls
}

func firstAttr(re *regexp.Regexp, s string) string {
	matches := re.FindStringSubmatch(s)
	if len(matches) > 1 {
		return strings.TrimSpace(matches[1])
	}
	return ""
}
