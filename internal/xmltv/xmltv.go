// Package xmltv parses XMLTV guide documents into structured types. It handles
// the common subset of the format: channels with display names and icons, and
// programmes with start/stop attributes, title, description and category.
//
// Guide feeds in the wild disagree on which element carries each field, so
// programme fields are resolved through an ordered fallback chain rather than
// a single tag.
package xmltv

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"
	"time"
)

// dateLayout is the XMLTV timestamp format: YYYYMMDDHHMMSS ±HHMM.
const dateLayout = "20060102150405 -0700"

// Channel is a parsed <channel> element.
type Channel struct {
	ID          string
	DisplayName string
	IconSrc     string
}

// Programme is a parsed <programme> element with resolved fields.
type Programme struct {
	ChannelID   string
	Start       time.Time
	Stop        time.Time
	Title       string
	Description string
	Category    string
}

// Result holds the channels and programmes of one parsed document.
type Result struct {
	Channels   []Channel
	Programmes []Programme
}

type xmlChannel struct {
	ID           string   `xml:"id,attr"`
	DisplayNames []string `xml:"display-name"`
	Icons        []struct {
		Src string `xml:"src,attr"`
	} `xml:"icon"`
}

type xmlProgramme struct {
	Start     string   `xml:"start,attr"`
	Stop      string   `xml:"stop,attr"`
	Channel   string   `xml:"channel,attr"`
	Titles    []string `xml:"title"`
	SubTitles []string `xml:"sub-title"`
	Descs     []string `xml:"desc"`
	Reviews   []string `xml:"review"`
	Category  []string `xml:"category"`
}

// ParseDate parses an XMLTV timestamp against its explicit UTC offset.
// Timestamps without an offset are accepted and interpreted as UTC.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty xmltv date")
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		t, err = time.Parse("20060102150405", s)
		if err != nil {
			return time.Time{}, fmt.Errorf("parse xmltv date %q: %w", s, err)
		}
	}
	return t, nil
}

// firstNonEmpty resolves a field from ordered candidate lists, returning the
// first non-blank value found.
func firstNonEmpty(lists ...[]string) string {
	for _, list := range lists {
		for _, v := range list {
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		}
	}
	return ""
}

// Parse reads an XMLTV document from r. Malformed channel and programme
// elements are skipped so a partially broken feed still yields its usable
// entries; only a broken document structure returns an error.
func Parse(r io.Reader) (*Result, error) {
	decoder := xml.NewDecoder(r)
	result := &Result{}

	var inTV bool
	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("xml token: %w", err)
		}

		switch el := token.(type) {
		case xml.StartElement:
			switch el.Name.Local {
			case "tv":
				inTV = true

			case "channel":
				if !inTV {
					continue
				}
				var raw xmlChannel
				if err := decoder.DecodeElement(&raw, &el); err != nil {
					continue
				}
				if raw.ID == "" {
					continue
				}
				ch := Channel{ID: raw.ID, DisplayName: firstNonEmpty(raw.DisplayNames)}
				if len(raw.Icons) > 0 {
					ch.IconSrc = raw.Icons[0].Src
				}
				result.Channels = append(result.Channels, ch)

			case "programme":
				if !inTV {
					continue
				}
				var raw xmlProgramme
				if err := decoder.DecodeElement(&raw, &el); err != nil {
					continue
				}

				start, err := ParseDate(raw.Start)
				if err != nil {
					continue
				}
				stop, err := ParseDate(raw.Stop)
				if err != nil {
					continue
				}

				result.Programmes = append(result.Programmes, Programme{
					ChannelID:   raw.Channel,
					Start:       start,
					Stop:        stop,
					Title:       firstNonEmpty(raw.Titles, raw.SubTitles),
					Description: firstNonEmpty(raw.Descs, raw.Reviews),
					Category:    firstNonEmpty(raw.Category),
				})
			}

		case xml.EndElement:
			if el.Name.Local == "tv" {
				inTV = false
			}
		}
	}

	return result, nil
}
