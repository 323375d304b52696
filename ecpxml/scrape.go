// Copyright (c) 2025 Darren Soothill
// Licensed under the MIT License

// Package ecpxml scrapes the small XML documents returned by ECP query
// endpoints. It reads tokens as a stream and never builds a tree; text is
// whitespace-trimmed. Malformed input is reported as a *errors.ParseError.
package ecpxml

import (
	"encoding/xml"
	"io"
	"strings"

	"github.com/soothill/roku-ecp/pkg/errors"
)

// DeviceInfoRoot is the container element of query/device-info
const DeviceInfoRoot = "device-info"

const nbsp = "\u00a0"

// AppElement is one <app> entry of query/apps, attributes looked up by name.
type AppElement struct {
	ID      string
	Type    string
	Version string
	Name    string
}

// Flat returns a tag → text mapping of every element that carries text.
// Elements named in skip are ignored; later values overwrite earlier ones.
func Flat(body string, skip ...string) (map[string]string, error) {
	skipped := make(map[string]bool, len(skip))
	for _, s := range skip {
		skipped[s] = true
	}

	out := make(map[string]string)
	var stack []string

	err := walk(body, "flat", func(tok xml.Token) bool {
		switch t := tok.(type) {
		case xml.StartElement:
			stack = append(stack, t.Name.Local)
		case xml.EndElement:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		case xml.CharData:
			if len(stack) == 0 {
				return true
			}
			tag := stack[len(stack)-1]
			if skipped[tag] {
				return true
			}
			if text := strings.TrimSpace(string(t)); text != "" {
				out[tag] = text
			}
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeviceInfo scrapes a query/device-info document
func DeviceInfo(body string) (map[string]string, error) {
	return Flat(body, DeviceInfoRoot)
}

// Text returns the trimmed text of the first element named tag. found is
// false when no such element carries text.
func Text(body string, tag string) (text string, found bool, err error) {
	inside := false
	err = walk(body, tag, func(tok xml.Token) bool {
		switch t := tok.(type) {
		case xml.StartElement:
			inside = t.Name.Local == tag
		case xml.EndElement:
			inside = false
		case xml.CharData:
			if !inside {
				return true
			}
			if s := strings.TrimSpace(string(t)); s != "" {
				text, found = s, true
				return false
			}
		}
		return true
	})
	return text, found, err
}

// Apps scrapes a query/apps document into its <app> entries, in order.
// Non-breaking spaces are removed from names.
func Apps(body string) ([]AppElement, error) {
	var (
		apps    []AppElement
		current *AppElement
		name    strings.Builder
	)

	err := walk(body, "apps", func(tok xml.Token) bool {
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local != "app" {
				return true
			}
			current = &AppElement{
				ID:      attr(t, "id"),
				Type:    attr(t, "type"),
				Version: attr(t, "version"),
			}
			name.Reset()
		case xml.CharData:
			if current != nil {
				name.Write(t)
			}
		case xml.EndElement:
			if t.Name.Local != "app" || current == nil {
				return true
			}
			current.Name = strings.TrimSpace(strings.ReplaceAll(name.String(), nbsp, ""))
			apps = append(apps, *current)
			current = nil
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	return apps, nil
}

func attr(el xml.StartElement, name string) string {
	for _, a := range el.Attr {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

// walk feeds every token of body to fn until fn returns false or the input
// ends. Syntax errors become ParseErrors tagged with op.
func walk(body string, op string, fn func(xml.Token) bool) error {
	decoder := xml.NewDecoder(strings.NewReader(body))
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return errors.NewParseError(op, "", err)
		}
		if !fn(tok) {
			return nil
		}
	}
}
