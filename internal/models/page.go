// Package models defines the hypermedia document schema returned by the
// content API and the outward types handed to the host.
package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Link is a single hypermedia link. Hrefs may carry RFC 6570 template
// fragments; the gateway strips them before dispatch.
type Link struct {
	Href       string `json:"href"`
	Title      string `json:"title,omitempty"`
	Name       string `json:"name,omitempty"`
	ID         string `json:"id,omitempty"`
	Type       string `json:"type,omitempty"`
	Date       string `json:"date,omitempty"`
	ReleasePid string `json:"releasePid,omitempty"`
}

// Links holds a document's "_links" object. JSON objects are unordered
// in Go maps, but menu construction must preserve the server's link
// order, so the original key sequence is recorded during unmarshal.
type Links struct {
	order []string
	raw   map[string]json.RawMessage
}

func (l *Links) UnmarshalJSON(data []byte) error {
	l.order = nil
	l.raw = make(map[string]json.RawMessage)

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("links: expected object, got %v", tok)
	}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key := keyTok.(string)
		var val json.RawMessage
		if err := dec.Decode(&val); err != nil {
			return fmt.Errorf("links: rel %q: %w", key, err)
		}
		if _, seen := l.raw[key]; !seen {
			l.order = append(l.order, key)
		}
		l.raw[key] = val
	}
	return nil
}

func (l Links) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, rel := range l.order {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(rel)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(l.raw[rel])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Rels returns the relation names in document order.
func (l Links) Rels() []string {
	return append([]string(nil), l.order...)
}

// Has reports whether the relation is present.
func (l Links) Has(rel string) bool {
	_, ok := l.raw[rel]
	return ok
}

// Get returns the link for rel. When the relation holds a list, the
// first entry is returned.
func (l Links) Get(rel string) (Link, bool) {
	all := l.GetAll(rel)
	if len(all) == 0 {
		return Link{}, false
	}
	return all[0], true
}

// GetAll returns every link under rel, normalizing the single-object
// and list wire forms to a slice.
func (l Links) GetAll(rel string) []Link {
	raw, ok := l.raw[rel]
	if !ok {
		return nil
	}
	trimmed := bytes.TrimLeft(raw, " \t\r\n")
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var list []Link
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil
		}
		return list
	}
	var single Link
	if err := json.Unmarshal(raw, &single); err != nil {
		return nil
	}
	return []Link{single}
}

// Href returns the href for rel, or "" when absent.
func (l Links) Href(rel string) string {
	link, ok := l.Get(rel)
	if !ok {
		return ""
	}
	return link.Href
}

// Page is a hypermedia catalog document. Type distinguishes the
// navigation shape (page, product, ...); PageType and SectionType
// refine it for root and section pages.
type Page struct {
	Type        string          `json:"type"`
	PageType    string          `json:"pageType"`
	SectionType string          `json:"sectionType"`
	Title       string          `json:"title"`
	CurrentPage int             `json:"currentPage"`
	PageCount   int             `json:"pageCount"`
	User        json.RawMessage `json:"user"`
	Links       Links           `json:"_links"`
	Embedded    Embedded        `json:"_embedded"`
}

// Embedded carries a document's "_embedded" resources. The API uses
// several shapes: block lists on section pages, product lists inside
// blocks, and a single product on product pages.
type Embedded struct {
	Blocks   []Block   `json:"viaplay:blocks"`
	Products []Product `json:"viaplay:products"`
	Product  *Product  `json:"viaplay:product"`
	Channel  *Product  `json:"viaplay:channel"`
}

// Block is one content block inside a section page.
type Block struct {
	Type        string   `json:"type"`
	Title       string   `json:"title"`
	TotalCount  int      `json:"totalProductCount"`
	CurrentPage int      `json:"currentPage"`
	PageCount   int      `json:"pageCount"`
	Links       Links    `json:"_links"`
	Embedded    Embedded `json:"_embedded"`
}
