// Package n8n holds the file exchange used by the n8n workflows: EPUB
// chapter extraction and JSON payload drops.
package n8n

import (
	"archive/zip"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/text/unicode/norm"
)

// ErrInvalidEPUB is returned for archives that are not readable EPUBs.
var ErrInvalidEPUB = errors.New("invalid epub")

// Chapter is one XHTML document of the book.
type Chapter struct {
	Title string `json:"title"`
	Text  string `json:"text"`
}

type container struct {
	Rootfiles []struct {
		FullPath string `xml:"full-path,attr"`
	} `xml:"rootfiles>rootfile"`
}

type packageDoc struct {
	Items []struct {
		ID         string `xml:"id,attr"`
		Href       string `xml:"href,attr"`
		MediaType  string `xml:"media-type,attr"`
		Properties string `xml:"properties,attr"`
	} `xml:"manifest>item"`
}

// ParseEPUB extracts the chapters of an EPUB in manifest order. The title
// is the first h1/h2, else the document <title>, else the item name; the
// text is the document's paragraphs joined by single spaces. The EPUB 3
// navigation document is skipped.
func ParseEPUB(r io.ReaderAt, size int64) ([]Chapter, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEPUB, err)
	}
	files := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		files[f.Name] = f
	}

	var c container
	if err := decodeXML(files, "META-INF/container.xml", &c); err != nil {
		return nil, err
	}
	if len(c.Rootfiles) == 0 || c.Rootfiles[0].FullPath == "" {
		return nil, fmt.Errorf("%w: container has no rootfile", ErrInvalidEPUB)
	}
	opfPath := c.Rootfiles[0].FullPath

	var pkg packageDoc
	if err := decodeXML(files, opfPath, &pkg); err != nil {
		return nil, err
	}

	base := path.Dir(opfPath)
	chapters := make([]Chapter, 0, len(pkg.Items))
	for _, item := range pkg.Items {
		if item.MediaType != "application/xhtml+xml" || hasProperty(item.Properties, "nav") {
			continue
		}
		href, err := url.PathUnescape(item.Href)
		if err != nil {
			href = item.Href
		}
		name := path.Join(base, href)
		f, ok := files[name]
		if !ok {
			return nil, fmt.Errorf("%w: manifest item %s missing from archive", ErrInvalidEPUB, item.Href)
		}
		ch, err := parseDocument(f, item.Href)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", item.Href, err)
		}
		chapters = append(chapters, ch)
	}
	return chapters, nil
}

func decodeXML(files map[string]*zip.File, name string, v any) error {
	f, ok := files[name]
	if !ok {
		return fmt.Errorf("%w: missing %s", ErrInvalidEPUB, name)
	}
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("%w: open %s: %v", ErrInvalidEPUB, name, err)
	}
	defer rc.Close()
	if err := xml.NewDecoder(rc).Decode(v); err != nil {
		return fmt.Errorf("%w: decode %s: %v", ErrInvalidEPUB, name, err)
	}
	return nil
}

func hasProperty(props, want string) bool {
	for _, p := range strings.Fields(props) {
		if p == want {
			return true
		}
	}
	return false
}

func parseDocument(f *zip.File, itemName string) (Chapter, error) {
	rc, err := f.Open()
	if err != nil {
		return Chapter{}, err
	}
	defer rc.Close()
	doc, err := html.Parse(rc)
	if err != nil {
		return Chapter{}, err
	}

	var heading, title string
	var paragraphs []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.H1, atom.H2:
				if heading == "" {
					heading = textOf(n)
				}
			case atom.Title:
				if title == "" {
					title = textOf(n)
				}
			case atom.P:
				if t := textOf(n); t != "" {
					paragraphs = append(paragraphs, t)
				}
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	ch := Chapter{Title: heading, Text: strings.Join(paragraphs, " ")}
	if ch.Title == "" {
		ch.Title = title
	}
	if ch.Title == "" {
		ch.Title = itemName
	}
	return ch, nil
}

// textOf returns the NFC-normalized text content of n with whitespace
// collapsed.
func textOf(n *html.Node) string {
	var b strings.Builder
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(n)
	return norm.NFC.String(strings.Join(strings.Fields(b.String()), " "))
}
