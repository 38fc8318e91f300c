package loader

import (
	"errors"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Elements whose content never reaches the extracted text.
var skippedElements = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Head:     true,
	atom.Nav:      true,
	atom.Footer:   true,
	atom.Form:     true,
	atom.Iframe:   true,
	atom.Svg:      true,
}

// Elements that start a new paragraph.
var blockElements = map[atom.Atom]bool{
	atom.P: true, atom.Div: true, atom.Section: true, atom.Article: true,
	atom.Blockquote: true, atom.Pre: true, atom.Li: true, atom.Tr: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Table: true, atom.Ul: true, atom.Ol: true, atom.Dd: true, atom.Dt: true,
}

// ExtractHTMLText returns the readable text of an HTML document with
// paragraphs separated by blank lines.
func ExtractHTMLText(r io.Reader) (string, error) {
	z := html.NewTokenizer(r)
	var sb strings.Builder
	skip := 0

	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			if errors.Is(z.Err(), io.EOF) {
				return normalizeWhitespace(sb.String()), nil
			}
			return "", z.Err()

		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			tag := atom.Lookup(name)
			if skippedElements[tag] {
				if tt == html.StartTagToken {
					skip++
				}
				continue
			}
			if skip > 0 {
				continue
			}
			switch {
			case blockElements[tag]:
				sb.WriteString("\n\n")
			case tag == atom.Br:
				sb.WriteString("\n")
			}

		case html.EndTagToken:
			name, _ := z.TagName()
			tag := atom.Lookup(name)
			if skippedElements[tag] {
				if skip > 0 {
					skip--
				}
				continue
			}
			if skip == 0 && blockElements[tag] {
				sb.WriteString("\n\n")
			}

		case html.TextToken:
			if skip > 0 {
				continue
			}
			text := strings.NewReplacer("\r", " ", "\n", " ").Replace(string(z.Text()))
			sb.WriteString(text)
		}
	}
}

func normalizeWhitespace(s string) string {
	var paras []string
	for _, block := range strings.Split(s, "\n\n") {
		var kept []string
		for _, line := range strings.Split(block, "\n") {
			if f := strings.Join(strings.Fields(line), " "); f != "" {
				kept = append(kept, f)
			}
		}
		if len(kept) > 0 {
			paras = append(paras, strings.Join(kept, "\n"))
		}
	}
	return strings.Join(paras, "\n\n")
}
