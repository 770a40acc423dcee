package parser

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var (
	inlineSpaceRegex = regexp.MustCompile(`[ \t\x{00a0}]+`)
	blankLinesRegex  = regexp.MustCompile(`\n{3,}`)
)

// CleanHTML reformats a markup fragment into readable plain text: block
// elements become line breaks, list items become bullets, headings and
// emphasis keep a light markdown-like marker.
func CleanHTML(fragment string) string {
	if strings.TrimSpace(fragment) == "" {
		return ""
	}
	// catalog descriptions are often entity-escaped markup
	fragment = html.UnescapeString(fragment)

	root := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), root)
	if err != nil {
		return normalizeWhitespace(fragment)
	}

	var b strings.Builder
	for _, n := range nodes {
		collectText(&b, n)
	}
	return normalizeWhitespace(b.String())
}

func collectText(b *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		data := strings.ReplaceAll(n.Data, "\r", " ")
		b.WriteString(strings.ReplaceAll(data, "\t", " "))
		return
	case html.CommentNode, html.DoctypeNode:
		return
	}

	var open, end string
	if n.Type == html.ElementNode {
		switch n.DataAtom {
		case atom.Script, atom.Style, atom.Noscript, atom.Iframe:
			return
		case atom.Br:
			b.WriteString("\n")
			return
		case atom.P, atom.Div, atom.Ul, atom.Ol, atom.Table, atom.Tr:
			open, end = "\n", "\n"
		case atom.Li:
			open = "\n• "
		case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
			open, end = "\n=== ", " ===\n"
		case atom.Strong, atom.B:
			open, end = "**", "**"
		case atom.Em, atom.I:
			open, end = "*", "*"
		case atom.Td, atom.Th:
			end = " "
		}
	}

	b.WriteString(open)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(b, c)
	}
	b.WriteString(end)
}

func normalizeWhitespace(text string) string {
	text = inlineSpaceRegex.ReplaceAllString(text, " ")
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	text = strings.Join(lines, "\n")
	text = blankLinesRegex.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
