package inference

import (
	"strings"

	"golang.org/x/net/html"
)

// Elements whose subtree carries no user-visible text.
var skippedElements = map[string]bool{
	"script": true,
	"style":  true,
	"head":   true,
	"img":    true,
	"title":  true,
}

// Elements that end a visual block; a newline keeps amounts and dates from
// running into neighbouring table cells.
var blockElements = map[string]bool{
	"p": true, "div": true, "br": true, "li": true, "tr": true,
	"td": true, "table": true, "h1": true, "h2": true, "h3": true,
	"h4": true, "h5": true, "h6": true, "ul": true, "ol": true,
	"blockquote": true, "section": true, "article": true, "hr": true,
}

// htmlToText flattens an HTML document to plain text: tags stripped, script,
// style and image content skipped, block structure preserved as newlines,
// hyperlink targets ignored (only anchor text survives).
func htmlToText(src string) string {
	doc, err := html.Parse(strings.NewReader(src))
	if err != nil {
		// html.Parse is extremely tolerant; if it does fail, the raw
		// markup is still better than nothing for keyword matching.
		return src
	}

	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && skippedElements[n.Data] {
			return
		}
		if n.Type == html.TextNode {
			if text := strings.TrimSpace(n.Data); text != "" {
				if s := b.String(); s != "" && !strings.HasSuffix(s, "\n") {
					b.WriteByte(' ')
				}
				b.WriteString(text)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode && blockElements[n.Data] {
			b.WriteByte('\n')
		}
	}
	walk(doc)

	return strings.TrimSpace(b.String())
}
