// Package content turns published issue HTML into the plain text that is
// sent to the summarization oracle.
package content

import (
	"math"
	"strings"

	"golang.org/x/net/html"
)

const wordsPerMinute = 200

// PlainText renders HTML as readable plain text: block elements end with a
// blank line, list items become "- " lines, scripts and styles are dropped.
// Input that is not HTML passes through with whitespace normalised.
func PlainText(htmlContent string) (string, error) {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return "", err
	}

	var buf strings.Builder

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "iframe", "head":
				return
			case "br":
				buf.WriteString("\n")
				return
			case "li":
				ensureLineStart(&buf)
				buf.WriteString("- ")
			}
		}

		if n.Type == html.TextNode {
			buf.WriteString(collapseSpace(n.Data))
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}

		if n.Type == html.ElementNode {
			switch n.Data {
			case "p", "h1", "h2", "h3", "h4", "h5", "h6", "blockquote", "pre", "ul", "ol", "div", "section", "article", "table":
				buf.WriteString("\n\n")
			case "li", "tr":
				buf.WriteString("\n")
			}
		}
	}
	walk(doc)

	return tidy(buf.String()), nil
}

// ReadingTime estimates reading time in whole minutes
func ReadingTime(text string) int {
	words := len(strings.Fields(text))
	if words == 0 {
		return 0
	}
	return int(math.Ceil(float64(words) / wordsPerMinute))
}

// Truncate returns at most max runes of text, never splitting a character
func Truncate(text string, max int) string {
	if max <= 0 {
		return text
	}
	n := 0
	for i := range text {
		if n == max {
			return text[:i]
		}
		n++
	}
	return text
}

func ensureLineStart(buf *strings.Builder) {
	s := buf.String()
	if s != "" && !strings.HasSuffix(s, "\n") {
		buf.WriteString("\n")
	}
}

// collapseSpace folds runs of whitespace into single spaces, keeping a
// leading or trailing space so adjacent inline elements stay separated
func collapseSpace(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		if s != "" {
			return " "
		}
		return ""
	}

	out := strings.Join(fields, " ")
	if isSpace(s[0]) {
		out = " " + out
	}
	if isSpace(s[len(s)-1]) {
		out += " "
	}
	return out
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\n' || b == '\t' || b == '\r' || b == '\f'
}

// tidy trims every line and collapses runs of blank lines
func tidy(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			if !blank && len(out) > 0 {
				out = append(out, "")
			}
			blank = true
			continue
		}
		blank = false
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
