package acquire

import (
	"bytes"
	nurl "net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/go-shiori/go-readability"
	"golang.org/x/net/html"
)

var multiSpace = regexp.MustCompile(`[ \t]+`)
var multiNewline = regexp.MustCompile(`\n{3,}`)

func normalizeText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(multiSpace.ReplaceAllString(l, " "))
	}
	s = strings.TrimSpace(strings.Join(lines, "\n"))
	s = multiNewline.ReplaceAllString(s, "\n\n")
	return s
}

// capText truncates s to max runes (Unicode-safe).
func capText(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	return strings.TrimSpace(string([]rune(s)[:limit]))
}

// cleanHTML extracts the readable text and title of a page. Readability is
// tried first; pages it cannot handle fall back to a plain DOM walk.
func cleanHTML(body []byte, pageURL *nurl.URL, limit int) (text, title string) {
	if article, err := readability.FromReader(bytes.NewReader(body), pageURL); err == nil {
		text = normalizeText(article.TextContent)
		title = strings.TrimSpace(article.Title)
	}
	if utf8.RuneCountInString(text) < minTextLength {
		fbText, fbTitle := walkHTML(body)
		if utf8.RuneCountInString(fbText) > utf8.RuneCountInString(text) {
			text = fbText
		}
		if title == "" {
			title = fbTitle
		}
	}
	return capText(text, limit), title
}

var skipElements = map[string]bool{
	"script": true, "style": true, "noscript": true, "template": true,
	"svg": true, "iframe": true, "meta": true, "link": true,
}

var blockElements = map[string]bool{
	"p": true, "div": true, "br": true, "li": true, "ul": true, "ol": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"section": true, "article": true, "header": true, "footer": true,
	"tr": true, "table": true, "blockquote": true, "pre": true,
}

// walkHTML collects visible text from the DOM, skipping scripts and styles.
func walkHTML(body []byte) (text, title string) {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return "", ""
	}

	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if n.Data == "title" {
				if title == "" && n.FirstChild != nil {
					title = strings.TrimSpace(n.FirstChild.Data)
				}
				return
			}
			if skipElements[n.Data] {
				return
			}
		}
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode && blockElements[n.Data] {
			sb.WriteString("\n")
		}
	}
	walk(doc)

	return normalizeText(sb.String()), title
}
