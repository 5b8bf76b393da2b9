package extract

import (
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// Link is a URL found in free text, with the anchor text when there was one
type Link struct {
	URL   string
	Title string
}

var (
	markdownLinkRE = regexp.MustCompile(`\[([^\]]+)\]\((https?://[^\s)]+)\)`)
	bareURLRE      = regexp.MustCompile(`https?://[^\s<>"'\]\[)(]+`)
)

// ExtractLinks finds http(s) URLs in an answer, markdown links first so their
// titles are kept. Results are deduplicated in order of appearance.
func ExtractLinks(text string) []Link {
	var links []Link
	seen := make(map[string]bool)

	add := func(raw, title string) {
		u := normalizeLink(raw)
		if u == "" || seen[u] {
			return
		}
		seen[u] = true
		links = append(links, Link{URL: u, Title: strings.TrimSpace(title)})
	}

	for _, m := range markdownLinkRE.FindAllStringSubmatch(text, -1) {
		add(m[2], m[1])
	}
	for _, m := range bareURLRE.FindAllString(text, -1) {
		add(m, "")
	}

	return links
}

func normalizeLink(raw string) string {
	raw = strings.TrimRight(raw, ".,;:!?*_")

	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" {
		return ""
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return ""
	}
	return parsed.String()
}

// Domain returns the host of rawURL without port or "www.", or "unknown"
func Domain(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Hostname() == "" {
		return "unknown"
	}
	return strings.TrimPrefix(strings.ToLower(parsed.Hostname()), "www.")
}

// PageTitle returns the best title of an HTML page: og:title, then <title>,
// then the first <h1>
func PageTitle(htmlContent string) string {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return ""
	}

	var ogTitle, title, h1 string

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript":
				return
			case "meta":
				if attr(n, "property") == "og:title" && ogTitle == "" {
					ogTitle = strings.TrimSpace(attr(n, "content"))
				}
			case "title":
				if title == "" {
					title = textContent(n)
				}
			case "h1":
				if h1 == "" {
					h1 = textContent(n)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	for _, t := range []string{ogTitle, title, h1} {
		if t != "" {
			return t
		}
	}
	return ""
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	var buf strings.Builder

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
			buf.WriteString(" ")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)

	return strings.Join(strings.Fields(buf.String()), " ")
}
