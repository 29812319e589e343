package form

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ScriptCookie is a cookie the document sets outside of HTTP headers, e.g.
// from an inline script or a meta directive. The transport merges these into
// its jar with the same last-write-wins rule as header-derived cookies.
type ScriptCookie struct {
	Name  string
	Value string
	Path  string
}

// HTTPCookie converts to a standard cookie.
func (c *ScriptCookie) HTTPCookie() *http.Cookie {
	path := c.Path
	if path == "" {
		path = "/"
	}
	return &http.Cookie{Name: c.Name, Value: c.Value, Path: path}
}

// setCookieCall matches helper-style cookie setters such as
// Helper.setCookie("name", "value", true). The pattern comes straight from
// the kind of server-rendered pages this tool targets.
var setCookieCall = regexp.MustCompile(`(?i)\w+\.setCookie\(\s*"([^"]+)"\s*,\s*"([^"]*)"\s*(?:,\s*(?:true|false)\s*)?\)`)

// documentCookieAssign matches direct document.cookie = "name=value; ..." assignments.
var documentCookieAssign = regexp.MustCompile(`document\.cookie\s*=\s*["']([^=;"']+)=([^;"']*)`)

// surfaceCookies scans script bodies and meta tags for cookie-setting
// directives the server expects the browser to have executed.
func (e *Extractor) surfaceCookies(doc *goquery.Document) []*ScriptCookie {
	cookies := make([]*ScriptCookie, 0, 2)

	doc.Find("script").Each(func(i int, s *goquery.Selection) {
		text := s.Text()
		if text == "" {
			return
		}
		for _, m := range setCookieCall.FindAllStringSubmatch(text, -1) {
			cookies = append(cookies, &ScriptCookie{Name: m[1], Value: m[2], Path: "/"})
		}
		for _, m := range documentCookieAssign.FindAllStringSubmatch(text, -1) {
			cookies = append(cookies, &ScriptCookie{Name: strings.TrimSpace(m[1]), Value: m[2], Path: "/"})
		}
	})

	doc.Find(`meta[http-equiv]`).Each(func(i int, s *goquery.Selection) {
		equiv, _ := s.Attr("http-equiv")
		if !strings.EqualFold(equiv, "set-cookie") {
			return
		}
		content, _ := s.Attr("content")
		if c := parseMetaCookie(content); c != nil {
			cookies = append(cookies, c)
		}
	})

	if len(cookies) > 0 {
		e.sink.Infof("document surfaced %d cookie(s)", len(cookies))
	}
	return cookies
}

// parseMetaCookie parses "name=value; path=/; ..." meta content.
func parseMetaCookie(content string) *ScriptCookie {
	parts := strings.Split(content, ";")
	if len(parts) == 0 {
		return nil
	}
	name, value, ok := strings.Cut(strings.TrimSpace(parts[0]), "=")
	if !ok || name == "" {
		return nil
	}
	cookie := &ScriptCookie{Name: name, Value: value, Path: "/"}
	for _, attr := range parts[1:] {
		k, v, _ := strings.Cut(strings.TrimSpace(attr), "=")
		if strings.EqualFold(k, "path") && v != "" {
			cookie.Path = v
		}
	}
	return cookie
}
