package form

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/PentesterFlow/FormRelay/internal/logger"
	"github.com/PentesterFlow/FormRelay/internal/relayerr"
)

// Extractor produces a Data snapshot and a Target from raw HTML. It is
// stateless; every call takes its inputs explicitly and returns owned values.
type Extractor struct {
	baseURL        *url.URL
	fallbackAction string
	sink           logger.Sink
}

// NewExtractor creates an extractor bound to a base URL. fallbackAction may
// be empty; when set it is used for forms that declare no action attribute.
func NewExtractor(baseURL, fallbackAction string, sink logger.Sink) (*Extractor, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	if sink == nil {
		sink = logger.Nop()
	}
	return &Extractor{
		baseURL:        u,
		fallbackAction: fallbackAction,
		sink:           sink,
	}, nil
}

// Extract parses the HTML, locates the form matching selector (or the first
// form on the page when selector is empty), and returns the field snapshot,
// the resolved submission target, and any cookies the document sets outside
// of HTTP headers.
func (e *Extractor) Extract(html, selector string) (*Data, Target, []*ScriptCookie, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, Target{}, nil, relayerr.New(relayerr.Unknown, e.baseURL.String(), "extract", "HTML parse failed", err)
	}

	var sel *goquery.Selection
	if selector == "" {
		sel = doc.Find("form").First()
	} else {
		sel = doc.Find(selector).Filter("form").First()
		if sel.Length() == 0 {
			// Selector may point inside a wrapper; try matching descendants.
			sel = doc.Find(selector).Find("form").First()
		}
	}

	if sel.Length() == 0 {
		return nil, Target{}, nil, relayerr.NewFormNotFoundError(e.baseURL.String(), selector)
	}

	target, err := e.resolveTarget(sel)
	if err != nil {
		return nil, Target{}, nil, err
	}

	data := e.collectFields(sel)
	cookies := e.surfaceCookies(doc)

	e.sink.Debugf("extracted %d fields, target %s %s", data.Len(), target.Method, target.Action)
	return data, target, cookies, nil
}

// resolveTarget derives the submission target from the form element. The
// action is resolved against the base URL; the method defaults to POST when
// the form declares none.
func (e *Extractor) resolveTarget(sel *goquery.Selection) (Target, error) {
	action, _ := sel.Attr("action")
	if action == "" {
		if e.fallbackAction == "" {
			return Target{}, relayerr.NewMalformedFormError(e.baseURL.String(), "form has no action attribute and no fallback path is configured")
		}
		action = e.fallbackAction
	}

	ref, err := url.Parse(action)
	if err != nil {
		return Target{}, relayerr.NewMalformedFormError(e.baseURL.String(), "form action is not a valid URL")
	}
	resolved := e.baseURL.ResolveReference(ref)

	method := "POST"
	if m, ok := sel.Attr("method"); ok && m != "" {
		method = strings.ToUpper(strings.TrimSpace(m))
	}

	return Target{Action: resolved.String(), Method: method}, nil
}

// collectFields walks every input, select, and textarea inside the form in
// document order and applies standard browser submission semantics:
// checkbox/radio only when checked, select takes the selected (or first)
// option, nameless and disabled controls are skipped.
func (e *Extractor) collectFields(sel *goquery.Selection) *Data {
	data := NewData()

	sel.Find("input, textarea, select").Each(func(i int, s *goquery.Selection) {
		name, ok := s.Attr("name")
		if !ok || name == "" {
			return // unsubmittable
		}
		if _, disabled := s.Attr("disabled"); disabled {
			return
		}

		field, ok := e.parseField(name, s)
		if !ok {
			return
		}
		data.Set(field.Name, field.Value)
	})

	return data
}

// parseField reads one control into a tagged Field. The second return is
// false when the control would not be submitted by a browser (unchecked
// checkbox/radio, button-type inputs).
func (e *Extractor) parseField(name string, s *goquery.Selection) (Field, bool) {
	if s.Is("textarea") {
		return Field{Name: name, Kind: KindTextarea, Value: s.Text()}, true
	}

	if s.Is("select") {
		value := ""
		opt := s.Find("option[selected]").First()
		if opt.Length() == 0 {
			opt = s.Find("option").First()
		}
		if opt.Length() > 0 {
			if v, ok := opt.Attr("value"); ok {
				value = v
			} else {
				value = strings.TrimSpace(opt.Text())
			}
		}
		return Field{Name: name, Kind: KindSelect, Value: value}, true
	}

	typ, _ := s.Attr("type")
	typ = strings.ToLower(typ)
	value, _ := s.Attr("value")

	switch typ {
	case "checkbox", "radio":
		if _, checked := s.Attr("checked"); !checked {
			return Field{}, false
		}
		if value == "" {
			value = "on"
		}
		kind := KindCheckbox
		if typ == "radio" {
			kind = KindRadio
		}
		return Field{Name: name, Kind: kind, Value: value}, true
	case "submit", "button", "reset", "image":
		// Submitted only when clicked, which never happens here.
		return Field{}, false
	case "hidden":
		return Field{Name: name, Kind: KindHidden, Value: value}, true
	default:
		return Field{Name: name, Kind: KindText, Value: value}, true
	}
}
