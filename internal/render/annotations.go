package render

import (
	"regexp"
)

var (
	linkRe = regexp.MustCompile(`^(?P<pre>.*)\[(?P<text>.*)\]\((?P<url>[^(]+)\)(?P<post>.*)$`)
	codeRe = regexp.MustCompile("^(?P<pre>.*)`(?P<inner>.*)`(?P<post>.*)$")

	boldItalicRes = []*regexp.Regexp{
		regexp.MustCompile(`^(?P<pre>.*)\*\*\*(?P<inner>.*)\*\*\*(?P<post>.*)$`),
		regexp.MustCompile(`^(?P<pre>.*)__\*(?P<inner>.*)\*__(?P<post>.*)$`),
		regexp.MustCompile(`^(?P<pre>.*)\*\*_(?P<inner>.*)_\*\*(?P<post>.*)$`),
		regexp.MustCompile(`^(?P<pre>.*)___(?P<inner>.*)___(?P<post>.*)$`),
	}
	boldRes = []*regexp.Regexp{
		regexp.MustCompile(`^(?P<pre>.*)\*\*(?P<inner>.*)\*\*(?P<post>.*)$`),
		regexp.MustCompile(`^(?P<pre>.*)__(?P<inner>.*)__(?P<post>.*)$`),
	}
	italicRes = []*regexp.Regexp{
		regexp.MustCompile(`^(?P<pre>.*)\*(?P<inner>.*)\*(?P<post>.*)$`),
		regexp.MustCompile(`^(?P<pre>.*)_(?P<inner>.*)_(?P<post>.*)$`),
	}
)

type span struct {
	pre, inner, post string
	url              string
}

func matchSpan(re *regexp.Regexp, line string) (span, bool) {
	m := re.FindStringSubmatch(line)
	if m == nil {
		return span{}, false
	}
	var s span
	for i, name := range re.SubexpNames() {
		switch name {
		case "pre":
			s.pre = m[i]
		case "inner", "text":
			s.inner = m[i]
		case "post":
			s.post = m[i]
		case "url":
			s.url = m[i]
		}
	}
	return s, true
}

func matchAny(res []*regexp.Regexp, line string) (span, bool) {
	for _, re := range res {
		if s, ok := matchSpan(re, line); ok {
			return s, true
		}
	}
	return span{}, false
}

// inlineStyles is tried in precedence order after links.
var inlineStyles = []struct {
	res   []*regexp.Regexp
	style Annotations
}{
	{[]*regexp.Regexp{codeRe}, Annotations{Code: true}},
	{boldItalicRes, Annotations{Bold: true, Italic: true}},
	{boldRes, Annotations{Bold: true}},
	{italicRes, Annotations{Italic: true}},
}

// linkTextStyles decides the single style applied to link text.
var linkTextStyles = []struct {
	res   []*regexp.Regexp
	style Annotations
}{
	{boldItalicRes, Annotations{Bold: true, Italic: true}},
	{boldRes, Annotations{Bold: true}},
	{italicRes, Annotations{Italic: true}},
	{[]*regexp.Regexp{codeRe}, Annotations{Code: true}},
}

// ParseAnnotations splits a markdown line into styled rich text runs. Links
// are detected first, then code, bold-italic, bold and italic spans.
func ParseAnnotations(line string) []RichText {
	if line == "" {
		return nil
	}
	if s, ok := matchSpan(linkRe, line); ok {
		rt := RichText{Type: "text", Text: TextContent{Content: s.inner, Link: &Link{URL: s.url}}}
		for _, ls := range linkTextStyles {
			if inner, ok := matchAny(ls.res, s.inner); ok {
				style := ls.style
				rt.Text.Content = inner.inner
				rt.Annotations = &style
				break
			}
		}
		return join(ParseAnnotations(s.pre), []RichText{rt}, ParseAnnotations(s.post))
	}
	for _, is := range inlineStyles {
		if s, ok := matchAny(is.res, line); ok {
			style := is.style
			rt := RichText{Type: "text", Text: TextContent{Content: s.inner}, Annotations: &style}
			return join(ParseAnnotations(s.pre), []RichText{rt}, ParseAnnotations(s.post))
		}
	}
	return []RichText{plainText(line)}
}

func join(parts ...[]RichText) []RichText {
	var out []RichText
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}
