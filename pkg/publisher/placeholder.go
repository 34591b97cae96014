package publisher

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// DefaultPlaceholderPrefix is used for tokens minted during extraction.
const DefaultPlaceholderPrefix = "PH_"

// InjectPlaceholders rewrites a rendered HTML document so that every image
// destined for clipboard insertion becomes a bare placeholder text token,
// and returns the full ordered ImageInfo list.
//
// An <img> is replaced when it matches one of the known descriptors (by
// placeholder token or local path appearing in its src or alt) or when its
// src is a local-file reference, in which case a fresh token is minted.
// Remote and inline-data images pass through untouched. Everything outside
// the substituted tags is preserved byte for byte, via the tokenizer's raw
// token text.
func InjectPlaceholders(doc string, known []ImageInfo) (string, []ImageInfo, error) {
	z := html.NewTokenizer(strings.NewReader(doc))

	var out strings.Builder
	out.Grow(len(doc))
	var images []ImageInfo
	used := make(map[string]bool, len(known))
	next := 1

	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			if z.Err() == io.EOF {
				break
			}
			return "", nil, fmt.Errorf("publisher: tokenize document: %w", z.Err())
		}

		raw := string(z.Raw())
		if tt != html.StartTagToken && tt != html.SelfClosingTagToken {
			out.WriteString(raw)
			continue
		}
		name, hasAttr := z.TagName()
		if string(name) != "img" || !hasAttr {
			out.WriteString(raw)
			continue
		}

		src, alt := imgAttrs(z)
		if info, ok := matchKnown(known, used, src, alt); ok {
			out.WriteString(info.Placeholder)
			images = append(images, info)
			continue
		}
		if local, ok := localRef(src); ok {
			token := mintToken(known, images, &next)
			out.WriteString(token)
			images = append(images, ImageInfo{
				Placeholder:  token,
				LocalPath:    local,
				OriginalPath: src,
			})
			continue
		}
		out.WriteString(raw)
	}

	return out.String(), images, nil
}

// imgAttrs pulls src and alt off the current tag token.
func imgAttrs(z *html.Tokenizer) (src, alt string) {
	for {
		key, val, more := z.TagAttr()
		switch string(key) {
		case "src":
			src = string(val)
		case "alt":
			alt = string(val)
		}
		if !more {
			return src, alt
		}
	}
}

// matchKnown finds the first unconsumed descriptor referenced by the tag.
func matchKnown(known []ImageInfo, used map[string]bool, src, alt string) (ImageInfo, bool) {
	local, _ := localRef(src)
	for _, info := range known {
		if used[info.Placeholder] {
			continue
		}
		if src == info.Placeholder || alt == info.Placeholder ||
			(info.LocalPath != "" && (src == info.LocalPath || local == info.LocalPath)) ||
			(info.OriginalPath != "" && src == info.OriginalPath) {
			used[info.Placeholder] = true
			return info, true
		}
	}
	return ImageInfo{}, false
}

// mintToken produces the next placeholder that collides with neither the
// known descriptors nor the ones minted so far.
func mintToken(known, minted []ImageInfo, next *int) string {
	for {
		token := DefaultPlaceholderPrefix + strconv.Itoa(*next)
		*next++
		taken := false
		for _, info := range known {
			if info.Placeholder == token {
				taken = true
				break
			}
		}
		for _, info := range minted {
			if info.Placeholder == token {
				taken = true
				break
			}
		}
		if !taken {
			return token
		}
	}
}

// localRef reports whether src points at a local file and returns the bare
// path. Remote schemes and data URIs are not local.
func localRef(src string) (string, bool) {
	switch {
	case src == "":
		return "", false
	case strings.HasPrefix(src, "http://"), strings.HasPrefix(src, "https://"),
		strings.HasPrefix(src, "data:"), strings.HasPrefix(src, "//"):
		return "", false
	case strings.HasPrefix(src, "file://"):
		return strings.TrimPrefix(src, "file://"), true
	default:
		return src, true
	}
}

// findToken locates token inside text with a boundary check: a match
// immediately followed by a digit is rejected, so searching for PH_1 in a
// document containing only PH_10 reports no match. Returns -1 when absent.
// The in-page selection script applies the same boundary rule.
func findToken(text, token string) int {
	if token == "" {
		return -1
	}
	from := 0
	for {
		idx := strings.Index(text[from:], token)
		if idx < 0 {
			return -1
		}
		abs := from + idx
		end := abs + len(token)
		if end >= len(text) || !isDigit(text[end]) {
			return abs
		}
		from = abs + 1
	}
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }
