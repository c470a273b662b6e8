package parser

import (
	"fmt"
	"net/url"
	"strings"
)

// ResolveURL expands target into an absolute URL relative to base.
// Targets starting with '//' inherit the scheme of base.
func ResolveURL(base, target string) (string, error) {
	baseURL, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid base url %q: %w", base, err)
	}
	targetURL, err := url.Parse(strings.TrimSpace(target))
	if err != nil {
		return "", fmt.Errorf("invalid link %q: %w", target, err)
	}
	return baseURL.ResolveReference(targetURL).String(), nil
}

// ResolveNext turns a "next page" target into the URL to fetch. Root-relative
// targets are joined with the site origin, absolute targets are kept and
// anything else resolves against the page it was found on.
func ResolveNext(siteBase, current, target string) (string, error) {
	target = strings.TrimSpace(target)
	switch {
	case strings.HasPrefix(target, "//"):
		return ResolveURL(siteBase, target)
	case strings.HasPrefix(target, "/"):
		return ResolveURL(siteBase, target)
	}

	u, err := url.Parse(target)
	if err != nil {
		return "", fmt.Errorf("invalid link %q: %w", target, err)
	}
	if u.IsAbs() {
		return target, nil
	}
	return ResolveURL(current, target)
}
