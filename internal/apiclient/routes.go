package apiclient

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
)

// Route names one logical operation and its URL path. Paths may contain
// {placeholder} segments that Expand fills in.
type Route struct {
	Name string
	Path string
}

// Routes is an immutable route table bound to a base URL and default headers.
type Routes struct {
	baseURL string
	headers http.Header
	paths   map[string]string
}

// NewRoutes validates and freezes a route table. Route names must be unique
// and non-empty.
func NewRoutes(baseURL string, headers map[string]string, routes ...Route) (*Routes, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("routes: base url required")
	}
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("routes: parse base url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("routes: base url must be http or https, got %q", baseURL)
	}

	table := &Routes{
		baseURL: baseURL,
		headers: make(http.Header, len(headers)),
		paths:   make(map[string]string, len(routes)),
	}
	for key, value := range headers {
		if strings.TrimSpace(key) == "" {
			continue
		}
		table.headers.Set(key, value)
	}
	for _, route := range routes {
		name := strings.TrimSpace(route.Name)
		if name == "" {
			return nil, errors.New("routes: route name required")
		}
		if _, exists := table.paths[name]; exists {
			return nil, fmt.Errorf("routes: duplicate route %q", name)
		}
		path := strings.TrimSpace(route.Path)
		if path == "" {
			return nil, fmt.Errorf("routes: route %q has empty path", name)
		}
		table.paths[name] = path
	}
	return table, nil
}

// BaseURL returns the base every relative path resolves against.
func (r *Routes) BaseURL() string {
	return r.baseURL
}

// Headers returns a copy of the default headers.
func (r *Routes) Headers() http.Header {
	return r.headers.Clone()
}

// Path returns the raw path registered under name.
func (r *Routes) Path(name string) (string, bool) {
	path, ok := r.paths[name]
	return path, ok
}

// Names lists registered route names in sorted order.
func (r *Routes) Names() []string {
	names := make([]string, 0, len(r.paths))
	for name := range r.paths {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Expand returns the path registered under name with {placeholders} replaced
// by path-escaped values from vars. Every placeholder must be supplied.
func (r *Routes) Expand(name string, vars map[string]string) (string, error) {
	path, ok := r.paths[name]
	if !ok {
		return "", fmt.Errorf("routes: unknown route %q", name)
	}
	var b strings.Builder
	for {
		open := strings.IndexByte(path, '{')
		if open < 0 {
			b.WriteString(path)
			break
		}
		end := strings.IndexByte(path[open:], '}')
		if end < 0 {
			return "", fmt.Errorf("routes: route %q has unterminated placeholder", name)
		}
		key := path[open+1 : open+end]
		value, ok := vars[key]
		if !ok || value == "" {
			return "", fmt.Errorf("routes: route %q missing value for {%s}", name, key)
		}
		b.WriteString(path[:open])
		b.WriteString(url.PathEscape(value))
		path = path[open+end+1:]
	}
	return b.String(), nil
}

// Resolve turns a base-relative reference into an absolute URL. Absolute
// http(s) references are returned unchanged. The base path is preserved, so
// "/logs" against "https://host/rest/v1" yields "https://host/rest/v1/logs".
func (r *Routes) Resolve(ref string) string {
	ref = strings.TrimSpace(ref)
	lower := strings.ToLower(ref)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return ref
	}
	if ref == "" {
		return r.baseURL
	}
	return r.baseURL + "/" + strings.TrimLeft(ref, "/")
}
