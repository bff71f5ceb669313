package backend

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jinzhu/inflection"

	"worldbuilder/internal/apiclient"
	"worldbuilder/internal/config"
	"worldbuilder/internal/services"
)

const serviceName = "backend"

// Built-in resource names.
const (
	ResourceLogs      = "logs"
	ResourceUsers     = "users"
	ResourceAnalytics = "analytics"
)

// Config describes how to reach the backend.
type Config struct {
	URL     string
	APIKey  string
	Retries int
	Timeout time.Duration
	// Resources registers extra tables beyond the built-in ones. Names are
	// lower-cased and pluralized ("scene" becomes "scenes").
	Resources []string
}

// Client holds the route table and the typed table helpers.
type Client struct {
	transport *apiclient.Transport

	Users     *Users
	Analytics *Analytics
	Logs      *Logs
}

// NewClient validates cfg and registers every resource route.
func NewClient(cfg Config, opts ...apiclient.Option) (*Client, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, services.Wrap(services.ErrConfiguration, serviceName, "init", "url is required", nil)
	}
	key := strings.TrimSpace(cfg.APIKey)
	if key == "" {
		return nil, services.Wrap(services.ErrConfiguration, serviceName, "init", "api key is required", nil)
	}

	names := []string{ResourceLogs, ResourceUsers, ResourceAnalytics}
	seen := map[string]bool{ResourceLogs: true, ResourceUsers: true, ResourceAnalytics: true}
	for _, extra := range cfg.Resources {
		name := ResourceName(extra)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	routes := make([]apiclient.Route, 0, len(names))
	for _, name := range names {
		routes = append(routes, apiclient.Route{Name: name, Path: "/" + name})
	}
	table, err := apiclient.NewRoutes(cfg.URL, map[string]string{
		"apikey":        key,
		"Authorization": "Bearer " + key,
	}, routes...)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, serviceName, "init", "", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	defaults := []apiclient.Option{
		apiclient.WithHTTPClient(&http.Client{Timeout: timeout}),
		apiclient.WithRetries(cfg.Retries),
	}
	c := &Client{transport: apiclient.NewTransport(table, append(defaults, opts...)...)}
	c.Users = &Users{resource: c.mustResource(ResourceUsers)}
	c.Analytics = &Analytics{resource: c.mustResource(ResourceAnalytics)}
	c.Logs = &Logs{resource: c.mustResource(ResourceLogs)}
	return c, nil
}

// NewFromConfig builds a client from the application configuration.
func NewFromConfig(cfg *config.Config, opts ...apiclient.Option) (*Client, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, serviceName, "init", "config is nil", nil)
	}
	if err := cfg.RequireBackend(); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, serviceName, "init", "", err)
	}
	return NewClient(Config{
		URL:     cfg.Backend.URL,
		APIKey:  cfg.Backend.APIKey,
		Retries: cfg.Backend.Retries,
		Timeout: time.Duration(cfg.Backend.TimeoutSeconds) * time.Second,
	}, opts...)
}

// ResourceName converts a table name to its registered form.
func ResourceName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return ""
	}
	return inflection.Plural(name)
}

// Resource returns a handle for a registered table. Singular names resolve
// to their plural route ("user" finds "users").
func (c *Client) Resource(name string) (*Resource, error) {
	routeName := ResourceName(name)
	path, ok := c.transport.Routes().Path(routeName)
	if !ok {
		return nil, services.Wrap(services.ErrNotFound, serviceName, "resource", fmt.Sprintf("unknown resource %q", name), nil)
	}
	return &Resource{transport: c.transport, name: routeName, path: path}, nil
}

// Resources lists registered table names.
func (c *Client) Resources() []string {
	return c.transport.Routes().Names()
}

func (c *Client) mustResource(name string) *Resource {
	res, err := c.Resource(name)
	if err != nil {
		panic(err)
	}
	return res
}
