// Package github wraps the GitHub REST endpoints the toolkit needs: release
// listings for update checks and issue creation for the relay.
package github

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"worldbuilder/internal/apiclient"
	"worldbuilder/internal/config"
	"worldbuilder/internal/services"
	"worldbuilder/internal/versions"
)

const serviceName = "github"

// Route names registered on the GitHub route table.
const (
	RouteReleases      = "releases"
	RouteLatestRelease = "latestRelease"
	RouteCreateIssue   = "createIssue"
)

const (
	defaultPerPage = 10
	maxPerPage     = 100
	apiVersion     = "2022-11-28"
	userAgent      = "worldbuilder"
)

// Config describes how to reach GitHub.
type Config struct {
	APIURL  string
	Owner   string
	Repo    string
	Token   string
	Retries int
	Timeout time.Duration
}

// ListOptions paginates list endpoints.
type ListOptions struct {
	PerPage int
	Page    int
}

// IssueRequest is the payload for a new issue.
type IssueRequest struct {
	Title  string   `json:"title"`
	Body   string   `json:"body"`
	Labels []string `json:"labels,omitempty"`
}

// Issue is a created issue.
type Issue struct {
	Number int    `json:"number"`
	URL    string `json:"html_url"`
	State  string `json:"state"`
	Title  string `json:"title"`
}

type releasePayload struct {
	TagName     string `json:"tag_name"`
	Name        string `json:"name"`
	PublishedAt string `json:"published_at"`
	HTMLURL     string `json:"html_url"`
	Body        string `json:"body"`
	Draft       bool   `json:"draft"`
	Prerelease  bool   `json:"prerelease"`
}

// Client talks to one repository.
type Client struct {
	transport *apiclient.Transport
	owner     string
	repo      string
	hasToken  bool
}

// NewClient builds a client. Extra transport options are applied after the
// defaults derived from cfg.
func NewClient(cfg Config, opts ...apiclient.Option) (*Client, error) {
	owner := strings.TrimSpace(cfg.Owner)
	repo := strings.TrimSpace(cfg.Repo)
	if owner == "" || repo == "" {
		return nil, services.Wrap(services.ErrConfiguration, serviceName, "init", "owner and repo are required", nil)
	}
	base := strings.TrimSpace(cfg.APIURL)
	if base == "" {
		base = "https://api.github.com"
	}
	headers := map[string]string{
		"Accept":               "application/vnd.github+json",
		"X-GitHub-Api-Version": apiVersion,
		"User-Agent":           userAgent,
	}
	token := strings.TrimSpace(cfg.Token)
	if token != "" {
		headers["Authorization"] = "Bearer " + token
	}
	routes, err := apiclient.NewRoutes(base, headers,
		apiclient.Route{Name: RouteReleases, Path: "/repos/{owner}/{repo}/releases"},
		apiclient.Route{Name: RouteLatestRelease, Path: "/repos/{owner}/{repo}/releases/latest"},
		apiclient.Route{Name: RouteCreateIssue, Path: "/repos/{owner}/{repo}/issues"},
	)
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
	return &Client{
		transport: apiclient.NewTransport(routes, append(defaults, opts...)...),
		owner:     owner,
		repo:      repo,
		hasToken:  token != "",
	}, nil
}

// NewFromConfig builds a client from the application configuration.
func NewFromConfig(cfg *config.Config, opts ...apiclient.Option) (*Client, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, serviceName, "init", "config is nil", nil)
	}
	return NewClient(Config{
		APIURL:  cfg.GitHub.APIURL,
		Owner:   cfg.GitHub.Owner,
		Repo:    cfg.GitHub.Repo,
		Token:   cfg.GitHub.Token,
		Retries: cfg.GitHub.Retries,
		Timeout: time.Duration(cfg.GitHub.TimeoutSeconds) * time.Second,
	}, opts...)
}

// Repository returns "owner/repo".
func (c *Client) Repository() string {
	return c.owner + "/" + c.repo
}

// Authenticated reports whether requests carry a token.
func (c *Client) Authenticated() bool {
	return c.hasToken
}

// Releases lists published releases, newest first. The first item is marked
// as the latest.
func (c *Client) Releases(ctx context.Context, opts ListOptions) apiclient.Result[[]versions.Info] {
	path, err := c.path(RouteReleases)
	if err != nil {
		return apiclient.Fail[[]versions.Info](err)
	}
	perPage := opts.PerPage
	if perPage <= 0 {
		perPage = defaultPerPage
	}
	perPage = min(perPage, maxPerPage)
	query := url.Values{}
	query.Set("per_page", strconv.Itoa(perPage))
	if opts.Page > 0 {
		query.Set("page", strconv.Itoa(opts.Page))
	}

	var payload []releasePayload
	if _, err := c.transport.Do(ctx, apiclient.Request{Method: http.MethodGet, URL: path, Query: query}, &payload); err != nil {
		return apiclient.Fail[[]versions.Info](services.FromTransport(serviceName, RouteReleases, err))
	}
	infos := make([]versions.Info, 0, len(payload))
	for _, release := range payload {
		if release.Draft {
			continue
		}
		infos = append(infos, toInfo(release, false))
	}
	if len(infos) > 0 {
		infos[0].IsLatest = true
	}
	return apiclient.OK(infos)
}

// LatestRelease fetches the most recent non-prerelease release.
func (c *Client) LatestRelease(ctx context.Context) apiclient.Result[versions.Info] {
	path, err := c.path(RouteLatestRelease)
	if err != nil {
		return apiclient.Fail[versions.Info](err)
	}
	var payload releasePayload
	if _, err := c.transport.Do(ctx, apiclient.Request{Method: http.MethodGet, URL: path}, &payload); err != nil {
		return apiclient.Fail[versions.Info](services.FromTransport(serviceName, RouteLatestRelease, err))
	}
	if strings.TrimSpace(payload.TagName) == "" {
		return apiclient.Fail[versions.Info](services.Wrap(services.ErrUpstream, serviceName, RouteLatestRelease, "release has no tag", nil))
	}
	return apiclient.OK(toInfo(payload, true))
}

// CreateIssue opens an issue. A token is required.
func (c *Client) CreateIssue(ctx context.Context, req IssueRequest) apiclient.Result[Issue] {
	if !c.hasToken {
		return apiclient.Fail[Issue](services.Wrap(services.ErrConfiguration, serviceName, RouteCreateIssue, "token required", nil))
	}
	if strings.TrimSpace(req.Title) == "" {
		return apiclient.Fail[Issue](services.Wrap(services.ErrValidation, serviceName, RouteCreateIssue, "title required", nil))
	}
	path, err := c.path(RouteCreateIssue)
	if err != nil {
		return apiclient.Fail[Issue](err)
	}
	var issue Issue
	if _, err := c.transport.Do(ctx, apiclient.Request{Method: http.MethodPost, URL: path, Body: req}, &issue); err != nil {
		return apiclient.Fail[Issue](services.FromTransport(serviceName, RouteCreateIssue, err))
	}
	if issue.Number == 0 {
		return apiclient.Fail[Issue](services.Wrap(services.ErrUpstream, serviceName, RouteCreateIssue, "response missing issue number", nil))
	}
	return apiclient.OK(issue)
}

func (c *Client) path(route string) (string, error) {
	path, err := c.transport.Routes().Expand(route, map[string]string{"owner": c.owner, "repo": c.repo})
	if err != nil {
		return "", services.Wrap(services.ErrConfiguration, serviceName, route, "", err)
	}
	return path, nil
}

func toInfo(release releasePayload, latest bool) versions.Info {
	name := strings.TrimSpace(release.Name)
	if name == "" {
		name = release.TagName
	}
	return versions.Info{
		Version:     versions.Normalize(release.TagName),
		Name:        name,
		PublishedAt: release.PublishedAt,
		URL:         release.HTMLURL,
		Description: release.Body,
		IsLatest:    latest,
	}
}

// IsNotFound reports whether err means the repository or release is missing.
func IsNotFound(err error) bool {
	return errors.Is(err, services.ErrNotFound)
}
