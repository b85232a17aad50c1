// Package bitbucket provides functionality for interacting with the
// Bitbucket 2.0 API.
package bitbucket

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/zulhfreelancer/export-pull-requests/internal/logging"
	"github.com/zulhfreelancer/export-pull-requests/internal/ratelimit"
	"github.com/zulhfreelancer/export-pull-requests/pkg/models"
)

const (
	defaultEndpoint = "https://api.bitbucket.org/2.0"

	// Issues use offset pagination; the loop stops on the first short page.
	issuePageLen = 50
	pagelen      = 50

	// CommitNotFound is the sentinel emitted when an abbreviated commit
	// hash cannot be resolved to a full hash.
	CommitNotFound = "bb-import-commit-not-found"
)

// Client wraps the Bitbucket 2.0 REST API for listing pull requests, PR
// comments, and issues. Every API call is recorded against the shared rate
// counter; every page boundary checks the ceiling.
type Client struct {
	req        *models.ExportRequest
	endpoint   string
	token      string
	httpClient *http.Client
	pacer      *rate.Limiter
	limiter    *ratelimit.Limiter

	// commits caches abbreviated-to-full hash resolutions for the run.
	commits map[string]string
}

// New creates a Bitbucket adapter. An empty token restricts access to
// public repositories.
func New(req *models.ExportRequest, token, endpoint string, limiter *ratelimit.Limiter) (*Client, error) {
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	endpoint = strings.TrimSuffix(endpoint, "/")
	if limiter == nil {
		limiter = ratelimit.NewLimiter(&ratelimit.MemoryCounter{}, ratelimit.DefaultCeiling)
	}

	return &Client{
		req:        req,
		endpoint:   endpoint,
		token:      token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		pacer:      rate.NewLimiter(rate.Every(time.Second), 5),
		limiter:    limiter,
		commits:    make(map[string]string),
	}, nil
}

// Fetch lists the requested items for one repository.
func (c *Client) Fetch(ctx context.Context, repo models.Repo, emit func(models.Item) error) error {
	switch c.req.Kind {
	case models.KindIssues:
		return c.fetchIssues(ctx, repo, emit)
	case models.KindPulls:
		return c.fetchPulls(ctx, repo, emit)
	case models.KindComments:
		return c.fetchComments(ctx, repo, emit)
	default:
		if err := c.fetchPulls(ctx, repo, emit); err != nil {
			return err
		}
		return c.fetchIssues(ctx, repo, emit)
	}
}

// getJSON performs one paced API call, records it against the shared
// counter (success or not), and decodes the response body into v.
func (c *Client) getJSON(ctx context.Context, rawURL string, v any) error {
	if err := c.pacer.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	if c.token != "" {
		// "user:app-password" pairs use basic auth, bare tokens use bearer.
		if strings.Contains(c.token, ":") {
			req.Header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(c.token)))
		} else {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	c.limiter.RecordCall()
	if err != nil {
		return fmt.Errorf("bitbucket api request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("bitbucket api returned %d for %s: %s", resp.StatusCode, rawURL, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decoding bitbucket response: %w", err)
	}
	return nil
}

func (c *Client) repoURL(repo models.Repo, parts ...string) string {
	segments := append([]string{c.endpoint, "repositories", repo.Owner, repo.Name}, parts...)
	return strings.Join(segments, "/")
}

// stateParam maps the cross-provider state filter onto Bitbucket's
// uppercase pull-request state vocabulary.
func (c *Client) stateParam() string {
	if c.req.State == "" || c.req.State == "all" {
		return ""
	}
	return strings.ToUpper(c.req.State)
}

// fetchPulls pages through pull requests following the cursor in "next".
func (c *Client) fetchPulls(ctx context.Context, repo models.Repo, emit func(models.Item) error) error {
	return c.eachPullPage(ctx, repo, func(pulls []pullRequest) error {
		for i := range pulls {
			if err := emit(pullToItem(repo, &pulls[i])); err != nil {
				return err
			}
		}
		return nil
	})
}

func (c *Client) eachPullPage(ctx context.Context, repo models.Repo, handle func([]pullRequest) error) error {
	next := c.repoURL(repo, "pullrequests") + "?pagelen=" + strconv.Itoa(pagelen)
	if s := c.stateParam(); s != "" {
		next += "&state=" + url.QueryEscape(s)
	}

	for next != "" {
		if err := c.limiter.CheckAndWait(); err != nil {
			return err
		}

		var page pullRequestPage
		if err := c.getJSON(ctx, next, &page); err != nil {
			return fmt.Errorf("failed to fetch bitbucket pull requests for %s: %w", repo, err)
		}
		if err := handle(page.Values); err != nil {
			return err
		}
		next = page.Next
	}
	return nil
}

// fetchIssues pages through issues with a running start offset, stopping as
// soon as a page comes back short.
func (c *Client) fetchIssues(ctx context.Context, repo models.Repo, emit func(models.Item) error) error {
	base := c.repoURL(repo, "issues")
	start := 0

	for {
		if err := c.limiter.CheckAndWait(); err != nil {
			return err
		}

		pageURL := fmt.Sprintf("%s?limit=%d&start=%d", base, issuePageLen, start)
		var page issuePage
		if err := c.getJSON(ctx, pageURL, &page); err != nil {
			return fmt.Errorf("failed to fetch bitbucket issues for %s: %w", repo, err)
		}

		for i := range page.Values {
			if err := emit(issueToItem(repo, &page.Values[i])); err != nil {
				return err
			}
		}

		if len(page.Values) < issuePageLen {
			return nil
		}
		start += issuePageLen
	}
}

// fetchComments pages through pull requests and, for each one, through its
// comments.
func (c *Client) fetchComments(ctx context.Context, repo models.Repo, emit func(models.Item) error) error {
	return c.eachPullPage(ctx, repo, func(pulls []pullRequest) error {
		for i := range pulls {
			if err := c.fetchPullComments(ctx, repo, &pulls[i], emit); err != nil {
				return err
			}
		}
		return nil
	})
}

func (c *Client) fetchPullComments(ctx context.Context, repo models.Repo, pull *pullRequest, emit func(models.Item) error) error {
	next := c.repoURL(repo, "pullrequests", strconv.Itoa(pull.ID), "comments") + "?pagelen=" + strconv.Itoa(pagelen)

	for next != "" {
		if err := c.limiter.CheckAndWait(); err != nil {
			return err
		}

		var page commentPage
		if err := c.getJSON(ctx, next, &page); err != nil {
			return fmt.Errorf("failed to fetch comments for %s pull request #%d: %w", repo, pull.ID, err)
		}

		for i := range page.Values {
			item := commentToItem(repo, pull, &page.Values[i])
			item.CommitHash = c.resolveCommit(ctx, repo, pull)
			if err := emit(item); err != nil {
				return err
			}
		}
		next = page.Next
	}
	return nil
}

// resolveCommit expands the pull request's abbreviated source-commit hash to
// a full hash via a secondary lookup. Lookups are cached per run; any
// failure yields the sentinel instead of aborting the page.
func (c *Client) resolveCommit(ctx context.Context, repo models.Repo, pull *pullRequest) string {
	if pull.Source.Commit == nil || pull.Source.Commit.Hash == "" {
		return CommitNotFound
	}
	short := pull.Source.Commit.Hash
	if full, ok := c.commits[short]; ok {
		return full
	}

	var full commitRef
	if err := c.getJSON(ctx, c.repoURL(repo, "commit", short), &full); err != nil {
		logging.Debug("commit lookup failed", "repository", repo.String(), "hash", short, "error", err)
		c.commits[short] = CommitNotFound
		return CommitNotFound
	}
	if full.Hash == "" {
		c.commits[short] = CommitNotFound
		return CommitNotFound
	}
	c.commits[short] = full.Hash
	return full.Hash
}

func pullToItem(repo models.Repo, pull *pullRequest) models.Item {
	item := models.Item{
		Type:          models.ItemPullRequest,
		Repo:          repo,
		Number:        pull.ID,
		Author:        pull.Author.handle(),
		Title:         pull.Title,
		State:         pull.State,
		CreatedAt:     parseTime(pull.CreatedOn),
		UpdatedAt:     parseTime(pull.UpdatedOn),
		URL:           pull.Links.HTML.Href,
		BodyRaw:       pull.Summary.Raw,
		BodyHTML:      pull.Summary.HTML,
		DeclineReason: pull.Reason,
		ClosedBy:      pull.ClosedBy.handle(),
	}
	if pull.Source.Commit != nil {
		item.SourceCommit = pull.Source.Commit.Hash
	}
	if pull.Destination.Commit != nil {
		item.DestCommit = pull.Destination.Commit.Hash
	}
	if pull.Source.Branch != nil {
		item.SourceBranch = pull.Source.Branch.Name
	}
	if pull.Destination.Branch != nil {
		item.DestBranch = pull.Destination.Branch.Name
	}
	if pull.MergeCommit != nil {
		item.MergeCommit = pull.MergeCommit.Hash
	}
	return item
}

func issueToItem(repo models.Repo, is *issue) models.Item {
	return models.Item{
		Type:      models.ItemIssue,
		Repo:      repo,
		Number:    is.ID,
		Author:    is.Reporter.handle(),
		Title:     is.Title,
		State:     is.State,
		CreatedAt: parseTime(is.CreatedOn),
		UpdatedAt: parseTime(is.UpdatedOn),
		URL:       is.Links.HTML.Href,
		BodyRaw:   is.Content.Raw,
		BodyHTML:  is.Content.HTML,
	}
}

func commentToItem(repo models.Repo, pull *pullRequest, cm *comment) models.Item {
	item := models.Item{
		Type:      models.ItemComment,
		Repo:      repo,
		Number:    cm.ID,
		Author:    cm.User.handle(),
		CreatedAt: parseTime(cm.CreatedOn),
		BodyRaw:   cm.Content.Raw,
		BodyHTML:  cm.Content.HTML,
		PRNumber:  pull.ID,
		Deleted:   cm.Deleted,
	}
	if cm.Parent != nil {
		item.ParentID = cm.Parent.ID
	}
	if cm.Inline != nil {
		item.Inline = true
		item.FilePath = cm.Inline.Path
		if cm.Inline.From != nil {
			item.FromLine = *cm.Inline.From
		}
		if cm.Inline.To != nil {
			item.ToLine = *cm.Inline.To
		}
	}
	return item
}

// parseTime handles the timestamp formats Bitbucket emits. Unparseable
// values come back as the zero time.
func parseTime(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return time.Time{}
}
