// Package github provides functionality for interacting with the GitHub API.
package github

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/go-github/v41/github"
	"golang.org/x/oauth2"

	"github.com/zulhfreelancer/export-pull-requests/internal/logging"
	"github.com/zulhfreelancer/export-pull-requests/pkg/models"
)

const perPage = 100

// Client wraps the GitHub API client for listing issues and pull requests.
type Client struct {
	client *github.Client
	req    *models.ExportRequest
}

// New creates a GitHub adapter. An endpoint override points the client at a
// GitHub Enterprise installation (".../api/v3/").
func New(req *models.ExportRequest, token, endpoint string) (*Client, error) {
	if token == "" {
		return nil, fmt.Errorf("github token not found in configuration")
	}
	if req.Kind == models.KindComments {
		return nil, fmt.Errorf("pr_comments export is not supported for github")
	}

	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token},
	)
	tc := oauth2.NewClient(context.Background(), ts)

	client := github.NewClient(tc)

	if endpoint != "" {
		if !strings.HasSuffix(endpoint, "/") {
			endpoint += "/"
		}
		parsed, err := url.Parse(endpoint)
		if err != nil {
			return nil, fmt.Errorf("invalid github api endpoint: %w", err)
		}
		client.BaseURL = parsed
		client.UploadURL = parsed
	}

	logging.Debug("github adapter configured", "endpoint", client.BaseURL.String())

	return &Client{client: client, req: req}, nil
}

// Fetch lists the requested items for one repository. The issue listing
// endpoint returns pull requests too: for the issues kind those are dropped,
// for the all kind they are kept and tagged as pull requests.
func (c *Client) Fetch(ctx context.Context, repo models.Repo, emit func(models.Item) error) error {
	if c.req.Kind == models.KindPulls {
		return c.fetchPulls(ctx, repo, emit)
	}
	return c.fetchIssues(ctx, repo, emit)
}

func (c *Client) fetchIssues(ctx context.Context, repo models.Repo, emit func(models.Item) error) error {
	opts := &github.IssueListByRepoOptions{
		State:     c.req.State,
		Milestone: c.req.Milestone,
		Labels:    c.req.Labels,
		Assignee:  c.req.Assignee,
		ListOptions: github.ListOptions{
			PerPage: perPage,
		},
	}

	for {
		issues, resp, err := c.client.Issues.ListByRepo(ctx, repo.Owner, repo.Name, opts)
		if err != nil {
			return fmt.Errorf("failed to fetch github issues for %s: %w", repo, err)
		}

		for _, issue := range issues {
			isPull := issue.PullRequestLinks != nil
			if c.req.Kind == models.KindIssues && isPull {
				continue
			}
			if err := emit(issueToItem(repo, issue, isPull)); err != nil {
				return err
			}
		}

		if resp.NextPage == 0 {
			return nil
		}
		opts.Page = resp.NextPage
	}
}

func (c *Client) fetchPulls(ctx context.Context, repo models.Repo, emit func(models.Item) error) error {
	opts := &github.PullRequestListOptions{
		State: c.req.State,
		ListOptions: github.ListOptions{
			PerPage: perPage,
		},
	}

	for {
		pulls, resp, err := c.client.PullRequests.List(ctx, repo.Owner, repo.Name, opts)
		if err != nil {
			return fmt.Errorf("failed to fetch github pull requests for %s: %w", repo, err)
		}

		for _, pull := range pulls {
			if err := emit(pullToItem(repo, pull)); err != nil {
				return err
			}
		}

		if resp.NextPage == 0 {
			return nil
		}
		opts.Page = resp.NextPage
	}
}

func issueToItem(repo models.Repo, issue *github.Issue, isPull bool) models.Item {
	itemType := models.ItemIssue
	if isPull {
		itemType = models.ItemPullRequest
	}
	return models.Item{
		Type:      itemType,
		Repo:      repo,
		Number:    issue.GetNumber(),
		Author:    issue.GetUser().GetLogin(),
		Title:     issue.GetTitle(),
		State:     issue.GetState(),
		CreatedAt: issue.GetCreatedAt(),
		UpdatedAt: issue.GetUpdatedAt(),
		URL:       issue.GetHTMLURL(),
		BodyRaw:   issue.GetBody(),
	}
}

func pullToItem(repo models.Repo, pull *github.PullRequest) models.Item {
	return models.Item{
		Type:         models.ItemPullRequest,
		Repo:         repo,
		Number:       pull.GetNumber(),
		Author:       pull.GetUser().GetLogin(),
		Title:        pull.GetTitle(),
		State:        pull.GetState(),
		CreatedAt:    pull.GetCreatedAt(),
		UpdatedAt:    pull.GetUpdatedAt(),
		URL:          pull.GetHTMLURL(),
		BodyRaw:      pull.GetBody(),
		SourceCommit: pull.GetHead().GetSHA(),
		DestCommit:   pull.GetBase().GetSHA(),
		SourceBranch: pull.GetHead().GetRef(),
		DestBranch:   pull.GetBase().GetRef(),
		MergeCommit:  pull.GetMergeCommitSHA(),
	}
}
