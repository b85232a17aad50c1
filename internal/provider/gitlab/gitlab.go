// Package gitlab provides functionality for interacting with the GitLab API.
package gitlab

import (
	"context"
	"fmt"
	"strconv"

	gitlab "gitlab.com/gitlab-org/api/client-go"

	"github.com/zulhfreelancer/export-pull-requests/internal/logging"
	"github.com/zulhfreelancer/export-pull-requests/pkg/models"
)

const perPage = 100

// Client wraps the GitLab API client for listing issues and merge requests.
type Client struct {
	client *gitlab.Client
	req    *models.ExportRequest
}

// New creates a GitLab adapter. An endpoint override points the client at a
// self-hosted installation (".../api/v4").
func New(req *models.ExportRequest, token, endpoint string) (*Client, error) {
	if token == "" {
		return nil, fmt.Errorf("gitlab token not found in configuration")
	}
	if req.Kind == models.KindComments {
		return nil, fmt.Errorf("pr_comments export is not supported for gitlab")
	}

	var clientOpts []gitlab.ClientOptionFunc
	if endpoint != "" {
		clientOpts = append(clientOpts, gitlab.WithBaseURL(endpoint))
	}
	client, err := gitlab.NewClient(token, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("creating gitlab client: %w", err)
	}

	logging.Debug("gitlab adapter configured", "endpoint", endpoint)

	return &Client{client: client, req: req}, nil
}

// Fetch lists the requested items for one repository. Issues and merge
// requests live on separate endpoints; the all kind fetches both.
func (c *Client) Fetch(ctx context.Context, repo models.Repo, emit func(models.Item) error) error {
	switch c.req.Kind {
	case models.KindIssues:
		return c.fetchIssues(ctx, repo, emit)
	case models.KindPulls:
		return c.fetchMergeRequests(ctx, repo, emit)
	default:
		if err := c.fetchIssues(ctx, repo, emit); err != nil {
			return err
		}
		return c.fetchMergeRequests(ctx, repo, emit)
	}
}

// translateState maps the cross-provider "open" state to GitLab's "opened"
// vocabulary.
func translateState(state string) string {
	if state == "open" {
		return "opened"
	}
	return state
}

// assigneeID parses the assignee filter, which GitLab takes as a numeric
// user ID rather than a handle.
func (c *Client) assigneeID() (*int, error) {
	if c.req.Assignee == "" {
		return nil, nil
	}
	id, err := strconv.Atoi(c.req.Assignee)
	if err != nil {
		return nil, fmt.Errorf("gitlab assignee must be a numeric user id, got %q", c.req.Assignee)
	}
	return &id, nil
}

func (c *Client) fetchIssues(ctx context.Context, repo models.Repo, emit func(models.Item) error) error {
	opts := &gitlab.ListProjectIssuesOptions{
		ListOptions: gitlab.ListOptions{PerPage: perPage},
	}
	if s := translateState(c.req.State); s != "" && s != "all" {
		opts.State = gitlab.Ptr(s)
	}
	if c.req.Milestone != "" {
		opts.Milestone = gitlab.Ptr(c.req.Milestone)
	}
	if len(c.req.Labels) > 0 {
		labels := gitlab.LabelOptions(c.req.Labels)
		opts.Labels = &labels
	}
	id, err := c.assigneeID()
	if err != nil {
		return err
	}
	if id != nil {
		opts.AssigneeID = gitlab.AssigneeID(*id)
	}

	for {
		issues, resp, err := c.client.Issues.ListProjectIssues(repo.String(), opts, gitlab.WithContext(ctx))
		if err != nil {
			return fmt.Errorf("failed to fetch gitlab issues for %s: %w", repo, err)
		}

		for _, issue := range issues {
			if err := emit(issueToItem(repo, issue)); err != nil {
				return err
			}
		}

		if resp.NextPage == 0 {
			return nil
		}
		opts.Page = resp.NextPage
	}
}

func (c *Client) fetchMergeRequests(ctx context.Context, repo models.Repo, emit func(models.Item) error) error {
	opts := &gitlab.ListProjectMergeRequestsOptions{
		ListOptions: gitlab.ListOptions{PerPage: perPage},
	}
	if s := translateState(c.req.State); s != "" && s != "all" {
		opts.State = gitlab.Ptr(s)
	}
	if c.req.Milestone != "" {
		opts.Milestone = gitlab.Ptr(c.req.Milestone)
	}
	if len(c.req.Labels) > 0 {
		labels := gitlab.LabelOptions(c.req.Labels)
		opts.Labels = &labels
	}
	id, err := c.assigneeID()
	if err != nil {
		return err
	}
	if id != nil {
		opts.AssigneeID = gitlab.AssigneeID(*id)
	}

	for {
		mrs, resp, err := c.client.MergeRequests.ListProjectMergeRequests(repo.String(), opts, gitlab.WithContext(ctx))
		if err != nil {
			return fmt.Errorf("failed to fetch gitlab merge requests for %s: %w", repo, err)
		}

		for _, mr := range mrs {
			if err := emit(mergeRequestToItem(repo, mr)); err != nil {
				return err
			}
		}

		if resp.NextPage == 0 {
			return nil
		}
		opts.Page = resp.NextPage
	}
}

func issueToItem(repo models.Repo, issue *gitlab.Issue) models.Item {
	item := models.Item{
		Type:    models.ItemIssue,
		Repo:    repo,
		Number:  issue.IID,
		Title:   issue.Title,
		State:   issue.State,
		URL:     issue.WebURL,
		BodyRaw: issue.Description,
	}
	if issue.Author != nil {
		item.Author = issue.Author.Username
	}
	if issue.CreatedAt != nil {
		item.CreatedAt = *issue.CreatedAt
	}
	if issue.UpdatedAt != nil {
		item.UpdatedAt = *issue.UpdatedAt
	}
	return item
}

func mergeRequestToItem(repo models.Repo, mr *gitlab.MergeRequest) models.Item {
	item := models.Item{
		Type:         models.ItemPullRequest,
		Repo:         repo,
		Number:       mr.IID,
		Title:        mr.Title,
		State:        mr.State,
		URL:          mr.WebURL,
		BodyRaw:      mr.Description,
		SourceCommit: mr.SHA,
		SourceBranch: mr.SourceBranch,
		DestBranch:   mr.TargetBranch,
		MergeCommit:  mr.MergeCommitSHA,
	}
	if mr.Author != nil {
		item.Author = mr.Author.Username
	}
	if mr.CreatedAt != nil {
		item.CreatedAt = *mr.CreatedAt
	}
	if mr.UpdatedAt != nil {
		item.UpdatedAt = *mr.UpdatedAt
	}
	if mr.ClosedBy != nil {
		item.ClosedBy = mr.ClosedBy.Username
	}
	return item
}
