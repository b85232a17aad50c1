// Package models defines data structures shared across the application.
package models

import (
	"fmt"
	"strings"
	"time"
)

// Kind selects which category of items an export fetches.
type Kind string

const (
	// KindIssues exports issues only.
	KindIssues Kind = "issues"
	// KindPulls exports pull requests (merge requests on GitLab).
	KindPulls Kind = "pr"
	// KindComments exports pull-request comments.
	KindComments Kind = "pr_comments"
	// KindAll exports issues and pull requests together.
	KindAll Kind = "all"
)

// ParseKind validates a user-supplied export kind.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindIssues, KindPulls, KindComments, KindAll:
		return Kind(s), nil
	}
	return "", fmt.Errorf("unknown export kind: %q (expected issues, pr, pr_comments or all)", s)
}

// ItemType tags the variant of a fetched item.
type ItemType string

const (
	ItemIssue       ItemType = "issue"
	ItemPullRequest ItemType = "pull_request"
	ItemComment     ItemType = "pr_comment"
)

// Repo identifies one repository on the selected provider.
type Repo struct {
	Owner string
	Name  string
}

// ParseRepo parses an "owner/name" repository spec. Anything without exactly
// one "/" separating two non-whitespace runs is rejected.
func ParseRepo(s string) (Repo, error) {
	parts := strings.Split(s, "/")
	if len(parts) != 2 {
		return Repo{}, fmt.Errorf("invalid repository format: %q, expected format: owner/repo", s)
	}
	owner, name := parts[0], parts[1]
	if owner == "" || name == "" ||
		strings.ContainsAny(owner, " \t\r\n") || strings.ContainsAny(name, " \t\r\n") {
		return Repo{}, fmt.Errorf("invalid repository format: %q, expected format: owner/repo", s)
	}
	return Repo{Owner: owner, Name: name}, nil
}

func (r Repo) String() string {
	return r.Owner + "/" + r.Name
}

// ExportRequest captures one export run. It is built once from user input
// and read-only afterwards.
type ExportRequest struct {
	Repos     []Repo
	Provider  string
	Kind      Kind
	State     string
	Milestone string
	Labels    []string
	Assignee  string

	// IncludeBody inserts the raw body text into the output rows.
	IncludeBody bool

	// IncludeUsers and ExcludeUsers are built from one "!"-prefixed user
	// list: plain names select, "!"-prefixed names reject.
	IncludeUsers map[string]bool
	ExcludeUsers map[string]bool
}

// ParseUserFilters splits user filter values into include and exclude sets.
// A leading "!" marks a name for exclusion.
func ParseUserFilters(users []string) (include, exclude map[string]bool) {
	include = make(map[string]bool)
	exclude = make(map[string]bool)
	for _, u := range users {
		u = strings.TrimSpace(u)
		if u == "" {
			continue
		}
		if name, ok := strings.CutPrefix(u, "!"); ok {
			exclude[name] = true
		} else {
			include[u] = true
		}
	}
	return include, exclude
}

// Item is the normalized in-memory representation of one fetched issue,
// pull request, or pull-request comment. Adapters convert provider records
// into Items at the boundary; downstream code never sees provider types.
// Fields that do not apply to a variant stay zero and are emitted as empty
// columns.
type Item struct {
	Type      ItemType
	Repo      Repo
	Number    int
	Author    string
	Title     string
	State     string
	CreatedAt time.Time
	UpdatedAt time.Time
	URL       string
	BodyRaw   string
	BodyHTML  string

	// Pull request fields.
	SourceCommit  string
	DestCommit    string
	SourceBranch  string
	DestBranch    string
	DeclineReason string
	MergeCommit   string
	ClosedBy      string

	// Comment fields.
	PRNumber   int
	Inline     bool
	Deleted    bool
	ToLine     int
	FromLine   int
	FilePath   string
	ParentID   int
	CommitHash string
}
