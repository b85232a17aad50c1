// Package provider selects the per-provider listing adapter for an export.
package provider

import (
	"context"
	"fmt"

	"github.com/zulhfreelancer/export-pull-requests/internal/provider/bitbucket"
	"github.com/zulhfreelancer/export-pull-requests/internal/provider/github"
	"github.com/zulhfreelancer/export-pull-requests/internal/provider/gitlab"
	"github.com/zulhfreelancer/export-pull-requests/internal/ratelimit"
	"github.com/zulhfreelancer/export-pull-requests/pkg/models"
)

// Source produces the items of one repository. Fetch emits items in listing
// order as pages arrive; the sequence is finite and cannot be restarted.
// Returning an error from emit stops the fetch.
type Source interface {
	Fetch(ctx context.Context, repo models.Repo, emit func(models.Item) error) error
}

// Options carries what adapters need beyond the request itself.
type Options struct {
	Token    string
	Endpoint string

	// Limiter is the shared call-count limiter. Only the Bitbucket adapter
	// uses it.
	Limiter *ratelimit.Limiter
}

// New returns the adapter for the named provider. Unknown names fail here,
// before any network traffic.
func New(name string, req *models.ExportRequest, opts Options) (Source, error) {
	switch name {
	case "github":
		return github.New(req, opts.Token, opts.Endpoint)
	case "gitlab":
		return gitlab.New(req, opts.Token, opts.Endpoint)
	case "bitbucket":
		return bitbucket.New(req, opts.Token, opts.Endpoint, opts.Limiter)
	default:
		return nil, fmt.Errorf("unknown provider: %q (expected github, gitlab or bitbucket)", name)
	}
}
