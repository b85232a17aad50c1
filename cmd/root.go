// Package cmd wires the command-line surface to the export pipeline.
package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/zulhfreelancer/export-pull-requests/internal/config"
	"github.com/zulhfreelancer/export-pull-requests/internal/export"
	"github.com/zulhfreelancer/export-pull-requests/internal/logging"
	"github.com/zulhfreelancer/export-pull-requests/internal/provider"
	"github.com/zulhfreelancer/export-pull-requests/internal/ratelimit"
	"github.com/zulhfreelancer/export-pull-requests/pkg/models"
)

var (
	providerFlag  string
	kindFlag      string
	stateFlag     string
	userFlags     []string
	milestoneFlag string
	labelFlags    []string
	assigneeFlag  string
	endpointFlag  string
	tokenFlag     string
	bodyFlag      bool
)

var rootCmd = &cobra.Command{
	Use:   "epr [flags] owner/repo [owner/repo...]",
	Short: "Export pull requests, issues and PR comments to CSV",
	Long: `epr exports pull requests, issues, and pull-request comments from GitHub,
GitLab, or Bitbucket into CSV on standard output for offline analysis or
archival. Rows are flushed per repository; logs go to stderr.`,
	Version:       "1.0.0",
	Args:          cobra.MinimumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.Flags().StringVarP(&providerFlag, "provider", "p", "github", "provider to export from (github, gitlab, bitbucket)")
	rootCmd.Flags().StringVarP(&kindFlag, "kind", "k", "all", "what to export (issues, pr, pr_comments, all)")
	rootCmd.Flags().StringVarP(&stateFlag, "state", "s", "open", "item state filter (open, closed, all, ...)")
	rootCmd.Flags().StringArrayVarP(&userFlags, "user", "u", nil, "only items by this author; prefix with '!' to exclude instead (repeatable)")
	rootCmd.Flags().StringVar(&milestoneFlag, "milestone", "", "filter by milestone")
	rootCmd.Flags().StringArrayVar(&labelFlags, "labels", nil, "filter by label (repeatable)")
	rootCmd.Flags().StringVar(&assigneeFlag, "assignee", "", "filter by assignee")
	rootCmd.Flags().StringVar(&endpointFlag, "endpoint", "", "API endpoint override (e.g. GitHub Enterprise or self-hosted GitLab)")
	rootCmd.Flags().StringVarP(&tokenFlag, "token", "t", "", "API token override")
	rootCmd.Flags().BoolVarP(&bodyFlag, "body", "b", false, "include item bodies in the output")
}

// run validates all user input before any network traffic, then hands off
// to the orchestrator.
func run(cmd *cobra.Command, args []string) error {
	repos := make([]models.Repo, 0, len(args))
	for _, arg := range args {
		repo, err := models.ParseRepo(arg)
		if err != nil {
			return err
		}
		repos = append(repos, repo)
	}

	kind, err := models.ParseKind(kindFlag)
	if err != nil {
		return err
	}

	cfg, err := config.Load(providerFlag, tokenFlag, endpointFlag)
	if err != nil {
		return err
	}

	include, exclude := models.ParseUserFilters(userFlags)
	req := &models.ExportRequest{
		Repos:        repos,
		Provider:     providerFlag,
		Kind:         kind,
		State:        stateFlag,
		Milestone:    milestoneFlag,
		Labels:       labelFlags,
		Assignee:     assigneeFlag,
		IncludeBody:  bodyFlag,
		IncludeUsers: include,
		ExcludeUsers: exclude,
	}

	opts := provider.Options{Token: cfg.Token, Endpoint: cfg.Endpoint}
	if providerFlag == "bitbucket" {
		dir, err := ratelimit.StateDir()
		if err != nil {
			return err
		}
		counter, err := ratelimit.OpenStore(dir)
		if err != nil {
			return err
		}
		defer counter.Close()
		opts.Limiter = ratelimit.NewLimiter(counter, ratelimit.DefaultCeiling)
	}

	source, err := provider.New(providerFlag, req, opts)
	if err != nil {
		return err
	}

	logging.Info("starting export",
		"provider", providerFlag,
		"kind", string(kind),
		"repositories", len(repos))

	return export.New(req, source, os.Stdout).Run(cmd.Context())
}
