package export

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zulhfreelancer/export-pull-requests/pkg/models"
)

func twoRepos() []models.Repo {
	return []models.Repo{
		{Owner: "acme", Name: "widgets"},
		{Owner: "acme", Name: "gadgets"},
	}
}

func sampleIssue() models.Item {
	return models.Item{
		Type:      models.ItemIssue,
		Repo:      models.Repo{Owner: "acme", Name: "widgets"},
		Number:    42,
		Author:    "alice",
		Title:     "Widget falls over",
		State:     "open",
		CreatedAt: time.Date(2023, 4, 1, 12, 0, 0, 0, time.UTC),
		UpdatedAt: time.Date(2023, 4, 2, 12, 0, 0, 0, time.UTC),
		URL:       "https://example.com/acme/widgets/issues/42",
		BodyRaw:   "it just falls over",
	}
}

func TestAuthorFiltering(t *testing.T) {
	tests := []struct {
		name    string
		include []string
		exclude []string
		author  string
		kept    bool
	}{
		{
			name:   "no filters keeps everything",
			author: "alice",
			kept:   true,
		},
		{
			name:    "excluded author is dropped",
			exclude: []string{"alice"},
			author:  "alice",
			kept:    false,
		},
		{
			name:    "exclude wins regardless of include contents",
			include: []string{"alice"},
			exclude: []string{"alice"},
			author:  "alice",
			kept:    false,
		},
		{
			name:    "author absent from non-empty include set is dropped",
			include: []string{"bob"},
			author:  "alice",
			kept:    false,
		},
		{
			name:    "author present in include set is kept",
			include: []string{"alice"},
			author:  "alice",
			kept:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := &models.ExportRequest{
				Repos:        twoRepos(),
				Kind:         models.KindIssues,
				IncludeUsers: toSet(tt.include),
				ExcludeUsers: toSet(tt.exclude),
			}
			item := sampleIssue()
			item.Author = tt.author

			_, ok := NewNormalizer(req).Row(item)
			assert.Equal(t, tt.kept, ok)
		})
	}
}

func toSet(names []string) map[string]bool {
	set := make(map[string]bool)
	for _, n := range names {
		set[n] = true
	}
	return set
}

func TestRowIsDeterministic(t *testing.T) {
	req := &models.ExportRequest{Repos: twoRepos(), Kind: models.KindAll}
	n := NewNormalizer(req)

	first, ok := n.Row(sampleIssue())
	require.True(t, ok)
	second, ok := n.Row(sampleIssue())
	require.True(t, ok)

	assert.Equal(t, first, second)
}

func TestRepositoryColumnBoundary(t *testing.T) {
	multi := &models.ExportRequest{Repos: twoRepos(), Kind: models.KindIssues}
	single := &models.ExportRequest{Repos: twoRepos()[:1], Kind: models.KindIssues}

	multiRow, ok := NewNormalizer(multi).Row(sampleIssue())
	require.True(t, ok)
	singleRow, ok := NewNormalizer(single).Row(sampleIssue())
	require.True(t, ok)

	assert.Equal(t, "Repository", NewNormalizer(multi).Header()[0])
	assert.Equal(t, "acme/widgets", multiRow[0])
	assert.Len(t, multiRow, len(itemHeader))

	assert.Equal(t, "Type", NewNormalizer(single).Header()[0])
	assert.Equal(t, "issue", singleRow[0])
	assert.Len(t, singleRow, len(itemHeader)-1)
}

func TestBodyColumnInsertion(t *testing.T) {
	req := &models.ExportRequest{
		Repos:       twoRepos(),
		Kind:        models.KindIssues,
		IncludeBody: true,
	}
	n := NewNormalizer(req)

	header := n.Header()
	require.Len(t, header, len(itemHeader)+1)
	assert.Equal(t, "Body", header[4])

	row, ok := n.Row(sampleIssue())
	require.True(t, ok)
	require.Len(t, row, len(itemHeader)+1)
	assert.Equal(t, "it just falls over", row[4])
	assert.Equal(t, "Widget falls over", row[5], "title shifts right of the inserted body")
}

func TestBodyTruncation(t *testing.T) {
	req := &models.ExportRequest{
		Repos:       twoRepos(),
		Kind:        models.KindIssues,
		IncludeBody: true,
	}
	item := sampleIssue()
	item.BodyRaw = strings.Repeat("x", maxBodyLength+100)

	row, ok := NewNormalizer(req).Row(item)
	require.True(t, ok)

	body := row[4]
	assert.Len(t, body, maxBodyLength+len(truncationMark))
	assert.True(t, strings.HasSuffix(body, truncationMark))
}

func TestBodyTruncationKeepsValidUTF8(t *testing.T) {
	req := &models.ExportRequest{
		Repos:       twoRepos(),
		Kind:        models.KindIssues,
		IncludeBody: true,
	}
	item := sampleIssue()
	// Three-byte runes never divide the cap evenly, so a naive byte cut
	// would land mid-rune.
	item.BodyRaw = strings.Repeat("世", maxBodyLength)

	row, ok := NewNormalizer(req).Row(item)
	require.True(t, ok)

	body := row[4]
	assert.True(t, utf8.ValidString(body))
	assert.True(t, strings.HasSuffix(body, truncationMark))
	assert.LessOrEqual(t, len(body), maxBodyLength+len(truncationMark))
	assert.True(t, strings.HasPrefix(body, "世"))
}

func TestCommentRow(t *testing.T) {
	req := &models.ExportRequest{Repos: twoRepos(), Kind: models.KindComments}
	n := NewNormalizer(req)

	item := models.Item{
		Type:       models.ItemComment,
		Repo:       models.Repo{Owner: "acme", Name: "widgets"},
		Number:     7,
		Author:     "bob",
		CreatedAt:  time.Date(2023, 4, 1, 12, 0, 0, 0, time.UTC),
		BodyRaw:    "looks wrong",
		BodyHTML:   "<p>looks wrong</p>",
		PRNumber:   3,
		Inline:     true,
		ToLine:     12,
		FilePath:   "pkg/widget.go",
		ParentID:   5,
		CommitHash: "bb-import-commit-not-found",
	}

	header := n.Header()
	row, ok := n.Row(item)
	require.True(t, ok)
	require.Len(t, row, len(header))

	get := func(col string) string {
		for i, h := range header {
			if h == col {
				return row[i]
			}
		}
		t.Fatalf("column %q not in header", col)
		return ""
	}

	assert.Equal(t, "3", get("PRNumber"))
	assert.Equal(t, "7", get("CommentID"))
	assert.Equal(t, "inline", get("CommentType"))
	assert.Equal(t, "12", get("ToLine"))
	assert.Equal(t, "", get("FromLine"), "unset line numbers stay empty")
	assert.Equal(t, "false", get("IsDeleted"))
	assert.Equal(t, "bb-import-commit-not-found", get("CommitHash"))
	assert.Equal(t, "", get("Diff"))
}

func TestGeneralCommentType(t *testing.T) {
	req := &models.ExportRequest{Repos: twoRepos(), Kind: models.KindComments}
	item := models.Item{
		Type:     models.ItemComment,
		Repo:     models.Repo{Owner: "acme", Name: "widgets"},
		Number:   8,
		Author:   "bob",
		PRNumber: 3,
	}

	row, ok := NewNormalizer(req).Row(item)
	require.True(t, ok)
	assert.Equal(t, "general", row[4])
}

func TestFixedColumnCountForInapplicableFields(t *testing.T) {
	// An issue carries none of the pull-request fields; the row still has
	// the full schema width with empty strings.
	req := &models.ExportRequest{Repos: twoRepos(), Kind: models.KindAll}
	row, ok := NewNormalizer(req).Row(sampleIssue())
	require.True(t, ok)
	require.Len(t, row, len(itemHeader))

	for _, col := range []string{"SourceCommit", "DestinationCommit", "SourceBranch", "DestinationBranch", "DeclineReason", "MergeCommit", "ClosedBy"} {
		for i, h := range itemHeader {
			if h == col {
				assert.Equal(t, "", row[i], "column %s", col)
			}
		}
	}
}
