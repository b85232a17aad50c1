package export

import (
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/zulhfreelancer/export-pull-requests/pkg/models"
)

const (
	// maxBodyLength caps the optional body column; longer bodies are cut
	// and marked.
	maxBodyLength  = 8000
	truncationMark = "..."

	// timeLayout is the single timestamp representation used across all
	// rows, in local time.
	timeLayout = "2006-01-02 15:04:05"
)

// Column order is fixed per export kind; inapplicable fields stay as empty
// strings so the column count never varies within a run.
var (
	commentHeader = []string{
		"Repository", "Type", "PRNumber", "User", "CommentType", "CommentID",
		"BodyRaw", "BodyHTML", "CreatedAt", "IsDeleted", "ToLine", "FromLine",
		"FilePath", "Diff", "ParentID", "CommitHash",
	}
	itemHeader = []string{
		"Repository", "Type", "#", "User", "Title", "State", "CreatedAt",
		"UpdatedAt", "URL", "BodyRaw", "BodyHTML", "SourceCommit",
		"DestinationCommit", "SourceBranch", "DestinationBranch",
		"DeclineReason", "MergeCommit", "ClosedBy",
	}
)

// bodyColumn is where the optional Body field lands in the item schema
// (fifth column, right after User).
const bodyColumn = 4

// Normalizer converts Items into output rows, applying the author filters
// and the per-run schema adjustments (optional Body column, Repository
// column dropped for single-repository requests).
type Normalizer struct {
	req       *models.ExportRequest
	multiRepo bool
}

// NewNormalizer builds a normalizer for one export request.
func NewNormalizer(req *models.ExportRequest) *Normalizer {
	return &Normalizer{
		req:       req,
		multiRepo: len(req.Repos) > 1,
	}
}

// Header returns the header row for the active schema.
func (n *Normalizer) Header() []string {
	var header []string
	if n.req.Kind == models.KindComments {
		header = append(header, commentHeader...)
	} else {
		header = append(header, itemHeader...)
		if n.req.IncludeBody {
			header = insertColumn(header, bodyColumn, "Body")
		}
	}
	if !n.multiRepo {
		header = header[1:]
	}
	return header
}

// Row converts one item into a row for the active schema. The second return
// is false when the author filters drop the item: authors in the exclude
// set never appear, and a non-empty include set admits only its members.
func (n *Normalizer) Row(item models.Item) ([]string, bool) {
	if n.req.ExcludeUsers[item.Author] {
		return nil, false
	}
	if len(n.req.IncludeUsers) > 0 && !n.req.IncludeUsers[item.Author] {
		return nil, false
	}

	var row []string
	if item.Type == models.ItemComment {
		row = commentRow(item)
	} else {
		row = itemRow(item)
		if n.req.IncludeBody {
			row = insertColumn(row, bodyColumn, truncateBody(item.BodyRaw))
		}
	}
	if !n.multiRepo {
		row = row[1:]
	}
	return row, true
}

func commentRow(item models.Item) []string {
	commentType := "general"
	if item.Inline {
		commentType = "inline"
	}
	return []string{
		item.Repo.String(),
		string(item.Type),
		strconv.Itoa(item.PRNumber),
		item.Author,
		commentType,
		strconv.Itoa(item.Number),
		item.BodyRaw,
		item.BodyHTML,
		formatTime(item.CreatedAt),
		strconv.FormatBool(item.Deleted),
		optionalInt(item.ToLine),
		optionalInt(item.FromLine),
		item.FilePath,
		"", // Diff: not carried by the comment payload
		optionalInt(item.ParentID),
		item.CommitHash,
	}
}

func itemRow(item models.Item) []string {
	return []string{
		item.Repo.String(),
		string(item.Type),
		strconv.Itoa(item.Number),
		item.Author,
		item.Title,
		item.State,
		formatTime(item.CreatedAt),
		formatTime(item.UpdatedAt),
		item.URL,
		item.BodyRaw,
		item.BodyHTML,
		item.SourceCommit,
		item.DestCommit,
		item.SourceBranch,
		item.DestBranch,
		item.DeclineReason,
		item.MergeCommit,
		item.ClosedBy,
	}
}

func insertColumn(row []string, at int, value string) []string {
	out := make([]string, 0, len(row)+1)
	out = append(out, row[:at]...)
	out = append(out, value)
	return append(out, row[at:]...)
}

// truncateBody cuts over-long bodies at the cap, backing off to the nearest
// rune boundary so the output stays valid UTF-8.
func truncateBody(body string) string {
	if len(body) <= maxBodyLength {
		return body
	}
	cut := maxBodyLength
	for cut > 0 && !utf8.RuneStart(body[cut]) {
		cut--
	}
	return body[:cut] + truncationMark
}

// formatTime renders a timestamp in local time. Zero timestamps become
// empty columns.
func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format(timeLayout)
}

// optionalInt renders zero-valued identifiers and line numbers as empty
// columns.
func optionalInt(n int) string {
	if n == 0 {
		return ""
	}
	return strconv.Itoa(n)
}
