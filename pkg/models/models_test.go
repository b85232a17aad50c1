package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRepo(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Repo
		wantErr bool
	}{
		{
			name:  "valid spec",
			input: "golang/go",
			want:  Repo{Owner: "golang", Name: "go"},
		},
		{
			name:  "valid spec with dots and dashes",
			input: "some-org/repo.name",
			want:  Repo{Owner: "some-org", Name: "repo.name"},
		},
		{
			name:    "no separator",
			input:   "golanggo",
			wantErr: true,
		},
		{
			name:    "two separators",
			input:   "golang/go/extra",
			wantErr: true,
		},
		{
			name:    "empty owner",
			input:   "/go",
			wantErr: true,
		},
		{
			name:    "empty name",
			input:   "golang/",
			wantErr: true,
		},
		{
			name:    "whitespace in owner",
			input:   "gol ang/go",
			wantErr: true,
		},
		{
			name:    "whitespace in name",
			input:   "golang/g o",
			wantErr: true,
		},
		{
			name:    "empty string",
			input:   "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRepo(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.input, got.String())
		})
	}
}

func TestParseKind(t *testing.T) {
	for _, valid := range []string{"issues", "pr", "pr_comments", "all"} {
		kind, err := ParseKind(valid)
		require.NoError(t, err)
		assert.Equal(t, Kind(valid), kind)
	}

	for _, invalid := range []string{"", "issue", "prs", "comments", "ALL"} {
		_, err := ParseKind(invalid)
		assert.Error(t, err, "kind %q should be rejected", invalid)
	}
}

func TestParseUserFilters(t *testing.T) {
	tests := []struct {
		name        string
		users       []string
		wantInclude []string
		wantExclude []string
	}{
		{
			name:        "plain names are included",
			users:       []string{"alice", "bob"},
			wantInclude: []string{"alice", "bob"},
		},
		{
			name:        "bang prefix excludes",
			users:       []string{"!mallory"},
			wantExclude: []string{"mallory"},
		},
		{
			name:        "mixed list",
			users:       []string{"alice", "!bot", " bob "},
			wantInclude: []string{"alice", "bob"},
			wantExclude: []string{"bot"},
		},
		{
			name:  "blank entries are dropped",
			users: []string{"", "  "},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			include, exclude := ParseUserFilters(tt.users)
			assert.Len(t, include, len(tt.wantInclude))
			for _, u := range tt.wantInclude {
				assert.True(t, include[u], "expected %q in include set", u)
			}
			assert.Len(t, exclude, len(tt.wantExclude))
			for _, u := range tt.wantExclude {
				assert.True(t, exclude[u], "expected %q in exclude set", u)
			}
		})
	}
}
