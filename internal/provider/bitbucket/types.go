package bitbucket

// Bitbucket 2.0 API response shapes, limited to the fields the export reads.

type account struct {
	Nickname    string `json:"nickname"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
}

// handle returns the best available user handle. Bitbucket responses carry
// nickname, username, or only a display name depending on account age and
// privacy settings.
func (a *account) handle() string {
	if a == nil {
		return ""
	}
	if a.Nickname != "" {
		return a.Nickname
	}
	if a.Username != "" {
		return a.Username
	}
	return a.DisplayName
}

type htmlLinks struct {
	HTML struct {
		Href string `json:"href"`
	} `json:"html"`
}

type commitRef struct {
	Hash string `json:"hash"`
}

type branchRef struct {
	Name string `json:"name"`
}

// endpointRef is the nested source/destination object on a pull request.
type endpointRef struct {
	Commit *commitRef `json:"commit"`
	Branch *branchRef `json:"branch"`
}

type content struct {
	Raw  string `json:"raw"`
	HTML string `json:"html"`
}

type pullRequest struct {
	ID          int         `json:"id"`
	Title       string      `json:"title"`
	State       string      `json:"state"`
	Author      *account    `json:"author"`
	CreatedOn   string      `json:"created_on"`
	UpdatedOn   string      `json:"updated_on"`
	Summary     content     `json:"summary"`
	Reason      string      `json:"reason"`
	ClosedBy    *account    `json:"closed_by"`
	MergeCommit *commitRef  `json:"merge_commit"`
	Source      endpointRef `json:"source"`
	Destination endpointRef `json:"destination"`
	Links       htmlLinks   `json:"links"`
}

type issue struct {
	ID        int       `json:"id"`
	Title     string    `json:"title"`
	State     string    `json:"state"`
	Reporter  *account  `json:"reporter"`
	Content   content   `json:"content"`
	CreatedOn string    `json:"created_on"`
	UpdatedOn string    `json:"updated_on"`
	Links     htmlLinks `json:"links"`
}

type comment struct {
	ID        int      `json:"id"`
	Content   content  `json:"content"`
	User      *account `json:"user"`
	CreatedOn string   `json:"created_on"`
	Deleted   bool     `json:"deleted"`
	Parent    *struct {
		ID int `json:"id"`
	} `json:"parent"`
	Inline *struct {
		Path string `json:"path"`
		From *int   `json:"from"`
		To   *int   `json:"to"`
	} `json:"inline"`
}

type pullRequestPage struct {
	Values []pullRequest `json:"values"`
	Next   string        `json:"next"`
}

type issuePage struct {
	Values []issue `json:"values"`
}

type commentPage struct {
	Values []comment `json:"values"`
	Next   string    `json:"next"`
}
