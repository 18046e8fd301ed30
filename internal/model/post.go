package model

import "time"

// SnippetLen is the number of runes kept by TextSnippet.
const SnippetLen = 50

// Post is a feed item as stored. Score is the denormalized ledger sum.
type Post struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Body      string    `json:"text"`
	Score     int64     `json:"points"`
	AuthorID  int64     `json:"creatorId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TextSnippet returns at most SnippetLen runes of the body.
func (p Post) TextSnippet() string {
	runes := []rune(p.Body)
	if len(runes) <= SnippetLen {
		return p.Body
	}
	return string(runes[:SnippetLen])
}

// FeedPage is one page of the reverse-chronological feed.
type FeedPage struct {
	Items      []Post
	HasMore    bool
	NextCursor string
}

// PostView is a post enriched with its author and the viewer's vote.
type PostView struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Text        string     `json:"text"`
	TextSnippet string     `json:"textSnippet"`
	Points      int64      `json:"points"`
	CreatorID   int64      `json:"creatorId"`
	Creator     *Author    `json:"creator"`
	VoteStatus  *Direction `json:"voteStatus"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// PaginatedPosts is the API response for the feed.
type PaginatedPosts struct {
	Posts      []PostView `json:"posts"`
	HasMore    bool       `json:"hasMore"`
	NextCursor string     `json:"nextCursor,omitempty"`
}

// PostInput is the API request body for creating or editing a post.
type PostInput struct {
	Title string `json:"title"`
	Text  string `json:"text"`
}

// ScoreDrift describes a post whose stored score disagrees with its ledger.
type ScoreDrift struct {
	PostID    int64 `json:"postId"`
	Score     int64 `json:"score"`
	LedgerSum int64 `json:"ledgerSum"`
}
