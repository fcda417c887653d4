package model

// Post is the single post a view is about.
type Post struct {
	ID               int64   `json:"id"`
	Name             string  `json:"name"`
	URL              string  `json:"url,omitempty"`
	Body             string  `json:"body,omitempty"`
	CreatorID        int64   `json:"creator_id"`
	CreatorName      string  `json:"creator_name"`
	CommunityID      int64   `json:"community_id"`
	CommunityName    string  `json:"community_name"`
	Removed          bool    `json:"removed"`
	Locked           bool    `json:"locked"`
	Published        string  `json:"published"`
	Updated          *string `json:"updated"`
	NumberOfComments int64   `json:"number_of_comments"`
	Score            int64   `json:"score"`
	Upvotes          int64   `json:"upvotes"`
	Downvotes        int64   `json:"downvotes"`
	HotRank          int64   `json:"hot_rank"`
	MyVote           *int64  `json:"my_vote"`
	Subscribed       bool    `json:"subscribed"`
	Saved            bool    `json:"saved"`
}

// Clone returns a copy that shares no pointers with p.
func (p Post) Clone() Post {
	p.Updated = cloneString(p.Updated)
	p.MyVote = cloneInt(p.MyVote)
	return p
}

// Community is the community the post belongs to.
type Community struct {
	ID                  int64   `json:"id"`
	Name                string  `json:"name"`
	Title               string  `json:"title"`
	Description         string  `json:"description,omitempty"`
	CategoryID          int64   `json:"category_id"`
	CategoryName        string  `json:"category_name"`
	CreatorID           int64   `json:"creator_id"`
	CreatorName         string  `json:"creator_name"`
	Removed             bool    `json:"removed"`
	Published           string  `json:"published"`
	Updated             *string `json:"updated"`
	NumberOfSubscribers int64   `json:"number_of_subscribers"`
	NumberOfPosts       int64   `json:"number_of_posts"`
	NumberOfComments    int64   `json:"number_of_comments"`
	Subscribed          bool    `json:"subscribed"`
}

// Clone returns a copy that shares no pointers with c.
func (c Community) Clone() Community {
	c.Updated = cloneString(c.Updated)
	return c
}

// Moderator links a user to the community they moderate.
type Moderator struct {
	ID            int64  `json:"id"`
	UserID        int64  `json:"user_id"`
	UserName      string `json:"user_name"`
	CommunityID   int64  `json:"community_id"`
	CommunityName string `json:"community_name"`
	Published     string `json:"published"`
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneInt(i *int64) *int64 {
	if i == nil {
		return nil
	}
	v := *i
	return &v
}
