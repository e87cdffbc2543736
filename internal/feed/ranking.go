package feed

import "sort"

// Engagement weights
const (
	LikeWeight    = 1
	CommentWeight = 3
)

// EngagementScore is the popularity of a post
func EngagementScore(likes, comments int) int {
	return likes*LikeWeight + comments*CommentWeight
}

// RankByEngagement orders items by score, then newest first, then id so
// equal posts always come back in the same order
func RankByEngagement(items []FeedItem) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.EngagementScore != b.EngagementScore {
			return a.EngagementScore > b.EngagementScore
		}
		if !a.Post.CreatedAt.Equal(b.Post.CreatedAt) {
			return a.Post.CreatedAt.After(b.Post.CreatedAt)
		}
		return a.Post.ID > b.Post.ID
	})
}
