package posts

import (
	"regexp"

	"github.com/zfogg/plaza/internal/models"
)

var hashtagPattern = regexp.MustCompile(`#\w+`)

// ExtractHashtags returns every #tag in s in the order written, repeats
// included, each keeping its leading '#'
func ExtractHashtags(s string) []string {
	tags := hashtagPattern.FindAllString(s, -1)
	if tags == nil {
		return []string{}
	}
	return tags
}

// TagRows turns tags into PostHashtag rows for postID, numbered in order
func TagRows(postID string, tags []string) []models.PostHashtag {
	rows := make([]models.PostHashtag, 0, len(tags))
	for i, t := range tags {
		rows = append(rows, models.PostHashtag{PostID: postID, Position: i, Tag: t})
	}
	return rows
}
