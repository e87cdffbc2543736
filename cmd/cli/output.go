package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/viper"
	"github.com/zfogg/plaza/internal/client"
)

var (
	headerColor = color.New(color.FgCyan, color.Bold)
	dimColor    = color.New(color.FgHiBlack)
	tagColor    = color.New(color.FgMagenta)
)

func jsonOutput() bool {
	return viper.GetString("output.format") == "json"
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printSuccess(msg string, args ...interface{}) {
	color.New(color.FgGreen).Printf(msg+"\n", args...)
}

func printError(msg string, args ...interface{}) {
	color.New(color.FgRed).Fprintf(os.Stderr, "Error: "+msg+"\n", args...)
}

func printInfo(msg string, args ...interface{}) {
	color.New(color.FgCyan).Printf(msg+"\n", args...)
}

func ago(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}

func printFeed(heading string, offset int, items []client.FeedItem) {
	headerColor.Printf("%s feed (offset %d)\n\n", heading, offset)
	if len(items) == 0 {
		dimColor.Println("  No posts")
		return
	}
	for i, it := range items {
		text := it.Post.Content
		if it.Post.Title != "" {
			text = it.Post.Title
		}
		fmt.Printf("%2d. @%s  %s\n", offset+i+1, it.Post.Author.Username, dimColor.Sprint(ago(it.Post.CreatedAt)))
		if text != "" {
			fmt.Printf("    %s\n", text)
		}
		if it.Post.ImageURL != "" {
			dimColor.Printf("    [image] %s\n", it.Post.ImageURL)
		}
		if len(it.Post.HashTags) > 0 {
			fmt.Printf("    %s\n", tagColor.Sprint(strings.Join(it.Post.HashTags, " ")))
		}
		fmt.Printf("    %d likes  %d comments  score %d  %s\n\n",
			it.TotalLikes, it.TotalComments, it.EngagementScore, dimColor.Sprint(it.Post.ID))
	}
}

func printSearch(res *client.SearchResult) {
	headerColor.Printf("%d %s\n\n", len(res.Results), res.Type)
	for _, r := range res.Results {
		id, _ := r["id"].(string)
		switch res.Type {
		case "users":
			fmt.Printf("  @%v  %s\n", r["username"], dimColor.Sprint(id))
		default:
			label := r["title"]
			if label == nil || label == "" {
				label = r["content"]
			}
			fmt.Printf("  %v  %s\n", label, dimColor.Sprint(id))
		}
	}
}
