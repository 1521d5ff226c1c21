// Package hn fetches and models Hacker News stories via the Algolia
// search API.
package hn

import (
	"fmt"
	"strings"
	"time"
)

// Story is a Hacker News story with its text content prepared for
// embedding and analysis.
type Story struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	URL           string    `json:"url,omitempty"`
	HNURL         string    `json:"hn_url"`
	Text          string    `json:"text,omitempty"`
	Score         int       `json:"score"`
	Author        string    `json:"author"`
	CreatedAt     time.Time `json:"created_at"`
	CommentsCount int       `json:"comments_count"`
}

// Content returns the text used for embedding: the title, plus the story
// body when one exists.
func (s Story) Content() string {
	if strings.TrimSpace(s.Text) == "" {
		return s.Title
	}
	return s.Title + "\n\n" + s.Text
}

// Stats summarizes a set of stories fetched for one query.
type Stats struct {
	Query         string    `json:"query"`
	StoryCount    int       `json:"story_count"`
	TotalScore    int       `json:"total_score"`
	AvgScore      float64   `json:"avg_score"`
	TotalComments int       `json:"total_comments"`
	OldestStory   time.Time `json:"oldest_story,omitempty"`
	NewestStory   time.Time `json:"newest_story,omitempty"`
}

// ComputeStats aggregates stats over stories for the given query.
func ComputeStats(query string, stories []Story) Stats {
	st := Stats{Query: query, StoryCount: len(stories)}
	for i, s := range stories {
		st.TotalScore += s.Score
		st.TotalComments += s.CommentsCount
		if i == 0 || s.CreatedAt.Before(st.OldestStory) {
			st.OldestStory = s.CreatedAt
		}
		if i == 0 || s.CreatedAt.After(st.NewestStory) {
			st.NewestStory = s.CreatedAt
		}
	}
	if len(stories) > 0 {
		st.AvgScore = float64(st.TotalScore) / float64(len(stories))
	}
	return st
}

func itemURL(id string) string {
	return fmt.Sprintf("https://news.ycombinator.com/item?id=%s", id)
}
