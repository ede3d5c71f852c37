package github

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"
)

// アクティビティフィードの取得制限
const (
	maxFeedBodySize = 2 * 1024 * 1024
	maxActivities   = 30
)

// Activity はユーザーの公開アクティビティ1件を表す。
type Activity struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Link      string    `json:"link"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ActivityFeed は https://github.com/{user}.atom を取得し、新しい順に最大30件を返す。
func (c *Client) ActivityFeed(ctx context.Context, username string) ([]Activity, error) {
	if !ValidUsername(username) {
		return nil, fmt.Errorf("invalid GitHub username: %q", username)
	}

	feedURL := fmt.Sprintf("%s/%s.atom", c.feedBaseURL, username)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create activity request: %w", err)
	}
	req.Header.Set("Accept", "application/atom+xml")

	resp, err := c.feedClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("activity request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("activity fetch failed with status %d", resp.StatusCode)
	}

	// レスポンスボディを読み込み（最大サイズ制限付き）
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read activity feed: %w", err)
	}

	parsed, err := gofeed.NewParser().ParseString(string(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse activity feed: %w", err)
	}

	activities := make([]Activity, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		if len(activities) == maxActivities {
			break
		}
		a := Activity{ID: item.GUID, Title: item.Title, Link: item.Link}
		switch {
		case item.UpdatedParsed != nil:
			a.UpdatedAt = *item.UpdatedParsed
		case item.PublishedParsed != nil:
			a.UpdatedAt = *item.PublishedParsed
		}
		activities = append(activities, a)
	}
	return activities, nil
}
