package api

import (
	"context"
	"strconv"
	"time"

	"github.com/PrinceLee1/lovey-dovey/internal/domain"
)

// HistoryEntry records a finished couple game against the player's history.
type HistoryEntry struct {
	ID              int64          `json:"id,omitempty"`
	GameID          string         `json:"game_id"`
	GameTitle       string         `json:"game_title"`
	Kind            domain.Kind    `json:"kind"`
	Category        string         `json:"category"`
	DurationMinutes int            `json:"duration_minutes"`
	Players         int            `json:"players"`
	Difficulty      string         `json:"difficulty,omitempty"`
	Rounds          int            `json:"rounds"`
	Skipped         int            `json:"skipped"`
	XPEarned        int            `json:"xp_earned"`
	Meta            map[string]any `json:"meta"`
	PlayedAt        *time.Time     `json:"played_at,omitempty"`
}

type HistoryReceipt struct {
	History HistoryEntry `json:"history"`
	User    struct {
		XP *int `json:"xp"`
	} `json:"user"`
}

func (c *Client) RecordHistory(ctx context.Context, e HistoryEntry) (HistoryReceipt, error) {
	if e.Meta == nil {
		e.Meta = map[string]any{}
	}
	var out HistoryReceipt
	if err := c.post(ctx, "/history", e, &out); err != nil {
		return HistoryReceipt{}, err
	}
	return out, nil
}

func (c *Client) History(ctx context.Context, limit int) ([]HistoryEntry, error) {
	var out struct {
		Data []HistoryEntry `json:"data"`
	}
	path := "/history"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	if err := c.get(ctx, path, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}
