package loadgen

import (
	"context"
	"fmt"
	"net/http"
)

type idResponse struct {
	ID uint `json:"id"`
}

// seed registers users and adds events in order, returning their ids.
func seed(ctx context.Context, c *client, cfg *Config) (users, events []uint, err error) {
	users = make([]uint, 0, cfg.Users)
	for i := 0; i < cfg.Users; i++ {
		var resp idResponse
		body := map[string]any{
			"userName": fmt.Sprintf("load-user-%03d", i+1),
			"email":    fmt.Sprintf("load-user-%03d@example.com", i+1),
			"voteNum":  cfg.Budget,
		}
		if err := c.expect(ctx, http.StatusCreated, http.MethodPost, "/user", body, &resp); err != nil {
			return nil, nil, fmt.Errorf("register user %d: %w", i+1, err)
		}
		users = append(users, resp.ID)
	}

	events = make([]uint, 0, cfg.Events)
	for i := 0; i < cfg.Events; i++ {
		var resp idResponse
		body := map[string]any{
			"eventName": fmt.Sprintf("load-event-%03d", i+1),
			"keyword":   "load",
			"userId":    users[i%len(users)],
		}
		if err := c.expect(ctx, http.StatusCreated, http.MethodPost, "/rs/event", body, &resp); err != nil {
			return nil, nil, fmt.Errorf("add event %d: %w", i+1, err)
		}
		events = append(events, resp.ID)
	}
	return users, events, nil
}
