package slack

import (
	"context"
	"fmt"

	"github.com/slack-go/slack"
)

type Client struct {
	api *slack.Client
}

func NewClient(botToken string, opts ...slack.Option) *Client {
	return &Client{api: slack.New(botToken, opts...)}
}

func (c *Client) PostMessage(channelID, text string) (string, error) {
	_, ts, err := c.api.PostMessage(channelID, slack.MsgOptionText(text, false))
	if err != nil {
		return "", fmt.Errorf("failed to post message: %w", err)
	}
	return ts, nil
}

// Identity calls auth.test and returns the bot's own user ID and name.
func (c *Client) Identity(ctx context.Context) (userID, name string, err error) {
	resp, err := c.api.AuthTestContext(ctx)
	if err != nil {
		return "", "", fmt.Errorf("failed to call auth.test: %w", err)
	}
	if resp.UserID == "" {
		return "", "", fmt.Errorf("auth.test returned no user ID")
	}
	return resp.UserID, resp.User, nil
}
