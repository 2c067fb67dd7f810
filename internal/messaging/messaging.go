package messaging

import (
	"context"
	"fmt"
	"time"
)

// Action is one actionable control attached to a prompt.
type Action struct {
	Label string
	Data  string
}

// Messenger is the narrow surface this core consumes from the chat
// transport. Message references are opaque handles minted by the
// implementation; they are stored and handed back verbatim.
type Messenger interface {
	// FetchPostText returns the current text or caption of a source post.
	FetchPostText(ctx context.Context, channelID int64, postID int) (string, error)

	// SendPrompt delivers a message with optional action rows and returns a
	// reference usable for a later DisableActions call.
	SendPrompt(ctx context.Context, destination int64, text string, actions [][]Action) (string, error)

	// DisableActions removes the action controls from a delivered prompt.
	DisableActions(ctx context.Context, ref string) error

	// SendPhoto delivers a photo by transport-side reference.
	SendPhoto(ctx context.Context, destination int64, photoRef, caption string) error
}

// RateLimitError reports that the transport refused delivery and suggests
// when to retry.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
}
