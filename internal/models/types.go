package models

import (
	"context"
	"errors"
	"time"
)

// Platform names a chat platform adapter
type Platform string

const (
	PlatformDiscord  Platform = "discord"
	PlatformTelegram Platform = "telegram"
)

// ErrUnsupported is returned by adapters for operations their platform lacks
var ErrUnsupported = errors.New("operation not supported on this platform")

// Invocation is one command call as seen by the handler. Adapters fill it
// from platform events; the handler never sees platform types.
type Invocation struct {
	RequestID string
	Platform  Platform
	GuildID   string
	ChannelID string
	UserID    string
	UserName  string
	// UserMention renders the caller in a way the platform notifies them.
	UserMention string
	// IsModerator is what the platform asserts about the caller's rights.
	IsModerator bool
	Locale      string
	Command     string
	// Args is the single free-text argument, possibly empty.
	Args string
}

// Reply is what the handler wants delivered back to the caller
type Reply struct {
	Text string
	// Ephemeral replies are visible only to the caller where supported.
	Ephemeral bool
	// MentionRoleIDs lists roles the reply is allowed to notify.
	MentionRoleIDs []string
}

// Actions are the platform operations commands may need beyond replying
type Actions interface {
	CreatePrivateChannel(ctx context.Context, guildID, name, userID string) (string, error)
	DeleteChannel(ctx context.Context, channelID string) error
	SendMessage(ctx context.Context, channelID, text string) error
	TimeoutMember(ctx context.Context, guildID, userID string, until time.Time) error
	MentionRole(roleID string) string
	MentionUser(userID string) string
	MentionChannel(channelID string) string
}
