package telegram

import (
	"context"
	"fmt"
	"html"
	"strconv"
	"time"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/guild-helper-bot-go/internal/middleware"
	"github.com/guild-helper-bot-go/internal/models"
	"github.com/guild-helper-bot-go/pkg/markdown"
	"github.com/patrickmn/go-cache"
)

// Actions performs chat operations through the Bot API. Telegram has no
// private channels, so ticket operations report models.ErrUnsupported.
type Actions struct {
	api           *tgbotapi.BotAPI
	helperMention string
	users         *cache.Cache
}

// NewActions creates the Telegram side of command actions
func NewActions(api *tgbotapi.BotAPI, helperMention string) *Actions {
	return &Actions{
		api:           api,
		helperMention: helperMention,
		users:         cache.New(24*time.Hour, time.Hour),
	}
}

// Remember keeps a user's mention text around so later mentions by id read
// as a name.
func (a *Actions) Remember(user *tgbotapi.User) {
	a.users.SetDefault(strconv.FormatInt(user.ID, 10), mention(user))
}

func (a *Actions) CreatePrivateChannel(ctx context.Context, guildID, name, userID string) (string, error) {
	return "", models.ErrUnsupported
}

func (a *Actions) DeleteChannel(ctx context.Context, channelID string) error {
	return models.ErrUnsupported
}

// SendMessage posts text into a chat
func (a *Actions) SendMessage(ctx context.Context, channelID, text string) error {
	chatID, err := strconv.ParseInt(channelID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid chat id %q: %w", channelID, err)
	}
	if err := a.send(chatID, 0, text); err != nil {
		return fmt.Errorf("failed to send message to %s: %w", channelID, err)
	}
	return nil
}

// send delivers markdown text as HTML and falls back to plain text when
// Telegram rejects the markup or it would not fit.
func (a *Actions) send(chatID int64, replyTo int, text string) error {
	if formatted := markdown.ToTelegramHTML(text); formatted != "" && utf8.RuneCountInString(formatted) <= MaxMessageLength {
		msg := tgbotapi.NewMessage(chatID, formatted)
		msg.ParseMode = tgbotapi.ModeHTML
		msg.ReplyToMessageID = replyTo
		msg.DisableWebPagePreview = true
		if _, err := a.api.Send(msg); err == nil {
			return nil
		}
	}

	msg := tgbotapi.NewMessage(chatID, middleware.Truncate(text, MaxMessageLength))
	msg.ReplyToMessageID = replyTo
	msg.DisableWebPagePreview = true
	_, err := a.api.Send(msg)
	return err
}

// TimeoutMember revokes every send permission of a member until the given time
func (a *Actions) TimeoutMember(ctx context.Context, guildID, userID string, until time.Time) error {
	chatID, err := strconv.ParseInt(guildID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid chat id %q: %w", guildID, err)
	}
	id, err := strconv.ParseInt(userID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid user id %q: %w", userID, err)
	}

	restrict := tgbotapi.RestrictChatMemberConfig{
		ChatMemberConfig: tgbotapi.ChatMemberConfig{
			ChatID: chatID,
			UserID: id,
		},
		UntilDate:   until.Unix(),
		Permissions: &tgbotapi.ChatPermissions{},
	}
	if _, err := a.api.Request(restrict); err != nil {
		return fmt.Errorf("failed to restrict member %s: %w", userID, err)
	}
	return nil
}

// MentionRole returns the configured helper mention; Telegram has no roles.
func (a *Actions) MentionRole(roleID string) string {
	return a.helperMention
}

func (a *Actions) MentionUser(userID string) string {
	if val, found := a.users.Get(userID); found {
		return val.(string)
	}
	return fmt.Sprintf(`<a href="tg://user?id=%s">%s</a>`, userID, userID)
}

func (a *Actions) MentionChannel(channelID string) string {
	return ""
}

func mention(user *tgbotapi.User) string {
	if user.UserName != "" {
		return "@" + user.UserName
	}
	return fmt.Sprintf(`<a href="tg://user?id=%d">%s</a>`, user.ID, html.EscapeString(displayName(user)))
}

func displayName(user *tgbotapi.User) string {
	if user.UserName != "" {
		return user.UserName
	}
	name := user.FirstName
	if user.LastName != "" {
		name += " " + user.LastName
	}
	if name == "" {
		return strconv.FormatInt(user.ID, 10)
	}
	return name
}
