package telegram

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/guild-helper-bot-go/internal/config"
	"github.com/guild-helper-bot-go/internal/handlers"
	"github.com/guild-helper-bot-go/internal/models"
	"github.com/sirupsen/logrus"
)

// MaxMessageLength is the longest message Telegram accepts
const MaxMessageLength = 4096

// Bot connects the command handler to Telegram group chats
type Bot struct {
	api     *tgbotapi.BotAPI
	config  *config.Config
	handler *handlers.CommandHandler
	actions *Actions
	logger  *logrus.Logger
}

// New authorizes against the Bot API
func New(cfg *config.Config, handler *handlers.CommandHandler, logger *logrus.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.Platforms.Telegram.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}
	api.Debug = cfg.Logging.Level == "debug"
	logger.WithField("username", api.Self.UserName).Info("Telegram bot authorized")

	return &Bot{
		api:     api,
		config:  cfg,
		handler: handler,
		actions: NewActions(api, cfg.Platforms.Telegram.HelperMention),
		logger:  logger,
	}, nil
}

// Run long-polls for updates until ctx is done. Every update is handled on
// its own goroutine.
func (b *Bot) Run(ctx context.Context) error {
	if _, err := b.api.Request(tgbotapi.NewSetMyCommands(BotCommands(handlers.Definitions())...)); err != nil {
		b.logger.WithError(err).Warn("Failed to register Telegram commands")
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.config.Platforms.Telegram.UpdateTimeout
	updates := b.api.GetUpdatesChan(u)
	b.logger.Info("Using long polling")

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil {
				continue
			}
			wg.Add(1)
			go func(message *tgbotapi.Message) {
				defer wg.Done()
				b.handleMessage(ctx, message)
			}(update.Message)
		}
	}
}

func (b *Bot) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	if message.From != nil {
		b.actions.Remember(message.From)
	}

	if len(message.NewChatMembers) > 0 {
		b.greet(ctx, message)
		return
	}

	inv, ok := Invocation(message, b.config.Bot.Prefix)
	if !ok {
		return
	}
	if command, _ := handlers.Resolve(inv.Command); command == handlers.CommandMute {
		inv.IsModerator = b.isModerator(message)
	}
	if reply := message.ReplyToMessage; reply != nil && reply.From != nil {
		b.actions.Remember(reply.From)
	}

	result := b.handler.HandleCommand(ctx, inv, b.actions)
	if err := b.actions.send(message.Chat.ID, message.MessageID, result.Text); err != nil {
		b.logger.WithError(err).WithField("request_id", inv.RequestID).Error("Failed to send reply")
	}
}

func (b *Bot) greet(ctx context.Context, message *tgbotapi.Message) {
	chatID := strconv.FormatInt(message.Chat.ID, 10)
	for i := range message.NewChatMembers {
		member := &message.NewChatMembers[i]
		if member.IsBot {
			continue
		}
		b.actions.Remember(member)
		err := b.handler.HandleMemberJoin(ctx, models.PlatformTelegram, chatID, strconv.FormatInt(member.ID, 10), member.LanguageCode, b.actions)
		if err != nil {
			b.logger.WithError(err).WithField("user_id", member.ID).Error("Failed to greet member")
		}
	}
}

func (b *Bot) isModerator(message *tgbotapi.Message) bool {
	if message.From == nil || !(message.Chat.IsGroup() || message.Chat.IsSuperGroup()) {
		return false
	}
	member, err := b.api.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{
			ChatID: message.Chat.ID,
			UserID: message.From.ID,
		},
	})
	if err != nil {
		b.logger.WithError(err).WithField("user_id", message.From.ID).Warn("Failed to resolve chat member")
		return false
	}
	return member.IsAdministrator() || member.IsCreator()
}

// Invocation builds a command invocation from a slash or prefixed message.
// A bare mute given as a reply targets the replied-to author.
func Invocation(message *tgbotapi.Message, prefix string) (*models.Invocation, bool) {
	if message == nil || message.From == nil || message.Chat == nil {
		return nil, false
	}

	var name, args string
	switch {
	case message.IsCommand():
		name, args = message.Command(), message.CommandArguments()
	default:
		var ok bool
		name, args, ok = handlers.ParseCommand(message.Text, prefix)
		if !ok {
			return nil, false
		}
	}

	if args == "" && message.ReplyToMessage != nil && message.ReplyToMessage.From != nil {
		if command, _ := handlers.Resolve(name); command == handlers.CommandMute {
			args = strconv.FormatInt(message.ReplyToMessage.From.ID, 10)
		}
	}

	chatID := strconv.FormatInt(message.Chat.ID, 10)
	return &models.Invocation{
		RequestID:   uuid.NewString(),
		Platform:    models.PlatformTelegram,
		GuildID:     chatID,
		ChannelID:   chatID,
		UserID:      strconv.FormatInt(message.From.ID, 10),
		UserName:    displayName(message.From),
		UserMention: mention(message.From),
		Locale:      message.From.LanguageCode,
		Command:     name,
		Args:        args,
	}, true
}

// BotCommands lists command definitions in the form setMyCommands expects
func BotCommands(defs []handlers.CommandInfo) []tgbotapi.BotCommand {
	var commands []tgbotapi.BotCommand
	for _, def := range defs {
		commands = append(commands, tgbotapi.BotCommand{Command: def.Name, Description: def.Description})
		for _, alias := range def.Aliases {
			commands = append(commands, tgbotapi.BotCommand{Command: alias, Description: def.Description})
		}
	}
	return commands
}
