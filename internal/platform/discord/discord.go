package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
	"github.com/guild-helper-bot-go/internal/config"
	"github.com/guild-helper-bot-go/internal/handlers"
	"github.com/guild-helper-bot-go/internal/middleware"
	"github.com/guild-helper-bot-go/internal/models"
	"github.com/guild-helper-bot-go/internal/services/tickets"
	"github.com/sirupsen/logrus"
)

// MaxMessageLength is the longest message Discord accepts
const MaxMessageLength = 2000

const moderatorPermissions = discordgo.PermissionModerateMembers | discordgo.PermissionAdministrator

// Bot connects the command handler to a Discord guild
type Bot struct {
	session *discordgo.Session
	config  *config.Config
	handler *handlers.CommandHandler
	tickets *tickets.Service
	actions *Actions
	logger  *logrus.Logger
}

// New creates a Discord session. Nothing is sent until Run.
func New(cfg *config.Config, handler *handlers.CommandHandler, ticketService *tickets.Service, logger *logrus.Logger) (*Bot, error) {
	session, err := discordgo.New("Bot " + cfg.Platforms.Discord.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create Discord session: %w", err)
	}

	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsMessageContent

	return &Bot{
		session: session,
		config:  cfg,
		handler: handler,
		tickets: ticketService,
		actions: NewActions(session, cfg.Tickets.CategoryID, cfg.Bot.HelperRoleID),
		logger:  logger,
	}, nil
}

// Run opens the gateway connection and blocks until ctx is done
func (b *Bot) Run(ctx context.Context) error {
	b.session.AddHandler(func(s *discordgo.Session, event *discordgo.Ready) {
		b.onReady(s, event)
	})
	b.session.AddHandler(func(s *discordgo.Session, event *discordgo.InteractionCreate) {
		b.onInteraction(ctx, s, event)
	})
	b.session.AddHandler(func(s *discordgo.Session, event *discordgo.MessageCreate) {
		b.onMessage(ctx, s, event)
	})
	b.session.AddHandler(func(s *discordgo.Session, event *discordgo.GuildMemberAdd) {
		b.onMemberAdd(ctx, event)
	})
	b.session.AddHandler(func(s *discordgo.Session, event *discordgo.ChannelDelete) {
		b.tickets.Forget(event.ID)
	})

	if err := b.session.Open(); err != nil {
		return fmt.Errorf("failed to open Discord session: %w", err)
	}
	b.logger.WithField("guild_id", b.config.Platforms.Discord.GuildID).Info("Discord session opened")

	<-ctx.Done()

	if err := b.session.Close(); err != nil {
		return fmt.Errorf("failed to close Discord session: %w", err)
	}
	b.logger.Info("Discord session closed")
	return nil
}

func (b *Bot) onReady(s *discordgo.Session, event *discordgo.Ready) {
	guildID := b.config.Platforms.Discord.GuildID
	commands := ApplicationCommands(handlers.Definitions())
	if _, err := s.ApplicationCommandBulkOverwrite(event.Application.ID, guildID, commands); err != nil {
		b.logger.WithError(err).Error("Failed to register slash commands")
		return
	}
	b.logger.WithFields(logrus.Fields{
		"guild_id": guildID,
		"commands": len(commands),
		"user":     event.User.Username,
	}).Info("Slash commands registered")
}

func (b *Bot) onInteraction(ctx context.Context, s *discordgo.Session, event *discordgo.InteractionCreate) {
	if event.Type != discordgo.InteractionApplicationCommand || event.Member == nil {
		return
	}
	data := event.ApplicationCommandData()

	inv := &models.Invocation{
		RequestID:   uuid.NewString(),
		Platform:    models.PlatformDiscord,
		GuildID:     event.GuildID,
		ChannelID:   event.ChannelID,
		UserID:      event.Member.User.ID,
		UserName:    event.Member.User.Username,
		UserMention: event.Member.User.Mention(),
		IsModerator: event.Member.Permissions&moderatorPermissions != 0,
		Locale:      string(event.Locale),
		Command:     data.Name,
		Args:        OptionArgs(data.Options),
	}

	command, reply, ok := b.handler.Admit(inv)
	if !ok {
		b.respond(s, event, inv.RequestID, reply)
		return
	}

	deferred, flags := deferMode(command)
	if !deferred {
		b.respond(s, event, inv.RequestID, b.handler.Execute(ctx, command, inv, b.actions))
		return
	}

	err := s.InteractionRespond(event.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: flags},
	})
	if err != nil {
		b.logger.WithError(err).WithField("request_id", inv.RequestID).Error("Failed to defer interaction")
		return
	}

	reply = b.handler.Execute(ctx, command, inv, b.actions)
	content := middleware.Truncate(reply.Text, MaxMessageLength)
	_, err = s.InteractionResponseEdit(event.Interaction, &discordgo.WebhookEdit{
		Content:         &content,
		AllowedMentions: allowedMentions(reply.MentionRoleIDs),
	})
	if err != nil {
		// A closed ticket takes its channel and the pending response with it.
		b.logger.WithError(err).WithField("request_id", inv.RequestID).Warn("Failed to deliver interaction reply")
	}
}

// respond answers an interaction that was not deferred
func (b *Bot) respond(s *discordgo.Session, event *discordgo.InteractionCreate, requestID string, reply models.Reply) {
	err := s.InteractionRespond(event.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: responseData(reply),
	})
	if err != nil {
		b.logger.WithError(err).WithField("request_id", requestID).Warn("Failed to deliver interaction reply")
	}
}

func responseData(reply models.Reply) *discordgo.InteractionResponseData {
	data := &discordgo.InteractionResponseData{
		Content:         middleware.Truncate(reply.Text, MaxMessageLength),
		AllowedMentions: allowedMentions(reply.MentionRoleIDs),
	}
	if reply.Ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	return data
}

func (b *Bot) onMessage(ctx context.Context, s *discordgo.Session, event *discordgo.MessageCreate) {
	if event.Author == nil || event.Author.Bot {
		return
	}
	if event.GuildID != b.config.Platforms.Discord.GuildID {
		return
	}
	name, args, ok := handlers.ParseCommand(event.Content, b.config.Bot.Prefix)
	if !ok {
		return
	}

	inv := &models.Invocation{
		RequestID:   uuid.NewString(),
		Platform:    models.PlatformDiscord,
		GuildID:     event.GuildID,
		ChannelID:   event.ChannelID,
		UserID:      event.Author.ID,
		UserName:    event.Author.Username,
		UserMention: event.Author.Mention(),
		Locale:      event.Author.Locale,
		Command:     name,
		Args:        args,
	}
	if perms, err := s.UserChannelPermissions(event.Author.ID, event.ChannelID); err == nil {
		inv.IsModerator = perms&moderatorPermissions != 0
	} else {
		b.logger.WithError(err).WithField("request_id", inv.RequestID).Debug("Failed to resolve member permissions")
	}

	if command, _ := handlers.Resolve(name); command == handlers.CommandAsk {
		_ = s.ChannelTyping(event.ChannelID)
	}

	reply := b.handler.HandleCommand(ctx, inv, b.actions)
	_, err := s.ChannelMessageSendComplex(event.ChannelID, &discordgo.MessageSend{
		Content:         middleware.Truncate(reply.Text, MaxMessageLength),
		AllowedMentions: allowedMentions(reply.MentionRoleIDs),
		Reference:       event.Reference(),
	}, discordgo.WithContext(ctx))
	if err != nil {
		b.logger.WithError(err).WithField("request_id", inv.RequestID).Warn("Failed to deliver prefix command reply")
	}
}

func (b *Bot) onMemberAdd(ctx context.Context, event *discordgo.GuildMemberAdd) {
	if event.Member == nil || event.User == nil || event.User.Bot {
		return
	}
	if event.GuildID != b.config.Platforms.Discord.GuildID {
		return
	}
	err := b.handler.HandleMemberJoin(ctx, models.PlatformDiscord, b.config.Bot.WelcomeChannelID, event.User.ID, event.User.Locale, b.actions)
	if err != nil {
		b.logger.WithError(err).WithField("user_id", event.User.ID).Error("Failed to greet member")
	}
}

// deferMode reports whether an admitted command acknowledges before running.
// ask waits on the completion endpoint, ticket makes two REST calls and close
// deletes the channel it answers in.
func deferMode(command string) (bool, discordgo.MessageFlags) {
	switch command {
	case handlers.CommandAsk:
		return true, 0
	case handlers.CommandTicket, handlers.CommandClose:
		return true, discordgo.MessageFlagsEphemeral
	default:
		return false, 0
	}
}

func allowedMentions(roleIDs []string) *discordgo.MessageAllowedMentions {
	return &discordgo.MessageAllowedMentions{
		Parse: []discordgo.AllowedMentionType{discordgo.AllowedMentionTypeUsers},
		Roles: roleIDs,
	}
}
