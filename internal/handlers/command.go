package handlers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/guild-helper-bot-go/internal/config"
	"github.com/guild-helper-bot-go/internal/i18n"
	"github.com/guild-helper-bot-go/internal/middleware"
	"github.com/guild-helper-bot-go/internal/models"
	"github.com/guild-helper-bot-go/internal/services/completion"
	"github.com/guild-helper-bot-go/internal/services/cooldown"
	"github.com/guild-helper-bot-go/internal/services/tickets"
	"github.com/guild-helper-bot-go/pkg/logger"
	"github.com/sirupsen/logrus"
)

const defaultMuteDuration = 10 * time.Minute

// CommandHandler runs command invocations from every platform adapter
type CommandHandler struct {
	config      *config.Config
	gate        *cooldown.Gate
	policies    map[string]cooldown.Policy
	completer   completion.Completer
	extractor   completion.Extractor
	tickets     *tickets.Service
	rateLimiter middleware.RateLimiter
	security    *middleware.SecurityMiddleware
	localizer   *i18n.Localizer
	metrics     *middleware.Metrics
	logger      *logrus.Logger
}

// NewCommandHandler creates a new command handler. Cooldown policies are
// read once from cfg and stay fixed for the handler's lifetime.
func NewCommandHandler(
	cfg *config.Config,
	gate *cooldown.Gate,
	completer completion.Completer,
	extractor completion.Extractor,
	ticketService *tickets.Service,
	rateLimiter middleware.RateLimiter,
	localizer *i18n.Localizer,
	metrics *middleware.Metrics,
	logger *logrus.Logger,
) (*CommandHandler, error) {
	policies := make(map[string]cooldown.Policy)
	configuredAs := make(map[string]string)
	for name, cmd := range cfg.Commands {
		canonical, ok := Resolve(name)
		if !ok {
			return nil, fmt.Errorf("cooldown configured for unknown command %q", name)
		}
		if other, dup := configuredAs[canonical]; dup {
			first, second := other, name
			if second < first {
				first, second = second, first
			}
			return nil, fmt.Errorf("commands %s and %s configure the same command", first, second)
		}
		configuredAs[canonical] = name
		if cmd.Cooldown.Duration <= 0 {
			continue
		}
		scope, err := cooldown.ParseScope(cmd.Cooldown.Scope)
		if err != nil {
			return nil, fmt.Errorf("command %s: %w", name, err)
		}
		policies[canonical] = cooldown.Policy{Scope: scope, Duration: cmd.Cooldown.Duration}
	}

	return &CommandHandler{
		config:      cfg,
		gate:        gate,
		policies:    policies,
		completer:   completer,
		extractor:   extractor,
		tickets:     ticketService,
		rateLimiter: rateLimiter,
		security:    middleware.NewSecurityMiddleware(),
		localizer:   localizer,
		metrics:     metrics,
		logger:      logger,
	}, nil
}

// HandleCommand processes one invocation and returns the reply to deliver.
// Errors never escape; they become localized replies.
func (h *CommandHandler) HandleCommand(ctx context.Context, inv *models.Invocation, actions models.Actions) models.Reply {
	command, reply, ok := h.Admit(inv)
	if !ok {
		return reply
	}
	return h.Execute(ctx, command, inv, actions)
}

// Admit runs the rate limit, argument checks and cooldown gate for inv. It
// returns the canonical command name when the command may run, or the
// ephemeral rejection to deliver instead. An admitted command has already
// started its cooldown.
func (h *CommandHandler) Admit(inv *models.Invocation) (string, models.Reply, bool) {
	if inv.RequestID == "" {
		inv.RequestID = uuid.NewString()
	}
	h.metrics.RecordInvocation(string(inv.Platform))

	lang := h.localizer.Match(inv.Locale)
	log := logger.WithInvocation(h.logger, inv.RequestID, string(inv.Platform), inv.GuildID, inv.UserID, inv.Command)

	if !h.rateLimiter.Allow(inv.UserID) {
		h.metrics.RecordRateLimitExceeded(string(inv.Platform))
		log.Warn("Rate limit exceeded")
		return "", h.ephemeral(lang, i18n.MsgRateLimitExceeded, nil), false
	}

	command, ok := Resolve(inv.Command)
	if !ok {
		h.metrics.RecordCommandExecuted("unknown", "unknown")
		return "", h.ephemeral(lang, i18n.MsgUnknownCommand, map[string]interface{}{"Prefix": h.config.Bot.Prefix}), false
	}

	if reply, rejected := h.precheck(command, inv, lang); rejected {
		h.metrics.RecordCommandExecuted(command, "rejected")
		return command, reply, false
	}

	if policy, ok := h.policies[command]; ok {
		key := policy.Key(command, inv.UserID, inv.GuildID, inv.ChannelID)
		decision := h.gate.CheckAndMaybeStart(key, policy, time.Now())
		h.metrics.RecordCooldownDecision(command, decision.Allowed)
		if !decision.Allowed {
			log.WithField("remaining", decision.Remaining).Debug("Cooldown active")
			h.metrics.RecordCommandExecuted(command, "cooldown")
			return command, h.cooldownReply(command, lang, decision), false
		}
	}

	return command, models.Reply{}, true
}

// Execute runs a command Admit let through
func (h *CommandHandler) Execute(ctx context.Context, command string, inv *models.Invocation, actions models.Actions) models.Reply {
	lang := h.localizer.Match(inv.Locale)
	log := logger.WithInvocation(h.logger, inv.RequestID, string(inv.Platform), inv.GuildID, inv.UserID, inv.Command)

	var (
		reply models.Reply
		err   error
	)
	switch command {
	case CommandHelp:
		reply = h.handleHelp(inv, actions, lang)
	case CommandAsk:
		reply, err = h.handleAsk(ctx, inv, lang, log)
	case CommandTicket:
		reply, err = h.handleTicket(ctx, inv, actions, lang)
	case CommandClose:
		reply, err = h.handleClose(ctx, inv, actions, lang)
	case CommandMute:
		reply, err = h.handleMute(ctx, inv, actions, lang)
	case CommandLinks:
		reply = models.Reply{Text: h.localizer.Get(lang, i18n.MsgLinks, map[string]interface{}{"Links": h.formatLinks()})}
	}

	if err != nil {
		log.WithError(err).Error("Command failed")
		h.metrics.RecordCommandExecuted(command, "error")
		return reply
	}

	log.Info("Command executed")
	h.metrics.RecordCommandExecuted(command, "ok")
	return reply
}

// precheck rejects malformed or unauthorized invocations before they can
// start a cooldown.
func (h *CommandHandler) precheck(command string, inv *models.Invocation, lang string) (models.Reply, bool) {
	switch command {
	case CommandAsk:
		if strings.TrimSpace(inv.Args) == "" {
			return h.ephemeral(lang, i18n.MsgAskUsage, map[string]interface{}{"Prefix": h.config.Bot.Prefix}), true
		}
		if err := h.security.ValidateInput(inv.Args); err != nil {
			return h.ephemeral(lang, i18n.MsgInputRejected, map[string]interface{}{"Max": middleware.MaxPromptLength}), true
		}
	case CommandMute:
		if !inv.IsModerator {
			return h.ephemeral(lang, i18n.MsgMuteForbidden, nil), true
		}
		if ParseUserID(inv.Args) == "" {
			return h.ephemeral(lang, i18n.MsgMuteUsage, map[string]interface{}{"Prefix": h.config.Bot.Prefix}), true
		}
	}
	return models.Reply{}, false
}

func (h *CommandHandler) cooldownReply(command, lang string, decision cooldown.Decision) models.Reply {
	data := map[string]interface{}{"Remaining": decision.FormatRemaining()}
	if command == CommandHelp {
		return h.ephemeral(lang, i18n.MsgHelpTooEarly, data)
	}
	return h.ephemeral(lang, i18n.MsgCooldown, data)
}

func (h *CommandHandler) handleHelp(inv *models.Invocation, actions models.Actions, lang string) models.Reply {
	roleID := h.config.Bot.HelperRoleID
	reply := models.Reply{
		Text: h.localizer.Get(lang, i18n.MsgHelpPing, map[string]interface{}{
			"Mention": actions.MentionRole(roleID),
			"User":    inv.UserMention,
		}),
	}
	if roleID != "" {
		reply.MentionRoleIDs = []string{roleID}
	}
	return reply
}

func (h *CommandHandler) handleAsk(ctx context.Context, inv *models.Invocation, lang string, log *logrus.Entry) (models.Reply, error) {
	start := time.Now()
	raw, err := h.completer.Complete(ctx, inv.Args)
	if err != nil {
		h.metrics.RecordCompletionRequest("error", time.Since(start))
		return models.Reply{Text: h.localizer.Get(lang, i18n.MsgAskFailed, nil)}, err
	}
	h.metrics.RecordCompletionRequest("ok", time.Since(start))

	result := h.extractor.Extract(raw)
	if !result.Found {
		h.metrics.RecordExtractionMiss()
		log.WithField("response_length", len(raw)).Warn("No content found in completion response")
	} else if strings.TrimSpace(result.Text) == "" {
		// Neither platform delivers an empty message.
		h.metrics.RecordExtractionMiss()
		log.Warn("Completion returned blank content")
		return models.Reply{Text: completion.FallbackMessage}, nil
	}
	return models.Reply{Text: result.Text}, nil
}

func (h *CommandHandler) handleTicket(ctx context.Context, inv *models.Invocation, actions models.Actions, lang string) (models.Reply, error) {
	ticket, err := h.tickets.Open(ctx, actions, inv.GuildID, inv.UserID, inv.UserName)
	switch {
	case errors.Is(err, tickets.ErrAlreadyOpen):
		channel := ""
		if channelID, ok := h.tickets.ChannelOf(inv.GuildID, inv.UserID); ok {
			channel = actions.MentionChannel(channelID)
		}
		return h.ephemeral(lang, i18n.MsgTicketExists, map[string]interface{}{"Channel": channel}), nil
	case errors.Is(err, models.ErrUnsupported):
		return h.ephemeral(lang, i18n.MsgUnsupported, nil), nil
	case err != nil:
		return h.ephemeral(lang, i18n.MsgTicketFailed, map[string]interface{}{"Error": err.Error()}), err
	}

	welcome := h.localizer.Get(lang, i18n.MsgTicketWelcome, map[string]interface{}{
		"User":    inv.UserMention,
		"Mention": actions.MentionRole(h.config.Bot.HelperRoleID),
	})
	if err := actions.SendMessage(ctx, ticket.ChannelID, welcome); err != nil {
		h.logger.WithError(err).WithField("channel_id", ticket.ChannelID).Warn("Failed to post ticket welcome")
	}

	return h.ephemeral(lang, i18n.MsgTicketCreated, map[string]interface{}{
		"Channel": actions.MentionChannel(ticket.ChannelID),
	}), nil
}

func (h *CommandHandler) handleClose(ctx context.Context, inv *models.Invocation, actions models.Actions, lang string) (models.Reply, error) {
	_, err := h.tickets.Close(ctx, actions, inv.ChannelID, inv.UserID, inv.IsModerator)
	switch {
	case errors.Is(err, tickets.ErrNotTicket):
		return h.ephemeral(lang, i18n.MsgTicketNotHere, nil), nil
	case errors.Is(err, tickets.ErrNotOwner):
		return h.ephemeral(lang, i18n.MsgTicketNotOwner, nil), nil
	case err != nil:
		return h.ephemeral(lang, i18n.MsgTicketFailed, map[string]interface{}{"Error": err.Error()}), err
	}
	return h.ephemeral(lang, i18n.MsgTicketClosed, nil), nil
}

func (h *CommandHandler) handleMute(ctx context.Context, inv *models.Invocation, actions models.Actions, lang string) (models.Reply, error) {
	targetID := ParseUserID(inv.Args)
	target := actions.MentionUser(targetID)

	duration := h.config.Command(CommandMute).Duration
	if duration <= 0 {
		duration = defaultMuteDuration
	}

	err := actions.TimeoutMember(ctx, inv.GuildID, targetID, time.Now().Add(duration))
	if errors.Is(err, models.ErrUnsupported) {
		return h.ephemeral(lang, i18n.MsgUnsupported, nil), nil
	}
	if err != nil {
		return h.ephemeral(lang, i18n.MsgMuteFailed, map[string]interface{}{
			"Target": target,
			"Error":  err.Error(),
		}), err
	}

	return models.Reply{
		Text: h.localizer.Get(lang, i18n.MsgMuteDone, map[string]interface{}{
			"Target":   target,
			"Duration": cooldown.Decision{Remaining: duration}.FormatRemaining(),
		}),
	}, nil
}

func (h *CommandHandler) formatLinks() string {
	lines := make([]string, 0, len(h.config.Links))
	for _, link := range h.config.Links {
		lines = append(lines, fmt.Sprintf("• %s: %s", link.Name, link.URL))
	}
	return strings.Join(lines, "\n")
}

func (h *CommandHandler) ephemeral(lang, messageID string, data map[string]interface{}) models.Reply {
	return models.Reply{Text: h.localizer.Get(lang, messageID, data), Ephemeral: true}
}
