package handlers

import (
	"context"
	"fmt"

	"github.com/guild-helper-bot-go/internal/i18n"
	"github.com/guild-helper-bot-go/internal/models"
	"github.com/sirupsen/logrus"
)

// HandleMemberJoin posts the welcome message for a new member into channelID
func (h *CommandHandler) HandleMemberJoin(ctx context.Context, platform models.Platform, channelID, userID, locale string, actions models.Actions) error {
	if channelID == "" {
		return nil
	}

	text := h.localizer.Get(h.localizer.Match(locale), i18n.MsgWelcome, map[string]interface{}{
		"User":  actions.MentionUser(userID),
		"Links": h.formatLinks(),
	})
	if err := actions.SendMessage(ctx, channelID, text); err != nil {
		return fmt.Errorf("failed to send welcome message: %w", err)
	}

	h.metrics.RecordMemberGreeted(string(platform))
	h.logger.WithFields(logrus.Fields{
		"platform":   platform,
		"channel_id": channelID,
		"user_id":    userID,
	}).Info("Member greeted")
	return nil
}
