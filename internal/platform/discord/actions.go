package discord

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/guild-helper-bot-go/internal/middleware"
)

const ticketPermissions = discordgo.PermissionViewChannel |
	discordgo.PermissionSendMessages |
	discordgo.PermissionReadMessageHistory |
	discordgo.PermissionAttachFiles

// Actions performs guild operations through the Discord REST API
type Actions struct {
	session      *discordgo.Session
	categoryID   string
	helperRoleID string
}

// NewActions creates the Discord side of command actions
func NewActions(session *discordgo.Session, categoryID, helperRoleID string) *Actions {
	return &Actions{
		session:      session,
		categoryID:   categoryID,
		helperRoleID: helperRoleID,
	}
}

// CreatePrivateChannel creates a text channel only the user, the helper role
// and the bot can see.
func (a *Actions) CreatePrivateChannel(ctx context.Context, guildID, name, userID string) (string, error) {
	channel, err := a.session.GuildChannelCreateComplex(guildID, discordgo.GuildChannelCreateData{
		Name:                 name,
		Type:                 discordgo.ChannelTypeGuildText,
		ParentID:             a.categoryID,
		PermissionOverwrites: a.ticketOverwrites(guildID, userID),
	}, discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("failed to create channel %s: %w", name, err)
	}
	return channel.ID, nil
}

func (a *Actions) ticketOverwrites(guildID, userID string) []*discordgo.PermissionOverwrite {
	// The @everyone role shares the guild's id.
	overwrites := []*discordgo.PermissionOverwrite{
		{ID: guildID, Type: discordgo.PermissionOverwriteTypeRole, Deny: discordgo.PermissionViewChannel},
		{ID: userID, Type: discordgo.PermissionOverwriteTypeMember, Allow: ticketPermissions},
	}
	if a.helperRoleID != "" {
		overwrites = append(overwrites, &discordgo.PermissionOverwrite{
			ID: a.helperRoleID, Type: discordgo.PermissionOverwriteTypeRole, Allow: ticketPermissions,
		})
	}
	if a.session != nil && a.session.State != nil && a.session.State.User != nil {
		overwrites = append(overwrites, &discordgo.PermissionOverwrite{
			ID:    a.session.State.User.ID,
			Type:  discordgo.PermissionOverwriteTypeMember,
			Allow: ticketPermissions | discordgo.PermissionManageChannels,
		})
	}
	return overwrites
}

// DeleteChannel removes a channel
func (a *Actions) DeleteChannel(ctx context.Context, channelID string) error {
	if _, err := a.session.ChannelDelete(channelID, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to delete channel %s: %w", channelID, err)
	}
	return nil
}

// SendMessage posts text into a channel, allowing the helper role to be pinged
func (a *Actions) SendMessage(ctx context.Context, channelID, text string) error {
	var roles []string
	if a.helperRoleID != "" {
		roles = []string{a.helperRoleID}
	}
	_, err := a.session.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Content:         middleware.Truncate(text, MaxMessageLength),
		AllowedMentions: allowedMentions(roles),
	}, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to send message to %s: %w", channelID, err)
	}
	return nil
}

// TimeoutMember disables a member's ability to talk until the given time
func (a *Actions) TimeoutMember(ctx context.Context, guildID, userID string, until time.Time) error {
	if err := a.session.GuildMemberTimeout(guildID, userID, &until, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to time out member %s: %w", userID, err)
	}
	return nil
}

func (a *Actions) MentionRole(roleID string) string {
	if roleID == "" {
		return ""
	}
	return "<@&" + roleID + ">"
}

func (a *Actions) MentionUser(userID string) string {
	return "<@" + userID + ">"
}

func (a *Actions) MentionChannel(channelID string) string {
	return "<#" + channelID + ">"
}
