package tickets

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
)

var (
	// ErrAlreadyOpen is returned when the caller already has an open ticket
	ErrAlreadyOpen = errors.New("ticket already open")
	// ErrNotTicket is returned when close is issued outside a ticket channel
	ErrNotTicket = errors.New("not a ticket channel")
	// ErrNotOwner is returned when someone other than the owner or a moderator closes a ticket
	ErrNotOwner = errors.New("not the ticket owner")
)

// Channels performs the platform side of ticket handling
type Channels interface {
	CreatePrivateChannel(ctx context.Context, guildID, name, userID string) (string, error)
	DeleteChannel(ctx context.Context, channelID string) error
}

// Ticket is an open support channel
type Ticket struct {
	GuildID   string
	ChannelID string
	OwnerID   string
}

const pending = "pending"

var unsafeName = regexp.MustCompile(`[^a-z0-9-]+`)

// Service keeps track of open tickets in memory
type Service struct {
	owners   *cache.Cache
	channels *cache.Cache
	prefix   string
	logger   *logrus.Logger
}

// NewService creates a ticket service. Channel names are prefix + caller name.
func NewService(prefix string, logger *logrus.Logger) *Service {
	return &Service{
		owners:   cache.New(cache.NoExpiration, cache.NoExpiration),
		channels: cache.New(cache.NoExpiration, cache.NoExpiration),
		prefix:   prefix,
		logger:   logger,
	}
}

// Open creates a private channel for userID. The owner slot is reserved
// before the platform call so two concurrent opens cannot both create one.
func (s *Service) Open(ctx context.Context, ch Channels, guildID, userID, userName string) (*Ticket, error) {
	ownerKey := ownerKey(guildID, userID)
	if err := s.owners.Add(ownerKey, pending, cache.NoExpiration); err != nil {
		return nil, ErrAlreadyOpen
	}

	channelID, err := ch.CreatePrivateChannel(ctx, guildID, s.ChannelName(userName), userID)
	if err != nil {
		s.owners.Delete(ownerKey)
		return nil, fmt.Errorf("failed to create ticket channel: %w", err)
	}

	ticket := &Ticket{GuildID: guildID, ChannelID: channelID, OwnerID: userID}
	s.owners.Set(ownerKey, channelID, cache.NoExpiration)
	s.channels.Set(channelID, ticket, cache.NoExpiration)

	s.logger.WithFields(logrus.Fields{
		"guild_id":   guildID,
		"user_id":    userID,
		"channel_id": channelID,
	}).Info("Ticket opened")

	return ticket, nil
}

// Close deletes the ticket channel channelID. Only the owner or a moderator
// may close it.
func (s *Service) Close(ctx context.Context, ch Channels, channelID, userID string, moderator bool) (*Ticket, error) {
	val, found := s.channels.Get(channelID)
	if !found {
		return nil, ErrNotTicket
	}
	ticket := val.(*Ticket)
	if ticket.OwnerID != userID && !moderator {
		return nil, ErrNotOwner
	}

	if err := ch.DeleteChannel(ctx, channelID); err != nil {
		return nil, fmt.Errorf("failed to delete ticket channel: %w", err)
	}

	s.channels.Delete(channelID)
	s.owners.Delete(ownerKey(ticket.GuildID, ticket.OwnerID))

	s.logger.WithFields(logrus.Fields{
		"guild_id":   ticket.GuildID,
		"channel_id": channelID,
		"closed_by":  userID,
	}).Info("Ticket closed")

	return ticket, nil
}

// Forget drops a ticket whose channel was removed outside the bot
func (s *Service) Forget(channelID string) {
	val, found := s.channels.Get(channelID)
	if !found {
		return
	}
	ticket := val.(*Ticket)
	s.channels.Delete(channelID)
	s.owners.Delete(ownerKey(ticket.GuildID, ticket.OwnerID))
}

// ChannelOf returns the ticket channel userID has open in guildID
func (s *Service) ChannelOf(guildID, userID string) (string, bool) {
	val, found := s.owners.Get(ownerKey(guildID, userID))
	if !found || val.(string) == pending {
		return "", false
	}
	return val.(string), true
}

// OpenCount returns the number of open tickets
func (s *Service) OpenCount() int {
	return s.channels.ItemCount()
}

// ChannelName builds a platform-safe channel name for a ticket
func (s *Service) ChannelName(userName string) string {
	name := unsafeName.ReplaceAllString(strings.ToLower(userName), "-")
	name = strings.Trim(name, "-")
	if name == "" {
		name = "user"
	}
	if len(name) > 90 {
		name = name[:90]
	}
	return s.prefix + name
}

func ownerKey(guildID, userID string) string {
	return guildID + ":" + userID
}
