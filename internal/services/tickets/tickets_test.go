package tickets_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/guild-helper-bot-go/internal/services/tickets"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
)

type fakeChannels struct {
	mu        sync.Mutex
	created   []string
	deleted   []string
	createErr error
	deleteErr error
}

func (f *fakeChannels) CreatePrivateChannel(ctx context.Context, guildID, name, userID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return "", f.createErr
	}
	f.created = append(f.created, name)
	return fmt.Sprintf("chan-%d", len(f.created)), nil
}

func (f *fakeChannels) DeleteChannel(ctx context.Context, channelID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, channelID)
	return nil
}

func newService() *tickets.Service {
	log, _ := test.NewNullLogger()
	return tickets.NewService("ticket-", log)
}

func TestService_OpenAndClose(t *testing.T) {
	ctx := context.Background()
	svc := newService()
	ch := &fakeChannels{}

	ticket, err := svc.Open(ctx, ch, "g1", "u1", "Alice")
	require.NoError(t, err)
	require.Equal(t, "chan-1", ticket.ChannelID)
	require.Equal(t, []string{"ticket-alice"}, ch.created)
	require.Equal(t, 1, svc.OpenCount())

	_, err = svc.Open(ctx, ch, "g1", "u1", "Alice")
	require.ErrorIs(t, err, tickets.ErrAlreadyOpen)

	channelID, ok := svc.ChannelOf("g1", "u1")
	require.True(t, ok)
	require.Equal(t, "chan-1", channelID)
	_, ok = svc.ChannelOf("g2", "u1")
	require.False(t, ok)

	closed, err := svc.Close(ctx, ch, "chan-1", "u1", false)
	require.NoError(t, err)
	require.Equal(t, "u1", closed.OwnerID)
	require.Equal(t, []string{"chan-1"}, ch.deleted)
	require.Zero(t, svc.OpenCount())

	_, err = svc.Open(ctx, ch, "g1", "u1", "Alice")
	require.NoError(t, err)
}

func TestService_Close(t *testing.T) {
	ctx := context.Background()

	t.Run("outside a ticket", func(t *testing.T) {
		_, err := newService().Close(ctx, &fakeChannels{}, "general", "u1", true)
		require.ErrorIs(t, err, tickets.ErrNotTicket)
	})

	t.Run("by another member", func(t *testing.T) {
		svc := newService()
		ch := &fakeChannels{}
		ticket, err := svc.Open(ctx, ch, "g1", "u1", "alice")
		require.NoError(t, err)

		_, err = svc.Close(ctx, ch, ticket.ChannelID, "u2", false)
		require.ErrorIs(t, err, tickets.ErrNotOwner)
		require.Empty(t, ch.deleted)
	})

	t.Run("by a moderator", func(t *testing.T) {
		svc := newService()
		ch := &fakeChannels{}
		ticket, err := svc.Open(ctx, ch, "g1", "u1", "alice")
		require.NoError(t, err)

		_, err = svc.Close(ctx, ch, ticket.ChannelID, "mod", true)
		require.NoError(t, err)
	})

	t.Run("platform failure keeps the ticket", func(t *testing.T) {
		svc := newService()
		ch := &fakeChannels{}
		ticket, err := svc.Open(ctx, ch, "g1", "u1", "alice")
		require.NoError(t, err)

		ch.deleteErr = errors.New("missing permissions")
		_, err = svc.Close(ctx, ch, ticket.ChannelID, "u1", false)
		require.Error(t, err)
		require.Equal(t, 1, svc.OpenCount())
	})
}

func TestService_OpenFailureReleasesSlot(t *testing.T) {
	ctx := context.Background()
	svc := newService()
	ch := &fakeChannels{createErr: errors.New("forbidden")}

	_, err := svc.Open(ctx, ch, "g1", "u1", "alice")
	require.Error(t, err)
	require.Contains(t, err.Error(), "forbidden")

	ch.createErr = nil
	_, err = svc.Open(ctx, ch, "g1", "u1", "alice")
	require.NoError(t, err)
}

func TestService_ConcurrentOpen(t *testing.T) {
	ctx := context.Background()
	svc := newService()
	ch := &fakeChannels{}

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Open(ctx, ch, "g1", "u1", "alice")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	opened := 0
	for err := range errs {
		if err == nil {
			opened++
		} else {
			require.ErrorIs(t, err, tickets.ErrAlreadyOpen)
		}
	}
	require.Equal(t, 1, opened)
	require.Len(t, ch.created, 1)
}

func TestService_Forget(t *testing.T) {
	ctx := context.Background()
	svc := newService()
	ch := &fakeChannels{}
	ticket, err := svc.Open(ctx, ch, "g1", "u1", "alice")
	require.NoError(t, err)

	svc.Forget(ticket.ChannelID)
	require.Zero(t, svc.OpenCount())

	_, err = svc.Open(ctx, ch, "g1", "u1", "alice")
	require.NoError(t, err)
}

func TestService_ChannelName(t *testing.T) {
	svc := newService()
	tests := map[string]string{
		"Alice":        "ticket-alice",
		"bob.the_dev!": "ticket-bob-the-dev",
		"***":          "ticket-user",
	}
	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			require.Equal(t, want, svc.ChannelName(in))
		})
	}
}
