package discord

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/require"

	"github.com/NelliaS/junior.guru/internal/club"
)

type fakeSession struct {
	channels  []*discordgo.Channel
	threads   map[string]*discordgo.Channel
	pages     map[string][]*discordgo.Message
	reactions map[string][]*discordgo.User
	members   []*discordgo.Member
}

func (s *fakeSession) GuildChannels(string, ...discordgo.RequestOption) ([]*discordgo.Channel, error) {
	return s.channels, nil
}

func (s *fakeSession) Channel(id string, _ ...discordgo.RequestOption) (*discordgo.Channel, error) {
	thread, ok := s.threads[id]
	if !ok {
		return nil, fmt.Errorf("unknown channel %s", id)
	}
	return thread, nil
}

func (s *fakeSession) ChannelMessages(channelID string, _ int, _, afterID, _ string, _ ...discordgo.RequestOption) ([]*discordgo.Message, error) {
	return s.pages[channelID+"/"+afterID], nil
}

func (s *fakeSession) MessageReactions(_, messageID, emojiID string, limit int, _, afterID string, _ ...discordgo.RequestOption) ([]*discordgo.User, error) {
	users := s.reactions[messageID+"/"+emojiID]
	start := 0
	if afterID != "" {
		for i, u := range users {
			if u.ID == afterID {
				start = i + 1
				break
			}
		}
	}
	end := start + limit
	if end > len(users) {
		end = len(users)
	}
	return users[start:end], nil
}

func (s *fakeSession) GuildMembers(string, string, int, ...discordgo.RequestOption) ([]*discordgo.Member, error) {
	return s.members, nil
}

func user(id, name string) *discordgo.User {
	return &discordgo.User{ID: id, Username: name}
}

func msg(id string, author *discordgo.User) *discordgo.Message {
	return &discordgo.Message{
		ID:        id,
		Author:    author,
		Content:   "msg " + id,
		Timestamp: time.Date(2022, 5, 1, 0, 0, 0, 0, time.UTC),
	}
}

func drain(t *testing.T, iter club.HistoryIter) []club.HistoryItem {
	t.Helper()
	var items []club.HistoryItem
	for iter.Next(context.Background()) {
		items = append(items, iter.Item())
	}
	require.NoError(t, iter.Err())
	return items
}

func TestProviderListChannelsFiltersTextChannels(t *testing.T) {
	t.Parallel()

	session := &fakeSession{
		channels: []*discordgo.Channel{
			{ID: "1", Name: "general", Type: discordgo.ChannelTypeGuildText},
			{ID: "2", Name: "voice", Type: discordgo.ChannelTypeGuildVoice},
			{ID: "3", Name: "jobs", Type: discordgo.ChannelTypeGuildText},
		},
	}
	p := New(session, "guild", nil, nil)

	refs, err := p.ListChannels(context.Background())
	require.NoError(t, err)
	require.Len(t, refs, 2)
	require.Equal(t, "general", refs[0].Name)
	require.Equal(t, "<#1>", refs[0].Mention)
}

func TestProviderHistoryPaginatesChronologically(t *testing.T) {
	t.Parallel()

	author := user("7", "honza")
	var firstPage []*discordgo.Message
	// A full page delivered newest-first, as the API does.
	for i := messagePageSize; i >= 1; i-- {
		firstPage = append(firstPage, msg(fmt.Sprintf("%03d", i), author))
	}
	session := &fakeSession{
		pages: map[string][]*discordgo.Message{
			"chan/":    firstPage,
			"chan/100": {msg("101", author)},
		},
	}
	p := New(session, "guild", nil, nil)

	iter, err := p.History(context.Background(), club.ChannelRef{ID: "chan", Name: "general"})
	require.NoError(t, err)
	items := drain(t, iter)

	require.Len(t, items, messagePageSize+1)
	require.Equal(t, "001", items[0].Message.ID)
	require.Equal(t, "101", items[len(items)-1].Message.ID)
	require.Equal(t, "https://discord.com/channels/guild/chan/001", items[0].Message.URL)
}

func TestProviderResolvesThreadsAndMembers(t *testing.T) {
	t.Parallel()

	author := user("7", "honza")
	former := user("8", "gone")
	anchor := msg("50", author)
	anchor.Flags = discordgo.MessageFlagsHasThread

	session := &fakeSession{
		pages: map[string][]*discordgo.Message{
			"chan/": {anchor, msg("51", former)},
		},
		threads: map[string]*discordgo.Channel{
			"50": {ID: "50", Name: "pěkné vlákno", Type: discordgo.ChannelTypeGuildPublicThread},
		},
		members: []*discordgo.Member{
			{
				User:     author,
				Nick:     "Honza",
				JoinedAt: time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC),
				Roles:    []string{"member"},
			},
		},
	}
	p := New(session, "guild", nil, nil)

	iter, err := p.History(context.Background(), club.ChannelRef{ID: "chan", Name: "general"})
	require.NoError(t, err)
	items := drain(t, iter)
	require.Len(t, items, 2)

	require.NotNil(t, items[0].Thread)
	require.Equal(t, "50", items[0].Thread.ID)
	require.Equal(t, "chan", items[0].Thread.ParentID)

	require.NotNil(t, items[0].Author.JoinedAt)
	require.Equal(t, "Honza", items[0].Author.DisplayName)
	require.Equal(t, []string{"member"}, items[0].Author.Roles)

	// The second author left the guild; membership details are unknown.
	require.Nil(t, items[1].Author.JoinedAt)
	require.Equal(t, "gone", items[1].Author.DisplayName)
}

func TestProviderReactorsFetchesPinUsersOnce(t *testing.T) {
	t.Parallel()

	author := user("7", "honza")
	pinned := msg("1", author)
	pinned.Reactions = []*discordgo.MessageReactions{
		{Emoji: &discordgo.Emoji{Name: "📌"}, Count: 2},
		{Emoji: &discordgo.Emoji{Name: "pin"}, Count: 1},
		{Emoji: &discordgo.Emoji{Name: "👍"}, Count: 5},
	}

	session := &fakeSession{
		pages: map[string][]*discordgo.Message{"chan/": {pinned}},
		reactions: map[string][]*discordgo.User{
			"1/📌":   {user("8", "a"), user("9", "b")},
			"1/pin": {user("8", "a")},
		},
	}
	p := New(session, "guild", nil, nil)

	iter, err := p.History(context.Background(), club.ChannelRef{ID: "chan", Name: "general"})
	require.NoError(t, err)
	items := drain(t, iter)
	require.Len(t, items, 1)

	require.Len(t, items[0].Reactions, 3)
	require.NotNil(t, items[0].Reactors)

	reactors, err := items[0].Reactors(context.Background())
	require.NoError(t, err)
	// User 8 pinned with both labels but is reported once.
	require.Len(t, reactors, 2)
}

func TestProviderReactorsPaginatesBeyondOnePage(t *testing.T) {
	t.Parallel()

	pinned := msg("1", user("7", "honza"))
	pinned.Reactions = []*discordgo.MessageReactions{
		{Emoji: &discordgo.Emoji{Name: "📌"}, Count: 150},
	}

	// More pin reactors than one API page holds.
	var reactors []*discordgo.User
	for i := 0; i < 150; i++ {
		id := fmt.Sprintf("u%03d", i)
		reactors = append(reactors, user(id, "user "+id))
	}
	session := &fakeSession{
		pages:     map[string][]*discordgo.Message{"chan/": {pinned}},
		reactions: map[string][]*discordgo.User{"1/📌": reactors},
	}
	p := New(session, "guild", nil, nil)

	iter, err := p.History(context.Background(), club.ChannelRef{ID: "chan", Name: "general"})
	require.NoError(t, err)
	items := drain(t, iter)
	require.Len(t, items, 1)
	require.NotNil(t, items[0].Reactors)

	got, err := items[0].Reactors(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 150)
	ids := make(map[string]struct{}, len(got))
	for _, info := range got {
		ids[info.ID] = struct{}{}
	}
	require.Len(t, ids, 150)
}

func TestProviderNoReactorsFuncWithoutPins(t *testing.T) {
	t.Parallel()

	plain := msg("1", user("7", "honza"))
	plain.Reactions = []*discordgo.MessageReactions{
		{Emoji: &discordgo.Emoji{Name: "👍"}, Count: 5},
	}
	session := &fakeSession{
		pages: map[string][]*discordgo.Message{"chan/": {plain}},
	}
	p := New(session, "guild", nil, nil)

	iter, err := p.History(context.Background(), club.ChannelRef{ID: "chan", Name: "general"})
	require.NoError(t, err)
	items := drain(t, iter)
	require.Len(t, items, 1)
	require.Nil(t, items[0].Reactors)
}
