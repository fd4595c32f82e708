// Package discord adapts the Discord REST API to the club history provider.
package discord

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/NelliaS/junior.guru/internal/club"
)

const (
	messagePageSize = 100
	memberPageSize  = 1000
	reactorPageSize = 100
)

// Session is the slice of *discordgo.Session the provider needs.
type Session interface {
	GuildChannels(guildID string, options ...discordgo.RequestOption) ([]*discordgo.Channel, error)
	Channel(channelID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ChannelMessages(channelID string, limit int, beforeID, afterID, aroundID string, options ...discordgo.RequestOption) ([]*discordgo.Message, error)
	MessageReactions(channelID, messageID, emojiID string, limit int, beforeID, afterID string, options ...discordgo.RequestOption) ([]*discordgo.User, error)
	GuildMembers(guildID string, after string, limit int, options ...discordgo.RequestOption) ([]*discordgo.Member, error)
}

// NewSession opens a REST-only discordgo session for a bot token.
func NewSession(token string) (*discordgo.Session, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	return session, nil
}

// Provider implements club.HistoryProvider against one guild. Guild members
// are fetched once and cached so author details do not cost one API call
// per message.
type Provider struct {
	session Session
	guildID string
	pins    club.LabelSet
	logger  *zap.Logger

	memberOnce sync.Once
	members    map[string]*discordgo.Member
	memberErr  error
}

// New constructs a Provider.
func New(session Session, guildID string, pinLabels []string, logger *zap.Logger) *Provider {
	if len(pinLabels) == 0 {
		pinLabels = club.DefaultPinLabels
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{
		session: session,
		guildID: guildID,
		pins:    club.NewLabelSet(pinLabels...),
		logger:  logger,
	}
}

// ListChannels returns the guild's text channels as crawl seeds.
func (p *Provider) ListChannels(ctx context.Context) ([]club.ChannelRef, error) {
	channels, err := p.session.GuildChannels(p.guildID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("list guild channels: %w", err)
	}
	var refs []club.ChannelRef
	for _, ch := range channels {
		if ch.Type != discordgo.ChannelTypeGuildText {
			continue
		}
		refs = append(refs, club.ChannelRef{
			ID:      ch.ID,
			Name:    ch.Name,
			Mention: "<#" + ch.ID + ">",
		})
	}
	return refs, nil
}

// ListMembers returns all current guild members.
func (p *Provider) ListMembers(ctx context.Context) ([]club.UserInfo, error) {
	members, err := p.memberMap(ctx)
	if err != nil {
		return nil, err
	}
	infos := make([]club.UserInfo, 0, len(members))
	for _, m := range members {
		infos = append(infos, memberInfo(m))
	}
	return infos, nil
}

// History opens a chronological iterator over one channel's messages.
func (p *Provider) History(ctx context.Context, ch club.ChannelRef) (club.HistoryIter, error) {
	if _, err := p.memberMap(ctx); err != nil {
		return nil, err
	}
	return &historyIter{provider: p, channel: ch}, nil
}

func (p *Provider) memberMap(ctx context.Context) (map[string]*discordgo.Member, error) {
	p.memberOnce.Do(func() {
		members := make(map[string]*discordgo.Member)
		after := ""
		for {
			page, err := p.session.GuildMembers(p.guildID, after, memberPageSize, discordgo.WithContext(ctx))
			if err != nil {
				p.memberErr = fmt.Errorf("list guild members: %w", err)
				return
			}
			for _, m := range page {
				members[m.User.ID] = m
			}
			if len(page) < memberPageSize {
				break
			}
			after = page[len(page)-1].User.ID
		}
		p.logger.Debug("cached guild members", zap.Int("count", len(members)))
		p.members = members
	})
	return p.members, p.memberErr
}

// userInfo merges message-level user data with cached membership details.
// Users absent from the member cache are former members; their joined-at
// and roles are unknown.
func (p *Provider) userInfo(user *discordgo.User) club.UserInfo {
	info := club.UserInfo{
		ID:          user.ID,
		Bot:         user.Bot,
		DisplayName: displayName(user, nil),
		Mention:     "<@" + user.ID + ">",
	}
	if member, ok := p.members[user.ID]; ok {
		joined := member.JoinedAt
		info.JoinedAt = &joined
		info.Roles = append([]string(nil), member.Roles...)
		info.DisplayName = displayName(user, member)
	}
	return info
}

type historyIter struct {
	provider *Provider
	channel  club.ChannelRef
	buf      []*discordgo.Message
	i        int
	after    string
	done     bool
	item     club.HistoryItem
	err      error
}

func (it *historyIter) Next(ctx context.Context) bool {
	if it.err != nil {
		return false
	}
	if err := ctx.Err(); err != nil {
		it.err = err
		return false
	}
	for it.i >= len(it.buf) {
		if it.done {
			return false
		}
		if err := it.fetchPage(ctx); err != nil {
			it.err = err
			return false
		}
	}

	msg := it.buf[it.i]
	it.i++
	item, err := it.provider.buildItem(ctx, it.channel, msg)
	if err != nil {
		it.err = err
		return false
	}
	it.item = item
	return true
}

func (it *historyIter) fetchPage(ctx context.Context) error {
	page, err := it.provider.session.ChannelMessages(
		it.channel.ID, messagePageSize, "", it.after, "",
		discordgo.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("fetch messages after %q: %w", it.after, err)
	}
	if len(page) < messagePageSize {
		it.done = true
	}
	if len(page) == 0 {
		return nil
	}
	sortBySnowflake(page)
	it.buf = page
	it.i = 0
	it.after = page[len(page)-1].ID
	return nil
}

func (it *historyIter) Item() club.HistoryItem { return it.item }

func (it *historyIter) Err() error { return it.err }

func (p *Provider) buildItem(ctx context.Context, ch club.ChannelRef, msg *discordgo.Message) (club.HistoryItem, error) {
	item := club.HistoryItem{
		Message: club.Message{
			ID:             msg.ID,
			URL:            jumpURL(p.guildID, ch.ID, msg.ID),
			Content:        msg.Content,
			AuthorID:       msg.Author.ID,
			ChannelID:      ch.ID,
			ChannelName:    ch.Name,
			ChannelMention: ch.Mention,
			Type:           messageType(msg.Type),
			CreatedAt:      msg.Timestamp,
			EditedAt:       msg.EditedTimestamp,
		},
		Author: p.userInfo(msg.Author),
	}

	for _, reaction := range msg.Reactions {
		item.Reactions = append(item.Reactions, club.Reaction{
			Label: emojiLabel(reaction.Emoji),
			Count: reaction.Count,
		})
	}

	if msg.Flags&discordgo.MessageFlagsHasThread != 0 {
		// The thread channel shares the anchor message's id.
		thread, err := p.session.Channel(msg.ID, discordgo.WithContext(ctx))
		if err != nil {
			return club.HistoryItem{}, fmt.Errorf("fetch thread %s: %w", msg.ID, err)
		}
		item.Thread = &club.ChannelRef{
			ID:       thread.ID,
			Name:     thread.Name,
			Mention:  "<#" + thread.ID + ">",
			ParentID: ch.ID,
		}
	}

	item.Reactors = p.reactorsFunc(ch.ID, msg)
	return item, nil
}

// reactorsFunc fetches the users behind pin-qualifying reactions, each user
// at most once even when they used several pin labels.
func (p *Provider) reactorsFunc(channelID string, msg *discordgo.Message) club.ReactorsFunc {
	var qualifying []*discordgo.Emoji
	for _, reaction := range msg.Reactions {
		if p.pins.Has(emojiLabel(reaction.Emoji)) {
			qualifying = append(qualifying, reaction.Emoji)
		}
	}
	if len(qualifying) == 0 {
		return nil
	}
	messageID := msg.ID
	return func(ctx context.Context) ([]club.UserInfo, error) {
		seen := make(map[string]struct{})
		var infos []club.UserInfo
		for _, emoji := range qualifying {
			after := ""
			for {
				users, err := p.session.MessageReactions(
					channelID, messageID, emoji.APIName(), reactorPageSize, "", after,
					discordgo.WithContext(ctx),
				)
				if err != nil {
					return nil, fmt.Errorf("fetch reactions %s: %w", emoji.APIName(), err)
				}
				for _, user := range users {
					if _, ok := seen[user.ID]; ok {
						continue
					}
					seen[user.ID] = struct{}{}
					infos = append(infos, p.userInfo(user))
				}
				if len(users) < reactorPageSize {
					break
				}
				after = users[len(users)-1].ID
			}
		}
		return infos, nil
	}
}

func memberInfo(m *discordgo.Member) club.UserInfo {
	joined := m.JoinedAt
	return club.UserInfo{
		ID:          m.User.ID,
		Bot:         m.User.Bot,
		DisplayName: displayName(m.User, m),
		Mention:     "<@" + m.User.ID + ">",
		JoinedAt:    &joined,
		Roles:       append([]string(nil), m.Roles...),
	}
}

func displayName(user *discordgo.User, member *discordgo.Member) string {
	if member != nil && member.Nick != "" {
		return member.Nick
	}
	if user.GlobalName != "" {
		return user.GlobalName
	}
	return user.Username
}

func emojiLabel(emoji *discordgo.Emoji) string {
	if emoji == nil {
		return ""
	}
	return emoji.Name
}

func jumpURL(guildID, channelID, messageID string) string {
	return fmt.Sprintf("https://discord.com/channels/%s/%s/%s", guildID, channelID, messageID)
}

var messageTypeNames = map[discordgo.MessageType]string{
	discordgo.MessageTypeDefault:              "default",
	discordgo.MessageTypeReply:                "reply",
	discordgo.MessageTypeThreadCreated:        "thread_created",
	discordgo.MessageTypeThreadStarterMessage: "thread_starter_message",
	discordgo.MessageTypeChannelPinnedMessage: "channel_pinned_message",
	discordgo.MessageTypeGuildMemberJoin:      "guild_member_join",
}

func messageType(t discordgo.MessageType) string {
	if name, ok := messageTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("type_%d", t)
}

// sortBySnowflake orders a page chronologically; snowflake ids grow with
// time, so numeric string order is creation order.
func sortBySnowflake(messages []*discordgo.Message) {
	sort.Slice(messages, func(i, j int) bool {
		a, b := messages[i].ID, messages[j].ID
		if len(a) != len(b) {
			return len(a) < len(b)
		}
		return a < b
	})
}
