// Package club defines core types shared across subsystems.
package club

import (
	"time"

	"github.com/google/uuid"
)

// ChannelRef identifies one crawlable channel. Threads discovered while
// reading a parent channel are ChannelRefs with ParentID set.
type ChannelRef struct {
	ID       string
	Name     string
	Mention  string
	ParentID string
}

// IsThread reports whether the channel was discovered inside another one.
func (c ChannelRef) IsThread() bool {
	return c.ParentID != ""
}

// Message is one crawled message, permanently tied to its channel.
type Message struct {
	ID                string     `json:"id"`
	URL               string     `json:"url"`
	Content           string     `json:"content"`
	AuthorID          string     `json:"author_id"`
	ChannelID         string     `json:"channel_id"`
	ChannelName       string     `json:"channel_name"`
	ChannelMention    string     `json:"channel_mention"`
	Type              string     `json:"type"`
	CreatedAt         time.Time  `json:"created_at"`
	EditedAt          *time.Time `json:"edited_at,omitempty"`
	UpvotesCount      int        `json:"upvotes_count"`
	DownvotesCount    int        `json:"downvotes_count"`
	PinReactionsCount int        `json:"pin_reactions_count"`
}

// User is a deduplicated club member or former member.
type User struct {
	ID          string     `json:"id"`
	IsBot       bool       `json:"is_bot"`
	IsMember    bool       `json:"is_member"`
	DisplayName string     `json:"display_name"`
	Mention     string     `json:"mention"`
	JoinedAt    *time.Time `json:"joined_at,omitempty"`
	Roles       []string   `json:"roles,omitempty"`
}

// UserInfo is the raw participant data observed on a message or reaction.
// JoinedAt is nil for people who are no longer members of the club; the
// platform no longer exposes their membership details.
type UserInfo struct {
	ID          string
	Bot         bool
	DisplayName string
	Mention     string
	JoinedAt    *time.Time
	Roles       []string
}

// NewUser shapes a User from observed participant data. Membership is
// inferred from JoinedAt, mirroring how the platform reports past members.
func NewUser(info UserInfo) *User {
	return &User{
		ID:          info.ID,
		IsBot:       info.Bot,
		IsMember:    info.JoinedAt != nil,
		DisplayName: info.DisplayName,
		Mention:     info.Mention,
		JoinedAt:    info.JoinedAt,
		Roles:       info.Roles,
	}
}

// PinReaction links a user to a message they marked with a pin label.
type PinReaction struct {
	UserID    string `json:"user_id"`
	MessageID string `json:"message_id"`
}

// Reaction is one reaction tally on a message.
type Reaction struct {
	Label string
	Count int
}

// ChannelStats counts what one channel contributed to a crawl.
type ChannelStats struct {
	ChannelID   string
	ChannelName string
	Messages    int
	Users       int
	Pins        int
}

// Counters aggregates totals across one whole crawl.
type Counters struct {
	Channels int
	Messages int
	Users    int
	Pins     int
}

// Add folds one channel's stats into the totals.
func (c *Counters) Add(stats ChannelStats) {
	c.Channels++
	c.Messages += stats.Messages
	c.Users += stats.Users
	c.Pins += stats.Pins
}

// Outcome is the terminal result of one crawl run. When Err is non-nil the
// crawl failed and Users holds whatever the workers managed to collect; it
// must not be treated as authoritative.
type Outcome struct {
	RunID    uuid.UUID
	Users    map[string]*User
	Counters Counters
	Elapsed  time.Duration
	Err      error
}

// Failed reports whether the crawl ended with an error.
func (o Outcome) Failed() bool {
	return o.Err != nil
}

// MembersCount returns how many collected users are current members.
// Former members whose messages survived them are excluded.
func (o Outcome) MembersCount() int {
	n := 0
	for _, user := range o.Users {
		if user.IsMember {
			n++
		}
	}
	return n
}
