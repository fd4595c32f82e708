package club

import (
	"context"
	"errors"
)

// ErrWorkerExited marks a worker loop that returned without an error while
// undrained work remained. That is a logic fault, not a clean completion.
var ErrWorkerExited = errors.New("worker exited before the queue drained")

// ReactorsFunc fetches the users behind a message's qualifying reactions.
type ReactorsFunc func(ctx context.Context) ([]UserInfo, error)

// HistoryItem is one message yielded while walking a channel, together with
// everything needed to shape records from it. Thread is non-nil when the
// message anchors a thread that must itself be crawled.
type HistoryItem struct {
	Message   Message
	Author    UserInfo
	Reactions []Reaction
	Thread    *ChannelRef
	Reactors  ReactorsFunc
}

// HistoryIter walks one channel's messages in the order the platform yields
// them. Next reports false once the stream is exhausted or broken; Err
// returns the terminal error, if any.
type HistoryIter interface {
	Next(ctx context.Context) bool
	Item() HistoryItem
	Err() error
}

// HistoryProvider supplies the channel tree and message streams.
type HistoryProvider interface {
	ListChannels(ctx context.Context) ([]ChannelRef, error)
	History(ctx context.Context, ch ChannelRef) (HistoryIter, error)
	ListMembers(ctx context.Context) ([]UserInfo, error)
}

// RecordSink durably stores crawled records. Implementations must tolerate
// concurrent writes from multiple workers.
type RecordSink interface {
	Reset(ctx context.Context) error
	InsertMessage(ctx context.Context, msg Message) error
	InsertUser(ctx context.Context, user User) error
	InsertPinReaction(ctx context.Context, pin PinReaction) error
}

// Registry deduplicates users across workers. Resolve returns the existing
// User for id when present; otherwise it builds one via factory, inserts it
// and reports created=true. It must be atomic for concurrent callers.
type Registry interface {
	Resolve(id string, factory func() *User) (user *User, created bool)
	Len() int
	Snapshot() map[string]*User
}

// Observer receives advisory crawl progress. Implementations must never
// block or affect control flow.
type Observer interface {
	ChannelDone(stats ChannelStats)
	CrawlDone(outcome Outcome)
}
