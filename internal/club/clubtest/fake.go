// Package clubtest provides scripted fakes for crawl tests.
package clubtest

import (
	"context"
	"fmt"
	"sync"

	"github.com/NelliaS/junior.guru/internal/club"
)

// Channel scripts one channel's history. When Err is non-nil, the iterator
// fails after yielding FailAfter items instead of finishing cleanly.
type Channel struct {
	Ref       club.ChannelRef
	Items     []club.HistoryItem
	FailAfter int
	Err       error
}

// Provider is an in-memory club.HistoryProvider.
type Provider struct {
	mu       sync.Mutex
	channels map[string]*Channel
	members  []club.UserInfo
	opened   []string
}

// NewProvider builds a Provider over the given scripted channels.
func NewProvider(channels ...*Channel) *Provider {
	p := &Provider{channels: make(map[string]*Channel)}
	for _, ch := range channels {
		p.Add(ch)
	}
	return p
}

// Add registers another channel, typically a thread discovered mid-crawl.
func (p *Provider) Add(ch *Channel) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.channels[ch.Ref.ID] = ch
}

// SetMembers scripts the guild member listing.
func (p *Provider) SetMembers(members ...club.UserInfo) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.members = members
}

// ListChannels returns the scripted top-level channels.
func (p *Provider) ListChannels(context.Context) ([]club.ChannelRef, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var refs []club.ChannelRef
	for _, ch := range p.channels {
		if !ch.Ref.IsThread() {
			refs = append(refs, ch.Ref)
		}
	}
	return refs, nil
}

// ListMembers returns the scripted member listing.
func (p *Provider) ListMembers(context.Context) ([]club.UserInfo, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]club.UserInfo(nil), p.members...), nil
}

// History opens an iterator over one scripted channel.
func (p *Provider) History(_ context.Context, ref club.ChannelRef) (club.HistoryIter, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	ch, ok := p.channels[ref.ID]
	if !ok {
		return nil, fmt.Errorf("unknown channel %s", ref.ID)
	}
	p.opened = append(p.opened, ref.ID)
	return &sliceIter{items: ch.Items, failAfter: ch.FailAfter, failErr: ch.Err}, nil
}

// Opened lists the channel ids History was called for, in call order.
func (p *Provider) Opened() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.opened...)
}

type sliceIter struct {
	items     []club.HistoryItem
	i         int
	item      club.HistoryItem
	failAfter int
	failErr   error
	err       error
}

func (it *sliceIter) Next(ctx context.Context) bool {
	if it.err != nil {
		return false
	}
	if ctx.Err() != nil {
		it.err = ctx.Err()
		return false
	}
	if it.failErr != nil && it.i == it.failAfter {
		it.err = it.failErr
		return false
	}
	if it.i >= len(it.items) {
		return false
	}
	it.item = it.items[it.i]
	it.i++
	return true
}

func (it *sliceIter) Item() club.HistoryItem { return it.item }

func (it *sliceIter) Err() error { return it.err }

// Sink is an in-memory club.RecordSink safe for concurrent writers.
type Sink struct {
	mu       sync.Mutex
	messages []club.Message
	users    []club.User
	pins     []club.PinReaction
	resets   int

	// InsertErr, when set, makes every insert fail.
	InsertErr error
}

// NewSink builds an empty Sink.
func NewSink() *Sink {
	return &Sink{}
}

// Reset clears all stored records.
func (s *Sink) Reset(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = nil
	s.users = nil
	s.pins = nil
	s.resets++
	return nil
}

// InsertMessage stores a message.
func (s *Sink) InsertMessage(_ context.Context, msg club.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.InsertErr != nil {
		return s.InsertErr
	}
	s.messages = append(s.messages, msg)
	return nil
}

// InsertUser stores a user.
func (s *Sink) InsertUser(_ context.Context, user club.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.InsertErr != nil {
		return s.InsertErr
	}
	s.users = append(s.users, user)
	return nil
}

// InsertPinReaction stores a pin reaction.
func (s *Sink) InsertPinReaction(_ context.Context, pin club.PinReaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.InsertErr != nil {
		return s.InsertErr
	}
	s.pins = append(s.pins, pin)
	return nil
}

// Messages copies the stored messages.
func (s *Sink) Messages() []club.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]club.Message(nil), s.messages...)
}

// Users copies the stored users.
func (s *Sink) Users() []club.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]club.User(nil), s.users...)
}

// Pins copies the stored pin reactions.
func (s *Sink) Pins() []club.PinReaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]club.PinReaction(nil), s.pins...)
}

// Resets returns how many times the sink was reset.
func (s *Sink) Resets() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resets
}
