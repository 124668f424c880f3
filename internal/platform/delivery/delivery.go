// Package delivery defines the collaborator interfaces the notification
// dispatcher hands messages to: per-channel senders, the contact directory and
// the message renderer. The engine decides what to send and when; transport is
// entirely behind these interfaces.
package delivery

import (
	"context"
	"errors"
	"sync"
)

// Channel identifies a delivery transport.
type Channel string

const (
	ChannelWebsite  Channel = "website"
	ChannelSMS      Channel = "sms"
	ChannelWhatsApp Channel = "whatsapp"
	ChannelEmail    Channel = "email"
)

var validChannels = map[Channel]bool{
	ChannelWebsite: true, ChannelSMS: true, ChannelWhatsApp: true, ChannelEmail: true,
}

// ValidChannel reports whether s names a known channel.
func ValidChannel(s string) bool {
	return validChannels[Channel(s)]
}

// Contact holds the per-user delivery endpoints supplied at dispatch time.
// The engine never stores these itself.
type Contact struct {
	UserID    string
	Phone     string
	Email     string
	PushToken string
	Language  string
}

// Message is rendered display text ready for transport.
type Message struct {
	Title string
	Body  string
}

// Hints carries delivery emphasis flags. RequireInteraction is set for
// same-day critical reminders so the client keeps the notification on screen.
type Hints struct {
	RequireInteraction bool
	Priority           string
}

// Sender transmits one message over one channel. Implementations own their
// retry policy; the engine attempts each instance exactly once.
type Sender interface {
	Send(ctx context.Context, to Contact, msg Message, hints Hints) error
}

// Directory resolves a user id to contact endpoints at dispatch time.
type Directory interface {
	Lookup(ctx context.Context, userID string) (Contact, error)
}

// ErrUnknownChannel is returned when no sender is registered for a channel.
var ErrUnknownChannel = errors.New("no sender registered for channel")

// Registry maps channels to their senders.
type Registry struct {
	mu      sync.RWMutex
	senders map[Channel]Sender
}

func NewRegistry() *Registry {
	return &Registry{senders: make(map[Channel]Sender)}
}

// Register adds or replaces the sender for a channel.
func (r *Registry) Register(ch Channel, s Sender) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.senders[ch] = s
}

// Sender returns the sender for a channel.
func (r *Registry) Sender(ch Channel) (Sender, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.senders[ch]
	if !ok {
		return nil, ErrUnknownChannel
	}
	return s, nil
}

// StaticDirectory is a Directory backed by a fixed map, used in development
// mode and tests.
type StaticDirectory struct {
	mu       sync.RWMutex
	contacts map[string]Contact
}

func NewStaticDirectory() *StaticDirectory {
	return &StaticDirectory{contacts: make(map[string]Contact)}
}

// Put stores the contact endpoints for a user.
func (d *StaticDirectory) Put(c Contact) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.contacts[c.UserID] = c
}

// Lookup implements Directory. Unknown users resolve to an empty contact so a
// missing profile degrades to a delivery failure, not an engine error.
func (d *StaticDirectory) Lookup(_ context.Context, userID string) (Contact, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.contacts[userID], nil
}
