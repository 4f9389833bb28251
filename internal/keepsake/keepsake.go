// Package keepsake holds the card's hidden contents, revealed once the lock opens.
package keepsake

import (
	"fmt"

	"github.com/starford/keepsake/internal/apperr"
	"github.com/starford/keepsake/internal/lock"
)

// Kind names how a keepsake is presented.
type Kind string

const (
	KindWelcome Kind = "welcome"
	KindLetter  Kind = "letter"
	KindTicket  Kind = "ticket"
	KindPhoto   Kind = "photo"
	KindHeart   Kind = "heart"
)

// Kinds lists every valid kind.
var Kinds = []Kind{KindWelcome, KindLetter, KindTicket, KindPhoto, KindHeart}

// Keepsake is one item on the card.
type Keepsake struct {
	ID    string `json:"id" yaml:"id" toml:"id"`
	Kind  Kind   `json:"kind" yaml:"kind" toml:"kind"`
	Title string `json:"title" yaml:"title" toml:"title"`
	Body  string `json:"body,omitempty" yaml:"body" toml:"body"`
	// Image is a path or URL; for photos it is the front, Body the back.
	Image string `json:"image,omitempty" yaml:"image" toml:"image"`
}

// Collection is an ordered set of keepsakes gated by a lock state.
type Collection struct {
	items []Keepsake
	byID  map[string]int
}

// NewCollection indexes items by ID. Duplicate IDs are an error.
func NewCollection(items []Keepsake) (*Collection, error) {
	c := &Collection{items: append([]Keepsake{}, items...), byID: make(map[string]int, len(items))}
	for i, k := range c.items {
		if _, dup := c.byID[k.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate keepsake id %q", apperr.ErrInvalidArgument, k.ID)
		}
		c.byID[k.ID] = i
	}
	return c, nil
}

// Len returns the number of keepsakes.
func (c *Collection) Len() int { return len(c.items) }

// Reveal returns every keepsake once state is Unlocked.
func (c *Collection) Reveal(state lock.State) ([]Keepsake, error) {
	if state != lock.Unlocked {
		return nil, fmt.Errorf("%w: keepsakes are sealed while %s", apperr.ErrLocked, state)
	}
	return append([]Keepsake{}, c.items...), nil
}

// Get returns one keepsake once state is Unlocked. A sealed card hides
// whether id exists.
func (c *Collection) Get(id string, state lock.State) (Keepsake, error) {
	if state != lock.Unlocked {
		return Keepsake{}, fmt.Errorf("%w: keepsakes are sealed while %s", apperr.ErrLocked, state)
	}
	i, ok := c.byID[id]
	if !ok {
		return Keepsake{}, fmt.Errorf("%w: keepsake %q", apperr.ErrNotFound, id)
	}
	return c.items[i], nil
}

// Defaults is the stock card.
func Defaults() []Keepsake {
	return []Keepsake{
		{
			ID:    "welcome",
			Kind:  KindWelcome,
			Title: "Welcome!",
			Body:  "You have just opened the doors to this small secret world. Many things here are interactive and hide surprises. Touch, click and explore to find them all!",
		},
		{
			ID:    "letter",
			Kind:  KindLetter,
			Title: "My Love,",
			Body:  "If you are reading this, you have found my little secret. I wanted to make something that feels like a warm hug on a cold day. Thank you for being you. Forever and beyond, your boy.",
		},
		{
			ID:    "ticket",
			Kind:  KindTicket,
			Title: "Un Giorno Perfetto",
			Body:  "No. 1023. Admit one. Date: any day you choose. Time: sunrise to sunset. Place: wherever we are together. Price: one (1) hug.",
		},
		{
			ID:    "photo",
			Kind:  KindPhoto,
			Title: "Us",
			Body:  "Every moment with you is my favorite memory. You are my home.",
			Image: "/photo.jpg",
		},
		{
			ID:    "heart",
			Kind:  KindHeart,
			Title: "♡",
		},
	}
}
