package api

import (
	"strconv"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/keepsake/internal/cardservice"
	"github.com/starford/keepsake/internal/keepsake"
	"github.com/starford/keepsake/internal/lock"
	"github.com/starford/keepsake/internal/playlist"
	"github.com/starford/keepsake/internal/session"
)

// TurnRequest is a tumbler move taken from the URL.
type TurnRequest struct {
	Position  string
	Direction string
}

// Validate validates the turn request.
func (r TurnRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Position, validation.Required, validation.By(validPosition)),
		validation.Field(&r.Direction, validation.Required, validation.In(string(session.Up), string(session.Down))),
	)
}

func validPosition(v any) error {
	s, _ := v.(string)
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 || n >= lock.Digits {
		return validation.NewError("validation_position", "must be an integer from 0 to 3")
	}
	return nil
}

// LockStatus is the response for lock endpoints.
type LockStatus = cardservice.LockStatus

// PlaylistResponse is the response for GET /playlist.
type PlaylistResponse = playlist.Snapshot

// KeepsakeListResponse wraps revealed keepsakes.
type KeepsakeListResponse struct {
	Keepsakes []keepsake.Keepsake `json:"keepsakes"`
}
