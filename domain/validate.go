package domain

import (
	"strings"

	"github.com/go-playground/validator/v10"

	"roomcast/errors"
)

// MaxContentLength bounds a single chat message.
const MaxContentLength = 4000

var validate = validator.New()

// JoinRequest carries the fields a client must provide to enter a room.
// The colon is reserved as the store's key separator.
type JoinRequest struct {
	Room     string `validate:"required,excludesall=:"`
	Username string `validate:"required,min=2,max=20"`
}

// ValidateJoin checks the join fields after trimming the username.
// The 2-20 rule applies to the trimmed value, so "  a  " is invalid.
func ValidateJoin(room, username string) (JoinRequest, error) {
	req := JoinRequest{
		Room:     strings.TrimSpace(room),
		Username: strings.TrimSpace(username),
	}
	if err := validate.Struct(req); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 && verrs[0].Field() == "Room" {
			return JoinRequest{}, errors.NewValidationError("room", "room id must be non-empty without ':'")
		}
		return JoinRequest{}, errors.NewValidationError("username", errors.ErrInvalidUsername.Error())
	}
	return req, nil
}

// ValidateContent enforces the chat content bounds.
// An exact MaxContentLength payload is accepted, one more rune is not.
func ValidateContent(content string) error {
	if content == "" {
		return errors.NewValidationError("content", "content must not be empty")
	}
	if len([]rune(content)) > MaxContentLength {
		return errors.NewValidationError("content", "content exceeds maximum length")
	}
	return nil
}
