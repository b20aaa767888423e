package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"roomcast/errors"
)

func TestValidateJoin_Accepts_Trimmed_Username(t *testing.T) {
	req := require.New(t)

	joinReq, err := ValidateJoin(" general ", "  alice  ")

	req.NoError(err)
	req.Equal("general", joinReq.Room)
	req.Equal("alice", joinReq.Username)
}

func TestValidateJoin_Username_Bounds(t *testing.T) {
	req := require.New(t)

	// Two characters after trim is the minimum
	_, err := ValidateJoin("general", " ab ")
	req.NoError(err)

	// Twenty is the maximum
	_, err = ValidateJoin("general", strings.Repeat("x", 20))
	req.NoError(err)

	for _, username := range []string{"", " ", "a", strings.Repeat("x", 21)} {
		_, err = ValidateJoin("general", username)
		req.IsType(errors.ValidationError{}, err, "username %q", username)
	}
}

func TestValidateJoin_Room_Rules(t *testing.T) {
	req := require.New(t)

	_, err := ValidateJoin("", "alice")
	req.IsType(errors.ValidationError{}, err)

	// The colon is reserved by the store's key layout
	_, err = ValidateJoin("a:b", "alice")
	req.IsType(errors.ValidationError{}, err)
}

func TestValidateContent_Boundary(t *testing.T) {
	req := require.New(t)

	// Exactly the maximum is accepted
	req.NoError(ValidateContent(strings.Repeat("a", MaxContentLength)))

	// One more is not
	err := ValidateContent(strings.Repeat("a", MaxContentLength+1))
	req.IsType(errors.ValidationError{}, err)

	req.Error(ValidateContent(""))
}

func TestValidateContent_Counts_Runes_Not_Bytes(t *testing.T) {
	req := require.New(t)

	// 4000 multibyte runes are still 4000 characters
	req.NoError(ValidateContent(strings.Repeat("é", MaxContentLength)))
}
