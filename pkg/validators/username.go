package validators

import (
	"errors"
	"regexp"
)

var (
	ErrUsernameEmpty   = errors.New("no username provided")
	ErrUsernameTooLong = errors.New("username must be at most 150 characters long")
	ErrUsernameInvalid = errors.New("username may only contain letters, digits and @/./+/-/_")

	usernameRe = regexp.MustCompile(`^[\w.@+-]+$`)
)

func UsernameValidator(u string) error {
	if u == "" {
		return ErrUsernameEmpty
	}

	if len(u) > 150 {
		return ErrUsernameTooLong
	}

	if !usernameRe.MatchString(u) {
		return ErrUsernameInvalid
	}

	return nil
}
