// Package validate holds the pure shape checks applied to protocol arguments
// before they reach the registry. Nothing here touches shared state: the
// nickname-uniqueness check lives in the registry, where it can be made
// atomic with the reservation itself.
package validate

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Validation failures, one sentinel per rule family so callers can map them
// onto wire error codes with errors.Is.
var (
	ErrNicknameInvalid = errors.New("invalid nickname")
	ErrMessageEmpty    = errors.New("empty message")
	ErrMessageTooLong  = errors.New("message too long")
	ErrRoomNameInvalid = errors.New("invalid room name")
)

var (
	nicknamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
	roomPattern     = regexp.MustCompile(`^[a-z0-9_-]+$`)
)

// Nickname checks that a nickname is 2..max runes of letters, digits,
// underscore, or hyphen.
func Nickname(name string, max int) error {
	switch {
	case name == "":
		return fmt.Errorf("%w: cannot be empty", ErrNicknameInvalid)
	case len([]rune(name)) < 2:
		return fmt.Errorf("%w: too short (min 2)", ErrNicknameInvalid)
	case len([]rune(name)) > max:
		return fmt.Errorf("%w: too long (max %d)", ErrNicknameInvalid, max)
	case !nicknamePattern.MatchString(name):
		return fmt.Errorf("%w: only letters, numbers, _, - allowed", ErrNicknameInvalid)
	}
	return nil
}

// Message strips NUL and carriage-return bytes, then checks the body is
// non-empty after trimming and at most max runes long. The sanitized body is
// returned; it is what the server should broadcast.
func Message(body string, max int) (string, error) {
	body = strings.NewReplacer("\x00", "", "\r", "").Replace(body)
	if strings.TrimSpace(body) == "" {
		return "", ErrMessageEmpty
	}
	if len([]rune(body)) > max {
		return "", fmt.Errorf("%w (max %d)", ErrMessageTooLong, max)
	}
	return body, nil
}

// RoomName normalizes a room name (lowercase, optional leading # stripped)
// and checks it against the same character class as nicknames. The
// normalized name is returned and is the key under which the registry files
// the room.
func RoomName(name string, max int) (string, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.TrimPrefix(name, "#")
	switch {
	case name == "":
		return "", fmt.Errorf("%w: cannot be empty", ErrRoomNameInvalid)
	case len([]rune(name)) > max:
		return "", fmt.Errorf("%w: too long (max %d)", ErrRoomNameInvalid, max)
	case !roomPattern.MatchString(name):
		return "", fmt.Errorf("%w: only letters, numbers, _, - allowed", ErrRoomNameInvalid)
	}
	return name, nil
}
