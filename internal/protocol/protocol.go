// Package protocol implements the line-oriented wire format spoken between
// termchat clients and the server. Every line is a colon-separated record of
// the form COMMAND:arg1:arg2:...\n; only the first arity-1 colons act as
// separators, so the final argument of a command may contain literal colons.
package protocol

import (
	"errors"
	"fmt"
	"strings"
)

// MaxLineLength bounds a single wire line, command and newline included.
const MaxLineLength = 1024

// Client-to-server commands.
const (
	CmdNick   = "NICK"
	CmdJoin   = "JOIN"
	CmdLeave  = "LEAVE"
	CmdMsg    = "MSG"
	CmdPM     = "PM"
	CmdUsers  = "USERS"
	CmdRooms  = "ROOMS"
	CmdWhoami = "WHOAMI"
	CmdHelp   = "HELP"
	CmdQuit   = "QUIT"
)

// Server-to-client commands.
const (
	CmdServer = "SERVER"
	CmdRoom   = "ROOM"
	CmdPMIn   = "PMIN"
	CmdPMOut  = "PMOUT"
	CmdError  = "ERROR"
)

// Error codes carried as the first argument of an ERROR line.
const (
	ErrCodeProtocol      = "PROTOCOL"
	ErrCodeInvalid       = "INVALID"
	ErrCodeNickInUse     = "NICK_IN_USE"
	ErrCodeNotRegistered = "NOT_REGISTERED"
	ErrCodeNotInRoom     = "NOT_IN_ROOM"
	ErrCodeNoSuchUser    = "NO_SUCH_USER"
	ErrCodeRateLimit     = "RATE_LIMIT"
	ErrCodeServerFull    = "SERVER_FULL"
)

// Decode failures. Neither is fatal to a connection; the dispatcher answers
// with ERROR:PROTOCOL and keeps reading.
var (
	ErrMalformedLine  = errors.New("malformed line")
	ErrUnknownCommand = errors.New("unknown command")
)

// arity maps each command to its fixed argument count. The last argument
// absorbs any remaining colons on the line.
var arity = map[string]int{
	CmdNick:   1,
	CmdJoin:   1,
	CmdLeave:  0,
	CmdMsg:    1,
	CmdPM:     2,
	CmdUsers:  0,
	CmdRooms:  0,
	CmdWhoami: 0,
	CmdHelp:   0,
	CmdQuit:   0,
	CmdServer: 1,
	CmdRoom:   3,
	CmdPMIn:   2,
	CmdPMOut:  2,
	CmdError:  2,
}

// Message is one decoded wire line.
type Message struct {
	Command string
	Args    []string
}

// Encode serializes a command and its arguments into a wire line, newline
// included. Only the final argument may contain colons; earlier arguments
// with colons would not survive a decode round trip.
func Encode(command string, args ...string) string {
	if len(args) == 0 {
		return command + "\n"
	}
	return command + ":" + strings.Join(args, ":") + "\n"
}

// Decode parses a single wire line (without its trailing newline) into a
// Message. It fails with ErrMalformedLine for empty, oversized, or
// wrong-arity lines and with ErrUnknownCommand for unrecognized commands.
func Decode(line string) (Message, error) {
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return Message{}, fmt.Errorf("%w: empty line", ErrMalformedLine)
	}
	if len(line) > MaxLineLength {
		return Message{}, fmt.Errorf("%w: line exceeds %d bytes", ErrMalformedLine, MaxLineLength)
	}

	command, rest, hasArgs := strings.Cut(line, ":")
	n, ok := arity[command]
	if !ok {
		return Message{}, fmt.Errorf("%w: %q", ErrUnknownCommand, command)
	}

	if n == 0 {
		if hasArgs {
			return Message{}, fmt.Errorf("%w: %s takes no arguments", ErrMalformedLine, command)
		}
		return Message{Command: command}, nil
	}

	if !hasArgs {
		return Message{}, fmt.Errorf("%w: %s requires %d argument(s)", ErrMalformedLine, command, n)
	}
	args := strings.SplitN(rest, ":", n)
	if len(args) < n {
		return Message{}, fmt.Errorf("%w: %s requires %d argument(s)", ErrMalformedLine, command, n)
	}
	return Message{Command: command, Args: args}, nil
}
