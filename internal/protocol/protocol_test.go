package protocol

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		command string
		args    []string
	}{
		{"nick", CmdNick, []string{"Alice"}},
		{"join", CmdJoin, []string{"general"}},
		{"leave", CmdLeave, nil},
		{"msg", CmdMsg, []string{"Hello everyone!"}},
		{"msg with colons", CmdMsg, []string{"ratio is 3:2:1"}},
		{"pm", CmdPM, []string{"Bob", "Hi"}},
		{"pm body with colons", CmdPM, []string{"Bob", "meet at 10:30"}},
		{"users", CmdUsers, nil},
		{"rooms", CmdRooms, nil},
		{"whoami", CmdWhoami, nil},
		{"help", CmdHelp, nil},
		{"quit", CmdQuit, nil},
		{"server notice", CmdServer, []string{"Nickname set to Alice"}},
		{"server notice with colons", CmdServer, []string{"rooms: general, random"}},
		{"room broadcast", CmdRoom, []string{"general", "Alice", "Hello everyone!"}},
		{"room broadcast with colons", CmdRoom, []string{"general", "Alice", "a:b:c"}},
		{"pm in", CmdPMIn, []string{"Alice", "Hi"}},
		{"pm out", CmdPMOut, []string{"Bob", "Hi"}},
		{"error", CmdError, []string{ErrCodeInvalid, "nickname too long: max 20"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			line := Encode(tt.command, tt.args...)
			require.True(t, strings.HasSuffix(line, "\n"))

			msg, err := Decode(strings.TrimSuffix(line, "\n"))
			require.NoError(t, err)
			require.Equal(t, tt.command, msg.Command)
			require.Equal(t, len(tt.args), len(msg.Args))
			for i, arg := range tt.args {
				require.Equal(t, arg, msg.Args[i])
			}
		})
	}
}

func TestDecodeMalformed(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{"empty", ""},
		{"whitespace newline only", "\r\n"},
		{"oversized", CmdMsg + ":" + strings.Repeat("a", MaxLineLength)},
		{"missing argument", "NICK"},
		{"missing second argument", "PM:Bob"},
		{"argument on zero-arity command", "LEAVE:general"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.line)
			require.ErrorIs(t, err, ErrMalformedLine)
		})
	}
}

func TestDecodeUnknownCommand(t *testing.T) {
	for _, line := range []string{"BOGUS", "KICK:Bob", "nick:Alice"} {
		_, err := Decode(line)
		require.ErrorIs(t, err, ErrUnknownCommand, "line %q", line)
	}
}

func TestDecodeEmptyArgumentSurvives(t *testing.T) {
	// Shape validation is the validator's job; the codec only enforces arity.
	msg, err := Decode("NICK:")
	require.NoError(t, err)
	require.Equal(t, []string{""}, msg.Args)
}

func TestCanonical(t *testing.T) {
	tests := []struct {
		alias string
		want  string
	}{
		{"j", CmdJoin},
		{"join", CmdJoin},
		{"J", CmdJoin},
		{"msg", CmdPM},
		{"m", CmdPM},
		{"pm", CmdPM},
		{"q", CmdQuit},
		{"whoami", CmdWhoami},
	}
	for _, tt := range tests {
		got, ok := Canonical(tt.alias)
		require.True(t, ok, "alias %q", tt.alias)
		require.Equal(t, tt.want, got)
	}

	_, ok := Canonical("kick")
	require.False(t, ok)
}
