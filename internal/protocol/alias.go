// Package protocol also carries the client-side slash-command alias table.
// Aliases are a convenience of the input boundary: they are normalized to
// canonical commands before a line is encoded, and the server never sees them.
package protocol

import "strings"

var aliases = map[string]string{
	"nick":   CmdNick,
	"n":      CmdNick,
	"join":   CmdJoin,
	"j":      CmdJoin,
	"leave":  CmdLeave,
	"l":      CmdLeave,
	"msg":    CmdPM,
	"m":      CmdPM,
	"pm":     CmdPM,
	"users":  CmdUsers,
	"u":      CmdUsers,
	"rooms":  CmdRooms,
	"r":      CmdRooms,
	"whoami": CmdWhoami,
	"w":      CmdWhoami,
	"help":   CmdHelp,
	"h":      CmdHelp,
	"quit":   CmdQuit,
	"q":      CmdQuit,
}

// Canonical resolves a slash-command alias (without the leading slash) to its
// canonical wire command. Lookup is case-insensitive.
func Canonical(alias string) (string, bool) {
	command, ok := aliases[strings.ToLower(alias)]
	return command, ok
}
