package integration

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/termchat/termchat/test/testhelpers"
)

// TestOversizedLineDoesNotKillConnection sends a line well past the protocol
// limit and verifies the session answers with an error and keeps running.
func TestOversizedLineDoesNotKillConnection(t *testing.T) {
	srv := testhelpers.StartServer(t, testhelpers.TestConfig())

	c := testhelpers.Dial(t, srv.Addr())
	c.SendLine("MSG:" + strings.Repeat("a", 4096))
	c.Expect("ERROR:PROTOCOL")

	c.SendLine("ROOMS")
	c.Expect("SERVER:Rooms:")
}

// TestMalformedInputAnswersProtocolErrors runs a batch of hostile or broken
// lines through one connection; each gets an error, none is fatal.
func TestMalformedInputAnswersProtocolErrors(t *testing.T) {
	srv := testhelpers.StartServer(t, testhelpers.TestConfig())

	c := testhelpers.Dial(t, srv.Addr())
	for _, line := range []string{
		"NOPE",
		"nick:lowercase",
		"MSG",
		"PM:onlyone",
		"USERS:extra",
		":::",
		"ROOM:general:Spoof:fake broadcast",
	} {
		c.SendLine(line)
		c.Expect("ERROR:PROTOCOL")
	}

	c.SendLine("ROOMS")
	c.Expect("SERVER:Rooms:")
}

// TestControlCharactersStrippedFromMessages verifies NUL and CR bytes never
// reach other clients.
func TestControlCharactersStrippedFromMessages(t *testing.T) {
	srv := testhelpers.StartServer(t, testhelpers.TestConfig())

	alice := testhelpers.Dial(t, srv.Addr())
	alice.Register("Alice")
	bob := testhelpers.Dial(t, srv.Addr())
	bob.Register("Bob")
	alice.Expect("ROOM:general:Bob:joined")

	alice.SendLine("MSG:hi\x00there")
	require.Equal(t, "ROOM:general:Alice:hithere", bob.ReadLine())
}

func TestWhitespaceOnlyMessageRejected(t *testing.T) {
	srv := testhelpers.StartServer(t, testhelpers.TestConfig())

	alice := testhelpers.Dial(t, srv.Addr())
	alice.Register("Alice")

	alice.SendLine("MSG:   ")
	alice.Expect("ERROR:INVALID")
}

func TestNicknameCannotContainSeparators(t *testing.T) {
	srv := testhelpers.StartServer(t, testhelpers.TestConfig())

	c := testhelpers.Dial(t, srv.Addr())
	c.SendLine("NICK:bad:name")
	c.Expect("ERROR:INVALID")

	c.SendLine("NICK:ok_name")
	c.Expect("SERVER:Nickname set to ok_name")
}

// TestBlankLinesIgnored makes sure empty keepalive lines produce no response
// and do not consume the rate budget.
func TestBlankLinesIgnored(t *testing.T) {
	cfg := testhelpers.TestConfig()
	cfg.MaxMessagesPerMinute = 2
	srv := testhelpers.StartServer(t, cfg)

	c := testhelpers.Dial(t, srv.Addr())
	c.SendLine("")
	c.SendLine("   ")
	c.ExpectSilence(100 * time.Millisecond)

	// Two admissions still available.
	c.SendLine("ROOMS")
	c.Expect("SERVER:Rooms:")
	c.SendLine("ROOMS")
	c.Expect("SERVER:Rooms:")
	c.SendLine("ROOMS")
	c.Expect("ERROR:RATE_LIMIT")
}
