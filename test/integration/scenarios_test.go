// Package integration contains end-to-end tests against a real TCP listener.
//
// Each test starts a server on an ephemeral port, connects plain TCP clients
// through the testhelpers line-protocol wrappers, and verifies the externally
// observable conversation.
package integration

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/termchat/termchat/test/testhelpers"
)

func TestRegistrationAndAutoJoin(t *testing.T) {
	srv := testhelpers.StartServer(t, testhelpers.TestConfig())

	alice := testhelpers.Dial(t, srv.Addr())
	alice.SendLine("NICK:Alice")
	alice.Expect("SERVER:Nickname set to Alice")
	alice.Expect("SERVER:Joined #general")
	require.Equal(t, "SERVER:Users in #general: Alice", alice.ReadLine())

	bob := testhelpers.Dial(t, srv.Addr())
	bob.SendLine("NICK:Bob")
	bob.Expect("SERVER:Nickname set to Bob")
	bob.Expect("SERVER:Joined #general")
	require.Equal(t, "SERVER:Users in #general: Alice, Bob", bob.ReadLine())

	// The existing member is told about the join.
	require.Equal(t, "ROOM:general:Bob:joined", alice.ReadLine())
}

func TestRoomMessagingSuppressesSelfEcho(t *testing.T) {
	srv := testhelpers.StartServer(t, testhelpers.TestConfig())

	alice := testhelpers.Dial(t, srv.Addr())
	alice.Register("Alice")
	bob := testhelpers.Dial(t, srv.Addr())
	bob.Register("Bob")
	alice.Expect("ROOM:general:Bob:joined")

	alice.SendLine("MSG:Hello everyone!")
	require.Equal(t, "ROOM:general:Alice:Hello everyone!", bob.ReadLine())
	alice.ExpectSilence(100 * time.Millisecond)
}

func TestPrivateMessaging(t *testing.T) {
	srv := testhelpers.StartServer(t, testhelpers.TestConfig())

	alice := testhelpers.Dial(t, srv.Addr())
	alice.Register("Alice")
	bob := testhelpers.Dial(t, srv.Addr())
	bob.Register("Bob")
	alice.Expect("ROOM:general:Bob:joined")

	alice.SendLine("PM:Bob:secret")
	require.Equal(t, "PMIN:Alice:secret", bob.ReadLine())
	require.Equal(t, "PMOUT:Bob:secret", alice.ReadLine())

	alice.SendLine("PM:Mallory:anyone there?")
	alice.Expect("ERROR:NO_SUCH_USER")
	bob.ExpectSilence(100 * time.Millisecond)
}

func TestAbruptDisconnectNotifiesRoom(t *testing.T) {
	srv := testhelpers.StartServer(t, testhelpers.TestConfig())

	alice := testhelpers.Dial(t, srv.Addr())
	alice.Register("Alice")
	bob := testhelpers.Dial(t, srv.Addr())
	bob.Register("Bob")
	alice.Expect("ROOM:general:Bob:joined")

	bob.Close()
	require.Equal(t, "ROOM:general:Bob:left", alice.ReadLine())

	alice.SendLine("ROOMS")
	alice.Expect("SERVER:Rooms: general(1)")

	// The departed nickname is free for reuse.
	carol := testhelpers.Dial(t, srv.Addr())
	carol.SendLine("NICK:Bob")
	carol.Expect("SERVER:Nickname set to Bob")
}

func TestMessageBodiesCarryColons(t *testing.T) {
	srv := testhelpers.StartServer(t, testhelpers.TestConfig())

	alice := testhelpers.Dial(t, srv.Addr())
	alice.Register("Alice")
	bob := testhelpers.Dial(t, srv.Addr())
	bob.Register("Bob")
	alice.Expect("ROOM:general:Bob:joined")

	alice.SendLine("PM:Bob:meet at 10:30:00 sharp")
	require.Equal(t, "PMIN:Alice:meet at 10:30:00 sharp", bob.ReadLine())
	require.Equal(t, "PMOUT:Bob:meet at 10:30:00 sharp", alice.ReadLine())
}

func TestRateLimitOverTCP(t *testing.T) {
	cfg := testhelpers.TestConfig()
	cfg.MaxMessagesPerMinute = 2
	srv := testhelpers.StartServer(t, cfg)

	c := testhelpers.Dial(t, srv.Addr())
	c.SendLine("NICK:Hasty")
	c.Expect("SERVER:Nickname set to Hasty")
	c.Expect("SERVER:Joined #general")
	c.Expect("SERVER:Users in #general:")

	c.SendLine("MSG:one")
	c.SendLine("MSG:two")
	line := c.Expect("ERROR:RATE_LIMIT")
	require.Contains(t, line, "retry in")

	// Throttled, not disconnected.
	c.SendLine("MSG:still here")
	c.Expect("ERROR:RATE_LIMIT")
}

func TestServerFullOverTCP(t *testing.T) {
	cfg := testhelpers.TestConfig()
	cfg.MaxClients = 2
	srv := testhelpers.StartServer(t, cfg)

	_ = testhelpers.Dial(t, srv.Addr())
	_ = testhelpers.Dial(t, srv.Addr())

	third := testhelpers.DialRaw(t, srv.Addr())
	third.Expect("ERROR:SERVER_FULL")
	third.ExpectEOF()
}
