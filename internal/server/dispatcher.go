// Package server routes decoded commands to their effects against the
// session and the registry. Handlers run on the issuing session's reader
// goroutine; everything they share with other sessions goes through the
// registry's mutual exclusion.
package server

import (
	"fmt"
	"strings"

	"github.com/termchat/termchat/internal/protocol"
	"github.com/termchat/termchat/internal/registry"
	"github.com/termchat/termchat/internal/validate"
)

// dispatch executes one decoded command and reports whether the session
// asked to disconnect.
func (s *Server) dispatch(sess *Session, msg protocol.Message) (quit bool) {
	switch msg.Command {
	case protocol.CmdNick:
		s.handleNick(sess, msg.Args[0])
	case protocol.CmdJoin:
		s.handleJoin(sess, msg.Args[0])
	case protocol.CmdLeave:
		s.handleLeave(sess)
	case protocol.CmdMsg:
		s.handleMsg(sess, msg.Args[0])
	case protocol.CmdPM:
		s.handlePM(sess, msg.Args[0], msg.Args[1])
	case protocol.CmdUsers:
		s.handleUsers(sess)
	case protocol.CmdRooms:
		s.handleRooms(sess)
	case protocol.CmdWhoami:
		s.handleWhoami(sess)
	case protocol.CmdHelp:
		s.handleHelp(sess)
	case protocol.CmdQuit:
		// Written directly rather than queued: teardown closes the transport
		// right after dispatch returns, which would race a queued farewell.
		_ = sess.writeDirect(protocol.Encode(protocol.CmdServer, "Goodbye"), farewellTimeout)
		return true
	default:
		// Server-origin commands (SERVER, ROOM, ...) decode fine but are not
		// valid input from a client.
		metricProtocolErrors.Inc()
		sess.sendError(protocol.ErrCodeProtocol, "not a client command: "+msg.Command)
	}
	return false
}

func (s *Server) handleNick(sess *Session, name string) {
	name = strings.TrimSpace(name)
	if err := validate.Nickname(name, s.cfg.MaxNicknameLength); err != nil {
		sess.sendError(protocol.ErrCodeInvalid, err.Error())
		return
	}
	if err := s.reg.ReserveNickname(name, sess); err != nil {
		sess.sendError(protocol.ErrCodeNickInUse, fmt.Sprintf("nickname %s is already in use", name))
		return
	}

	prior := sess.nickname
	sess.nickname = name
	sess.state = stateNamed
	sess.sendServer("Nickname set to " + name)

	if prior == "" {
		// First registration: drop the client straight into the default room.
		s.joinRoom(sess, s.cfg.AutoJoinRoom)
		return
	}

	// A rename re-enters the named state, which drops any room membership.
	// The old room is told about the rename rather than a bare departure.
	if room, ok := s.reg.Leave(sess); ok {
		sess.room = ""
		s.broadcast(room, protocol.Encode(protocol.CmdServer, prior+" is now known as "+name), sess)
	}
}

func (s *Server) handleJoin(sess *Session, arg string) {
	if sess.state == stateConnected {
		sess.sendError(protocol.ErrCodeNotRegistered, "set a nickname first")
		return
	}
	room, err := validate.RoomName(arg, s.cfg.MaxRoomNameLength)
	if err != nil {
		sess.sendError(protocol.ErrCodeInvalid, err.Error())
		return
	}
	s.joinRoom(sess, room)
}

// joinRoom moves a session into a room, announcing the departure to the old
// room and the arrival to the new one. Shared by JOIN and the post-NICK
// auto-join.
func (s *Server) joinRoom(sess *Session, room string) {
	prior := sess.room
	if prior == room {
		sess.sendServer("You are already in #" + room)
		return
	}

	members := s.reg.Join(room, sess)
	sess.room = room
	sess.state = stateInRoom

	if prior != "" {
		s.broadcast(prior, protocol.Encode(protocol.CmdRoom, prior, sess.nickname, "left"), sess)
	}
	s.broadcast(room, protocol.Encode(protocol.CmdRoom, room, sess.nickname, "joined"), sess)

	sess.sendServer("Joined #" + room)
	sess.sendServer("Users in #" + room + ": " + strings.Join(members, ", "))
}

func (s *Server) handleLeave(sess *Session) {
	if sess.state == stateConnected {
		sess.sendError(protocol.ErrCodeNotRegistered, "set a nickname first")
		return
	}
	room, ok := s.reg.Leave(sess)
	if !ok {
		sess.sendError(protocol.ErrCodeNotInRoom, "you are not in a room")
		return
	}
	sess.room = ""
	sess.state = stateNamed
	s.broadcast(room, protocol.Encode(protocol.CmdRoom, room, sess.nickname, "left"), sess)
	sess.sendServer("Left #" + room)
}

func (s *Server) handleMsg(sess *Session, text string) {
	if sess.state == stateConnected {
		sess.sendError(protocol.ErrCodeNotRegistered, "set a nickname first")
		return
	}
	body, err := validate.Message(text, s.cfg.MaxMessageLength)
	if err != nil {
		sess.sendError(protocol.ErrCodeInvalid, err.Error())
		return
	}
	if sess.room == "" {
		sess.sendError(protocol.ErrCodeNotInRoom, "join a room first with JOIN:<room>")
		return
	}
	metricRoomMessages.Inc()
	s.broadcast(sess.room, protocol.Encode(protocol.CmdRoom, sess.room, sess.nickname, body), sess)
}

func (s *Server) handlePM(sess *Session, target, text string) {
	if sess.state == stateConnected {
		sess.sendError(protocol.ErrCodeNotRegistered, "set a nickname first")
		return
	}
	target = strings.TrimSpace(target)
	body, err := validate.Message(text, s.cfg.MaxMessageLength)
	if err != nil {
		sess.sendError(protocol.ErrCodeInvalid, err.Error())
		return
	}
	recipient, ok := s.reg.FindByNickname(target)
	if !ok {
		sess.sendError(protocol.ErrCodeNoSuchUser, "no user named "+target)
		return
	}
	if !recipient.Enqueue(protocol.Encode(protocol.CmdPMIn, sess.nickname, body)) {
		s.dropMembers([]registry.Member{recipient})
		sess.sendError(protocol.ErrCodeNoSuchUser, "could not deliver to "+target)
		return
	}
	metricPrivateMessages.Inc()
	sess.Enqueue(protocol.Encode(protocol.CmdPMOut, target, body))
}

func (s *Server) handleUsers(sess *Session) {
	if sess.state == stateConnected {
		sess.sendError(protocol.ErrCodeNotRegistered, "set a nickname first")
		return
	}
	if sess.room == "" {
		sess.sendError(protocol.ErrCodeNotInRoom, "you are not in a room")
		return
	}
	members, _ := s.reg.ListMembers(sess.room)
	sess.sendServer("Users in #" + sess.room + ": " + strings.Join(members, ", "))
}

func (s *Server) handleRooms(sess *Session) {
	infos := s.reg.ListRooms()
	parts := make([]string, 0, len(infos))
	for _, info := range infos {
		parts = append(parts, fmt.Sprintf("%s(%d)", info.Name, info.Members))
	}
	sess.sendServer("Rooms: " + strings.Join(parts, ", "))
}

func (s *Server) handleWhoami(sess *Session) {
	if sess.state == stateConnected {
		sess.sendError(protocol.ErrCodeNotRegistered, "set a nickname first")
		return
	}
	room := "no room"
	if sess.room != "" {
		room = "#" + sess.room
	}
	sess.sendServer(fmt.Sprintf("You are %s in %s, connected from %s", sess.nickname, room, sess.remote))
}

func (s *Server) handleHelp(sess *Session) {
	for _, line := range []string{
		"Commands:",
		"NICK:<name> set your nickname",
		"JOIN:<room> join a room (leaves the current one)",
		"LEAVE leave the current room",
		"MSG:<text> send a message to your room",
		"PM:<nickname>:<text> send a private message",
		"USERS list users in your room",
		"ROOMS list all rooms",
		"WHOAMI show your session info",
		"QUIT disconnect",
	} {
		sess.sendServer(line)
	}
}
