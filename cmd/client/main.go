// Command client is a terminal peer for the termchat server. It renders
// received protocol lines and encodes typed input; it imposes no contract on
// the server beyond the wire protocol itself.
package main

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"strings"

	"github.com/gookit/color"
	"github.com/joho/godotenv"
	"github.com/olekukonko/tablewriter"

	"github.com/termchat/termchat/internal/protocol"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	addr := os.Getenv("TERMCHAT_ADDR")
	if addr == "" {
		addr = "127.0.0.1:6667"
	}
	if len(os.Args) > 1 {
		addr = os.Args[1]
	}

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", addr, err)
	}
	defer conn.Close()

	color.Green.Printf("Connected to %s\n", addr)
	printHelp()

	done := make(chan struct{})
	go func() {
		defer close(done)
		scanner := bufio.NewScanner(conn)
		for scanner.Scan() {
			render(scanner.Text())
		}
		color.Yellow.Println("Disconnected from server")
	}()

	input := bufio.NewScanner(os.Stdin)
	for input.Scan() {
		select {
		case <-done:
			return nil
		default:
		}
		line, quit, err := encodeInput(input.Text())
		if err != nil {
			color.Red.Println(err.Error())
			continue
		}
		if line == "" {
			continue
		}
		if _, err := fmt.Fprint(conn, line); err != nil {
			return fmt.Errorf("sending: %w", err)
		}
		if quit {
			return nil
		}
	}
	return nil
}

// encodeInput turns one line of typed input into a wire line. Slash commands
// are normalized through the alias table; anything else is a room message.
// A local-only /help prints the command table and produces no wire line.
func encodeInput(text string) (line string, quit bool, err error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", false, nil
	}
	if !strings.HasPrefix(text, "/") {
		return protocol.Encode(protocol.CmdMsg, text), false, nil
	}

	fields := strings.SplitN(text[1:], " ", 2)
	command, ok := protocol.Canonical(fields[0])
	if !ok {
		return "", false, fmt.Errorf("unknown command /%s, try /help", fields[0])
	}
	arg := ""
	if len(fields) > 1 {
		arg = strings.TrimSpace(fields[1])
	}

	switch command {
	case protocol.CmdHelp:
		printHelp()
		return "", false, nil
	case protocol.CmdNick, protocol.CmdJoin, protocol.CmdMsg:
		if arg == "" {
			return "", false, fmt.Errorf("/%s needs an argument", fields[0])
		}
		return protocol.Encode(command, arg), false, nil
	case protocol.CmdPM:
		parts := strings.SplitN(arg, " ", 2)
		if len(parts) < 2 {
			return "", false, fmt.Errorf("usage: /msg <nickname> <text>")
		}
		return protocol.Encode(command, parts[0], parts[1]), false, nil
	case protocol.CmdQuit:
		return protocol.Encode(command), true, nil
	default:
		return protocol.Encode(command), false, nil
	}
}

// render pretty-prints one server line. Unparseable lines are shown raw so a
// protocol hiccup never hides output.
func render(line string) {
	msg, err := protocol.Decode(line)
	if err != nil {
		fmt.Println(line)
		return
	}
	switch msg.Command {
	case protocol.CmdServer:
		color.Gray.Printf("* %s\n", msg.Args[0])
	case protocol.CmdRoom:
		color.Cyan.Printf("[#%s] ", msg.Args[0])
		fmt.Printf("%s: %s\n", msg.Args[1], msg.Args[2])
	case protocol.CmdPMIn:
		color.Magenta.Printf("[PM from %s] %s\n", msg.Args[0], msg.Args[1])
	case protocol.CmdPMOut:
		color.Magenta.Printf("[PM to %s] %s\n", msg.Args[0], msg.Args[1])
	case protocol.CmdError:
		color.Red.Printf("error (%s): %s\n", msg.Args[0], msg.Args[1])
	default:
		fmt.Println(line)
	}
}

func printHelp() {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Command", "Action"})
	for _, row := range [][]string{
		{"/nick <name>", "set your nickname"},
		{"/join <room>", "join a room"},
		{"/leave", "leave the current room"},
		{"/msg <user> <text>", "send a private message"},
		{"/users", "list users in your room"},
		{"/rooms", "list all rooms"},
		{"/whoami", "show your info"},
		{"/quit", "disconnect"},
		{"<text>", "send to your current room"},
	} {
		table.Append(row)
	}
	table.Render()
}
