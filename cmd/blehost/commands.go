package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/tve/blehost/app"
)

// runCommands reads line-oriented commands from in until EOF or an I/O
// error, driving fsm the same way a real operator console would: one
// command per line, "scan"/"connect"/"send"/"disconnect"/"status"/"quit".
func runCommands(in io.Reader, out io.Writer, fsm *app.FSM) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		cmd, args := fields[0], fields[1:]
		if err := dispatchCommand(out, fsm, cmd, args); err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
		}
		if cmd == "quit" || cmd == "exit" {
			return
		}
	}
}

func dispatchCommand(out io.Writer, fsm *app.FSM, cmd string, args []string) error {
	switch cmd {
	case "scan":
		return fsm.Scan()

	case "connect":
		if len(args) != 1 {
			return fmt.Errorf("usage: connect <mac>")
		}
		peer, err := app.ParseAddress(args[0], false)
		if err != nil {
			return err
		}
		return fsm.Connect(peer)

	case "send":
		if len(args) == 0 {
			return fmt.Errorf("usage: send <text>")
		}
		return fsm.Send([]byte(strings.Join(args, " ")), false)

	case "disconnect":
		return fsm.Disconnect()

	case "status":
		fmt.Fprintf(out, "state: %s\n", fsm.State())
		return nil

	case "quit", "exit":
		return nil

	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}
