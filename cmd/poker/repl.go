package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/matthiasburger/planningpoker-go/internal/session"
)

// repl drives the room interactively: snapshot changes redraw the table,
// notices print as they arrive, and stdin lines become commands.
func repl(ctx context.Context, mgr *session.Manager) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case msg := <-mgr.Notices():
				fmt.Printf("\n*** %s\n", msg)
			case <-mgr.Updates():
				render(mgr)
			}
		}
	}()

	fmt.Printf("cards: %s\n", strings.Join(session.DefaultDeck(), " "))
	fmt.Println("commands: vote <card> | story <title> | reveal | reset | kick <user-id> | leave | quit")

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			done, err := execute(ctx, mgr, line)
			if err != nil {
				fmt.Printf("error: %v\n", err)
			}
			if done {
				return nil
			}
		}
	}
}

func execute(ctx context.Context, mgr *session.Manager, line string) (done bool, err error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}

	switch cmd, rest := fields[0], fields[1:]; cmd {
	case "vote":
		if len(rest) != 1 {
			return false, fmt.Errorf("usage: vote <card>")
		}
		return false, mgr.ChooseCard(ctx, rest[0])
	case "story":
		if len(rest) == 0 {
			return false, fmt.Errorf("usage: story <title>")
		}
		return false, mgr.SetStory(ctx, strings.Join(rest, " "))
	case "reveal":
		return false, mgr.Reveal(ctx)
	case "reset":
		return false, mgr.ResetRound(ctx)
	case "kick":
		if len(rest) != 1 {
			return false, fmt.Errorf("usage: kick <user-id>")
		}
		return false, mgr.KickUser(ctx, rest[0])
	case "leave":
		return true, mgr.LeaveRoom(ctx)
	case "quit", "exit":
		return true, nil
	default:
		return false, fmt.Errorf("unknown command %q", cmd)
	}
}

func render(mgr *session.Manager) {
	if mgr.Reconnecting() {
		fmt.Println("\n-- reconnecting --")
		return
	}

	snap, ok := mgr.Snapshot()
	if !ok {
		return
	}

	fmt.Printf("\n== room %s", snap.RoomID)
	if snap.StoryTitle != "" {
		fmt.Printf(" | story: %s", snap.StoryTitle)
	}
	fmt.Println()

	for _, p := range snap.Participants {
		marker := " "
		if mgr.IsCurrentUser(p) {
			marker = "*"
		}
		vote := "-"
		switch {
		case snap.Revealed && p.Vote != nil:
			vote = *p.Vote
		case p.Vote != nil:
			vote = "✓"
		}
		fmt.Printf("%s %-20s %s\n", marker, p.DisplayName, vote)
	}
}
