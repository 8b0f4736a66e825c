package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isUnlocked() bool
	Unlock(ctx context.Context) error
	Lock(ctx context.Context) error
	Create(ctx context.Context) error
	List(ctx context.Context) error
	Search(ctx context.Context) error
	Show(ctx context.Context) error
	Edit(ctx context.Context) error
	Tag(ctx context.Context) error
	Delete(ctx context.Context) error
	Attach(ctx context.Context) error
	Play(ctx context.Context) error
	Export(ctx context.Context) error
	Backup(ctx context.Context) error
	Restore(ctx context.Context) error
}

// runREPL starts a simple read–eval–print loop for the NoteKeeper CLI.
//
// It reads a line from the provided scanner, parses the first token as the
// command, and dispatches to methods on 'a'. Unknown commands are reported
// back to the user. The loop exits on scanner EOF or when the user types
// "exit" or "quit".
//
// Prompt & Commands
//
// The prompt shows the current status (from statusFn) and accepts commands:
//
//	Locked:
//	  - help           — show available commands
//	  - unlock         — open the vault with the password
//	  - restore        — restore the container from a backup
//	  - exit | quit    — leave the program
//
//	Unlocked:
//	  - help           — show available commands
//	  - create         — add a note
//	  - list           — list notes, newest first
//	  - search         — find notes by substring
//	  - show           — show a single note (interactive ID prompt)
//	  - edit           — change a note's title and body
//	  - tag            — replace a note's tags
//	  - delete         — remove a note
//	  - attach         — attach an audio file and queue transcription
//	  - play           — save a note's audio next to the export directory
//	  - export         — write a note as Markdown
//	  - backup         — upload the container to object storage
//	  - lock           — close the vault and drop the unlock session
//	  - exit | quit    — leave the program
//
// Any errors returned by command handlers are ignored here; handlers should
// log their own errors. This keeps the REPL loop resilient and focused on I/O.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("nk> %s > ", statusFn()))
		if !scanner.Scan() {
			return
		}
		line := scanner.Text()
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd := parts[0]

		switch cmd {
		case "help":
			if a.isUnlocked() {
				printlnFn("Available commands: create, (l)ist, (s)earch, show, edit, tag, delete, attach, play, export, backup, lock, exit")
			} else {
				printlnFn("Available commands: unlock, restore, exit")
			}

		case "unlock":
			_ = a.Unlock(ctx)

		case "lock":
			_ = a.Lock(ctx)

		case "create":
			_ = a.Create(ctx)

		case "l", "list":
			_ = a.List(ctx)

		case "s", "search":
			_ = a.Search(ctx)

		case "show":
			_ = a.Show(ctx)

		case "edit":
			_ = a.Edit(ctx)

		case "tag":
			_ = a.Tag(ctx)

		case "delete":
			_ = a.Delete(ctx)

		case "attach":
			_ = a.Attach(ctx)

		case "play":
			_ = a.Play(ctx)

		case "export":
			_ = a.Export(ctx)

		case "backup":
			_ = a.Backup(ctx)

		case "restore":
			_ = a.Restore(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}
