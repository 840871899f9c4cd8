package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output.
var printlnFn = fmt.Println

// execIface is the command surface the REPL dispatches to. *App satisfies
// it; tests can provide a stub.
type execIface interface {
	Add(ctx context.Context, text string) error
	Toggle(ctx context.Context, ref string) error
	Edit(ctx context.Context, ref, text string) error
	Delete(ctx context.Context, ref string) error
	Restore(ctx context.Context, ref string) error
	Purge(ctx context.Context, ref string) error
	List(ctx context.Context, all bool) error
	Sync(ctx context.Context) error
	Refresh(ctx context.Context) error
	Status(ctx context.Context) error
}

const helpText = `Commands:
  add <text>          add a todo
  done <n|id>         toggle done
  edit <n|id> <text>  change the text
  rm <n|id>           delete (can be restored)
  restore <n|id>      undo rm
  purge <n|id>        delete for good
  ls                  list active todos
  all                 list everything, deleted included
  sync                pull and push now
  refresh             full re-read from the server
  status              connectivity and queue
  exit                leave`

// runREPL reads commands line by line and dispatches them to a. Command
// errors are printed and the loop goes on. It returns on EOF, on "exit" or
// "quit", or when ctx is done.
func runREPL(ctx context.Context, a execIface, promptFn func() string, scanner *bufio.Scanner) {
	for {
		if ctx.Err() != nil {
			return
		}
		printlnFn(promptFn())
		if !scanner.Scan() {
			return
		}

		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		var err error
		switch cmd {
		case "help", "?":
			printlnFn(helpText)
		case "add", "a":
			if len(args) == 0 {
				printlnFn("Usage: add <text>")
				continue
			}
			err = a.Add(ctx, strings.Join(args, " "))
		case "done", "toggle", "d":
			err = withRef(args, "done <n|id>", func(ref string) error { return a.Toggle(ctx, ref) })
		case "edit", "e":
			if len(args) < 2 {
				printlnFn("Usage: edit <n|id> <text>")
				continue
			}
			err = a.Edit(ctx, args[0], strings.Join(args[1:], " "))
		case "rm", "delete":
			err = withRef(args, "rm <n|id>", func(ref string) error { return a.Delete(ctx, ref) })
		case "restore":
			err = withRef(args, "restore <n|id>", func(ref string) error { return a.Restore(ctx, ref) })
		case "purge":
			err = withRef(args, "purge <n|id>", func(ref string) error { return a.Purge(ctx, ref) })
		case "ls", "l", "list":
			err = a.List(ctx, false)
		case "all":
			err = a.List(ctx, true)
		case "sync":
			err = a.Sync(ctx)
		case "refresh":
			err = a.Refresh(ctx)
		case "status":
			err = a.Status(ctx)
		case "exit", "quit", "q":
			printlnFn("Bye!")
			return
		default:
			printlnFn("Unknown command:", cmd)
		}

		if err != nil {
			printlnFn("Error:", err)
		}
	}
}

func withRef(args []string, usage string, fn func(ref string) error) error {
	if len(args) != 1 {
		printlnFn("Usage: " + usage)
		return nil
	}
	return fn(args[0])
}
