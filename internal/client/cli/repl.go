package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// printlnFn and printFn are test seams for user-facing output.
var (
	printlnFn = fmt.Println
	printFn   = fmt.Print
)

const helpText = `Available commands:
  list                      list records
  codes                     show current codes
  add                       add a record (interactive)
  adduri <otpauth-uri>      add a record from a URI
  delete <id>               delete a record
  export [file]             plain-text export (stdout when no file)
  import [file]             import otpauth URIs (paste when no file)
  qr <id> <file.png>        write a record's QR code
  setpassword               set the backup password
  clearpassword             forget the backup password
  backup                    write a backup now
  restore [file]            restore a backup (latest when no file)
  frequency [never|once|daily|weekly|every N]
                            show or set the automatic backup frequency
  status                    show backup status
  exit | quit               leave the program`

// execIface is the command surface the REPL dispatches to. *App satisfies
// it; tests use a stub.
type execIface interface {
	List(ctx context.Context) error
	Codes(ctx context.Context) error
	Add(ctx context.Context) error
	AddURI(ctx context.Context, uri string) error
	Delete(ctx context.Context, id string) error
	Export(ctx context.Context, path string) error
	Import(ctx context.Context, path string) error
	QR(ctx context.Context, id, path string) error
	SetPassword(ctx context.Context) error
	ClearPassword(ctx context.Context) error
	Backup(ctx context.Context) error
	Restore(ctx context.Context, path string) error
	Frequency(ctx context.Context, spec string) error
	Status(ctx context.Context) error
}

// runREPL reads one command per line from reader and dispatches it to a.
// The loop ends on EOF or on "exit"/"quit". Handler errors are reported by
// the handlers themselves and do not stop the loop.
func runREPL(ctx context.Context, a execIface, reader *bufio.Reader) {
	for {
		printFn("authigel> ")
		line, err := reader.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || line == "") {
			return
		}

		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		switch cmd {
		case "help":
			printlnFn(helpText)

		case "l", "list":
			_ = a.List(ctx)

		case "c", "codes":
			_ = a.Codes(ctx)

		case "add":
			_ = a.Add(ctx)

		case "adduri":
			if len(args) == 0 {
				printlnFn("Usage: adduri <otpauth-uri>")
				continue
			}
			_ = a.AddURI(ctx, args[0])

		case "delete":
			if len(args) == 0 {
				printlnFn("Usage: delete <id>")
				continue
			}
			_ = a.Delete(ctx, args[0])

		case "export":
			_ = a.Export(ctx, firstArg(args))

		case "import":
			_ = a.Import(ctx, firstArg(args))

		case "qr":
			if len(args) < 2 {
				printlnFn("Usage: qr <id> <file.png>")
				continue
			}
			_ = a.QR(ctx, args[0], args[1])

		case "setpassword":
			_ = a.SetPassword(ctx)

		case "clearpassword":
			_ = a.ClearPassword(ctx)

		case "backup":
			_ = a.Backup(ctx)

		case "restore":
			_ = a.Restore(ctx, firstArg(args))

		case "frequency":
			_ = a.Frequency(ctx, strings.Join(args, " "))

		case "status":
			_ = a.Status(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}

		if err != nil {
			return
		}
	}
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
