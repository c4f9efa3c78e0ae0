// ticketctl is a terminal client for the ticketing backend.
// It drives the same page controllers as the web frontend and keeps the session token in a credentials file.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/skybi/ticketdesk/internal/backend"
	"github.com/skybi/ticketdesk/internal/page"
	"github.com/skybi/ticketdesk/internal/ticket"
	"github.com/skybi/ticketdesk/internal/token"
	"github.com/spf13/pflag"
	"golang.org/x/term"
)

const defaultBackendURL = "http://localhost:8000"

var errUsage = errors.New("no command given")

// app holds the I/O of one ticketctl invocation
type app struct {
	input  *bufio.Reader
	stdout io.Writer
	stderr io.Writer

	// readPassword reads the password without echoing it; a line of input is read if it is nil
	readPassword func() (string, error)
}

type options struct {
	backendURL  string
	tokenFile   string
	timeout     time.Duration
	yes         bool
	email       string
	title       string
	description string
	priority    string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &app{
		input:  bufio.NewReader(os.Stdin),
		stdout: os.Stdout,
		stderr: os.Stderr,
	}
	if fd := int(os.Stdin.Fd()); term.IsTerminal(fd) {
		app.readPassword = func() (string, error) {
			fmt.Fprint(os.Stderr, "Password: ")
			password, err := term.ReadPassword(fd)
			fmt.Fprintln(os.Stderr)
			return string(password), err
		}
	}

	if err := app.run(ctx, os.Args[1:]); err != nil {
		if errors.Is(err, page.ErrStale) {
			err = errors.New("interrupted")
		}
		fmt.Fprintln(os.Stderr, newStyles(os.Stderr).failure.Render("Error:"), err)
		os.Exit(1)
	}
}

func (app *app) run(ctx context.Context, args []string) error {
	var opts options
	flagSet := pflag.NewFlagSet("ticketctl", pflag.ContinueOnError)
	flagSet.SetOutput(app.stderr)
	flagSet.StringVar(&opts.backendURL, "backend", envOr("TICKETDESK_BACKEND_URL", defaultBackendURL), "base URL of the ticketing backend")
	flagSet.StringVar(&opts.tokenFile, "token-file", token.DefaultFilePath(), "path of the credentials file")
	flagSet.DurationVar(&opts.timeout, "timeout", 10*time.Second, "timeout of a single backend request")
	flagSet.BoolVarP(&opts.yes, "yes", "y", false, "do not ask for confirmation before deleting")
	flagSet.StringVar(&opts.email, "email", "", "email address to log in with (login)")
	flagSet.StringVar(&opts.title, "title", "", "title of the new ticket (create)")
	flagSet.StringVar(&opts.description, "description", "", "description of the new ticket (create)")
	flagSet.StringVar(&opts.priority, "priority", string(ticket.DefaultPriority), "priority of the new ticket (create)")
	flagSet.Usage = func() {
		app.usage(flagSet)
	}

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	rest := flagSet.Args()
	if len(rest) == 0 {
		app.usage(flagSet)
		return errUsage
	}

	client, err := backend.New(opts.backendURL, backend.WithTimeout(opts.timeout))
	if err != nil {
		return err
	}
	tokens := token.NewFile(opts.tokenFile)
	cmd := &command{
		app:    app,
		opts:   opts,
		tokens: tokens,
		client: client.WithTokens(tokens),
		styles: newStyles(app.stdout),
	}

	name, cmdArgs := rest[0], rest[1:]
	switch name {
	case "login":
		return cmd.login(ctx, cmdArgs)
	case "logout":
		return cmd.logout(ctx)
	case "whoami":
		return cmd.whoami(ctx)
	case "list":
		return cmd.list(ctx)
	case "show":
		return cmd.show(ctx, cmdArgs)
	case "create":
		return cmd.create(ctx)
	case "comment":
		return cmd.comment(ctx, cmdArgs)
	case "delete":
		return cmd.delete(ctx, cmdArgs)
	default:
		return fmt.Errorf("unknown command %q", name)
	}
}

func (app *app) usage(flagSet *pflag.FlagSet) {
	fmt.Fprint(app.stderr, `Usage: ticketctl [flags] <command> [arguments]

Commands:
  login [email]             log in and store the session token
  logout                    forget the session token
  whoami                    show the logged in user
  list                      list the visible tickets
  show <id>                 show a ticket and its comments
  create --title ...        create a ticket
  comment <id> <text...>    add a comment to a ticket
  delete <id>               delete a ticket

Flags:
`)
	fmt.Fprint(app.stderr, flagSet.FlagUsages())
}

// prompt writes the given label and reads one line of input
func (app *app) prompt(label string) (string, error) {
	fmt.Fprint(app.stderr, label)
	line, err := app.input.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (app *app) password() (string, error) {
	if app.readPassword != nil {
		return app.readPassword()
	}
	return app.prompt("Password: ")
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
