package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/skybi/ticketdesk/internal/backend"
	"github.com/skybi/ticketdesk/internal/page"
	"github.com/skybi/ticketdesk/internal/ticket"
	"github.com/skybi/ticketdesk/internal/token"
	"github.com/xeonx/timeago"
)

var errNotLoggedIn = errors.New("not logged in; run 'ticketctl login' first")

// command carries the dependencies shared by all commands
type command struct {
	*app
	opts   options
	tokens *token.File
	client *backend.Client
	styles styles
}

func (cmd *command) login(ctx context.Context, args []string) error {
	email := cmd.opts.email
	if email == "" && len(args) > 0 {
		email = args[0]
	}
	if email == "" {
		var err error
		if email, err = cmd.prompt("Email: "); err != nil {
			return err
		}
	}
	password, err := cmd.password()
	if err != nil {
		return fmt.Errorf("reading password: %w", err)
	}

	login := page.NewLogin(cmd.client, cmd.tokens)
	if err := login.Submit(ctx, strings.TrimSpace(email), password); err != nil {
		return err
	}
	view := login.View()
	if view.State == page.StateError {
		return errors.New(view.Error)
	}

	subject := view.Email
	if raw, err := cmd.tokens.Get(ctx); err == nil {
		if claims, err := token.Inspect(raw); err == nil && claims.Subject != "" {
			subject = claims.Subject
		}
	}
	fmt.Fprintln(cmd.stdout, cmd.styles.success.Render("Logged in as "+subject))
	fmt.Fprintln(cmd.stdout, cmd.styles.muted.Render("Session saved to "+cmd.tokens.Path()))
	return nil
}

func (cmd *command) logout(ctx context.Context) error {
	if err := page.NewTicketList(cmd.client, cmd.tokens).Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(cmd.stdout, "You have been logged out.")
	return nil
}

func (cmd *command) whoami(ctx context.Context) error {
	raw, err := cmd.tokens.Get(ctx)
	if err != nil {
		return err
	}
	if raw == "" {
		return errNotLoggedIn
	}
	claims, err := token.Inspect(raw)
	if err != nil {
		return fmt.Errorf("the stored session token is malformed: %w", err)
	}
	fmt.Fprintln(cmd.stdout, cmd.styles.title.Render(claims.Subject))
	if !claims.Expires.IsZero() {
		state := "expires"
		if claims.Expires.Before(time.Now()) {
			state = "expired"
		}
		fmt.Fprintf(cmd.stdout, "%s %s %s\n", cmd.styles.label.Render("Session"), state, timeago.English.Format(claims.Expires))
	}
	return nil
}

func (cmd *command) list(ctx context.Context) error {
	list := page.NewTicketList(cmd.client, cmd.tokens)
	if err := list.Mount(ctx); err != nil {
		return err
	}
	view := list.View()
	switch {
	case view.LoggedOut:
		return errors.New("Your session has expired. Please log in again.")
	case view.State == page.StateError:
		return errors.New(view.Error)
	case len(view.Tickets) == 0:
		fmt.Fprintln(cmd.stdout, "No tickets found.")
		return nil
	}

	for _, obj := range view.Tickets {
		fmt.Fprintf(cmd.stdout, "%s  %-9s %s  %s %s\n",
			cmd.styles.label.Render(fmt.Sprintf("#%-4d", obj.ID)),
			obj.Status,
			cmd.styles.priority(obj.Priority, fmt.Sprintf("%-8s", obj.Priority)),
			cmd.styles.title.Render(obj.Title),
			cmd.styles.muted.Render("("+timeago.English.Format(obj.Updated.Time)+")"),
		)
	}
	return nil
}

func (cmd *command) show(ctx context.Context, args []string) error {
	detail, err := cmd.mountDetail(ctx, args)
	if err != nil {
		return err
	}
	view := detail.View()
	obj := view.Ticket

	fmt.Fprintln(cmd.stdout, cmd.styles.title.Render(fmt.Sprintf("#%d %s", obj.ID, obj.Title)))
	cmd.field("Status", string(obj.Status))
	cmd.field("Priority", cmd.styles.priority(obj.Priority, string(obj.Priority)))
	cmd.field("Creator", fmt.Sprintf("#%d", obj.CreatorID))
	cmd.field("Assigned to", assignee(obj))
	cmd.field("Created", formatTimestamp(obj.Created))
	cmd.field("Updated", formatTimestamp(obj.Updated))
	if description := strings.TrimSpace(obj.Description); description != "" {
		fmt.Fprintf(cmd.stdout, "\n%s\n", description)
	}

	fmt.Fprintf(cmd.stdout, "\n%s\n", cmd.styles.title.Render("Comments"))
	if len(view.Comments) == 0 {
		fmt.Fprintln(cmd.stdout, cmd.styles.muted.Render("No comments yet."))
		return nil
	}
	for _, comment := range view.Comments {
		fmt.Fprintf(cmd.stdout, "%s %s\n",
			cmd.styles.label.Render(fmt.Sprintf("#%d", comment.CreatorID)),
			cmd.styles.muted.Render(timeago.English.Format(comment.Created.Time)),
		)
		fmt.Fprintf(cmd.stdout, "  %s\n", comment.Content)
	}
	return nil
}

func (cmd *command) create(ctx context.Context) error {
	create := page.NewTicketCreate(cmd.client)
	form := page.TicketForm{
		Title:       strings.TrimSpace(cmd.opts.title),
		Description: cmd.opts.description,
		Priority:    ticket.Priority(cmd.opts.priority),
	}
	if err := create.Submit(ctx, form); err != nil {
		return err
	}
	view := create.View()
	if view.State == page.StateError {
		return errors.New(view.Error)
	}
	fmt.Fprintln(cmd.stdout, cmd.styles.success.Render("Ticket created successfully!"))
	if view.Created != nil {
		fmt.Fprintf(cmd.stdout, "#%d %s\n", view.Created.ID, view.Created.Title)
	}
	return nil
}

func (cmd *command) comment(ctx context.Context, args []string) error {
	detail, err := cmd.mountDetail(ctx, args)
	if err != nil {
		return err
	}
	if err := detail.SubmitComment(ctx, strings.Join(args[1:], " ")); err != nil {
		return err
	}
	view := detail.View()
	if view.CommentError != "" {
		return errors.New(view.CommentError)
	}
	fmt.Fprintln(cmd.stdout, cmd.styles.success.Render(fmt.Sprintf("Comment added to ticket #%d.", view.ID)))
	return nil
}

func (cmd *command) delete(ctx context.Context, args []string) error {
	detail, err := cmd.mountDetail(ctx, args)
	if err != nil {
		return err
	}
	view := detail.View()
	if !cmd.opts.yes {
		answer, err := cmd.prompt(fmt.Sprintf("Delete ticket #%d %q? [y/N] ", view.ID, view.Ticket.Title))
		if err != nil {
			return err
		}
		if answer = strings.ToLower(strings.TrimSpace(answer)); answer != "y" && answer != "yes" {
			fmt.Fprintln(cmd.stdout, "Aborted.")
			return nil
		}
	}

	if err := detail.Delete(ctx); err != nil {
		return err
	}
	view = detail.View()
	if view.DeleteError != "" {
		return fmt.Errorf("Delete failed: %s", view.DeleteError)
	}
	fmt.Fprintln(cmd.stdout, cmd.styles.success.Render("Ticket deleted."))
	return nil
}

// mountDetail loads the ticket whose id is the first argument
func (cmd *command) mountDetail(ctx context.Context, args []string) (*page.TicketDetail, error) {
	if len(args) == 0 {
		return nil, errors.New("a ticket id is required")
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return nil, fmt.Errorf("invalid ticket id %q", args[0])
	}

	detail := page.NewTicketDetail(cmd.client)
	if err := detail.Mount(ctx, id); err != nil {
		return nil, err
	}
	if view := detail.View(); view.State == page.StateError {
		return nil, errors.New(view.Error)
	}
	return detail, nil
}

func (cmd *command) field(label, value string) {
	fmt.Fprintf(cmd.stdout, "%s %s\n", cmd.styles.label.Render(fmt.Sprintf("%-12s", label+":")), value)
}

func assignee(obj *ticket.Ticket) string {
	if !obj.Assigned() {
		return "None"
	}
	return fmt.Sprintf("#%d", *obj.TechnicianID)
}

func formatTimestamp(timestamp ticket.Timestamp) string {
	return fmt.Sprintf("%s (%s)", timestamp.Local().Format(time.DateTime), timeago.English.Format(timestamp.Time))
}
