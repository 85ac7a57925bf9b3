package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/jmcleod/eventdesk/dialog"
	"github.com/jmcleod/eventdesk/model"
	"github.com/jmcleod/eventdesk/views"
)

// Prompter asks the user for one line of input.
type Prompter interface {
	Input(ctx context.Context, title string, secret bool) (string, error)
}

var (
	// ErrQuit is returned by Exec when the user asks to leave.
	ErrQuit = errors.New("quit")
	// ErrUnknownCommand is returned by Exec for a line naming no command.
	ErrUnknownCommand = errors.New("unknown command, type help")
)

type command struct {
	name  string
	usage string
	help  string
	run   func(ctx context.Context, args []string) error
}

// Shell is a line-oriented front end for the App.
type Shell struct {
	app      *App
	in       *bufio.Scanner
	out      io.Writer
	prompter Prompter
	commands []command
}

// NewShell reads commands from in and writes to out. A nil prompter reads
// form answers as plain lines from in. A prompter reading the same input
// must be built on the same dialog.LineReader.
func NewShell(a *App, in io.Reader, out io.Writer, prompter Prompter) *Shell {
	s := &Shell{
		app: a,
		in:  bufio.NewScanner(dialog.NewLineReader(in)),
		out: out,
	}
	s.prompter = prompter
	if s.prompter == nil {
		s.prompter = s
	}
	s.commands = []command{
		{"open", "open <path>", "navigate to a page", s.cmdOpen},
		{"back", "back", "go to the previous page", s.cmdBack},
		{"forward", "forward", "go to the next page", s.cmdForward},
		{"login", "login <email>", "sign in", s.cmdLogin},
		{"register", "register", "create a guest account", s.cmdRegister},
		{"logout", "logout", "sign out", s.cmdLogout},
		{"filter", "filter [category|all] [search...]", "narrow the events page", s.cmdFilter},
		{"join", "join <event-id>", "register for an event", s.cmdJoin},
		{"leave", "leave <event-id>", "cancel a registration", s.cmdLeave},
		{"create", "create", "create an event (admin)", s.cmdCreate},
		{"edit", "edit <event-id>", "edit an event (admin)", s.cmdEdit},
		{"delete", "delete <event-id>", "delete an event (admin)", s.cmdDelete},
		{"whoami", "whoami", "show the current session", s.cmdWhoami},
		{"routes", "routes", "list registered pages", s.cmdRoutes},
		{"help", "help", "show this help", s.cmdHelp},
		{"quit", "quit", "leave the shell", func(context.Context, []string) error { return ErrQuit }},
	}
	return s
}

// Run boots the app and executes commands until quit, end of input or
// context cancellation.
func (s *Shell) Run(ctx context.Context) error {
	s.app.Boot(ctx)
	for {
		if ctx.Err() != nil {
			return nil
		}
		fmt.Fprint(s.out, "eventdesk> ")
		if !s.in.Scan() {
			fmt.Fprintln(s.out)
			return s.in.Err()
		}
		if err := s.Exec(ctx, s.in.Text()); err != nil {
			if errors.Is(err, ErrQuit) {
				return nil
			}
			fmt.Fprintf(s.out, "error: %v\n", err)
		}
	}
}

// Exec runs one command line. Action failures are reported to the user by
// the App; Exec only returns usage errors and ErrQuit.
func (s *Shell) Exec(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	name := strings.ToLower(fields[0])
	if name == "exit" {
		name = "quit"
	}
	for _, c := range s.commands {
		if c.name == name {
			return c.run(ctx, fields[1:])
		}
	}
	// the line may be a misplaced password, so it is never echoed
	return ErrUnknownCommand
}

// Input reads one line from the shell's input.
func (s *Shell) Input(_ context.Context, title string, _ bool) (string, error) {
	fmt.Fprintf(s.out, "%s: ", title)
	if !s.in.Scan() {
		if err := s.in.Err(); err != nil {
			return "", err
		}
		return "", io.ErrUnexpectedEOF
	}
	return strings.TrimSpace(s.in.Text()), nil
}

func (s *Shell) ask(ctx context.Context, title, current string) (string, error) {
	if current != "" {
		title = fmt.Sprintf("%s [%s]", title, current)
	}
	v, err := s.prompter.Input(ctx, title, false)
	if err != nil {
		return "", err
	}
	if v == "" {
		return current, nil
	}
	return v, nil
}

func oneArg(args []string, usage string) (string, error) {
	if len(args) != 1 {
		return "", fmt.Errorf("usage: %s", usage)
	}
	return args[0], nil
}

func (s *Shell) cmdOpen(ctx context.Context, args []string) error {
	path, err := oneArg(args, "open <path>")
	if err != nil {
		return err
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	s.app.Open(ctx, path)
	return nil
}

func (s *Shell) cmdBack(ctx context.Context, _ []string) error {
	s.app.Back(ctx)
	return nil
}

func (s *Shell) cmdForward(ctx context.Context, _ []string) error {
	s.app.Forward(ctx)
	return nil
}

func (s *Shell) cmdLogin(ctx context.Context, args []string) error {
	email, err := oneArg(args, "login <email>")
	if err != nil {
		return err
	}
	password, err := s.prompter.Input(ctx, "Password", true)
	if err != nil {
		return err
	}
	_ = s.app.Login(ctx, email, Seal([]byte(password)))
	return nil
}

func (s *Shell) cmdRegister(ctx context.Context, _ []string) error {
	var form RegisterForm
	var err error
	if form.FullName, err = s.prompter.Input(ctx, "Full name", false); err != nil {
		return err
	}
	if form.Email, err = s.prompter.Input(ctx, "Email", false); err != nil {
		return err
	}
	password, err := s.prompter.Input(ctx, "Password", true)
	if err != nil {
		return err
	}
	confirm, err := s.prompter.Input(ctx, "Confirm password", true)
	if err != nil {
		return err
	}
	form.Password = Seal([]byte(password))
	form.Confirm = Seal([]byte(confirm))
	_ = s.app.Register(ctx, form)
	return nil
}

func (s *Shell) cmdLogout(ctx context.Context, _ []string) error {
	_ = s.app.Logout(ctx)
	return nil
}

func (s *Shell) cmdFilter(ctx context.Context, args []string) error {
	var f views.Filter
	if len(args) > 0 {
		switch c := model.Category(strings.ToLower(args[0])); {
		case c == "all":
			args = args[1:]
		case c.Valid():
			f.Category = c
			args = args[1:]
		}
	}
	f.Search = strings.Join(args, " ")
	s.app.Filter(ctx, f)
	return nil
}

func (s *Shell) cmdJoin(ctx context.Context, args []string) error {
	id, err := oneArg(args, "join <event-id>")
	if err != nil {
		return err
	}
	_ = s.app.Join(ctx, id)
	return nil
}

func (s *Shell) cmdLeave(ctx context.Context, args []string) error {
	id, err := oneArg(args, "leave <event-id>")
	if err != nil {
		return err
	}
	_ = s.app.Leave(ctx, id)
	return nil
}

// eventForm asks for every editable field, offering cur's values as
// defaults.
func (s *Shell) eventForm(ctx context.Context, cur model.Event, withStatus bool) (model.EventInput, error) {
	var in model.EventInput
	var err error
	if in.Name, err = s.ask(ctx, "Name", cur.Name); err != nil {
		return in, err
	}
	if in.Description, err = s.ask(ctx, "Description", cur.Description); err != nil {
		return in, err
	}
	if in.Date, err = s.ask(ctx, "Date (YYYY-MM-DD)", cur.Date); err != nil {
		return in, err
	}
	cats := make([]string, len(model.Categories))
	for i, c := range model.Categories {
		cats[i] = string(c)
	}
	category, err := s.ask(ctx, "Category ("+strings.Join(cats, "/")+")", string(cur.Category))
	if err != nil {
		return in, err
	}
	in.Category = model.Category(strings.ToLower(category))
	if in.Location, err = s.ask(ctx, "Location", cur.Location); err != nil {
		return in, err
	}
	capDefault := ""
	if cur.MaxCapacity > 0 {
		capDefault = strconv.Itoa(cur.MaxCapacity)
	}
	capacity, err := s.ask(ctx, "Max capacity", capDefault)
	if err != nil {
		return in, err
	}
	// a non-number leaves 0, which the capacity check rejects
	in.MaxCapacity, _ = strconv.Atoi(capacity)
	if withStatus {
		status, err := s.ask(ctx, "Status (active/cancelled)", string(cur.Status))
		if err != nil {
			return in, err
		}
		in.Status = model.Status(strings.ToLower(status))
	}
	return in, nil
}

func (s *Shell) cmdCreate(ctx context.Context, _ []string) error {
	in, err := s.eventForm(ctx, model.Event{}, false)
	if err != nil {
		return err
	}
	_, _ = s.app.CreateEvent(ctx, in)
	return nil
}

func (s *Shell) cmdEdit(ctx context.Context, args []string) error {
	id, err := oneArg(args, "edit <event-id>")
	if err != nil {
		return err
	}
	cur, err := s.app.Event(ctx, id)
	if err != nil {
		// already shown to the user
		return nil
	}
	in, err := s.eventForm(ctx, cur, true)
	if err != nil {
		return err
	}
	_, _ = s.app.UpdateEvent(ctx, id, in)
	return nil
}

func (s *Shell) cmdDelete(ctx context.Context, args []string) error {
	id, err := oneArg(args, "delete <event-id>")
	if err != nil {
		return err
	}
	_ = s.app.DeleteEvent(ctx, id)
	return nil
}

func (s *Shell) cmdWhoami(_ context.Context, _ []string) error {
	sess, ok := s.app.Session()
	if !ok {
		fmt.Fprintln(s.out, "not signed in")
	} else {
		fmt.Fprintf(s.out, "%s <%s> role=%s since %s\n",
			sess.FullName, sess.Email, sess.Role, sess.LoginTime.Format("2006-01-02 15:04"))
	}
	fmt.Fprintf(s.out, "location: %s\n", s.app.history.Location())
	return nil
}

func (s *Shell) cmdRoutes(_ context.Context, _ []string) error {
	for _, p := range s.app.router.Routes() {
		fmt.Fprintln(s.out, p)
	}
	return nil
}

func (s *Shell) cmdHelp(_ context.Context, _ []string) error {
	for _, c := range s.commands {
		fmt.Fprintf(s.out, "  %-36s %s\n", c.usage, c.help)
	}
	return nil
}
