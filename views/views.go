// Package views renders the application's pages to a terminal. Each page is
// a route.RenderFunc that repaints the whole view from the current session
// and backend data.
package views

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/jmcleod/eventdesk/model"
	"github.com/jmcleod/eventdesk/route"
	"github.com/jmcleod/eventdesk/session"
)

const (
	PathLogin    = "/login"
	PathRegister = "/register"
	PathEvents   = "/events"
	PathMyEvents = "/my-events"
	PathAdmin    = "/admin"
)

const (
	descriptionLimit = 100
	barWidth         = 20
	displayDate      = "January 2, 2006"
)

// Source supplies the data the pages show.
type Source interface {
	ListEvents(ctx context.Context) ([]model.Event, error)
	UserEvents(ctx context.Context) ([]model.Event, error)
}

// SessionReader is the read side of the session store.
type SessionReader interface {
	Read() (session.Session, bool)
}

// Registrar accepts render callbacks by path.
type Registrar interface {
	Register(path string, fn route.RenderFunc)
}

// Filter narrows the events page.
type Filter struct {
	// Category limits the list to one category; empty shows all.
	Category model.Category
	// Search matches name, description or location, case-insensitively.
	Search string
}

func (f Filter) match(ev model.Event) bool {
	if f.Category != "" && ev.Category != f.Category {
		return false
	}
	if f.Search == "" {
		return true
	}
	term := strings.ToLower(f.Search)
	return strings.Contains(strings.ToLower(ev.Name), term) ||
		strings.Contains(strings.ToLower(ev.Description), term) ||
		strings.Contains(strings.ToLower(ev.Location), term)
}

// Views renders pages to one writer.
type Views struct {
	out      io.Writer
	source   Source
	sessions SessionReader
	styles   Styles
	now      func() time.Time
	logger   *slog.Logger

	mu     sync.Mutex
	filter Filter
}

// Option configures Views.
type Option func(*Views)

// WithClock overrides the clock used for badges.
func WithClock(now func() time.Time) Option {
	return func(v *Views) {
		v.now = now
	}
}

// WithLogger sets the logger for data loading failures.
func WithLogger(logger *slog.Logger) Option {
	return func(v *Views) {
		v.logger = logger
	}
}

// WithStyles replaces the default styles.
func WithStyles(s Styles) Option {
	return func(v *Views) {
		v.styles = s
	}
}

// New creates views writing to out.
func New(out io.Writer, source Source, sessions SessionReader, opts ...Option) *Views {
	v := &Views{
		out:      out,
		source:   source,
		sessions: sessions,
		styles:   DefaultStyles(lipgloss.NewRenderer(out)),
		now:      time.Now,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(v)
	}
	v.logger = v.logger.With("component", "views")
	return v
}

// RegisterAll registers every page with r.
func (v *Views) RegisterAll(r Registrar) {
	r.Register(PathLogin, v.Login)
	r.Register(PathRegister, v.Register)
	r.Register(PathEvents, v.Events)
	r.Register(PathMyEvents, v.MyEvents)
	r.Register(PathAdmin, v.Admin)
}

// SetFilter changes the filter applied by the events page.
func (v *Views) SetFilter(f Filter) {
	v.mu.Lock()
	v.filter = f
	v.mu.Unlock()
}

// Filter returns the current events filter.
func (v *Views) Filter() Filter {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.filter
}

func (v *Views) paint(s string) {
	fmt.Fprintln(v.out, s)
}

func (v *Views) Login(context.Context) {
	var b strings.Builder
	b.WriteString(v.styles.Brand.Render("EventApp") + "\n\n")
	b.WriteString(v.styles.Title.Render("Welcome Back") + "\n")
	b.WriteString(v.styles.Subtitle.Render("Sign in to manage your events") + "\n\n")
	b.WriteString(v.styles.Hint.Render("login <email>          sign in"))
	b.WriteString("\n")
	b.WriteString(v.styles.Hint.Render("open /register         create an account"))
	v.paint(b.String())
}

func (v *Views) Register(context.Context) {
	var b strings.Builder
	b.WriteString(v.styles.Brand.Render("EventApp") + "\n\n")
	b.WriteString(v.styles.Title.Render("Create Account") + "\n")
	b.WriteString(v.styles.Subtitle.Render("Join to discover and register for events") + "\n\n")
	b.WriteString(v.styles.Hint.Render("register               full name, email and password (min 6 characters)"))
	b.WriteString("\n")
	b.WriteString(v.styles.Hint.Render("open /login            back to sign in"))
	v.paint(b.String())
}

func (v *Views) Events(ctx context.Context) {
	sess, _ := v.sessions.Read()
	var b strings.Builder
	b.WriteString(v.Navbar(sess, PathEvents) + "\n\n")
	b.WriteString(v.styles.Title.Render("Discover Events") + "\n")
	b.WriteString(v.styles.Subtitle.Render("Browse and register for upcoming events") + "\n")
	b.WriteString(v.renderFilter(v.Filter()) + "\n\n")

	events, err := v.source.ListEvents(ctx)
	if err != nil {
		v.logger.Error("loading events failed", "error", err)
		b.WriteString(v.styles.Error.Render("Failed to load events"))
		v.paint(b.String())
		return
	}

	f := v.Filter()
	var shown []model.Event
	for _, ev := range events {
		if ev.IsActive() && f.match(ev) {
			shown = append(shown, ev)
		}
	}
	if len(shown) == 0 {
		b.WriteString(v.styles.Muted.Render("No events found"))
		v.paint(b.String())
		return
	}
	now := v.now()
	for _, ev := range shown {
		b.WriteString(v.EventCard(ev, now, v.joinAction(ev)) + "\n")
	}
	v.paint(strings.TrimRight(b.String(), "\n"))
}

func (v *Views) MyEvents(ctx context.Context) {
	sess, _ := v.sessions.Read()
	var b strings.Builder
	b.WriteString(v.Navbar(sess, PathMyEvents) + "\n\n")
	b.WriteString(v.styles.Title.Render("My Events") + "\n")
	b.WriteString(v.styles.Subtitle.Render("Events you are registered for") + "\n\n")

	events, err := v.source.UserEvents(ctx)
	if err != nil {
		v.logger.Error("loading registrations failed", "error", err)
		b.WriteString(v.styles.Error.Render("Failed to load your events"))
		v.paint(b.String())
		return
	}
	if len(events) == 0 {
		b.WriteString(v.styles.Muted.Render("You haven't registered for any events yet") + "\n")
		b.WriteString(v.styles.Hint.Render("open /events to browse"))
		v.paint(b.String())
		return
	}
	now := v.now()
	for _, ev := range events {
		b.WriteString(v.EventCard(ev, now, "leave "+ev.ID) + "\n")
	}
	v.paint(strings.TrimRight(b.String(), "\n"))
}

// Stats summarises events for the admin page.
type Stats struct {
	Total     int
	Active    int
	Attendees int
}

// Summarize counts events, active events and attendees.
func Summarize(events []model.Event) Stats {
	var s Stats
	for _, ev := range events {
		s.Total++
		if ev.IsActive() {
			s.Active++
		}
		s.Attendees += ev.CurrentAttendees
	}
	return s
}

func (v *Views) Admin(ctx context.Context) {
	sess, _ := v.sessions.Read()
	var b strings.Builder
	b.WriteString(v.Navbar(sess, PathAdmin) + "\n\n")
	b.WriteString(v.styles.Title.Render("Admin Dashboard") + "\n")
	b.WriteString(v.styles.Subtitle.Render("Manage events and track registrations") + "\n\n")

	events, err := v.source.ListEvents(ctx)
	if err != nil {
		v.logger.Error("loading events failed", "error", err)
		b.WriteString(v.styles.Error.Render("Failed to load events"))
		v.paint(b.String())
		return
	}

	s := Summarize(events)
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		v.styles.Stat.Render(fmt.Sprintf("Total Events\n%d", s.Total)),
		v.styles.Stat.Render(fmt.Sprintf("Active Events\n%d", s.Active)),
		v.styles.Stat.Render(fmt.Sprintf("Total Attendees\n%d", s.Attendees)),
	) + "\n\n")

	if len(events) == 0 {
		b.WriteString(v.styles.Muted.Render("No events found") + "\n")
	} else {
		t := table.New().
			Border(lipgloss.NormalBorder()).
			Headers("ID", "NAME", "DATE", "CATEGORY", "ATTENDEES", "STATUS")
		for _, ev := range events {
			status := string(ev.Status)
			if ev.IsFull() {
				status = string(model.BadgeFull)
			}
			t.Row(ev.ID, ev.Name, ev.Date, string(ev.Category),
				fmt.Sprintf("%d/%d", ev.CurrentAttendees, ev.MaxCapacity), status)
		}
		b.WriteString(t.Render() + "\n")
	}
	b.WriteString(v.styles.Hint.Render("create | edit <id> | delete <id>"))
	v.paint(b.String())
}

// Navbar renders the top bar for sess with active highlighted. The admin
// link is only shown to administrators.
func (v *Views) Navbar(sess session.Session, active string) string {
	links := []struct{ path, label string }{
		{PathEvents, "Browse Events"},
		{PathMyEvents, "My Events"},
	}
	if sess.IsAdmin() {
		links = append(links, struct{ path, label string }{PathAdmin, "Admin Dashboard"})
	}
	parts := []string{v.styles.Brand.Render("EventApp")}
	for _, l := range links {
		style := v.styles.NavLink
		if l.path == active {
			style = v.styles.NavActive
		}
		parts = append(parts, style.Render(l.label))
	}
	role := string(sess.Role)
	if role == "" {
		role = string(session.RoleGuest)
	}
	user := fmt.Sprintf("%s (%s)", sess.FullName, role)
	parts = append(parts, v.styles.Muted.Render(user), v.styles.Hint.Render("logout"))
	return strings.Join(parts, "  ")
}

func (v *Views) renderFilter(f Filter) string {
	cats := []string{"all"}
	for _, c := range model.Categories {
		cats = append(cats, string(c))
	}
	selected := "all"
	if f.Category != "" {
		selected = string(f.Category)
	}
	for i, c := range cats {
		if c == selected {
			cats[i] = v.styles.NavActive.Render(c)
		} else {
			cats[i] = v.styles.NavLink.Render(c)
		}
	}
	line := "Category: " + strings.Join(cats, " ")
	if f.Search != "" {
		line += "  Search: " + f.Search
	}
	return v.styles.Muted.Render(line)
}

func (v *Views) joinAction(ev model.Event) string {
	if ev.IsFull() {
		return "Event Full"
	}
	return "join " + ev.ID
}

// EventCard renders one event with its badge, capacity bar and action hint.
func (v *Views) EventCard(ev model.Event, now time.Time, action string) string {
	header := v.styles.Category.Render(string(ev.Category))
	if badge := ev.BadgeAt(now); badge != model.BadgeNone {
		header += " " + v.styles.Badges[badge].Render(string(badge))
	}

	date := ev.Date
	if day := ev.Day(); !day.IsZero() {
		date = day.Format(displayDate)
	}

	lines := []string{
		header,
		v.styles.Title.Render(ev.Name),
		truncate(ev.Description, descriptionLimit),
		"",
		"Date:      " + date,
		"Location:  " + ev.Location,
		fmt.Sprintf("Attendees: %d/%d attendees", ev.CurrentAttendees, ev.MaxCapacity),
		v.capacityBar(ev.CapacityPercent()) + fmt.Sprintf(" %d%% capacity", ev.CapacityPercent()),
		"",
		v.styles.Hint.Render(action),
	}
	return v.styles.Card.Render(strings.Join(lines, "\n"))
}

func (v *Views) capacityBar(percent int) string {
	filled := min(barWidth, max(0, percent*barWidth/100))
	style := v.styles.BarLow
	switch {
	case percent >= 90:
		style = v.styles.BarHigh
	case percent >= 70:
		style = v.styles.BarMid
	}
	return "[" + style.Render(strings.Repeat("█", filled)) + strings.Repeat("░", barWidth-filled) + "]"
}

func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit]) + "..."
}
