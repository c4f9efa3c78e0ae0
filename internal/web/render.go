package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/skybi/ticketdesk/internal/ticket"
	"github.com/xeonx/timeago"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

//go:embed templates/*.html
var templatesFS embed.FS

//go:embed static
var staticFS embed.FS

// renderer renders pages into the base layout.
// Every page template defines a "content" block; the base template is cloned per render to keep them apart.
type renderer struct {
	base *template.Template
}

// PageData contains the data common to all pages
type PageData struct {
	Title   string
	Subject string
	Flash   *Flash
	Data    any
}

func newRenderer() (*renderer, error) {
	base, err := template.New("base").Funcs(templateFuncs()).ParseFS(templatesFS, "templates/base.html")
	if err != nil {
		return nil, fmt.Errorf("parse base template: %w", err)
	}
	return &renderer{base: base}, nil
}

// render renders the page template with the given name into a buffer
func (r *renderer) render(name string, data PageData) ([]byte, error) {
	tmpl, err := r.base.Clone()
	if err != nil {
		return nil, fmt.Errorf("clone template: %w", err)
	}
	if _, err := tmpl.ParseFS(templatesFS, "templates/"+name); err != nil {
		return nil, fmt.Errorf("parse page template %s: %w", name, err)
	}

	var buffer bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buffer, "base", data); err != nil {
		return nil, fmt.Errorf("execute page template %s: %w", name, err)
	}
	return buffer.Bytes(), nil
}

func staticHandler() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
}

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"markdown":      renderMarkdown,
		"timeago":       formatTimeAgo,
		"datetime":      formatDateTime,
		"assignee":      formatAssignee,
		"priorities":    ticket.Priorities,
		"priorityClass": priorityClass,
		"statusClass":   statusClass,
	}
}

var (
	markdown       goldmark.Markdown
	markdownPolicy *bluemonday.Policy
	markdownOnce   sync.Once
)

// renderMarkdown renders user-provided markdown into sanitized HTML
func renderMarkdown(source string) template.HTML {
	markdownOnce.Do(func() {
		markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))
		markdownPolicy = bluemonday.UGCPolicy()
	})
	var buffer bytes.Buffer
	if err := markdown.Convert([]byte(source), &buffer); err != nil {
		return template.HTML(template.HTMLEscapeString(source))
	}
	return template.HTML(markdownPolicy.SanitizeBytes(buffer.Bytes()))
}

func formatTimeAgo(timestamp ticket.Timestamp) string {
	if timestamp.IsZero() {
		return "-"
	}
	return timeago.English.Format(timestamp.Time)
}

func formatDateTime(timestamp ticket.Timestamp) string {
	if timestamp.IsZero() {
		return "-"
	}
	return timestamp.Local().Format(time.DateTime)
}

func formatAssignee(obj *ticket.Ticket) string {
	if obj == nil || !obj.Assigned() {
		return "None"
	}
	return "#" + strconv.FormatInt(*obj.TechnicianID, 10)
}

func priorityClass(priority ticket.Priority) string {
	switch priority {
	case ticket.PriorityLow:
		return "priority-low"
	case ticket.PriorityMedium:
		return "priority-medium"
	case ticket.PriorityHigh:
		return "priority-high"
	case ticket.PriorityCritical:
		return "priority-critical"
	default:
		return "priority-unknown"
	}
}

func statusClass(status ticket.Status) string {
	switch status {
	case ticket.StatusOpen:
		return "status-open"
	case ticket.StatusInProgress:
		return "status-progress"
	case ticket.StatusResolved:
		return "status-resolved"
	case ticket.StatusClosed:
		return "status-closed"
	default:
		return "status-unknown"
	}
}
