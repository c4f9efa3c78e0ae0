// Package backendtest provides an in-memory stand-in for the ticketing backend's HTTP API.
//
// The fake mirrors the observable behavior of the real service: OAuth2 password login issuing JWTs,
// role-scoped ticket visibility, admin-only deletion, FastAPI-style error bodies (string details for
// 401/403/404, lists of validation issues for 422) and 204 responses without body on deletion.
package backendtest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/skybi/ticketdesk/internal/ticket"
)

var signingKey = []byte("backendtest")

// Role is the role of a backend user
type Role string

const (
	RoleEmployee   Role = "Employé"
	RoleTechnician Role = "Technicien"
	RoleAdmin      Role = "Admin"
)

// User is a backend user able to log in
type User struct {
	ID       int64
	Email    string
	Password string
	Role     Role
}

type failure struct {
	status int
	body   string
}

// Server is the fake backend
type Server struct {
	*httptest.Server

	mtx      sync.Mutex
	users    map[string]*User
	tickets  map[int64]*ticket.Ticket
	comments map[int64][]ticket.Comment
	nextID   int64
	failures map[string]failure
	hits     map[string]int
	omitJWT  bool
}

// Default users every server starts with
var (
	Admin    = User{ID: 1, Email: "admin@example.com", Password: "admin", Role: RoleAdmin}
	Employee = User{ID: 2, Email: "jane@example.com", Password: "secret", Role: RoleEmployee}
)

// NewServer starts a new fake backend; close it using Close
func NewServer() *Server {
	server := &Server{
		users:    make(map[string]*User),
		tickets:  make(map[int64]*ticket.Ticket),
		comments: make(map[int64][]ticket.Comment),
		nextID:   1,
		failures: make(map[string]failure),
		hits:     make(map[string]int),
	}
	for _, user := range []User{Admin, Employee} {
		cpy := user
		server.users[cpy.Email] = &cpy
	}

	router := chi.NewRouter()
	router.Use(server.middlewareRecord)
	router.Get("/", func(writer http.ResponseWriter, _ *http.Request) {
		writeJSON(writer, http.StatusOK, map[string]string{"message": "Hello from the Ticketing System API!"})
	})
	router.Post("/token", server.handleToken)
	router.Get("/tickets", server.withUser(server.handleListTickets))
	router.Post("/tickets", server.withUser(server.handleCreateTicket))
	router.Get("/tickets/{id}", server.withUser(server.handleGetTicket))
	router.Delete("/tickets/{id}", server.withUser(server.handleDeleteTicket))
	router.Get("/tickets/{id}/comments", server.withUser(server.handleListComments))
	router.Post("/tickets/{id}/comments", server.withUser(server.handleAddComment))

	server.Server = httptest.NewServer(router)
	return server
}

// Token issues a valid session token for the given user without going through the login endpoint
func (server *Server) Token(user User) string {
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   user.Email,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(30 * time.Minute)),
	}).SignedString(signingKey)
	if err != nil {
		panic(err)
	}
	return raw
}

// OmitAccessToken makes successful logins respond without an access token
func (server *Server) OmitAccessToken() {
	server.mtx.Lock()
	defer server.mtx.Unlock()
	server.omitJWT = true
}

// Fail makes every subsequent request matching method and path fail with the given status and raw body
func (server *Server) Fail(method, path string, status int, body string) {
	server.mtx.Lock()
	defer server.mtx.Unlock()
	server.failures[method+" "+path] = failure{status: status, body: body}
}

// Hits returns how many requests matching method and path were received
func (server *Server) Hits(method, path string) int {
	server.mtx.Lock()
	defer server.mtx.Unlock()
	return server.hits[method+" "+path]
}

// Seed stores a ticket created by the given user and returns it
func (server *Server) Seed(creator User, title, description string, priority ticket.Priority) ticket.Ticket {
	server.mtx.Lock()
	defer server.mtx.Unlock()
	return *server.insertTicket(creator, title, description, priority)
}

// SeedComment stores a comment on a ticket and returns it
func (server *Server) SeedComment(creator User, ticketID int64, content string) ticket.Comment {
	server.mtx.Lock()
	defer server.mtx.Unlock()
	return server.insertComment(creator, ticketID, content)
}

// HasTicket returns whether a ticket with the given ID exists
func (server *Server) HasTicket(id int64) bool {
	server.mtx.Lock()
	defer server.mtx.Unlock()
	_, ok := server.tickets[id]
	return ok
}

func (server *Server) insertTicket(creator User, title, description string, priority ticket.Priority) *ticket.Ticket {
	now := ticket.Timestamp{Time: time.Now().UTC()}
	obj := &ticket.Ticket{
		ID:          server.nextID,
		Title:       title,
		Description: description,
		Status:      ticket.StatusOpen,
		Priority:    priority,
		CreatorID:   creator.ID,
		Created:     now,
		Updated:     now,
	}
	server.nextID++
	server.tickets[obj.ID] = obj
	return obj
}

func (server *Server) insertComment(creator User, ticketID int64, content string) ticket.Comment {
	obj := ticket.Comment{
		ID:        server.nextID,
		Content:   content,
		CreatorID: creator.ID,
		TicketID:  ticketID,
		Created:   ticket.Timestamp{Time: time.Now().UTC()},
	}
	server.nextID++
	server.comments[ticketID] = append(server.comments[ticketID], obj)
	return obj
}

func (server *Server) middlewareRecord(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		key := request.Method + " " + request.URL.Path
		server.mtx.Lock()
		server.hits[key]++
		fail, ok := server.failures[key]
		server.mtx.Unlock()
		if ok {
			writer.Header().Set("Content-Type", "application/json")
			writer.WriteHeader(fail.status)
			writer.Write([]byte(fail.body))
			return
		}
		next.ServeHTTP(writer, request)
	})
}

type userHandler func(writer http.ResponseWriter, request *http.Request, user *User)

func (server *Server) withUser(next userHandler) http.HandlerFunc {
	return func(writer http.ResponseWriter, request *http.Request) {
		header := request.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			writer.Header().Set("WWW-Authenticate", "Bearer")
			writeDetail(writer, http.StatusUnauthorized, "Not authenticated")
			return
		}
		claims := &jwt.RegisteredClaims{}
		_, err := jwt.ParseWithClaims(strings.TrimPrefix(header, "Bearer "), claims, func(*jwt.Token) (any, error) {
			return signingKey, nil
		})
		server.mtx.Lock()
		user, ok := server.users[claims.Subject]
		server.mtx.Unlock()
		if err != nil || !ok {
			writer.Header().Set("WWW-Authenticate", "Bearer")
			writeDetail(writer, http.StatusUnauthorized, "Could not validate credentials")
			return
		}
		next(writer, request, user)
	}
}

func (server *Server) handleToken(writer http.ResponseWriter, request *http.Request) {
	if err := request.ParseForm(); err != nil {
		writeDetail(writer, http.StatusUnprocessableEntity, "invalid form")
		return
	}
	server.mtx.Lock()
	user, ok := server.users[request.PostForm.Get("username")]
	omit := server.omitJWT
	server.mtx.Unlock()
	if !ok || user.Password != request.PostForm.Get("password") {
		writer.Header().Set("WWW-Authenticate", "Bearer")
		writeDetail(writer, http.StatusUnauthorized, "Incorrect email or password")
		return
	}
	if omit {
		writeJSON(writer, http.StatusOK, map[string]string{"token_type": "bearer"})
		return
	}
	writeJSON(writer, http.StatusOK, map[string]string{
		"access_token": server.Token(*user),
		"token_type":   "bearer",
	})
}

func (server *Server) canView(user *User, obj *ticket.Ticket) bool {
	switch user.Role {
	case RoleAdmin:
		return true
	case RoleTechnician:
		return obj.CreatorID == user.ID || (obj.TechnicianID != nil && *obj.TechnicianID == user.ID)
	default:
		return obj.CreatorID == user.ID
	}
}

func (server *Server) handleListTickets(writer http.ResponseWriter, _ *http.Request, user *User) {
	server.mtx.Lock()
	defer server.mtx.Unlock()

	visible := []ticket.Ticket{}
	for id := int64(1); id < server.nextID; id++ {
		if obj, ok := server.tickets[id]; ok && server.canView(user, obj) {
			visible = append(visible, *obj)
		}
	}
	writeJSON(writer, http.StatusOK, visible)
}

func (server *Server) handleCreateTicket(writer http.ResponseWriter, request *http.Request, user *User) {
	var payload struct {
		Title       *string `json:"title"`
		Description *string `json:"description"`
		Priority    *string `json:"priority"`
	}
	if err := json.NewDecoder(request.Body).Decode(&payload); err != nil {
		writeIssues(writer, issue{[]any{"body"}, "invalid JSON", "value_error.jsondecode"})
		return
	}
	var issues []issue
	if payload.Title == nil {
		issues = append(issues, issue{[]any{"body", "title"}, "field required", "value_error.missing"})
	}
	if payload.Description == nil {
		issues = append(issues, issue{[]any{"body", "description"}, "field required", "value_error.missing"})
	}
	priority := ticket.DefaultPriority
	if payload.Priority != nil {
		priority = ticket.Priority(*payload.Priority)
		if !priority.Valid() {
			issues = append(issues, issue{
				[]any{"body", "priority"},
				"value is not a valid enumeration member; permitted: 'Faible', 'Moyenne', 'Élevée', 'Critique'",
				"type_error.enum",
			})
		}
	}
	if len(issues) > 0 {
		writeIssues(writer, issues...)
		return
	}

	server.mtx.Lock()
	obj := *server.insertTicket(*user, *payload.Title, *payload.Description, priority)
	server.mtx.Unlock()
	writeJSON(writer, http.StatusCreated, obj)
}

// lookup resolves the ticket addressed by the request and checks the user may view it
func (server *Server) lookup(writer http.ResponseWriter, request *http.Request, user *User) (*ticket.Ticket, bool) {
	id, err := strconv.ParseInt(chi.URLParam(request, "id"), 10, 64)
	if err != nil {
		writeIssues(writer, issue{[]any{"path", "ticket_id"}, "value is not a valid integer", "type_error.integer"})
		return nil, false
	}
	server.mtx.Lock()
	obj, ok := server.tickets[id]
	server.mtx.Unlock()
	if !ok {
		writeDetail(writer, http.StatusNotFound, "Ticket not found")
		return nil, false
	}
	if !server.canView(user, obj) {
		writeDetail(writer, http.StatusForbidden, "Not authorized to view this ticket")
		return nil, false
	}
	return obj, true
}

func (server *Server) handleGetTicket(writer http.ResponseWriter, request *http.Request, user *User) {
	obj, ok := server.lookup(writer, request, user)
	if !ok {
		return
	}
	server.mtx.Lock()
	cpy := *obj
	server.mtx.Unlock()
	writeJSON(writer, http.StatusOK, cpy)
}

func (server *Server) handleDeleteTicket(writer http.ResponseWriter, request *http.Request, user *User) {
	if user.Role != RoleAdmin {
		writeDetail(writer, http.StatusForbidden, "Not authorized to delete tickets")
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(request, "id"), 10, 64)
	if err != nil {
		writeDetail(writer, http.StatusNotFound, "Ticket not found")
		return
	}
	server.mtx.Lock()
	defer server.mtx.Unlock()
	if _, ok := server.tickets[id]; !ok {
		writeDetail(writer, http.StatusNotFound, "Ticket not found")
		return
	}
	delete(server.tickets, id)
	delete(server.comments, id)
	writer.WriteHeader(http.StatusNoContent)
}

func (server *Server) handleListComments(writer http.ResponseWriter, request *http.Request, user *User) {
	obj, ok := server.lookup(writer, request, user)
	if !ok {
		return
	}
	server.mtx.Lock()
	comments := append([]ticket.Comment{}, server.comments[obj.ID]...)
	server.mtx.Unlock()
	writeJSON(writer, http.StatusOK, comments)
}

func (server *Server) handleAddComment(writer http.ResponseWriter, request *http.Request, user *User) {
	obj, ok := server.lookup(writer, request, user)
	if !ok {
		return
	}
	var payload struct {
		Content *string `json:"content"`
	}
	if err := json.NewDecoder(request.Body).Decode(&payload); err != nil || payload.Content == nil {
		writeIssues(writer, issue{[]any{"body", "content"}, "field required", "value_error.missing"})
		return
	}
	server.mtx.Lock()
	comment := server.insertComment(*user, obj.ID, *payload.Content)
	server.mtx.Unlock()
	writeJSON(writer, http.StatusCreated, comment)
}

type issue struct {
	Loc  []any  `json:"loc"`
	Msg  string `json:"msg"`
	Type string `json:"type"`
}

func writeIssues(writer http.ResponseWriter, issues ...issue) {
	writeJSON(writer, http.StatusUnprocessableEntity, map[string]any{"detail": issues})
}

func writeDetail(writer http.ResponseWriter, status int, detail string) {
	writeJSON(writer, status, map[string]string{"detail": detail})
}

func writeJSON(writer http.ResponseWriter, status int, value any) {
	encoded, err := json.Marshal(value)
	if err != nil {
		panic(fmt.Sprintf("backendtest: %v", err))
	}
	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(status)
	writer.Write(encoded)
}
