// Package demo serves a small hypermedia contact list used by the CLI
// demo command and the end-to-end tests. Handlers branch on HX-Request
// to return fragments for engine-driven requests and full pages
// otherwise, the way a production hypermedia backend would.
package demo

import (
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Contact is one demo record.
type Contact struct {
	ID   int
	Name string
}

// Server holds the in-memory contact state behind a chi router.
type Server struct {
	mu       sync.Mutex
	contacts map[int]Contact
	nextID   int

	router chi.Router
}

// NewServer creates a demo server seeded with a few contacts.
func NewServer() *Server {
	s := &Server{
		contacts: make(map[int]Contact),
		nextID:   1,
	}
	for _, name := range []string{"Ada Lovelace", "Grace Hopper"} {
		s.contacts[s.nextID] = Contact{ID: s.nextID, Name: name}
		s.nextID++
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/", s.handleIndex)
	r.Get("/contacts", s.handleList)
	r.Post("/contacts", s.handleCreate)
	r.Delete("/contacts/{id}", s.handleDelete)
	r.Get("/contacts/count", s.handleCount)
	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func isEngineRequest(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, `<html><head><title>contacts</title></head><body>
<div id="app" hx-history-elt>
  <form id="add" hx-post="/contacts" hx-target="#contact-list" hx-swap="beforeend">
    <input name="name" placeholder="name">
    <button type="submit">add</button>
  </form>
  <ul id="contact-list" hx-get="/contacts" hx-trigger="contacts-changed from:document">%s</ul>
  <span id="contact-count" hx-get="/contacts/count" hx-trigger="contacts-changed from:document">%s</span>
</div>
</body></html>`, s.renderList(), s.renderCount())
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if !isEngineRequest(r) {
		s.handleIndex(w, r)
		return
	}
	fmt.Fprint(w, s.renderList())
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	name := strings.TrimSpace(r.PostFormValue("name"))
	if name == "" {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusUnprocessableEntity)
		fmt.Fprint(w, `<li class="error">name is required</li>`)
		return
	}

	s.mu.Lock()
	c := Contact{ID: s.nextID, Name: name}
	s.contacts[c.ID] = c
	s.nextID++
	s.mu.Unlock()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("HX-Trigger", "contacts-changed")
	fmt.Fprint(w, renderContact(c))
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "bad id", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	_, ok := s.contacts[id]
	delete(s.contacts, id)
	s.mu.Unlock()

	if !ok {
		http.Error(w, "no such contact", http.StatusNotFound)
		return
	}
	w.Header().Set("HX-Trigger", "contacts-changed")
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleCount(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, s.renderCount())
}

func (s *Server) renderList() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]int, 0, len(s.contacts))
	for id := range s.contacts {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	var b strings.Builder
	for _, id := range ids {
		b.WriteString(renderContact(s.contacts[id]))
	}
	return b.String()
}

func (s *Server) renderCount() string {
	s.mu.Lock()
	n := len(s.contacts)
	s.mu.Unlock()
	return fmt.Sprintf("%d contacts", n)
}

func renderContact(c Contact) string {
	return fmt.Sprintf(`<li id="contact-%d">%s <button hx-delete="/contacts/%d" hx-target="#contact-%d" hx-swap="outerHTML">x</button></li>`,
		c.ID, c.Name, c.ID, c.ID)
}
