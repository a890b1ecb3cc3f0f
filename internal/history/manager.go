package history

import (
	"fmt"
	"time"

	"golang.org/x/net/html"

	"github.com/gohx/gohx/internal/dom"
)

// AttrHistoryElt marks the designated history root. Without it the
// body is the root: content outside the root is untouched by
// restoration.
const AttrHistoryElt = "hx-history-elt"

// Manager owns URL state and the snapshot cache. All methods are
// called from the engine's single-writer loop.
type Manager struct {
	doc   *dom.Document
	cache *Cache

	currentURL string
	back       []string
	forward    []string

	now func() time.Time
}

// NewManager creates a manager over a document. startURL is the URL
// the document was initially served from.
func NewManager(doc *dom.Document, capacity int, startURL string) *Manager {
	return &Manager{
		doc:        doc,
		cache:      NewCache(capacity),
		currentURL: startURL,
		now:        time.Now,
	}
}

// SetNowFunc substitutes the timestamp source (tests).
func (m *Manager) SetNowFunc(now func() time.Time) { m.now = now }

// CurrentURL returns the engine's notion of the browser URL.
func (m *Manager) CurrentURL() string { return m.currentURL }

// Cache exposes the snapshot cache for diagnostics and tests.
func (m *Manager) Cache() *Cache { return m.cache }

// Root returns the history root: the element bearing hx-history-elt,
// or the body.
func (m *Manager) Root() *html.Node {
	if n := dom.MustSelector("[" + AttrHistoryElt + "]").Query(m.doc.Root()); n != nil {
		return n
	}
	return m.doc.Body()
}

// Snapshot captures the history root's current content under the
// current URL. Called before a push navigation swaps the content away
// (or after, when the engine is configured for post-swap snapshots).
// A page declaring hx-history="false" anywhere is never cached.
func (m *Manager) Snapshot() error {
	if n := dom.MustSelector(`[hx-history=false]`).Query(m.doc.Root()); n != nil {
		return nil
	}
	root := m.Root()
	if root == nil {
		return fmt.Errorf("history snapshot: no history root in document")
	}
	content, err := dom.InnerHTML(root)
	if err != nil {
		return fmt.Errorf("history snapshot: %w", err)
	}
	return m.cache.Put(Entry{URL: m.currentURL, Content: content, SavedAt: m.now()})
}

// Navigate records a push (replace=false) or replace (replace=true)
// URL transition. Pushes append the departed URL to the back stack and
// clear the forward stack, mirroring browser semantics.
func (m *Manager) Navigate(url string, replace bool) {
	if url == "" || url == m.currentURL {
		m.currentURL = url
		return
	}
	if !replace {
		m.back = append(m.back, m.currentURL)
		m.forward = nil
	}
	m.currentURL = url
}

// Back pops the back stack. Returns false when there is nothing to go
// back to.
func (m *Manager) Back() (string, bool) {
	if len(m.back) == 0 {
		return "", false
	}
	url := m.back[len(m.back)-1]
	m.back = m.back[:len(m.back)-1]
	m.forward = append(m.forward, m.currentURL)
	m.currentURL = url
	return url, true
}

// Forward pops the forward stack.
func (m *Manager) Forward() (string, bool) {
	if len(m.forward) == 0 {
		return "", false
	}
	url := m.forward[len(m.forward)-1]
	m.forward = m.forward[:len(m.forward)-1]
	m.back = append(m.back, m.currentURL)
	m.currentURL = url
	return url, true
}

// Restore replaces the history root's content with the cached snapshot
// for the URL. Returns false on a cache miss; that is not an error,
// the defined fallback is a fresh request.
func (m *Manager) Restore(url string) (bool, error) {
	entry, ok := m.cache.Get(url)
	if !ok {
		return false, nil
	}
	root := m.Root()
	if root == nil {
		return false, fmt.Errorf("history restore: no history root in document")
	}
	nodes, err := dom.ParseFragment(entry.Content, root)
	if err != nil {
		return false, fmt.Errorf("history restore: %w", err)
	}
	dom.ReplaceChildren(root, nodes)
	return true, nil
}
