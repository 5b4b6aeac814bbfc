package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"gopkg.in/yaml.v3"
)

// Todo outcomes recorded for closed issues.
const (
	OutcomeCompleted = TodoCompleted
	OutcomeCancelled = TodoCancelled
)

// Mapping is todosync's persisted correspondence between sessions, todos,
// and tracker issues. Only its methods mutate the maps; callers load it,
// change it through one reconciliation pass, and hand it back to a store.
type Mapping struct {
	// Sessions maps a session ID to the ID of that session's epic.
	Sessions map[string]string `json:"sessions" yaml:"sessions"`
	// Todos maps a session ID to its ordered todo ID -> issue ID links.
	Todos map[string]*Links `json:"todos" yaml:"todos"`
	// Outcomes maps a session ID to todo ID -> completed|cancelled for
	// todos whose issue was closed.
	Outcomes map[string]map[string]string `json:"outcomes,omitempty" yaml:"outcomes,omitempty"`
	// LastSync is the epoch milliseconds of the last save.
	LastSync int64 `json:"lastSync" yaml:"lastSync"`
}

// Link is one recorded todo ID -> issue ID pair.
type Link struct {
	TodoID  string
	IssueID string
}

// NewMapping returns an empty Mapping.
func NewMapping() *Mapping {
	return &Mapping{
		Sessions: make(map[string]string),
		Todos:    make(map[string]*Links),
		Outcomes: make(map[string]map[string]string),
	}
}

// Normalize replaces nil maps left by decoding with empty ones.
func (m *Mapping) Normalize() {
	if m.Sessions == nil {
		m.Sessions = make(map[string]string)
	}
	if m.Todos == nil {
		m.Todos = make(map[string]*Links)
	}
	if m.Outcomes == nil {
		m.Outcomes = make(map[string]map[string]string)
	}
	for s, l := range m.Todos {
		if l == nil {
			m.Todos[s] = &Links{}
		}
	}
}

// Epic returns the epic issue ID recorded for sessionID.
func (m *Mapping) Epic(sessionID string) (string, bool) {
	id, ok := m.Sessions[sessionID]
	return id, ok && id != ""
}

// SetEpic records a new epic for sessionID. Previously recorded todo links
// and outcomes of the session are dropped because they belonged to the old
// epic.
func (m *Mapping) SetEpic(sessionID, issueID string) {
	m.Normalize()
	m.Sessions[sessionID] = issueID
	m.Todos[sessionID] = &Links{}
	delete(m.Outcomes, sessionID)
}

// Issue returns the issue ID linked to todoID within sessionID.
func (m *Mapping) Issue(sessionID, todoID string) (string, bool) {
	l, ok := m.Todos[sessionID]
	if !ok || l == nil {
		return "", false
	}
	return l.Get(todoID)
}

// Link records issueID for todoID within sessionID.
func (m *Mapping) Link(sessionID, todoID, issueID string) {
	m.Normalize()
	l, ok := m.Todos[sessionID]
	if !ok {
		l = &Links{}
		m.Todos[sessionID] = l
	}
	l.Set(todoID, issueID)
}

// Unlink removes the todoID link and its outcome from sessionID.
func (m *Mapping) Unlink(sessionID, todoID string) {
	if l, ok := m.Todos[sessionID]; ok && l != nil {
		l.Delete(todoID)
	}
	m.SetOutcome(sessionID, todoID, "")
}

// Links returns the session's links in insertion order.
func (m *Mapping) Links(sessionID string) []Link {
	l, ok := m.Todos[sessionID]
	if !ok || l == nil {
		return nil
	}
	return l.Entries()
}

// Outcome returns the recorded outcome of todoID, or "" if none.
func (m *Mapping) Outcome(sessionID, todoID string) string {
	return m.Outcomes[sessionID][todoID]
}

// SetOutcome records how todoID ended. An empty outcome clears the record.
func (m *Mapping) SetOutcome(sessionID, todoID, outcome string) {
	if outcome == "" {
		if o, ok := m.Outcomes[sessionID]; ok {
			delete(o, todoID)
			if len(o) == 0 {
				delete(m.Outcomes, sessionID)
			}
		}
		return
	}
	m.Normalize()
	o, ok := m.Outcomes[sessionID]
	if !ok {
		o = make(map[string]string)
		m.Outcomes[sessionID] = o
	}
	o[todoID] = outcome
}

// SessionIDs returns all recorded session IDs, sorted.
func (m *Mapping) SessionIDs() []string {
	ids := make([]string, 0, len(m.Sessions))
	for id := range m.Sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Touch sets LastSync to t.
func (m *Mapping) Touch(t time.Time) {
	m.LastSync = t.UnixMilli()
}

// Links is an insertion-ordered todo ID -> issue ID map. The zero value is
// ready to use. It encodes as a plain JSON or YAML object whose key order is
// the insertion order.
type Links struct {
	order []string
	ids   map[string]string
}

// Get returns the issue ID linked to todoID.
func (l *Links) Get(todoID string) (string, bool) {
	id, ok := l.ids[todoID]
	return id, ok
}

// Set links todoID to issueID. An existing todo keeps its position.
func (l *Links) Set(todoID, issueID string) {
	if l.ids == nil {
		l.ids = make(map[string]string)
	}
	if _, ok := l.ids[todoID]; !ok {
		l.order = append(l.order, todoID)
	}
	l.ids[todoID] = issueID
}

// Delete removes todoID and reports whether it was present.
func (l *Links) Delete(todoID string) bool {
	if _, ok := l.ids[todoID]; !ok {
		return false
	}
	delete(l.ids, todoID)
	for i, id := range l.order {
		if id == todoID {
			l.order = append(l.order[:i], l.order[i+1:]...)
			break
		}
	}
	return true
}

// Len returns the number of links.
func (l *Links) Len() int {
	return len(l.order)
}

// Entries returns a copy of the links in insertion order.
func (l *Links) Entries() []Link {
	out := make([]Link, 0, len(l.order))
	for _, todoID := range l.order {
		out = append(out, Link{TodoID: todoID, IssueID: l.ids[todoID]})
	}
	return out
}

// MarshalJSON encodes the links as an object in insertion order.
func (l *Links) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, todoID := range l.order {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(todoID)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(l.ids[todoID])
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes an object of string values, keeping key order.
func (l *Links) UnmarshalJSON(data []byte) error {
	*l = Links{}
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("links: expected object, got %v", tok)
	}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("links: expected string key, got %v", keyTok)
		}
		var issueID string
		if err := dec.Decode(&issueID); err != nil {
			return fmt.Errorf("links: value for %q: %w", key, err)
		}
		l.Set(key, issueID)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}

// MarshalYAML encodes the links as a mapping node in insertion order.
func (l *Links) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, todoID := range l.order {
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: todoID},
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: l.ids[todoID]},
		)
	}
	return node, nil
}

// UnmarshalYAML decodes a mapping node of scalar values, keeping key order.
func (l *Links) UnmarshalYAML(node *yaml.Node) error {
	*l = Links{}
	if node.Kind == yaml.ScalarNode && node.Tag == "!!null" {
		return nil
	}
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("links: expected mapping at line %d", node.Line)
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		k, v := node.Content[i], node.Content[i+1]
		if k.Kind != yaml.ScalarNode || v.Kind != yaml.ScalarNode {
			return fmt.Errorf("links: expected scalar pair at line %d", k.Line)
		}
		l.Set(k.Value, v.Value)
	}
	return nil
}
