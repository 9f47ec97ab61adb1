package handlers

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/graxinc/errutil"
)

var ErrDuplicate = errors.New("handler already registered")

// Registry maps invocation names to handlers. Commands, autocomplete
// providers and text commands are looked up by exact canonical name;
// buttons, select menus and modals by the longest registered prefix of
// their custom ID, so one handler serves every "escalateToZendesk.<...>".
type Registry struct {
	mu       sync.RWMutex
	names    map[Kind]map[string]Handler
	prefixes map[Kind]*trie
}

func NewRegistry() *Registry {
	return &Registry{
		names:    make(map[Kind]map[string]Handler),
		prefixes: make(map[Kind]*trie),
	}
}

// Register adds h under its metadata name. A command that also implements
// Autocompleter is registered as its own autocomplete provider, and a text
// command with aliases is reachable under each of them.
func (r *Registry) Register(kind Kind, h Handler) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := h.Metadata().Name
	if name == "" {
		return errutil.With(fmt.Errorf("%s handler has no name", kind))
	}

	if kind.prefixed() {
		t, ok := r.prefixes[kind]
		if !ok {
			t = newTrie()
			r.prefixes[kind] = t
		}
		if !t.insert(name, h) {
			return errutil.Wrap(fmt.Errorf("%w: %s %q", ErrDuplicate, kind, name))
		}
		return nil
	}

	names := []string{name}
	if a, ok := h.(Aliased); ok && kind == KindText {
		names = append(names, a.Aliases()...)
	}
	for _, n := range names {
		if err := r.put(kind, strings.ToLower(n), h); err != nil {
			return err
		}
	}

	if _, ok := h.(Autocompleter); ok && kind == KindCommand {
		if err := r.put(KindAutocomplete, name, h); err != nil {
			return err
		}
	}

	return nil
}

// MustRegister registers every handler and panics on a duplicate. It is
// meant for the static handler set wired at startup.
func (r *Registry) MustRegister(kind Kind, hs ...Handler) {
	for _, h := range hs {
		if err := r.Register(kind, h); err != nil {
			panic(err)
		}
	}
}

func (r *Registry) put(kind Kind, name string, h Handler) error {
	m, ok := r.names[kind]
	if !ok {
		m = make(map[string]Handler)
		r.names[kind] = m
	}
	if _, ok := m[name]; ok {
		return errutil.Wrap(fmt.Errorf("%w: %s %q", ErrDuplicate, kind, name))
	}
	m[name] = h
	return nil
}

// Lookup finds the handler registered under exactly name, or for prefixed
// kinds the handler of the longest matching custom ID prefix.
func (r *Registry) Lookup(kind Kind, name string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if kind.prefixed() {
		t, ok := r.prefixes[kind]
		if !ok {
			return nil, false
		}
		return t.longest(name)
	}

	if kind == KindText {
		name = strings.ToLower(name)
	}
	h, ok := r.names[kind][name]
	return h, ok
}

// LookupCommand resolves a command path such as [config auto_thread_channel
// add], trying "config-auto_thread_channel-add", then
// "config-auto_thread_channel", then "config". Only whole path elements are
// dropped, so a command whose own name contains "-" never falls back to
// another command.
func (r *Registry) LookupCommand(kind Kind, path []string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m := r.names[kind]
	for n := len(path); n > 0; n-- {
		if h, ok := m[strings.Join(path[:n], "-")]; ok {
			return h, true
		}
	}
	return nil, false
}

// Commands returns every distinct application command handler, sorted by name.
func (r *Registry) Commands() []Handler {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Handler, 0, len(r.names[KindCommand]))
	for _, h := range r.names[KindCommand] {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Metadata().Name < out[j].Metadata().Name })
	return out
}

type trieNode struct {
	children map[byte]*trieNode
	handler  Handler
}

type trie struct {
	root *trieNode
}

func newTrie() *trie {
	return &trie{root: &trieNode{children: make(map[byte]*trieNode)}}
}

func (t *trie) insert(key string, h Handler) bool {
	n := t.root
	for i := 0; i < len(key); i++ {
		next, ok := n.children[key[i]]
		if !ok {
			next = &trieNode{children: make(map[byte]*trieNode)}
			n.children[key[i]] = next
		}
		n = next
	}
	if n.handler != nil {
		return false
	}
	n.handler = h
	return true
}

// longest returns the handler of the longest registered key that is a
// prefix of s.
func (t *trie) longest(s string) (Handler, bool) {
	var found Handler
	n := t.root
	for i := 0; i < len(s); i++ {
		next, ok := n.children[s[i]]
		if !ok {
			break
		}
		n = next
		if n.handler != nil {
			found = n.handler
		}
	}
	return found, found != nil
}
