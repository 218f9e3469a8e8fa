package page

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/luispater/pagechain/internal/browser"
	log "github.com/sirupsen/logrus"
)

// Key identifies a page type.
type Key string

// Locators maps element names to locators.
type Locators map[string]browser.Locator

// Descriptor describes a page type: its key, its single successor (empty when the
// page is terminal) and the elements that must be visible for it to count as loaded.
// Build descriptors with Define.
type Descriptor struct {
	Key       Key
	Successor Key
	Locators  Locators

	typ    reflect.Type
	origin uintptr
	build  func(*Base) Page
	act    func(context.Context, Page, Chain) error
}

// Type is the Go type of the pages this descriptor builds.
func (d *Descriptor) Type() reflect.Type {
	return d.typ
}

// Terminal reports whether the page has no successor.
func (d *Descriptor) Terminal() bool {
	return d.Successor == ""
}

// Define describes page type P. build wraps the loaded Base into P. act performs the
// UI action that moves the browser to the successor page; it receives the chain with
// the extra parameters of the advance already merged. act may be nil for pages that
// only wait for the browser to move on.
func Define[P Page](key, successor Key, locators Locators, build func(*Base) P, act func(ctx context.Context, p P, c Chain) error) Descriptor {
	d := Descriptor{
		Key:       key,
		Successor: successor,
		Locators:  locators,
		typ:       reflect.TypeFor[P](),
	}
	if build != nil {
		d.origin = reflect.ValueOf(build).Pointer()
		d.build = func(b *Base) Page {
			return build(b)
		}
	}
	if act != nil {
		d.act = func(ctx context.Context, p Page, c Chain) error {
			return act(ctx, p.(P), c)
		}
	}
	return d
}

// Registry maps page keys to descriptors. It is filled by an explicit registration
// pass at startup and handed to every chain.
type Registry struct {
	mu     sync.RWMutex
	pages  map[Key]*Descriptor
	byType map[reflect.Type]Key
}

func NewRegistry() *Registry {
	return &Registry{
		pages:  make(map[Key]*Descriptor),
		byType: make(map[reflect.Type]Key),
	}
}

// Register adds d. Registering the same key again with the same constructor is a
// no-op; a different constructor fails with DuplicatePageError. Constructors are
// compared by their function literal: closures made from one literal count as the
// same constructor whatever they capture. Successors may refer
// to pages registered later; Validate checks them once the pass is done.
func (r *Registry) Register(d Descriptor) error {
	if d.Key == "" || d.build == nil || d.typ == nil {
		return fmt.Errorf("%w: %q needs a key and a constructor", ErrInvalidDescriptor, d.Key)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.pages[d.Key]; ok {
		if existing.origin == d.origin && existing.typ == d.typ && existing.Successor == d.Successor {
			log.Debugf("page %s already registered", d.Key)
			return nil
		}
		return &DuplicatePageError{Key: d.Key}
	}
	if other, ok := r.byType[d.typ]; ok {
		return fmt.Errorf("%w: type %s already registered as %s", ErrInvalidDescriptor, d.typ, other)
	}

	locators := make(Locators, len(d.Locators))
	for name, loc := range d.Locators {
		locators[name] = loc
	}
	d.Locators = locators

	r.pages[d.Key] = &d
	r.byType[d.typ] = d.Key
	log.Debugf("registered page %s -> %s", d.Key, successorName(&d))
	return nil
}

// RegisterAll registers every descriptor, stopping at the first error.
func (r *Registry) RegisterAll(descriptors ...Descriptor) error {
	for _, d := range descriptors {
		if err := r.Register(d); err != nil {
			return err
		}
	}
	return nil
}

// Resolve returns the descriptor registered under key.
func (r *Registry) Resolve(key Key) (*Descriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.pages[key]
	if !ok {
		return nil, &UnknownPageError{Key: key}
	}
	return d, nil
}

// KeyOf returns the key under which page type t is registered.
func (r *Registry) KeyOf(t reflect.Type) (Key, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	key, ok := r.byType[t]
	return key, ok
}

// KeyFor returns the key of page type P.
func KeyFor[P Page](r *Registry) (Key, bool) {
	return r.KeyOf(reflect.TypeFor[P]())
}

// Validate checks that every declared successor is registered.
func (r *Registry) Validate() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var errs []error
	for _, key := range r.keysLocked() {
		d := r.pages[key]
		if d.Terminal() {
			continue
		}
		if _, ok := r.pages[d.Successor]; !ok {
			errs = append(errs, fmt.Errorf("page %s: successor: %w", d.Key, &UnknownPageError{Key: d.Successor}))
		}
	}
	return errors.Join(errs...)
}

// Keys returns the registered keys in sorted order.
func (r *Registry) Keys() []Key {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.keysLocked()
}

func (r *Registry) keysLocked() []Key {
	keys := make([]Key, 0, len(r.pages))
	for k := range r.pages {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Descriptors returns the registered descriptors sorted by key.
func (r *Registry) Descriptors() []*Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	descriptors := make([]*Descriptor, 0, len(r.pages))
	for _, k := range r.keysLocked() {
		descriptors = append(descriptors, r.pages[k])
	}
	return descriptors
}

// Open starts a chain at the page registered under key.
func (r *Registry) Open(ctx context.Context, key Key, params Params) (Page, error) {
	d, err := r.Resolve(key)
	if err != nil {
		return nil, err
	}
	return r.construct(ctx, d, NewChain(params))
}

func (r *Registry) construct(ctx context.Context, d *Descriptor, c Chain) (Page, error) {
	b, err := newBase(ctx, r, d, c)
	if err != nil {
		return nil, err
	}
	p := d.build(b)
	if isNil(p) || reflect.TypeOf(p) != d.typ || p.base() != b {
		return nil, &SuccessorMismatchError{From: d.Key, Want: d.typ.String(), Got: fmt.Sprintf("%T", p)}
	}
	b.self = p
	return p, nil
}

func successorName(d *Descriptor) string {
	if d.Terminal() {
		return "(terminal)"
	}
	return string(d.Successor)
}

func isNil(p Page) bool {
	if p == nil {
		return true
	}
	v := reflect.ValueOf(p)
	return v.Kind() == reflect.Pointer && v.IsNil()
}
