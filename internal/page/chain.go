package page

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	log "github.com/sirupsen/logrus"
)

// Advance runs the action of the page and constructs its registered successor with
// the chain context merged with extra. One-time keys in extra are ignored. When the
// action fails no successor is constructed.
func (b *Base) Advance(ctx context.Context, extra Params) (Page, error) {
	if b.desc.Terminal() {
		return nil, fmt.Errorf("page %s: %w", b.desc.Key, ErrTerminalPage)
	}
	succ, err := b.reg.Resolve(b.desc.Successor)
	if err != nil {
		return nil, fmt.Errorf("page %s: successor: %w", b.desc.Key, err)
	}

	merged := b.chain.Merge(extra).withoutOneTime()

	if b.desc.act != nil {
		if err = b.desc.act(ctx, b.self, merged); err != nil {
			var failure *ActionFailureError
			if errors.As(err, &failure) {
				return nil, err
			}
			return nil, &ActionFailureError{Page: b.desc.Key, URL: b.method.GetURL(ctx), Err: err}
		}
	}

	next, err := b.reg.construct(ctx, succ, merged)
	if err != nil {
		return nil, err
	}
	if reflect.TypeOf(next) != succ.typ {
		return nil, &SuccessorMismatchError{From: b.desc.Key, Want: succ.typ.String(), Got: fmt.Sprintf("%T", next)}
	}
	log.Debugf("page %s -> %s", b.desc.Key, succ.Key)
	return next, nil
}

// Next advances from and returns the successor as S. S must be the Go type of the
// successor registered for from; this is checked before the action runs.
func Next[S Page](ctx context.Context, from Page, extra Params) (S, error) {
	var zero S
	if isNil(from) {
		return zero, fmt.Errorf("%w: advance from nil page", ErrInvalidDescriptor)
	}
	d := from.Descriptor()
	if d.Terminal() {
		return zero, fmt.Errorf("page %s: %w", d.Key, ErrTerminalPage)
	}
	succ, err := from.Registry().Resolve(d.Successor)
	if err != nil {
		return zero, fmt.Errorf("page %s: successor: %w", d.Key, err)
	}
	want := reflect.TypeFor[S]()
	if succ.typ != want {
		return zero, &SuccessorMismatchError{From: d.Key, Want: succ.typ.String(), Got: want.String()}
	}

	p, err := from.Advance(ctx, extra)
	if err != nil {
		return zero, err
	}
	s, ok := p.(S)
	if !ok {
		return zero, &SuccessorMismatchError{From: d.Key, Want: want.String(), Got: fmt.Sprintf("%T", p)}
	}
	return s, nil
}

// Start opens a chain at the page registered for type S.
func Start[S Page](ctx context.Context, r *Registry, params Params) (S, error) {
	var zero S
	key, ok := KeyFor[S](r)
	if !ok {
		return zero, &UnknownPageError{Key: Key(reflect.TypeFor[S]().String())}
	}
	p, err := r.Open(ctx, key, params)
	if err != nil {
		return zero, err
	}
	return p.(S), nil
}

// Walk advances once per step, feeding each step as the extra parameters of its
// advance, and returns the last page reached.
func Walk(ctx context.Context, from Page, steps ...Params) (Page, error) {
	if isNil(from) {
		return nil, fmt.Errorf("%w: walk from a nil page", ErrInvalidDescriptor)
	}
	p := from
	for i, extra := range steps {
		next, err := p.Advance(ctx, extra)
		if err != nil {
			return nil, fmt.Errorf("step %d from %s: %w", i+1, p.Key(), err)
		}
		p = next
	}
	return p, nil
}
