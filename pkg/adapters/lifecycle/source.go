package lifecycle

import (
	"context"
	"path"
	"strings"

	"github.com/aretw0/lifecycle"

	"github.com/aretw0/tilth/pkg/core"
)

type postSource struct {
	events     <-chan core.Event
	collection string
	out        chan lifecycle.Event
}

// NewSource creates a lifecycle.Source that re-emits the document events
// belonging to collection. An empty collection passes every event through.
func NewSource(events <-chan core.Event, collection string) lifecycle.Source {
	return &postSource{
		events:     events,
		collection: strings.Trim(path.Clean("/"+collection), "/"),
		out:        make(chan lifecycle.Event),
	}
}

func (s *postSource) Events() <-chan lifecycle.Event {
	return s.out
}

func (s *postSource) Start(ctx context.Context) error {
	lifecycle.Go(ctx, func(ctx context.Context) error {
		defer close(s.out)
		for {
			select {
			case <-ctx.Done():
				return nil
			case e, ok := <-s.events:
				if !ok {
					return nil
				}
				if !s.inCollection(e.ID) {
					continue
				}
				select {
				case s.out <- e:
				case <-ctx.Done():
					return nil
				}
			}
		}
	})
	return nil
}

func (s *postSource) inCollection(id string) bool {
	if s.collection == "" {
		return true
	}
	return path.Dir(id) == s.collection
}

// Forward drains src into a core.Event channel, dropping events of any other
// type. The returned channel closes when src does.
func Forward(ctx context.Context, src lifecycle.Source) <-chan core.Event {
	out := make(chan core.Event)
	lifecycle.Go(ctx, func(ctx context.Context) error {
		defer close(out)
		for e := range src.Events() {
			ce, ok := e.(core.Event)
			if !ok {
				continue
			}
			select {
			case out <- ce:
			case <-ctx.Done():
				return nil
			}
		}
		return nil
	})
	return out
}
