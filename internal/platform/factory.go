package platform

import (
	"github.com/aretw0/tilth/pkg/content"
	"github.com/aretw0/tilth/pkg/core"
)

// New initializes the repository at uri and wraps it in a core.Service.
//
//	svc, err := tilth.New("./site", tilth.WithVersioning(false))
func New(uri string, opts ...Option) (*core.Service, error) {
	repo, err := Init(uri, opts...)
	if err != nil {
		return nil, err
	}

	o := apply(opts)
	return core.NewService(repo,
		core.WithServiceLogger(o.logger),
		core.WithEventBuffer(o.eventBuffer),
	), nil
}

// NewStore opens the site at uri and returns the post store used by editing
// pages, together with the service it writes through.
func NewStore(uri string, opts ...Option) (*content.RepositoryStore, *core.Service, error) {
	service, err := New(uri, opts...)
	if err != nil {
		return nil, nil, err
	}

	o := apply(opts)
	storeOpts := []content.StoreOption{
		content.WithCollection(o.collection),
		content.WithStoreLogger(o.logger),
	}
	if len(o.allowList) > 0 {
		storeOpts = append(storeOpts, content.WithAllowList(o.allowList...))
	}
	return content.NewRepositoryStore(service, storeOpts...), service, nil
}
