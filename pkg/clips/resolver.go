package clips

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/carl0967/vrm-chat-space/internal/httpc"
)

// Resolver turns a clip identifier into a playable clip. Resolution may
// be slow (the catalog can live behind a network manifest), so callers
// run it off the tick goroutine and guard their own in-flight state.
type Resolver interface {
	Resolve(ctx context.Context, id string) (*Clip, error)
}

// CatalogResolver resolves from an in-process catalog.
type CatalogResolver struct {
	catalog *Catalog
}

// NewCatalogResolver wraps a catalog as a Resolver.
func NewCatalogResolver(catalog *Catalog) *CatalogResolver {
	return &CatalogResolver{catalog: catalog}
}

// Resolve looks the clip up in the catalog.
func (r *CatalogResolver) Resolve(ctx context.Context, id string) (*Clip, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return r.catalog.Get(id)
}

// RemoteResolver fetches clip JSON from a remote catalog service and
// caches results in a local catalog so each identifier is fetched once.
type RemoteResolver struct {
	base   string
	client *http.Client
	cache  *Catalog
}

// NewRemoteResolver creates a resolver against a catalog base URL.
// A nil client uses the shared production client.
func NewRemoteResolver(base string, client *http.Client) *RemoteResolver {
	if client == nil {
		client = httpc.Client
	}
	return &RemoteResolver{
		base:   base,
		client: client,
		cache:  NewCatalog(),
	}
}

// Resolve fetches /clips/{id}.json from the remote catalog.
func (r *RemoteResolver) Resolve(ctx context.Context, id string) (*Clip, error) {
	if clip, err := r.cache.Get(id); err == nil {
		return clip, nil
	}

	endpoint := fmt.Sprintf("%s/clips/%s.json", r.base, url.PathEscape(id))

	var clip Clip
	if err := httpc.GetJSON(ctx, r.client, endpoint, &clip); err != nil {
		return nil, fmt.Errorf("failed to resolve clip %q: %w", id, err)
	}
	clip.Name = id
	if clip.Duration <= 0 {
		return nil, fmt.Errorf("%w: %s has non-positive duration", ErrInvalidClip, id)
	}

	r.cache.Register(&clip)
	return &clip, nil
}

var (
	_ Resolver = (*CatalogResolver)(nil)
	_ Resolver = (*RemoteResolver)(nil)
)
