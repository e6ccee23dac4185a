package crawler

// Registry maps website names to their crawler implementations. Unknown
// names resolve to a no-op crawler that reports the website as unsupported.
type Registry struct {
	crawlers map[string]Crawler
	fallback Crawler
}

// NewRegistry creates an empty registry with the no-op fallback.
func NewRegistry() *Registry {
	return &Registry{
		crawlers: make(map[string]Crawler),
		fallback: Noop{},
	}
}

// Register adds a crawler under its website name.
func (r *Registry) Register(c Crawler) {
	r.crawlers[c.Name()] = c
}

// Get returns the crawler for the named website, or the no-op fallback when
// none is registered.
func (r *Registry) Get(name string) Crawler {
	if c, ok := r.crawlers[name]; ok {
		return c
	}
	return r.fallback
}

// Supported reports whether a crawler is registered for the website name.
func (r *Registry) Supported(name string) bool {
	_, ok := r.crawlers[name]
	return ok
}
