package pagination

// WithDefaultLimit sets the page size used when a find call sets no limit.
func WithDefaultLimit(limit int) Option {
	return func(p *Paginator) {
		if limit > 0 {
			p.defaultLimit = limit
		}
	}
}

// WithDefaultSort sets the property used when a find call sets no sort.
func WithDefaultSort(property string) Option {
	return func(p *Paginator) {
		if property != "" {
			p.defaultSort = property
		}
	}
}

// Option configures paginator behavior through the functional options
// pattern.
type Option func(*Paginator)
