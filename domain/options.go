package domain

// WithSkip sets the number of documents skipped by a find call.
func WithSkip(s int) FindOption {
	return func(o *FindOptions) {
		o.Skip = s
	}
}

// WithLimit sets the maximum number of documents returned by a find call.
func WithLimit(l int) FindOption {
	return func(o *FindOptions) {
		o.Limit = l
	}
}

// WithSort sets the sort property of a find call. The direction is
// descending only when it is -1.
func WithSort(property string, direction int) FindOption {
	return func(o *FindOptions) {
		o.Sort = map[string]int{property: direction}
	}
}

// WithFields sets the projection of a find call.
func WithFields(p Projection) FindOption {
	return func(o *FindOptions) {
		o.Fields = p
	}
}

// FindOption configures [FindOptions] through the functional options pattern.
type FindOption func(*FindOptions)

// NewFindOptions builds [FindOptions] from the given options.
func NewFindOptions(opts ...FindOption) FindOptions {
	var o FindOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
