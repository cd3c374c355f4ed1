package pipeline

import "time"

// Builder provides a fluent interface for building pipelines.
// This is an alternative to using Config directly.
type Builder struct {
	config Config
}

// NewBuilder creates a new pipeline builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// WithName sets the pipeline name.
func (b *Builder) WithName(name string) *Builder {
	b.config.Name = name
	return b
}

// WithSource sets the frame source.
func (b *Builder) WithSource(s Source) *Builder {
	b.config.Source = s
	return b
}

// WithSink sets the report sink.
func (b *Builder) WithSink(s Sink) *Builder {
	b.config.Sink = s
	return b
}

// WithMaxRows sets the row quota.
func (b *Builder) WithMaxRows(n int) *Builder {
	b.config.MaxRows = n
	return b
}

// WithLocation sets the zone used for row timestamps.
func (b *Builder) WithLocation(loc *time.Location) *Builder {
	b.config.Location = loc
	return b
}

// Build creates the pipeline.
func (b *Builder) Build() (*Pipeline, error) {
	return New(b.config)
}
