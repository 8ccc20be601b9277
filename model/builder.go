package model

import (
	"github.com/smallnest/dispatchgo/dispatch"
)

// builder accumulates registrations and keeps only the first error, so
// model definitions read as flat wiring lists instead of error ladders.
type builder struct {
	d   *dispatch.Dispatcher
	err error
}

func newBuilder(name, description string) *builder {
	return &builder{d: dispatch.New(name, description)}
}

func (b *builder) data(opts dispatch.DataOptions) {
	if b.err != nil {
		return
	}
	_, b.err = b.d.AddData(opts)
}

func (b *builder) plainData(ids ...string) {
	for _, id := range ids {
		b.data(dispatch.DataOptions{ID: id})
	}
}

func (b *builder) function(opts dispatch.FunctionOptions) {
	if b.err != nil {
		return
	}
	_, b.err = b.d.AddFunction(opts)
}

func (b *builder) sub(opts dispatch.SubDispatcherOptions) {
	if b.err != nil {
		return
	}
	_, b.err = b.d.AddSubDispatcher(opts)
}

func (b *builder) build() (*dispatch.Dispatcher, error) {
	if b.err != nil {
		return nil, b.err
	}
	return b.d, nil
}
