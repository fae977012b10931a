package column

import (
	"github.com/ajitpratap0/gridload/pkg/errors"
	"github.com/ajitpratap0/gridload/pkg/grid"
)

// Sink is the capability the upstream loader uses to drive column writers of
// any kind uniformly.
type Sink interface {
	// Kind returns the value shape the sink accepts.
	Kind() Kind
	// TypeCheck reports whether values of kind k can be written.
	TypeCheck(k Kind) bool
	// TypeName returns a human readable name of the accepted values.
	TypeName() string
	// WriteValue writes v at row. Only an untyped nil is a null; a typed nil
	// slice such as []float64(nil) is an empty sequence.
	WriteValue(v any, row int) error
	// Finalize flushes all buffered rows and retires the sink.
	Finalize() error
	// Partitions splits the sink into n sinks sharing its destination.
	Partitions(n int) ([]Sink, error)
	// Stats returns counters of materialized rows.
	Stats() Stats
}

var (
	_ Sink = (*ArrayColumn[float64])(nil)
	_ Sink = (*ArrayColumn[int64])(nil)
)

// NewSink creates the writer for kind over dest.
func NewSink(kind Kind, dest grid.Dest, opts Options) (Sink, error) {
	switch kind {
	case KindFloat64List:
		return New[float64](dest, opts), nil
	case KindInt64List:
		return New[int64](dest, opts), nil
	default:
		return nil, errors.Newf(errors.ErrorTypeValidation, "unsupported column kind %s", kind).
			WithDetail("column", dest.Column())
	}
}

// Kind implements Sink.
func (c *ArrayColumn[V]) Kind() Kind { return kindOf[V]() }

// TypeCheck implements Sink. Nullable and non-nullable lists share a kind.
func (c *ArrayColumn[V]) TypeCheck(k Kind) bool { return k == kindOf[V]() }

// TypeName implements Sink.
func (c *ArrayColumn[V]) TypeName() string { return kindOf[V]().String() }

// WriteValue implements Sink. v must be nil or a []V. A nil []V stored in v
// is not nil and is written as an empty sequence.
func (c *ArrayColumn[V]) WriteValue(v any, row int) error {
	switch val := v.(type) {
	case nil:
		return c.WriteNull(row)
	case []V:
		return c.Write(val, row)
	default:
		return errors.Newf(errors.ErrorTypeValidation, "column %s of %s cannot hold %T", c.name, c.TypeName(), v).
			WithDetail("column", c.name).
			WithDetail("row", row)
	}
}

// Partitions implements Sink.
func (c *ArrayColumn[V]) Partitions(n int) ([]Sink, error) {
	parts, err := c.Partition(n)
	if err != nil {
		return nil, err
	}
	sinks := make([]Sink, len(parts))
	for i, p := range parts {
		sinks[i] = p
	}
	return sinks, nil
}
