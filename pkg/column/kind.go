package column

import (
	"unsafe"

	"github.com/ajitpratap0/gridload/pkg/errors"
	"github.com/ajitpratap0/gridload/pkg/heap"
)

// Scalar is the element type of a list column.
type Scalar interface {
	float64 | int64
}

// Kind identifies the value shape a Sink accepts. The set is closed.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindFloat64List
	KindInt64List
)

func (k Kind) String() string {
	switch k {
	case KindFloat64List:
		return "list<float64>"
	case KindInt64List:
		return "list<int64>"
	default:
		return "invalid"
	}
}

// ParseKind parses the names accepted in schemas and on the command line.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "list<float64>", "float64_list", "[]float64":
		return KindFloat64List, nil
	case "list<int64>", "int64_list", "[]int64":
		return KindInt64List, nil
	default:
		return KindInvalid, errors.Newf(errors.ErrorTypeValidation, "unknown column kind %q", s)
	}
}

func kindOf[V Scalar]() Kind {
	var zero V
	switch any(zero).(type) {
	case float64:
		return KindFloat64List
	case int64:
		return KindInt64List
	default:
		return KindInvalid
	}
}

func elemSize[V Scalar]() int {
	var zero V
	return int(unsafe.Sizeof(zero))
}

func newSequence[V Scalar](rt heap.Runtime, vals []V) (heap.Handle, error) {
	switch v := any(vals).(type) {
	case []float64:
		return rt.NewFloat64Sequence(v)
	case []int64:
		return rt.NewInt64Sequence(v)
	default:
		return heap.Handle{}, errors.Newf(errors.ErrorTypeInternal, "unsupported scalar slice %T", vals)
	}
}
