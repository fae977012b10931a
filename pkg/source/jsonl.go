package source

import (
	"bufio"
	"bytes"
	"io"
	"strings"

	gojson "github.com/goccy/go-json"

	"github.com/ajitpratap0/gridload/pkg/column"
	"github.com/ajitpratap0/gridload/pkg/errors"
)

// maxLineSize bounds a single JSON line.
const maxLineSize = 64 << 20

// ReadJSONLines decodes newline-delimited JSON objects into a Memory source.
// Each object maps field names to a list of numbers or null; missing fields
// are null. Blank lines are skipped.
func ReadJSONLines(r io.Reader, schema Schema) (*Memory, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var rows [][]any
	line := 0
	for scanner.Scan() {
		line++
		data := bytes.TrimSpace(scanner.Bytes())
		if len(data) == 0 {
			continue
		}

		var obj map[string]gojson.RawMessage
		if err := gojson.Unmarshal(data, &obj); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeSource, "decode json line").WithDetail("line", line)
		}

		values := make([]any, len(schema))
		for i, f := range schema {
			raw, ok := obj[f.Name]
			if !ok || bytes.Equal(raw, []byte("null")) {
				continue
			}
			v, err := decodeList(raw, f.Kind)
			if err != nil {
				return nil, errors.Wrap(err, errors.ErrorTypeSource, "decode field").
					WithDetail("line", line).
					WithDetail("field", f.Name)
			}
			values[i] = v
		}
		rows = append(rows, values)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeSource, "read json lines").WithDetail("line", line)
	}
	return NewMemory(schema, rows)
}

func decodeList(raw []byte, kind column.Kind) (any, error) {
	switch kind {
	case column.KindFloat64List:
		return decodeElements[float64](raw)
	case column.KindInt64List:
		return decodeElements[int64](raw)
	default:
		return nil, errors.Newf(errors.ErrorTypeValidation, "unsupported column kind %s", kind)
	}
}

// decodeElements decodes a JSON array of numbers. A null element is an error:
// only a whole list can be null.
func decodeElements[V column.Scalar](raw []byte) ([]V, error) {
	var elems []*V
	if err := gojson.Unmarshal(raw, &elems); err != nil {
		return nil, err
	}
	out := make([]V, len(elems))
	for i, e := range elems {
		if e == nil {
			return nil, errors.Newf(errors.ErrorTypeSource, "null element at index %d", i).WithDetail("index", i)
		}
		out[i] = *e
	}
	return out, nil
}

// ParseSchema parses "name:kind" specs such as "scores:list<float64>".
func ParseSchema(specs []string) (Schema, error) {
	schema := make(Schema, 0, len(specs))
	seen := make(map[string]bool, len(specs))
	for _, s := range specs {
		name, kindName, ok := strings.Cut(s, ":")
		if !ok || name == "" || kindName == "" {
			return nil, errors.Newf(errors.ErrorTypeValidation, "invalid column spec %q, want name:kind", s)
		}
		if seen[name] {
			return nil, errors.Newf(errors.ErrorTypeValidation, "duplicate column %q", name)
		}
		kind, err := column.ParseKind(kindName)
		if err != nil {
			return nil, err
		}
		seen[name] = true
		schema = append(schema, Field{Name: name, Kind: kind})
	}
	return schema, nil
}
