package commands

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/wippyai/crypto-bridge/errors"
	"github.com/wippyai/crypto-bridge/types"
)

// parseArgs converts command line text into values matching descs
func parseArgs(descs []types.Descriptor, raw []string) ([]any, error) {
	if len(raw) != len(descs) {
		return nil, errors.InvalidInput(errors.PhaseParse,
			fmt.Sprintf("expected %d arguments (%s), got %d", len(descs), types.FormatList(descs), len(raw)))
	}
	out := make([]any, len(descs))
	for i, d := range descs {
		v, err := parseArg(d, raw[i])
		if err != nil {
			return nil, errors.ParseFailed(fmt.Sprintf("argument %d (%s)", i, d), err)
		}
		out[i] = v
	}
	return out, nil
}

// parseArg reads one value. Field elements, points and fixed buffers are hex;
// a buffer is hex or, with a "str:" prefix, literal text. Sequences are comma
// separated; an empty string is the empty sequence.
func parseArg(d types.Descriptor, s string) (any, error) {
	s = strings.TrimSpace(s)
	switch d.Kind() {
	case types.KindFr:
		return types.ParseFr(s)
	case types.KindFq:
		return types.ParseFq(s)
	case types.KindPoint:
		return types.ParsePoint(s)
	case types.KindBuffer32:
		return types.ParseBuffer32(s)
	case types.KindBuffer128:
		return types.ParseBuffer128(s)
	case types.KindBool:
		return strconv.ParseBool(s)
	case types.KindNumber:
		n, err := strconv.ParseUint(s, 0, 32)
		if err != nil {
			return nil, err
		}
		return uint32(n), nil
	case types.KindBuffer:
		if text, ok := strings.CutPrefix(s, "str:"); ok {
			return types.Buffer(text), nil
		}
		return types.ParseBuffer(s)
	case types.KindSequence:
		elem, _ := d.Elem()
		if elem.Kind() == types.KindSequence {
			return nil, fmt.Errorf("nested sequences cannot be given on the command line")
		}
		if s == "" {
			return []any{}, nil
		}
		parts := strings.Split(s, ",")
		items := make([]any, len(parts))
		for i, p := range parts {
			v, err := parseArg(elem, p)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			items[i] = v
		}
		return items, nil
	}
	return nil, fmt.Errorf("unsupported descriptor %s", d)
}

// formatValue renders a decoded result for display
func formatValue(v any) string {
	switch x := v.(type) {
	case fmt.Stringer:
		return x.String()
	case bool:
		return strconv.FormatBool(x)
	case uint32:
		return strconv.FormatUint(uint64(x), 10)
	case nil:
		return "<nil>"
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice {
		parts := make([]string, rv.Len())
		for i := range parts {
			parts[i] = formatValue(rv.Index(i).Interface())
		}
		return "[" + strings.Join(parts, ", ") + "]"
	}
	return fmt.Sprint(v)
}

// formatResults renders a result tuple one value per line
func formatResults(out []types.Descriptor, results []any) string {
	if len(results) == 0 {
		return "ok"
	}
	var sb strings.Builder
	for i, r := range results {
		if i > 0 {
			sb.WriteByte('\n')
		}
		if len(results) > 1 && i < len(out) {
			fmt.Fprintf(&sb, "%d (%s): ", i, out[i])
		}
		sb.WriteString(formatValue(r))
	}
	return sb.String()
}
