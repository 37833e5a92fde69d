package interactive

import (
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/bgapi-protocol/bgapi-go/pkg/codec"
	"github.com/bgapi-protocol/bgapi-go/pkg/schema"
	"github.com/bgapi-protocol/bgapi-go/pkg/wire"
)

// ParseArgs converts console words into arguments for desc. Integer fields
// also accept enum constant names from s.
func ParseArgs(s *schema.Schema, desc *schema.MessageDescriptor, words []string) ([]any, error) {
	if len(words) != len(desc.Fields) {
		return nil, fmt.Errorf("%w: %s takes %d arguments (%s), got %d",
			wire.ErrArgumentMismatch, desc.FullName(), len(desc.Fields), Signature(desc), len(words))
	}

	args := make([]any, len(words))
	for i, f := range desc.Fields {
		v, err := wire.ParseValue(f.Type, words[i])
		if err != nil && isInteger(f.Type) {
			if c, cerr := s.Constant(words[i]); cerr == nil {
				v, err = wire.ParseValue(f.Type, strconv.FormatInt(c, 10))
			}
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f.Name, err)
		}
		args[i] = v
	}
	return args, nil
}

func isInteger(t wire.TypeTag) bool {
	return t != wire.TypeAddress && t != wire.TypeByteArray
}

// Signature returns e.g. "key:uint16 value:uint8array".
func Signature(desc *schema.MessageDescriptor) string {
	if len(desc.Fields) == 0 {
		return "no arguments"
	}
	parts := make([]string, len(desc.Fields))
	for i, f := range desc.Fields {
		parts[i] = f.Name + ":" + f.Type.String()
	}
	return strings.Join(parts, " ")
}

// FormatRecord renders a record as one line per field.
func FormatRecord(rec *codec.Record) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s", rec.Message.Kind, rec.Message.FullName())
	for _, f := range rec.Message.Fields {
		v, _ := rec.Get(f.Name)
		fmt.Fprintf(&b, "\n  %-16s %s", f.Name, formatValue(v))
	}
	return b.String()
}

func formatValue(v any) string {
	switch x := v.(type) {
	case []byte:
		if len(x) == 0 {
			return "(empty)"
		}
		return hex.EncodeToString(x)
	case wire.Address:
		return x.String()
	case uint8, uint16, uint32:
		return fmt.Sprintf("%d (0x%x)", x, x)
	default:
		return fmt.Sprint(x)
	}
}

// MatchNames returns the sorted names that start with prefix.
func MatchNames(names []string, prefix string) []string {
	var out []string
	for _, n := range names {
		if strings.HasPrefix(n, prefix) {
			out = append(out, n)
		}
	}
	sort.Strings(out)
	return out
}

// ErrUsage indicates a malformed console command.
var ErrUsage = errors.New("usage")
