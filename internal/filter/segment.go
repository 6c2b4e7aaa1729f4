package filter

import (
	"fmt"
	"strings"

	"github.com/stellar/go/xdr"
)

const (
	wildcardAny  = "*"
	wildcardRest = "**"
)

// Segment is one position of a TopicFilter. It is one of ValueSegment,
// AnySegment or RestSegment.
type Segment interface {
	isSegment()
	String() string
}

// ValueSegment matches a topic equal to Value by canonical XDR encoding
type ValueSegment struct {
	Value xdr.ScVal
}

// AnySegment matches any single topic
type AnySegment struct{}

// RestSegment matches every remaining topic, including none
type RestSegment struct{}

func (ValueSegment) isSegment() {}
func (AnySegment) isSegment()   {}
func (RestSegment) isSegment()  {}

func (s ValueSegment) String() string {
	encoded, err := xdr.MarshalBase64(s.Value)
	if err != nil {
		return fmt.Sprintf("<%s>", s.Value.Type.String())
	}
	return encoded
}

func (AnySegment) String() string  { return wildcardAny }
func (RestSegment) String() string { return wildcardRest }

// Value returns a segment matching exactly v
func Value(v xdr.ScVal) Segment {
	return ValueSegment{Value: v}
}

// Symbol returns a segment matching the symbol s
func Symbol(s string) Segment {
	sym := xdr.ScSymbol(s)
	return ValueSegment{Value: xdr.ScVal{Type: xdr.ScValTypeScvSymbol, Sym: &sym}}
}

// Any returns the single position wildcard
func Any() Segment { return AnySegment{} }

// Rest returns the wildcard for all remaining positions
func Rest() Segment { return RestSegment{} }

// ParseSegment reads the textual form used by configuration files:
// "*", "**", "symbol:<name>", "string:<text>" or a base64 XDR ScVal.
func ParseSegment(raw string) (Segment, error) {
	switch {
	case raw == wildcardAny:
		return Any(), nil
	case raw == wildcardRest:
		return Rest(), nil
	case strings.HasPrefix(raw, "symbol:"):
		return Symbol(strings.TrimPrefix(raw, "symbol:")), nil
	case strings.HasPrefix(raw, "string:"):
		str := xdr.ScString(strings.TrimPrefix(raw, "string:"))
		return Value(xdr.ScVal{Type: xdr.ScValTypeScvString, Str: &str}), nil
	}

	var val xdr.ScVal
	if err := xdr.SafeUnmarshalBase64(raw, &val); err != nil {
		return nil, fmt.Errorf("invalid topic segment %q: %w", raw, err)
	}
	return Value(val), nil
}
