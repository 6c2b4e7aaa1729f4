package filter

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/stellar/go/xdr"
)

var (
	// ErrNoTopics is returned when a topic filter is applied to an event without topics
	ErrNoTopics = errors.New("event has no topics to match")

	// ErrSegmentComparison is returned when a topic cannot be compared to a segment
	ErrSegmentComparison = errors.New("topic segment comparison failed")
)

// TopicFilter is an ordered list of segments matched against event topics
type TopicFilter struct {
	segments []Segment
	encoded  [][]byte // canonical XDR of value segments, nil for wildcards
}

// NewTopicFilter validates the segments. A RestSegment may only be the last one.
func NewTopicFilter(segments ...Segment) (TopicFilter, error) {
	if len(segments) == 0 {
		return TopicFilter{}, errors.New("topic filter needs at least one segment")
	}

	tf := TopicFilter{
		segments: make([]Segment, len(segments)),
		encoded:  make([][]byte, len(segments)),
	}
	for i, seg := range segments {
		switch s := seg.(type) {
		case ValueSegment:
			raw, err := s.Value.MarshalBinary()
			if err != nil {
				return TopicFilter{}, fmt.Errorf("segment %d: %w", i, err)
			}
			tf.encoded[i] = raw
		case AnySegment:
		case RestSegment:
			if i != len(segments)-1 {
				return TopicFilter{}, fmt.Errorf("segment %d: %q must be the last segment", i, wildcardRest)
			}
		default:
			return TopicFilter{}, fmt.Errorf("segment %d: unsupported segment %T", i, seg)
		}
		tf.segments[i] = seg
	}
	return tf, nil
}

// ParseTopicFilter builds a TopicFilter from textual segments (see ParseSegment)
func ParseTopicFilter(raw []string) (TopicFilter, error) {
	segments := make([]Segment, 0, len(raw))
	for _, r := range raw {
		seg, err := ParseSegment(r)
		if err != nil {
			return TopicFilter{}, err
		}
		segments = append(segments, seg)
	}
	return NewTopicFilter(segments...)
}

// MustTopicFilter is like NewTopicFilter but panics on invalid input
func MustTopicFilter(segments ...Segment) TopicFilter {
	tf, err := NewTopicFilter(segments...)
	if err != nil {
		panic(err)
	}
	return tf
}

// Segments returns a copy of the filter segments
func (tf TopicFilter) Segments() []Segment {
	return append([]Segment(nil), tf.segments...)
}

func (tf TopicFilter) String() string {
	parts := make([]string, len(tf.segments))
	for i, seg := range tf.segments {
		parts[i] = seg.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// Matches reports whether the topics satisfy this filter
func (tf TopicFilter) Matches(topics []xdr.ScVal) (bool, error) {
	if len(topics) == 0 {
		return false, ErrNoTopics
	}

	for i, topic := range topics {
		if i >= len(tf.segments) {
			return false, nil
		}

		switch tf.segments[i].(type) {
		case RestSegment:
			return true, nil
		case AnySegment:
			continue
		}

		raw, err := topic.MarshalBinary()
		if err != nil {
			return false, fmt.Errorf("%w: topic %d: %v", ErrSegmentComparison, i, err)
		}
		if !bytes.Equal(raw, tf.encoded[i]) {
			return false, nil
		}
	}

	// Topics exhausted: only a trailing rest wildcard may remain
	remaining := tf.segments[len(topics):]
	switch {
	case len(remaining) == 0:
		return true, nil
	case len(remaining) == 1:
		_, isRest := remaining[0].(RestSegment)
		return isRest, nil
	default:
		return false, nil
	}
}
