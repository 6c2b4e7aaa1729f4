package filter

import (
	"errors"
	"fmt"

	"eventstream/internal/models"

	"github.com/stellar/go/xdr"
)

const (
	// MaxContractIDs is the largest contract set a single filter may carry
	MaxContractIDs = 5
	// MaxTopicFilters is the largest topic filter set a single filter may carry
	MaxTopicFilters = 5
	// MaxFilters is the largest filter set a streamer accepts
	MaxFilters = 5
)

// ErrTooManyFilters is returned when a filter set exceeds MaxFilters
var ErrTooManyFilters = errors.New("too many event filters")

// Spec describes an EventFilter before validation
type Spec struct {
	Type        models.EventType // empty matches every type
	ContractIDs []string
	Topics      []TopicFilter
}

// EventFilter selects events by type, emitting contract and topics.
// It is immutable once built.
type EventFilter struct {
	eventType   models.EventType
	contractIDs []string
	contractSet map[string]struct{}
	topics      []TopicFilter
}

// NewEventFilter validates spec and builds an EventFilter
func NewEventFilter(spec Spec) (*EventFilter, error) {
	if spec.Type != "" {
		if _, err := models.ParseEventType(string(spec.Type)); err != nil {
			return nil, err
		}
	}
	if len(spec.ContractIDs) > MaxContractIDs {
		return nil, fmt.Errorf("filter has %d contract ids, at most %d allowed", len(spec.ContractIDs), MaxContractIDs)
	}
	if len(spec.Topics) > MaxTopicFilters {
		return nil, fmt.Errorf("filter has %d topic filters, at most %d allowed", len(spec.Topics), MaxTopicFilters)
	}

	f := &EventFilter{
		eventType:   spec.Type,
		contractIDs: append([]string(nil), spec.ContractIDs...),
		contractSet: make(map[string]struct{}, len(spec.ContractIDs)),
		topics:      append([]TopicFilter(nil), spec.Topics...),
	}
	for _, id := range spec.ContractIDs {
		if err := models.ValidateContractID(id); err != nil {
			return nil, err
		}
		f.contractSet[id] = struct{}{}
	}
	for i, tf := range spec.Topics {
		if len(tf.segments) == 0 {
			return nil, fmt.Errorf("topic filter %d is empty", i)
		}
	}
	return f, nil
}

// Type returns the type constraint, if any
func (f *EventFilter) Type() (models.EventType, bool) {
	return f.eventType, f.eventType != ""
}

// ContractIDs returns a copy of the contract constraint
func (f *EventFilter) ContractIDs() []string {
	return append([]string(nil), f.contractIDs...)
}

// Topics returns a copy of the topic filters
func (f *EventFilter) Topics() []TopicFilter {
	return append([]TopicFilter(nil), f.topics...)
}

// MatchesType reports whether t satisfies the type constraint
func (f *EventFilter) MatchesType(t models.EventType) bool {
	return f.eventType == "" || f.eventType == t
}

// MatchesContractID reports whether id satisfies the contract constraint
func (f *EventFilter) MatchesContractID(id string) bool {
	if len(f.contractSet) == 0 {
		return true
	}
	_, ok := f.contractSet[id]
	return ok
}

// MatchesTopics reports whether any topic filter matches topics
func (f *EventFilter) MatchesTopics(topics []xdr.ScVal) (bool, error) {
	if len(f.topics) == 0 {
		return true, nil
	}
	if len(topics) == 0 {
		return false, ErrNoTopics
	}
	for _, tf := range f.topics {
		ok, err := tf.Matches(topics)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// Matches applies every dimension of the filter to ev
func (f *EventFilter) Matches(ev models.Event) (bool, error) {
	if !f.MatchesType(ev.Type) || !f.MatchesContractID(ev.ContractID) {
		return false, nil
	}
	ok, err := f.MatchesTopics(ev.Topics)
	if err != nil {
		return false, fmt.Errorf("event %s: %w", ev.ID, err)
	}
	return ok, nil
}

// MatchAny reports whether ev satisfies at least one filter. An empty set matches everything.
func MatchAny(filters []*EventFilter, ev models.Event) (bool, error) {
	if len(filters) == 0 {
		return true, nil
	}
	for _, f := range filters {
		ok, err := f.Matches(ev)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// ValidateSet checks a filter set before it is handed to a streamer
func ValidateSet(filters []*EventFilter) error {
	if len(filters) > MaxFilters {
		return fmt.Errorf("%w: %d given, at most %d allowed", ErrTooManyFilters, len(filters), MaxFilters)
	}
	for i, f := range filters {
		if f == nil {
			return fmt.Errorf("filter %d is nil", i)
		}
	}
	return nil
}
