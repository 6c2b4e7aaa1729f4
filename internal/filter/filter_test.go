package filter

import (
	"testing"

	"eventstream/internal/models"

	"github.com/stellar/go/strkey"
	"github.com/stellar/go/xdr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sym(s string) xdr.ScVal {
	v := xdr.ScSymbol(s)
	return xdr.ScVal{Type: xdr.ScValTypeScvSymbol, Sym: &v}
}

func u32(n uint32) xdr.ScVal {
	v := xdr.Uint32(n)
	return xdr.ScVal{Type: xdr.ScValTypeScvU32, U32: &v}
}

func contractKey(t *testing.T, fill byte) string {
	t.Helper()
	raw := make([]byte, 32)
	for i := range raw {
		raw[i] = fill
	}
	id, err := strkey.Encode(strkey.VersionByteContract, raw)
	require.NoError(t, err)
	return id
}

func TestTopicFilterWildcardLaws(t *testing.T) {
	single := MustTopicFilter(Any())
	rest := MustTopicFilter(Rest())

	tests := []struct {
		name     string
		filter   TopicFilter
		topics   []xdr.ScVal
		expected bool
	}{
		{"any matches one topic", single, []xdr.ScVal{sym("mint")}, true},
		{"any rejects two topics", single, []xdr.ScVal{sym("mint"), u32(1)}, false},
		{"rest matches one topic", rest, []xdr.ScVal{sym("mint")}, true},
		{"rest matches four topics", rest, []xdr.ScVal{sym("a"), sym("b"), sym("c"), u32(4)}, true},
		{"longer filter never matches", MustTopicFilter(Symbol("mint"), Any()), []xdr.ScVal{sym("mint")}, false},
		{"exact match", MustTopicFilter(Symbol("mint"), Any()), []xdr.ScVal{sym("mint"), u32(7)}, true},
		{"value mismatch", MustTopicFilter(Symbol("burn"), Any()), []xdr.ScVal{sym("mint"), u32(7)}, false},
		{"shorter filter rejects extra topics", MustTopicFilter(Symbol("mint")), []xdr.ScVal{sym("mint"), u32(7)}, false},
		{"trailing rest after value", MustTopicFilter(Symbol("mint"), Rest()), []xdr.ScVal{sym("mint")}, true},
		{"trailing rest after many", MustTopicFilter(Symbol("mint"), Rest()), []xdr.ScVal{sym("mint"), u32(1), u32(2)}, true},
		{"type sensitive", MustTopicFilter(Value(u32(1))), []xdr.ScVal{sym("1")}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := tt.filter.Matches(tt.topics)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, ok)
		})
	}
}

func TestTopicFilterIsPure(t *testing.T) {
	tf := MustTopicFilter(Symbol("transfer"), Any(), Rest())
	topics := []xdr.ScVal{sym("transfer"), u32(1), u32(2)}

	first, err := tf.Matches(topics)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := tf.Matches(topics)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestTopicFilterNoTopics(t *testing.T) {
	_, err := MustTopicFilter(Rest()).Matches(nil)
	assert.ErrorIs(t, err, ErrNoTopics)
}

func TestTopicFilterUnencodableTopic(t *testing.T) {
	bad := xdr.ScVal{Type: xdr.ScValType(-1)}

	_, err := MustTopicFilter(Symbol("mint")).Matches([]xdr.ScVal{bad})
	assert.ErrorIs(t, err, ErrSegmentComparison)

	// wildcards never encode the topic
	ok, err := MustTopicFilter(Any()).Matches([]xdr.ScVal{bad})
	require.NoError(t, err)
	assert.True(t, ok)

	f, err := NewEventFilter(Spec{Topics: []TopicFilter{MustTopicFilter(Symbol("mint"), Rest())}})
	require.NoError(t, err)
	_, err = MatchAny([]*EventFilter{f}, models.Event{ID: "0000000001-0000000001", Type: models.EventTypeContract, Topics: []xdr.ScVal{bad}})
	assert.ErrorIs(t, err, ErrSegmentComparison)
}

func TestNewTopicFilterValidation(t *testing.T) {
	_, err := NewTopicFilter()
	assert.Error(t, err)

	_, err = NewTopicFilter(Rest(), Symbol("mint"))
	assert.Error(t, err)

	_, err = NewTopicFilter(Symbol("mint"), Rest())
	assert.NoError(t, err)
}

func TestParseTopicFilter(t *testing.T) {
	encoded, err := xdr.MarshalBase64(u32(9))
	require.NoError(t, err)

	tf, err := ParseTopicFilter([]string{"symbol:mint", "*", encoded, "**"})
	require.NoError(t, err)
	assert.Len(t, tf.Segments(), 4)

	ok, err := tf.Matches([]xdr.ScVal{sym("mint"), sym("x"), u32(9), u32(3)})
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = ParseTopicFilter([]string{"not-base64!"})
	assert.Error(t, err)
}

func TestEventFilterDisjunction(t *testing.T) {
	f, err := NewEventFilter(Spec{
		Topics: []TopicFilter{
			MustTopicFilter(Symbol("mint"), Rest()),
			MustTopicFilter(Symbol("burn"), Any()),
		},
	})
	require.NoError(t, err)

	tests := []struct {
		name     string
		topics   []xdr.ScVal
		expected bool
	}{
		{"first filter", []xdr.ScVal{sym("mint"), u32(1), u32(2)}, true},
		{"second filter", []xdr.ScVal{sym("burn"), u32(1)}, true},
		{"neither", []xdr.ScVal{sym("transfer"), u32(1)}, false},
		{"second filter wrong length", []xdr.ScVal{sym("burn")}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := f.MatchesTopics(tt.topics)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, ok)
		})
	}
}

func TestEventFilterDimensions(t *testing.T) {
	tracked := contractKey(t, 1)
	other := contractKey(t, 2)

	f, err := NewEventFilter(Spec{
		Type:        models.EventTypeContract,
		ContractIDs: []string{tracked},
		Topics:      []TopicFilter{MustTopicFilter(Symbol("mint"), Rest())},
	})
	require.NoError(t, err)

	assert.True(t, f.MatchesType(models.EventTypeContract))
	assert.False(t, f.MatchesType(models.EventTypeSystem))
	assert.True(t, f.MatchesContractID(tracked))
	assert.False(t, f.MatchesContractID(other))

	ev := models.Event{ID: "x", Type: models.EventTypeContract, ContractID: tracked, Topics: []xdr.ScVal{sym("mint")}}
	ok, err := f.Matches(ev)
	require.NoError(t, err)
	assert.True(t, ok)

	ev.ContractID = other
	ok, err = f.Matches(ev)
	require.NoError(t, err)
	assert.False(t, ok)

	ev.ContractID = tracked
	ev.Topics = nil
	_, err = f.Matches(ev)
	assert.ErrorIs(t, err, ErrNoTopics)
}

func TestEmptyFilterMatchesEverything(t *testing.T) {
	f, err := NewEventFilter(Spec{})
	require.NoError(t, err)

	ok, err := f.Matches(models.Event{Type: models.EventTypeSystem})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = MatchAny(nil, models.Event{Type: models.EventTypeDiagnostic})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestNewEventFilterLimits(t *testing.T) {
	ids := make([]string, MaxContractIDs+1)
	for i := range ids {
		ids[i] = contractKey(t, byte(i+1))
	}
	_, err := NewEventFilter(Spec{ContractIDs: ids})
	assert.Error(t, err)

	topics := make([]TopicFilter, MaxTopicFilters+1)
	for i := range topics {
		topics[i] = MustTopicFilter(Any())
	}
	_, err = NewEventFilter(Spec{Topics: topics})
	assert.Error(t, err)

	_, err = NewEventFilter(Spec{ContractIDs: []string{"not-a-contract"}})
	assert.Error(t, err)

	_, err = NewEventFilter(Spec{Type: "bogus"})
	assert.Error(t, err)

	_, err = NewEventFilter(Spec{Topics: []TopicFilter{{}}})
	assert.Error(t, err)
}

func TestValidateSet(t *testing.T) {
	f, err := NewEventFilter(Spec{})
	require.NoError(t, err)

	assert.NoError(t, ValidateSet([]*EventFilter{f}))
	assert.ErrorIs(t, ValidateSet([]*EventFilter{f, f, f, f, f, f}), ErrTooManyFilters)
	assert.Error(t, ValidateSet([]*EventFilter{nil}))
}
