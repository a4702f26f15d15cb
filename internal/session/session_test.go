package session

import (
	"context"
	"errors"
	"testing"

	"github.com/nconklindev/csvrange/internal/slicer"
	"github.com/nconklindev/csvrange/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockLoader struct {
	mock.Mock
}

func (m *MockLoader) Load(ctx context.Context, path string, progress chan<- float64) (*types.Table, error) {
	args := m.Called(ctx, path, progress)
	table, _ := args.Get(0).(*types.Table)
	return table, args.Error(1)
}

func people() *types.Table {
	return &types.Table{
		Path:   "people.csv",
		Header: []string{"name", "age"},
		Rows:   [][]string{{"Ann", "30"}, {"Bo", "25"}, {"Cy", "40"}},
	}
}

func TestSession_InitialDisplay(t *testing.T) {
	s := New(slicer.DefaultRange())

	assert.Equal(t, DisplayPrompt, s.Display())
	_, _, ok := s.Output()
	assert.False(t, ok)
}

func TestSession_RangeWithoutFile(t *testing.T) {
	s := New(slicer.DefaultRange())

	s.SetStart("5")

	assert.Equal(t, DisplayPlaceholder, s.Display())
	assert.Equal(t, types.Range{Start: 5, End: 100}, s.Range())
}

func TestSession_LoadAndSlice(t *testing.T) {
	loader := &MockLoader{}
	loader.On("Load", mock.Anything, "people.csv", mock.Anything).Return(people(), nil).Once()

	s := New(types.Range{Start: 1, End: 3})
	require.NoError(t, s.Load(context.Background(), loader, "people.csv", nil))

	out, reason, ok := s.Output()
	require.True(t, ok)
	assert.Equal(t, DisplayTable, s.Display())
	assert.Equal(t, types.ReasonNone, reason)
	assert.Equal(t, []string{"name", "age"}, out.Header)
	assert.Equal(t, [][]string{{"Bo", "25"}, {"Cy", "40"}}, out.Rows)

	loader.AssertExpectations(t)
}

func TestSession_RangeChangeDoesNotReparse(t *testing.T) {
	loader := &MockLoader{}
	loader.On("Load", mock.Anything, "people.csv", mock.Anything).Return(people(), nil).Once()

	s := New(types.Range{Start: 1, End: 3})
	require.NoError(t, s.Load(context.Background(), loader, "people.csv", nil))

	assert.True(t, s.SetEnd("2"))
	out, _, _ := s.Output()
	assert.Equal(t, [][]string{{"Bo", "25"}}, out.Rows)

	assert.True(t, s.SetStart("1"))
	assert.True(t, s.SetEnd("50"))
	out, _, _ = s.Output()
	assert.Equal(t, [][]string{{"Bo", "25"}, {"Cy", "40"}}, out.Rows)

	loader.AssertNumberOfCalls(t, "Load", 1)
}

func TestSession_RejectedRangeKeepsPrevious(t *testing.T) {
	s := New(types.Range{Start: 2, End: 10})

	tests := []struct {
		name  string
		apply func() bool
	}{
		{"Start equal to end", func() bool { return s.SetStart("10") }},
		{"End below start", func() bool { return s.SetEnd("1") }},
		{"End too large", func() bool { return s.SetEnd("1000000") }},
		{"End overflows int", func() bool { return s.SetEnd("99999999999999999999") }},
		{"Start overflows int", func() bool { return s.SetStart("99999999999999999999") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.False(t, tt.apply())
			assert.Equal(t, types.Range{Start: 2, End: 10}, s.Range())
		})
	}
}

func TestSession_EmptyInputFallsBack(t *testing.T) {
	s := New(types.Range{Start: 5, End: 10})

	// An empty start reads as 1, an empty end as 100.
	assert.True(t, s.SetStart(""))
	assert.True(t, s.SetEnd(""))
	assert.Equal(t, types.Range{Start: 1, End: 100}, s.Range())
}

func TestSession_SelectClearsMemo(t *testing.T) {
	loader := &MockLoader{}
	loader.On("Load", mock.Anything, "people.csv", mock.Anything).Return(people(), nil)

	s := New(types.Range{Start: 1, End: 3})
	require.NoError(t, s.Load(context.Background(), loader, "people.csv", nil))
	_, _, ok := s.Output()
	require.True(t, ok)

	s.Select("other.csv")

	_, has := s.Table()
	assert.False(t, has)
	_, _, ok = s.Output()
	assert.False(t, ok)
	assert.Equal(t, DisplayPrompt, s.Display())
	assert.Equal(t, "other.csv", s.Path())
}

func TestSession_StaleResultsDropped(t *testing.T) {
	s := New(types.Range{Start: 1, End: 3})

	first := s.Select("first.csv")
	second := s.Select("second.csv")

	assert.False(t, s.Loaded(first, people()))
	assert.False(t, s.Failed(first, errors.New("late failure")))
	assert.Equal(t, DisplayPrompt, s.Display())
	assert.NoError(t, s.Err())

	table := people()
	table.Rows = [][]string{{"Di", "22"}, {"Ed", "31"}}
	assert.True(t, s.Loaded(second, table))

	out, _, ok := s.Output()
	require.True(t, ok)
	assert.Equal(t, [][]string{{"Ed", "31"}}, out.Rows)
}

func TestSession_LoadFailure(t *testing.T) {
	parseErr := errors.New("bad csv")
	loader := &MockLoader{}
	loader.On("Load", mock.Anything, "broken.csv", mock.Anything).Return(nil, parseErr)

	s := New(slicer.DefaultRange())
	err := s.Load(context.Background(), loader, "broken.csv", nil)

	assert.ErrorIs(t, err, parseErr)
	assert.ErrorIs(t, s.Err(), parseErr)
	assert.Equal(t, DisplayPrompt, s.Display())
}

func TestSession_LoadWithoutPath(t *testing.T) {
	loader := &MockLoader{}
	s := New(slicer.DefaultRange())

	assert.NoError(t, s.Load(context.Background(), loader, "", nil))
	assert.Equal(t, uint64(0), s.Generation())
	loader.AssertNotCalled(t, "Load", mock.Anything, mock.Anything, mock.Anything)
}

func TestSession_OutputIsStable(t *testing.T) {
	s := New(types.Range{Start: 1, End: 3})
	s.Loaded(s.Select("people.csv"), people())

	first, _, _ := s.Output()
	second, _, _ := s.Output()

	assert.Equal(t, first, second)
	assert.Equal(t, people().Rows, s.table.Rows)
}

func TestLoaderFunc(t *testing.T) {
	called := false
	var l Loader = LoaderFunc(func(ctx context.Context, path string, progress chan<- float64) (*types.Table, error) {
		called = true
		return people(), nil
	})

	table, err := l.Load(context.Background(), "people.csv", nil)
	require.NoError(t, err)
	assert.True(t, called)
	assert.Equal(t, "people.csv", table.Path)
}
