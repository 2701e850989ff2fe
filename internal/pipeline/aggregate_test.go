package pipeline

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-activity-pipeline/internal/model"
)

func hourTable(t *testing.T, content string) *HourTable {
	t.Helper()
	ht, err := IndexByHour(mustTable(t, content))
	require.NoError(t, err)
	return ht
}

func TestIndexByHour(t *testing.T) {
	ht := hourTable(t, "time,A\n0,1\n30,3\n90,5\n")

	assert.Equal(t, []float64{0, 0.5, 1.5}, ht.Hours)
	assert.Equal(t, 3, ht.Len())
	assert.Equal(t, []string{"A"}, ht.Subjects())
	a, ok := ht.Values("A")
	require.True(t, ok)
	assert.Equal(t, []float64{1, 3, 5}, a)
}

func TestIndexByHourWithoutTable(t *testing.T) {
	_, err := IndexByHour(nil)
	assert.ErrorIs(t, err, ErrMissingTimeColumn)
}

func TestHourlyMeansTwoHours(t *testing.T) {
	series := HourlyMeans(hourTable(t, "time,A\n0,1\n30,3\n60,5\n90,7\n"))

	require.Equal(t, []int{0, 1}, series.Hours())
	assert.Equal(t, []model.HourlyPoint{
		{Hour: 0, Mean: 2, Rows: 2},
		{Hour: 1, Mean: 6, Rows: 2},
	}, series.Points)
}

func TestHourlyMeansAveragesSubjectMeans(t *testing.T) {
	series := HourlyMeans(hourTable(t, "time,A,B\n0,2,4\n0,4,6\n"))

	mean, ok := series.Value(0)
	require.True(t, ok)
	assert.InDelta(t, 4.0, mean, 1e-12)
}

func TestHourlyMeansUnequalSubjectCounts(t *testing.T) {
	// A has one value in hour 0 and B has two; each subject weighs the same
	series := HourlyMeans(hourTable(t, "time,A,B\n0,10,1\n30,,3\n"))

	mean, _ := series.Value(0)
	assert.InDelta(t, 6.0, mean, 1e-12)
}

func TestHourlyMeansConstantActivity(t *testing.T) {
	series := HourlyMeans(hourTable(t, "time,A,B\n0,7.5,7.5\n10,7.5,7.5\n70,7.5,7.5\n"))
	for _, p := range series.Points {
		assert.Equal(t, 7.5, p.Mean, "hour %d", p.Hour)
	}
}

func TestHourlyMeansOrderedAndUnique(t *testing.T) {
	series := HourlyMeans(hourTable(t, "time,A\n270,1\n0,2\n125,3\n299,4\n61,5\n"))

	assert.Equal(t, []int{0, 1, 2, 4}, series.Hours())
	mean, _ := series.Value(4)
	assert.InDelta(t, 2.5, mean, 1e-12)
	for i := 1; i < len(series.Points); i++ {
		assert.Less(t, series.Points[i-1].Hour, series.Points[i].Hour)
	}
}

func TestHourlyMeansMissingValues(t *testing.T) {
	series := HourlyMeans(hourTable(t, "time,A,B\n0,NA,4\n30,2,x\n60,,\n"))

	mean, _ := series.Value(0)
	assert.InDelta(t, 3.0, mean, 1e-12)

	p := series.Points[1]
	assert.Equal(t, 1, p.Hour)
	assert.Equal(t, 1, p.Rows)
	assert.False(t, p.Defined())
}

func TestHourlyMeansNegativeTimesTruncateTowardZero(t *testing.T) {
	series := HourlyMeans(hourTable(t, "time,A\n-90,1\n-30,3\n30,5\n"))

	assert.Equal(t, []int{-1, 0}, series.Hours())
	mean, _ := series.Value(0)
	assert.InDelta(t, 4.0, mean, 1e-12)
}

func TestHourlyMeansHeaderOnly(t *testing.T) {
	series := HourlyMeans(hourTable(t, "time,A,B\n"))
	assert.Empty(t, series.Points)
}

func TestHourlyMeansIsDeterministic(t *testing.T) {
	ht := hourTable(t, "time,A,B,C\n0,1,2,3\n45,4,5,6\n61,7,8,9\n130,1,1,1\n")
	first := HourlyMeans(ht)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, HourlyMeans(ht))
	}
}

func TestSelectSubjects(t *testing.T) {
	ht := hourTable(t, "time,A,B,C\n0,1,100,3\n")

	picked, err := SelectSubjects(ht, "C", "A", "C")
	require.NoError(t, err)
	assert.Equal(t, []string{"C", "A"}, picked.Subjects())
	mean, _ := HourlyMeans(picked).Value(0)
	assert.InDelta(t, 2.0, mean, 1e-12)

	all, err := SelectSubjects(ht)
	require.NoError(t, err)
	assert.Same(t, ht, all)

	_, err = SelectSubjects(ht, "Z")
	assert.ErrorIs(t, err, ErrUnknownSubject)
}

func TestSubjectHourlyMeans(t *testing.T) {
	ht := hourTable(t, "time,A,B\n0,1,2\n30,3,\n60,5,6\n")
	series := SubjectHourlyMeans(ht)

	require.Len(t, series, 2)
	assert.Equal(t, "A", series[0].Subject)
	assert.Equal(t, []model.HourlyPoint{{Hour: 0, Mean: 2, Rows: 2}, {Hour: 1, Mean: 5, Rows: 1}}, series[0].Points)
	assert.Equal(t, "B", series[1].Subject)
	b0, _ := series[1].Value(0)
	assert.Equal(t, 2.0, b0)
}

func TestFiniteMean(t *testing.T) {
	mean, ok := finiteMean([]float64{1, math.NaN(), 3})
	assert.True(t, ok)
	assert.Equal(t, 2.0, mean)

	mean, ok = finiteMean([]float64{math.NaN()})
	assert.False(t, ok)
	assert.True(t, math.IsNaN(mean))

	_, ok = finiteMean(nil)
	assert.False(t, ok)
}
