package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFitActivityTemperature(t *testing.T) {
	act := hourTable(t, "time,m1\n0,1\n10,2\n20,3\n30,4\n")
	// temperature = 36 + 0.5 * activity, plus a row with no activity partner
	temp := hourTable(t, "time,m1\n0,36.5\n10,37\n20,37.5\n30,38\n40,40\n")

	fit, err := FitActivityTemperature(act, temp, "m1")
	require.NoError(t, err)
	assert.Equal(t, "m1", fit.Subject)
	assert.Equal(t, 4, fit.N)
	assert.InDelta(t, 0.5, fit.Slope, 1e-9)
	assert.InDelta(t, 36.0, fit.Intercept, 1e-9)
	assert.InDelta(t, 1.0, fit.R, 1e-9)
}

func TestFitActivityTemperatureDropsMissingPairs(t *testing.T) {
	act := hourTable(t, "time,m1\n0,1\n10,NA\n20,3\n30,5\n")
	temp := hourTable(t, "time,m1\n0,10\n10,11\n20,8\n30,\n")

	fit, err := FitActivityTemperature(act, temp, "m1")
	require.NoError(t, err)
	assert.Equal(t, 2, fit.N)
	assert.InDelta(t, -1.0, fit.Slope, 1e-9)
	assert.InDelta(t, 11.0, fit.Intercept, 1e-9)
	assert.InDelta(t, -1.0, fit.R, 1e-9)
}

func TestFitActivityTemperatureFirstTemperatureRowWins(t *testing.T) {
	act := hourTable(t, "time,m1\n0,1\n10,2\n")
	temp := hourTable(t, "time,m1\n0,5\n0,100\n10,7\n")

	fit, err := FitActivityTemperature(act, temp, "m1")
	require.NoError(t, err)
	assert.InDelta(t, 2.0, fit.Slope, 1e-9)
}

func TestFitActivityTemperatureErrors(t *testing.T) {
	act := hourTable(t, "time,m1,flat\n0,1,2\n10,2,2\n")
	temp := hourTable(t, "time,m1,flat\n0,36,36\n20,37,37\n")
	full := hourTable(t, "time,m1,flat\n0,36,36\n10,37,37\n")

	_, err := FitActivityTemperature(act, temp, "m1")
	assert.ErrorIs(t, err, ErrInsufficientData)

	_, err = FitActivityTemperature(act, full, "flat")
	assert.ErrorIs(t, err, ErrInsufficientData)

	_, err = FitActivityTemperature(act, full, "m9")
	assert.ErrorIs(t, err, ErrUnknownSubject)
}

func TestCommonSubjects(t *testing.T) {
	act := hourTable(t, "time,a,b,c\n0,1,2,3\n")
	temp := hourTable(t, "time,c,a\n0,1,2\n")

	assert.Equal(t, []string{"a", "c"}, commonSubjects(act, temp))
}
