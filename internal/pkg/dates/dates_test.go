package dates

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertDateFormat_Canonicalizes(t *testing.T) {
	got, ok := ConvertDateFormat("1/5/2024")
	require.True(t, ok)
	assert.Equal(t, "01/05/2024", got)

	got, ok = ConvertDateFormat("12-31-2024")
	require.True(t, ok)
	assert.Equal(t, "12/31/2024", got)
}

func TestConvertDateFormat_LeapYear(t *testing.T) {
	_, ok := ConvertDateFormat("02/29/2024")
	assert.True(t, ok, "2024 is a leap year")

	_, ok = ConvertDateFormat("02/29/2023")
	assert.False(t, ok, "2023 is not a leap year")
}

func TestConvertDateFormat_CalendarRanges(t *testing.T) {
	_, ok := ConvertDateFormat("13/01/2024")
	assert.False(t, ok, "month 13 is invalid")

	_, ok = ConvertDateFormat("04/31/2024")
	assert.False(t, ok, "April has 30 days")

	_, ok = ConvertDateFormat("01/01/1899")
	assert.False(t, ok, "years before 1900 are rejected")
}

func TestConvertDateFormat_LongForms(t *testing.T) {
	got, ok := ConvertDateFormat("05 October, 2024")
	require.True(t, ok)
	assert.Equal(t, "10/05/2024", got)

	got, ok = ConvertDateFormat("October 5, 2024")
	require.True(t, ok)
	assert.Equal(t, "10/05/2024", got)
}

func TestConvertDateFormat_Garbage(t *testing.T) {
	for _, in := range []string{"", "not-a-date", "2024", "01/01", "aa/bb/cccc"} {
		_, ok := ConvertDateFormat(in)
		assert.False(t, ok, in)
	}
}

func TestCompareDates(t *testing.T) {
	cmp, err := CompareDates("01/01/2024", "01/01/2025")
	require.NoError(t, err)
	assert.Equal(t, Earlier, cmp)

	cmp, err = CompareDates("01/01/2024", "01/01/2023")
	require.NoError(t, err)
	assert.Equal(t, Later, cmp)

	cmp, err = CompareDates("01/01/2024", "01/01/2024")
	require.NoError(t, err)
	assert.Equal(t, Equal, cmp)
}
