package csvimport

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timesheet/internal/domain/errs"
)

func TestReadMatchesHeadersCaseInsensitively(t *testing.T) {
	rows, err := Read(strings.NewReader("Name,StartDate,isBillable\nAlpha,2024-02-01,TRUE\n\n,,\nBeta,2024-03-01,\n"), "name", "startDate")
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "Alpha", rows[0].Get("name"))
	assert.Equal(t, 1, rows[0].Line())
	billable, err := rows[0].Bool("isBillable")
	require.NoError(t, err)
	assert.True(t, billable)

	start, err := rows[1].Date("startDate")
	require.NoError(t, err)
	require.NotNil(t, start)
	assert.Equal(t, "2024-03-01", start.Format("2006-01-02"))
	assert.Equal(t, 2, rows[1].Line())
}

func TestReadRejectsBadFiles(t *testing.T) {
	cases := []struct {
		name  string
		input string
		field string
	}{
		{"empty", "", "file"},
		{"missing column", "name\nAlpha\n", "file"},
		{"unterminated quote", "name,startDate\n\"Alpha,2024-01-01\n", "file"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Read(strings.NewReader(tc.input), "name", "startDate")
			require.ErrorIs(t, err, errs.ErrValidation)
			field, _, _ := errs.Field(err)
			assert.Equal(t, tc.field, field)
		})
	}
}

func TestRowErrorsNameTheRow(t *testing.T) {
	rows, err := Read(strings.NewReader("name,hours,due\nAlpha,1.5,2024-01-01\n,abc,01/02/2024\n"), "name")
	require.NoError(t, err)
	require.Len(t, rows, 2)

	hours, err := rows[0].Float("hours")
	require.NoError(t, err)
	assert.Equal(t, 1.5, *hours)

	field, _, _ := errs.Field(rows[1].Require("name"))
	assert.Equal(t, "rows[2].name", field)
	_, err = rows[1].Float("hours")
	field, _, _ = errs.Field(err)
	assert.Equal(t, "rows[2].hours", field)
	_, err = rows[1].Date("due")
	field, _, _ = errs.Field(err)
	assert.Equal(t, "rows[2].due", field)
}
