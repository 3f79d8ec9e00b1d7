package model_test

import (
	"testing"
	"time"

	"github.com/bibliotek/biblioteca-service/biblioteca/internal/model"
	"github.com/stretchr/testify/require"
)

func TestDaysLate(t *testing.T) {
	due := time.Date(2024, 5, 25, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		returned time.Time
		want     int
	}{
		{name: "on time", returned: due, want: 0},
		{name: "early", returned: due.Add(-48 * time.Hour), want: -2},
		{name: "under a day counts as zero", returned: due.Add(23 * time.Hour), want: 0},
		{name: "one day", returned: due.Add(24 * time.Hour), want: 1},
		{name: "partial second day rounds down", returned: due.Add(36 * time.Hour), want: 1},
		{name: "three days", returned: due.Add(72 * time.Hour), want: 3},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, model.DaysLate(due, tt.returned))
		})
	}
}

func TestLateFineAmount(t *testing.T) {
	require.Equal(t, 5.0, model.LateFineAmount(5, 0))
	require.Equal(t, 5.0, model.LateFineAmount(5, 1))
	require.Equal(t, 15.0, model.LateFineAmount(5, 3))
	require.Equal(t, 5.0, model.LateFineAmount(5, -2))
}
