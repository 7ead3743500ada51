package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNextMeeting(t *testing.T) {
	t.Parallel()

	tests := []struct {
		label string
		want  string
	}{
		{"Quinta-feira", "2024-03-07"},
		{"quarta-feira", "2024-03-06"},
		{"Terça-feira", "2024-03-12"},
		{"terca", "2024-03-12"},
		{" SÁBADO ", "2024-03-09"},
		{"Domingo", "2024-03-10"},
		{"segunda", "2024-03-11"},
		{"Sexta feira", "2024-03-08"},
		{"Feriado", "Feriado"},
		{"", ""},
		{"Thursday", "Thursday"},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			assert.Equal(t, tt.want, NextMeeting(tt.label, fixedNow))
		})
	}
}

func TestNextMeeting_CrossesMonthEnd(t *testing.T) {
	t.Parallel()
	friday := time.Date(2024, time.March, 29, 23, 0, 0, 0, time.UTC)
	assert.Equal(t, "2024-04-01", NextMeeting("Segunda-feira", friday))
}

func TestParseWeekdayAndLabel(t *testing.T) {
	t.Parallel()
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		got, ok := ParseWeekday(WeekdayLabel(wd))
		assert.True(t, ok, WeekdayLabel(wd))
		assert.Equal(t, wd, got)
	}
	_, ok := ParseWeekday("amanhã")
	assert.False(t, ok)
}
