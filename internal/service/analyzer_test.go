package service

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swifty-uz/taskbot/internal/config"
	"github.com/swifty-uz/taskbot/internal/domain"
)

func TestExtractJSON(t *testing.T) {
	plain := `{"title":"отчёт"}`
	assert.Equal(t, plain, extractJSON(plain))

	fenced := "Вот результат:\n```json\n{\"title\":\"отчёт\"}\n```\nГотово."
	assert.Equal(t, "{\"title\":\"отчёт\"}", extractJSON(fenced))

	prose := "Конечно! {\"title\":\"отчёт\"} — вот так."
	assert.Equal(t, `{"title":"отчёт"}`, extractJSON(prose))

	assert.Empty(t, extractJSON("никакого json здесь нет"))
	assert.Empty(t, extractJSON(""))
}

func TestClampTitle(t *testing.T) {
	assert.Equal(t, "короткое название", clampTitle("короткое название"))

	long := strings.Repeat("а", 80)
	clamped := clampTitle(long)
	assert.LessOrEqual(t, len([]rune(clamped)), config.MaxTitleLen)
	assert.True(t, strings.HasSuffix(clamped, "…"))
}

func TestParseDueDate(t *testing.T) {
	due, err := ParseDueDate("2026-09-01")
	require.NoError(t, err)
	require.NotNil(t, due)
	assert.Equal(t, time.Date(2026, 9, 1, 18, 0, 0, 0, time.UTC), due.UTC())

	due, err = ParseDueDate("01.09.2026")
	require.NoError(t, err)
	require.NotNil(t, due)
	assert.Equal(t, 18, due.Hour())

	due, err = ParseDueDate("2026-09-01T12:30:00Z")
	require.NoError(t, err)
	require.NotNil(t, due)
	assert.Equal(t, 12, due.Hour())

	due, err = ParseDueDate("")
	require.NoError(t, err)
	assert.Nil(t, due)

	due, err = ParseDueDate("null")
	require.NoError(t, err)
	assert.Nil(t, due)

	_, err = ParseDueDate("завтра")
	assert.ErrorIs(t, err, domain.ErrInvalidDueDate)
}
