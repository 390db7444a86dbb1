package moderation

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestModerator(t *testing.T, words ...string) Moderator {
	t.Helper()
	m, err := NewModerator(words, '*')
	require.NoError(t, err)
	return m
}

func TestModerator_Censor_Replaces_Forbidden_Word(t *testing.T) {
	req := require.New(t)

	// Given
	moderator := newTestModerator(t, "dummy", "idiot")

	// When
	sanitized, found := moderator.Censor("what a dummy move")

	// Then
	req.Equal("what a ***** move", sanitized)
	req.Equal([]string{"dummy"}, found)
}

func TestModerator_Censor_Folds_Leet_Speak(t *testing.T) {
	req := require.New(t)

	// Given
	moderator := newTestModerator(t, "idiot")

	// When
	sanitized, found := moderator.Censor("you 1d10t")

	// Then
	req.Equal("you *****", sanitized)
	req.Equal([]string{"idiot"}, found)
}

func TestModerator_Censor_Is_Case_Insensitive(t *testing.T) {
	req := require.New(t)

	// Given
	moderator := newTestModerator(t, "stupid")

	// When
	sanitized, found := moderator.Censor("STUPID remark")

	// Then
	req.Equal("****** remark", sanitized)
	req.Len(found, 1)
}

func TestModerator_Censor_Leaves_Clean_Text_Untouched(t *testing.T) {
	req := require.New(t)

	// Given
	moderator := newTestModerator(t, "dummy")

	// When
	sanitized, found := moderator.Censor("have a lovely day")

	// Then
	req.Equal("have a lovely day", sanitized)
	req.Empty(found)
}

func TestModerator_Censor_Handles_Empty_Input(t *testing.T) {
	req := require.New(t)

	// Given
	moderator := newTestModerator(t, "dummy")

	// When
	sanitized, found := moderator.Censor("")

	// Then
	req.Equal("", sanitized)
	req.Empty(found)
}

func TestLoadCensoredWords_Loads_Embedded_Dictionaries(t *testing.T) {
	req := require.New(t)

	// When
	data, err := LoadCensoredWords()

	// Then
	req.NoError(err)
	req.NotEmpty(data.Words)
	req.Contains(data.Languages, "en")
	req.Contains(data.Languages, "fr")
	req.Contains(data.Words, "dummy")
}
