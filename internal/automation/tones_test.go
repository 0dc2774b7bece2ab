package automation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadTones(t *testing.T) {
	tones, err := LoadTones()
	require.NoError(t, err)

	names := tones.Names()
	assert.Contains(t, names, "friendly")
	assert.Contains(t, names, "professional")

	for _, name := range names {
		tone := tones.Get(name)
		assert.Equal(t, name, tone.Name)
		assert.NotEmpty(t, tone.System, "tone %q has no system prompt", name)
	}
}

func TestToneSet_UnknownFallsBackToDefault(t *testing.T) {
	tones, err := LoadTones()
	require.NoError(t, err)

	tone := tones.Get("sarcastic")
	assert.Equal(t, DefaultTone, tone.Name)
}

func TestParseTones_MissingDefaultRejected(t *testing.T) {
	_, err := ParseTones([]byte("formal:\n  system: Be formal.\n"))
	require.Error(t, err)
}

func TestBuildPrompt(t *testing.T) {
	prompt := buildPrompt(GenerateRequest{
		Provider:    "instagram",
		AuthorName:  "Sam",
		CommentText: "love it",
	})

	assert.Contains(t, prompt, "Platform: instagram")
	assert.Contains(t, prompt, "Commenter: Sam")
	assert.Contains(t, prompt, "Comment: love it")
}
