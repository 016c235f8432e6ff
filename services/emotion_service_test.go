package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/akinalp/emocircle/models"
)

func participantsWith(pairs ...string) []models.Participant {
	var out []models.Participant
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, models.Participant{Emotion: pairs[i], EmotionLabel: pairs[i+1]})
	}
	return out
}

func TestSummarizeEmotionsEmpty(t *testing.T) {
	summary := SummarizeEmotions(nil, true)
	assert.NotNil(t, summary)
	assert.Empty(t, summary)
}

func TestSummarizeEmotionsTableOrder(t *testing.T) {
	summary := SummarizeEmotions(participantsWith(
		"😔", "Sad",
		"😐", "neutral",
		"😊", "Happy",
	), false)

	var labels []string
	for _, s := range summary {
		labels = append(labels, s.Emotion)
	}
	assert.Equal(t, []string{"Happy", "Neutral", "Sad"}, labels)
}

func TestSummarizeEmotionsRoundsIndependently(t *testing.T) {
	// 1/3 each: 33+33+33 = 99, accepted rather than corrected.
	summary := SummarizeEmotions(participantsWith(
		"😊", "Happy",
		"😐", "Neutral",
		"😔", "Sad",
	), false)

	total := 0
	for _, s := range summary {
		assert.Equal(t, 33, s.Percentage)
		total += s.Percentage
	}
	assert.Equal(t, 99, total)
}

func TestSummarizeEmotionsIncludeZero(t *testing.T) {
	summary := SummarizeEmotions(participantsWith("😊", "Happy"), true)
	assert.Len(t, summary, len(models.EmotionCategories))
	assert.Equal(t, 100, summary[0].Percentage)
	for _, s := range summary[1:] {
		assert.Zero(t, s.Percentage)
	}
}

func TestSummarizeEmotionsMatchesByEmojiOrLabel(t *testing.T) {
	summary := SummarizeEmotions(participantsWith(
		"😟", "",
		"?", "WORRIED",
		"🦄", "Curious",
		"😊", "Sad", // label wins over emoji
	), false)

	assert.Equal(t, []models.EmotionSummary{
		{Emotion: "Worried", Percentage: 50, Count: 2, Color: "#FFA500", Emoji: "😟"},
		{Emotion: "Sad", Percentage: 25, Count: 1, Color: "#FF6B6B", Emoji: "😔"},
	}, summary)
}

func TestSummarizeEmotionsPercentagesInRange(t *testing.T) {
	summary := SummarizeEmotions(participantsWith(
		"😊", "Happy", "😊", "Happy", "🤩", "Excited",
		"😐", "Neutral", "😟", "Worried", "😔", "Sad", "😔", "Sad",
	), false)

	total := 0
	for _, s := range summary {
		assert.GreaterOrEqual(t, s.Percentage, 0)
		assert.LessOrEqual(t, s.Percentage, 100)
		assert.NotZero(t, s.Count)
		total += s.Percentage
	}
	assert.InDelta(t, 100, total, float64(len(summary)))
}
