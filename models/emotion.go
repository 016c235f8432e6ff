package models

import "strings"

// EmotionCategory is one row of the fixed category table.
type EmotionCategory struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Emoji string `json:"emoji"`
	Color string `json:"color"`
}

// EmotionCategories is the fixed table, in display order.
var EmotionCategories = []EmotionCategory{
	{Key: "happy", Label: "Happy", Emoji: "😊", Color: "#FFD700"},
	{Key: "excited", Label: "Excited", Emoji: "🤩", Color: "#A8E6CF"},
	{Key: "neutral", Label: "Neutral", Emoji: "😐", Color: "#87CEEB"},
	{Key: "worried", Label: "Worried", Emoji: "😟", Color: "#FFA500"},
	{Key: "sad", Label: "Sad", Emoji: "😔", Color: "#FF6B6B"},
}

// DefaultEmotion is assigned to every participant on join.
var DefaultEmotion = EmotionCategories[0]

// CategoryOf resolves a participant snapshot to a category. The label wins
// (case-insensitive, label or key); the emoji is the fallback.
func CategoryOf(emoji, label string) (EmotionCategory, bool) {
	label = strings.TrimSpace(label)
	for _, c := range EmotionCategories {
		if strings.EqualFold(label, c.Label) || strings.EqualFold(label, c.Key) {
			return c, true
		}
	}
	emoji = strings.TrimSpace(emoji)
	for _, c := range EmotionCategories {
		if emoji == c.Emoji {
			return c, true
		}
	}
	return EmotionCategory{}, false
}

// LookupEmotion finds a category by emoji, key or label.
func LookupEmotion(s string) (EmotionCategory, bool) {
	return CategoryOf(s, s)
}

// EmotionSummary is the derived share of participants in one category.
type EmotionSummary struct {
	Emotion    string `json:"emotion"`
	Percentage int    `json:"percentage"`
	Count      int    `json:"count"`
	Color      string `json:"color"`
	Emoji      string `json:"emoji"`
}
