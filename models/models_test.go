package models

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateSessionRequestValidate(t *testing.T) {
	r := CreateSessionRequest{Name: "  Standup  "}
	require.NoError(t, r.Validate())
	assert.Equal(t, "Standup", r.Name)

	assert.Error(t, (&CreateSessionRequest{Name: "   "}).Validate())
	assert.Error(t, (&CreateSessionRequest{Name: strings.Repeat("x", 101)}).Validate())
}

func TestJoinSessionRequestValidate(t *testing.T) {
	r := JoinSessionRequest{Code: " k93f2 ", Name: " Ana "}
	require.NoError(t, r.Validate())
	assert.Equal(t, "K93F2", r.Code)
	assert.Equal(t, "Ana", r.Name)

	assert.Error(t, (&JoinSessionRequest{Code: "K93F2", Name: ""}).Validate())
	assert.Error(t, (&JoinSessionRequest{Code: "", Name: "Ana"}).Validate())
}

func TestCreateReplyRequestBlankSender(t *testing.T) {
	blank := "   "
	r := CreateReplyRequest{Content: " You're not alone ", Sender: &blank}
	require.NoError(t, r.Validate())
	assert.Equal(t, "You're not alone", r.Content)
	assert.Nil(t, r.Sender)
}

func TestContentLimit(t *testing.T) {
	assert.NoError(t, (&CreateMessageRequest{Content: strings.Repeat("é", MaxContentLength)}).Validate())
	assert.Error(t, (&CreateMessageRequest{Content: strings.Repeat("é", MaxContentLength+1)}).Validate())
}

func TestReportEmotionRequestDefaultsLabel(t *testing.T) {
	r := ReportEmotionRequest{Emotion: "😔"}
	require.NoError(t, r.Validate())
	assert.Equal(t, "Sad", r.Label)

	assert.Error(t, (&ReportEmotionRequest{Emotion: "🦄"}).Validate(), "unknown emoji needs a label")
	assert.NoError(t, (&ReportEmotionRequest{Emotion: "🦄", Label: "Curious"}).Validate())
}

func TestLookupEmotion(t *testing.T) {
	for _, in := range []string{"happy", "Happy", "😊"} {
		c, ok := LookupEmotion(in)
		require.True(t, ok, in)
		assert.Equal(t, "Happy", c.Label)
	}
	_, ok := LookupEmotion("bored")
	assert.False(t, ok)
}

func TestParseSessionStatus(t *testing.T) {
	s, err := ParseSessionStatus("ACTIVE")
	require.NoError(t, err)
	assert.Equal(t, SessionActive, s)

	s, err = ParseSessionStatus("")
	require.NoError(t, err)
	assert.Empty(t, s)

	_, err = ParseSessionStatus("paused")
	assert.Error(t, err)
}
