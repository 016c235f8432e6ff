package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akinalp/emocircle/database"
	"github.com/akinalp/emocircle/models"
	"github.com/akinalp/emocircle/pkg"
	"github.com/akinalp/emocircle/pkg/metrics"
	"github.com/akinalp/emocircle/repository"
	"github.com/akinalp/emocircle/ws"
)

const facilitator = "fac-1"

// recordingPublisher captures published events per session.
type recordingPublisher struct {
	mu     sync.Mutex
	events map[int64][]ws.Event
	closed map[int64]bool
	subs   int
}

func newRecordingPublisher() *recordingPublisher {
	return &recordingPublisher{events: map[int64][]ws.Event{}, closed: map[int64]bool{}, subs: 1}
}

func (p *recordingPublisher) PublishToSession(sessionID int64, event ws.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events[sessionID] = append(p.events[sessionID], event)
}

func (p *recordingPublisher) CloseSession(sessionID int64, event ws.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events[sessionID] = append(p.events[sessionID], event)
	p.closed[sessionID] = true
}

func (p *recordingPublisher) SubscriberCount(int64) int { return p.subs }

func (p *recordingPublisher) ops(sessionID int64) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var ops []string
	for _, e := range p.events[sessionID] {
		ops = append(ops, e.Op)
	}
	return ops
}

type testEnv struct {
	db       *database.DB
	pub      *recordingPublisher
	feed     *ChangeFeed
	sessions SessionService
	messages MessageService
	emotions EmotionService
	sync     SyncService
}

type envOption func(*SessionOptions, *SenderPolicy)

func withCodes(codes ...string) envOption {
	return func(o *SessionOptions, _ *SenderPolicy) {
		var mu sync.Mutex
		o.GenerateCode = func(int) (string, error) {
			mu.Lock()
			defer mu.Unlock()
			code := codes[0]
			if len(codes) > 1 {
				codes = codes[1:]
			}
			return code, nil
		}
	}
}

func withCodeReuse(reuse bool) envOption {
	return func(o *SessionOptions, _ *SenderPolicy) { o.CodeReuse = reuse }
}

func withSenderPolicy(p SenderPolicy) envOption {
	return func(_ *SessionOptions, sp *SenderPolicy) { *sp = p }
}

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()

	db, err := database.New(filepath.Join(t.TempDir(), "test.db"), database.Migrations(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	sessionOpts := SessionOptions{CodeLength: 6, CodeReuse: true}
	policy := SenderAnonymous
	for _, opt := range opts {
		opt(&sessionOpts, &policy)
	}

	repos := repository.NewSQLiteRepos(db.Conn)
	pub := newRecordingPublisher()
	feed := NewChangeFeed(pub, nil)
	sessions := NewSessionService(db.Conn, repos, feed, sessionOpts)
	syncSvc := NewSyncService(db.Conn, repos, sessions, feed, nil, false)
	t.Cleanup(syncSvc.Close)

	return &testEnv{
		db:       db,
		pub:      pub,
		feed:     feed,
		sessions: sessions,
		messages: NewMessageService(repos, feed, policy),
		emotions: NewEmotionService(repos, feed, false),
		sync:     syncSvc,
	}
}

func (e *testEnv) createSession(t *testing.T, name string) *models.Session {
	t.Helper()
	s, err := e.sessions.Create(context.Background(), facilitator, &models.CreateSessionRequest{Name: name})
	require.NoError(t, err)
	return s
}

func (e *testEnv) join(t *testing.T, code, name string) *models.JoinResult {
	t.Helper()
	res, err := e.sessions.Join(context.Background(), &models.JoinSessionRequest{Code: code, Name: name})
	require.NoError(t, err)
	return res
}

func TestCreateAndFindByCodeIgnoresCase(t *testing.T) {
	env := newTestEnv(t, withCodes("K93F2"))
	ctx := context.Background()

	s := env.createSession(t, "Standup")
	assert.Equal(t, "K93F2", s.Code)
	assert.Equal(t, models.SessionActive, s.Status)
	assert.NotZero(t, s.ID)

	found, err := env.sessions.FindByCode(ctx, "k93f2")
	require.NoError(t, err)
	assert.Equal(t, s.ID, found.ID)
}

func TestCreateRejectsBlankName(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.sessions.Create(context.Background(), facilitator, &models.CreateSessionRequest{Name: "  \t"})
	assert.ErrorIs(t, err, pkg.ErrValidation)
}

func TestJoinWithBadCodeIsNotFound(t *testing.T) {
	env := newTestEnv(t)
	env.createSession(t, "Standup")

	_, err := env.sessions.Join(context.Background(), &models.JoinSessionRequest{Code: "ZZZZZ", Name: "Ana"})
	assert.ErrorIs(t, err, pkg.ErrNotFound)
}

func TestJoinRequiresName(t *testing.T) {
	env := newTestEnv(t, withCodes("ABC123"))
	env.createSession(t, "Standup")

	_, err := env.sessions.Join(context.Background(), &models.JoinSessionRequest{Code: "ABC123", Name: " "})
	assert.ErrorIs(t, err, pkg.ErrValidation)
}

func TestJoinAssignsDefaultEmotion(t *testing.T) {
	env := newTestEnv(t, withCodes("ABC123"))
	s := env.createSession(t, "Standup")

	res := env.join(t, "abc123", "Ana")
	assert.Equal(t, s.ID, res.SessionID)
	assert.Equal(t, s.ID, res.Participant.SessionID)
	assert.Equal(t, "😊", res.Participant.Emotion)
	assert.Equal(t, "Happy", res.Participant.EmotionLabel)
	require.Len(t, res.Participants, 1)
	assert.Equal(t, res.Participant.ID, res.Participants[0].ID)

	assert.Contains(t, env.pub.ops(s.ID), ws.OpParticipantJoin)
}

func TestMessageReplyThreading(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	s := env.createSession(t, "Standup")

	msg, err := env.messages.Post(ctx, s.ID, &models.CreateMessageRequest{Content: "I feel overwhelmed"})
	require.NoError(t, err)

	reply, err := env.messages.Reply(ctx, msg.ID, &models.CreateReplyRequest{Content: "You're not alone"})
	require.NoError(t, err)
	assert.Equal(t, msg.ID, reply.MessageID)

	messages, err := env.messages.List(ctx, s.ID)
	require.NoError(t, err)
	require.Len(t, messages, 1, "reply must not appear as a top-level message")
	assert.Equal(t, "I feel overwhelmed", messages[0].Content)
	require.Len(t, messages[0].Replies, 1)
	assert.Equal(t, "You're not alone", messages[0].Replies[0].Content)

	assert.Equal(t, []string{ws.OpMessageCreate, ws.OpReplyCreate}, env.pub.ops(s.ID))
}

func TestMessageOrdering(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	s := env.createSession(t, "Retro")

	var ids []int64
	for _, content := range []string{"first", "second", "third"} {
		m, err := env.messages.Post(ctx, s.ID, &models.CreateMessageRequest{Content: content})
		require.NoError(t, err)
		ids = append(ids, m.ID)
	}
	for _, content := range []string{"r1", "r2", "r3"} {
		_, err := env.messages.Reply(ctx, ids[1], &models.CreateReplyRequest{Content: content})
		require.NoError(t, err)
	}

	messages, err := env.messages.List(ctx, s.ID)
	require.NoError(t, err)
	require.Len(t, messages, 3)
	for i := 1; i < len(messages); i++ {
		assert.Less(t, messages[i-1].ID, messages[i].ID)
		assert.False(t, messages[i].CreatedAt.Before(messages[i-1].CreatedAt))
	}

	replies := messages[1].Replies
	require.Len(t, replies, 3)
	assert.Equal(t, "r1", replies[0].Content)
	assert.Equal(t, "r3", replies[2].Content)
	assert.Empty(t, messages[0].Replies)
}

func TestPostValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	s := env.createSession(t, "Retro")

	_, err := env.messages.Post(ctx, s.ID, &models.CreateMessageRequest{Content: "   "})
	assert.ErrorIs(t, err, pkg.ErrValidation)

	_, err = env.messages.Post(ctx, 9999, &models.CreateMessageRequest{Content: "hi"})
	assert.ErrorIs(t, err, pkg.ErrNotFound)

	_, err = env.messages.Reply(ctx, 9999, &models.CreateReplyRequest{Content: "hi"})
	assert.ErrorIs(t, err, pkg.ErrNotFound)
}

func TestSenderPolicy(t *testing.T) {
	name := "Ana"

	t.Run("anonymous", func(t *testing.T) {
		env := newTestEnv(t)
		ctx := context.Background()
		s := env.createSession(t, "Retro")

		msg, err := env.messages.Post(ctx, s.ID, &models.CreateMessageRequest{Content: "hi", Sender: &name})
		require.NoError(t, err)
		assert.Nil(t, msg.Sender)

		reply, err := env.messages.Reply(ctx, msg.ID, &models.CreateReplyRequest{Content: "hey", Sender: &name})
		require.NoError(t, err)
		assert.Nil(t, reply.Sender)

		messages, err := env.messages.List(ctx, s.ID)
		require.NoError(t, err)
		assert.Nil(t, messages[0].Sender)
		assert.Nil(t, messages[0].Replies[0].Sender)
	})

	t.Run("keep replies", func(t *testing.T) {
		env := newTestEnv(t, withSenderPolicy(SenderKeepReplies))
		ctx := context.Background()
		s := env.createSession(t, "Retro")

		msg, err := env.messages.Post(ctx, s.ID, &models.CreateMessageRequest{Content: "hi", Sender: &name})
		require.NoError(t, err)
		assert.Nil(t, msg.Sender, "message senders are always discarded")

		_, err = env.messages.Reply(ctx, msg.ID, &models.CreateReplyRequest{Content: "hey", Sender: &name})
		require.NoError(t, err)

		messages, err := env.messages.List(ctx, s.ID)
		require.NoError(t, err)
		require.NotNil(t, messages[0].Replies[0].Sender)
		assert.Equal(t, "Ana", *messages[0].Replies[0].Sender)
	})
}

func TestSummarizeHappyHappySad(t *testing.T) {
	env := newTestEnv(t, withCodes("MOOD01"))
	ctx := context.Background()
	s := env.createSession(t, "Standup")

	a := env.join(t, "MOOD01", "A")
	b := env.join(t, "MOOD01", "B")
	c := env.join(t, "MOOD01", "C")

	for _, p := range []struct {
		id    int64
		emoji string
		label string
	}{
		{a.Participant.ID, "😊", "Happy"},
		{b.Participant.ID, "😊", "Happy"},
		{c.Participant.ID, "😔", "Sad"},
	} {
		_, err := env.emotions.Report(ctx, s.ID, p.id, &models.ReportEmotionRequest{Emotion: p.emoji, Label: p.label})
		require.NoError(t, err)
	}

	summary, err := env.emotions.Summarize(ctx, s.ID)
	require.NoError(t, err)
	require.Len(t, summary, 2)
	assert.Equal(t, "Happy", summary[0].Emotion)
	assert.Equal(t, 67, summary[0].Percentage)
	assert.Equal(t, "Sad", summary[1].Emotion)
	assert.Equal(t, 33, summary[1].Percentage)

	again, err := env.emotions.Summarize(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, summary, again)
}

func TestReportEmotionOverwritesSnapshot(t *testing.T) {
	env := newTestEnv(t, withCodes("MOOD02"))
	ctx := context.Background()
	s := env.createSession(t, "Standup")
	p := env.join(t, "MOOD02", "A").Participant

	_, err := env.emotions.Report(ctx, s.ID, p.ID, &models.ReportEmotionRequest{Emotion: "😟", Label: "Worried"})
	require.NoError(t, err)
	updated, err := env.emotions.Report(ctx, s.ID, p.ID, &models.ReportEmotionRequest{Emotion: "🤩"})
	require.NoError(t, err)
	assert.Equal(t, "Excited", updated.EmotionLabel)

	participants, err := env.sync.GetParticipants(ctx, s.ID)
	require.NoError(t, err)
	require.Len(t, participants, 1)
	assert.Equal(t, "🤩", participants[0].Emotion)

	_, err = env.emotions.Report(ctx, s.ID, 9999, &models.ReportEmotionRequest{Emotion: "😊"})
	assert.ErrorIs(t, err, pkg.ErrNotFound)
}

func TestEndSessionBlocksWrites(t *testing.T) {
	env := newTestEnv(t, withCodes("END001"))
	ctx := context.Background()
	s := env.createSession(t, "Standup")
	p := env.join(t, "END001", "A").Participant
	msg, err := env.messages.Post(ctx, s.ID, &models.CreateMessageRequest{Content: "before"})
	require.NoError(t, err)

	ended, err := env.sessions.End(ctx, facilitator, s.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionClosed, ended.Status)
	assert.NotNil(t, ended.EndedAt)
	assert.True(t, env.pub.closed[s.ID])

	_, err = env.messages.Post(ctx, s.ID, &models.CreateMessageRequest{Content: "late"})
	assert.ErrorIs(t, err, pkg.ErrInvalidState)

	_, err = env.messages.Reply(ctx, msg.ID, &models.CreateReplyRequest{Content: "late"})
	assert.ErrorIs(t, err, pkg.ErrInvalidState)

	_, err = env.emotions.Report(ctx, s.ID, p.ID, &models.ReportEmotionRequest{Emotion: "😔"})
	assert.ErrorIs(t, err, pkg.ErrInvalidState)

	_, err = env.sessions.FindByCode(ctx, "END001")
	assert.ErrorIs(t, err, pkg.ErrNotFound)

	_, err = env.sessions.Join(ctx, &models.JoinSessionRequest{Code: "END001", Name: "B"})
	assert.ErrorIs(t, err, pkg.ErrNotFound)

	_, err = env.sessions.End(ctx, facilitator, s.ID)
	assert.ErrorIs(t, err, pkg.ErrInvalidState, "ending twice fails")
}

func TestEndSessionChecksOwner(t *testing.T) {
	env := newTestEnv(t)
	s := env.createSession(t, "Standup")

	_, err := env.sessions.End(context.Background(), "someone-else", s.ID)
	assert.ErrorIs(t, err, pkg.ErrForbidden)

	_, err = env.sessions.End(context.Background(), facilitator, 9999)
	assert.ErrorIs(t, err, pkg.ErrNotFound)
}

func TestConcurrentEndAllowsExactlyOne(t *testing.T) {
	env := newTestEnv(t)
	s := env.createSession(t, "Standup")

	var wg sync.WaitGroup
	results := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.sessions.End(context.Background(), facilitator, s.ID)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	ok := 0
	for err := range results {
		if err == nil {
			ok++
		} else {
			assert.ErrorIs(t, err, pkg.ErrInvalidState)
		}
	}
	assert.Equal(t, 1, ok)
}

// writeTally counts one kind of write racing a session end.
type writeTally struct {
	mu     sync.Mutex
	ok     int
	labels []string
}

func (w *writeTally) record(t *testing.T, err error, rejected error, label string) {
	if err != nil {
		assert.ErrorIs(t, err, rejected)
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.ok++
	w.labels = append(w.labels, label)
}

func TestEndRacingWritesLetNoLateWriteThrough(t *testing.T) {
	env := newTestEnv(t, withCodes("RACE01"))
	ctx := context.Background()
	s := env.createSession(t, "Standup")
	member := env.join(t, "RACE01", "First").Participant
	parent, err := env.messages.Post(ctx, s.ID, &models.CreateMessageRequest{Content: "parent"})
	require.NoError(t, err)

	const writers, rounds = 5, 4
	var posts, replies, joins, reports writeTally

	// End fires as soon as the first racing write has committed.
	firstWrite := make(chan struct{})
	var once sync.Once
	committed := func(err error) {
		if err == nil {
			once.Do(func() { close(firstWrite) })
		}
	}

	var wg sync.WaitGroup
	for g := 0; g < writers; g++ {
		wg.Add(4)
		go func() {
			defer wg.Done()
			for i := 0; i < rounds; i++ {
				_, err := env.messages.Post(ctx, s.ID, &models.CreateMessageRequest{Content: fmt.Sprintf("post %d-%d", g, i)})
				committed(err)
				posts.record(t, err, pkg.ErrInvalidState, "")
			}
		}()
		go func() {
			defer wg.Done()
			for i := 0; i < rounds; i++ {
				_, err := env.messages.Reply(ctx, parent.ID, &models.CreateReplyRequest{Content: fmt.Sprintf("reply %d-%d", g, i)})
				committed(err)
				replies.record(t, err, pkg.ErrInvalidState, "")
			}
		}()
		go func() {
			defer wg.Done()
			for i := 0; i < rounds; i++ {
				_, err := env.sessions.Join(ctx, &models.JoinSessionRequest{Code: "RACE01", Name: fmt.Sprintf("m%d-%d", g, i)})
				committed(err)
				joins.record(t, err, pkg.ErrNotFound, "")
			}
		}()
		go func() {
			defer wg.Done()
			for i := 0; i < rounds; i++ {
				label := fmt.Sprintf("L%d-%d", g, i)
				_, err := env.emotions.Report(ctx, s.ID, member.ID, &models.ReportEmotionRequest{Emotion: "😐", Label: label})
				committed(err)
				reports.record(t, err, pkg.ErrInvalidState, label)
			}
		}()
	}

	endErr := make(chan error, 1)
	go func() {
		select {
		case <-firstWrite:
		case <-time.After(5 * time.Second):
		}
		_, err := env.sessions.End(ctx, facilitator, s.ID)
		endErr <- err
	}()

	wg.Wait()
	require.NoError(t, <-endErr)

	messages, err := env.messages.List(ctx, s.ID)
	require.NoError(t, err)
	assert.Len(t, messages, 1+posts.ok, "every stored message was acknowledged")
	var stored *models.Message
	for i := range messages {
		if messages[i].ID == parent.ID {
			stored = &messages[i]
		}
	}
	require.NotNil(t, stored)
	assert.Len(t, stored.Replies, replies.ok)

	participants, err := env.sync.GetParticipants(ctx, s.ID)
	require.NoError(t, err)
	assert.Len(t, participants, 1+joins.ok)

	// The surviving label is the default or one of the acknowledged reports.
	for _, p := range participants {
		if p.ID == member.ID {
			allowed := append([]string{models.DefaultEmotion.Label}, reports.labels...)
			assert.Contains(t, allowed, p.EmotionLabel)
		}
	}

	// Once End has returned every write is refused.
	_, err = env.messages.Post(ctx, s.ID, &models.CreateMessageRequest{Content: "late"})
	assert.True(t, errors.Is(err, pkg.ErrInvalidState), "got %v", err)
	_, err = env.emotions.Report(ctx, s.ID, member.ID, &models.ReportEmotionRequest{Emotion: "😔"})
	assert.ErrorIs(t, err, pkg.ErrInvalidState)
}

func TestCodeReuse(t *testing.T) {
	t.Run("reuse allowed after close", func(t *testing.T) {
		env := newTestEnv(t, withCodes("SAME01"))
		first := env.createSession(t, "One")

		// Active code is taken: every attempt collides.
		_, err := env.sessions.Create(context.Background(), facilitator, &models.CreateSessionRequest{Name: "Two"})
		require.Error(t, err)

		_, err = env.sessions.End(context.Background(), facilitator, first.ID)
		require.NoError(t, err)

		second := env.createSession(t, "Two")
		assert.Equal(t, "SAME01", second.Code)
	})

	t.Run("globally unique", func(t *testing.T) {
		env := newTestEnv(t, withCodeReuse(false), withCodes("SAME02", "SAME02", "OTHER1"))
		first := env.createSession(t, "One")
		_, err := env.sessions.End(context.Background(), facilitator, first.ID)
		require.NoError(t, err)

		second := env.createSession(t, "Two")
		assert.Equal(t, "OTHER1", second.Code)
	})
}

func TestListAndHistory(t *testing.T) {
	env := newTestEnv(t, withCodes("LIST01", "LIST02"))
	ctx := context.Background()

	older := env.createSession(t, "Older")
	newer := env.createSession(t, "Newer")
	env.join(t, "LIST01", "A")
	_, err := env.messages.Post(ctx, older.ID, &models.CreateMessageRequest{Content: "hi"})
	require.NoError(t, err)

	all, err := env.sessions.List(ctx, facilitator, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, newer.ID, all[0].ID, "most recent first")
	assert.Equal(t, 1, all[1].ParticipantCount)
	assert.Equal(t, 1, all[1].MessageCount)
	assert.Regexp(t, `^\d{2}/\d{2}/\d{4}$`, all[0].Date)
	assert.Regexp(t, `^\d{2}:\d{2}:\d{2}$`, all[0].Time)
	assert.NotEmpty(t, all[0].Age)

	_, err = env.sessions.End(ctx, facilitator, older.ID)
	require.NoError(t, err)

	active, err := env.sessions.List(ctx, facilitator, models.SessionActive)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, newer.ID, active[0].ID)

	history, err := env.sessions.History(ctx, facilitator)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, older.ID, history[0].ID)
	require.Len(t, history[0].Emotions, 1)
	assert.Equal(t, 100, history[0].Emotions[0].Percentage)

	others, err := env.sessions.List(ctx, "nobody", "")
	require.NoError(t, err)
	assert.NotNil(t, others)
	assert.Empty(t, others)
}

func TestDetailSeesEveryWrite(t *testing.T) {
	env := newTestEnv(t, withCodes("SYNC01"))
	ctx := context.Background()
	s := env.createSession(t, "Standup")

	detail, err := env.sync.GetSessionDetail(ctx, s.ID)
	require.NoError(t, err)
	assert.Empty(t, detail.Participants)
	assert.Empty(t, detail.Messages)
	assert.Empty(t, detail.Emotions)

	// Cached read returns the same view.
	cached, err := env.sync.GetSessionDetail(ctx, s.ID)
	require.NoError(t, err)
	assert.Same(t, detail, cached)

	env.join(t, "SYNC01", "A")
	_, err = env.messages.Post(ctx, s.ID, &models.CreateMessageRequest{Content: "hi"})
	require.NoError(t, err)

	detail, err = env.sync.GetSessionDetail(ctx, s.ID)
	require.NoError(t, err)
	assert.Len(t, detail.Participants, 1)
	assert.Len(t, detail.Messages, 1)
	require.Len(t, detail.Emotions, 1)
	assert.Equal(t, "Happy", detail.Emotions[0].Emotion)

	_, err = env.sessions.End(ctx, facilitator, s.ID)
	require.NoError(t, err)
	detail, err = env.sync.GetSessionDetail(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionClosed, detail.Session.Status)

	_, err = env.sync.GetSessionDetail(ctx, 9999)
	assert.ErrorIs(t, err, pkg.ErrNotFound)
}

func TestChangeFeedForgetsClosedSessions(t *testing.T) {
	env := newTestEnv(t, withCodes("FEED01", "FEED02"))
	ctx := context.Background()
	first := env.createSession(t, "One")
	second := env.createSession(t, "Two")
	require.Equal(t, 2, env.feed.tracked())

	before := env.feed.Version(first.ID)
	stale, err := env.sync.GetSessionDetail(ctx, first.ID)
	require.NoError(t, err)

	_, err = env.sessions.End(ctx, facilitator, first.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, env.feed.tracked())
	assert.Greater(t, env.feed.Version(first.ID), before)

	detail, err := env.sync.GetSessionDetail(ctx, first.ID)
	require.NoError(t, err)
	assert.NotSame(t, stale, detail)
	assert.Equal(t, models.SessionClosed, detail.Session.Status)

	// Closed views are cached like any other.
	again, err := env.sync.GetSessionDetail(ctx, first.ID)
	require.NoError(t, err)
	assert.Same(t, detail, again)

	// A later close moves the shared floor; the closed session just reloads.
	_, err = env.sessions.End(ctx, facilitator, second.ID)
	require.NoError(t, err)
	assert.Zero(t, env.feed.tracked())

	reloaded, err := env.sync.GetSessionDetail(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionClosed, reloaded.Session.Status)
}

func TestVersionAfterWriteExceedsEveryEarlierVersion(t *testing.T) {
	feed := NewChangeFeed(nil, nil)

	// Never written in this process: falls back to the floor.
	untouched := feed.Version(1)
	feed.Committed(1, metrics.EventMessage, nil)
	written := feed.Version(1)
	assert.Greater(t, written, untouched)

	feed.Closed(1, ws.Event{Op: ws.OpSessionEnd})
	assert.Greater(t, feed.Version(1), written)
	assert.NotEqual(t, untouched, feed.Version(1))
}

func TestSessionByCodeView(t *testing.T) {
	env := newTestEnv(t, withCodes("VIEW01"))
	ctx := context.Background()
	s := env.createSession(t, "Standup")
	env.join(t, "VIEW01", "A")

	view, err := env.sync.GetSessionByCode(ctx, "view01")
	require.NoError(t, err)
	assert.Equal(t, s.ID, view.Session.ID)
	assert.Len(t, view.Participants, 1)

	_, err = env.sync.GetSessionByCode(ctx, "NOPE00")
	assert.ErrorIs(t, err, pkg.ErrNotFound)
}
