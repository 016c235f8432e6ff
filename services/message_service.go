package services

import (
	"context"
	"fmt"
	"time"

	"github.com/akinalp/emocircle/models"
	"github.com/akinalp/emocircle/pkg"
	"github.com/akinalp/emocircle/pkg/metrics"
	"github.com/akinalp/emocircle/repository"
	"github.com/akinalp/emocircle/ws"
)

// SenderPolicy decides which sender fields survive a write. Anonymity is
// applied when writing, so stored rows never carry a dropped sender.
type SenderPolicy string

const (
	// SenderAnonymous discards every sender.
	SenderAnonymous SenderPolicy = "anonymous"
	// SenderKeepReplies keeps reply senders; message senders are still
	// discarded.
	SenderKeepReplies SenderPolicy = "keep-replies"
)

// ParseSenderPolicy validates a configured policy name.
func ParseSenderPolicy(s string) (SenderPolicy, error) {
	switch p := SenderPolicy(s); p {
	case SenderAnonymous, SenderKeepReplies:
		return p, nil
	case "":
		return SenderAnonymous, nil
	}
	return "", fmt.Errorf("unknown sender policy %q", s)
}

// MessageSender is always nil: messages are anonymous under every policy.
func (p SenderPolicy) MessageSender(*string) *string {
	return nil
}

// ReplySender returns the sender to store for a reply.
func (p SenderPolicy) ReplySender(sender *string) *string {
	if p == SenderKeepReplies {
		return sender
	}
	return nil
}

// MessageService handles anonymous messages and their one level of replies.
type MessageService interface {
	Post(ctx context.Context, sessionID int64, req *models.CreateMessageRequest) (*models.Message, error)
	Reply(ctx context.Context, messageID int64, req *models.CreateReplyRequest) (*models.Reply, error)
	// List returns the transcript oldest first, replies nested oldest first.
	List(ctx context.Context, sessionID int64) ([]models.Message, error)
}

type messageService struct {
	repos  *repository.Repos
	feed   *ChangeFeed
	policy SenderPolicy
	now    func() time.Time
}

// NewMessageService builds the service.
func NewMessageService(repos *repository.Repos, feed *ChangeFeed, policy SenderPolicy) MessageService {
	if policy == "" {
		policy = SenderAnonymous
	}
	return &messageService{
		repos:  repos,
		feed:   feed,
		policy: policy,
		now:    utcNow,
	}
}

func (s *messageService) Post(ctx context.Context, sessionID int64, req *models.CreateMessageRequest) (*models.Message, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", pkg.ErrValidation, err)
	}

	msg := &models.Message{
		SessionID: sessionID,
		Content:   req.Content,
		Sender:    s.policy.MessageSender(req.Sender),
		CreatedAt: s.now(),
		Replies:   []models.Reply{},
	}

	// The insert is conditional on the session being Active.
	if err := s.repos.Messages.Create(ctx, msg); err != nil {
		return nil, err
	}

	s.feed.Committed(sessionID, metrics.EventMessage, &ws.Event{Op: ws.OpMessageCreate, Data: msg})
	return msg, nil
}

func (s *messageService) Reply(ctx context.Context, messageID int64, req *models.CreateReplyRequest) (*models.Reply, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", pkg.ErrValidation, err)
	}

	parent, err := s.repos.Messages.GetByID(ctx, messageID)
	if err != nil {
		return nil, err
	}

	reply := &models.Reply{
		MessageID: messageID,
		Content:   req.Content,
		Sender:    s.policy.ReplySender(req.Sender),
		CreatedAt: s.now(),
	}
	if err := s.repos.Replies.Create(ctx, reply); err != nil {
		return nil, err
	}

	s.feed.Committed(parent.SessionID, metrics.EventReply, &ws.Event{
		Op:   ws.OpReplyCreate,
		Data: ws.ReplyEventData{SessionID: parent.SessionID, Reply: *reply},
	})
	return reply, nil
}

func (s *messageService) List(ctx context.Context, sessionID int64) ([]models.Message, error) {
	if _, err := s.repos.Sessions.GetByID(ctx, sessionID); err != nil {
		return nil, err
	}

	messages, err := s.repos.Messages.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if messages == nil {
		messages = []models.Message{}
	}
	return messages, nil
}
