package ranking

import (
	"context"
	"log"
	"math"
	"time"

	"anoa.com/campuspulse/internal/entity"
	ingestService "anoa.com/campuspulse/internal/modules/ingest/service"
	"anoa.com/campuspulse/internal/modules/ranking/repository"
	scoringRepo "anoa.com/campuspulse/internal/modules/scoring/repository"
	"github.com/google/uuid"
)

const (
	// replyWeight discounts replies against likes in the engagement
	// magnitude.
	replyWeight = 0.5

	// decayDivisor converts entity age into the recency term. Older content
	// with fixed engagement is eventually outranked by newer content.
	decayDivisor = 45000.0

	// newEntityAgeSeconds is the age a freshly created entity is scored at,
	// avoiding near-zero artifacts at the moment of creation.
	newEntityAgeSeconds = 3600.0
)

// HotScore computes the decaying popularity rank from current counts and
// entity age. The magnitude is guarded before log10 and the sign is derived
// separately, so zero or negative engagement never produces NaN.
func HotScore(likes, replies int64, createdAt, now time.Time) float64 {
	weighted := float64(likes) + replyWeight*float64(replies)

	order := math.Log10(math.Max(math.Abs(weighted), 1))

	var sign float64
	switch {
	case weighted > 0:
		sign = 1
	case weighted < 0:
		sign = -1
	}

	ageSeconds := now.Sub(createdAt).Seconds()
	return sign*order + ageSeconds/decayDivisor
}

// initialHotScore scores a brand-new entity as if it were one hour old.
func initialHotScore() float64 {
	return newEntityAgeSeconds / decayDivisor
}

type Service interface {
	CreateContent(ctx context.Context, scopeID, authorID uuid.UUID, contentType, title, body string) (*entity.Content, error)
	GetContent(ctx context.Context, id uuid.UUID) (*entity.Content, error)
	// ToggleLike flips the caller's like and synchronously recomputes the
	// stored hot score. A concurrent toggle on the same entity is
	// last-write-wins; the next mutation recomputes again.
	ToggleLike(ctx context.Context, userID, contentID uuid.UUID) (bool, *entity.Content, error)
	AddComment(ctx context.Context, userID, contentID uuid.UUID, parentID *uuid.UUID, body string) (*entity.Comment, error)
	ToggleCommentLike(ctx context.Context, userID, commentID uuid.UUID) (bool, *entity.Comment, error)
	TopContent(ctx context.Context, scopeID uuid.UUID, limit int) ([]entity.Content, error)
}

type service struct {
	repo    repository.ContentRepository
	gateway ingestService.Gateway
}

func NewService(repo repository.ContentRepository, gateway ingestService.Gateway) Service {
	return &service{
		repo:    repo,
		gateway: gateway,
	}
}

func (s *service) CreateContent(ctx context.Context, scopeID, authorID uuid.UUID, contentType, title, body string) (*entity.Content, error) {
	content := &entity.Content{
		ScopeID:  scopeID,
		AuthorID: authorID,
		Type:     contentType,
		Title:    title,
		Body:     body,
		HotScore: initialHotScore(),
	}

	if err := s.repo.CreateContent(ctx, content); err != nil {
		return nil, err
	}

	s.emit(ctx, ingestService.Input{
		Type:        entity.EventPostCreated,
		ScopeID:     scopeID,
		ActorUserID: &authorID,
		ContentID:   &content.ID,
		ContentType: content.Type,
	})

	return content, nil
}

func (s *service) GetContent(ctx context.Context, id uuid.UUID) (*entity.Content, error) {
	return s.repo.FindContent(ctx, id)
}

func (s *service) ToggleLike(ctx context.Context, userID, contentID uuid.UUID) (bool, *entity.Content, error) {
	content, err := s.repo.FindContent(ctx, contentID)
	if err != nil {
		return false, nil, err
	}

	liked, err := s.repo.ToggleLike(ctx, contentID, userID)
	if err != nil {
		return false, nil, err
	}

	if err := s.rescoreContent(ctx, content); err != nil {
		return liked, nil, err
	}

	eventType := entity.EventLikeGiven
	if !liked {
		eventType = entity.EventLikeRemoved
	}
	s.emit(ctx, ingestService.Input{
		Type:        eventType,
		ScopeID:     content.ScopeID,
		ActorUserID: &userID,
		ContentID:   &contentID,
		ContentType: content.Type,
		Metadata: map[string]string{
			scoringRepo.MetadataTargetAuthor: content.AuthorID.String(),
		},
	})

	return liked, content, nil
}

func (s *service) AddComment(ctx context.Context, userID, contentID uuid.UUID, parentID *uuid.UUID, body string) (*entity.Comment, error) {
	content, err := s.repo.FindContent(ctx, contentID)
	if err != nil {
		return nil, err
	}

	comment := &entity.Comment{
		ContentID: contentID,
		AuthorID:  userID,
		ParentID:  parentID,
		Body:      body,
		HotScore:  initialHotScore(),
	}
	if err := s.repo.CreateComment(ctx, comment); err != nil {
		return nil, err
	}

	// The reply list changed, so the parent scores are stale until rescored.
	if err := s.rescoreContent(ctx, content); err != nil {
		return nil, err
	}
	if parentID != nil {
		parent, err := s.repo.FindComment(ctx, *parentID)
		if err == nil {
			if err := s.rescoreComment(ctx, parent); err != nil {
				log.Printf("rescore parent comment %s failed: %v", *parentID, err)
			}
		}
	}

	s.emit(ctx, ingestService.Input{
		Type:        entity.EventCommentCreated,
		ScopeID:     content.ScopeID,
		ActorUserID: &userID,
		ContentID:   &contentID,
		ContentType: content.Type,
		Metadata: map[string]string{
			scoringRepo.MetadataTargetAuthor: content.AuthorID.String(),
		},
	})

	return comment, nil
}

func (s *service) ToggleCommentLike(ctx context.Context, userID, commentID uuid.UUID) (bool, *entity.Comment, error) {
	comment, err := s.repo.FindComment(ctx, commentID)
	if err != nil {
		return false, nil, err
	}

	liked, err := s.repo.ToggleCommentLike(ctx, commentID, userID)
	if err != nil {
		return false, nil, err
	}

	if err := s.rescoreComment(ctx, comment); err != nil {
		return liked, nil, err
	}

	content, err := s.repo.FindContent(ctx, comment.ContentID)
	if err != nil {
		return liked, comment, nil
	}

	eventType := entity.EventLikeGiven
	if !liked {
		eventType = entity.EventLikeRemoved
	}
	s.emit(ctx, ingestService.Input{
		Type:        eventType,
		ScopeID:     content.ScopeID,
		ActorUserID: &userID,
		ContentID:   &comment.ContentID,
		ContentType: "comment",
		Metadata: map[string]string{
			scoringRepo.MetadataTargetAuthor: comment.AuthorID.String(),
		},
	})

	return liked, comment, nil
}

func (s *service) TopContent(ctx context.Context, scopeID uuid.UUID, limit int) ([]entity.Content, error) {
	return s.repo.TopContentByHotScore(ctx, scopeID, limit)
}

// rescoreContent refreshes denormalized counts and derives the hot score from
// them, synchronously within the mutating request.
func (s *service) rescoreContent(ctx context.Context, content *entity.Content) error {
	likes, comments, err := s.repo.ContentCounts(ctx, content.ID)
	if err != nil {
		return err
	}

	content.LikeCount = likes
	content.CommentCount = comments
	content.HotScore = HotScore(likes, comments, content.CreatedAt, time.Now().UTC())

	return s.repo.SaveContent(ctx, content)
}

func (s *service) rescoreComment(ctx context.Context, comment *entity.Comment) error {
	likes, replies, err := s.repo.CommentCounts(ctx, comment.ID)
	if err != nil {
		return err
	}

	comment.LikeCount = likes
	comment.ReplyCount = replies
	comment.HotScore = HotScore(likes, replies, comment.CreatedAt, time.Now().UTC())

	return s.repo.SaveComment(ctx, comment)
}

// emit pushes the mutation into the event pipeline. Ranking already committed
// its own writes; a full log cannot block the interaction, so failures only
// log.
func (s *service) emit(ctx context.Context, input ingestService.Input) {
	if s.gateway == nil {
		return
	}
	if _, err := s.gateway.Ingest(ctx, input); err != nil {
		log.Printf("event emit failed (%s): %v", input.Type, err)
	}
}
