package auth

import (
	"context"
	defError "errors"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"design-review-server/internal/errors"
)

// ReviewLink is a shareable entry point for external reviewers. The link
// token identifies the row; an optional bcrypt-hashed passcode gates the
// exchange into a reviewer session token.
type ReviewLink struct {
	ID           uint64     `json:"id" gorm:"primaryKey"`
	ProjectID    uint64     `json:"project_id" gorm:"index"`
	TokenID      string     `json:"token_id" gorm:"uniqueIndex;type:varchar(64)"`
	PasscodeHash *string    `json:"-"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

type ShareService struct {
	db     *gorm.DB
	secret string
}

func NewShareService(db *gorm.DB, secret string) *ShareService {
	return &ShareService{db: db, secret: secret}
}

// CreateLink issues a review link for a project. Returns the link plus the
// opaque token the reviewer presents on exchange.
func (s *ShareService) CreateLink(ctx context.Context, projectID uint64, passcode string, ttl time.Duration) (*ReviewLink, string, error) {
	link := &ReviewLink{
		ProjectID: projectID,
		TokenID:   uuid.NewString(),
		CreatedAt: time.Now().UTC(),
	}

	if passcode != "" {
		hashed, err := bcrypt.GenerateFromPassword([]byte(passcode), bcrypt.DefaultCost)
		if err != nil {
			return nil, "", errors.Internal(err)
		}
		hash := string(hashed)
		link.PasscodeHash = &hash
	}

	if ttl > 0 {
		expires := time.Now().UTC().Add(ttl)
		link.ExpiresAt = &expires
	}

	if err := s.db.WithContext(ctx).Create(link).Error; err != nil {
		return nil, "", errors.ServiceUnavailable("Could not store review link", err)
	}

	token, err := GenerateToken(s.secret, Identity{
		Role:      "review-link",
		Name:      link.TokenID,
		ProjectID: projectID,
	}, 30*24*time.Hour)
	if err != nil {
		return nil, "", errors.Internal(err)
	}

	return link, token, nil
}

// ExchangeToken turns a review-link token plus passcode into a reviewer
// session token bound to the link's project.
func (s *ShareService) ExchangeToken(ctx context.Context, linkToken, passcode, reviewerName string) (string, error) {
	identity, err := VerifyToken(s.secret, linkToken)
	if err != nil || identity.Role != "review-link" {
		return "", errors.Unauthorized("Invalid review link", err)
	}

	var link ReviewLink
	err = s.db.WithContext(ctx).Where("token_id = ?", identity.Name).First(&link).Error
	if err != nil {
		if defError.Is(err, gorm.ErrRecordNotFound) {
			return "", errors.Unauthorized("Review link revoked", err)
		}
		return "", errors.ServiceUnavailable("Could not load review link", err)
	}

	if link.ExpiresAt != nil && time.Now().UTC().After(*link.ExpiresAt) {
		return "", errors.Unauthorized("Review link expired", nil)
	}

	if link.PasscodeHash != nil {
		if err := bcrypt.CompareHashAndPassword([]byte(*link.PasscodeHash), []byte(passcode)); err != nil {
			return "", errors.Unauthorized("Wrong passcode", err)
		}
	}

	if reviewerName == "" {
		reviewerName = "Reviewer"
	}

	token, err := GenerateToken(s.secret, Identity{
		Role:      "reviewer",
		Name:      reviewerName,
		ProjectID: link.ProjectID,
	}, 24*time.Hour)
	if err != nil {
		return "", errors.Internal(err)
	}

	return token, nil
}
