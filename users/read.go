package users

import (
	"context"
	"fmt"

	backlogdb "github.com/saulfrancisco-ruizacevedo/go-backlogdb"
	"github.com/saulfrancisco-ruizacevedo/go-backlogdb/apperror"
	"github.com/saulfrancisco-ruizacevedo/go-backlogdb/flatten"
	"github.com/saulfrancisco-ruizacevedo/go-backlogdb/models"
)

// GetUserInfoByName returns a user's profile: the user's own fields, the
// backlog merged with the recommendations the user received, and the
// user's friends. Storage fields and authentication data are never included.
func (s *Service) GetUserInfoByName(ctx context.Context, name string) (models.UserProfile, error) {
	rows, err := s.graph.FindUserFull(ctx, name)
	if err != nil {
		return models.UserProfile{}, fmt.Errorf("get user %q: %w", name, err)
	}
	row, err := oneUser(rows, name, func(r backlogdb.UserFullRow) string { return r.User.RecordID() })
	if err != nil {
		return models.UserProfile{}, err
	}

	doc := row.User.Clone()
	doc["backlog"] = flatten.BacklogAndRecommendations(row.Backlog, row.Recommendations)
	doc["friends"] = flatten.Friends(row.Friends)
	return flatten.Decode[models.UserProfile](flatten.StripStorageFields(doc))
}

// ValidateUserLogin reports whether password is the user's password.
//
// Returns:
//
//	true or false for a user with a password, USER_PASSWORD_NOT_SET when the
//	user has none, USER_NOT_FOUND or NON_UNIQUE_USER when the name does not
//	identify exactly one user.
func (s *Service) ValidateUserLogin(ctx context.Context, name, password string) (bool, error) {
	row, err := s.authRow(ctx, name)
	if err != nil {
		return false, err
	}
	hash, ok := storedHash(row)
	if !ok {
		return false, passwordNotSet(name)
	}
	return s.hasher.Compare(hash, password)
}

// GetUserBacklog returns the shows in a user's backlog.
func (s *Service) GetUserBacklog(ctx context.Context, name string) ([]models.BacklogEntry, error) {
	rows, err := s.graph.FindBacklogByUserName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("get backlog of %q: %w", name, err)
	}
	row, err := oneUser(rows, name, func(r backlogdb.BacklogRow) string { return r.UserID })
	if err != nil {
		return nil, err
	}
	return flatten.Decode[[]models.BacklogEntry](flatten.Backlog(row.Backlog))
}

// GetRecommendationsCreatedByUser returns the recommendations a user made,
// one entry per recommendation.
func (s *Service) GetRecommendationsCreatedByUser(ctx context.Context, name string) ([]models.SentRecommendation, error) {
	rows, err := s.graph.FindRecommendationsFromUser(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("get recommendations from %q: %w", name, err)
	}
	row, err := oneUser(rows, name, func(r backlogdb.SentRecommendationsRow) string { return r.UserID })
	if err != nil {
		return nil, err
	}
	return flatten.Decode[[]models.SentRecommendation](flatten.StripStorageFields(flatten.UsersRecommendations(row.Recs)))
}

func (s *Service) authRow(ctx context.Context, name string) (backlogdb.AuthRow, error) {
	rows, err := s.graph.FindAuthByUserName(ctx, name)
	if err != nil {
		return backlogdb.AuthRow{}, fmt.Errorf("get login of %q: %w", name, err)
	}
	return oneUser(rows, name, func(r backlogdb.AuthRow) string { return r.UserID })
}

// storedHash returns the first password hash linked to the user.
func storedHash(row backlogdb.AuthRow) (string, bool) {
	for _, auth := range row.Auth {
		if hash, ok := auth["hash"].(string); ok && hash != "" {
			return hash, true
		}
	}
	return "", false
}

func passwordNotSet(name string) error {
	return apperror.Newf(apperror.CodeUserPasswordNotSet, "No password found for %s", name)
}
