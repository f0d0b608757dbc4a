package users

import (
	"context"
	"fmt"

	backlogdb "github.com/saulfrancisco-ruizacevedo/go-backlogdb"
	"github.com/saulfrancisco-ruizacevedo/go-backlogdb/apperror"
	"github.com/saulfrancisco-ruizacevedo/go-backlogdb/models"
)

// SetUserPassword replaces a user's password. A user without a password
// accepts any oldPass.
//
// Returns:
//
//	true when the password was changed, false when oldPass is wrong, or
//	USER_NOT_FOUND / NON_UNIQUE_USER.
func (s *Service) SetUserPassword(ctx context.Context, name, oldPass, newPass string) (bool, error) {
	row, err := s.authRow(ctx, name)
	if err != nil {
		return false, err
	}
	if hash, ok := storedHash(row); ok {
		match, err := s.hasher.Compare(hash, oldPass)
		if err != nil || !match {
			return false, err
		}
	}

	hash, err := s.hasher.Hash(newPass)
	if err != nil {
		return false, err
	}

	if len(row.Auth) == 0 {
		// Users created before auth records existed get one now.
		if err := s.insertAuth(ctx, row.UserID, backlogdb.Document{"hash": hash}); err != nil {
			return false, err
		}
		return true, nil
	}
	for _, auth := range row.Auth {
		filter := backlogdb.Document{backlogdb.IDField: auth.RecordID()}
		if _, err := s.graph.UpdateVertices(ctx, backlogdb.AuthInformation, filter, backlogdb.Document{"hash": hash}); err != nil {
			return false, fmt.Errorf("set password of %q: %w", name, err)
		}
	}
	s.log.Debug().Str("user", name).Int("auth_records", len(row.Auth)).Msg("password changed")
	return true, nil
}

func (s *Service) insertAuth(ctx context.Context, userID string, data backlogdb.Document) error {
	auth, err := s.graph.InsertVertex(ctx, backlogdb.AuthInformation, data)
	if err != nil {
		return fmt.Errorf("insert auth record: %w", err)
	}
	if _, err := s.graph.InsertEdge(ctx, backlogdb.UserAuth, userID, auth.RecordID(), nil); err != nil {
		s.rollback(ctx, "insert_auth", err, auth.RecordID())
		return fmt.Errorf("link auth record: %w", err)
	}
	return nil
}

// AddUser creates a user from a payload matching user/index.schema.json.
// A supplied password is hashed before it is stored; the plaintext is not
// kept. Every user gets an auth record, holding the hash and the Twitter id
// when given. A linked MyAnimeList user name is kept on the user vertex.
//
// Returns:
//
//	true on success, INVALID_PAYLOAD when the payload does not match the
//	schema, NON_UNIQUE_USER when the name is taken, or a store error.
func (s *Service) AddUser(ctx context.Context, user models.NewUser) (bool, error) {
	if err := s.schemas.Validate(userSchema, user); err != nil {
		return false, apperror.InvalidPayload("User data was invalid", err)
	}

	exists, err := s.graph.ExistsByField(ctx, backlogdb.Users, "name", user.Name)
	if err != nil {
		return false, err
	}
	if exists {
		return false, userExists(user.Name, nil)
	}

	data := backlogdb.Document{"name": user.Name}
	if user.MalVerified != nil {
		data["malVerified"] = *user.MalVerified
	}
	if user.MAL != nil {
		data["malUserName"] = user.MAL.MalUserName
	}
	vertex, err := s.graph.InsertVertex(ctx, backlogdb.Users, data)
	if err != nil {
		if backlogdb.IsConstraintViolation(err) {
			return false, userExists(user.Name, err)
		}
		return false, fmt.Errorf("insert user %q: %w", user.Name, err)
	}
	userID := vertex.RecordID()
	s.log.Debug().Str("user", user.Name).Str("id", userID).Msg("inserted user vertex")

	auth := backlogdb.Document{}
	if user.SignIn != nil && user.SignIn.Password != "" {
		s.log.Debug().Str("user", user.Name).Msg("adding login information")
		hash, err := s.hasher.Hash(user.SignIn.Password)
		if err != nil {
			s.rollback(ctx, "add_user", err, userID)
			return false, err
		}
		auth["hash"] = hash
	}
	if user.TwitterSignIn != nil {
		auth["twitterId"] = user.TwitterSignIn.TwitterID
	}
	if len(auth) == 0 {
		s.log.Info().Msgf("No initial login information presented when adding %s.", user.Name)
	}

	if err := s.insertAuth(ctx, userID, auth); err != nil {
		s.rollback(ctx, "add_user", err, userID)
		return false, err
	}
	return true, nil
}

func userExists(name string, cause error) error {
	return apperror.Wrap(apperror.CodeNonUniqueUser,
		fmt.Sprintf("A user under the name '%s' already exists in the database.", name), cause)
}

// AddRecommendation records that fromName recommends showName to toName.
//
// The recipient, the recommender and the show are checked in that order, so
// the first missing one is the error reported. The payload is validated
// against recommendation/index.schema.json before anything is written.
func (s *Service) AddRecommendation(ctx context.Context, toName, fromName, showName string, rec models.Recommendation) (bool, error) {
	toID, err := s.userID(ctx, toName)
	if err != nil {
		return false, err
	}
	fromID, err := s.userID(ctx, fromName)
	if err != nil {
		return false, err
	}
	showID, err := s.showID(ctx, showName)
	if err != nil {
		return false, err
	}
	if err := s.schemas.Validate(recommendationSchema, rec); err != nil {
		return false, apperror.InvalidPayload("Recommendation data was invalid", err)
	}

	data := backlogdb.Document{"score": rec.Score}
	if rec.Comment != "" {
		data["comment"] = rec.Comment
	}
	vertex, err := s.graph.InsertVertex(ctx, backlogdb.Recommendations, data)
	if err != nil {
		return false, fmt.Errorf("insert recommendation: %w", err)
	}
	recID := vertex.RecordID()

	links := []struct {
		c  backlogdb.Collection
		to string
	}{
		{backlogdb.RecommendationTo, toID},
		{backlogdb.RecommendationFrom, fromID},
		{backlogdb.RecommendationFor, showID},
	}
	for _, link := range links {
		if _, err := s.graph.InsertEdge(ctx, link.c, recID, link.to, nil); err != nil {
			s.rollback(ctx, "add_recommendation", err, recID)
			return false, fmt.Errorf("link recommendation %s: %w", link.c.Name, err)
		}
	}
	s.log.Debug().Str("from", fromName).Str("to", toName).Str("show", showName).Msg("recommendation added")
	return true, nil
}

// AddShowToBacklog adds an existing show to a user's backlog. A
// personalScore of 0 means unscored.
func (s *Service) AddShowToBacklog(ctx context.Context, userName, showName string, personalScore int) error {
	entry := backlogdb.Document{"animeName": showName}
	if personalScore != 0 {
		entry["personalScore"] = personalScore
	}
	if err := s.schemas.Validate(backlogSchema, entry); err != nil {
		return apperror.InvalidPayload("Backlog entry was invalid", err)
	}

	row, err := s.backlogRow(ctx, userName)
	if err != nil {
		return err
	}
	showID, err := s.showID(ctx, showName)
	if err != nil {
		return err
	}
	for _, item := range row.Backlog {
		if item.Show.RecordID() == showID {
			return apperror.Newf(apperror.CodeDuplicateBacklogEntry, "Show '%s' is already in %s's backlog", showName, userName)
		}
	}

	var extra backlogdb.Document
	if personalScore != 0 {
		extra = backlogdb.Document{"personalScore": personalScore}
	}
	if _, err := s.graph.InsertEdge(ctx, backlogdb.HasInBacklog, row.UserID, showID, extra); err != nil {
		return fmt.Errorf("add %q to backlog of %q: %w", showName, userName, err)
	}
	return nil
}

// UpdateUserBacklogOrdering sets the order of shows in a user's backlog.
// Every named show must already be in the backlog and may appear only once;
// nothing is written unless the whole list is acceptable.
func (s *Service) UpdateUserBacklogOrdering(ctx context.Context, userName string, orders []models.BacklogOrder) error {
	row, err := s.backlogRow(ctx, userName)
	if err != nil {
		return err
	}

	seen := make(map[string]bool, len(orders))
	edgeIDs := make([]string, len(orders))
	for i, o := range orders {
		if seen[o.Name] {
			return apperror.Newf(apperror.CodeInvalidPayload, "Duplicate entry for show: '%s'", o.Name)
		}
		seen[o.Name] = true
		if err := s.schemas.Validate(backlogSchema, o); err != nil {
			return apperror.InvalidPayload("Backlog order was invalid", err)
		}

		for _, item := range row.Backlog {
			if item.Show["name"] == o.Name {
				edgeIDs[i] = item.Edge.RecordID()
				break
			}
		}
		if edgeIDs[i] == "" {
			return apperror.Newf(apperror.CodeShowNotInBacklog, "Show '%s' was not in %s's backlog", o.Name, userName)
		}
	}

	for i, o := range orders {
		if err := s.graph.UpdateEdge(ctx, backlogdb.HasInBacklog, edgeIDs[i], backlogdb.Document{"order": o.Order}); err != nil {
			return fmt.Errorf("reorder %q in backlog of %q: %w", o.Name, userName, err)
		}
	}
	s.log.Debug().Str("user", userName).Int("entries", len(orders)).Msg("backlog reordered")
	return nil
}

// AddFriend makes two users friends. viaMALImport marks friendships found by
// a MyAnimeList import.
func (s *Service) AddFriend(ctx context.Context, name, friendName string, viaMALImport bool) error {
	if name == friendName {
		return apperror.Newf(apperror.CodeInvalidPayload, "User '%s' cannot befriend themselves", name)
	}
	rows, err := s.graph.FindUserFull(ctx, name)
	if err != nil {
		return fmt.Errorf("get user %q: %w", name, err)
	}
	row, err := oneUser(rows, name, func(r backlogdb.UserFullRow) string { return r.User.RecordID() })
	if err != nil {
		return err
	}
	friendID, err := s.userID(ctx, friendName)
	if err != nil {
		return err
	}
	for _, f := range row.Friends {
		if f.FriendInfo.RecordID() == friendID {
			return apperror.Newf(apperror.CodeAlreadyFriends, "'%s' and '%s' are already friends", name, friendName)
		}
	}

	var extra backlogdb.Document
	if viaMALImport {
		extra = backlogdb.Document{"malImport": true}
	}
	if _, err := s.graph.InsertEdge(ctx, backlogdb.FriendsWith, row.User.RecordID(), friendID, extra); err != nil {
		return fmt.Errorf("add friend %q to %q: %w", friendName, name, err)
	}
	return nil
}

func (s *Service) backlogRow(ctx context.Context, name string) (backlogdb.BacklogRow, error) {
	rows, err := s.graph.FindBacklogByUserName(ctx, name)
	if err != nil {
		return backlogdb.BacklogRow{}, fmt.Errorf("get backlog of %q: %w", name, err)
	}
	return oneUser(rows, name, func(r backlogdb.BacklogRow) string { return r.UserID })
}
