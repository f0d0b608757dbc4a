// Package models holds the domain shapes returned by, and passed to, the
// backlog tracker's services. JSON field names match the flattened documents.
package models

// UserProfile is a user's public profile: the user with its backlog (including
// the recommendations it received) and its friends. It never carries
// authentication material.
type UserProfile struct {
	Name        string         `json:"name"`
	MalVerified *bool          `json:"malVerified,omitempty"`
	MalUserName string         `json:"malUserName,omitempty"`
	Backlog     []BacklogEntry `json:"backlog"`
	Friends     []Friend       `json:"friends"`
}

// BacklogEntry is one show in a user's backlog, or a show the user was
// recommended but has not added.
type BacklogEntry struct {
	AnimeName       string                   `json:"animeName"`
	MalAnimeID      int64                    `json:"malAnimeId,omitempty"`
	MalURL          *string                  `json:"malUrl,omitempty"`
	AltNames        []string                 `json:"altNames,omitempty"`
	PersonalScore   int                      `json:"personalScore,omitempty"`
	Order           *int                     `json:"order,omitempty"`
	Recommendations []ReceivedRecommendation `json:"recommendations"`
}

// ReceivedRecommendation is a recommendation attached to a backlog entry.
// Name is the recommender.
type ReceivedRecommendation struct {
	Name    string `json:"name"`
	Score   int    `json:"score"`
	Comment string `json:"comment,omitempty"`
}

// Friend is a user's friend.
type Friend struct {
	Name      string `json:"name"`
	MalImport *bool  `json:"malImport,omitempty"`
}

// SentRecommendation is a recommendation a user made to someone else.
type SentRecommendation struct {
	AnimeName  string `json:"animeName"`
	MalAnimeID int64  `json:"malAnimeId,omitempty"`
	Score      int    `json:"score"`
	Comment    string `json:"comment,omitempty"`
	To         string `json:"to"`
}

// Show is a show as stored in the shows collection.
type Show struct {
	Name       string   `json:"name"`
	MalAnimeID int64    `json:"malAnimeId,omitempty"`
	MalURL     *string  `json:"malUrl,omitempty"`
	AltNames   []string `json:"altNames,omitempty"`
}

// NewUser is the payload for creating a user.
type NewUser struct {
	Name          string         `json:"name"`
	MalVerified   *bool          `json:"malVerified,omitempty"`
	SignIn        *SignIn        `json:"signIn,omitempty"`
	TwitterSignIn *TwitterSignIn `json:"twitterSignIn,omitempty"`
	MAL           *MALAccount    `json:"mal,omitempty"`
}

// SignIn holds a plaintext password. It is hashed before storage and never
// persisted as is.
type SignIn struct {
	Password string `json:"password"`
}

// TwitterSignIn links a Twitter identity.
type TwitterSignIn struct {
	TwitterID string `json:"twitterId"`
}

// MALAccount links a MyAnimeList account.
type MALAccount struct {
	MalUserName string `json:"malUserName"`
}

// Recommendation is the payload of a recommendation.
type Recommendation struct {
	Score   int    `json:"score"`
	Comment string `json:"comment,omitempty"`
}

// BacklogOrder places one show of a backlog.
type BacklogOrder struct {
	Name  string `json:"animeName"`
	Order int    `json:"order"`
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string { return &s }

// BoolPtr returns a pointer to b.
func BoolPtr(b bool) *bool { return &b }

// IntPtr returns a pointer to n.
func IntPtr(n int) *int { return &n }
