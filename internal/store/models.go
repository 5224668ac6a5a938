package store

import "time"

// App is a user-created generated application.
type App struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Title string `json:"title"`
	// Prompt is the description that produced the current code. Nil once the
	// code has been hand-edited past its generated form.
	Prompt     *string   `json:"prompt"`
	Code       string    `json:"code"`
	ModelUsed  string    `json:"model_used,omitempty"`
	Version    int       `json:"version"`
	Favorite   bool      `json:"favorite"`
	ViewCount  int       `json:"view_count"`
	HostedURL  string    `json:"hosted_url,omitempty"`
	PreviewRef string    `json:"preview_ref,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Version is an immutable snapshot of an App's code. Versions are only ever
// created or cascade-deleted with their App, never mutated.
type Version struct {
	ID        string    `json:"id"`
	AppID     string    `json:"app_id"`
	Code      string    `json:"code"`
	Version   int       `json:"version"`
	Note      string    `json:"note"`
	CreatedAt time.Time `json:"created_at"`
}

// AppDraft is the caller-supplied part of a new App.
type AppDraft struct {
	Name       string
	Title      string
	Prompt     *string
	Code       string
	ModelUsed  string
	HostedURL  string
	PreviewRef string
	// Note annotates the initial Version record. Defaults to "Initial version".
	Note string
}

// Settings is the persisted user-preference record. It lives in its own
// table and never shares keys with apps or versions.
type Settings struct {
	ActiveProvider string   `json:"active_provider"`
	Model          string   `json:"model"`
	FavoriteModels []string `json:"favorite_models"`
	Theme          string   `json:"theme"`
}

// Filter narrows List results. Zero value matches everything.
type Filter struct {
	FavoritesOnly bool
	// SearchText is matched case-insensitively as a substring of
	// name, title and prompt.
	SearchText string
}

// SortBy selects the List ordering key.
type SortBy string

const (
	SortByDate  SortBy = "date"
	SortByName  SortBy = "name"
	SortByViews SortBy = "views"
)

// Sort describes the List ordering. Descending by default.
type Sort struct {
	By        SortBy
	Ascending bool
}
