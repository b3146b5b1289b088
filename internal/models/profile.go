package models

// Visibility тип профиля, выбранный на экране видимости.
type Visibility string

const (
	// VisibilityPublic публичный профиль.
	VisibilityPublic Visibility = "public"
	// VisibilityAnonymous анонимный профиль.
	VisibilityAnonymous Visibility = "anonymous"
	// VisibilityUnset выбор ещё не сделан.
	VisibilityUnset Visibility = ""
)

// ProfileTypeRequest тело запроса set-profile-type.
type ProfileTypeRequest struct {
	ProfileType string `json:"profile_type" validate:"required,oneof=public anonymous"`
	Username    string `json:"username" validate:"required"`
}
