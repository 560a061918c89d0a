// Package model holds the wire types shared by the API client, the session
// manager and the notes store.
package model

// User is a profile as returned by the API.
type User struct {
	ID             ID     `json:"id"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	Bio            string `json:"bio,omitempty"`
	Roles          Roles  `json:"roles"`
	Restricted     bool   `json:"restricted"`
	ProfilePicture string `json:"profilePicture,omitempty"`
	Provider       string `json:"provider,omitempty"`
	CreatedAt      Time   `json:"createdAt"`
	UpdatedAt      Time   `json:"updatedAt"`
}

// IsAdmin reports whether the user holds the admin role.
func (u User) IsAdmin() bool {
	return u.Roles.Has(RoleAdmin)
}

// Note is a single user note. An empty ShareToken means the note is private.
type Note struct {
	ID         ID     `json:"id"`
	Title      string `json:"title"`
	Content    string `json:"content"`
	ShareToken string `json:"shareToken,omitempty"`
	CreatedAt  Time   `json:"createdAt"`
	UpdatedAt  Time   `json:"updatedAt"`
}

func (n Note) IsShared() bool {
	return n.ShareToken != ""
}

// NoteInput is the body of create and update requests. A nil ShareToken is
// sent as JSON null, which unshares the note.
type NoteInput struct {
	Title      string  `json:"title"`
	Content    string  `json:"content"`
	ShareToken *string `json:"shareToken"`
}

// ShareToken returns a pointer suitable for NoteInput.ShareToken; the empty
// string maps to nil.
func ShareToken(token string) *string {
	if token == "" {
		return nil
	}
	return &token
}

// AuthResponse is the body of a successful login or register call.
type AuthResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

// AdminUser is a row of the admin user table.
type AdminUser struct {
	User
	NotesCount int `json:"notesCount"`
}

// AdminStats is the admin dashboard summary.
type AdminStats struct {
	TotalUsers      int         `json:"totalUsers"`
	TotalAdmins     int         `json:"totalAdmins"`
	TotalNotes      int         `json:"totalNotes"`
	RestrictedUsers int         `json:"restrictedUsers"`
	RecentUsers     []AdminUser `json:"recentUsers"`
}

// RoleChange is the response of a promote/demote call.
type RoleChange struct {
	Success bool  `json:"success"`
	Roles   Roles `json:"roles"`
}

// ProfileUpdate is the body of PUT /user/profile.
type ProfileUpdate struct {
	Name           string `json:"name"`
	Bio            string `json:"bio"`
	ProfilePicture string `json:"profilePicture,omitempty"`
}
