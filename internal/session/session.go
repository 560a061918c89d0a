// Package session owns the bearer token and profile of the current user.
//
// A Manager moves between four states:
//
//	Unauthenticated --Init(token)--> Validating --profile ok--> Authenticated
//	                                     |
//	                                     +--restricted--> Restricted --> Unauthenticated
//	                                     +--any failure-------------------> Unauthenticated
//
// Login and Register go straight to Authenticated; Logout, a 401 from the API
// or a restricted profile always end in Unauthenticated with both the token
// and the user cleared together.
package session

import (
	"context"
	"fmt"

	"github.com/kuitang/notes-client/internal/model"
)

// State is the session lifecycle state.
type State int

const (
	Unauthenticated State = iota
	Validating
	Authenticated
	Restricted
)

func (s State) String() string {
	switch s {
	case Unauthenticated:
		return "unauthenticated"
	case Validating:
		return "validating"
	case Authenticated:
		return "authenticated"
	case Restricted:
		return "restricted"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Snapshot is a copy of the session at one instant.
type Snapshot struct {
	State   State
	Token   string
	User    *model.User
	Loading bool
}

// IsAuthenticated reports token and user both present.
func (s Snapshot) IsAuthenticated() bool {
	return s.Token != "" && s.User != nil
}

// EventKind distinguishes listener events.
type EventKind int

const (
	EventNotice EventKind = iota
	EventNavigate
)

// Level is the severity of a notice.
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Event is a caller-visible side effect: a notice to show or a view to go to.
type Event struct {
	Kind    EventKind
	Level   Level
	Message string
	Path    string
}

// Listener receives events after the state change that caused them is
// visible through Snapshot.
type Listener func(Event)

// Reason classifies a failed Login or Register.
type Reason string

const (
	ReasonNone         Reason = ""
	ReasonInvalidInput Reason = "invalid_input"
	ReasonRestricted   Reason = "restricted"
	ReasonFailed       Reason = "failed"
)

// Result is the outcome of Login or Register. These never return errors.
type Result struct {
	OK      bool
	User    *model.User
	Reason  Reason
	Message string
}

// RestrictedMessage is shown whenever the server reports the account
// restricted.
const RestrictedMessage = "Your account is restricted. Please contact support."

// Views the manager navigates to.
const (
	PathLogin = "/login"
	PathHome  = "/"
)

// API is the part of the API client the session needs.
type API interface {
	GetProfile(ctx context.Context) (model.User, error)
	Login(ctx context.Context, email, password string) (model.AuthResponse, error)
	Register(ctx context.Context, name, email, password string) (model.AuthResponse, error)
}
