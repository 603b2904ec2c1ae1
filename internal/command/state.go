package command

// State is the client-side session state. Clients change it only in response to host events.
type State string

const (
	StateIdle              State = "idle"
	StateHostingLobby      State = "hosting-lobby"
	StateInLobby           State = "in-lobby"
	StateShowingInvitation State = "showing-invitation"
	StateInGame            State = "in-game"
	StateExamInProgress    State = "exam-in-progress"
)

var states = []State{
	StateIdle,
	StateHostingLobby,
	StateInLobby,
	StateShowingInvitation,
	StateInGame,
	StateExamInProgress,
}

// States returns every client state in declaration order.
func States() []State {
	out := make([]State, len(states))
	copy(out, states)
	return out
}

func (s State) Valid() bool {
	for _, v := range states {
		if v == s {
			return true
		}
	}
	return false
}

// Connected reports whether s implies a live session connection.
func (s State) Connected() bool {
	return s != StateIdle && s.Valid()
}

// Role decides which variant of a dual-variant command a client may issue.
type Role string

const (
	RoleGuest Role = "guest"
	RoleHost  Role = "host"
)
