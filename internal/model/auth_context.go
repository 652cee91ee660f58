package model

type AuthStage string

const (
	StageAnonymous     AuthStage = "anonymous"
	StagePending       AuthStage = "pending"
	StageAuthenticated AuthStage = "authenticated"
)

// AuthContext tracks one caller through issue -> verify -> submit.
// It is a plain value: operations take one and hand back the next.
type AuthContext struct {
	Stage AuthStage `json:"stage"`
	Email string    `json:"email,omitempty"`
}

func Anonymous() AuthContext {
	return AuthContext{Stage: StageAnonymous}
}

func Pending(email string) AuthContext {
	return AuthContext{Stage: StagePending, Email: email}
}

func Authenticated(email string) AuthContext {
	return AuthContext{Stage: StageAuthenticated, Email: email}
}

func (a AuthContext) IsPending() bool {
	return a.Stage == StagePending && a.Email != ""
}

func (a AuthContext) IsAuthenticated() bool {
	return a.Stage == StageAuthenticated && a.Email != ""
}
