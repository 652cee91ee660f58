package model

type Identity struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Ctime       int64  `json:"ctime"`
}

// RosterEntry is an identity together with its submission status.
type RosterEntry struct {
	Email        string `json:"email"`
	DisplayName  string `json:"display_name"`
	HasSubmitted bool   `json:"has_submitted"`
}
