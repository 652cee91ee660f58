package model

type OneTimeCode struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Code      string `json:"-"`
	Used      int    `json:"used"`
	Ctime     int64  `json:"ctime"`
	ExpiresAt int64  `json:"expires_at"`
}
