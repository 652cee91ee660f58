package model

type Submission struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Answer1 string `json:"answer1"`
	Answer2 string `json:"answer2"`
	Ctime   int64  `json:"ctime"`
}

type Stats struct {
	TotalIdentities  int64                       `json:"total_identities"`
	TotalSubmissions int64                       `json:"total_submissions"`
	Participation    int64                       `json:"participation"`
	Tallies          map[string]map[string]int64 `json:"tallies"`
}
