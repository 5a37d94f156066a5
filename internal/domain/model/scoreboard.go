package model

// ScoreboardRow is one ranked participant: best score per problem plus total.
type ScoreboardRow struct {
	Rank          int            `json:"rank"`
	UserID        string         `json:"user_id"`
	Username      string         `json:"username"`
	ProblemScores map[string]int `json:"problem_scores"` // problem ID -> best reviewed score
	Total         int            `json:"total"`
}
