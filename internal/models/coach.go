package models

type Coach struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Specialty       string   `json:"specialty"`
	Description     string   `json:"description"`
	Image           string   `json:"image"`
	Specializations []string `json:"specializations"`
}

type CoachWithScore struct {
	Coach
	MatchScore int `json:"match_score"`
}
