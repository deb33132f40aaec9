package onboarding

import (
	"sort"
	"strings"

	"github.com/fitversal/onboardchat/internal/models"
)

var coachCatalog = []models.Coach{
	{
		ID:              "coach_kate",
		Name:            "Kate",
		Specialty:       "Fitness & Wellness",
		Description:     "Weight loss, toning and general well-being.",
		Image:           "/coaches/coach_kate.jpg",
		Specializations: []string{"weight_loss", "toning", "wellness"},
	},
	{
		ID:              "coach_rory",
		Name:            "Rory",
		Specialty:       "Functional Training & Hyrox",
		Description:     "Functional movements and muscle endurance.",
		Image:           "/coaches/coach_rory.jpg",
		Specializations: []string{"functional_training", "hyrox", "endurance"},
	},
	{
		ID:              "coach_matt",
		Name:            "Matt",
		Specialty:       "Strength & Conditioning",
		Description:     "Muscle gain and athletic power.",
		Image:           "/coaches/coach_matt.jpg",
		Specializations: []string{"muscle_gain", "strength_training", "athletic_performance"},
	},
}

func Coaches() []models.Coach {
	coaches := make([]models.Coach, len(coachCatalog))
	copy(coaches, coachCatalog)
	return coaches
}

func FindCoach(id string) (models.Coach, bool) {
	for _, coach := range coachCatalog {
		if coach.ID == id {
			return coach, true
		}
	}
	return models.Coach{}, false
}

// RecommendCoaches ranks the catalog against the profile goal and level.
// Ties keep catalog order.
func RecommendCoaches(profile models.Profile) []models.CoachWithScore {
	ranked := make([]models.CoachWithScore, 0, len(coachCatalog))
	for _, coach := range coachCatalog {
		ranked = append(ranked, models.CoachWithScore{
			Coach:      coach,
			MatchScore: matchScore(profile, coach),
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].MatchScore > ranked[j].MatchScore
	})
	return ranked
}

func matchScore(profile models.Profile, coach models.Coach) int {
	score := 0
	specs := make(map[string]struct{}, len(coach.Specializations))
	for _, spec := range coach.Specializations {
		specs[normalizeTag(spec)] = struct{}{}
	}

	for _, alias := range goalAliases(profile.Goal) {
		if _, ok := specs[alias]; ok {
			score += 40
			break
		}
	}

	switch normalizeTag(profile.Level) {
	case "beginner":
		if coach.ID == "coach_kate" {
			score += 10
		}
	case "advanced":
		if coach.ID == "coach_matt" || coach.ID == "coach_rory" {
			score += 10
		}
	}

	return score
}

func goalAliases(goal string) []string {
	switch key := normalizeTag(goal); key {
	case "weight_loss", "fat_loss", "lose_weight":
		return []string{"weight_loss"}
	case "toning", "tone", "get_fit", "wellness", "general_fitness":
		return []string{"toning", "wellness"}
	case "muscle_gain", "build_muscle", "gain_muscle":
		return []string{"muscle_gain", "strength_training"}
	case "strength", "get_stronger":
		return []string{"strength_training", "athletic_performance"}
	case "endurance", "hyrox", "functional", "functional_training":
		return []string{"endurance", "hyrox", "functional_training"}
	case "":
		return nil
	default:
		return []string{key}
	}
}

func normalizeTag(value string) string {
	value = strings.TrimSpace(strings.ToLower(value))
	value = strings.ReplaceAll(value, " ", "_")
	value = strings.ReplaceAll(value, "-", "_")
	return value
}
