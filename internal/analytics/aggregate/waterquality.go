package aggregate

import (
	"math"

	"github.com/mamadbah2/aquafarm/internal/domain/models"
)

// Rating is a categorical water-quality level.
type Rating struct {
	Level int
	Label string
	Tone  models.Tone
}

var ratings = []Rating{
	{Level: 0, Label: "lethal", Tone: models.ToneNegative},
	{Level: 1, Label: "critical", Tone: models.ToneWarning},
	{Level: 2, Label: "acceptable", Tone: models.ToneNeutral},
	{Level: 3, Label: "optimal", Tone: models.TonePositive},
}

// RatingFor rounds a mean rating to the nearest level and maps it to its label.
// Out-of-range means are clamped; the second result reports whether clamping happened.
func RatingFor(mean float64) (Rating, bool) {
	level := int(math.Round(mean))
	clamped := false
	if level < 0 {
		level, clamped = 0, true
	}
	if level > len(ratings)-1 {
		level, clamped = len(ratings)-1, true
	}
	return ratings[level], clamped
}
