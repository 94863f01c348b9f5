package vector

import (
	"github.com/hyperjump/askpdf/pkg/utils"
)

// CosineSimilarity returns the cosine of the angle between a and b, in [-1, 1].
// It is 0 when either vector is zero or the lengths differ.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	na, nb := utils.Norm(a), utils.Norm(b)
	if na == 0 || nb == 0 {
		return 0
	}
	return clamp(utils.Dot(a, b) / (na * nb))
}

func clamp(s float64) float64 {
	if s > 1 {
		return 1
	}
	if s < -1 {
		return -1
	}
	return s
}
