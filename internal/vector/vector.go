package vector

import (
	"encoding/json"
	"math"
)

// Parse decodes a stored embedding (JSON array of float32) into a vector.
// It fails closed: empty input, malformed JSON, an empty array, or any
// non-finite element all yield (nil, false). A record whose embedding does
// not parse must behave exactly like a record with no embedding at all.
func Parse(raw string) ([]float32, bool) {
	if raw == "" {
		return nil, false
	}
	var vec []float32
	if err := json.Unmarshal([]byte(raw), &vec); err != nil {
		return nil, false
	}
	if !IsValid(vec) {
		return nil, false
	}
	return vec, true
}

// Encode serializes a vector as a JSON array of float32. Go prints each
// float32 in its shortest round-tripping form, so Parse(Encode(v)) returns
// the same bits element for element.
func Encode(vec []float32) string {
	if len(vec) == 0 {
		return ""
	}
	b, err := json.Marshal(vec)
	if err != nil {
		return ""
	}
	return string(b)
}

// IsValid reports whether vec is non-empty and every element is finite.
func IsValid(vec []float32) bool {
	if len(vec) == 0 {
		return false
	}
	for _, v := range vec {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}

// Norm returns the L2 norm of vec.
func Norm(vec []float32) float64 {
	var sum float64
	for _, v := range vec {
		f := float64(v)
		sum += f * f
	}
	return math.Sqrt(sum)
}

// Normalize returns a unit-length copy of vec, or (nil, false) if vec has
// zero norm. A zero vector carries no direction and cannot be normalized.
func Normalize(vec []float32) ([]float32, bool) {
	norm := Norm(vec)
	if norm == 0 {
		return nil, false
	}
	out := make([]float32, len(vec))
	for i, v := range vec {
		out[i] = float32(float64(v) / norm)
	}
	return out, true
}

// Cosine computes the cosine similarity of a and b by L2-normalizing both
// and taking the dot product. It returns (0, false) when the dimensions
// differ or either vector has zero norm; such pairs are not comparable and
// must be excluded from ranking rather than scored as zero.
func Cosine(a, b []float32) (float64, bool) {
	if len(a) == 0 || len(a) != len(b) {
		return 0, false
	}
	var dot, na2, nb2 float64
	for i := range a {
		va := float64(a[i])
		vb := float64(b[i])
		dot += va * vb
		na2 += va * va
		nb2 += vb * vb
	}
	if na2 == 0 || nb2 == 0 {
		return 0, false
	}
	return dot / (math.Sqrt(na2) * math.Sqrt(nb2)), true
}
