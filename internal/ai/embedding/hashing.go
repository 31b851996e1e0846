package embedding

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"math"
	"regexp"
	"strings"
)

const DefaultHashingDimensions = 384

var reWord = regexp.MustCompile(`\w+`)

// HashingEmbedder is an in-process bag-of-words embedder. Each lowercase word
// and word bigram is hashed into a fixed number of signed buckets and the
// vector is L2 normalized. It needs no model files or network access.
type HashingEmbedder struct {
	dimensions int
}

// NewHashingEmbedder creates a hashing embedder. Non-positive dimensions fall
// back to DefaultHashingDimensions.
func NewHashingEmbedder(dimensions int) *HashingEmbedder {
	if dimensions <= 0 {
		dimensions = DefaultHashingDimensions
	}
	return &HashingEmbedder{dimensions: dimensions}
}

// HashingLoader returns a Loader for a hashing embedder.
func HashingLoader(dimensions int) Loader {
	return func(context.Context) (Embedder, error) {
		return NewHashingEmbedder(dimensions), nil
	}
}

func (h *HashingEmbedder) Model() string {
	return fmt.Sprintf("hashing-%d", h.dimensions)
}

func (h *HashingEmbedder) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, errors.New("no texts to embed")
	}

	out := make([][]float64, 0, len(texts))
	for _, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out = append(out, h.embed(text))
	}
	return out, nil
}

func (h *HashingEmbedder) embed(text string) []float64 {
	vec := make([]float64, h.dimensions)
	words := reWord.FindAllString(strings.ToLower(text), -1)

	for i, w := range words {
		h.add(vec, w)
		if i > 0 {
			h.add(vec, words[i-1]+" "+w)
		}
	}

	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	if norm == 0 {
		return vec
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] /= norm
	}
	return vec
}

func (h *HashingEmbedder) add(vec []float64, feature string) {
	hasher := fnv.New64a()
	_, _ = hasher.Write([]byte(feature))
	sum := hasher.Sum64()

	idx := int(sum % uint64(h.dimensions))
	if sum&(1<<63) != 0 {
		vec[idx]--
		return
	}
	vec[idx]++
}
