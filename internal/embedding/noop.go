package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

const noopDims = 64

// NoopProvider embeds text without any model: each token hashes into a
// fixed bucket, the bucket counts form the vector, normalized to unit
// length. Texts sharing words land near each other, which is enough for
// offline development and deterministic tests.
type NoopProvider struct {
	dims int
}

// NewNoopProvider creates the offline provider. dims <= 0 selects the
// default size.
func NewNoopProvider(dims int) *NoopProvider {
	if dims <= 0 {
		dims = noopDims
	}
	return &NoopProvider{dims: dims}
}

// Dimensions returns the embedding vector size.
func (p *NoopProvider) Dimensions() int {
	return p.dims
}

// Embed returns a deterministic unit vector derived from token hashes.
func (p *NoopProvider) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, p.dims)

	for _, tok := range tokenize(text) {
		h := fnv.New32a()
		h.Write([]byte(tok))
		sum := h.Sum32()
		bucket := int(sum % uint32(p.dims))
		sign := float32(1)
		if sum&0x80000000 != 0 {
			sign = -1
		}
		vec[bucket] += sign
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		vec[0] = 1
		return vec, nil
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= scale
	}
	return vec, nil
}

// EmbedBatch embeds each text independently.
func (p *NoopProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vecs := make([][]float32, len(texts))
	for i, t := range texts {
		vec, err := p.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		vecs[i] = vec
	}
	return vecs, nil
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
