package heuristics

import "math"

// Entropy accumulates byte frequencies and reports Shannon entropy in
// bits per byte. It is an io.Writer so it can sit behind io.Copy or an
// io.MultiWriter next to a hash.
type Entropy struct {
	counts [256]uint64
	total  uint64
}

func (e *Entropy) Write(p []byte) (int, error) {
	for _, b := range p {
		e.counts[b]++
	}
	e.total += uint64(len(p))
	return len(p), nil
}

// Sum returns H = -Σ p·log2(p). Zero bytes written gives 0.
func (e *Entropy) Sum() float64 {
	if e.total == 0 {
		return 0
	}
	n := float64(e.total)
	var h float64
	for _, c := range e.counts {
		if c == 0 {
			continue
		}
		p := float64(c) / n
		h -= p * math.Log2(p)
	}
	return h
}

// Size is the number of bytes written so far.
func (e *Entropy) Size() uint64 { return e.total }

func (e *Entropy) Reset() {
	*e = Entropy{}
}

// EntropyOf is the entropy of b.
func EntropyOf(b []byte) float64 {
	var e Entropy
	_, _ = e.Write(b)
	return e.Sum()
}
