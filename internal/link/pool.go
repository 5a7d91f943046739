package link

import "github.com/roach88/civil/internal/algorithm"

// termPool is a take-once pool of algorithm terms. A term leaves the pool
// the first time it is taken; a second take of the same name misses.
type termPool struct {
	terms map[string]*algorithm.Algorithm
}

func newTermPool() *termPool {
	return &termPool{terms: make(map[string]*algorithm.Algorithm)}
}

func (p *termPool) put(name string, alg *algorithm.Algorithm) {
	p.terms[name] = alg
}

// take removes and returns the named term.
func (p *termPool) take(name string) (*algorithm.Algorithm, bool) {
	alg, ok := p.terms[name]
	if !ok {
		return nil, false
	}
	delete(p.terms, name)
	return alg, true
}

// remaining returns the number of terms never bound.
func (p *termPool) remaining() int {
	return len(p.terms)
}
