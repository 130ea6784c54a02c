package backend

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
)

// Zero fills every block with zero bytes.
func Zero(out []byte) {
	clear(out)
}

// patternModulus is prime so the pattern never aligns with power-of-two
// block sizes.
const patternModulus = 251

// Pattern fills byte i of every block with i mod 251.
func Pattern(out []byte) {
	for i := range out {
		out[i] = byte(i % patternModulus)
	}
}

// Random returns a generator that fills every block with the same seeded
// pseudo-random bytes.
func Random(seed uint64) GeneratorFunc {
	var tmpl []byte
	return func(out []byte) {
		if len(tmpl) != len(out) {
			r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
			tmpl = make([]byte, len(out))
			for i := range tmpl {
				tmpl[i] = byte(r.Uint32())
			}
		}
		copy(out, tmpl)
	}
}

// ParseGenerator resolves a generator name: zero, pattern or random[:seed].
func ParseGenerator(name string) (GeneratorFunc, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	switch n {
	case "", "zero":
		return Zero, nil
	case "pattern":
		return Pattern, nil
	case "random":
		return Random(1), nil
	}
	if arg, ok := strings.CutPrefix(n, "random:"); ok {
		seed, err := strconv.ParseUint(arg, 0, 64)
		if err != nil {
			return nil, &Error{Kind: InvalidJob, Op: "parse generator", Path: name, Err: err}
		}
		return Random(seed), nil
	}
	return nil, &Error{Kind: InvalidJob, Op: "parse generator", Path: name, Err: fmt.Errorf("unknown generator")}
}
