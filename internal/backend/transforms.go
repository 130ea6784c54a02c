package backend

import (
	"fmt"
	"strconv"
	"strings"
)

// Copy is the identity transform.
func Copy(in, out []byte) bool {
	copy(out, in)
	return true
}

// Invert writes the bitwise complement of every byte.
func Invert(in, out []byte) bool {
	for i, b := range in {
		out[i] = ^b
	}
	return true
}

// XOR returns a transform that XORs every byte with key. Applying it twice
// restores the input.
func XOR(key byte) TransformFunc {
	return func(in, out []byte) bool {
		for i, b := range in {
			out[i] = b ^ key
		}
		return true
	}
}

// ParseTransform resolves a transform name: copy, seq (alias of copy),
// invert, or xor:<byte> where the byte is decimal or 0x-prefixed hex.
func ParseTransform(name string) (TransformFunc, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	switch n {
	case "", "copy", "seq":
		return Copy, nil
	case "invert", "not":
		return Invert, nil
	}
	if arg, ok := strings.CutPrefix(n, "xor:"); ok {
		key, err := strconv.ParseUint(arg, 0, 8)
		if err != nil {
			return nil, &Error{Kind: InvalidJob, Op: "parse transform", Path: name, Err: err}
		}
		return XOR(byte(key)), nil
	}
	return nil, &Error{Kind: InvalidJob, Op: "parse transform", Path: name, Err: fmt.Errorf("unknown transform")}
}
