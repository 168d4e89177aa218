package grid

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"unicode"
	"unicode/utf8"

	"github.com/couchcryptid/storm-feature-detect/internal/domain"
)

// ReadConnectivity parses an unstructured grid description:
//
//	N
//	lon, lat, k, n1, n2, ..., nk    (one line per node)
//
// Coordinates are degrees; neighbor indices are one-based. Tokens may be
// separated by commas or any whitespace.
func ReadConnectivity(r io.Reader) (*Grid, error) {
	tok := newTokenizer(r)

	n, err := tok.int("node count")
	if err != nil {
		return nil, err
	}
	if n <= 0 {
		return nil, fmt.Errorf("%w: connectivity node count %d", domain.ErrDataAccess, n)
	}

	lat := make([]float64, n)
	lon := make([]float64, n)
	adj := make([][]int, n)
	for f := range n {
		lonDeg, err := tok.float(fmt.Sprintf("node %d longitude", f))
		if err != nil {
			return nil, err
		}
		latDeg, err := tok.float(fmt.Sprintf("node %d latitude", f))
		if err != nil {
			return nil, err
		}
		k, err := tok.int(fmt.Sprintf("node %d neighbor count", f))
		if err != nil {
			return nil, err
		}
		if k < 0 {
			return nil, fmt.Errorf("%w: node %d has negative neighbor count %d", domain.ErrDataAccess, f, k)
		}

		lon[f] = lonDeg * math.Pi / 180
		lat[f] = latDeg * math.Pi / 180
		if err := checkLatitude(lat[f]); err != nil {
			return nil, fmt.Errorf("node %d: %w", f, err)
		}

		nbrs := make([]int, 0, k)
		for range k {
			oneBased, err := tok.int(fmt.Sprintf("node %d neighbor", f))
			if err != nil {
				return nil, err
			}
			idx := oneBased - 1
			if idx < 0 || idx >= n {
				return nil, fmt.Errorf("%w: node %d neighbor %d out of range [1, %d]", domain.ErrDataAccess, f, oneBased, n)
			}
			nbrs = append(nbrs, idx)
		}
		adj[f] = nbrs
	}
	return newUnstructured(lat, lon, adj), nil
}

type tokenizer struct {
	sc *bufio.Scanner
}

func newTokenizer(r io.Reader) *tokenizer {
	sc := bufio.NewScanner(r)
	sc.Split(splitFields)
	return &tokenizer{sc: sc}
}

func (t *tokenizer) next(what string) (string, error) {
	if t.sc.Scan() {
		return t.sc.Text(), nil
	}
	if err := t.sc.Err(); err != nil {
		return "", fmt.Errorf("%w: reading %s: %w", domain.ErrDataAccess, what, err)
	}
	return "", fmt.Errorf("%w: premature end of connectivity input at %s", domain.ErrDataAccess, what)
}

func (t *tokenizer) int(what string) (int, error) {
	s, err := t.next(what)
	if err != nil {
		return 0, err
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", domain.ErrDataAccess, what, unwrapNum(err))
	}
	return v, nil
}

func (t *tokenizer) float(what string) (float64, error) {
	s, err := t.next(what)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", domain.ErrDataAccess, what, unwrapNum(err))
	}
	return v, nil
}

func unwrapNum(err error) error {
	var ne *strconv.NumError
	if errors.As(err, &ne) {
		return fmt.Errorf("%q: %w", ne.Num, ne.Err)
	}
	return err
}

func isSep(r rune) bool { return r == ',' || unicode.IsSpace(r) }

// splitFields is a bufio.SplitFunc yielding tokens separated by commas or whitespace.
func splitFields(data []byte, atEOF bool) (advance int, token []byte, err error) {
	start := 0
	for start < len(data) {
		r, w := utf8.DecodeRune(data[start:])
		if !isSep(r) {
			break
		}
		start += w
	}
	for i := start; i < len(data); {
		r, w := utf8.DecodeRune(data[i:])
		if isSep(r) {
			return i + w, data[start:i], nil
		}
		i += w
	}
	if atEOF && len(data) > start {
		return len(data), data[start:], nil
	}
	return start, nil, nil
}

// ReadConnectivityFile opens path and parses it with ReadConnectivity.
func ReadConnectivityFile(path string) (*Grid, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open connectivity file: %w", domain.ErrDataAccess, err)
	}
	defer f.Close()
	return ReadConnectivity(f)
}
