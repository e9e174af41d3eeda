package mesh

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/YuminosukeSato/itwmm/pkg/errors"
)

var trilistCache = struct {
	sync.Mutex
	byPath map[string]*Trilist
}{byPath: make(map[string]*Trilist)}

// LoadTrilist reads the reference connectivity file once per path and returns
// the same *Trilist on every later call. Failed loads are not cached.
func LoadTrilist(path string) (*Trilist, error) {
	key, err := filepath.Abs(path)
	if err != nil {
		key = filepath.Clean(path)
	}

	trilistCache.Lock()
	defer trilistCache.Unlock()

	if t, ok := trilistCache.byPath[key]; ok {
		return t, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.NewLoadError("trilist", path, err)
	}
	defer f.Close()

	t, err := ParseTrilist(f)
	if err != nil {
		return nil, errors.NewLoadError("trilist", path, err)
	}
	trilistCache.byPath[key] = t
	return t, nil
}

// ResetTrilistCache drops every cached trilist.
func ResetTrilistCache() {
	trilistCache.Lock()
	defer trilistCache.Unlock()
	trilistCache.byPath = make(map[string]*Trilist)
}

// ParseTrilist parses the dataset's connectivity layout: three rows of
// one-based vertex indices, one triangle per column.
func ParseTrilist(r io.Reader) (*Trilist, error) {
	rows, err := ReadMatrix(r)
	if err != nil {
		return nil, err
	}
	if len(rows) != 3 {
		return nil, errors.NewDimensionError("ParseTrilist", 3, len(rows), 0)
	}

	n := len(rows[0])
	triangles := make([][3]int, n)
	for k := 0; k < 3; k++ {
		for j, v := range rows[k] {
			if v != math.Trunc(v) || v < 1 {
				return nil, errors.NewValueError("ParseTrilist",
					fmt.Sprintf("entry (%d, %d) = %v is not a one-based index", k, j, v))
			}
			triangles[j][k] = int(v) - 1
		}
	}
	return NewTrilist(triangles), nil
}

// ReadMatrix reads a whitespace separated numeric matrix, one row per line.
// Blank lines and lines starting with '#' are skipped. Every row must have the
// same number of columns.
func ReadMatrix(r io.Reader) ([][]float64, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 1<<20), 1<<28)

	var rows [][]float64
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.FieldsFunc(text, func(c rune) bool {
			return c == ' ' || c == '\t' || c == ','
		})
		row := make([]float64, len(fields))
		for i, f := range fields {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, errors.Wrapf(err, "line %d, column %d", line, i+1)
			}
			row[i] = v
		}
		if len(rows) > 0 && len(row) != len(rows[0]) {
			return nil, errors.NewDimensionError(fmt.Sprintf("ReadMatrix line %d", line), len(rows[0]), len(row), 1)
		}
		rows = append(rows, row)
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(err, "ReadMatrix")
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "ReadMatrix")
	}
	return rows, nil
}
