// Package citycodes manages the list of selectable stations, stored one
// "CODE - City Name" entry per line.
package citycodes

import (
	"bufio"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/sells-group/fare-cli/internal/model"
)

// DefaultFile is the list file name looked up when none is configured.
const DefaultFile = "City_Codes_List.txt"

const sep = " - "

var (
	// ErrDuplicate is returned by Add when the code is already listed.
	ErrDuplicate = eris.New("citycodes: code already listed")
	// ErrNotFound is returned by Remove when the code is not listed.
	ErrNotFound = eris.New("citycodes: code not listed")
)

// City is one selectable station.
type City struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// String renders the entry as "CODE - Name".
func (c City) String() string {
	if c.Name == "" {
		return c.Code
	}
	return c.Code + sep + c.Name
}

// Fallback is used when the list file does not exist.
var Fallback = []City{
	{Code: "KUL", Name: "Kuala Lumpur"},
	{Code: "KBV", Name: "Kota Bharu"},
	{Code: "LGK", Name: "Langkawi"},
	{Code: "KUA", Name: "Kuantan"},
	{Code: "PEN", Name: "Penang"},
}

// Parse parses one "CODE - City Name" entry. The code is upper-cased and the
// name kept as written. An entry without a separator is treated as a bare code.
func Parse(entry string) (City, error) {
	entry = strings.TrimSpace(entry)
	code, name, _ := strings.Cut(entry, sep)
	code = Code(code)
	if code == "" {
		return City{}, eris.Errorf("citycodes: empty code in %q", entry)
	}
	if strings.ContainsAny(code, " \t") {
		return City{}, eris.Errorf("citycodes: invalid code %q", code)
	}
	return City{Code: code, Name: strings.TrimSpace(name)}, nil
}

// Code extracts the station code from a "CODE - City" entry.
func Code(entry string) string {
	return model.StationCode(strings.TrimSpace(entry))
}

// Load reads the list at path, skipping blank lines. A missing file yields
// a copy of Fallback. A leading byte-order mark is ignored.
func Load(path string) ([]City, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		zap.L().Info("citycodes: list file not found, using defaults", zap.String("path", path))
		return slices.Clone(Fallback), nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "citycodes: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	return read(f)
}

func read(r io.Reader) ([]City, error) {
	dec := transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
	sc := bufio.NewScanner(dec)

	var cities []City
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		c, err := Parse(text)
		if err != nil {
			return nil, eris.Wrapf(err, "citycodes: line %d", line)
		}
		cities = append(cities, c)
	}
	if err := sc.Err(); err != nil {
		return nil, eris.Wrap(err, "citycodes: read list")
	}
	return cities, nil
}

// Save rewrites the list at path, one entry per line. The file is written
// to a temporary sibling and renamed into place.
func Save(path string, cities []City) error {
	var b strings.Builder
	for _, c := range cities {
		b.WriteString(c.String())
		b.WriteByte('\n')
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".citycodes-*")
	if err != nil {
		return eris.Wrap(err, "citycodes: create temp file")
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	if _, err := tmp.WriteString(b.String()); err != nil {
		_ = tmp.Close()
		return eris.Wrap(err, "citycodes: write list")
	}
	if err := tmp.Close(); err != nil {
		return eris.Wrap(err, "citycodes: close list")
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return eris.Wrapf(err, "citycodes: replace %s", path)
	}
	return nil
}

// Add appends c, rejecting a code that is already listed.
func Add(cities []City, c City) ([]City, error) {
	c.Code = Code(c.Code)
	if c.Code == "" {
		return cities, eris.New("citycodes: add: empty code")
	}
	if Find(cities, c.Code) >= 0 {
		return cities, eris.Wrapf(ErrDuplicate, "citycodes: add %s", c.Code)
	}
	return append(slices.Clone(cities), c), nil
}

// Remove deletes the entry with code.
func Remove(cities []City, code string) ([]City, error) {
	i := Find(cities, code)
	if i < 0 {
		return cities, eris.Wrapf(ErrNotFound, "citycodes: remove %s", code)
	}
	return slices.Delete(slices.Clone(cities), i, i+1), nil
}

// Find returns the index of code in cities, or -1.
func Find(cities []City, code string) int {
	code = Code(code)
	return slices.IndexFunc(cities, func(c City) bool { return c.Code == code })
}
