package spectrum

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Errors returned by the readers.
var (
	ErrNoData    = errors.New("spectrum: no data samples found")
	ErrDelimiter = errors.New("spectrum: unable to determine delimiter")
)

// candidate delimiters tried during sniffing, most specific first.
// The empty string selects whitespace splitting.
var sniffDelimiters = []string{",", "\t", ";", ""}

type readConfig struct {
	delimiter string
	sniff     bool
	client    *http.Client
}

// ReadOption configures reading.
type ReadOption func(*readConfig)

// WithDelimiter sets the column delimiter instead of sniffing it.
// An empty string selects whitespace splitting.
func WithDelimiter(d string) ReadOption {
	return func(c *readConfig) {
		c.delimiter = d
		c.sniff = false
	}
}

// WithHTTPClient sets the client used by [ReadURL].
func WithHTTPClient(client *http.Client) ReadOption {
	return func(c *readConfig) {
		if client != nil {
			c.client = client
		}
	}
}

func defaultReadConfig() readConfig {
	return readConfig{
		sniff:  true,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

// Read parses two-column ASCII spectrum data: one (x, y) pair per line,
// blank lines and lines starting with '#' skipped. Samples are sorted
// by abscissa before being returned.
func Read(r io.Reader, opts ...ReadOption) (x, y []float64, err error) {
	cfg := defaultReadConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	scanner := bufio.NewScanner(r)
	lineNo := 0

	for scanner.Scan() {
		lineNo++

		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if cfg.sniff {
			cfg.delimiter, err = sniffDelimiter(line)
			if err != nil {
				return nil, nil, err
			}

			cfg.sniff = false
		}

		xv, yv, err := parseSample(line, cfg.delimiter)
		if err != nil {
			return nil, nil, fmt.Errorf("spectrum: line %d: %w", lineNo, err)
		}

		x = append(x, xv)
		y = append(y, yv)
	}

	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("spectrum: reading data: %w", err)
	}

	if len(x) == 0 {
		return nil, nil, ErrNoData
	}

	sort.Sort(&byAbscissa{x: x, y: y})

	return x, y, nil
}

// ReadFile reads a two-column ASCII spectrum from a local file.
func ReadFile(path string, opts ...ReadOption) (x, y []float64, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("spectrum: opening %s: %w", path, err)
	}
	defer f.Close()

	return Read(f, opts...)
}

// ReadURL fetches a two-column ASCII spectrum over HTTP(S).
func ReadURL(url string, opts ...ReadOption) (x, y []float64, err error) {
	cfg := defaultReadConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	resp, err := cfg.client.Get(url)
	if err != nil {
		return nil, nil, fmt.Errorf("spectrum: fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, nil, fmt.Errorf("spectrum: fetching %s: unexpected status %s", url, resp.Status)
	}

	return Read(resp.Body, opts...)
}

// sniffDelimiter picks the first candidate delimiter that splits the
// line into at least two numeric fields.
func sniffDelimiter(line string) (string, error) {
	for _, d := range sniffDelimiters {
		if _, _, err := parseSample(line, d); err == nil {
			return d, nil
		}
	}

	return "", ErrDelimiter
}

func parseSample(line, delimiter string) (x, y float64, err error) {
	var fields []string
	if delimiter == "" {
		fields = strings.Fields(line)
	} else {
		for _, f := range strings.Split(line, delimiter) {
			f = strings.TrimSpace(f)
			if f != "" {
				fields = append(fields, f)
			}
		}
	}

	if len(fields) < 2 {
		return 0, 0, fmt.Errorf("expected two columns, found %d", len(fields))
	}

	x, err = strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0, 0, fmt.Errorf("parsing abscissa %q: %w", fields[0], err)
	}

	y, err = strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return 0, 0, fmt.Errorf("parsing ordinate %q: %w", fields[1], err)
	}

	return x, y, nil
}

// byAbscissa sorts paired samples by x.
type byAbscissa struct {
	x []float64
	y []float64
}

func (s *byAbscissa) Len() int           { return len(s.x) }
func (s *byAbscissa) Less(i, j int) bool { return s.x[i] < s.x[j] }

func (s *byAbscissa) Swap(i, j int) {
	s.x[i], s.x[j] = s.x[j], s.x[i]
	s.y[i], s.y[j] = s.y[j], s.y[i]
}
