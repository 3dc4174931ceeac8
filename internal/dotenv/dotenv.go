// Package dotenv seeds the process environment from a local .env file so the
// gateway's VAI_INTERVIEW_* settings can live next to the binary during
// development. Variables already present in the environment always win.
package dotenv

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
)

// LoadFile reads KEY=VALUE pairs from path into the process environment.
// A missing file is not an error; deployments set real environment
// variables and carry no .env at all.
func LoadFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("open env file %q: %w", path, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		key, val, ok := parseLine(scanner.Text())
		if !ok {
			continue
		}
		if _, exists := os.LookupEnv(key); exists {
			continue
		}
		if err := os.Setenv(key, val); err != nil {
			return fmt.Errorf("set env %q from %q: %w", key, path, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan env file %q: %w", path, err)
	}
	return nil
}

// parseLine splits one dotenv line into a key/value pair. Comments, blank
// lines, and lines without a key report ok=false. An "export " prefix and a
// matching pair of surrounding quotes are stripped.
func parseLine(raw string) (key, val string, ok bool) {
	line := strings.TrimSpace(raw)
	if line == "" || strings.HasPrefix(line, "#") {
		return "", "", false
	}
	line = strings.TrimPrefix(line, "export ")

	key, val, found := strings.Cut(line, "=")
	key = strings.TrimSpace(key)
	if !found || key == "" {
		return "", "", false
	}

	val = strings.TrimSpace(val)
	if len(val) >= 2 {
		switch {
		case strings.HasPrefix(val, `"`) && strings.HasSuffix(val, `"`),
			strings.HasPrefix(val, "'") && strings.HasSuffix(val, "'"):
			val = val[1 : len(val)-1]
		}
	}
	return key, val, true
}
