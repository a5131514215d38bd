package sqlite

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

const memoryDSN = ":memory:"

// defaultPragmas are passed as _pragma parameters so modernc applies them to
// every pooled connection, not only the first one.
var defaultPragmas = []string{
	"busy_timeout(30000)",
	"journal_mode(WAL)",
	"foreign_keys(1)",
}

// driverDSN turns sqlite://<path>[?options] into the name modernc.org/sqlite
// opens. Relative paths resolve against the working directory. Explicit
// _pragma options replace the defaults.
func driverDSN(dsn string) (string, error) {
	rest, ok := strings.CutPrefix(dsn, "sqlite://")
	if !ok {
		return "", fmt.Errorf("invalid sqlite DSN scheme, expected sqlite://")
	}
	if rest == memoryDSN {
		return memoryDSN, nil
	}

	rawPath, rawQuery, _ := strings.Cut(rest, "?")
	path, err := url.PathUnescape(rawPath)
	if err != nil {
		return "", fmt.Errorf("unescaping path %q: %w", rawPath, err)
	}
	if path == "" {
		return "", fmt.Errorf("sqlite DSN has no database path")
	}
	if !filepath.IsAbs(path) && !strings.HasPrefix(path, "./") {
		path = "./" + path
	}

	options, err := url.ParseQuery(rawQuery)
	if err != nil {
		return "", fmt.Errorf("parsing sqlite options %q: %w", rawQuery, err)
	}
	if len(options["_pragma"]) == 0 {
		for _, pragma := range defaultPragmas {
			options.Add("_pragma", pragma)
		}
	}
	return path + "?" + options.Encode(), nil
}
