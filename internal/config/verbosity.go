package config

import (
	"fmt"
	"strings"

	"github.com/mattn/go-shellwords"
)

// AddoptsVerbosity returns the net verbosity expressed by the -v/-q flags in
// an addopts string. "-vv" counts twice; "--quiet" subtracts one.
func AddoptsVerbosity(addopts string) (int, error) {
	args, err := shellwords.Parse(addopts)
	if err != nil {
		return 0, fmt.Errorf("parsing addopts %q: %w", addopts, err)
	}

	n := 0
	for _, arg := range args {
		switch {
		case arg == "--verbose":
			n++
		case arg == "--quiet":
			n--
		case strings.HasPrefix(arg, "--"):
		case strings.HasPrefix(arg, "-") && len(arg) > 1:
			flags := arg[1:]
			if strings.Trim(flags, "vq") != "" {
				continue
			}
			n += strings.Count(flags, "v") - strings.Count(flags, "q")
		}
	}
	return n, nil
}

// EffectiveVerbosity combines the configured verbosity, the addopts flags and the
// go test -v switch into the level handed to database setup and teardown.
func (r RunnerConfig) EffectiveVerbosity(testVerbose bool) (int, error) {
	extra, err := AddoptsVerbosity(r.Addopts)
	if err != nil {
		return 0, err
	}
	n := r.Verbosity + extra
	if testVerbose {
		n++
	}
	if n < 0 {
		n = 0
	}
	return n, nil
}
