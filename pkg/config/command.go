package config

import (
	"fmt"
	"strings"

	"github.com/google/shlex"
)

// ExpandCommand splits a configured command string into argv and fills
// {name} placeholders from vars. Placeholders are substituted after
// splitting, so values containing spaces stay a single argument.
func ExpandCommand(template string, vars map[string]string) ([]string, error) {
	argv, err := shlex.Split(template)
	if err != nil {
		return nil, fmt.Errorf("invalid command %q: %w", template, err)
	}
	if len(argv) == 0 {
		return nil, fmt.Errorf("empty command")
	}

	pairs := make([]string, 0, len(vars)*2)
	for k, v := range vars {
		pairs = append(pairs, "{"+k+"}", v)
	}
	r := strings.NewReplacer(pairs...)
	for i, arg := range argv {
		argv[i] = r.Replace(arg)
	}
	return argv, nil
}
