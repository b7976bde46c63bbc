package service

import (
	"maps"
	"os"
	"slices"
	"strings"
)

// commandEnv returns the environment of the encoder process: the current
// environment followed by env sorted by key. Keys are upper cased, values
// starting with $ are expanded. Returns nil for an empty env, so the process
// inherits the environment as is.
func commandEnv(env map[string]string) []string {
	if len(env) == 0 {
		return nil
	}
	ret := os.Environ()
	for _, k := range slices.Sorted(maps.Keys(env)) {
		v := env[k]
		if strings.HasPrefix(v, "$") {
			v = os.ExpandEnv(v)
		}
		ret = append(ret, strings.ToUpper(k)+"="+v)
	}
	return ret
}
