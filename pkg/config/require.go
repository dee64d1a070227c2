package config

import (
	"fmt"
	"log"
	"os"
	"strings"
)

// Missing returns the names from the list that are unset or empty.
func Missing(names ...string) []string {
	var out []string
	for _, n := range names {
		if os.Getenv(n) == "" {
			out = append(out, n)
		}
	}
	return out
}

func RequireEnv(names ...string) error {
	if m := Missing(names...); len(m) > 0 {
		return fmt.Errorf("missing required env %s", strings.Join(m, ", "))
	}
	return nil
}

func MustNonEmpty(v, name string) {
	if v == "" {
		log.Fatalf("missing required env %s", name)
	}
}
