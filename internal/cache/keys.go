package cache

import (
	"fmt"
)

// ResultPageKey addresses one cached result page. Bumping the generation for a
// scope orphans every page cached under the previous generation.
func ResultPageKey(scope string, generation int64, queryHash string) string {
	return fmt.Sprintf("results:page:%s:%d:%s", scope, generation, queryHash)
}

func ResultGenerationKey(scope string) string {
	return fmt.Sprintf("results:gen:%s", scope)
}

func RateLimitKey(keyPrefix string) string {
	return fmt.Sprintf("ratelimit:%s", keyPrefix)
}
