// Callcache drives a memoization store with a synthetic producer and reports
// how the cache behaved.
//
// Usage:
//
//	callcache run --calls 10000 --keys 200 --ttl 50ms
//	callcache run --binding state --max-cache-size 32 --dedupe
//	CALLCACHE_CALLS=500 callcache run --metrics-stdout
package main

import (
	"os"

	"github.com/goliatone/go-call-cache/internal/cli"
)

func main() {
	os.Exit(cli.Run())
}
