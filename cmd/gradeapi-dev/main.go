// Command gradeapi-dev serves the in-memory grade service for local work
// with gradectl.
//
//	gradeapi-dev --addr :8000 --access-ttl 30s --rotate
//	GRADECLIENT_API_URL=http://localhost:8000 gradectl login -u student1 -p secret
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
