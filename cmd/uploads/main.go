// Command uploads runs the multipart upload orchestration service and the
// operator tooling around it.
package main

import (
	"context"
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd(newOptions()).ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
