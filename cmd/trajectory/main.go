// Command trajectory aligns a decoded flight log, segments it into
// navigation-state runs and reports how the vehicle tracked its setpoints.
//
// Usage:
//
//	trajectory analyse [-config c.json] [-out dir] [-db results.db] <csvdir>
//	trajectory serve -db results.db [-listen :8090]
//	trajectory version
package main

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/banshee-data/trajectory.report/internal/version"
)

var errUsage = errors.New("usage: trajectory <analyse|serve|version> [flags]")

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		log.Fatal(err)
	}
}

func run(args []string, stdout io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}
	switch args[0] {
	case "analyse", "analyze":
		return runAnalyse(args[1:], stdout)
	case "serve":
		return runServe(args[1:])
	case "version":
		fmt.Fprintln(stdout, version.String())
		return nil
	default:
		return fmt.Errorf("unknown command %q\n%w", args[0], errUsage)
	}
}
