// Command habitsync records habit completions against the habit-tracker API
// and replays writes made while offline.
package main

import (
	"fmt"
	"os"

	"github.com/SudhiHebbar/habit-tracker-sub002/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
