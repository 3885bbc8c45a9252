package main

import (
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/twitter/dtree/demo"
)

// CLI binary to run dtree schedulers
//	Supported commands: (see "-h" for all options)
//		local	simulate a cluster in this process
//		node	run the ranks described by a JSON config
//		stats	print the metrics of a running node
//	Global flags:
//		--log_level [<error|info|debug> level and above should be logged]
//		--log_json
//		--log_fileline

func main() {
	cli := demo.NewCLI()
	if err := cli.Exec(); err != nil {
		log.Errorf("dtree: %v", err)
		os.Exit(int(demo.ExitCode(err)))
	}
}
