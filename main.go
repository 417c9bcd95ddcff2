package main

import (
	"github.com/perchlabs/perch/cmd"
	"github.com/perchlabs/perch/internal/logging"
	"github.com/perchlabs/perch/internal/status"
)

func main() {
	defer logging.RecoverPanic("main", func() {
		status.Error("Application terminated due to unhandled panic")
	})

	cmd.Execute()
}
