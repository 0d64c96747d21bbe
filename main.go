package main

import (
	"fmt"
	"os"

	"github.com/maxkimambo/taskman/cmd"
	taskerrors "github.com/maxkimambo/taskman/internal/errors"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprint(os.Stderr, taskerrors.FormatForCLI(err))
		os.Exit(1)
	}
}
