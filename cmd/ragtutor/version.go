package main

import (
	"context"
	"fmt"
	"runtime"

	"github.com/a-h/ragtutor"
)

type VersionCommand struct {
	Short bool `help:"Print only the version number." default:"false"`
}

func (c VersionCommand) Run(ctx context.Context) (err error) {
	if c.Short {
		fmt.Println(ragtutor.Version)
		return nil
	}
	fmt.Printf("ragtutor %s (%s %s/%s)\n", ragtutor.Version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
	return nil
}
