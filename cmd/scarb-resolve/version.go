// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"flag"

	"github.com/pkg/errors"
)

// Version is the scarb-resolve release.
const Version = "0.1.0"

const versionShortHelp = `Print the scarb-resolve release`
const versionLongHelp = `
Print the release of this scarb-resolve binary on standard output.
`

type versionCommand struct{}

func (cmd *versionCommand) Name() string           { return "version" }
func (cmd *versionCommand) Args() string           { return "" }
func (cmd *versionCommand) ShortHelp() string      { return versionShortHelp }
func (cmd *versionCommand) LongHelp() string       { return versionLongHelp }
func (cmd *versionCommand) Hidden() bool           { return false }
func (cmd *versionCommand) Register(*flag.FlagSet) {}

func (cmd *versionCommand) Run(ctx *Ctx, args []string) error {
	if len(args) > 0 {
		return errors.Errorf("unexpected arguments %q", args)
	}
	ctx.Out.Println(Version)
	return nil
}
