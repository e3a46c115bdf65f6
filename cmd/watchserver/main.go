// File created by olandr (c) 2025.
// Use of this source code is governed by the MIT license that can be
// found in the LICENSE file.

// Command watchserver logs filesystem events for a set of directory trees.
package main

import (
	"os"

	"github.com/spf13/viper"
)

func main() {
	if err := NewRootCmd(viper.New()).Execute(); err != nil {
		os.Exit(1)
	}
}
