// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package main is the bcmctl command-line client of the category manager.
package main

import "bcm/internal/cli"

func main() {
	cli.Execute()
}
