/*
 * Copyright 2022 Holoinsight Project Authors. Licensed under Apache-2.0.
 */

package main

// monitorctl entry
func main() {
	Execute()
}
