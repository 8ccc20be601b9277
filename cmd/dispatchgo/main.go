// Command dispatchgo runs, draws and reports on the bundled vehicle
// simulation models.
package main

import "os"

func main() {
	if err := Execute(); err != nil {
		os.Exit(1)
	}
}
