// Command fragctl exercises a fragmentos pipeline over real UDP sockets:
// serve runs an echo responder, send drives one round trip against it.
package main

import (
	"os"

	"github.com/sirupsen/logrus"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		logrus.WithError(err).Error("fragctl: fatal")
		os.Exit(1)
	}
}
