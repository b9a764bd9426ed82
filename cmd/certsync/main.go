package main

import (
	"certsync/cmd/certsync/cmd"
	"certsync/internal/components/serviceutil"
)

func main() {
	cmd.Execute(serviceutil.SignalContext())
}
