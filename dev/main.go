// Command dev prepares a working copy for running certsync locally: it asks for the
// portal credentials once and keeps them in config.local.json5, which overrides the
// checked in config.json5 and stays out of version control.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/tcnksm/go-input"
)

const localConfig = "config.local.json5"

type site struct {
	Host     string `json:"host"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type credentials struct {
	Ada  site `json:"ada"`
	Dabs site `json:"dabs"`
}

func ask(ui *input.UI, name string) (site, error) {
	opts := &input.Options{
		Default: "",
		Mask:    false,
		Loop:    true,
	}
	host, err := ui.Ask(name+" host:", opts)
	if err != nil {
		return site{}, err
	}
	username, err := ui.Ask(name+" username:", opts)
	if err != nil {
		return site{}, err
	}
	password, err := ui.Ask(name+" password:", &input.Options{Mask: true, Loop: true})
	if err != nil {
		return site{}, err
	}
	return site{Host: host, Username: username, Password: password}, nil
}

func setup(recreate bool) error {
	_, err := os.Stat("go.mod")
	if os.IsNotExist(err) {
		return fmt.Errorf("the dev environment must be created in the repository root (the same directory as the 'go.mod' file)")
	}

	_, err = os.Stat(localConfig)
	if err == nil && !recreate {
		slog.Info("credentials have already been provided", "file", localConfig)
		return nil
	}

	ui := input.DefaultUI()
	ada, err := ask(ui, "ada")
	if err != nil {
		return err
	}
	dabs, err := ask(ui, "dabs")
	if err != nil {
		return err
	}

	// json is valid json5.
	contents, err := json.MarshalIndent(credentials{Ada: ada, Dabs: dabs}, "", "  ")
	if err != nil {
		return err
	}
	err = os.WriteFile(localConfig, contents, 0600)
	if err != nil {
		return err
	}
	slog.Info("wrote credentials", "file", localConfig)
	return nil
}

func main() {
	recreate := flag.Bool("recreate", false, "ask for the credentials again even if they were provided before")
	flag.Parse()

	err := setup(*recreate)
	if err != nil {
		slog.Error("failed to setup dev environment", "err", err)
		os.Exit(1)
	}
}
