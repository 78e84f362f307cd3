package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"syscall"

	"golang.org/x/term"

	"github.com/Chrouos/tomato-website-sub000/core"
	"github.com/Chrouos/tomato-website-sub000/core/user"
	"github.com/Chrouos/tomato-website-sub000/storage/database"
)

var (
	readPasswordFunc = term.ReadPassword         // mockable
	createDBFunc     = database.CreateIfNotExist // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db      *sql.DB
	usrRepo user.Repository

	// connect opens the app DB; only the commands that need it call it
	connect func() error
}

func (cli *commandLine) ensureDB() error {
	if cli.connect == nil || cli.db != nil {
		return nil
	}
	return cli.connect()
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  createdb                                - create the database if it does not exist")
	fmt.Println("  migrate COMMAND [ARGS]                  - run a goose migration command (up, down, status, ...)")
	fmt.Println("  adduser -username USERNAME -email EMAIL - create a user; the password will be prompted next")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addUserCmd := flag.NewFlagSet("adduser", flag.ExitOnError)
	addUserUname := addUserCmd.String("username", "", "The new user's username.")
	addUserEmail := addUserCmd.String("email", "", "The new user's email.")

	switch args[1] {
	case "createdb":
		return createDBFunc(core.Conf)
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		if err := cli.ensureDB(); err != nil {
			return err
		}
		return cli.migrate(args[2:])
	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addUserUname == "" || *addUserEmail == "" {
			addUserCmd.Usage()
			return errHelp
		}
		fmt.Print("Enter password:")
		pwd, err := readPasswordFunc(syscall.Stdin)
		fmt.Println()
		if err != nil {
			return err
		}
		if len(pwd) == 0 {
			addUserCmd.Usage()
			return errHelp
		}
		if err := cli.ensureDB(); err != nil {
			return err
		}
		return cli.addUser(*addUserUname, *addUserEmail, string(pwd))
	default:
		cli.printUsage()
		return errHelp
	}
}
