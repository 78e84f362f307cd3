package main

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"testing"

	"github.com/Chrouos/tomato-website-sub000/core"
	"github.com/Chrouos/tomato-website-sub000/core/user"
	dummydb "github.com/Chrouos/tomato-website-sub000/storage/database/dummy"
)

var usrRepo user.Repository

func setup(t *testing.T) *commandLine {
	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("setup() failed: %v", err)
	}
	usrRepo = dummydb.NewUserRepository(db)

	return &commandLine{
		usrRepo: usrRepo,
	}
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
}

func Test_commandLine_migrate(t *testing.T) {
	cli := setup(t)

	gooseRunFunc = func(command string, db *sql.DB, fsys fs.FS, dir string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "redo", "reset", "status", "version", "fix": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s requires a VERSION argument", command)
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to requires a VERSION argument"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "status", args: []string{"migrate", "status"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			if err := cli.run(args); err != nil {
				if tt.wantErr != nil {
					if err != tt.wantErr {
						t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
					}
				} else if tt.wantErrStr != "" {
					if err.Error() != tt.wantErrStr {
						t.Errorf("cli.run() error.Error() = %s, wantErrStr %s", err.Error(), tt.wantErrStr)
					}
				} else {
					t.Errorf("cli.run() unexpected error = %v", err)
				}
			}
		})
	}
}

func Test_commandLine_createDB(t *testing.T) {
	cli := setup(t)

	// a fresh instance has no app DB yet; createdb must dispatch
	// without connecting to it
	cli.connect = func() error {
		t.Fatal("createdb opened the app DB")
		return nil
	}

	var created bool
	createDBFunc = func(conf *core.Config) error {
		created = true
		return nil
	}

	if err := cli.run([]string{"admin", "createdb"}); err != nil {
		t.Fatalf("cli.run() unexpected error = %v", err)
	}
	if !created {
		t.Error("cli.run() did not create the database")
	}
}

func Test_commandLine_lazyConnect(t *testing.T) {
	cli := setup(t)

	var connected bool
	cli.connect = func() error {
		connected = true
		return nil
	}
	gooseRunFunc = func(command string, db *sql.DB, fsys fs.FS, dir string, args ...string) error { return nil }

	if err := cli.run([]string{"admin", "migrate", "status"}); err != nil {
		t.Fatalf("cli.run() unexpected error = %v", err)
	}
	if !connected {
		t.Error("migrate did not open the app DB")
	}
}

func Test_commandLine_addUser(t *testing.T) {
	cli := setup(t)

	readPasswordFunc = func(fd int) ([]byte, error) { return []byte("s3cret"), nil }

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no flags", args: []string{"adduser"}, wantErr: errHelp},
		{name: "missing email", args: []string{"adduser", "-username", "awe"}, wantErr: errHelp},
		{name: "ok", args: []string{"adduser", "-username", "Awe", "-email", "AWE@test.cd"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			if tt.wantErr != nil {
				if err != tt.wantErr {
					t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("cli.run() unexpected error = %v", err)
			}

			usr, err := usrRepo.GetUserByUsernameOrEmail(context.Background(), "awe")
			if err != nil {
				t.Fatalf("GetUserByUsernameOrEmail() failed: %v", err)
			}
			if usr.Email != "awe@test.cd" {
				t.Errorf("email = %s; want awe@test.cd", usr.Email)
			}
			if err := usr.CheckPassword("s3cret"); err != nil {
				t.Errorf("CheckPassword() failed: %v", err)
			}
		})
	}
}
