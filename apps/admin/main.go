package main

import (
	"log"
	"os"

	"github.com/Chrouos/tomato-website-sub000/core"
	"github.com/Chrouos/tomato-website-sub000/storage/database"
	sqlxrepos "github.com/Chrouos/tomato-website-sub000/storage/database/sqlx"
)

var logger *log.Logger

func main() {
	defer os.Exit(0)

	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	// the app DB is opened on first use only: createdb must be able to
	// run while the database does not exist yet
	var db *database.DB
	defer func() {
		if db != nil {
			_ = db.Close()
		}
	}()

	cli := commandLine{}
	cli.connect = func() (err error) {
		if db, err = database.Open(core.Conf); err != nil {
			return err
		}
		if err = database.Ping(db); err != nil {
			return err
		}
		cli.db = db.DB.DB
		cli.usrRepo = sqlxrepos.NewUserRepository(db)
		return nil
	}

	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}
