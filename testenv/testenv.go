// Command testenv starts a throwaway postgres container, creates the profile
// schema and runs the module tests against it.
//
//	go run ./testenv [package]
package main

import (
	"context"
	"crypto/rand"
	"encoding/base32"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/ory/dockertest"
	"github.com/ory/dockertest/docker"
	"github.com/sirupsen/logrus"
	"github.com/spacegame/users/persistent"
)

func main() {
	flag.Parse()

	logrus.Infoln("Starting postgres db container.")
	shutdownPgDb, err := createTestPgDb()
	if err != nil {
		logrus.WithError(err).Fatalln("Could not create test database.")
	}

	path := "./..."
	if flag.NArg() > 0 {
		path = flag.Arg(0)
	}
	logrus.WithField("path", path).Infoln("Running tests.")
	code := runTests(path)

	logrus.Infoln("Tests done. Shutting down test db.")
	shutdownPgDb()
	os.Exit(code)
}

func runTests(path string) int {
	c := exec.Command("go", "test", path)
	c.Env = os.Environ()
	c.Stdout = os.Stdout
	c.Stderr = os.Stderr
	if err := c.Run(); err != nil {
		logrus.WithError(err).Errorln("Tests failed.")
		return 1
	}
	return 0
}

// createTestPgDb starts the container and exports its dsn for
// persistent.PgOpenTest. Returns a shutdown func.
func createTestPgDb() (func(), error) {
	passBytes := make([]byte, 30)
	if _, err := rand.Read(passBytes); err != nil {
		return nil, fmt.Errorf("password generate: %w", err)
	}
	pass := base32.StdEncoding.EncodeToString(passBytes)

	pool, err := dockertest.NewPool("")
	if err != nil {
		return nil, fmt.Errorf("docker connect: %w", err)
	}

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "postgres",
		Tag:        "14.1",
		Env:        []string{"POSTGRES_PASSWORD=" + pass},
	}, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		return nil, fmt.Errorf("resource start: %w", err)
	}
	_ = resource.Expire(120)
	shutdownResource := func() {
		if err := pool.Purge(resource); err != nil {
			logrus.WithError(err).Warningln("Could not purge resource.")
		}
	}

	pgDsn := fmt.Sprintf("postgresql://postgres:%s@localhost:%s/postgres?sslmode=disable",
		pass, resource.GetPort("5432/tcp"))
	pool.MaxWait = 20 * time.Second
	err = pool.Retry(func() error {
		ctx := context.Background()
		db, err := persistent.PgOpen(ctx, pgDsn, false)
		if err != nil {
			return err
		}
		defer db.Close()
		return persistent.CreateSchema(ctx, db)
	})
	if err != nil {
		shutdownResource()
		return nil, fmt.Errorf("database connect: %w", err)
	}

	persistent.SetTestEnvDsn(pgDsn)
	return shutdownResource, nil
}
