package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/mmdatafocus/jewellery_backend/branchsync"
	"github.com/mmdatafocus/jewellery_backend/config"
	"github.com/sirupsen/logrus"
)

// sync-cleanup deletes synced queue rows older than --days. Pending and
// failed rows are never touched.
//
// Intended for a nightly cron on each branch:
//
//	go run ./cmd/sync-cleanup --days 30
func main() {
	days := flag.Int("days", 30, "Keep synced rows newer than this many days")
	flag.Parse()

	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized")
		os.Exit(1)
	}
	logger := config.GetLogger()

	removed, err := branchsync.NewQueue(db, logger).Cleanup(context.Background(), *days)
	if err != nil {
		logger.WithFields(logrus.Fields{"field": "sync-cleanup", "days": *days}).Error(err.Error())
		os.Exit(1)
	}
	logger.WithFields(logrus.Fields{"field": "sync-cleanup", "days": *days, "removed": removed}).Info("sync queue cleaned")
}
