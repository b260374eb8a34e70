// seed-admin creates the first admin login for a branch, or resets the
// password of an existing one.
//
// Usage (from backend directory):
//
//	DB_USER=... DB_PASSWORD=... DB_HOST=... DB_NAME=... go run ./cmd/seed-admin --password '...'
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/mmdatafocus/jewellery_backend/config"
	"github.com/mmdatafocus/jewellery_backend/models"
	"github.com/mmdatafocus/jewellery_backend/utils"
	"github.com/mmdatafocus/jewellery_backend/workflow"
	"gorm.io/gorm"
)

func main() {
	username := flag.String("username", "admin", "Admin username")
	name := flag.String("name", "Branch Admin", "Display name")
	password := flag.String("password", os.Getenv("ADMIN_PASSWORD"), "Admin password (or ADMIN_PASSWORD)")
	flag.Parse()

	if len(*password) < 8 {
		fmt.Fprintln(os.Stderr, "--password must be at least 8 characters")
		os.Exit(1)
	}

	ctx := context.Background()
	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}
	if err := models.MigrateTable(db); err != nil {
		fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
		os.Exit(1)
	}

	uname := strings.ToLower(strings.TrimSpace(*username))
	var existing models.User
	err := db.WithContext(ctx).Where("username = ?", uname).First(&existing).Error
	if err == nil {
		hashed, herr := utils.HashPassword(*password)
		if herr != nil {
			fmt.Fprintf(os.Stderr, "failed to hash password: %v\n", herr)
			os.Exit(1)
		}
		if err := db.WithContext(ctx).Model(&existing).Updates(map[string]any{
			"password_hash": hashed,
			"role":          models.UserRoleAdmin,
			"is_active":     true,
		}).Error; err != nil {
			fmt.Fprintf(os.Stderr, "failed to update admin user: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Updated admin user: username=%q\n", uname)
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		fmt.Fprintf(os.Stderr, "failed to lookup user: %v\n", err)
		os.Exit(1)
	}

	users := workflow.NewUserWorkflow(db, config.GetLogger())
	user, err := users.CreateUser(ctx, models.NewUser{
		Username: uname,
		Name:     *name,
		Password: *password,
		Role:     models.UserRoleAdmin,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create admin user: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Created admin user: username=%q id=%s\n", user.Username, user.ID)
}
