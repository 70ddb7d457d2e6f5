package main

import (
	"context"
	"flag"
	"log"
	"os"

	"courier_platform/internal/db"
	"courier_platform/internal/domain"
	"courier_platform/internal/repository"
	"courier_platform/internal/service"

	"golang.org/x/crypto/bcrypt"
)

// Bootstraps the first (super) admin on a fresh database. Admin creation over
// HTTP requires an existing super-admin, so this tool breaks the circle.
func main() {
	username := flag.String("username", "", "admin username")
	password := flag.String("password", "", "admin password")
	super := flag.Bool("super", true, "grant super-admin rights")
	flag.Parse()

	if *username == "" || *password == "" {
		log.Fatal("both -username and -password are required")
	}

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL not set")
	}

	pool := db.Connect(dsn)
	defer pool.Close()

	repo := repository.NewAdminRepository(pool)
	ctx := context.Background()

	existing, err := repo.GetByUsername(ctx, *username)
	if err != nil {
		log.Fatalf("lookup admin: %v", err)
	}

	var admin *domain.Admin
	if existing != nil {
		admin = existing
		log.Printf("admin already exists id=%d username=%s\n", admin.ID, admin.Username)
	} else {
		hash, err := bcrypt.GenerateFromPassword([]byte(*password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("hash password: %v", err)
		}

		admin = &domain.Admin{
			Username:     *username,
			PasswordHash: string(hash),
			IsSuperAdmin: *super,
		}
		if err := repo.Create(ctx, admin); err != nil {
			log.Fatalf("create admin failed: %v", err)
		}
		log.Printf("admin created id=%d username=%s super=%v\n", admin.ID, admin.Username, admin.IsSuperAdmin)
	}

	// print a session token so the operator can call the API right away
	service.InitJWT()
	token, err := service.GenerateJWT(admin.ID)
	if err != nil {
		log.Fatalf("failed to generate token: %v", err)
	}
	log.Printf("token=%s\n", token)
}
