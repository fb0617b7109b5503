package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"collection-backend/internal/config"
	"collection-backend/internal/database"
	"collection-backend/internal/db"
	"collection-backend/internal/logger"
	"collection-backend/internal/repositories"
	"collection-backend/internal/services"
)

// create-admin seeds the first super_admin. It refuses to run once one exists.
func main() {
	name := flag.String("name", "", "display name")
	email := flag.String("email", "", "login email")
	flag.Parse()

	cfg := config.Load()
	log := logger.New(cfg.Log.Level, true)

	if *name == "" || *email == "" {
		fmt.Println("usage: create-admin -name <name> -email <email>")
		os.Exit(2)
	}

	fmt.Print("Password (min 8 characters): ")
	reader := bufio.NewReader(os.Stdin)
	password, _ := reader.ReadString('\n')
	password = strings.TrimSpace(password)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	conn, err := db.Connect(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("unable to connect to database")
	}
	defer conn.Close()

	if err := database.NewMigrator(conn.DB, conn.Dialect.Name, log).RunMigrations(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	svc := services.NewEmployeeService(repositories.NewStore(conn.DB, conn.Dialect), nil, nil)
	emp, err := svc.Bootstrap(ctx, *name, *email, password)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create super admin")
	}

	fmt.Printf("Created super_admin %s (id %d)\n", emp.Email, emp.ID)
}
