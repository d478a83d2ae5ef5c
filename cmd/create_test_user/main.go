package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"txguardian/internal/domain"
	"txguardian/internal/repository"
	"txguardian/internal/service"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

// Seeds a user with verification profile facts and prints a bearer token,
// handy for exercising the API locally with curl.
func main() {
	_ = godotenv.Load()

	email := flag.String("email", "test@example.com", "user email")
	name := flag.String("name", "Test", "first name")
	birthCity := flag.String("birth-city", "Springfield", "birth city fact")
	maidenName := flag.String("maiden-name", "Smith", "mother's maiden name fact")
	petName := flag.String("pet-name", "Rex", "first pet name fact")
	carMake := flag.String("car-make", "Toyota", "first car make fact")
	flag.Parse()

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL not set")
	}
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		log.Fatal("JWT_SECRET not set")
	}
	service.InitJWT(secret)

	db, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	repo := repository.NewUserRepository(db)

	user, err := repo.GetByEmail(context.Background(), *email)
	if err != nil {
		user = &domain.User{
			Email:            *email,
			FirstName:        *name,
			BirthCity:        *birthCity,
			MotherMaidenName: *maidenName,
			FirstPetName:     *petName,
			FirstCarMake:     *carMake,
		}
		if err := repo.Create(context.Background(), user); err != nil {
			log.Fatalf("create user: %v", err)
		}
		fmt.Printf("created user %d (%s)\n", user.ID, user.Email)
	} else {
		fmt.Printf("user %d (%s) already exists\n", user.ID, user.Email)
	}

	token, err := service.GenerateJWT(user.ID)
	if err != nil {
		log.Fatalf("generate token: %v", err)
	}
	fmt.Printf("token: %s\n", token)
}
