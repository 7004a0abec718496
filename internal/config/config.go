package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	FirebaseProjectID   string
	FirebaseCredentials string
	FirebaseAPIKey      string

	ServerPort string

	JWTSecret     string
	SessionMaxAge int

	LocalStorePath string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

func LoadConfig() (*Config, error) {
	err := godotenv.Load()
	if err != nil {
		log.Println("No .env file found or error loading it, relying on environment variables")
	}

	sessionMaxAge, err := strconv.Atoi(os.Getenv("SESSION_MAX_AGE"))
	if err != nil || sessionMaxAge <= 0 {
		sessionMaxAge = 86400
	}

	serverPort := os.Getenv("SERVER_PORT")
	if serverPort == "" {
		serverPort = "8080"
	}

	localStorePath := os.Getenv("LOCAL_STORE_PATH")
	if localStorePath == "" {
		localStorePath = ".crux-local.json"
	}

	redisDB, err := strconv.Atoi(os.Getenv("REDIS_DB"))
	if err != nil {
		redisDB = 0
	}

	return &Config{
		FirebaseProjectID:   os.Getenv("FIREBASE_PROJECT_ID"),
		FirebaseCredentials: os.Getenv("FIREBASE_CREDENTIALS_FILE"),
		FirebaseAPIKey:      os.Getenv("FIREBASE_API_KEY"),

		ServerPort: serverPort,

		JWTSecret:     os.Getenv("JWT_SECRET"),
		SessionMaxAge: sessionMaxAge,

		LocalStorePath: localStorePath,

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       redisDB,
	}, nil
}
