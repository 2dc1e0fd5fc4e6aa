// cmd/devtoken/main.go mints an HS256 access token for local testing.
// Tokens are normally issued by the identity provider.
// Uso: go run ./cmd/devtoken -empresa <uuid> -rol gerente
package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"oficinapro/internal/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

func main() {
	empresa := flag.String("empresa", uuid.NewString(), "empresa_id claim")
	usuario := flag.String("usuario", uuid.NewString(), "user_id claim")
	rol := flag.String("rol", "operador", "admin | gerente | operador")
	fuso := flag.String("fuso", "", "fuso_horario claim (IANA zone)")
	ttl := flag.Duration("ttl", 8*time.Hour, "token lifetime")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET is not set")
	}

	claims := jwt.MapClaims{
		"user_id":    *usuario,
		"empresa_id": *empresa,
		"rol":        *rol,
		"iat":        time.Now().Unix(),
		"exp":        time.Now().Add(*ttl).Unix(),
	}
	if *fuso != "" {
		claims["fuso_horario"] = *fuso
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.JWTSecret))
	if err != nil {
		log.Fatalf("sign error: %v", err)
	}
	fmt.Println(s)
}
