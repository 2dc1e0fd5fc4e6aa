// cmd/seedcaixa/main.go creates (or finds) a named caixa for an empresa.
// Uso: go run ./cmd/seedcaixa -empresa <uuid> -nome "Balcão"
package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"oficinapro/internal/config"
	"oficinapro/internal/infra"
	"oficinapro/internal/repository"

	"github.com/google/uuid"
)

func main() {
	empresaFlag := flag.String("empresa", "", "empresa_id (uuid)")
	nome := flag.String("nome", "", "nome do caixa (padrão: CAIXA_PADRAO_NOME)")
	flag.Parse()

	empresaID, err := uuid.Parse(*empresaFlag)
	if err != nil {
		log.Fatalf("empresa inválida: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if *nome == "" {
		*nome = cfg.CaixaPadraoNome
	}

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect error: %v", err)
	}

	repo := repository.NewCaixaRepository(db, repository.NewStoreOptions(cfg.RetryPolicy(), cfg.BreakerConfig()))
	caixa, err := repo.FindOrCreateCaixa(context.Background(), empresaID, *nome)
	if err != nil {
		log.Fatalf("seed error: %v", err)
	}
	fmt.Printf("Caixa '%s' pronto: %s\n", caixa.Nome, caixa.ID)
}
