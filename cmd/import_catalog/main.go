// import_catalog carga el catálogo heredado (CSV ';', ISO-8859-1 por defecto) en la base configurada.
//
// Uso: go run ./cmd/import_catalog [-utf8] [-actor import] ruta/catalogo.csv
// Columnas: nombre;sku;modulo;talla;cantidad;umbral;proveedor;email_proveedor
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/jhoicas/Abastecimiento-api/internal/application/inventory"
	"github.com/jhoicas/Abastecimiento-api/internal/application/purchasing"
	"github.com/jhoicas/Abastecimiento-api/internal/infrastructure/catalog"
	"github.com/jhoicas/Abastecimiento-api/internal/infrastructure/postgres"
	"github.com/jhoicas/Abastecimiento-api/pkg/config"
	"github.com/jhoicas/Abastecimiento-api/pkg/logger"
)

func main() {
	utf8 := flag.Bool("utf8", false, "el archivo ya está en UTF-8")
	actor := flag.String("actor", "import", "actor registrado en movimientos y bitácora")
	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "uso: import_catalog [-utf8] [-actor nombre] catalogo.csv")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "cargar configuración: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: "info"})

	f, err := os.Open(flag.Arg(0))
	if err != nil {
		log.Fatal().Err(err).Msg("abrir catálogo")
	}
	defer f.Close()

	rows, err := catalog.Parse(f, !*utf8)
	if err != nil {
		log.Fatal().Err(err).Msg("leer catálogo")
	}

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()
	if cfg.DB.AutoMigrate {
		if err := postgres.Migrate(ctx, pool); err != nil {
			log.Fatal().Err(err).Msg("migrar esquema")
		}
	}

	txRunner := postgres.NewTxRunner(pool)
	trigger := purchasing.NewReplenishmentTrigger(nil, log)
	ledger := inventory.NewLedgerUseCase(txRunner, trigger, log)

	res, err := catalog.NewImporter(txRunner, ledger, log).Import(ctx, rows, *actor)
	if err != nil {
		log.Error().Err(err).Int("items", res.Items).Msg("importación interrumpida")
		os.Exit(1)
	}
	for _, s := range res.Skipped {
		fmt.Println("omitida:", s)
	}
	fmt.Printf("Importados %d proveedores y %d artículos (%d filas omitidas)\n", res.Suppliers, res.Items, len(res.Skipped))
}
