// Package catalog importa el catálogo heredado (CSV separado por ';', normalmente en ISO-8859-1)
// como proveedores y artículos. Los artículos se crean por el libro, así que el disparador de
// reposición evalúa cada uno al importarlo.
package catalog

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/jhoicas/Abastecimiento-api/internal/application/dto"
	"github.com/jhoicas/Abastecimiento-api/internal/domain"
	"github.com/jhoicas/Abastecimiento-api/internal/domain/entity"
	"github.com/jhoicas/Abastecimiento-api/internal/domain/repository"
	"github.com/jhoicas/Abastecimiento-api/pkg/logger"
)

// Row una fila del catálogo.
type Row struct {
	Line              int
	Name              string
	SKU               string
	ModuleKey         string
	Size              string
	Quantity          int
	LowStockThreshold int
	SupplierName      string
	SupplierEmail     string
}

// Columnas reconocidas de la cabecera (sin distinguir mayúsculas).
const (
	colName      = "nombre"
	colSKU       = "sku"
	colModule    = "modulo"
	colSize      = "talla"
	colQuantity  = "cantidad"
	colThreshold = "umbral"
	colSupplier  = "proveedor"
	colEmail     = "email_proveedor"
)

// Parse lee el CSV. Con latin1 el contenido se decodifica desde ISO-8859-1 a UTF-8.
func Parse(r io.Reader, latin1 bool) ([]Row, error) {
	if latin1 {
		r = transform.NewReader(r, charmap.ISO8859_1.NewDecoder())
	}
	cr := csv.NewReader(r)
	cr.Comma = ';'
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("catálogo vacío: %w", domain.ErrValidation)
		}
		return nil, fmt.Errorf("leer cabecera: %w", err)
	}
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	for _, required := range []string{colName, colModule} {
		if _, ok := idx[required]; !ok {
			return nil, fmt.Errorf("columna %q requerida: %w", required, domain.ErrValidation)
		}
	}

	var rows []Row
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("línea %d: %w", line, err)
		}
		get := func(col string) string {
			i, ok := idx[col]
			if !ok || i >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[i])
		}
		if get(colName) == "" {
			continue
		}
		qty, err := atoi(get(colQuantity))
		if err != nil {
			return nil, fmt.Errorf("línea %d: cantidad: %w", line, err)
		}
		thr, err := atoi(get(colThreshold))
		if err != nil {
			return nil, fmt.Errorf("línea %d: umbral: %w", line, err)
		}
		rows = append(rows, Row{
			Line:              line,
			Name:              get(colName),
			SKU:               get(colSKU),
			ModuleKey:         strings.ToLower(get(colModule)),
			Size:              get(colSize),
			Quantity:          qty,
			LowStockThreshold: thr,
			SupplierName:      get(colSupplier),
			SupplierEmail:     get(colEmail),
		})
	}
	return rows, nil
}

func atoi(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%q no es entero: %w", s, domain.ErrValidation)
	}
	return n, nil
}

// TxRunner ejecuta fn en una transacción (postgres.TxRunner, memory.Store).
type TxRunner interface {
	Run(ctx context.Context, fn func(repos repository.Set) error) error
}

// ItemCreator da de alta artículos; lo implementa inventory.LedgerUseCase.
type ItemCreator interface {
	CreateItem(ctx context.Context, in dto.CreateItemRequest, actor string) (*dto.ItemResponse, error)
}

// Result resumen de la importación.
type Result struct {
	Suppliers int
	Items     int
	Skipped   []string
}

// Importer crea proveedores y artículos a partir de las filas.
type Importer struct {
	tx    TxRunner
	items ItemCreator
	log   *logger.Logger
}

// NewImporter construye el importador.
func NewImporter(tx TxRunner, items ItemCreator, log *logger.Logger) *Importer {
	if log == nil {
		log = logger.Nop()
	}
	return &Importer{tx: tx, items: items, log: log.Component("catalog")}
}

// Import crea un proveedor por nombre distinto y un artículo por fila. Las filas inválidas se omiten
// y se informan en Result.Skipped; un error de almacenamiento detiene la importación.
func (im *Importer) Import(ctx context.Context, rows []Row, actor string) (*Result, error) {
	res := &Result{}
	suppliers := map[string]string{}
	for _, row := range rows {
		var supplierID *string
		if name := row.SupplierName; name != "" {
			key := strings.ToLower(name)
			id, ok := suppliers[key]
			if !ok {
				s := &entity.Supplier{Name: name, Email: row.SupplierEmail}
				if err := im.tx.Run(ctx, func(repos repository.Set) error {
					return repos.Suppliers.Create(ctx, s)
				}); err != nil {
					return res, fmt.Errorf("línea %d: proveedor %q: %w", row.Line, name, err)
				}
				id = s.ID
				suppliers[key] = id
				res.Suppliers++
			}
			supplierID = &id
		}
		_, err := im.items.CreateItem(ctx, dto.CreateItemRequest{
			Name:              row.Name,
			SKU:               row.SKU,
			ModuleKey:         row.ModuleKey,
			Size:              row.Size,
			Quantity:          row.Quantity,
			LowStockThreshold: row.LowStockThreshold,
			SupplierID:        supplierID,
		}, actor)
		if errors.Is(err, domain.ErrValidation) {
			res.Skipped = append(res.Skipped, fmt.Sprintf("línea %d: %v", row.Line, err))
			im.log.Warn().Int("line", row.Line).Err(err).Msg("fila omitida")
			continue
		}
		if err != nil {
			return res, fmt.Errorf("línea %d: %w", row.Line, err)
		}
		res.Items++
	}
	im.log.Info().Int("suppliers", res.Suppliers).Int("items", res.Items).Int("skipped", len(res.Skipped)).
		Msg("catálogo importado")
	return res, nil
}
