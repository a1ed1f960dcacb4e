package purchasing

import (
	"context"

	"github.com/jhoicas/Abastecimiento-api/internal/domain/entity"
	"github.com/jhoicas/Abastecimiento-api/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción, con repositorios atados a esa tx.
type TxRunner interface {
	Run(ctx context.Context, fn func(repos repository.Set) error) error
}

// Ledger aplica movimientos de existencias dentro de una transacción abierta.
// Lo implementa inventory.LedgerUseCase.
type Ledger interface {
	ApplyMovementInTx(ctx context.Context, repos repository.Set, itemID string, delta int, reason, actor string) (*entity.Item, error)
}

// ModulePermissions resuelve los permisos por módulo de un rol.
type ModulePermissions interface {
	CanView(role, moduleKey string) bool
	CanEdit(role, moduleKey string) bool
}

// Metrics recibe los eventos de negocio del motor de compras.
type Metrics interface {
	AutoDraft(action string)
	Receipt(conformity string, qty int)
	SuggestionsRefreshed(moduleKey string, drafts int)
	SuggestionConverted(moduleKey string)
}

type nopMetrics struct{}

func (nopMetrics) AutoDraft(string)                 {}
func (nopMetrics) Receipt(string, int)              {}
func (nopMetrics) SuggestionsRefreshed(string, int) {}
func (nopMetrics) SuggestionConverted(string)       {}

// Actor identifica a quien invoca la operación (en HTTP, los claims del JWT).
type Actor struct {
	ID      string
	Role    string
	IsAdmin bool
}
