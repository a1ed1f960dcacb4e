package domain

import "errors"

// Errores de dominio (sin dependencias externas).
// Los casos de uso los envuelven con fmt.Errorf("...: %w", ...) para añadir contexto;
// los llamadores distinguen el tipo con errors.Is.
var (
	ErrValidation       = errors.New("entrada inválida")
	ErrNotFound         = errors.New("recurso no encontrado")
	ErrConflict         = errors.New("conflicto con el estado actual")
	ErrTransient        = errors.New("error transitorio de almacenamiento, reintente")
	ErrAlreadyApplied   = errors.New("operación ya aplicada")
	ErrAlreadyConverted = errors.New("la sugerencia ya fue convertida")
	ErrForbidden        = errors.New("acceso denegado")
	ErrDuplicate        = errors.New("recurso duplicado")
)

// ErrInvalidInput se conserva como alias de ErrValidation para los handlers existentes.
var ErrInvalidInput = ErrValidation

// IsRetryable informa si el error es transitorio (contención de bloqueos o esquema no migrado).
// El llamador puede reintentar la operación completa una vez tras una breve espera.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTransient)
}
