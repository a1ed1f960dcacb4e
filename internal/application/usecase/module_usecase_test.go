package usecase_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/Abastecimiento-api/internal/application/usecase"
)

func TestModulePermissionService(t *testing.T) {
	svc := usecase.NewModulePermissionService(
		map[string][]string{"clothing": {"bodeguero"}, "*": {"auditor"}},
		map[string][]string{"clothing": {"Compras"}, "pharmacy": {"farmacia"}},
	)

	cases := []struct {
		name     string
		role     string
		module   string
		wantView bool
		wantEdit bool
	}{
		{"admin ve y edita todo", "admin", "vehicle", true, true},
		{"editor también ve", "compras", "clothing", true, true},
		{"solo lectura", "bodeguero", "clothing", true, false},
		{"comodín de lectura", "auditor", "inventory_remise", true, false},
		{"sin permiso en otro módulo", "compras", "pharmacy", false, false},
		{"rol vacío", "", "clothing", false, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.wantView, svc.CanView(tc.role, tc.module))
			assert.Equal(t, tc.wantEdit, svc.CanEdit(tc.role, tc.module))
		})
	}
}
