package usecase

import (
	"strings"

	"github.com/jhoicas/Abastecimiento-api/internal/application/purchasing"
)

// RoleAdmin rol con acceso total a todos los módulos.
const RoleAdmin = "admin"

var _ purchasing.ModulePermissions = (*ModulePermissionService)(nil)

// ModulePermissionService resuelve can_view / can_edit por módulo a partir de la configuración
// (módulo -> roles). Es el único punto de la aplicación que conoce esa tabla.
type ModulePermissionService struct {
	view map[string]map[string]bool
	edit map[string]map[string]bool
}

// NewModulePermissionService construye el servicio. Un rol con edición en un módulo también puede verlo.
func NewModulePermissionService(viewRoles, editRoles map[string][]string) *ModulePermissionService {
	s := &ModulePermissionService{view: index(viewRoles), edit: index(editRoles)}
	for module, roles := range s.edit {
		if s.view[module] == nil {
			s.view[module] = map[string]bool{}
		}
		for role := range roles {
			s.view[module][role] = true
		}
	}
	return s
}

// CanView informa si el rol puede consultar el módulo.
func (s *ModulePermissionService) CanView(role, moduleKey string) bool {
	return allowed(s.view, role, moduleKey)
}

// CanEdit informa si el rol puede modificar el módulo.
func (s *ModulePermissionService) CanEdit(role, moduleKey string) bool {
	return allowed(s.edit, role, moduleKey)
}

func allowed(table map[string]map[string]bool, role, moduleKey string) bool {
	role = strings.ToLower(strings.TrimSpace(role))
	if role == RoleAdmin {
		return true
	}
	if role == "" {
		return false
	}
	return table[moduleKey][role] || table["*"][role]
}

func index(in map[string][]string) map[string]map[string]bool {
	out := make(map[string]map[string]bool, len(in))
	for module, roles := range in {
		set := make(map[string]bool, len(roles))
		for _, r := range roles {
			set[strings.ToLower(strings.TrimSpace(r))] = true
		}
		out[strings.TrimSpace(module)] = set
	}
	return out
}
