package http_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apphttp "github.com/jhoicas/Abastecimiento-api/internal/interfaces/http"
	pkgjwt "github.com/jhoicas/Abastecimiento-api/pkg/jwt"
	"github.com/jhoicas/Abastecimiento-api/pkg/logger"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

const (
	testJWTSecret = "test-secret-key-for-unit-tests"
	testUserID    = "00000000-0000-0000-0000-000000000001"
	testSiteKey   = "planta-norte"
	testIssuer    = "abastecimiento-test"
	testExpMin    = 60
)

// buildTestApp monta AuthMiddleware + RequireRole sobre GET /protected; el handler responde el rol.
func buildTestApp(allowedRoles ...string) *fiber.App {
	app := fiber.New()
	app.Get("/protected",
		apphttp.AuthMiddleware(testJWTSecret),
		apphttp.RequireRole(logger.Nop(), allowedRoles...),
		func(c *fiber.Ctx) error {
			return c.JSON(fiber.Map{"role": apphttp.GetRole(c)})
		},
	)
	return app
}

// tokenForRole genera un JWT con el rol indicado.
func tokenForRole(t *testing.T, role string) string {
	t.Helper()
	tok, err := pkgjwt.Generate(testJWTSecret, testUserID, role, testSiteKey, testIssuer, testExpMin)
	require.NoError(t, err, "debe generarse un token JWT válido")
	return "Bearer " + tok
}

func doRequest(t *testing.T, app *fiber.App, authHeader string) (*http.Response, string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

// ──────────────────────────────────────────────────────────────────────────────
// Tests RequireRole
// ──────────────────────────────────────────────────────────────────────────────

func TestRequireRole_PorRol(t *testing.T) {
	cases := []struct {
		name    string
		allowed []string
		role    string
		status  int
	}{
		{"compras en ruta de compras", apphttp.AuditReaderRoles, "compras", http.StatusOK},
		{"bodeguero en ruta de compras", apphttp.AuditReaderRoles, "bodeguero", http.StatusForbidden},
		{"admin pasa sin estar listado", apphttp.AuditReaderRoles, "admin", http.StatusOK},
		{"admin en mayúsculas", []string{"bodeguero"}, "ADMIN", http.StatusOK},
		{"rol con otra capitalización", []string{"Bodeguero"}, "bodeguero", http.StatusOK},
		{"sin roles listados solo admin", nil, "compras", http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, body := doRequest(t, buildTestApp(tc.allowed...), tokenForRole(t, tc.role))
			assert.Equal(t, tc.status, resp.StatusCode, body)
			if tc.status == http.StatusForbidden {
				assert.Contains(t, body, "FORBIDDEN")
			}
		})
	}
}

func TestRequireRole_TokenSinRol_Retorna401(t *testing.T) {
	tok, err := pkgjwt.Generate(testJWTSecret, testUserID, "", testSiteKey, testIssuer, testExpMin)
	require.NoError(t, err)

	resp, body := doRequest(t, buildTestApp("compras"), "Bearer "+tok)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, body, "MISSING_ROLE")
}

func TestRequireRole_SinTokenOTokenInvalido_Retorna401(t *testing.T) {
	app := buildTestApp("compras")

	resp, body := doRequest(t, app, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, body, "MISSING_TOKEN")

	resp, body = doRequest(t, app, "Bearer token.invalido.aqui")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, body, "INVALID_TOKEN")

	resp, _ = doRequest(t, app, "Basic abc")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

// ──────────────────────────────────────────────────────────────────────────────
// Tests AuthMiddleware: extracción de claims del token
// ──────────────────────────────────────────────────────────────────────────────

func TestAuthMiddleware_ExtractaClaims(t *testing.T) {
	app := fiber.New()
	app.Get("/me", apphttp.AuthMiddleware(testJWTSecret), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"user_id":  apphttp.GetUserID(c),
			"site_key": apphttp.GetSiteKey(c),
			"role":     apphttp.GetRole(c),
		})
	})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", tokenForRole(t, "admin"))
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, testUserID, body["user_id"])
	assert.Equal(t, testSiteKey, body["site_key"])
	assert.Equal(t, "admin", body["role"])
}

func TestActorFrom_AdminPorRol(t *testing.T) {
	app := fiber.New()
	app.Get("/actor", apphttp.AuthMiddleware(testJWTSecret), func(c *fiber.Ctx) error {
		a := apphttp.ActorFrom(c)
		return c.JSON(fiber.Map{"id": a.ID, "role": a.Role, "admin": a.IsAdmin})
	})

	for role, admin := range map[string]bool{"admin": true, "ADMIN": true, "compras": false} {
		req := httptest.NewRequest(http.MethodGet, "/actor", nil)
		req.Header.Set("Authorization", tokenForRole(t, role))
		resp, err := app.Test(req, -1)
		require.NoError(t, err)

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		resp.Body.Close()
		assert.Equal(t, testUserID, body["id"])
		assert.Equal(t, admin, body["admin"], "rol %s", role)
	}
}
