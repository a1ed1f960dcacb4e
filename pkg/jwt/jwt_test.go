package jwt_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Abastecimiento-api/pkg/jwt"
)

const secret = "secreto-de-prueba"

func TestGenerateParse_RoundTrip(t *testing.T) {
	token, err := jwt.Generate(secret, "user-1", "admin", "bogota", "abastecimiento-api", 5)
	require.NoError(t, err)

	claims, err := jwt.Parse(secret, token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "admin", claims.Role)
	assert.Equal(t, "bogota", claims.SiteKey)
	assert.True(t, claims.IsAdmin())
}

func TestParse_FirmaIncorrecta(t *testing.T) {
	token, err := jwt.Generate(secret, "user-1", "compras", "", "abastecimiento-api", 5)
	require.NoError(t, err)

	_, err = jwt.Parse("otro-secreto", token)
	assert.Error(t, err)
}

func TestParse_Expirado(t *testing.T) {
	token, err := jwt.Generate(secret, "user-1", "compras", "", "abastecimiento-api", -1)
	require.NoError(t, err)

	_, err = jwt.Parse(secret, token)
	assert.Error(t, err)
}

func TestGenerate_SecretVacio(t *testing.T) {
	_, err := jwt.Generate("", "user-1", "compras", "", "abastecimiento-api", 5)
	assert.Error(t, err)
}
