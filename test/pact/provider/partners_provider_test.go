//go:build pact
// +build pact

package provider_test

import (
	"errors"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/pact-foundation/pact-go/v2/models"
	pactprovider "github.com/pact-foundation/pact-go/v2/provider"
	"github.com/stretchr/testify/require"

	"github.com/Apurer/procurement-engine/internal/mockpartners"
	pacttest "github.com/Apurer/procurement-engine/test/pact"
)

func TestPartnerAPIsProviderPact(t *testing.T) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	pactFile := filepath.ToSlash(pacttest.PactFile(t))
	if _, err := os.Stat(pactFile); errors.Is(err, os.ErrNotExist) {
		t.Fatalf("pact file not found at %s - run the pact consumer tests first", pactFile)
	} else {
		require.NoError(t, err)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	mockpartners.NewServer(mockpartners.WithEquipmentWeight(pacttest.SupplierID, pacttest.EquipmentWeight)).Register(router)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	noop := func(bool, models.ProviderState) (models.ProviderStateResponse, error) { return nil, nil }
	err := pactprovider.NewVerifier().VerifyProvider(t, pactprovider.VerifyRequest{
		ProviderBaseURL: server.URL,
		Provider:        pacttest.ProviderName,
		PactFiles:       []string{pactFile},
		StateHandlers: models.StateHandlers{
			pacttest.StatePartnersAvailable: noop,
			pacttest.StateSupplierCatalog:   noop,
		},
	})
	require.NoError(t, err)
}
