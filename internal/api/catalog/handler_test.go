package catalog

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	catalogsvc "submission-app/internal/catalog"
	"submission-app/internal/logger"
	"submission-app/internal/metadata"
)

type unreachableAPI struct{}

func (unreachableAPI) PrimaryCategories(context.Context) ([]metadata.Entry, error) {
	return nil, errors.New("metadata api unreachable")
}

func (unreachableAPI) SecondaryCategories(context.Context, uint) ([]metadata.Entry, error) {
	return nil, errors.New("metadata api unreachable")
}

func (unreachableAPI) Governates(context.Context) ([]metadata.Entry, error) {
	return nil, errors.New("metadata api unreachable")
}

func (unreachableAPI) Wilayahs(context.Context, uint) ([]metadata.Entry, error) {
	return nil, errors.New("metadata api unreachable")
}

func (unreachableAPI) PropertiesByCategory(context.Context, uint) ([]metadata.Entry, error) {
	return nil, errors.New("metadata api unreachable")
}

func TestGovernatesDegradeToEmptyListOnFetchFailure(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewHandler(catalogsvc.NewResolver(unreachableAPI{}, nil, logger.NewNop()), logger.NewNop())

	r := gin.New()
	r.GET("/catalog/governates", h.Governates)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/catalog/governates", nil)
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"data":[]`)
	assert.Contains(t, rec.Body.String(), `"error"`)
}

func TestWilayahsRejectNonNumericParent(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewHandler(catalogsvc.NewResolver(unreachableAPI{}, nil, logger.NewNop()), logger.NewNop())

	r := gin.New()
	r.GET("/catalog/governates/:id/wilayahs", h.Wilayahs)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/catalog/governates/muscat/wilayahs", nil)
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
