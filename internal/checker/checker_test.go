package checker

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cmesserich-br/ago-dependency-checker-app/internal/catalog"
	"github.com/cmesserich-br/ago-dependency-checker-app/internal/catalog/catalogtest"
	"github.com/cmesserich-br/ago-dependency-checker-app/internal/config"
	"github.com/cmesserich-br/ago-dependency-checker-app/internal/extract"
	"github.com/cmesserich-br/ago-dependency-checker-app/internal/itemref"
	"github.com/cmesserich-br/ago-dependency-checker-app/internal/resolver"
)

func testConfig(portal string) *config.Config {
	return &config.Config{
		Portal: config.PortalConfig{
			URL:               portal,
			TokenMode:         "referer",
			ExpirationMinutes: 60,
		},
		Catalog: config.CatalogConfig{Burst: 1, CacheSize: 16, UserAgent: "depcheck-test"},
	}
}

func TestTarget(t *testing.T) {
	c := New(testConfig(""))
	id := catalogtest.DashboardID

	tests := []struct {
		name       string
		input      string
		portal     string
		wantPortal string
	}{
		{"bare id uses default", id, "", itemref.DefaultPortal},
		{"url derives portal", "https://acme.maps.arcgis.com/home/item.html?id=" + id, "", "https://acme.maps.arcgis.com"},
		{"explicit portal wins", "https://acme.maps.arcgis.com/home/item.html?id=" + id, "https://gis.example.org/portal", "https://gis.example.org/portal"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref, portal, err := c.Target(tt.input, tt.portal)
			require.NoError(t, err)
			assert.Equal(t, id, ref.ItemID)
			assert.Equal(t, tt.wantPortal, portal)
		})
	}

	configured := New(testConfig("https://gis.example.org/portal"))
	_, portal, err := configured.Target(id, "")
	require.NoError(t, err)
	assert.Equal(t, "https://gis.example.org/portal", portal)

	_, _, err = c.Target("not an item", "")
	var ve *itemref.ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestResolve(t *testing.T) {
	p := catalogtest.New(t)
	catalogtest.SeedDashboard(p)

	run, err := New(testConfig(p.URL())).Resolve(context.Background(), catalogtest.DashboardID, "", catalog.Token{})
	require.NoError(t, err)

	assert.Equal(t, extract.KindDashboard, run.Kind)
	assert.Equal(t, p.URL(), run.Graph.Portal)
	assert.Len(t, run.Graph.Discovered, 3)
	assert.Len(t, run.Graph.Edges, 3)
	assert.Equal(t, []string{catalogtest.ServiceURL}, run.Graph.URLs)
	assert.Equal(t, 1, run.Metrics.Graph.DeepenedMaps)
}

func TestResolve_PrivateNeedsToken(t *testing.T) {
	p := catalogtest.New(t)
	catalogtest.SeedDashboard(p)
	p.PrivateData(catalogtest.MapID)
	c := New(testConfig(p.URL()))

	_, err := c.Resolve(context.Background(), catalogtest.DashboardID, "", catalog.Token{})
	ae, ok := resolver.AsAuthError(err)
	require.True(t, ok, "want auth error, got %v", err)
	assert.Equal(t, resolver.StageWebMap, ae.Stage)
	assert.True(t, errors.Is(err, catalog.ErrAuthRequired))

	run, err := c.Resolve(context.Background(), catalogtest.DashboardID, "", catalog.Token{Value: p.Token})
	require.NoError(t, err)
	assert.Len(t, run.Graph.Discovered, 3)
}

func TestInspect(t *testing.T) {
	p := catalogtest.New(t)
	catalogtest.SeedDashboard(p)
	legacyID := "d00000000000000000000000000000aa"
	p.AddItem(legacyID, "Old Viewer", "Web Mapping Application")
	p.SetData(legacyID, `{"map":{"itemId":"`+catalogtest.MapID+`"}}`)
	c := New(testConfig(p.URL()))

	ins, err := c.Inspect(context.Background(), catalogtest.MapID, "", catalog.Token{})
	require.NoError(t, err)
	assert.Equal(t, "webmap", ins.Kind)
	assert.Equal(t, extract.KindWebMap, ins.ItemKind())
	assert.ElementsMatch(t, []string{catalogtest.LayerID, catalogtest.TableID}, ins.Result.ItemIDs)
	assert.Equal(t, []string{catalogtest.ServiceURL}, ins.Result.URLs)

	ins, err = c.Inspect(context.Background(), legacyID, "", catalog.Token{})
	require.NoError(t, err)
	assert.Equal(t, extract.KindLegacyApp, ins.ItemKind())
	assert.Equal(t, catalogtest.MapID, ins.WebMapID)
	assert.Equal(t, []string{catalogtest.MapID}, ins.Result.ItemIDs)

	p.Broken(catalogtest.LayerID)
	_, err = c.Inspect(context.Background(), catalogtest.LayerID, "", catalog.Token{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetch item")
}

func TestRequestToken(t *testing.T) {
	p := catalogtest.New(t)
	c := New(testConfig(p.URL()))

	tok, err := c.RequestToken(context.Background(), "", catalog.TokenRequest{
		Username: catalogtest.Username,
		Password: catalogtest.Password,
		Mode:     catalog.ModeReferer,
	})
	require.NoError(t, err)
	assert.Equal(t, p.Token, tok.Value)
	assert.False(t, tok.ExpiresAt.IsZero())

	_, err = c.RequestToken(context.Background(), "", catalog.TokenRequest{
		Username: catalogtest.Username,
		Password: "wrong",
		Mode:     catalog.ModeRequestIP,
	})
	assert.Error(t, err)
	assert.Equal(t, []string{"token", "token"}, p.Calls())
}

func TestConfiguredToken(t *testing.T) {
	p := catalogtest.New(t)

	cfg := testConfig(p.URL())
	tok, err := New(cfg).ConfiguredToken(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, tok.Value)

	cfg.Portal.Token = "static"
	tok, err = New(cfg).ConfiguredToken(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "static", tok.Value)

	cfg.Portal.Token = ""
	cfg.Portal.Username = catalogtest.Username
	cfg.Portal.Password = catalogtest.Password
	tok, err = New(cfg).ConfiguredToken(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, p.Token, tok.Value)

	cfg.Portal.TokenMode = "oauth"
	_, err = New(cfg).ConfiguredToken(context.Background(), "")
	assert.Error(t, err)
}
