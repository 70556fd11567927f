package catalogtest

import "fmt"

// Ids of the dashboard fixture.
const (
	DashboardID = "d0000000000000000000000000000001"
	MapID       = "d0000000000000000000000000000002"
	LayerID     = "d0000000000000000000000000000003"
	TableID     = "d0000000000000000000000000000004"
	ServiceURL  = "https://services.example.org/arcgis/rest/services/Parcels/FeatureServer/0"
)

// SeedDashboard registers a dashboard that uses one web map, which in turn
// uses a layer item, a table item and a service URL. A full run discovers
// three items, draws three edges and collects one URL.
func SeedDashboard(p *Portal) {
	p.AddItem(DashboardID, "Operations Dashboard", "Dashboard")
	p.SetData(DashboardID, fmt.Sprintf(`{"widgets":[{"type":"mapWidget","itemId":%q}]}`, MapID))

	p.AddItem(MapID, "Parcels Map", "Web Map")
	p.SetData(MapID, fmt.Sprintf(`{"operationalLayers":[{"itemId":%q,"url":%q,"tables":[{"itemId":%q}]}]}`,
		LayerID, ServiceURL, TableID))

	p.AddItem(LayerID, "Parcels", "Feature Service")
	p.AddItem(TableID, "Owners", "Table")
}
