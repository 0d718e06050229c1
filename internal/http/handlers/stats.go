package handlers

import (
	"net/http"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"lifelink/internal/domain"
	"lifelink/internal/ledger"
)

type auditResponse struct {
	Donations  []domain.DonationRecord `json:"donations"`
	Supplies   []domain.SupplyRecord   `json:"supplies"`
	Statistics domain.Statistics       `json:"statistics"`
}

func (a *App) AuditTrail(w http.ResponseWriter, r *http.Request) {
	doc, err := a.Ledger.Ledger(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, auditResponse{Donations: doc.Donations, Supplies: doc.Supplies, Statistics: doc.Statistics})
}

func (a *App) PublicStats(w http.ResponseWriter, r *http.Request) {
	doc, err := a.Ledger.Ledger(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{
		"statistics": doc.Statistics,
		"donations":  doc.Donations,
		"supplies":   doc.Supplies,
	})
}

func (a *App) Statistics(w http.ResponseWriter, r *http.Request) {
	doc, err := a.Ledger.Ledger(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, ledger.Summarize(doc))
}

// MapDispatches returns located supply records as a GeoJSON feature
// collection.
func (a *App) MapDispatches(w http.ResponseWriter, r *http.Request) {
	doc, err := a.Ledger.Ledger(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	fc := geojson.NewFeatureCollection()
	for _, s := range doc.Supplies {
		if s.Details.Location == nil {
			continue
		}
		f := geojson.NewFeature(orb.Point{s.Details.Location.Lng, s.Details.Location.Lat})
		f.ID = s.ID
		f.Properties["id"] = s.ID
		f.Properties["trackingCode"] = s.TrackingCode
		f.Properties["item"] = s.Details.Item
		f.Properties["quantity"] = s.Details.Quantity
		f.Properties["unit"] = s.Details.Unit
		f.Properties["from"] = s.Details.From
		f.Properties["to"] = s.Details.To
		f.Properties["status"] = string(s.Status)
		f.Properties["createdAt"] = s.CreatedAt
		fc.Append(f)
	}
	raw, err := fc.MarshalJSON()
	if err != nil {
		a.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(raw)
}
