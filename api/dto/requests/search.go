// ABOUTME: Request DTOs for listing search
// ABOUTME: Numeric bounds arrive as strings so the core can report every bad value

package requests

// SearchQuery carries the allowed search filters as raw query parameters
type SearchQuery struct {
	City            string `query:"city" doc:"Case-insensitive substring of the city"`
	State           string `query:"state" doc:"Case-insensitive state code"`
	PropertyType    string `query:"property_type" doc:"Case-insensitive property type"`
	MinPrice        string `query:"min_price" doc:"Minimum price, whole number"`
	MaxPrice        string `query:"max_price" doc:"Maximum price, whole number"`
	MinBedrooms     string `query:"min_bedrooms" doc:"Minimum bedrooms"`
	MaxBedrooms     string `query:"max_bedrooms" doc:"Maximum bedrooms"`
	MinBathrooms    string `query:"min_bathrooms" doc:"Minimum bathrooms"`
	MaxBathrooms    string `query:"max_bathrooms" doc:"Maximum bathrooms"`
	IncludeInactive string `query:"include_inactive" doc:"Also return soft-deleted listings"`
}

// Criteria returns the non-empty parameters keyed by filter name
func (q SearchQuery) Criteria() map[string]string {
	raw := map[string]string{
		"city":             q.City,
		"state":            q.State,
		"property_type":    q.PropertyType,
		"min_price":        q.MinPrice,
		"max_price":        q.MaxPrice,
		"min_bedrooms":     q.MinBedrooms,
		"max_bedrooms":     q.MaxBedrooms,
		"min_bathrooms":    q.MinBathrooms,
		"max_bathrooms":    q.MaxBathrooms,
		"include_inactive": q.IncludeInactive,
	}
	for k, v := range raw {
		if v == "" {
			delete(raw, k)
		}
	}
	return raw
}
