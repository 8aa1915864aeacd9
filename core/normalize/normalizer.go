// ABOUTME: Response normalizer maps heterogeneous upstream payloads onto the canonical Listing
// ABOUTME: Absent fields stay unset and missing identities are synthesized without collisions

package normalize

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"listings-aggregator-api/core/domain"
	coreerrors "listings-aggregator-api/core/errors"
	"listings-aggregator-api/core/interfaces"
	"listings-aggregator-api/pkg/utils/html"
	"listings-aggregator-api/pkg/utils/parse"
	timeutil "listings-aggregator-api/pkg/utils/time"
)

// IDMode selects how a missing external identity is synthesized
type IDMode string

const (
	// IDRandom derives the identity from the source and a fresh random token
	IDRandom IDMode = "random"

	// IDContent derives the identity from the source and the element payload,
	// so the same payload maps to the same identity across fetches
	IDContent IDMode = "content"
)

// syntheticMarker separates generated identities from upstream ones
const syntheticMarker = "_gen_"

var (
	idKeys           = []string{"id", "property_id", "zpid", "listing_id"}
	addressKeys      = []string{"address", "streetAddress", "street_address"}
	cityKeys         = []string{"city"}
	stateKeys        = []string{"state", "state_code"}
	zipKeys          = []string{"zip_code", "zip", "zipcode", "postal_code"}
	priceKeys        = []string{"price", "list_price", "listPrice"}
	bedroomKeys      = []string{"bedrooms", "beds"}
	bathroomKeys     = []string{"bathrooms", "baths"}
	squareFeetKeys   = []string{"square_feet", "sqft", "livingArea", "living_area"}
	descriptionKeys  = []string{"description", "remarks"}
	imageKeys        = []string{"images", "photos", "imgSrc"}
	propertyTypeKeys = []string{"property_type", "propertyType", "homeType", "type"}
	yearBuiltKeys    = []string{"year_built", "yearBuilt"}
	lotSizeKeys      = []string{"lot_size", "lotSize", "lot_sqft"}
	listingDateKeys  = []string{"listing_date", "list_date", "listDate", "listed_date"}
)

// Normalizer converts raw source bodies into candidate listings
type Normalizer struct {
	logger   interfaces.Logger
	idMode   IDMode
	newToken func() string
}

// New creates a normalizer. An unknown mode falls back to IDRandom.
func New(logger interfaces.Logger, mode IDMode) *Normalizer {
	if mode != IDContent {
		mode = IDRandom
	}
	return &Normalizer{
		logger:   logger,
		idMode:   mode,
		newToken: randomToken,
	}
}

// WithTokenSource replaces the random token generator
func (n *Normalizer) WithTokenSource(f func() string) *Normalizer {
	n.newToken = f
	return n
}

// Normalize parses body and returns one candidate per listing element.
// A body that is not JSON yields a MalformedResponseError and no candidates.
func (n *Normalizer) Normalize(body []byte, src domain.Source) ([]*domain.Listing, error) {
	elems, rule, err := resolve(body, Rules(src.ListKey))
	if err != nil {
		return nil, &coreerrors.MalformedResponseError{Source: src.Name, Cause: err}
	}

	n.debug("Resolved response shape", map[string]interface{}{
		"source":   src.Name,
		"shape":    rule.String(),
		"elements": len(elems),
	})

	type pending struct {
		listing *domain.Listing
		raw     json.RawMessage
	}

	batch := make([]pending, 0, len(elems))
	taken := make(map[string]struct{}, len(elems))
	for i, raw := range elems {
		fields, err := decodeObject(raw)
		if err != nil {
			n.debug("Skipping non-object element", map[string]interface{}{
				"source": src.Name,
				"index":  i,
				"error":  err.Error(),
			})
			continue
		}

		l := n.mapFields(fields, src)
		l.RawData = append(json.RawMessage(nil), bytes.TrimSpace(raw)...)
		if l.ExternalID != "" {
			taken[l.ExternalID] = struct{}{}
		}
		batch = append(batch, pending{listing: l, raw: l.RawData})
	}

	seen := make(map[string]int)
	listings := make([]*domain.Listing, 0, len(batch))
	for _, p := range batch {
		if p.listing.ExternalID == "" {
			p.listing.ExternalID = n.synthesize(src.Name, p.raw, taken, seen)
			taken[p.listing.ExternalID] = struct{}{}
		}
		listings = append(listings, p.listing)
	}

	return listings, nil
}

// IsSynthetic reports whether an external id was generated rather than supplied upstream
func IsSynthetic(source, externalID string) bool {
	return strings.HasPrefix(externalID, source+syntheticMarker)
}

func (n *Normalizer) synthesize(source string, raw json.RawMessage, taken map[string]struct{}, seen map[string]int) string {
	prefix := source + syntheticMarker

	if n.idMode == IDContent {
		sum := sha256.Sum256(append([]byte(source+"\x00"), raw...))
		base := prefix + hex.EncodeToString(sum[:8])
		id := base
		for {
			occurrence := seen[base]
			seen[base]++
			if occurrence > 0 {
				id = fmt.Sprintf("%s_%d", base, occurrence)
			}
			if _, clash := taken[id]; !clash {
				return id
			}
		}
	}

	for {
		id := prefix + n.newToken()
		if _, clash := taken[id]; !clash {
			return id
		}
	}
}

func (n *Normalizer) mapFields(f map[string]interface{}, src domain.Source) *domain.Listing {
	l := &domain.Listing{
		Source: src.Name,
		Active: true,
		Images: []string{},
	}

	keys := idKeys
	if src.IDField != "" {
		keys = append([]string{src.IDField}, idKeys...)
	}
	if v, ok := first(f, keys); ok {
		l.ExternalID, _ = parse.String(v)
	}

	n.mapAddress(f, l)

	if v, ok := first(f, priceKeys); ok {
		if price, ok := parse.Float(v); ok {
			if price > 0 {
				l.Price = domain.Float(price)
			} else {
				n.dropped(src.Name, "price", v)
			}
		}
	}
	if v, ok := first(f, bedroomKeys); ok {
		if beds, ok := parse.Int(v); ok {
			if beds >= 0 {
				l.Bedrooms = domain.Int(beds)
			} else {
				n.dropped(src.Name, "bedrooms", v)
			}
		}
	}
	if v, ok := first(f, bathroomKeys); ok {
		if baths, ok := parse.Float(v); ok {
			if baths >= 0 {
				l.Bathrooms = domain.Float(baths)
			} else {
				n.dropped(src.Name, "bathrooms", v)
			}
		}
	}
	if v, ok := first(f, squareFeetKeys); ok {
		if sqft, ok := parse.Int(v); ok {
			if sqft > 0 {
				l.SquareFeet = domain.Int(sqft)
			} else {
				n.dropped(src.Name, "square_feet", v)
			}
		}
	}
	if v, ok := first(f, yearBuiltKeys); ok {
		if year, ok := parse.Int(v); ok && year > 0 {
			l.YearBuilt = domain.Int(year)
		}
	}
	if v, ok := first(f, lotSizeKeys); ok {
		if lot, ok := parse.Int(v); ok && lot > 0 {
			l.LotSize = domain.Int(lot)
		}
	}

	if v, ok := first(f, descriptionKeys); ok {
		l.Description = html.StripHTML(textOf(v))
	}
	if v, ok := first(f, propertyTypeKeys); ok {
		l.PropertyType, _ = parse.String(v)
	}
	if v, ok := first(f, listingDateKeys); ok {
		if t, ok := timeutil.ParseValue(v); ok {
			l.ListingDate = &t
		}
	}
	if v, ok := first(f, imageKeys); ok {
		l.Images = imagesOf(v)
	}

	return l
}

// mapAddress accepts a flat address string or a structured address object
func (n *Normalizer) mapAddress(f map[string]interface{}, l *domain.Listing) {
	if v, ok := first(f, cityKeys); ok {
		l.City, _ = parse.String(v)
	}
	if v, ok := first(f, stateKeys); ok {
		l.State, _ = parse.String(v)
	}
	if v, ok := first(f, zipKeys); ok {
		l.ZipCode, _ = parse.String(v)
	}

	v, ok := first(f, addressKeys)
	if !ok {
		return
	}
	switch addr := v.(type) {
	case string:
		l.Address = strings.TrimSpace(addr)
	case map[string]interface{}:
		if line, ok := first(addr, []string{"line", "street", "streetAddress", "address"}); ok {
			l.Address, _ = parse.String(line)
		}
		if l.City == "" {
			if c, ok := first(addr, cityKeys); ok {
				l.City, _ = parse.String(c)
			}
		}
		if l.State == "" {
			if s, ok := first(addr, stateKeys); ok {
				l.State, _ = parse.String(s)
			}
		}
		if l.ZipCode == "" {
			if z, ok := first(addr, zipKeys); ok {
				l.ZipCode, _ = parse.String(z)
			}
		}
	}
}

func (n *Normalizer) dropped(source, field string, value interface{}) {
	n.debug("Dropping out-of-range value", map[string]interface{}{
		"source": source,
		"field":  field,
		"value":  value,
	})
}

func (n *Normalizer) debug(msg string, fields map[string]interface{}) {
	if n.logger != nil {
		n.logger.Debug(msg, fields)
	}
}

func decodeObject(raw json.RawMessage) (map[string]interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var fields map[string]interface{}
	if err := dec.Decode(&fields); err != nil {
		return nil, err
	}
	if fields == nil {
		return nil, fmt.Errorf("element is null")
	}
	return fields, nil
}

// first returns the first present, non-null value among keys
func first(f map[string]interface{}, keys []string) (interface{}, bool) {
	for _, k := range keys {
		if v, ok := f[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

// textOf returns description text, unwrapping {"text": "..."} objects
func textOf(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case map[string]interface{}:
		if s, ok := t["text"].(string); ok {
			return s
		}
	}
	return ""
}

// imagesOf accepts a URL, a list of URLs, or a list of {href|url|src} objects
func imagesOf(v interface{}) []string {
	images := []string{}
	switch t := v.(type) {
	case string:
		if s := strings.TrimSpace(t); s != "" {
			images = append(images, s)
		}
	case []interface{}:
		for _, item := range t {
			switch img := item.(type) {
			case string:
				if s := strings.TrimSpace(img); s != "" {
					images = append(images, s)
				}
			case map[string]interface{}:
				if u, ok := first(img, []string{"href", "url", "src"}); ok {
					if s, ok := parse.String(u); ok {
						images = append(images, s)
					}
				}
			}
		}
	}
	return images
}

func randomToken() string {
	id := uuid.New()
	return hex.EncodeToString(id[:8])
}
