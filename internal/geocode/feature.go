package geocode

import (
	"fmt"
	"strconv"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Feature is one autocomplete suggestion. Only ID and Label are interpreted;
// Properties and Geometry pass through untouched.
type Feature struct {
	ID         string              `json:"id"`
	Label      string              `json:"label"`
	Properties map[string]any      `json:"properties,omitempty"`
	Geometry   jsoniter.RawMessage `json:"geometry,omitempty"`
}

// Point returns the feature's coordinates when its geometry is a GeoJSON
// Point.
func (f Feature) Point() (LatLon, bool) {
	if len(f.Geometry) == 0 {
		return LatLon{}, false
	}
	var g struct {
		Type        string    `json:"type"`
		Coordinates []float64 `json:"coordinates"`
	}
	if err := json.Unmarshal(f.Geometry, &g); err != nil {
		return LatLon{}, false
	}
	if g.Type != "Point" || len(g.Coordinates) < 2 {
		return LatLon{}, false
	}
	return LatLon{Lon: g.Coordinates[0], Lat: g.Coordinates[1]}, true
}

// Envelope wraps a search outcome. Discard marks results that must not be
// shown: empty terms, cancelled requests, responses overtaken by newer ones.
type Envelope struct {
	Discard  bool
	Features []Feature
}

type featureCollection struct {
	Type     string        `json:"type"`
	Features []wireFeature `json:"features"`
}

type wireFeature struct {
	Type       string              `json:"type"`
	Geometry   jsoniter.RawMessage `json:"geometry"`
	Properties map[string]any      `json:"properties"`
}

type errorBody struct {
	Geocoding struct {
		Errors []string `json:"errors"`
	} `json:"geocoding"`
}

func decodeFeatures(body []byte) ([]Feature, error) {
	var fc featureCollection
	if err := json.Unmarshal(body, &fc); err != nil {
		return nil, fmt.Errorf("decode feature collection: %w", err)
	}

	features := make([]Feature, 0, len(fc.Features))
	for i, wf := range fc.Features {
		f := Feature{
			ID:         stringProp(wf.Properties, "gid"),
			Label:      stringProp(wf.Properties, "label"),
			Properties: wf.Properties,
			Geometry:   wf.Geometry,
		}
		if f.ID == "" {
			f.ID = stringProp(wf.Properties, "id")
		}
		if f.ID == "" {
			f.ID = fmt.Sprintf("feature-%d", i)
		}
		if f.Label == "" {
			f.Label = stringProp(wf.Properties, "name")
		}
		features = append(features, f)
	}
	return features, nil
}

func stringProp(props map[string]any, key string) string {
	switch v := props[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}

// apiErrorMessage extracts the first Pelias error message from body, falling
// back to the raw body.
func apiErrorMessage(body []byte) string {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil && len(eb.Geocoding.Errors) > 0 {
		return eb.Geocoding.Errors[0]
	}
	msg := string(body)
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return msg
}
