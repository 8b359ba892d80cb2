package geocode

import (
	"net/url"
	"strconv"
	"strings"
)

// MaxSize is the largest result count the autocomplete endpoint accepts.
const MaxSize = 40

// Params are the optional query parameters sent with every search.
// Zero values are omitted from the request.
type Params struct {
	Lang     string
	Size     int
	Layers   []string
	Sources  []string
	Boundary Boundary
	Focus    *LatLon
}

// Boundary restricts results to a country, an administrative area, a circle
// or a rectangle.
type Boundary struct {
	Country string
	GID     string
	Circle  *Circle
	Rect    *Rect
}

type LatLon struct {
	Lat float64
	Lon float64
}

type Circle struct {
	Lat    float64
	Lon    float64
	Radius float64 // kilometres
}

type Rect struct {
	MinLat float64
	MaxLat float64
	MinLon float64
	MaxLon float64
}

// Validate checks ranges and returns a *ConfigError naming the first bad field.
func (p Params) Validate() error {
	if p.Size < 0 || p.Size > MaxSize {
		return &ConfigError{Field: "size", Reason: "must be between 1 and " + strconv.Itoa(MaxSize)}
	}
	if c := p.Boundary.Circle; c != nil {
		if err := checkLatLon("boundary.circle", c.Lat, c.Lon); err != nil {
			return err
		}
		if c.Radius <= 0 {
			return &ConfigError{Field: "boundary.circle.radius", Reason: "must be positive"}
		}
	}
	if r := p.Boundary.Rect; r != nil {
		if err := checkLatLon("boundary.rect.min", r.MinLat, r.MinLon); err != nil {
			return err
		}
		if err := checkLatLon("boundary.rect.max", r.MaxLat, r.MaxLon); err != nil {
			return err
		}
		if r.MinLat >= r.MaxLat || r.MinLon >= r.MaxLon {
			return &ConfigError{Field: "boundary.rect", Reason: "min must be less than max"}
		}
	}
	if f := p.Focus; f != nil {
		if err := checkLatLon("focus.point", f.Lat, f.Lon); err != nil {
			return err
		}
	}
	return nil
}

func checkLatLon(field string, lat, lon float64) error {
	if lat < -90 || lat > 90 {
		return &ConfigError{Field: field + ".lat", Reason: "out of range [-90, 90]"}
	}
	if lon < -180 || lon > 180 {
		return &ConfigError{Field: field + ".lon", Reason: "out of range [-180, 180]"}
	}
	return nil
}

// Clone returns a deep copy.
func (p Params) Clone() Params {
	out := p
	out.Layers = append([]string(nil), p.Layers...)
	out.Sources = append([]string(nil), p.Sources...)
	if p.Boundary.Circle != nil {
		c := *p.Boundary.Circle
		out.Boundary.Circle = &c
	}
	if p.Boundary.Rect != nil {
		r := *p.Boundary.Rect
		out.Boundary.Rect = &r
	}
	if p.Focus != nil {
		f := *p.Focus
		out.Focus = &f
	}
	return out
}

// Values encodes the set fields as Pelias query parameters.
func (p Params) Values() url.Values {
	v := url.Values{}
	set := func(key, val string) {
		if val != "" {
			v.Set(key, val)
		}
	}
	set("lang", p.Lang)
	if p.Size > 0 {
		v.Set("size", strconv.Itoa(p.Size))
	}
	set("layers", joinNonEmpty(p.Layers))
	set("sources", joinNonEmpty(p.Sources))
	set("boundary.country", p.Boundary.Country)
	set("boundary.gid", p.Boundary.GID)
	if c := p.Boundary.Circle; c != nil {
		v.Set("boundary.circle.lat", formatFloat(c.Lat))
		v.Set("boundary.circle.lon", formatFloat(c.Lon))
		v.Set("boundary.circle.radius", formatFloat(c.Radius))
	}
	if r := p.Boundary.Rect; r != nil {
		v.Set("boundary.rect.min_lat", formatFloat(r.MinLat))
		v.Set("boundary.rect.max_lat", formatFloat(r.MaxLat))
		v.Set("boundary.rect.min_lon", formatFloat(r.MinLon))
		v.Set("boundary.rect.max_lon", formatFloat(r.MaxLon))
	}
	if f := p.Focus; f != nil {
		v.Set("focus.point.lat", formatFloat(f.Lat))
		v.Set("focus.point.lon", formatFloat(f.Lon))
	}
	return v
}

func joinNonEmpty(items []string) string {
	out := make([]string, 0, len(items))
	for _, s := range items {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return strings.Join(out, ",")
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
