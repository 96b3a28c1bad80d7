package enrich

import (
	"net"
	"strings"

	"github.com/oschwald/geoip2-golang"
)

type Location struct {
	Country string
	City    string
}

// GeoIP annotates occurrence client IPs with a coarse location. A nil *GeoIP
// is valid and looks up nothing; the database is optional.
type GeoIP struct {
	city *geoip2.Reader
}

func NewGeoIP(cityPath string) (*GeoIP, error) {
	cityPath = strings.TrimSpace(cityPath)
	if cityPath == "" {
		return nil, nil
	}
	r, err := geoip2.Open(cityPath)
	if err != nil {
		return nil, err
	}
	return &GeoIP{city: r}, nil
}

func (g *GeoIP) Close() error {
	if g == nil || g.city == nil {
		return nil
	}
	return g.city.Close()
}

func (g *GeoIP) Lookup(ipStr string) (Location, bool) {
	if g == nil || g.city == nil {
		return Location{}, false
	}
	ip := net.ParseIP(strings.TrimSpace(ipStr))
	if ip == nil {
		return Location{}, false
	}
	rec, err := g.city.City(ip)
	if err != nil {
		return Location{}, false
	}

	out := Location{}
	ok := false
	if rec.Country.IsoCode != "" {
		out.Country = rec.Country.IsoCode
		ok = true
	}
	if rec.City.Names != nil {
		if name := strings.TrimSpace(rec.City.Names["en"]); name != "" {
			out.City = name
			ok = true
		}
	}
	return out, ok
}
