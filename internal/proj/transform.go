package proj

import (
	"fmt"
	"strconv"
	"strings"
)

// SRID constants for reference systems the tool knows about
const (
	SRID4326  = 4326  // WGS84 (lat/lon)
	SRID3857  = 3857  // Web Mercator
	SRID27700 = 27700 // OSGB36 / British National Grid
)

// geographic lists SRIDs whose units are degrees; planar area in these
// systems is not a meaningful hectare figure.
var geographic = map[int]bool{
	SRID4326: true,
	4258:     true, // ETRS89
	4277:     true, // OSGB36 lat/lon
}

// ParseSRID parses a projection string to SRID
// Accepts: "27700", "EPSG:27700", "epsg:4326"
func ParseSRID(s string) (int, error) {
	v := strings.TrimSpace(s)
	if len(v) > 5 && strings.EqualFold(v[:5], "EPSG:") {
		v = v[5:]
	}
	srid, err := strconv.Atoi(v)
	if err != nil || srid <= 0 {
		return 0, fmt.Errorf("unsupported projection: %q (expected EPSG code such as 27700 or EPSG:27700)", s)
	}
	return srid, nil
}

// IsGeographic reports whether the SRID measures in degrees
func IsGeographic(srid int) bool {
	return geographic[srid]
}

// Label formats an SRID for logs
func Label(srid int) string {
	if srid == 0 {
		return "unknown"
	}
	return "EPSG:" + strconv.Itoa(srid)
}
