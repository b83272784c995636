package form

import "strings"

// countryCodes maps country names as submitted to ISO 3166-1 alpha-2 codes.
var countryCodes = map[string]string{
	"argentina":      "AR",
	"australia":      "AU",
	"austria":        "AT",
	"belgium":        "BE",
	"brazil":         "BR",
	"canada":         "CA",
	"chile":          "CL",
	"china":          "CN",
	"colombia":       "CO",
	"czech republic": "CZ",
	"denmark":        "DK",
	"finland":        "FI",
	"france":         "FR",
	"germany":        "DE",
	"greece":         "GR",
	"hungary":        "HU",
	"india":          "IN",
	"indonesia":      "ID",
	"ireland":        "IE",
	"israel":         "IL",
	"italy":          "IT",
	"japan":          "JP",
	"mexico":         "MX",
	"netherlands":    "NL",
	"new zealand":    "NZ",
	"norway":         "NO",
	"philippines":    "PH",
	"poland":         "PL",
	"portugal":       "PT",
	"romania":        "RO",
	"singapore":      "SG",
	"south africa":   "ZA",
	"south korea":    "KR",
	"spain":          "ES",
	"sweden":         "SE",
	"switzerland":    "CH",
	"thailand":       "TH",
	"turkey":         "TR",
	"ukraine":        "UA",
	"united kingdom": "GB",
	"united states":  "US",
	"vietnam":        "VN",
}

// CountryCode resolves a country name to its ISO code. Values already shaped
// like a code are upper-cased; unknown names pass through unchanged.
func CountryCode(name string) string {
	if name == "" {
		return ""
	}
	if code, ok := countryCodes[strings.ToLower(name)]; ok {
		return code
	}
	if len(name) == 2 {
		return strings.ToUpper(name)
	}
	return name
}
