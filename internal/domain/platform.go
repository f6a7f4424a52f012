package domain

import "strings"

// Platform describes one marketplace integration. TypePrefix is the prefix the
// orchestration engine puts in front of workflow type names, e.g. "Vinted" in
// "VintedPublishWorkflow".
type Platform struct {
	Tag        string `mapstructure:"tag" json:"tag"`
	Name       string `mapstructure:"name" json:"name"`
	TypePrefix string `mapstructure:"type_prefix" json:"type_prefix"`
}

func DefaultPlatforms() []Platform {
	return []Platform{
		{Tag: "vinted", Name: "Vinted", TypePrefix: "Vinted"},
		{Tag: "etsy", Name: "Etsy", TypePrefix: "Etsy"},
		{Tag: "ebay", Name: "eBay", TypePrefix: "Ebay"},
		{Tag: "leboncoin", Name: "Leboncoin", TypePrefix: "Leboncoin"},
	}
}

// FindPlatform looks a platform up by tag, case-insensitively
func FindPlatform(platforms []Platform, tag string) (Platform, bool) {
	for _, platform := range platforms {
		if strings.EqualFold(platform.Tag, tag) {
			return platform, true
		}
	}
	return Platform{}, false
}
