package inventory

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Surface is an asset surface of the unified inventory.
type Surface string

const (
	SurfaceEndpoint         Surface = "ENDPOINT"
	SurfaceCloud            Surface = "CLOUD"
	SurfaceIdentity         Surface = "IDENTITY"
	SurfaceNetworkDiscovery Surface = "NETWORK_DISCOVERY"
)

// Surfaces lists every surface.
var Surfaces = []Surface{SurfaceEndpoint, SurfaceCloud, SurfaceIdentity, SurfaceNetworkDiscovery}

// ParseSurface validates s.
func ParseSurface(s string) (Surface, error) {
	for _, sf := range Surfaces {
		if string(sf) == s {
			return sf, nil
		}
	}
	names := make([]string, len(Surfaces))
	for i, sf := range Surfaces {
		names[i] = string(sf)
	}
	return "", fmt.Errorf("surface must be one of: %s", strings.Join(names, ", "))
}

// Item is one inventory asset. The commonly used attributes are decoded;
// the complete record, including every surface-specific attribute, is kept
// and re-emitted verbatim when the item is marshaled.
type Item struct {
	ID               string   `json:"id,omitempty"`
	Name             string   `json:"name,omitempty"`
	ResourceType     string   `json:"resourceType,omitempty"`
	Category         string   `json:"category,omitempty"`
	SubCategory      string   `json:"subCategory,omitempty"`
	Surfaces         []string `json:"surfaces,omitempty"`
	AssetStatus      string   `json:"assetStatus,omitempty"`
	AssetCriticality string   `json:"assetCriticality,omitempty"`
	AssetEnvironment string   `json:"assetEnvironment,omitempty"`
	InfectionStatus  string   `json:"infectionStatus,omitempty"`
	LastActiveDt     string   `json:"lastActiveDt,omitempty"`
	OS               string   `json:"os,omitempty"`
	OSVersion        string   `json:"osVersion,omitempty"`
	Region           string   `json:"region,omitempty"`
	RiskFactors      []string `json:"riskFactors,omitempty"`
	MissingCoverage  []string `json:"missingCoverage,omitempty"`

	raw json.RawMessage
}

type itemFields Item

func (it *Item) UnmarshalJSON(b []byte) error {
	var f itemFields
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*it = Item(f)
	it.raw = append(json.RawMessage(nil), b...)
	return nil
}

func (it Item) MarshalJSON() ([]byte, error) {
	if it.raw != nil {
		return it.raw, nil
	}
	return json.Marshal(itemFields(it))
}

// Pagination is the paging block of a response.
type Pagination struct {
	TotalCount *int `json:"totalCount,omitempty"`
	Limit      *int `json:"limit,omitempty"`
	Skip       *int `json:"skip,omitempty"`
}

// Response is one page of items.
type Response struct {
	Data       []Item      `json:"data"`
	Pagination *Pagination `json:"pagination,omitempty"`
}
