// Package organization manages the provider-organization hierarchy that
// studies and practitioner/patient memberships hang off.
package organization

// Organization is a provider organization; PartOfID points at the parent for
// hierarchical orgs (prov/dept/...).
type Organization struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	PartOfID *int64 `json:"part_of,omitempty"`
}

// FHIR organization type codes accepted on create.
var ValidTypes = map[string]bool{
	"prov": true, "dept": true, "team": true, "govt": true,
	"ins": true, "pay": true, "edu": true, "reli": true,
	"crs": true, "cg": true, "bus": true, "other": true,
}
