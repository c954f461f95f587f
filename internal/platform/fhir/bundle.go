// Package fhir holds the small set of FHIR envelope types the exchange emits:
// searchset Bundles for paginated searches and OperationOutcomes for errors.
package fhir

import "github.com/jupyterhealth/exchange/pkg/pagination"

// Bundle is a FHIR searchset Bundle with the pagination metadata block FHIR
// clients of the exchange rely on.
type Bundle struct {
	ResourceType string            `json:"resourceType"`
	Type         string            `json:"type"`
	Total        int               `json:"total"`
	Entry        []BundleEntry     `json:"entry"`
	Link         []pagination.Link `json:"link"`
	Meta         *BundleMeta       `json:"meta,omitempty"`
}

// BundleEntry wraps a single resource.
type BundleEntry struct {
	Resource any `json:"resource"`
}

// BundleMeta carries the non-standard meta.pagination extension.
type BundleMeta struct {
	Pagination pagination.Meta `json:"pagination"`
}

// NewSearchBundle renders one result page as a searchset Bundle. resources
// are the serialized FHIR forms of the page items; the entry array is empty,
// never null, for an empty page.
func NewSearchBundle[T any](page *pagination.Page[T], links []pagination.Link, resources []any) Bundle {
	entries := make([]BundleEntry, 0, len(resources))
	for _, r := range resources {
		entries = append(entries, BundleEntry{Resource: r})
	}
	meta := pagination.MetaOf(page)
	return Bundle{
		ResourceType: "Bundle",
		Type:         "searchset",
		Total:        page.Total,
		Entry:        entries,
		Link:         links,
		Meta:         &BundleMeta{Pagination: meta},
	}
}
