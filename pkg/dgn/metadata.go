package dgn

import (
	"sort"

	"github.com/beetlebugorg/dgn/internal/cad"
)

// MetadataDomainDGN is the metadata domain carrying design-file header
// items: GUID, creating application, master unit, format version.
const MetadataDomainDGN = "DGN"

// MetadataDomainList returns the available metadata domains. The default
// domain is the empty string.
func (ds *DataSource) MetadataDomainList() []string {
	return []string{"", MetadataDomainDGN}
}

// Metadata returns all key/value items of a domain. Unknown domains yield
// an empty map.
func (ds *DataSource) Metadata(domain string) map[string]string {
	switch domain {
	case "":
		return map[string]string{}
	case MetadataDomainDGN:
		items := make(map[string]string)
		for _, key := range ds.db.HeaderKeys() {
			items[key] = ds.db.Header(key)
		}
		return items
	default:
		return map[string]string{}
	}
}

// MetadataItem returns one metadata value, or "" if the item or domain is
// unknown.
func (ds *DataSource) MetadataItem(name, domain string) string {
	return ds.Metadata(domain)[name]
}

// MetadataKeys returns the sorted keys of a domain, a convenience for
// stable presentation.
func (ds *DataSource) MetadataKeys(domain string) []string {
	items := ds.Metadata(domain)
	keys := make([]string, 0, len(items))
	for key := range items {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// GUID returns the design file's GUID assigned at creation, or "" for
// files created by other producers.
func (ds *DataSource) GUID() string {
	return ds.db.Header(cad.HeaderGUID)
}
