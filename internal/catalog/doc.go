// Package catalog loads the console's resource descriptions.
//
// A catalog is a set of JSON or YAML documents, each listing resources with
// their fields, table columns, lookups and nested formsets. Formatter names
// are resolved against a format.Registry while loading, so fields carry the
// formatter capability itself rather than a name matched at render time.
//
// The handyman catalog ships embedded; Import derives entries from an
// OpenAPI document for bootstrapping new resources.
package catalog
