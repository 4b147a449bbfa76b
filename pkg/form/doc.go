// Package form binds field schemas to mutable records and submits them to the
// REST API. A Form owns one record, its file bucket and the errors of its last
// attempt; a FormSet manages the SubForms of a nested collection together with
// unsaved drafts. Instances are cheap and built per request, so nothing here
// is shared between requests.
package form
