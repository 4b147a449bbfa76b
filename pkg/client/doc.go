// Package client talks to the handyman REST API. Collections live at
// "{resource}/", items at "{resource}/{id}/" and nested collections at
// "{parent}/{nested}/{parentId}/". Every request carries the bearer token
// found on the request context, and every mutation is sent as
// multipart/form-data so file fields and plain values travel together.
package client
