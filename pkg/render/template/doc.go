// Package template defines the template engine seam used by the HTML
// renderer. The default implementation is the go-template engine, which loads
// pongo2 templates from an fs.FS so bundles can be embedded or read from disk.
package template
