// Package schema defines the declarative field descriptions that drive form
// and table rendering. A Field is a closed tagged union over two element
// kinds (input and select); form controls dispatch with Field.Accept when they
// build their views, and renderers do the same over render.FieldView. Formatting behaviour is attached to the field itself
// through a format.Formatter resolved when the schema is authored.
//
// Resource and Formset describe one CRUD entity of the console and its nested
// one-to-many collections.
package schema
