// Package adcopy defines the domain types and collaborator interfaces shared by the
// acquisition pipeline, the page cache, the language resolver, and the generation gateway.
package adcopy
